package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"officehours/internal/config"
	"officehours/internal/notification"
	"officehours/internal/notification/push"
	"officehours/internal/notification/sms"
	"officehours/internal/queue"
	"officehours/internal/store"
)

// Worker consumes notification jobs published by the API after a question
// transition commits, and fans them out to the user's channels.
func main() {
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "officehours:notify")
	}

	channelRepo := notification.NewRepository(db.Client)

	var pusher notification.Pusher
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pusher = push.New(cfg.VAPIDSubscriber, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
	} else {
		log.Println("web push not configured, desktop channels will be skipped")
	}

	var texter notification.Texter
	if cfg.SMSAPIKey != "" {
		texter = sms.New(cfg.SMSBaseURL, cfg.SMSAPIKey, cfg.SMSFrom)
	} else {
		log.Println("sms carrier not configured, phone channels will be skipped")
	}

	dispatcher := notification.NewDispatcher(channelRepo, pusher, texter, cfg.NotifyTimeout)

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Println("worker started, waiting for notification jobs...")
	for msg := range messages {
		if msg.Type != notification.JobType {
			continue
		}

		job, err := notification.DecodeJob(msg.Body)
		if err != nil {
			log.Printf("decode notification job failed: %v", err)
			continue
		}

		log.Printf("dispatching notification to user %s", job.UserID)
		dispatcher.Notify(ctx, job.UserID, job.Message)
	}

	log.Println("worker stopped")
}
