package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"officehours/internal/attendance"
	"officehours/internal/auth"
	"officehours/internal/config"
	"officehours/internal/event"
	"officehours/internal/httpmiddleware"
	"officehours/internal/notification"
	"officehours/internal/notification/push"
	"officehours/internal/notification/sms"
	"officehours/internal/question"
	"officehours/internal/queue"
	"officehours/internal/store"
)

func main() {
	cfg := config.Load()

	if cfg.Env == "production" || cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	db, err := store.NewDB(cfg.DatabaseURL)
	if db == nil {
		return err
	}
	if err != nil {
		log.Printf("warning: db not reachable: %v", err)
	}
	defer func() { _ = db.Close() }()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "officehours:notify")
	}

	questionRepo := question.NewRepository(db.Client)
	eventRepo := event.NewRepository(db.Client)
	channelRepo := notification.NewRepository(db.Client)

	var pusher notification.Pusher
	if cfg.VAPIDPublicKey != "" && cfg.VAPIDPrivateKey != "" {
		pusher = push.New(cfg.VAPIDSubscriber, cfg.VAPIDPublicKey, cfg.VAPIDPrivateKey)
		log.Println("web push configured")
	} else {
		log.Println("web push not configured (VAPID_PUBLIC_KEY / VAPID_PRIVATE_KEY not set)")
	}

	var texter notification.Texter
	var lookup notification.NumberLookup
	if cfg.SMSAPIKey != "" {
		smsClient := sms.New(cfg.SMSBaseURL, cfg.SMSAPIKey, cfg.SMSFrom)
		texter = smsClient
		lookup = smsClient
		log.Println("sms carrier configured:", cfg.SMSBaseURL)
	} else {
		log.Println("sms carrier not configured (SMS_API_KEY not set)")
	}

	dispatcher := notification.NewDispatcher(channelRepo, pusher, texter, cfg.NotifyTimeout)
	notifSvc := notification.NewService(channelRepo, dispatcher, lookup, cfg.VAPIDPublicKey)
	questions := question.NewService(questionRepo, eventRepo, notification.NewQueuePublisher(q))
	attendanceSvc := attendance.NewService(eventRepo, questionRepo, attendance.NewPGUserDirectory(db.Client))

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(corsMiddleware())
	r.Use(securityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/healthz", func(c *gin.Context) {
		redisHealthy := redisClient.Healthy(c.Request.Context())
		dbHealthy := db.Client.PingContext(c.Request.Context()) == nil
		status := http.StatusOK
		if !redisHealthy || !dbHealthy {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"status": "ok", "redis": redisHealthy, "db": dbHealthy})
	})

	r.POST("/v1/auth/token", func(c *gin.Context) {
		var req struct {
			UserID string `json:"user_id" binding:"required"`
			Role   string `json:"role" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Role != auth.RoleStudent && req.Role != auth.RoleStaff {
			c.JSON(http.StatusBadRequest, gin.H{"error": "role must be student or staff"})
			return
		}
		tokens, err := auth.Issue(req.UserID, req.Role, cfg.JWTIssuer, cfg.JWTSigningKey, cfg.AccessTTL, cfg.RefreshTTL)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "token issue failed"})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"access_token":  tokens.AccessToken,
			"refresh_token": tokens.RefreshToken,
			"expires_at":    tokens.AccessExp.Unix(),
		})
	})

	// Public: browsers need the VAPID key before they can subscribe, and the
	// carrier posts inbound SMS replies without a bearer token.
	r.GET("/notifications/desktop/credentials", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"public_key": notifSvc.DesktopPublicKey()})
	})

	r.POST("/notifications/phone/inbound", func(c *gin.Context) {
		from := c.PostForm("From")
		body := c.PostForm("Body")
		if from == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "From field required"})
			return
		}
		reply, err := notifSvc.HandleInboundSMS(c.Request.Context(), from, body)
		if err != nil {
			log.Printf("inbound sms from %s failed: %v", from, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "inbound handling failed"})
			return
		}
		c.String(http.StatusOK, reply)
	})

	authGroup := r.Group("/v1", auth.RequireAuth(cfg.JWTSigningKey, cfg.JWTIssuer))

	authGroup.POST("/courses/:courseID/questions", func(c *gin.Context) {
		var req struct {
			QueueID string `json:"queue_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims := auth.FromContext(c)
		qn, err := questions.CreateDraft(c.Request.Context(), c.Param("courseID"), req.QueueID, claims.Subject)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, qn)
	})

	authGroup.PATCH("/questions/:id", func(c *gin.Context) {
		var req struct {
			Text         *string `json:"text"`
			QuestionType *string `json:"question_type"`
			Status       *string `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		patch := question.Patch{Text: req.Text, QuestionType: req.QuestionType}
		if req.Status != nil {
			st := question.Status(*req.Status)
			patch.Status = &st
		}
		claims := auth.FromContext(c)
		actor := question.Actor{ID: claims.Subject, Staff: claims.IsStaff()}
		qn, err := questions.Update(c.Request.Context(), c.Param("id"), actor, patch)
		if err != nil {
			writeQuestionError(c, err)
			return
		}
		c.JSON(http.StatusOK, qn)
	})

	authGroup.GET("/queues/:queueID/questions", func(c *gin.Context) {
		list, err := questions.ListQueue(c.Request.Context(), c.Param("queueID"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"questions": list})
	})

	authGroup.POST("/courses/:courseID/attendance", auth.RequireStaff(), func(c *gin.Context) {
		var req struct {
			EventType string `json:"event_type" binding:"required"`
			UserID    string `json:"user_id"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		userID := req.UserID
		if userID == "" {
			userID = auth.FromContext(c).Subject
		}
		evt, err := attendanceSvc.RecordEvent(c.Request.Context(), c.Param("courseID"), userID, event.Type(req.EventType))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, evt)
	})

	authGroup.GET("/courses/:courseID/attendance/report", auth.RequireStaff(), func(c *gin.Context) {
		start, err := parseDate(c.Query("start"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start date"})
			return
		}
		end, err := parseDate(c.Query("end"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end date"})
			return
		}
		report, err := attendanceSvc.Report(c.Request.Context(), c.Param("courseID"), start, end)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": report})
	})

	authGroup.POST("/notifications/desktop/register", func(c *gin.Context) {
		var req struct {
			Endpoint string `json:"endpoint" binding:"required"`
			Keys     struct {
				P256dh string `json:"p256dh" binding:"required"`
				Auth   string `json:"auth" binding:"required"`
			} `json:"keys" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims := auth.FromContext(c)
		ch, err := notifSvc.RegisterDesktop(c.Request.Context(), claims.Subject, req.Endpoint, req.Keys.P256dh, req.Keys.Auth)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, ch)
	})

	authGroup.POST("/notifications/phone/register", func(c *gin.Context) {
		var req struct {
			PhoneNumber string `json:"phone_number" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		claims := auth.FromContext(c)
		if err := notifSvc.RegisterPhone(c.Request.Context(), req.PhoneNumber, claims.Subject); err != nil {
			if errors.Is(err, notification.ErrInvalidPhoneNumber) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "phone number invalid"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Status(http.StatusCreated)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// writeQuestionError maps state machine failures so a client can tell a lost
// claim race (refresh and retry) from a validation problem.
func writeQuestionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, question.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, question.ErrAlreadyClaimed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, question.ErrNotAllowed):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, question.ErrInvalidQuestionState) || question.IsInvalidTransition(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// CORS middleware for browser requests
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Security headers middleware
func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-XSS-Protection", "1; mode=block")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		if gin.Mode() == gin.ReleaseMode {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}
