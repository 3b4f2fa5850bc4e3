package push

import (
	"context"
	"fmt"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// Client sends web-push notifications signed with VAPID keys.
type Client struct {
	subscriber string
	publicKey  string
	privateKey string
}

// New creates a client. subscriber is the contact mailto/URL required by the
// push services.
func New(subscriber, publicKey, privateKey string) *Client {
	return &Client{subscriber: subscriber, publicKey: publicKey, privateKey: privateKey}
}

// PublicKey returns the VAPID public key for browser subscriptions.
func (c *Client) PublicKey() string {
	return c.publicKey
}

// Send pushes message to one subscription endpoint.
func (c *Client) Send(ctx context.Context, endpoint, p256dh, auth, message string) error {
	sub := &webpush.Subscription{
		Endpoint: endpoint,
		Keys: webpush.Keys{
			P256dh: p256dh,
			Auth:   auth,
		},
	}
	resp, err := webpush.SendNotificationWithContext(ctx, []byte(message), sub, &webpush.Options{
		Subscriber:      c.subscriber,
		VAPIDPublicKey:  c.publicKey,
		VAPIDPrivateKey: c.privateKey,
		TTL:             60,
	})
	if err != nil {
		return fmt.Errorf("push send failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("push endpoint error %s", resp.Status)
	}
	return nil
}
