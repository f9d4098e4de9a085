package webpush

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// VAPIDIdentity is the per-tenant signing identity. Each project has
// its own keypair, so the sender is configured per send rather than
// globally.
type VAPIDIdentity struct {
	Subscriber string // contact email, mailto: form
	PublicKey  string
	PrivateKey string
}

// Endpoint is one browser push target: the push-service URL plus the
// client keys needed to encrypt the payload.
type Endpoint struct {
	URL    string
	P256dh string
	Auth   string
}

// Payload is the JSON document the service worker receives.
type Payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon,omitempty"`
	Badge string `json:"badge,omitempty"`
	Image string `json:"image,omitempty"`
	URL   string `json:"url,omitempty"`
	ID    string `json:"id"`
}

// Sender delivers one encrypted push message. Implementations must be
// safe for concurrent use; the dispatch worker fans out many sends at
// once.
type Sender interface {
	Send(ctx context.Context, identity VAPIDIdentity, target Endpoint, payload Payload) error
}

// SendError carries the push service's HTTP status for a rejected send.
type SendError struct {
	StatusCode int
}

func (e *SendError) Error() string {
	return fmt.Sprintf("push service returned status %d", e.StatusCode)
}

// Gone reports whether the push service said the endpoint no longer
// exists (HTTP 410). Callers deactivate the subscription on this.
func (e *SendError) Gone() bool {
	return e.StatusCode == http.StatusGone
}

// sendTimeout caps one push round trip so a hung push service cannot
// pin a fan-out goroutine for the whole job.
const sendTimeout = 30 * time.Second

type HTTPSender struct {
	ttl    int
	client *http.Client
}

func NewHTTPSender() *HTTPSender {
	return &HTTPSender{
		ttl:    86400,
		client: &http.Client{Timeout: sendTimeout},
	}
}

func (s *HTTPSender) Send(ctx context.Context, identity VAPIDIdentity, target Endpoint, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal push payload: %w", err)
	}

	sub := &webpush.Subscription{
		Endpoint: target.URL,
		Keys: webpush.Keys{
			P256dh: target.P256dh,
			Auth:   target.Auth,
		},
	}

	options := &webpush.Options{
		Subscriber:      identity.Subscriber,
		VAPIDPublicKey:  identity.PublicKey,
		VAPIDPrivateKey: identity.PrivateKey,
		TTL:             s.ttl,
		Urgency:         webpush.UrgencyNormal,
	}
	if s.client != nil {
		options.HTTPClient = s.client
	}

	resp, err := webpush.SendNotificationWithContext(ctx, body, sub, options)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return &SendError{StatusCode: resp.StatusCode}
	}
	return nil
}
