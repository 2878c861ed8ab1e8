package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/julianstephens/habitpact/internal/constants"
	"github.com/julianstephens/habitpact/internal/logger"
)

// InvitationCreated is published once for every invitation that commits.
// Mail delivery formats and sends it.
type InvitationCreated struct {
	InvitationID   string    `json:"invitation_id"`
	SenderName     string    `json:"sender_name"`
	HabitName      string    `json:"habit_name"`
	StartDate      string    `json:"start_date"`
	EndDate        string    `json:"end_date"`
	RecipientName  string    `json:"recipient_name"`
	RecipientEmail string    `json:"recipient_email"`
	RecipientKnown bool      `json:"recipient_has_account"`
	CreatedAt      time.Time `json:"created_at"`
}

// Publisher delivers invitation events
type Publisher interface {
	Publish(ctx context.Context, event InvitationCreated) error
}

// Webhook posts events as JSON to an HTTP endpoint
type Webhook struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhook creates a Webhook for url. A non-empty secret is sent in the
// X-Habitpact-Secret header.
func NewWebhook(url, secret string) *Webhook {
	return &Webhook{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: constants.NotifyTimeout},
	}
}

func (w *Webhook) Publish(ctx context.Context, event InvitationCreated) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	if w.secret != "" {
		req.Header.Set("X-Habitpact-Secret", w.secret)
	}

	res, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("notification failed with status %d: %s", res.StatusCode, string(body))
}

// Log writes events to the application log. It is the default when no
// webhook is configured.
type Log struct{}

func (Log) Publish(_ context.Context, event InvitationCreated) error {
	logger.Info("Invitation created",
		"invitation", event.InvitationID,
		"sender", event.SenderName,
		"habit", event.HabitName,
		"start", event.StartDate,
		"end", event.EndDate,
		"recipient", event.RecipientEmail,
		"recipient_has_account", event.RecipientKnown)
	return nil
}

// Multi fans an event out to every publisher and joins their errors
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event InvitationCreated) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
