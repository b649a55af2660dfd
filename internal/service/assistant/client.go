package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/civibot-ba/backend/internal/model/chat"
)

const (
	greetPrefix = "/greet"
	faqPrefix   = "/faq_gcba"
)

// Reply is one item of the ordered response array the conversational
// webhook returns. Both fields are optional on the wire; an empty array is
// a valid "no reply" response.
type Reply struct {
	Text    string        `json:"text,omitempty"`
	Buttons []chat.Button `json:"buttons,omitempty"`
}

// Config carries the webhook URL and the timeout budgets. Zero durations
// fall back to the production defaults.
type Config struct {
	URL          string
	Timeout      time.Duration
	GreetTimeout time.Duration
	RetryExtra   time.Duration
}

// Client delivers user input to the conversational backend with the
// timeout/retry policy the assistant's cold start requires.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient builds a webhook client for the given configuration.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.GreetTimeout <= 0 {
		cfg.GreetTimeout = 25 * time.Second
	}
	if cfg.RetryExtra <= 0 {
		cfg.RetryExtra = 10 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{}}
}

// Converse posts one user input and returns the raw ordered replies. An
// attempt that dies on its deadline is retried exactly once with an
// extended budget; any other failure propagates without retry.
func (c *Client) Converse(ctx context.Context, senderID, message string) ([]Reply, error) {
	budget := c.budget(message)

	replies, err := c.attempt(ctx, senderID, message, budget)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		log.Printf("[assistant] attempt timed out after %s, retrying once", budget)
		replies, err = c.attempt(ctx, senderID, message, budget+c.cfg.RetryExtra)
	}
	return replies, err
}

// budget picks the per-attempt timeout. Greetings and FAQ category lookups
// get the extended budget because they are the first thing a cold assistant
// answers.
func (c *Client) budget(message string) time.Duration {
	if strings.HasPrefix(message, greetPrefix) || strings.HasPrefix(message, faqPrefix) {
		return c.cfg.GreetTimeout
	}
	return c.cfg.Timeout
}

func (c *Client) attempt(ctx context.Context, senderID, message string, timeout time.Duration) ([]Reply, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{
		"sender":  senderID,
		"message": message,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal assistant request: %w", err)
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.cfg.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build assistant request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("assistant returned status %s", resp.Status)
	}

	// The response must be an array; enforcing it once here keeps every
	// caller free of shape checks.
	var replies []Reply
	if err := json.NewDecoder(resp.Body).Decode(&replies); err != nil {
		return nil, fmt.Errorf("decode assistant response: %w", err)
	}
	return replies, nil
}
