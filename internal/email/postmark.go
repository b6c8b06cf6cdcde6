package email

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const postmarkURL = "https://api.postmarkapp.com/email"

// ServicePostmark is the only supported mail service.
const ServicePostmark = "postmark"

// DefaultTimeout bounds one Postmark API call.
const DefaultTimeout = 30 * time.Second

// ErrNotConfigured is returned by Send when credentials are missing. It is
// distinct from a failed delivery.
var ErrNotConfigured = errors.New("email client not configured")

// Config names the mail service and its credentials. User is the account
// principal and the default sender; Pass is the Postmark server token.
type Config struct {
	Service string
	User    string
	Pass    string
	From    string
}

type Client struct {
	cfg        Config
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the service is Postmark and the principal and
// secret are set.
func (c *Client) Configured() bool {
	return strings.EqualFold(c.cfg.Service, ServicePostmark) && c.cfg.User != "" && c.cfg.Pass != ""
}

func (c *Client) from() string {
	if c.cfg.From != "" {
		return c.cfg.From
	}
	return c.cfg.User
}

type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

type Message struct {
	To          string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
}

type postmarkAttachment struct {
	Name        string `json:"Name"`
	Content     string `json:"Content"`
	ContentType string `json:"ContentType"`
}

type postmarkEmail struct {
	From        string               `json:"From"`
	To          string               `json:"To"`
	Subject     string               `json:"Subject"`
	HtmlBody    string               `json:"HtmlBody"`
	TextBody    string               `json:"TextBody,omitempty"`
	Attachments []postmarkAttachment `json:"Attachments,omitempty"`
}

type postmarkError struct {
	ErrorCode int    `json:"ErrorCode"`
	Message   string `json:"Message"`
}

// Send delivers msg through the Postmark API.
func (c *Client) Send(ctx context.Context, msg Message) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	payload := postmarkEmail{
		From:     c.from(),
		To:       msg.To,
		Subject:  msg.Subject,
		HtmlBody: msg.HTMLBody,
		TextBody: msg.TextBody,
	}
	for _, a := range msg.Attachments {
		payload.Attachments = append(payload.Attachments, postmarkAttachment{
			Name:        a.Name,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, postmarkURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.cfg.Pass)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var pe postmarkError
		if json.NewDecoder(resp.Body).Decode(&pe) == nil && pe.Message != "" {
			return fmt.Errorf("postmark API error: status %d: %s (code %d)", resp.StatusCode, pe.Message, pe.ErrorCode)
		}
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
