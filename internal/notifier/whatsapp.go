package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Sender delivers a text message to a phone number
type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// APIError is a non-2xx answer from the messaging provider
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api returned status %d: %s", e.StatusCode, e.Body)
}

// WhatsAppClient posts {"phone", "message"} to a provider endpoint with a
// bearer key. With no URL configured it only logs what it would have sent.
type WhatsAppClient struct {
	URL         string
	apiKey      string
	countryCode string
	httpClient  *http.Client
	log         *zap.Logger
}

func NewWhatsAppClient(url, apiKey, countryCode string, timeout time.Duration, log *zap.Logger) *WhatsAppClient {
	return &WhatsAppClient{
		URL:         url,
		apiKey:      apiKey,
		countryCode: countryCode,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// Simulated reports whether messages are only logged
func (c *WhatsAppClient) Simulated() bool {
	return c.URL == ""
}

func (c *WhatsAppClient) Send(ctx context.Context, phone, message string) error {
	to := c.international(phone)

	if c.Simulated() {
		c.log.Info("Simulated WhatsApp message", zap.String("phone", to), zap.String("message", message))
		return nil
	}

	body, err := json.Marshal(sendRequest{Phone: to, Message: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	c.log.Debug("WhatsApp message accepted", zap.String("phone", to), zap.Int("status", resp.StatusCode))
	return nil
}

// international prefixes the country code onto a stored national number
func (c *WhatsAppClient) international(phone string) string {
	if c.countryCode == "" || strings.HasPrefix(phone, c.countryCode) && len(phone) > 11 {
		return phone
	}
	return c.countryCode + phone
}
