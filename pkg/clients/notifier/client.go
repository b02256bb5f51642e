package notifier

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/mamadbah2/inventory/internal/config"
)

// Client delivers expiry digests to an external webhook.
type Client interface {
	SendDigest(ctx context.Context, digest Digest) error
}

// Digest summarises the records found expired by a sweep.
type Digest struct {
	GeneratedAt time.Time    `json:"generatedAt"`
	Count       int          `json:"count"`
	Items       []DigestItem `json:"items"`
}

// DigestItem is the subset of an inventory record included in a digest.
type DigestItem struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	ProductType       string    `json:"productType,omitempty"`
	Amount            string    `json:"amount,omitempty"`
	UnitOfMeasurement string    `json:"unitOfMeasurement,omitempty"`
	BestBeforeDate    time.Time `json:"bestBeforeDate"`
}

// WebhookClient is a resty-backed implementation of Client.
type WebhookClient struct {
	httpClient *resty.Client
	url        string
}

// NewClient builds a webhook client from the expiry configuration.
func NewClient(cfg config.ExpiryConfig) *WebhookClient {
	restyClient := resty.New()
	restyClient.
		SetHeader("Content-Type", "application/json").
		SetTimeout(15 * time.Second)
	if cfg.WebhookToken != "" {
		restyClient.SetAuthToken(cfg.WebhookToken)
	}

	return &WebhookClient{
		httpClient: restyClient,
		url:        cfg.WebhookURL,
	}
}

// apiError represents an error payload returned by the webhook receiver.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// SendDigest posts the digest as JSON.
func (c *WebhookClient) SendDigest(ctx context.Context, digest Digest) error {
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(digest).
		SetError(apiErr).
		Post(c.url)
	if err != nil {
		return fmt.Errorf("send expiry digest: %w", err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		message := apiErr.Message
		if message == "" {
			message = apiErr.Error
		}
		return fmt.Errorf("webhook error: code=%d, message=%s", resp.StatusCode(), message)
	}

	return nil
}
