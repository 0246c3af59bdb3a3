package notary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

type ClientConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// Client talks to a ledger gateway that anchors content references and returns transaction hashes.
type Client struct {
	http   *resty.Client
	logger *slog.Logger
}

type anchorResponse struct {
	TxHash string `json:"txHash"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := resty.New().
		SetBaseURL(cfg.URL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		c.SetAuthToken(cfg.APIKey)
	}

	return &Client{http: c, logger: logger}
}

func (c *Client) Notarize(ctx context.Context, req Request) (string, error) {
	var (
		out     anchorResponse
		failure errorResponse
	)
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		SetError(&failure).
		ForceContentType("application/json").
		Post("/v1/anchors")
	if err != nil {
		return "", fmt.Errorf("anchor request: %w", err)
	}
	if resp.IsError() {
		if failure.Error != "" {
			return "", fmt.Errorf("anchor rejected with status %d: %s", resp.StatusCode(), failure.Error)
		}
		return "", fmt.Errorf("anchor rejected with status %d", resp.StatusCode())
	}

	c.logger.Debug("document anchored",
		"document_id", req.DocumentID,
		"type", req.Type,
		"tx_hash", out.TxHash,
		"duration", resp.Time())
	return out.TxHash, nil
}
