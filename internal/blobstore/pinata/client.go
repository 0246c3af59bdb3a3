// Package pinata stores ciphertext blobs on IPFS through the Pinata pinning API.
package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/frahmantamala/research-vault/internal/blobstore"
)

type Config struct {
	APIURL     string
	GatewayURL string
	JWT        string
	Timeout    time.Duration
	RetryCount int
}

type Client struct {
	api     *resty.Client
	gateway *resty.Client
	logger  *slog.Logger
	now     func() time.Time
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

type pinataMetadata struct {
	Name string `json:"name"`
}

type pinataOptions struct {
	CIDVersion int `json:"cidVersion"`
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	api := resty.New().
		SetBaseURL(cfg.APIURL).
		SetAuthToken(cfg.JWT).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond)

	gateway := resty.New().
		SetBaseURL(cfg.GatewayURL).
		SetTimeout(timeout).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Client{api: api, gateway: gateway, logger: logger, now: time.Now}
}

func (c *Client) Put(ctx context.Context, blob []byte) (string, error) {
	name := fmt.Sprintf("research-%d", c.now().UnixMilli())

	meta, err := json.Marshal(pinataMetadata{Name: name})
	if err != nil {
		return "", err
	}
	opts, err := json.Marshal(pinataOptions{CIDVersion: 0})
	if err != nil {
		return "", err
	}

	var out pinResponse
	resp, err := c.api.R().
		SetContext(ctx).
		SetFileReader("file", name, bytes.NewReader(blob)).
		SetFormData(map[string]string{
			"pinataMetadata": string(meta),
			"pinataOptions":  string(opts),
		}).
		SetResult(&out).
		ForceContentType("application/json").
		Post("/pinning/pinFileToIPFS")
	if err != nil {
		return "", fmt.Errorf("pinata pin request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("pinata pin status %d: %s", resp.StatusCode(), resp.String())
	}
	if out.IpfsHash == "" {
		return "", fmt.Errorf("pinata pin: empty hash in response")
	}

	c.logger.Info("blob pinned to ipfs", "ref", out.IpfsHash, "size", out.PinSize)
	return out.IpfsHash, nil
}

func (c *Client) Get(ctx context.Context, ref string) ([]byte, error) {
	resp, err := c.gateway.R().
		SetContext(ctx).
		SetPathParam("ref", ref).
		Get("/ipfs/{ref}")
	if err != nil {
		return nil, fmt.Errorf("ipfs gateway request: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return nil, blobstore.ErrBlobNotFound
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ipfs gateway status %d", resp.StatusCode())
	}
	return resp.Body(), nil
}

func (c *Client) Delete(ctx context.Context, ref string) error {
	resp, err := c.api.R().
		SetContext(ctx).
		SetPathParam("ref", ref).
		Delete("/pinning/unpin/{ref}")
	if err != nil {
		return fmt.Errorf("pinata unpin request: %w", err)
	}
	if resp.StatusCode() == http.StatusNotFound {
		return blobstore.ErrBlobNotFound
	}
	if resp.IsError() {
		return fmt.Errorf("pinata unpin status %d: %s", resp.StatusCode(), resp.String())
	}
	c.logger.Info("blob unpinned from ipfs", "ref", ref)
	return nil
}
