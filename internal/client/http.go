package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avolkov/snapsync/internal/common"
	"github.com/avolkov/snapsync/internal/models"
)

const defaultRequestTimeout = 60 * time.Second

// HTTPClient talks JSON and multipart to the media server. Every request
// carries the API key and the device tag headers; each call owns its own
// request timeout, so a stuck server surfaces as a retryable timeout rather
// than a hung worker.
type HTTPClient struct {
	baseURL  string
	deviceID string
	apiKey   string
	http     *http.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) { c.http.Timeout = d }
}

// WithHTTPClient substitutes the underlying http.Client (used in tests).
func WithHTTPClient(h *http.Client) Option {
	return func(c *HTTPClient) { c.http = h }
}

func NewHTTPClient(baseURL, deviceID, apiKey string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		deviceID: deviceID,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: defaultRequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HTTPClient) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := mw.WriteField("mediaType", string(req.MediaType)); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if req.CreationDate != nil {
		if err := mw.WriteField("creationDate", req.CreationDate.UTC().Format(time.RFC3339)); err != nil {
			return nil, fmt.Errorf("build upload form: %w", err)
		}
	}
	fw, err := mw.CreateFormFile("file", req.Filename)
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := fw.Write(req.Data); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	httpReq, err := c.newRequest(ctx, http.MethodPost, "/api/assets", &body)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	var result UploadResult
	if err := c.do(httpReq, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

type listResponse struct {
	Assets []models.RemoteAssetSummary `json:"assets"`
}

func (c *HTTPClient) ListUploadedByThisClient(ctx context.Context) ([]models.RemoteAssetSummary, error) {
	path := "/api/assets?deviceId=" + url.QueryEscape(c.deviceID)
	req, err := c.newRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Assets, nil
}

func (c *HTTPClient) Delete(ctx context.Context, remoteIDs []string) error {
	payload, err := json.Marshal(map[string][]string{"ids": remoteIDs})
	if err != nil {
		return fmt.Errorf("marshal delete request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodDelete, "/api/assets", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, nil)
}

type checkExistingResponse struct {
	Existing map[string]string `json:"existing"`
}

func (c *HTTPClient) CheckExisting(ctx context.Context, hashes []string) (map[string]string, error) {
	payload, err := json.Marshal(map[string][]string{"checksums": hashes})
	if err != nil {
		return nil, fmt.Errorf("marshal check-existing request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/assets/exist", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp checkExistingResponse
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	if resp.Existing == nil {
		resp.Existing = map[string]string{}
	}
	return resp.Existing, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/ping", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set(common.APIKeyHeaderName, c.apiKey)
	req.Header.Set(common.DeviceIDHeaderName, c.deviceID)
	return req, nil
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: check the stored API key", common.ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
