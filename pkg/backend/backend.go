package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/Dispatch-AI-com/AI/agent/contract"
)

const maxErrorBodyBytes = 4 << 10

type Config struct {
	URL     string        `split_words:"true" required:"true"`
	Token   string        `split_words:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

// Client posts permanent call-log entries to the dispatch backend.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var _ contractx.CallLogBackend = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("backend url is required")
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	return client, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// CreateCallLog posts the entry to the internal calllogs endpoint. Anything
// other than 201 is an error; the caller decides whether that is fatal.
func (c *Client) CreateCallLog(ctx context.Context, entry contractx.CallLogEntry) error {
	if strings.TrimSpace(entry.CallID) == "" {
		return errors.New("call id is required")
	}
	if strings.TrimSpace(entry.OwnerID) == "" {
		return errors.New("owner id is required")
	}

	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal call log entry: %w", err)
	}

	endpoint := fmt.Sprintf("%s/internal/users/%s/calllogs", c.baseURL, url.PathEscape(entry.OwnerID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build call log request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute call log request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("call log backend status=%d body=%s", resp.StatusCode, string(raw))
	}

	return nil
}
