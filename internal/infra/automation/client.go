package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/vietddude/sifter/internal/core/domain"
)

// HTTPDialer opens sessions against the browser-automation service over
// HTTP JSON.
type HTTPDialer struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPDialer creates a dialer for the automation service.
func NewHTTPDialer(baseURL string, timeout time.Duration) *HTTPDialer {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPDialer{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Open logs in and returns an exclusive session.
func (d *HTTPDialer) Open(ctx context.Context, creds domain.Credentials) (Session, error) {
	var resp struct {
		SessionID string `json:"session_id"`
	}
	body := map[string]string{
		"username": creds.Username,
		"password": creds.Password,
	}
	if err := d.do(ctx, http.MethodPost, d.baseURL+"/sessions", body, &resp); err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	if resp.SessionID == "" {
		return nil, fmt.Errorf("automation service returned empty session id")
	}
	return &httpSession{dialer: d, id: resp.SessionID}, nil
}

func (d *HTTPDialer) do(ctx context.Context, method, url string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// httpSession is one logged-in automation session.
type httpSession struct {
	dialer *HTTPDialer
	id     string

	closeOnce sync.Once
	closeErr  error
}

func (s *httpSession) FetchPage(ctx context.Context, page int) ([]string, error) {
	var resp struct {
		Items []string `json:"items"`
	}
	url := fmt.Sprintf("%s/sessions/%s/pages/%d", s.dialer.baseURL, s.id, page)
	if err := s.dialer.do(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch page %d: %w", page, err)
	}
	return resp.Items, nil
}

func (s *httpSession) Classify(ctx context.Context, item string) (bool, error) {
	var resp struct {
		Match bool `json:"match"`
	}
	url := fmt.Sprintf("%s/sessions/%s/classify", s.dialer.baseURL, s.id)
	if err := s.dialer.do(ctx, http.MethodPost, url, map[string]string{"item": item}, &resp); err != nil {
		return false, fmt.Errorf("failed to classify item: %w", err)
	}
	return resp.Match, nil
}

// Close releases the session. Safe to call more than once; the loop closes
// before a healing handoff and again on its deferred cleanup.
func (s *httpSession) Close() error {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		url := fmt.Sprintf("%s/sessions/%s", s.dialer.baseURL, s.id)
		s.closeErr = s.dialer.do(ctx, http.MethodDelete, url, nil, nil)
	})
	return s.closeErr
}
