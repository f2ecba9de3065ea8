package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-core/internal/domain/attendance"
)

// DeviceKeyHeader carries the shared secret that authenticates a bridge.
const DeviceKeyHeader = "X-Device-Key"

const scanPath = "/api/v1/scans"

var ErrNoEndpoints = errors.New("bridge: no endpoints configured")

// SessionConfig configures a Session.
type SessionConfig struct {
	Endpoints      []string
	DeviceKey      string
	ReaderID       string
	MaxAttempts    int
	RequestTimeout time.Duration
	Client         *http.Client
}

// Session owns the connection state of one bridge: the ordered endpoint list
// and the endpoint currently in use. A failed attempt moves the pointer to the
// next endpoint, wrapping around, until MaxAttempts is reached.
type Session struct {
	endpoints   []string
	deviceKey   string
	readerID    string
	maxAttempts int
	timeout     time.Duration
	client      *http.Client

	mu      sync.Mutex
	current int
}

func NewSession(cfg SessionConfig) (*Session, error) {
	if len(cfg.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	endpoints := make([]string, 0, len(cfg.Endpoints))
	for _, e := range cfg.Endpoints {
		e = strings.TrimRight(strings.TrimSpace(e), "/")
		if e != "" {
			endpoints = append(endpoints, e)
		}
	}
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = len(endpoints)
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Session{
		endpoints:   endpoints,
		deviceKey:   cfg.DeviceKey,
		readerID:    cfg.ReaderID,
		maxAttempts: maxAttempts,
		timeout:     timeout,
		client:      client,
	}, nil
}

// Endpoint returns the endpoint the next attempt will use.
func (s *Session) Endpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoints[s.current]
}

func (s *Session) advance(from string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Another scan may already have moved on.
	if s.endpoints[s.current] == from {
		s.current = (s.current + 1) % len(s.endpoints)
	}
}

type scanPayload struct {
	UID       string `json:"uid"`
	ScannedAt string `json:"scanned_at"`
}

type scanEnvelope struct {
	Data struct {
		Token string `json:"token"`
	} `json:"data"`
}

// errRetryable marks a failure that should be retried on the next endpoint.
type errRetryable struct {
	err error
}

func (e errRetryable) Error() string { return e.err.Error() }
func (e errRetryable) Unwrap() error { return e.err }

// Submit sends one scan to the core and returns the status token it answered
// with. When every attempt fails the token is ERROR:SYSTEM:Try_Again and the
// last error is returned alongside it.
func (s *Session) Submit(ctx context.Context, uid string, scannedAt time.Time) (string, error) {
	body, err := json.Marshal(scanPayload{
		UID:       uid,
		ScannedAt: scannedAt.In(attendance.Location).Format(time.RFC3339),
	})
	if err != nil {
		return attendance.TokenSystemError, fmt.Errorf("encode scan: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attendance.TokenSystemError, err
		}

		endpoint := s.Endpoint()
		token, err := s.post(ctx, endpoint, body)
		if err == nil {
			return token, nil
		}

		lastErr = err
		var retryable errRetryable
		if !errors.As(err, &retryable) {
			return attendance.TokenSystemError, err
		}

		slog.Warn("Bridge: endpoint failed, switching",
			"endpoint", endpoint,
			"attempt", attempt,
			"max_attempts", s.maxAttempts,
			"error", err,
		)
		s.advance(endpoint)
	}

	return attendance.TokenSystemError, fmt.Errorf("all %d attempts failed: %w", s.maxAttempts, lastErr)
}

func (s *Session) post(ctx context.Context, endpoint string, body []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+scanPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(DeviceKeyHeader, s.deviceKey)
	if s.readerID != "" {
		req.Header.Set("X-Reader-ID", s.readerID)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errRetryable{err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", errRetryable{err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return "", errRetryable{err: fmt.Errorf("server answered %d", resp.StatusCode)}
	}

	var envelope scanEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil || envelope.Data.Token == "" {
		return "", fmt.Errorf("response %d carried no status token", resp.StatusCode)
	}
	return envelope.Data.Token, nil
}
