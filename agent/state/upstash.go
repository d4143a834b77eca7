package state

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
)

const (
	DefaultKeyPrefix = "sentinel:session:"
	DefaultTTL       = 24 * time.Hour

	maxUpstashReply = 2 << 20
)

var ErrUpstash = errors.New("upstash request failed")

// UpstashConfig is decoded with the UPSTASH_REDIS prefix.
type UpstashConfig struct {
	URL       string        `required:"true"`
	Token     string        `required:"true"`
	Timeout   time.Duration `default:"10s"`
	KeyPrefix string        `split_words:"true" default:"sentinel:session:"`
	TTL       time.Duration `default:"24h"`
}

// UpstashStore keeps one JSON document per session under <prefix><id>,
// talking to the Upstash REST endpoint. A zero TTL keeps keys forever.
type UpstashStore struct {
	endpoint string
	token    string
	prefix   string
	ttl      time.Duration
	client   *http.Client
}

// NewUpstashStore validates cfg. A nil client gets one with cfg.Timeout.
func NewUpstashStore(cfg UpstashConfig, client *http.Client) (*UpstashStore, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, fmt.Errorf("%w: invalid url %q: %v", ErrUpstash, cfg.URL, err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, fmt.Errorf("%w: token is required", ErrUpstash)
	}
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("%w: negative ttl %s", ErrUpstash, cfg.TTL)
	}

	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}

	return &UpstashStore{
		endpoint: endpoint,
		token:    token,
		prefix:   prefix,
		ttl:      cfg.TTL,
		client:   client,
	}, nil
}

func (s *UpstashStore) Load(ctx context.Context, sessionID string) (*SessionState, error) {
	key, err := s.key(sessionID)
	if err != nil {
		return nil, err
	}

	result, err := s.do(ctx, "GET", key)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 || bytes.Equal(result, []byte("null")) {
		return nil, ErrStateNotFound
	}

	// GET returns the stored document as a JSON string.
	var doc string
	if err := json.Unmarshal(result, &doc); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", sessionID, err)
	}
	var st SessionState
	if err := json.Unmarshal([]byte(doc), &st); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", sessionID, err)
	}

	st.EnsureThreads()
	if err := st.Validate(); err != nil {
		return nil, fmt.Errorf("session %s loaded from upstash: %w", sessionID, err)
	}
	return &st, nil
}

func (s *UpstashStore) Save(ctx context.Context, st *SessionState) error {
	if err := prepareSave(st); err != nil {
		return err
	}
	key, err := s.key(st.SessionID)
	if err != nil {
		return err
	}

	doc, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", st.SessionID, err)
	}

	args := []any{"SET", key, string(doc)}
	if s.ttl > 0 {
		args = append(args, "EX", expirySeconds(s.ttl))
	}
	_, err = s.do(ctx, args...)
	return err
}

func (s *UpstashStore) Delete(ctx context.Context, sessionID string) error {
	key, err := s.key(sessionID)
	if err != nil {
		return err
	}
	_, err = s.do(ctx, "DEL", key)
	return err
}

func (s *UpstashStore) key(sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return "", ErrInvalidSession
	}
	prefix := s.prefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return prefix + id, nil
}

// do sends one Redis command as a JSON array and returns its raw result.
func (s *UpstashStore) do(ctx context.Context, args ...any) (json.RawMessage, error) {
	body, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %v: %v", ErrUpstash, args[0], err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstash, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v %v", ErrUpstash, args[0], err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstashReply))
	if err != nil {
		return nil, fmt.Errorf("%w: read reply: %v", ErrUpstash, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("%w: %v status=%d body=%s", ErrUpstash, args[0], resp.StatusCode, raw)
	}

	var reply struct {
		Result json.RawMessage `json:"result"`
		Error  string          `json:"error"`
	}
	if err := json.Unmarshal(raw, &reply); err != nil {
		return nil, fmt.Errorf("%w: decode reply: %v", ErrUpstash, err)
	}
	if reply.Error != "" {
		return nil, fmt.Errorf("%w: %v: %s", ErrUpstash, args[0], reply.Error)
	}
	return bytes.TrimSpace(reply.Result), nil
}

// expirySeconds rounds ttl up to whole seconds, never below one.
func expirySeconds(ttl time.Duration) int64 {
	secs := int64((ttl + time.Second - 1) / time.Second)
	if secs < 1 {
		return 1
	}
	return secs
}
