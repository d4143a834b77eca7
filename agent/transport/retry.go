package transport

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

const DefaultBackoff = 2 * time.Second

var errEmptyOutput = errors.New("empty output")

var (
	_ Transport = (*Retrying)(nil)
	_ Resetter  = (*Retrying)(nil)
)

// Retrying retries a failed or empty call once after Backoff. When both
// attempts fail the error is returned as a warning reply, not as an error.
type Retrying struct {
	Next    Transport
	Backoff time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewRetrying(next Transport, backoff time.Duration) *Retrying {
	if backoff <= 0 {
		backoff = DefaultBackoff
	}
	return &Retrying{Next: next, Backoff: backoff, sleep: sleepContext}
}

func (r *Retrying) Invoke(ctx context.Context, req Request) (contractx.AskResponse, error) {
	resp, err := r.attempt(ctx, req)
	if err == nil {
		return resp, nil
	}
	log.Warn().Err(err).Str("agent", string(req.Agent)).Dur("backoff", r.Backoff).Msg("agent call failed, retrying")

	sleep := r.sleep
	if sleep == nil {
		sleep = sleepContext
	}
	if serr := sleep(ctx, r.Backoff); serr != nil {
		return failure(req.Agent, serr), nil
	}

	resp, err = r.attempt(ctx, req)
	if err != nil {
		log.Error().Err(err).Str("agent", string(req.Agent)).Msg("agent call failed after retry")
		return failure(req.Agent, err), nil
	}
	return resp, nil
}

func (r *Retrying) attempt(ctx context.Context, req Request) (contractx.AskResponse, error) {
	resp, err := r.Next.Invoke(ctx, req)
	if err != nil {
		return contractx.AskResponse{}, err
	}
	if strings.TrimSpace(resp.Reply) == "" {
		return contractx.AskResponse{}, fmt.Errorf("%w: %w", contractx.ErrTransport, errEmptyOutput)
	}
	return resp, nil
}

func (r *Retrying) Reset(ctx context.Context, sessionID string, agent contractx.AgentKey) error {
	if rs, ok := r.Next.(Resetter); ok {
		return rs.Reset(ctx, sessionID, agent)
	}
	return nil
}

func failure(agent contractx.AgentKey, err error) contractx.AskResponse {
	return contractx.AskResponse{
		Agent:  agent,
		Reply:  fmt.Sprintf("%s %s error: %v", contractx.WarningGlyph, strings.ToUpper(string(agent)), err),
		Failed: true,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
