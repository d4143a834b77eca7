package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	handoffx "github.com/tanpawarit/sentinel-orchestrator/agent/handoff"
	promptx "github.com/tanpawarit/sentinel-orchestrator/agent/prompt"
)

const (
	DefaultTimeout   = 90 * time.Second
	DefaultWaitDelay = 2 * time.Second
	stderrTailCap    = 400
)

var _ Transport = (*Subprocess)(nil)

// Subprocess runs `<Path> [Args...] ask <agent> <text>` once per call. Every
// call starts a fresh process, so no memory carries over between calls.
type Subprocess struct {
	Path string
	// Args are placed before the ask subcommand, e.g. an --env flag.
	Args []string
	// Env replaces the child environment when non-nil.
	Env       []string
	Timeout   time.Duration
	WaitDelay time.Duration
}

// NewSubprocess re-executes the running binary.
func NewSubprocess(timeout time.Duration, args ...string) (*Subprocess, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("%w: locate executable: %v", contractx.ErrTransport, err)
	}
	return &Subprocess{Path: exe, Args: args, Timeout: timeout}, nil
}

func (s *Subprocess) Invoke(ctx context.Context, req Request) (contractx.AskResponse, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	waitDelay := s.WaitDelay
	if waitDelay <= 0 {
		waitDelay = DefaultWaitDelay
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// "--" keeps questions that start with a dash from being read as flags.
	args := append(append([]string(nil), s.Args...), "ask", "--", string(req.Agent), promptx.SanitizeArg(req.Text))
	cmd := exec.CommandContext(ctx, s.Path, args...)
	cmd.WaitDelay = waitDelay
	if s.Env != nil {
		cmd.Env = s.Env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	log.Debug().
		Str("agent", string(req.Agent)).
		Dur("elapsed", time.Since(started)).
		Int("stdout_bytes", stdout.Len()).
		Msg("subprocess finished")

	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return contractx.AskResponse{}, fmt.Errorf("%w: timed out after %s", contractx.ErrTransport, timeout)
	}
	if err != nil {
		return contractx.AskResponse{}, fmt.Errorf("%w: %v: %s", contractx.ErrTransport, err, tail(stderr.String()))
	}
	if !utf8.Valid(stdout.Bytes()) {
		return contractx.AskResponse{}, fmt.Errorf("%w: output is not valid UTF-8", contractx.ErrTransport)
	}

	return ParseOutput(req.Agent, stdout.String()), nil
}

// ParseOutput splits ask's stdout into the reply and the hand-off printed on
// the final line. Output without that line is parsed as a bare reply.
func ParseOutput(agent contractx.AgentKey, out string) contractx.AskResponse {
	out = strings.TrimRight(out, "\r\n")
	resp := contractx.AskResponse{Agent: agent}

	reply := out
	if idx := strings.LastIndex(out, "\n"); idx >= 0 {
		var h contractx.Handoff
		last := strings.TrimSpace(out[idx+1:])
		if strings.HasPrefix(last, "{") && json.Unmarshal([]byte(last), &h) == nil {
			reply = strings.TrimSpace(out[:idx])
			resp.Handoff = h
			_, resp.Parsed = handoffx.ExtractHandoff(reply)
		} else {
			resp.Handoff, resp.Parsed = handoffx.ExtractHandoff(reply)
		}
	} else {
		resp.Handoff, resp.Parsed = handoffx.ExtractHandoff(reply)
	}

	resp.Reply = strings.TrimSpace(reply)
	resp.Failed = strings.HasPrefix(resp.Reply, contractx.WarningGlyph)
	return resp
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if r := []rune(s); len(r) > stderrTailCap {
		return "..." + string(r[len(r)-stderrTailCap:])
	}
	return s
}
