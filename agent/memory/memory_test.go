package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

func turn(role contractx.Role, content string) contractx.Turn {
	return contractx.Turn{Role: role, Content: content}
}

func appendPairs(t *testing.T, s *Store, session string, agent contractx.AgentKey, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= n; i++ {
		q := turn(contractx.RoleUser, fmt.Sprintf("q%d", i))
		a := turn(contractx.RoleAssistant, fmt.Sprintf("a%d", i))
		if err := s.Append(ctx, session, agent, q, a); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
}

func TestRecentReturnsLatestInOrder(t *testing.T) {
	t.Parallel()

	s := New(0)
	appendPairs(t, s, "s1", contractx.AgentStrata, 2)

	got, err := s.Recent(context.Background(), "s1", contractx.AgentStrata, 4)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 4 || got[0].Content != "q1" || got[3].Content != "a2" {
		t.Fatalf("unexpected recent turns: %#v", got)
	}
}

func TestRecentKeepsWholePairs(t *testing.T) {
	t.Parallel()

	s := New(0)
	appendPairs(t, s, "s", contractx.AgentNeo, 4)
	ctx := context.Background()

	cases := []struct {
		limit int
		want  []string
	}{
		{limit: 5, want: []string{"q3", "a3", "q4", "a4"}},
		{limit: 3, want: []string{"q4", "a4"}},
		{limit: 1, want: nil},
	}
	for _, tc := range cases {
		got, err := s.Recent(ctx, "s", contractx.AgentNeo, tc.limit)
		if err != nil {
			t.Fatalf("Recent(%d) error = %v", tc.limit, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("Recent(%d) returned %d turns: %#v", tc.limit, len(got), got)
		}
		for i, w := range tc.want {
			if got[i].Content != w {
				t.Fatalf("Recent(%d)[%d] = %q, want %q", tc.limit, i, got[i].Content, w)
			}
		}
		if len(got) > 0 && got[0].Role != contractx.RoleUser {
			t.Fatalf("Recent(%d) opens on %s", tc.limit, got[0].Role)
		}
	}
}

func TestRecentSkipsLeadingReply(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(0)
	_ = s.Append(ctx, "s", contractx.AgentCipher,
		turn(contractx.RoleUser, "q1"),
		turn(contractx.RoleAssistant, "a1"),
		turn(contractx.RoleAssistant, "a1 continued"),
		turn(contractx.RoleUser, "q2"),
		turn(contractx.RoleAssistant, "a2"),
	)

	got, _ := s.Recent(ctx, "s", contractx.AgentCipher, 4)
	if len(got) != 2 || got[0].Content != "q2" {
		t.Fatalf("unexpected window %#v", got)
	}
}

func TestSessionsAndAgentsAreIsolated(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(10)
	_ = s.Append(ctx, "s1", contractx.AgentStrata, turn(contractx.RoleUser, "private"))

	if got, _ := s.Recent(ctx, "s2", contractx.AgentStrata, 10); len(got) != 0 {
		t.Fatalf("other session must not see turns: %#v", got)
	}
	if got, _ := s.Recent(ctx, "s1", contractx.AgentNeo, 10); len(got) != 0 {
		t.Fatalf("other agent must not see turns: %#v", got)
	}
}

func TestAppendBoundsThread(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(2)
	_ = s.Append(ctx, "s", contractx.AgentNeo,
		turn(contractx.RoleUser, "1"), turn(contractx.RoleAssistant, "2"),
		turn(contractx.RoleUser, "3"), turn(contractx.RoleAssistant, "4"))

	got, _ := s.Recent(ctx, "s", contractx.AgentNeo, 10)
	if len(got) != 2 || got[0].Content != "3" {
		t.Fatalf("unexpected bounded thread: %#v", got)
	}
}

func TestReset(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(10)
	_ = s.Append(ctx, "s", contractx.AgentNeo, turn(contractx.RoleUser, "n"))
	_ = s.Append(ctx, "s", contractx.AgentCipher, turn(contractx.RoleUser, "c"))
	_ = s.Append(ctx, "other", contractx.AgentCipher, turn(contractx.RoleUser, "keep"))

	if err := s.Reset(ctx, "s", contractx.AgentNeo); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if got, _ := s.Recent(ctx, "s", contractx.AgentNeo, 10); len(got) != 0 {
		t.Fatalf("neo memory must be cleared: %#v", got)
	}
	if got, _ := s.Recent(ctx, "s", contractx.AgentCipher, 10); len(got) != 1 {
		t.Fatalf("cipher memory must survive single-agent reset: %#v", got)
	}

	_ = s.Reset(ctx, "s", "")
	if got, _ := s.Recent(ctx, "s", contractx.AgentCipher, 10); len(got) != 0 {
		t.Fatalf("session reset must clear all agents: %#v", got)
	}
	if got, _ := s.Recent(ctx, "other", contractx.AgentCipher, 10); len(got) != 1 {
		t.Fatalf("session reset must not touch other sessions: %#v", got)
	}
}

func TestConcurrentAppend(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New(1000)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.Append(ctx, "s", contractx.AgentStrata, turn(contractx.RoleUser, "x"))
		}()
	}
	wg.Wait()

	if got, _ := s.Recent(ctx, "s", contractx.AgentStrata, 1000); len(got) != 20 {
		t.Fatalf("expected 20 turns, got %d", len(got))
	}
}
