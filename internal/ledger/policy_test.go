package ledger

import (
	"errors"
	"testing"
)

func TestNewRoundRobin_NoNodes(t *testing.T) {
	if _, err := NewRoundRobin(nil, 1); err == nil {
		t.Error("expected error for empty node list")
	}
}

func TestRoundRobin_Pick(t *testing.T) {
	p, err := NewRoundRobin([]string{"a", "b", "c"}, 3)
	if err != nil {
		t.Fatalf("NewRoundRobin() error: %v", err)
	}

	want := []string{"a", "b", "c", "a"}
	for attempt, w := range want {
		got, ok := p.Pick(attempt)
		if !ok || got != w {
			t.Errorf("Pick(%d) = %q, %v; want %q", attempt, got, ok, w)
		}
		p.Report(got, errors.New("down"))
	}
	if _, ok := p.Pick(4); ok {
		t.Error("Pick past retries should give up")
	}
}

func TestRoundRobin_Report(t *testing.T) {
	p, _ := NewRoundRobin([]string{"a", "b", "c"}, 2)

	p.Report("a", errors.New("down"))
	if p.Current() != "b" {
		t.Errorf("Current() = %q, want b", p.Current())
	}
	if got, _ := p.Pick(0); got != "b" {
		t.Errorf("Pick(0) = %q, want b", got)
	}

	p.Report("c", errors.New("down"))
	if p.Current() != "a" {
		t.Errorf("Current() = %q, want a (wrap)", p.Current())
	}

	p.Report("b", nil)
	if p.Current() != "b" {
		t.Errorf("Current() = %q, want b", p.Current())
	}

	p.Report("unknown", errors.New("down"))
	if p.Current() != "b" {
		t.Error("unknown node should not move the policy")
	}
}

func TestRoundRobin_NegativeRetries(t *testing.T) {
	p, _ := NewRoundRobin([]string{"a"}, -5)
	if _, ok := p.Pick(0); !ok {
		t.Error("first attempt should always be allowed")
	}
	if _, ok := p.Pick(1); ok {
		t.Error("no retries expected")
	}
}
