package ledger

import (
	"errors"
	"sync"
)

// Policy decides which node serves each attempt of a call.
type Policy interface {
	// Pick returns the node for the given zero-based attempt of one call,
	// or false when the call should give up.
	Pick(attempt int) (string, bool)
	// Report records the outcome of an attempt against node.
	Report(node string, err error)
}

// RoundRobin sends every attempt to the current node and moves to the next
// node in order after a transport failure.
type RoundRobin struct {
	mu      sync.Mutex
	nodes   []string
	retries int
	current int
}

// NewRoundRobin creates a policy over nodes allowing retries extra attempts
// per call.
func NewRoundRobin(nodes []string, retries int) (*RoundRobin, error) {
	if len(nodes) == 0 {
		return nil, errors.New("at least one node is required")
	}
	if retries < 0 {
		retries = 0
	}
	return &RoundRobin{
		nodes:   append([]string(nil), nodes...),
		retries: retries,
	}, nil
}

// Pick implements Policy.
func (r *RoundRobin) Pick(attempt int) (string, bool) {
	if attempt > r.retries {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nodes[r.current], true
}

// Report implements Policy.
func (r *RoundRobin) Report(node string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, n := range r.nodes {
		if n != node {
			continue
		}
		if err != nil {
			r.current = (i + 1) % len(r.nodes)
		} else {
			r.current = i
		}
		return
	}
}

// Current returns the node the next call starts on.
func (r *RoundRobin) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.nodes[r.current]
}
