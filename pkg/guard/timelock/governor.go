package timelock

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"bastion-hq/bastion/pkg/clock"
)

// Governor tracks timelocked proposals keyed by operation hash.
type Governor struct {
	clock  clock.Clock
	config Config

	mu        sync.RWMutex
	proposals map[string]*Proposal
}

// NewGovernor creates a governor with the given bounds. The config
// must have been validated at setup time.
func NewGovernor(clk clock.Clock, cfg Config) *Governor {
	if clk == nil {
		clk = clock.NewSystem()
	}
	return &Governor{
		clock:     clk,
		config:    cfg,
		proposals: make(map[string]*Proposal),
	}
}

// Propose registers a new timelocked operation.
//
// The delay must fall within [MinDelay, MaxDelay]. A hash with a live
// proposal (not yet executed, execution window not yet closed) cannot
// be re-proposed; an executed or expired proposal is replaced by a
// fresh record.
func (g *Governor) Propose(operationHash string, delay time.Duration, description, proposer string) (*Proposal, error) {
	if delay < g.config.MinDelay || delay > g.config.MaxDelay {
		return nil, fmt.Errorf("%w: %v not in [%v, %v]",
			ErrInvalidDelay, delay, g.config.MinDelay, g.config.MaxDelay)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clock.Now()
	if existing, ok := g.proposals[operationHash]; ok {
		if g.live(existing, now) {
			return nil, fmt.Errorf("%w: %s", ErrAlreadyProposed, operationHash)
		}
	}

	p := &Proposal{
		ID:            uuid.NewString(),
		OperationHash: operationHash,
		Description:   description,
		ProposedBy:    proposer,
		ProposalTime:  now,
		ExecutionTime: now.Add(delay),
	}
	g.proposals[operationHash] = p
	return p, nil
}

// Execute marks a proposal executed.
//
// It fails with ErrNotReady before ExecutionTime, ErrExpired after
// ExecutionTime+ExecutionWindow, and ErrAlreadyExecuted on a repeat
// call. The boundary instants are inclusive: execution at exactly
// ExecutionTime and at exactly the window end both succeed.
func (g *Governor) Execute(operationHash string) (*Proposal, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	p, ok := g.proposals[operationHash]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProposal, operationHash)
	}
	if p.Executed {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExecuted, operationHash)
	}

	now := g.clock.Now()
	if now.Before(p.ExecutionTime) {
		return nil, fmt.Errorf("%w: executable in %v",
			ErrNotReady, p.ExecutionTime.Sub(now))
	}
	if now.After(p.ExecutionTime.Add(g.config.ExecutionWindow)) {
		return nil, fmt.Errorf("%w: window closed at %v",
			ErrExpired, p.ExecutionTime.Add(g.config.ExecutionWindow))
	}

	p.Executed = true
	p.ExecutedAt = now
	cp := *p
	return &cp, nil
}

// Get returns a copy of the proposal for a hash, or nil if unknown.
func (g *Governor) Get(operationHash string) *Proposal {
	g.mu.RLock()
	defer g.mu.RUnlock()

	p, ok := g.proposals[operationHash]
	if !ok {
		return nil
	}
	cp := *p
	return &cp
}

// Pending returns copies of all live proposals: not executed and
// still inside (or ahead of) their execution window.
func (g *Governor) Pending() []*Proposal {
	g.mu.RLock()
	defer g.mu.RUnlock()

	now := g.clock.Now()
	var pending []*Proposal
	for _, p := range g.proposals {
		if g.live(p, now) {
			cp := *p
			pending = append(pending, &cp)
		}
	}
	return pending
}

// Restore installs a previously stored proposal, replacing any
// existing record under the same hash. Used at startup so pending
// proposals survive restarts.
func (g *Governor) Restore(p *Proposal) {
	if p == nil {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := *p
	g.proposals[p.OperationHash] = &cp
}

// live reports whether a proposal still blocks re-proposal: it has
// not been executed and its execution window has not closed.
func (g *Governor) live(p *Proposal, now time.Time) bool {
	if p.Executed {
		return false
	}
	return !now.After(p.ExecutionTime.Add(g.config.ExecutionWindow))
}
