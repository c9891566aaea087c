// Package lifecycle holds the pure rules of the service request state
// machine. Guards are pure functions over identity and request data; they
// evaluate preconditions without touching storage.
package lifecycle

import (
	"fmt"

	"fieldops/internal/model"
)

// GuardResult represents the outcome of a guard evaluation.
type GuardResult struct {
	Allowed bool
	Reason  string
}

// Error converts the guard result to an error if not allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return fmt.Errorf("%s", r.Reason)
}

func allow() GuardResult { return GuardResult{Allowed: true} }

func deny(format string, args ...any) GuardResult {
	return GuardResult{Allowed: false, Reason: fmt.Sprintf(format, args...)}
}

var transitions = map[model.Status][]model.Status{
	model.StatusPending:    {model.StatusAssigned, model.StatusInProgress},
	model.StatusAssigned:   {model.StatusInProgress},
	model.StatusInProgress: {model.StatusCompleted},
	model.StatusCompleted:  {},
}

// Successors returns the statuses reachable from s in one step.
func Successors(s model.Status) []model.Status {
	next := transitions[s]
	out := make([]model.Status, len(next))
	copy(out, next)
	return out
}

// IsLegal reports whether from -> to is in the transition table.
func IsLegal(from, to model.Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// TransitionContext provides context for status update guards.
type TransitionContext struct {
	RequestID  int64
	From       model.Status
	To         model.Status
	HasProofs  bool
	IsAssigned bool
}

// IsProofOnly reports whether the update keeps the status and only appends proofs.
func (c TransitionContext) IsProofOnly() bool {
	return c.From == c.To && c.HasProofs && c.From != model.StatusCompleted
}

// CanTransition evaluates the transition table for a guarded status update.
// Rules:
// - To must be a legal successor of From
// - A same-status update is allowed on a non-terminal request when it carries proofs
func CanTransition(ctx TransitionContext) GuardResult {
	if ctx.IsProofOnly() || IsLegal(ctx.From, ctx.To) {
		return allow()
	}
	return deny("invalid status transition from %s to %s", ctx.From, ctx.To)
}

// CanEnterStatus evaluates the assignee rule for any status write.
// Rules:
// - Every status other than PENDING requires an assigned field worker
func CanEnterStatus(ctx TransitionContext) GuardResult {
	if ctx.To != model.StatusPending && !ctx.IsAssigned {
		return deny("request %d has no assigned field worker and cannot move to %s", ctx.RequestID, ctx.To)
	}
	return allow()
}
