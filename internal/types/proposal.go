package types

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a Proposal.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusSkipped  Status = "skipped"
	StatusExecuted Status = "executed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusSkipped, StatusExecuted:
		return true
	}
	return false
}

// Terminal reports whether no further transitions leave s.
func (s Status) Terminal() bool {
	return s == StatusSkipped || s == StatusExecuted
}

// transitions enumerates the legal status changes. Same-state writes are
// listed explicitly so that idempotent updates pass the guard.
var transitions = map[Status][]Status{
	StatusPending:  {StatusPending, StatusApproved, StatusSkipped, StatusExecuted},
	StatusApproved: {StatusApproved, StatusSkipped, StatusExecuted},
	StatusSkipped:  {StatusSkipped},
	StatusExecuted: {StatusExecuted},
}

// CanTransition reports whether a proposal in state from may move to state to.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Proposal wraps one Post with a drafted reply and a lifecycle status.
// ID and CreatedAt never change after creation; UpdatedAt moves on every mutation.
type Proposal struct {
	ID        string    `json:"id"`
	Post      Post      `json:"post"`
	ReplyText string    `json:"replyText"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Patch carries the operator-editable fields of a Proposal. Nil fields are
// left untouched.
type Patch struct {
	ReplyText *string `json:"replyText,omitempty"`
	Status    *Status `json:"status,omitempty"`
}

// Empty reports whether the patch changes nothing but the update timestamp.
func (p Patch) Empty() bool {
	return p.ReplyText == nil && p.Status == nil
}

// Validate rejects unknown status values.
func (p Patch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("unknown status %q", *p.Status)
	}
	return nil
}

// Apply merges the patch into a copy of pr and stamps UpdatedAt. The status
// guard is the caller's concern.
func (p Patch) Apply(pr Proposal, now time.Time) Proposal {
	if p.ReplyText != nil {
		pr.ReplyText = *p.ReplyText
	}
	if p.Status != nil {
		pr.Status = *p.Status
	}
	if !now.After(pr.UpdatedAt) {
		now = pr.UpdatedAt.Add(time.Nanosecond)
	}
	pr.UpdatedAt = now
	return pr
}

// StatusPatch is shorthand for a patch that only moves the status.
func StatusPatch(s Status) Patch {
	return Patch{Status: &s}
}

// TextPatch is shorthand for a patch that only edits the reply text.
func TextPatch(text string) Patch {
	return Patch{ReplyText: &text}
}
