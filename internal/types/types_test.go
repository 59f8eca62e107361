package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeHandle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice", "@alice"},
		{"@alice", "@alice"},
		{"  @@alice ", "@alice"},
		{"@", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHandle(tt.in), "NormalizeHandle(%q)", tt.in)
	}
	assert.Equal(t, "alice", Username("@alice"))
}

func TestCanTransition(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusPending, StatusPending}:   true,
		{StatusPending, StatusApproved}:  true,
		{StatusPending, StatusSkipped}:   true,
		{StatusPending, StatusExecuted}:  true,
		{StatusApproved, StatusApproved}: true,
		{StatusApproved, StatusSkipped}:  true,
		{StatusApproved, StatusExecuted}: true,
		{StatusSkipped, StatusSkipped}:   true,
		{StatusExecuted, StatusExecuted}: true,
	}
	all := []Status{StatusPending, StatusApproved, StatusSkipped, StatusExecuted}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.False(t, CanTransition(Status("bogus"), StatusPending))
}

func TestPatchApplyBumpsUpdatedAt(t *testing.T) {
	created := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	pr := Proposal{ID: "p1", ReplyText: "hi", Status: StatusPending, CreatedAt: created, UpdatedAt: created}

	// A clock that has not advanced still yields a strictly later stamp.
	got := TextPatch("edited").Apply(pr, created)
	require.Equal(t, "edited", got.ReplyText)
	require.Equal(t, StatusPending, got.Status)
	require.True(t, got.UpdatedAt.After(got.CreatedAt))
	require.Equal(t, created, got.CreatedAt)

	later := created.Add(time.Minute)
	got = StatusPatch(StatusSkipped).Apply(got, later)
	require.Equal(t, StatusSkipped, got.Status)
	require.Equal(t, later, got.UpdatedAt)
}

func TestPatchValidate(t *testing.T) {
	require.NoError(t, Patch{}.Validate())
	require.True(t, Patch{}.Empty())
	require.NoError(t, StatusPatch(StatusApproved).Validate())
	require.Error(t, StatusPatch(Status("done")).Validate())
}
