package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from EntryStatus
		to   EntryStatus
		want bool
	}{
		{StatusDraft, StatusPending, true},
		{StatusPending, StatusDraft, true},
		{StatusPending, StatusApproved, true},
		{StatusPending, StatusRejected, true},
		{StatusRejected, StatusDraft, true},
		{StatusApproved, StatusPending, true},
		{StatusApproved, StatusProcessed, true},

		{StatusDraft, StatusApproved, false},
		{StatusDraft, StatusRejected, false},
		{StatusRejected, StatusPending, false},
		{StatusRejected, StatusApproved, false},
		{StatusApproved, StatusDraft, false},
		{StatusProcessed, StatusApproved, false},
		{StatusProcessed, StatusPending, false},
		{StatusProcessed, StatusDraft, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.from.CanTransition(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusProcessed.Terminal())
	for _, s := range []EntryStatus{StatusDraft, StatusPending, StatusApproved, StatusRejected} {
		assert.False(t, s.Terminal(), "%s must not be terminal", s)
	}
}

func TestEntryHours(t *testing.T) {
	entry := &TimeEntry{RegularHours: 7, OvertimeHours: 2, PTOHours: 1, UnpaidHours: 0.5}
	assert.Equal(t, 10.5, entry.TotalHours())
	assert.Equal(t, 9.0, entry.WorkedHours())
}

func TestEntryUpdateFields(t *testing.T) {
	hours := 6.0
	notes := "shortened day"
	update := &EntryUpdate{RegularHours: &hours, Notes: &notes}
	assert.ElementsMatch(t, []string{"regular_hours", "notes"}, update.Fields())

	entry := &TimeEntry{RegularHours: 8, Notes: "old"}
	update.ApplyTo(entry)
	assert.Equal(t, 6.0, entry.RegularHours)
	assert.Equal(t, "shortened day", entry.Notes)
}

func TestManages(t *testing.T) {
	manager := &User{ID: uuid.New(), Role: RoleManager}
	worker := &User{Role: RoleWorker, ManagerID: &manager.ID}

	assert.True(t, manager.Manages(worker))
	assert.False(t, worker.Manages(manager))

	// A worker pointing at a non-manager gives that user no authority.
	impostor := &User{Role: RoleWorker}
	impostor.ID = manager.ID
	assert.False(t, impostor.Manages(worker))
}
