package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDerivePlanStatus(t *testing.T) {
	now := date(2025, 6, 15)

	tests := []struct {
		name    string
		current PlanStatus
		start   time.Time
		end     time.Time
		want    PlanStatus
	}{
		{
			name:    "planning before start stays planning",
			current: PlanStatusPlanning,
			start:   date(2025, 7, 1),
			end:     date(2025, 7, 10),
			want:    PlanStatusPlanning,
		},
		{
			name:    "planning on start day becomes ongoing",
			current: PlanStatusPlanning,
			start:   date(2025, 6, 15),
			end:     date(2025, 6, 20),
			want:    PlanStatusOngoing,
		},
		{
			name:    "planning past end becomes completed",
			current: PlanStatusPlanning,
			start:   date(2025, 6, 1),
			end:     date(2025, 6, 10),
			want:    PlanStatusCompleted,
		},
		{
			name:    "confirmed before start stays confirmed",
			current: PlanStatusConfirmed,
			start:   date(2025, 7, 1),
			end:     date(2025, 7, 10),
			want:    PlanStatusConfirmed,
		},
		{
			name:    "confirmed after start becomes ongoing",
			current: PlanStatusConfirmed,
			start:   date(2025, 6, 14),
			end:     date(2025, 6, 20),
			want:    PlanStatusOngoing,
		},
		{
			name:    "ongoing on end day stays ongoing",
			current: PlanStatusOngoing,
			start:   date(2025, 6, 10),
			end:     date(2025, 6, 15),
			want:    PlanStatusOngoing,
		},
		{
			name:    "ongoing past end becomes completed",
			current: PlanStatusOngoing,
			start:   date(2025, 6, 1),
			end:     date(2025, 6, 14),
			want:    PlanStatusCompleted,
		},
		{
			name:    "cancelled is sticky",
			current: PlanStatusCancelled,
			start:   date(2025, 6, 1),
			end:     date(2025, 6, 10),
			want:    PlanStatusCancelled,
		},
		{
			name:    "completed is sticky",
			current: PlanStatusCompleted,
			start:   date(2025, 6, 14),
			end:     date(2025, 6, 20),
			want:    PlanStatusCompleted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DerivePlanStatus(tt.current, tt.start, tt.end, now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDerivePlanStatusIdempotent(t *testing.T) {
	now := date(2025, 6, 15)
	start := date(2025, 6, 14)
	end := date(2025, 6, 20)

	first := DerivePlanStatus(PlanStatusPlanning, start, end, now)
	second := DerivePlanStatus(first, start, end, now)
	assert.Equal(t, first, second)
}

func TestPlanStatusTransitions(t *testing.T) {
	assert.True(t, PlanStatusPlanning.IsValidTransition(PlanStatusConfirmed))
	assert.True(t, PlanStatusPlanning.IsValidTransition(PlanStatusOngoing))
	assert.True(t, PlanStatusConfirmed.IsValidTransition(PlanStatusCancelled))
	assert.True(t, PlanStatusOngoing.IsValidTransition(PlanStatusCompleted))

	assert.False(t, PlanStatusCompleted.IsValidTransition(PlanStatusOngoing))
	assert.False(t, PlanStatusCancelled.IsValidTransition(PlanStatusPlanning))
	assert.False(t, PlanStatusOngoing.IsValidTransition(PlanStatusPlanning))
	assert.False(t, PlanStatusConfirmed.IsValidTransition(PlanStatusPlanning))
}

func TestPlanStatusIsValid(t *testing.T) {
	assert.True(t, PlanStatusPlanning.IsValid())
	assert.True(t, PlanStatusCancelled.IsValid())
	assert.False(t, PlanStatus("ARCHIVED").IsValid())
	assert.False(t, PlanStatus("").IsValid())
}
