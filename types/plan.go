package types

import "time"

type PlanStatus string

const (
	PlanStatusPlanning  PlanStatus = "PLANNING"  // Initial state while the plan is being drafted
	PlanStatusConfirmed PlanStatus = "CONFIRMED" // Explicitly confirmed by the author before departure
	PlanStatusOngoing   PlanStatus = "ONGOING"   // Trip is currently underway
	PlanStatusCompleted PlanStatus = "COMPLETED" // Trip has finished normally
	PlanStatusCancelled PlanStatus = "CANCELLED" // Plan was cancelled before or during the trip
)

type PlanVisibility string

const (
	VisibilityPublic  PlanVisibility = "PUBLIC"
	VisibilityPrivate PlanVisibility = "PRIVATE"
	VisibilityFriends PlanVisibility = "FRIENDS"
)

// Destination describes where a plan takes place, with an optional reference
// into the administrative-region dataset maintained outside this service.
type Destination struct {
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	AdminRefType string  `json:"adminRefType,omitempty"`
	AdminRefID   string  `json:"adminRefId,omitempty"`
}

// LodgingEntry records a place the group is staying, one entry per stay.
type LodgingEntry struct {
	Name     string     `json:"name"`
	Address  string     `json:"address,omitempty"`
	CheckIn  *time.Time `json:"checkIn,omitempty"`
	CheckOut *time.Time `json:"checkOut,omitempty"`
}

// TravelPlan is the aggregate root for a collaborative trip. The Itinerary
// slice is stored as a single JSONB document and mutated through field-path
// writes, never replaced wholesale.
type TravelPlan struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	Destination Destination    `json:"destination"`
	StartDate   time.Time      `json:"startDate"`
	EndDate     time.Time      `json:"endDate"`
	Visibility  PlanVisibility `json:"visibility"`
	Status      PlanStatus     `json:"status"`
	AuthorID    string         `json:"authorId"`
	Tripmates   []string       `json:"tripmates"`
	Lodging     []LodgingEntry `json:"lodging,omitempty"`
	Itinerary   []Section      `json:"itinerary"`
	Version     int64          `json:"version"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   *time.Time     `json:"-"`
}

// IsValidTransition checks if a status transition is allowed.
func (ps PlanStatus) IsValidTransition(newStatus PlanStatus) bool {
	transitions := map[PlanStatus][]PlanStatus{
		PlanStatusPlanning: {
			PlanStatusConfirmed,
			PlanStatusOngoing,
			PlanStatusCancelled,
		},
		PlanStatusConfirmed: {
			PlanStatusOngoing,
			PlanStatusCancelled,
		},
		PlanStatusOngoing: {
			PlanStatusCompleted,
			PlanStatusCancelled,
		},
		PlanStatusCompleted: {}, // Terminal state
		PlanStatusCancelled: {}, // Terminal state
	}

	allowed, exists := transitions[ps]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == newStatus {
			return true
		}
	}
	return false
}

func (ps PlanStatus) String() string {
	return string(ps)
}

// IsValid checks if the status is a known plan status.
func (ps PlanStatus) IsValid() bool {
	switch ps {
	case PlanStatusPlanning, PlanStatusConfirmed, PlanStatusOngoing, PlanStatusCompleted, PlanStatusCancelled:
		return true
	default:
		return false
	}
}

func (v PlanVisibility) IsValid() bool {
	switch v {
	case VisibilityPublic, VisibilityPrivate, VisibilityFriends:
		return true
	default:
		return false
	}
}

// DerivePlanStatus computes the date-derived status for a plan. CANCELLED and
// COMPLETED are sticky. CONFIRMED only advances once the start date arrives,
// so an explicit confirmation is never silently undone.
func DerivePlanStatus(current PlanStatus, startDate, endDate time.Time, now time.Time) PlanStatus {
	today := now.UTC().Truncate(24 * time.Hour)
	start := startDate.UTC().Truncate(24 * time.Hour)
	end := endDate.UTC().Truncate(24 * time.Hour)

	switch current {
	case PlanStatusPlanning, PlanStatusConfirmed:
		if !start.After(today) {
			if end.Before(today) {
				return PlanStatusCompleted
			}
			return PlanStatusOngoing
		}
	case PlanStatusOngoing:
		if end.Before(today) {
			return PlanStatusCompleted
		}
	}
	return current
}

// PlanUpdate carries the optional top-level fields of a partial plan update.
// Nil fields are left untouched. Itinerary changes travel separately as an
// ItineraryPatch so they can be applied at field-path granularity.
type PlanUpdate struct {
	Title       *string         `json:"title,omitempty"`
	Destination *Destination    `json:"destination,omitempty"`
	StartDate   *time.Time      `json:"startDate,omitempty"`
	EndDate     *time.Time      `json:"endDate,omitempty"`
	Visibility  *PlanVisibility `json:"visibility,omitempty"`
	Status      *PlanStatus     `json:"status,omitempty"`
	Lodging     []LodgingEntry  `json:"lodging,omitempty"`
}

// UpdatedFieldsAck reports which top-level fields and itinerary paths an
// update call actually wrote, plus the plan version after the write.
type UpdatedFieldsAck struct {
	PlanID        string   `json:"planId"`
	UpdatedFields []string `json:"updatedFields"`
	UpdatedPaths  []string `json:"updatedPaths"`
	Version       int64    `json:"version"`
}
