// Package validation holds the pure validation rules for travel plans and
// their itinerary documents. Nothing here touches storage.
package validation

import (
	"fmt"
	"strings"
	"time"

	"github.com/wayfarer-app/wayfarer-backend/errors"
	"github.com/wayfarer-app/wayfarer-backend/pkg/valueobjects"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

// ValidatePlan checks a plan aggregate on creation.
func ValidatePlan(plan *types.TravelPlan) error {
	var validationErrors []string

	if plan.Title == "" {
		validationErrors = append(validationErrors, "plan title is required")
	}
	if plan.AuthorID == "" {
		validationErrors = append(validationErrors, "plan author ID is required")
	}
	if plan.Destination.Name == "" {
		validationErrors = append(validationErrors, "plan destination is required")
	}
	if err := valueobjects.ValidateCoordinates(plan.Destination.Latitude, plan.Destination.Longitude); err != nil {
		validationErrors = append(validationErrors, "destination coordinates are out of range")
	}
	if plan.StartDate.IsZero() {
		validationErrors = append(validationErrors, "plan start date is required")
	}
	if plan.EndDate.IsZero() {
		validationErrors = append(validationErrors, "plan end date is required")
	}
	if !plan.StartDate.IsZero() && !plan.EndDate.IsZero() && plan.EndDate.Before(plan.StartDate) {
		validationErrors = append(validationErrors, "plan end date cannot be before start date")
	}
	if plan.Visibility == "" {
		plan.Visibility = types.VisibilityPrivate
	} else if !plan.Visibility.IsValid() {
		validationErrors = append(validationErrors, "invalid plan visibility")
	}
	if plan.Status != "" && !plan.Status.IsValid() {
		validationErrors = append(validationErrors, "invalid plan status")
	}

	if len(validationErrors) > 0 {
		return errors.ValidationFailed(
			"Invalid plan data",
			strings.Join(validationErrors, "; "),
		)
	}

	if len(plan.Itinerary) > 0 {
		return ValidateItinerary(plan.Itinerary)
	}
	return nil
}

// ValidatePlanUpdate checks the top-level fields of a partial update against
// the stored plan, so a patch cannot leave the dates inverted.
func ValidatePlanUpdate(update *types.PlanUpdate, original *types.TravelPlan) error {
	var validationErrors []string

	effectiveStart := original.StartDate
	if update.StartDate != nil {
		effectiveStart = *update.StartDate
	}
	effectiveEnd := original.EndDate
	if update.EndDate != nil {
		effectiveEnd = *update.EndDate
	}
	if effectiveEnd.Before(effectiveStart) {
		validationErrors = append(validationErrors, "end date cannot be before start date")
	}

	if update.Title != nil && *update.Title == "" {
		validationErrors = append(validationErrors, "plan title cannot be empty")
	}
	if update.Visibility != nil && !update.Visibility.IsValid() {
		validationErrors = append(validationErrors, "invalid plan visibility")
	}
	if update.Destination != nil {
		if update.Destination.Name == "" {
			validationErrors = append(validationErrors, "destination name cannot be empty")
		}
		if err := valueobjects.ValidateCoordinates(update.Destination.Latitude, update.Destination.Longitude); err != nil {
			validationErrors = append(validationErrors, "destination coordinates are out of range")
		}
	}
	if update.Status != nil {
		if !update.Status.IsValid() {
			validationErrors = append(validationErrors, "invalid plan status")
		} else if !original.Status.IsValidTransition(*update.Status) {
			return errors.InvalidStatusTransition(original.Status.String(), update.Status.String())
		}
	}

	if len(validationErrors) > 0 {
		return errors.ValidationFailed(
			"Invalid plan update",
			strings.Join(validationErrors, "; "),
		)
	}
	return nil
}

// ValidateItinerary checks a full itinerary document. Every violation is
// collected into a field-path → reason map so the client can pinpoint the
// offending leaf in the nested structure.
func ValidateItinerary(sections []types.Section) error {
	fields := map[string]string{}
	seen := map[int]bool{}

	for i, section := range sections {
		path := fmt.Sprintf("sections[%d]", i)

		if !section.Kind.IsValid() {
			if section.Kind == "" {
				fields[path+".kind"] = "missing kind tag"
			} else {
				fields[path+".kind"] = fmt.Sprintf("unknown section kind %q", section.Kind)
			}
		}
		if seen[section.Index] {
			fields[path+".index"] = fmt.Sprintf("duplicate section index %d", section.Index)
		}
		seen[section.Index] = true
		if section.Index < 0 || section.Index >= len(sections) {
			fields[path+".index"] = fmt.Sprintf("section index %d is not contiguous", section.Index)
		}

		for j, item := range section.Items {
			validateItem(fields, fmt.Sprintf("%s.items[%d]", path, j), item)
		}
	}

	if len(fields) > 0 {
		return errors.ValidationFailedFields("Invalid itinerary", fields)
	}
	return nil
}

func validateItem(fields map[string]string, path string, item types.Item) {
	switch item.Kind {
	case types.ItemKindPlace:
		if item.Place == nil {
			fields[path] = "place item has no payload"
			return
		}
		if item.Place.Name == "" {
			fields[path+".name"] = "place name is required"
		}
		if err := valueobjects.ValidateCoordinates(item.Place.Latitude, item.Place.Longitude); err != nil {
			fields[path+".coordinates"] = "coordinates are out of range"
		}
		if item.Place.Cost != nil {
			validateCost(fields, path+".cost", item.Place.Cost)
		}
	case types.ItemKindNote:
		if item.Note == nil {
			fields[path] = "note item has no payload"
		}
	case types.ItemKindChecklist:
		if item.Checklist == nil {
			fields[path] = "checklist item has no payload"
			return
		}
		if len(item.Checklist.Entries) != len(item.Checklist.Completed) {
			fields[path+".completed"] = fmt.Sprintf(
				"completed length %d does not match entries length %d",
				len(item.Checklist.Completed), len(item.Checklist.Entries),
			)
		}
	case "":
		fields[path+".kind"] = "missing kind tag"
	default:
		fields[path+".kind"] = fmt.Sprintf("unknown item kind %q", item.Kind)
	}
}

// validateCost checks a cost entry and its split shares. The split sum may
// deviate from the total by at most one minor unit per share, which covers
// client-side rounding of uneven divisions.
func validateCost(fields map[string]string, path string, cost *types.CostEntry) {
	if cost.Amount < 0 {
		fields[path+".amount"] = "amount cannot be negative"
	}
	if !valueobjects.IsValidCurrency(valueobjects.Currency(cost.Currency)) {
		fields[path+".currency"] = fmt.Sprintf("currency %q is not supported", cost.Currency)
	}

	if len(cost.SplitBetween) == 0 {
		return
	}

	var sum int64
	for i, share := range cost.SplitBetween {
		sharePath := fmt.Sprintf("%s.splitBetween[%d]", path, i)
		if share.UserID == "" {
			fields[sharePath+".userId"] = "user ID is required"
		}
		if share.Amount < 0 {
			fields[sharePath+".amount"] = "share amount cannot be negative"
		}
		sum += share.Amount
	}

	tolerance := int64(len(cost.SplitBetween))
	diff := sum - cost.Amount
	if diff < -tolerance || diff > tolerance {
		fields[path+".splitBetween"] = fmt.Sprintf(
			"split shares sum to %d, expected %d within ±%d",
			sum, cost.Amount, tolerance,
		)
	}
}

// ValidateCostEntry checks a single cost entry the way ValidateItinerary does
// inside a full document. Used by the patch path to validate the cost state a
// patch would leave behind.
func ValidateCostEntry(path string, cost *types.CostEntry) error {
	fields := map[string]string{}
	validateCost(fields, path, cost)
	if len(fields) > 0 {
		return errors.ValidationFailedFields("Invalid cost update", fields)
	}
	return nil
}

// ValidateSettledTransitions rejects any split share flipping back from
// settled to unsettled. Settled is a one-way latch.
func ValidateSettledTransitions(path string, before, after *types.CostEntry) error {
	if before == nil || after == nil {
		return nil
	}
	settled := map[string]bool{}
	for _, share := range before.SplitBetween {
		if share.Settled {
			settled[share.UserID] = true
		}
	}
	for i, share := range after.SplitBetween {
		if settled[share.UserID] && !share.Settled {
			return errors.ValidationFailedFields("Invalid cost update", map[string]string{
				fmt.Sprintf("%s.splitBetween[%d].settled", path, i): "settled shares cannot be reverted",
			})
		}
	}
	return nil
}

// InitialPlanStatus computes the status a newly created plan starts in,
// derived from its start date at creation time.
func InitialPlanStatus(startDate, endDate time.Time, now time.Time) types.PlanStatus {
	return types.DerivePlanStatus(types.PlanStatusPlanning, startDate, endDate, now)
}
