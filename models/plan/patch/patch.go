// Package patch translates a sparse client-submitted itinerary into a
// minimal set of field-level writes against the stored document. Only the
// leaves present in the payload are touched; everything else is preserved,
// which is what lets two tripmates edit disjoint parts of the same plan
// concurrently without clobbering each other.
//
// StaleReference handling is strict all-or-nothing: if any addressed section
// or item no longer exists, the whole batch is rejected and nothing is
// written.
package patch

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/wayfarer-app/wayfarer-backend/errors"
	"github.com/wayfarer-app/wayfarer-backend/models/plan/validation"
	"github.com/wayfarer-app/wayfarer-backend/types"
)

// leafKind describes the JSON shape expected at a patchable leaf.
type leafKind int

const (
	leafString leafKind = iota
	leafNumber
	leafInt
	leafStringArray
	leafBoolArray
	leafCostObject
	leafSplitArray
)

// placeLeaves, noteLeaves and checklistLeaves enumerate the patchable leaf
// paths per item kind. A key not present here is rejected for that kind.
var (
	placeLeaves = map[string]leafKind{
		"name":              leafString,
		"address":           leafString,
		"longitude":         leafNumber,
		"latitude":          leafNumber,
		"timeStart":         leafString,
		"timeEnd":           leafString,
		"cost":              leafCostObject,
		"cost.amount":       leafInt,
		"cost.currency":     leafString,
		"cost.paidBy":       leafString,
		"cost.description":  leafString,
		"cost.splitBetween": leafSplitArray,
	}
	noteLeaves = map[string]leafKind{
		"content": leafString,
	}
	checklistLeaves = map[string]leafKind{
		"entries":   leafStringArray,
		"completed": leafBoolArray,
	}
)

// Build resolves an itinerary patch against the current document and emits
// one FieldWrite per supplied leaf. The current document must be the one the
// writes will be applied to, read under the same transaction, so stale index
// detection and the array positions stay consistent.
func Build(current []types.Section, p types.ItineraryPatch) ([]types.FieldWrite, error) {
	var writes []types.FieldWrite
	fieldErrors := map[string]string{}

	for _, sp := range p.Sections {
		secPos := findSection(current, sp.Index)
		if secPos < 0 {
			return nil, errors.StaleReference("section", sp.Index)
		}
		section := current[secPos]
		secLabel := fmt.Sprintf("sections[%d]", sp.Index)

		if sp.Name != nil {
			value, _ := json.Marshal(*sp.Name)
			writes = append(writes, types.FieldWrite{
				Path:  []string{strconv.Itoa(secPos), "name"},
				Value: value,
				Label: secLabel + ".name",
			})
		}

		for _, ip := range sp.Items {
			itemPos := findItem(section.Items, ip.Index)
			if itemPos < 0 {
				return nil, errors.StaleReference("item", ip.Index)
			}
			item := section.Items[itemPos]
			itemLabel := fmt.Sprintf("%s.items[%d]", secLabel, ip.Index)

			itemWrites, err := buildItemWrites(secPos, itemPos, itemLabel, item, ip, fieldErrors)
			if err != nil {
				return nil, err
			}
			writes = append(writes, itemWrites...)
		}
	}

	if len(fieldErrors) > 0 {
		return nil, errors.ValidationFailedFields("Invalid itinerary patch", fieldErrors)
	}
	return writes, nil
}

func buildItemWrites(secPos, itemPos int, itemLabel string, item types.Item, ip types.ItemPatch, fieldErrors map[string]string) ([]types.FieldWrite, error) {
	leaves, err := leavesForKind(item.Kind)
	if err != nil {
		return nil, err
	}

	var writes []types.FieldWrite
	for key, value := range ip.Fields {
		kind, ok := leaves[key]
		if !ok {
			fieldErrors[itemLabel+"."+key] = fmt.Sprintf("field is not patchable on a %s item", item.Kind)
			continue
		}
		if reason := checkLeafValue(kind, value, key, item); reason != "" {
			fieldErrors[itemLabel+"."+key] = reason
			continue
		}

		path := []string{strconv.Itoa(secPos), "items", strconv.Itoa(itemPos)}
		path = append(path, strings.Split(key, ".")...)
		writes = append(writes, types.FieldWrite{
			Path:  path,
			Value: value,
			Label: itemLabel + "." + key,
		})
	}

	// Patching only one side of a checklist's parallel arrays must keep the
	// lengths equal against the side left in place.
	if item.Kind == types.ItemKindChecklist {
		if reason := checkChecklistLengths(item, ip.Fields); reason != "" {
			fieldErrors[itemLabel] = reason
		}
	}

	// Cost invariants hold for the state the patch would leave behind,
	// whether it replaces the whole cost object or individual sub-leaves.
	if item.Kind == types.ItemKindPlace {
		if err := checkCostInvariants(itemLabel, item, ip.Fields, fieldErrors); err != nil {
			return nil, err
		}
	}

	return writes, nil
}

// checkCostInvariants validates the post-patch cost state: split shares must
// still sum to the amount, and settled shares stay settled. Both checks run
// against the merged result of the stored entry and the patched leaves, the
// same way checkChecklistLengths merges the checklist's parallel arrays.
func checkCostInvariants(itemLabel string, item types.Item, fields map[string]json.RawMessage, fieldErrors map[string]string) error {
	var before *types.CostEntry
	if item.Place != nil {
		before = item.Place.Cost
	}

	after, touched := patchedCost(before, fields, itemLabel, fieldErrors)
	if !touched {
		return nil
	}

	if err := validation.ValidateSettledTransitions(itemLabel+".cost", before, after); err != nil {
		return err
	}
	return validation.ValidateCostEntry(itemLabel+".cost", after)
}

// patchedCost computes the cost entry as it would be stored after the patch.
// Sub-leaf patches require an existing cost entry: jsonb_set cannot create
// the parent object, so those are rejected instead of silently dropped, and
// the whole-cost leaf stays the way to create one.
func patchedCost(before *types.CostEntry, fields map[string]json.RawMessage, itemLabel string, fieldErrors map[string]string) (*types.CostEntry, bool) {
	if raw, ok := fields["cost"]; ok {
		var cost types.CostEntry
		if json.Unmarshal(raw, &cost) != nil {
			return nil, false // already reported as a leaf type mismatch
		}
		return &cost, true
	}

	touched := false
	for key := range fields {
		if strings.HasPrefix(key, "cost.") {
			touched = true
			break
		}
	}
	if !touched {
		return nil, false
	}
	if before == nil {
		fieldErrors[itemLabel+".cost"] = "item has no cost entry; patch the whole cost object to create one"
		return nil, false
	}

	after := *before
	after.SplitBetween = append([]types.SplitShare(nil), before.SplitBetween...)

	if raw, ok := fields["cost.amount"]; ok {
		var n int64
		if json.Unmarshal(raw, &n) == nil {
			after.Amount = n
		}
	}
	if raw, ok := fields["cost.currency"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			after.Currency = s
		}
	}
	if raw, ok := fields["cost.paidBy"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			after.PaidBy = s
		}
	}
	if raw, ok := fields["cost.description"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil {
			after.Description = s
		}
	}
	if raw, ok := fields["cost.splitBetween"]; ok {
		var shares []types.SplitShare
		if json.Unmarshal(raw, &shares) == nil {
			after.SplitBetween = shares
		}
	}
	return &after, true
}

func leavesForKind(kind types.ItemKind) (map[string]leafKind, error) {
	switch kind {
	case types.ItemKindPlace:
		return placeLeaves, nil
	case types.ItemKindNote:
		return noteLeaves, nil
	case types.ItemKindChecklist:
		return checklistLeaves, nil
	default:
		return nil, errors.ValidationFailed(
			"invalid item kind",
			fmt.Sprintf("stored item has unknown kind %q", kind),
		)
	}
}

// checkLeafValue verifies the raw JSON value matches the leaf's expected
// shape. Returns a reason string on mismatch, empty on success.
func checkLeafValue(kind leafKind, value json.RawMessage, key string, item types.Item) string {
	switch kind {
	case leafString:
		var s string
		if err := json.Unmarshal(value, &s); err != nil {
			return "expected a string"
		}
	case leafNumber:
		var f float64
		if err := json.Unmarshal(value, &f); err != nil {
			return "expected a number"
		}
	case leafInt:
		var n int64
		if err := json.Unmarshal(value, &n); err != nil {
			return "expected an integer amount in minor units"
		}
		if n < 0 {
			return "amount cannot be negative"
		}
	case leafStringArray:
		var ss []string
		if err := json.Unmarshal(value, &ss); err != nil {
			return "expected an array of strings"
		}
	case leafBoolArray:
		var bb []bool
		if err := json.Unmarshal(value, &bb); err != nil {
			return "expected an array of booleans"
		}
	case leafCostObject:
		var cost types.CostEntry
		if err := json.Unmarshal(value, &cost); err != nil {
			return "expected a cost object"
		}
		if cost.Amount < 0 {
			return "cost amount cannot be negative"
		}
	case leafSplitArray:
		var shares []types.SplitShare
		if err := json.Unmarshal(value, &shares); err != nil {
			return "expected an array of split shares"
		}
	}
	return ""
}

// checkChecklistLengths enforces len(entries) == len(completed) across the
// combination of patched and existing values.
func checkChecklistLengths(item types.Item, fields map[string]json.RawMessage) string {
	if item.Checklist == nil {
		return "checklist item has no payload"
	}

	entriesLen := len(item.Checklist.Entries)
	completedLen := len(item.Checklist.Completed)

	if raw, ok := fields["entries"]; ok {
		var ss []string
		if json.Unmarshal(raw, &ss) != nil {
			return "" // already reported as a leaf type mismatch
		}
		entriesLen = len(ss)
	}
	if raw, ok := fields["completed"]; ok {
		var bb []bool
		if json.Unmarshal(raw, &bb) != nil {
			return ""
		}
		completedLen = len(bb)
	}

	if entriesLen != completedLen {
		return fmt.Sprintf("entries length %d does not match completed length %d", entriesLen, completedLen)
	}
	return ""
}

// Labels extracts the index-addressed dotted paths of a write batch, in
// order, for the update ack.
func Labels(writes []types.FieldWrite) []string {
	labels := make([]string, len(writes))
	for i, w := range writes {
		labels[i] = w.Label
	}
	return labels
}

// Disjoint reports whether two write batches touch no common leaf path.
// Used by tests to state the concurrency guarantee precisely.
func Disjoint(a, b []types.FieldWrite) bool {
	seen := map[string]bool{}
	for _, w := range a {
		seen[strings.Join(w.Path, "/")] = true
	}
	for _, w := range b {
		if seen[strings.Join(w.Path, "/")] {
			return false
		}
	}
	return true
}

func findSection(sections []types.Section, index int) int {
	for i, s := range sections {
		if s.Index == index {
			return i
		}
	}
	return -1
}

func findItem(items []types.Item, index int) int {
	for i, it := range items {
		if it.Index == index {
			return i
		}
	}
	return -1
}
