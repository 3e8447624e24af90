package types

import (
	"encoding/json"
	"fmt"
)

// SectionKind discriminates the two section variants of an itinerary.
type SectionKind string

const (
	SectionKindRoute SectionKind = "ROUTE" // Ordered day route of places
	SectionKindList  SectionKind = "LIST"  // Free-form list (notes, checklists, ideas)
)

// ItemKind discriminates the item variants inside a section.
type ItemKind string

const (
	ItemKindPlace     ItemKind = "PLACE"
	ItemKindNote      ItemKind = "NOTE"
	ItemKindChecklist ItemKind = "CHECKLIST"
)

func (k SectionKind) IsValid() bool {
	return k == SectionKindRoute || k == SectionKindList
}

func (k ItemKind) IsValid() bool {
	return k == ItemKindPlace || k == ItemKindNote || k == ItemKindChecklist
}

// Section is one ordered block of an itinerary. Index is a stable identifier
// used for path-addressed updates; it stays contiguous across the plan and is
// only reassigned by an atomic reorder of all affected sections.
type Section struct {
	Index int         `json:"index"`
	Name  string      `json:"name"`
	Kind  SectionKind `json:"kind"`
	Items []Item      `json:"items"`
}

// Item is a tagged union: exactly one of the variant pointers is set,
// matching Kind. Consumers switch on Kind exhaustively.
type Item struct {
	Index     int            `json:"index"`
	Kind      ItemKind       `json:"kind"`
	Place     *PlaceItem     `json:"-"`
	Note      *NoteItem      `json:"-"`
	Checklist *ChecklistItem `json:"-"`
}

// PlaceItem is a visitable place with optional timing and cost.
type PlaceItem struct {
	Name      string     `json:"name"`
	Address   string     `json:"address,omitempty"`
	Longitude float64    `json:"longitude"`
	Latitude  float64    `json:"latitude"`
	TimeStart string     `json:"timeStart,omitempty"`
	TimeEnd   string     `json:"timeEnd,omitempty"`
	Cost      *CostEntry `json:"cost,omitempty"`
}

// NoteItem is a free-form text note.
type NoteItem struct {
	Content string `json:"content"`
}

// ChecklistItem keeps entries and their completion flags as parallel arrays;
// the two slices must always have equal length.
type ChecklistItem struct {
	Entries   []string `json:"entries"`
	Completed []bool   `json:"completed"`
}

// CostEntry records what a place cost and how it is split between tripmates.
// Amounts are integers in minor currency units.
type CostEntry struct {
	Amount       int64        `json:"amount"`
	Currency     string       `json:"currency"`
	PaidBy       string       `json:"paidBy"`
	Description  string       `json:"description,omitempty"`
	SplitBetween []SplitShare `json:"splitBetween,omitempty"`
}

// SplitShare is one tripmate's share of a cost. Settled only ever moves from
// false to true.
type SplitShare struct {
	UserID  string `json:"userId"`
	Amount  int64  `json:"amount"`
	Settled bool   `json:"settled"`
}

type itemHeader struct {
	Index int      `json:"index"`
	Kind  ItemKind `json:"kind"`
}

// UnmarshalJSON decodes an item by its kind tag into the matching variant.
func (i *Item) UnmarshalJSON(data []byte) error {
	var head itemHeader
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	i.Index = head.Index
	i.Kind = head.Kind
	i.Place, i.Note, i.Checklist = nil, nil, nil

	switch head.Kind {
	case ItemKindPlace:
		i.Place = &PlaceItem{}
		return json.Unmarshal(data, i.Place)
	case ItemKindNote:
		i.Note = &NoteItem{}
		return json.Unmarshal(data, i.Note)
	case ItemKindChecklist:
		i.Checklist = &ChecklistItem{}
		return json.Unmarshal(data, i.Checklist)
	case "":
		return fmt.Errorf("item is missing a kind tag")
	default:
		return fmt.Errorf("unknown item kind %q", head.Kind)
	}
}

// MarshalJSON flattens the active variant next to the index and kind tag.
func (i Item) MarshalJSON() ([]byte, error) {
	var variant interface{}
	switch i.Kind {
	case ItemKindPlace:
		variant = i.Place
	case ItemKindNote:
		variant = i.Note
	case ItemKindChecklist:
		variant = i.Checklist
	default:
		return nil, fmt.Errorf("unknown item kind %q", i.Kind)
	}
	if variant == nil {
		return nil, fmt.Errorf("item kind %q has no payload", i.Kind)
	}

	body, err := json.Marshal(variant)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["index"], _ = json.Marshal(i.Index)
	fields["kind"], _ = json.Marshal(i.Kind)
	return json.Marshal(fields)
}
