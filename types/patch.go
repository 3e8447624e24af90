package types

import "encoding/json"

// ItineraryPatch is a sparse partial itinerary: only the sections and items a
// client actually changed are present. Anything absent is left untouched.
type ItineraryPatch struct {
	Sections []SectionPatch `json:"sections"`
}

// SectionPatch addresses one existing section by its stable index.
type SectionPatch struct {
	Index int         `json:"index"`
	Name  *string     `json:"name,omitempty"`
	Items []ItemPatch `json:"items,omitempty"`
}

// ItemPatch addresses one existing item by its stable index within a section.
// Fields maps leaf paths relative to the item (for example "name",
// "timeStart", "cost.amount") to their new raw JSON values.
type ItemPatch struct {
	Index  int                        `json:"index"`
	Fields map[string]json.RawMessage `json:"fields"`
}

// FieldWrite is one leaf mutation of a stored itinerary document. Path is the
// JSONB path from the document root down to the leaf, already resolved to
// array positions. Label is the same address expressed with stable indexes,
// for example "sections[2].items[0].cost.amount", reported back in the ack.
type FieldWrite struct {
	Path  []string
	Value json.RawMessage
	Label string
}

// IsEmpty reports whether the patch carries no mutations at all.
func (p ItineraryPatch) IsEmpty() bool {
	return !p.hasContent()
}

func (p ItineraryPatch) hasContent() bool {
	for _, s := range p.Sections {
		if s.Name != nil {
			return true
		}
		for _, it := range s.Items {
			if len(it.Fields) > 0 {
				return true
			}
		}
	}
	return false
}
