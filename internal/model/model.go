package model

import "time"

// Item is one record of the catalog. Items are generated once at startup and never mutated.
type Item struct {
	ID    uint64 `json:"id"`
	Value string `json:"value"`

	// Position is the generator-assigned baseline rank (1-based).
	Position uint64 `json:"position"`
	// NumericValue is the sort key derived from Value.
	NumericValue uint64 `json:"numericValue"`
}

// PageItem is an Item annotated with selection state for one response.
type PageItem struct {
	Item
	Selected bool `json:"selected"`
}

// MoveRecord places ItemID immediately after PrevItemID and/or immediately before NextItemID.
// A zero anchor means "no anchor".
type MoveRecord struct {
	ItemID     uint64    `json:"itemId"`
	PrevItemID uint64    `json:"prevItemId,omitempty"`
	NextItemID uint64    `json:"nextItemId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`

	// Seq is a strictly increasing logical stamp; it orders records written in the same clock tick.
	Seq uint64 `json:"seq"`
}
