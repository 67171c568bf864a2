package api

import (
	"github.com/halvard/skriva/internal/journal"
)

// WriteEntryRequest is the request body for saving or drafting an entry.
type WriteEntryRequest struct {
	Body       string   `json:"body" example:"Slept badly, wrote anyway." validate:"required"`
	Title      *string  `json:"title,omitempty" example:"Jan 15, 2025"`
	Tags       []string `json:"tags,omitempty" example:"sleep,writing"`
	MoodRating *int     `json:"mood_rating,omitempty" example:"6"`
}

// RenameEntryRequest is the request body for moving an entry to another date.
type RenameEntryRequest struct {
	To string `json:"to" example:"2025-01-16" validate:"required"`
}

// ReflectionRequest is the request body for attaching an AI reflection.
type ReflectionRequest struct {
	Reflection map[string]any `json:"reflection" validate:"required"`
}

// EntryDetail is the full entry response type (aliased from the domain layer).
type EntryDetail = journal.EntryDetail

// DateListResponse wraps entry date listings.
type DateListResponse struct {
	Dates []string `json:"dates" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Date    string `json:"date" example:"2025-01-15" validate:"required"`
	Title   string `json:"title" example:"Jan 15, 2025" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// StatsResponse mirrors the index aggregates for the stats endpoint.
type StatsResponse struct {
	TotalEntries   int     `json:"total_entries" example:"42"`
	TotalWords     int     `json:"total_words" example:"18230"`
	AvgWords       float64 `json:"avg_words" example:"434.5"`
	FirstDate      string  `json:"first_date,omitempty" example:"2024-01-01"`
	LastDate       string  `json:"last_date,omitempty" example:"2025-01-15"`
	WithReflection int     `json:"with_reflection" example:"7"`
}

// ReconcileResponse reports the outcome of a reconcile pass.
type ReconcileResponse struct {
	Scanned int `json:"scanned" example:"42"`
	Indexed int `json:"indexed" example:"3"`
	Removed int `json:"removed" example:"1"`
}
