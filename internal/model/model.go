// Package model defines the shared types flowing through the listings pipeline.
package model

import "time"

// Raw field names as emitted by the extraction layer.
const (
	FieldProductID    = "product_id"
	FieldName         = "name"
	FieldCategory     = "category"
	FieldCompany      = "company"
	FieldDescription  = "description"
	FieldPrice        = "price"
	FieldURL          = "url"
	FieldReviewsCount = "reviews_count"
	FieldAvgRating    = "avg_rating"
)

// RawRecord is one listing as extracted: field name to raw text.
// A missing key means the field was absent on the page. No invariants hold;
// any value may be malformed.
type RawRecord map[string]string

// Product is a normalized listing record. Constructed once by the
// transformer and immutable afterwards; the database is the system of record.
type Product struct {
	ProductID    string   `json:"product_id"`
	Name         string   `json:"name"`
	Category     string   `json:"category"`
	Company      string   `json:"company"`
	Description  string   `json:"description"`
	Price        *float64 `json:"price,omitempty"`
	URL          string   `json:"url"`
	ReviewsCount int      `json:"reviews_count"`
	AvgRating    *float64 `json:"avg_rating,omitempty"`
}

// Metric is the per-snapshot derived row for a product.
type Metric struct {
	ProductID    string    `json:"product_id"`
	ReviewsCount int       `json:"reviews_count"`
	AvgRating    *float64  `json:"avg_rating,omitempty"`
	IsFeatured   bool      `json:"is_featured"`
	SnapshotDate time.Time `json:"snapshot_date"`
}

// RecordError is a per-record failure that did not abort the batch.
type RecordError struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

// BatchState is the orchestrator's lifecycle state for one batch.
type BatchState string

const (
	StateIdle                  BatchState = "idle"
	StateTransforming          BatchState = "transforming"
	StateResolving             BatchState = "resolving"
	StateLoading               BatchState = "loading"
	StateReported              BatchState = "reported"
	StateFailed                BatchState = "failed"
	StateAbortedNoInput        BatchState = "aborted_no_input"
	StateAbortedNoValidRecords BatchState = "aborted_no_valid_records"
)

// Terminal reports whether no further stages will run for this state.
func (s BatchState) Terminal() bool {
	switch s {
	case StateReported, StateFailed, StateAbortedNoInput, StateAbortedNoValidRecords:
		return true
	}
	return false
}

// BatchResult is the structured outcome of one pipeline run.
type BatchResult struct {
	RunID       string        `json:"run_id"`
	Source      string        `json:"source,omitempty"`
	State       BatchState    `json:"state"`
	Attempted   int           `json:"attempted"`
	Transformed int           `json:"transformed"`
	Rejected    int           `json:"rejected"`
	Loaded      int           `json:"loaded"`
	LoadErrors  []RecordError `json:"load_errors,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	FinishedAt  time.Time     `json:"finished_at"`
}
