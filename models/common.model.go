package models

import "time"

// Envelope wraps every JSON body the API returns.
type Envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      any             `json:"data,omitempty"`
	Error     any             `json:"error,omitempty"`
	Meta      *PaginationMeta `json:"meta,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// PaginationMeta describes one page of a listing.
type PaginationMeta struct {
	CurrentPage int   `json:"current_page"`
	PerPage     int   `json:"per_page"`
	Total       int64 `json:"total"`
	TotalPages  int   `json:"total_pages"`
	HasNext     bool  `json:"has_next"`
	HasPrevious bool  `json:"has_previous"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func SuccessResponse(message string, data any, meta *PaginationMeta) Envelope {
	return Envelope{Success: true, Message: message, Data: data, Meta: meta, Timestamp: time.Now().UTC()}
}

// ErrorResponse builds a failure body; detail is optional machine-readable context.
func ErrorResponse(message string, detail any) Envelope {
	return Envelope{Message: message, Error: detail, Timestamp: time.Now().UTC()}
}

// NormalizePage clamps page/limit query values.
func NormalizePage(page, limit int) (int, int) {
	page = max(page, 1)
	if limit < 1 {
		limit = DefaultPageSize
	}
	return page, min(limit, MaxPageSize)
}

func NewPaginationMeta(page, limit int, total int64) *PaginationMeta {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	return &PaginationMeta{
		CurrentPage: page,
		PerPage:     limit,
		Total:       total,
		TotalPages:  pages,
		HasNext:     page < pages,
		HasPrevious: page > 1,
	}
}
