// internal/api/types/response.go
package types

// PaginatedResponse is one page of a ledger listing.
// T is the element type, e.g. domain.Transaction.
type PaginatedResponse[T any] struct {
	Data       []T   `json:"data"`
	Limit      int   `json:"limit"`
	Offset     int   `json:"offset"`
	TotalCount int64 `json:"total_count"`
}

// HasMore reports whether another page follows this one.
func (p PaginatedResponse[T]) HasMore() bool {
	return int64(p.Offset+len(p.Data)) < p.TotalCount
}
