// internal/domain/transaction/dto.go
package transaction

import (
	"fmt"
	"time"
)

// ListQuery is bound from the /transactions query string.
type ListQuery struct {
	Type      string `form:"type"`
	Status    string `form:"status"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

type ListFilters struct {
	Type      *Type
	Status    *Status
	StartDate *time.Time
	EndDate   *time.Time
}

// Filters validates the raw query. Dates accept RFC3339 or YYYY-MM-DD.
func (q ListQuery) Filters() (*ListFilters, error) {
	f := &ListFilters{}

	if q.Type != "" {
		t := Type(q.Type)
		if !t.Valid() {
			return nil, fmt.Errorf("invalid transaction type %q", q.Type)
		}
		f.Type = &t
	}
	if q.Status != "" {
		s := Status(q.Status)
		if !s.Valid() {
			return nil, fmt.Errorf("invalid transaction status %q", q.Status)
		}
		f.Status = &s
	}

	var err error
	if f.StartDate, err = parseDate(q.StartDate, false); err != nil {
		return nil, fmt.Errorf("invalid startDate: %w", err)
	}
	if f.EndDate, err = parseDate(q.EndDate, true); err != nil {
		return nil, fmt.Errorf("invalid endDate: %w", err)
	}
	return f, nil
}

// Matches applies the filters to a single record.
func (f *ListFilters) Matches(t *Transaction) bool {
	if f == nil {
		return true
	}
	if f.Type != nil && t.Type != *f.Type {
		return false
	}
	if f.Status != nil && t.Status != *f.Status {
		return false
	}
	if f.StartDate != nil && t.Timestamp.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && t.Timestamp.After(*f.EndDate) {
		return false
	}
	return true
}

// parseDate returns nil for an empty value. A bare date used as an upper
// bound covers the whole day.
func parseDate(raw string, endOfDay bool) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	if endOfDay {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return &t, nil
}

// TypeStats aggregates a user's transactions of one type.
type TypeStats struct {
	Type  Type    `json:"type"`
	Total float64 `json:"total"`
	Count int64   `json:"count"`
}

// Aggregate groups txns by type, in first-seen order.
func Aggregate(txns []*Transaction) []*TypeStats {
	index := make(map[Type]*TypeStats)
	var out []*TypeStats
	for _, t := range txns {
		s, ok := index[t.Type]
		if !ok {
			s = &TypeStats{Type: t.Type}
			index[t.Type] = s
			out = append(out, s)
		}
		s.Total += t.Amount
		s.Count++
	}
	return out
}
