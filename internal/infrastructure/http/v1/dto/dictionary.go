// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"encoding/json"
	"time"

	"refbook/internal/domain/dictionary"
)

// ListResponse wraps a dictionary item list.
type ListResponse struct {
	Items any `json:"items"`
	Total int `json:"total"`
}

// FilterRequest carries filter criteria. DateRange is split out because its
// JSON shape differs from the scalar filters.
type FilterRequest struct {
	IsActive  *bool             `json:"isActive,omitempty"`
	Category  string            `json:"category,omitempty"`
	OwnerRole string            `json:"ownerRole,omitempty"`
	DateRange *DateRangeRequest `json:"dateRange,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// DateRangeRequest bounds createdAt.
type DateRangeRequest struct {
	Start time.Time `json:"start" binding:"required"`
	End   time.Time `json:"end" binding:"required"`
}

// ToFilters converts the request into domain filters.
func (r FilterRequest) ToFilters() dictionary.Filters {
	f := dictionary.Filters{}
	if r.IsActive != nil {
		f["isActive"] = *r.IsActive
	}
	if r.Category != "" {
		f["category"] = r.Category
	}
	if r.OwnerRole != "" {
		f["ownerRole"] = r.OwnerRole
	}
	if r.DateRange != nil {
		f["dateRange"] = dictionary.DateRange{Start: r.DateRange.Start, End: r.DateRange.End}
	}
	for name, value := range r.Fields {
		f[name] = value
	}
	return f
}

// BulkCreateRequest carries raw items; each is decoded per the path type.
type BulkCreateRequest struct {
	Items []json.RawMessage `json:"items" binding:"required"`
}

// BulkUpdateRequest carries id-to-payload update pairs.
type BulkUpdateRequest struct {
	Updates []BulkUpdateItem `json:"updates" binding:"required"`
}

// BulkUpdateItem is one bulk update entry.
type BulkUpdateItem struct {
	ID   string          `json:"id" binding:"required"`
	Item json.RawMessage `json:"item" binding:"required"`
}

// BulkDeleteRequest carries the ids to remove.
type BulkDeleteRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// ModeRequest switches the service mode.
type ModeRequest struct {
	Mode string `json:"mode" binding:"required"`
}

// ModeResponse reports the mode and offline journal depth.
type ModeResponse struct {
	Mode         string `json:"mode"`
	PendingCount int    `json:"pendingCount"`
	Replayed     int    `json:"replayed,omitempty"`
	Failed       int    `json:"failed,omitempty"`
}

// TypeInfo describes one dictionary type and its capabilities.
type TypeInfo struct {
	Type        string `json:"type"`
	HasEndpoint bool   `json:"hasEndpoint"`
	ReadOnly    bool   `json:"readOnly"`
}

// AuditEntryResponse is one audit record on the history endpoint.
type AuditEntryResponse struct {
	ID         int64           `json:"id"`
	OccurredAt time.Time       `json:"occurredAt"`
	UserID     string          `json:"userId,omitempty"`
	Action     string          `json:"action"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}
