package upstream

import (
	"encoding/json"
	"fmt"

	"refbook/internal/domain/dictionary"
)

// The backend serves counterparties with its own field names (tax_id,
// is_active, created_at). Those records are normalized into the contour
// model before they leave this package; every other type is passed through
// unchanged.

func decodeItem(t dictionary.Type, data []byte) (dictionary.Item, error) {
	if t == dictionary.TypeCounterparties {
		normalized, err := normalizeCounterparty(data)
		if err != nil {
			return nil, err
		}
		data = normalized
	}
	return dictionary.DecodeItem(t, data)
}

func decodeItems(t dictionary.Type, data []byte) ([]dictionary.Item, error) {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", t, err)
	}
	items := make([]dictionary.Item, 0, len(raws))
	for _, raw := range raws {
		item, err := decodeItem(t, raw)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func encodeItem(item dictionary.Item) any {
	if c, ok := item.(*dictionary.Counterparty); ok {
		return denormalizeCounterparty(c)
	}
	return item
}

var counterpartyAliases = map[string]string{
	"tax_id":     "binIin",
	"is_active":  "isActive",
	"created_at": "createdAt",
	"updated_at": "updatedAt",
}

func normalizeCounterparty(data []byte) ([]byte, error) {
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode counterparty: %w", err)
	}
	for wire, local := range counterpartyAliases {
		if v, ok := fields[wire]; ok {
			if _, taken := fields[local]; !taken {
				fields[local] = v
			}
			delete(fields, wire)
		}
	}
	if _, ok := fields["isActive"]; !ok {
		fields["isActive"] = true
	}
	return json.Marshal(fields)
}

func denormalizeCounterparty(c *dictionary.Counterparty) map[string]any {
	out := map[string]any{
		"name":      c.Name,
		"tax_id":    c.BinIin,
		"category":  c.Category,
		"is_active": c.IsActive,
	}
	if c.ID != "" {
		out["id"] = c.ID
	}
	if c.Description != "" {
		out["description"] = c.Description
	}
	if c.BankDetails != nil {
		out["bank_details"] = c.BankDetails
	}
	if c.ContactInfo != nil {
		out["contact_info"] = c.ContactInfo
	}
	return out
}

type statisticsWire struct {
	TotalItems      int `json:"total_items"`
	ActiveItems     int `json:"active_items"`
	InactiveItems   int `json:"inactive_items"`
	RecentlyUpdated int `json:"recently_updated"`
}

func decodeStatistics(data []byte) (dictionary.Statistics, error) {
	var wire statisticsWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return dictionary.Statistics{}, fmt.Errorf("decode statistics: %w", err)
	}
	return dictionary.Statistics{
		TotalItems:      wire.TotalItems,
		ActiveItems:     wire.ActiveItems,
		InactiveItems:   wire.InactiveItems,
		RecentlyUpdated: wire.RecentlyUpdated,
	}, nil
}

type importWire struct {
	Success       bool  `json:"success"`
	ImportedCount int   `json:"imported_count"`
	ErrorCount    int   `json:"error_count"`
	Errors        []any `json:"errors"`
}

func decodeImportResult(data []byte) (dictionary.ImportResult, error) {
	if len(data) == 0 {
		return dictionary.ImportResult{}, nil
	}
	var wire importWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return dictionary.ImportResult{}, fmt.Errorf("decode import result: %w", err)
	}
	res := dictionary.ImportResult{
		SuccessCount: wire.ImportedCount,
		ErrorCount:   wire.ErrorCount,
	}
	for i, e := range wire.Errors {
		res.Errors = append(res.Errors, dictionary.BulkError{Index: i, Error: fmt.Sprint(e)})
	}
	return res, nil
}
