package dictionary

import (
	"encoding/json"
	"sort"
	"strings"
	"time"
)

// DateRange filters items whose creation date falls inside [Start, End].
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Filters is a set of named criteria applied conjunctively. Recognized keys:
//
//	isActive  (bool)      exact match on the active flag
//	category  (string)    exact match
//	ownerRole (string)    exact match
//	dateRange (DateRange) createdAt must fall inside the range
//
// Any other string-valued key is a case-insensitive substring match against
// the field of the same name. Nil and empty-string values are ignored.
type Filters map[string]any

// Key renders the filters as a deterministic cache key fragment: entries
// sorted by name, joined as name:value pairs.
func (f Filters) Key() string {
	if len(f) == 0 {
		return ""
	}
	names := make([]string, 0, len(f))
	for name := range f {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		switch v := f[name].(type) {
		case DateRange:
			parts = append(parts, name+":"+v.Start.Format(time.RFC3339)+".."+v.End.Format(time.RFC3339))
		case string:
			parts = append(parts, name+":"+v)
		case bool:
			if v {
				parts = append(parts, name+":true")
			} else {
				parts = append(parts, name+":false")
			}
		default:
			raw, _ := json.Marshal(v)
			parts = append(parts, name+":"+string(raw))
		}
	}
	return strings.Join(parts, "|")
}

// Apply returns the items matching every filter. Items are matched through
// their JSON form so the same rules hold for every dictionary type.
func (f Filters) Apply(items []Item) []Item {
	if len(f) == 0 {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if f.matches(item) {
			out = append(out, item)
		}
	}
	return out
}

func (f Filters) matches(item Item) bool {
	fields := itemFields(item)
	for name, want := range f {
		if want == nil {
			continue
		}
		switch v := want.(type) {
		case bool:
			got, ok := fields[name].(bool)
			if !ok || got != v {
				return false
			}
		case DateRange:
			created := item.Meta().CreatedAt
			if created.Before(v.Start) || created.After(v.End) {
				return false
			}
		case string:
			if v == "" {
				continue
			}
			got, ok := fields[name].(string)
			if name == "category" || name == "ownerRole" {
				if !ok || got != v {
					return false
				}
				continue
			}
			if !ok || !strings.Contains(strings.ToLower(got), strings.ToLower(v)) {
				return false
			}
		default:
			raw, _ := json.Marshal(v)
			gotRaw, _ := json.Marshal(fields[name])
			if string(raw) != string(gotRaw) {
				return false
			}
		}
	}
	return true
}

// Search returns the items whose name or code contains the query,
// case-insensitive. An empty query matches everything.
func Search(items []Item, query string) []Item {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	out := make([]Item, 0, len(items))
	for _, item := range items {
		meta := item.Meta()
		if strings.Contains(strings.ToLower(meta.Name), q) ||
			strings.Contains(strings.ToLower(meta.Code), q) {
			out = append(out, item)
		}
	}
	return out
}

func itemFields(item Item) map[string]any {
	raw, err := json.Marshal(item)
	if err != nil {
		return nil
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	return fields
}
