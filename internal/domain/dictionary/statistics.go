package dictionary

import "time"

// recentWindow is how far back an update still counts as "recent".
const recentWindow = 7 * 24 * time.Hour

// Statistics summarizes one dictionary for the admin dashboard.
type Statistics struct {
	TotalItems      int `json:"totalItems"`
	ActiveItems     int `json:"activeItems"`
	InactiveItems   int `json:"inactiveItems"`
	RecentlyUpdated int `json:"recentlyUpdated"`
}

// CalculateStatistics derives statistics from an item list. RecentlyUpdated
// counts items touched within the last seven days relative to now.
func CalculateStatistics(items []Item, now time.Time) Statistics {
	stats := Statistics{TotalItems: len(items)}
	cutoff := now.Add(-recentWindow)
	for _, item := range items {
		meta := item.Meta()
		if meta.IsActive {
			stats.ActiveItems++
		} else {
			stats.InactiveItems++
		}
		if meta.UpdatedAt.After(cutoff) {
			stats.RecentlyUpdated++
		}
	}
	return stats
}
