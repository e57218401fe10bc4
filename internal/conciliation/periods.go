package conciliation

import (
	"fmt"
	"sort"
	"time"
)

// periodKeys collects the distinct YYYY-MM accounting periods present in the
// entries' competence dates, sorted for stable processing order.
func periodKeys(entries []Row) []string {
	set := make(map[string]bool)
	for _, row := range entries {
		s, ok := row["competence_date"].(string)
		if !ok || len(s) < 7 {
			continue
		}
		set[s[:7]] = true
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// periodRange resolves a YYYY-MM key to the half-open interval
// [monthStart, nextMonthStart).
func periodRange(key string) (time.Time, time.Time, error) {
	start, err := time.Parse("2006-01", key)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid period key %q: %w", key, err)
	}
	return start, start.AddDate(0, 1, 0), nil
}
