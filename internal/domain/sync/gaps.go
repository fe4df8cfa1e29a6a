// Package sync holds the pure planning logic of the orchestrator: gap
// detection, dispatch round shaping, and chunking decisions. Nothing in
// this package touches the database or the network.
package sync

import (
	"sort"
	"time"

	"github.com/merchkit/merchsync/internal/domain/model"
)

// DaysInRange expands an inclusive [start, end] date range into single days.
// Times are truncated to UTC midnight before expansion.
func DaysInRange(start, end time.Time) []time.Time {
	s := start.UTC().Truncate(24 * time.Hour)
	e := end.UTC().Truncate(24 * time.Hour)
	if e.Before(s) {
		return nil
	}
	var days []time.Time
	for d := s; !d.After(e); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// ExpectedKeys builds the full matrix of shops × days × object types.
func ExpectedKeys(shops []string, days []time.Time, types []model.ObjectType) []model.WorkKey {
	keys := make([]model.WorkKey, 0, len(shops)*len(days)*len(types))
	for _, shop := range shops {
		for _, day := range days {
			for _, t := range types {
				keys = append(keys, model.WorkKey{Shop: shop, StartDate: day, ObjectType: t})
			}
		}
	}
	return keys
}

// MissingKeys returns the expected keys that have no existing item, in
// deterministic (date, shop, object type) order. Existing items are matched
// by their natural key regardless of status: a failed item is still present.
func MissingKeys(expected []model.WorkKey, existing []model.WorkItem) []model.WorkKey {
	seen := make(map[model.WorkKey]struct{}, len(existing))
	for i := range existing {
		seen[normalizeKey(existing[i].Key())] = struct{}{}
	}

	var missing []model.WorkKey
	for _, k := range expected {
		if _, ok := seen[normalizeKey(k)]; !ok {
			missing = append(missing, k)
		}
	}

	sort.Slice(missing, func(i, j int) bool {
		a, b := missing[i], missing[j]
		if !a.StartDate.Equal(b.StartDate) {
			return a.StartDate.Before(b.StartDate)
		}
		if a.Shop != b.Shop {
			return a.Shop < b.Shop
		}
		return a.ObjectType < b.ObjectType
	})
	return missing
}

func normalizeKey(k model.WorkKey) model.WorkKey {
	k.StartDate = k.StartDate.UTC().Truncate(24 * time.Hour)
	return k
}

// Batch splits keys into batches of at most size elements, preserving order.
func Batch(keys []model.WorkKey, size int) [][]model.WorkKey {
	if size <= 0 || len(keys) == 0 {
		return nil
	}
	batches := make([][]model.WorkKey, 0, (len(keys)+size-1)/size)
	for start := 0; start < len(keys); start += size {
		end := start + size
		if end > len(keys) {
			end = len(keys)
		}
		batches = append(batches, keys[start:end])
	}
	return batches
}
