// Package frequency groups records by a key and ranks the groups by weight.
package frequency

import "sort"

// RankedEntry is one group key with its computed weight.
type RankedEntry struct {
	Key    string
	Weight int
}

// Index maps keys to the records sharing that key. Keys are kept in first-occurrence order
// next to the map so ranking ties are broken by that order.
type Index[T any] struct {
	keys   []string
	groups map[string][]T
	size   int
}

// Build scans items once and groups them by key. Items whose key is absent or empty are skipped.
func Build[T any](items []T, key func(T) (string, bool)) *Index[T] {
	idx := &Index[T]{groups: make(map[string][]T)}

	for _, item := range items {
		k, ok := key(item)
		if !ok || k == "" {
			continue
		}

		if _, seen := idx.groups[k]; !seen {
			idx.keys = append(idx.keys, k)
		}

		idx.groups[k] = append(idx.groups[k], item)
		idx.size++
	}

	return idx
}

// Keys returns the distinct keys in first-occurrence order.
func (idx *Index[T]) Keys() []string {
	out := make([]string, len(idx.keys))
	copy(out, idx.keys)

	return out
}

// Get returns the records grouped under key.
func (idx *Index[T]) Get(key string) []T {
	return idx.groups[key]
}

// Len returns the number of distinct keys.
func (idx *Index[T]) Len() int {
	return len(idx.keys)
}

// Size returns the number of grouped records.
func (idx *Index[T]) Size() int {
	return idx.size
}

type rankOptions[T any] struct {
	weight   func(T) (int, bool)
	dropZero bool
}

// RankOption configures Rank.
type RankOption[T any] func(*rankOptions[T])

// WithWeight sums weight over each group's members instead of counting them.
// Members for which weight reports false are skipped.
func WithWeight[T any](weight func(T) (int, bool)) RankOption[T] {
	return func(o *rankOptions[T]) {
		o.weight = weight
	}
}

// DropZero omits groups whose weight is zero.
func DropZero[T any]() RankOption[T] {
	return func(o *rankOptions[T]) {
		o.dropZero = true
	}
}

// Rank returns the groups sorted by descending weight; equal weights keep first-occurrence order.
func (idx *Index[T]) Rank(opts ...RankOption[T]) []RankedEntry {
	var o rankOptions[T]
	for _, opt := range opts {
		opt(&o)
	}

	result := make([]RankedEntry, 0, len(idx.keys))

	for _, key := range idx.keys {
		members := idx.groups[key]
		weight := len(members)

		if o.weight != nil {
			weight = 0

			for _, member := range members {
				if w, ok := o.weight(member); ok {
					weight += w
				}
			}
		}

		if o.dropZero && weight == 0 {
			continue
		}

		result = append(result, RankedEntry{Key: key, Weight: weight})
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Weight > result[j].Weight
	})

	return result
}
