// Package batch splits identifier lists into bounded chunks and merges
// per-chunk results back into one deduplicated result.
package batch

import "github.com/samber/lo"

// DefaultSize is the number of identifiers sent per backend query.
const DefaultSize = 100

// Chunk splits ids into consecutive chunks of at most size elements.
// Order is preserved and empty input yields no chunks. A size below 1 puts
// everything into one chunk.
func Chunk[T any](ids []T, size int) [][]T {
	if len(ids) == 0 {
		return [][]T{}
	}
	if size < 1 || size >= len(ids) {
		return [][]T{ids}
	}
	return lo.Chunk(ids, size)
}

// Merge concatenates per-chunk results and drops duplicates by key, keeping
// the last occurrence. Survivors keep the relative order of their last
// occurrences.
func Merge[R any, K comparable](chunks [][]R, key func(R) K) []R {
	total := 0
	for _, c := range chunks {
		total += len(c)
	}
	all := make([]R, 0, total)
	for _, c := range chunks {
		all = append(all, c...)
	}
	return Dedup(all, key)
}

// Dedup drops duplicates by key, keeping the last occurrence. lo.UniqBy
// keeps the first, which would let an earlier chunk shadow a later one.
func Dedup[R any, K comparable](rows []R, key func(R) K) []R {
	last := make(map[K]int, len(rows))
	for i, r := range rows {
		last[key(r)] = i
	}
	if len(last) == len(rows) {
		return rows
	}

	out := make([]R, 0, len(last))
	for i, r := range rows {
		if last[key(r)] == i {
			out = append(out, r)
		}
	}
	return out
}
