package batch

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("id%d", i+1)
	}
	return ids
}

func TestChunk(t *testing.T) {
	tests := []struct {
		name      string
		n         int
		size      int
		wantSizes []int
	}{
		{"empty", 0, 100, []int{}},
		{"single partial", 5, 100, []int{5}},
		{"exact", 200, 100, []int{100, 100}},
		{"with remainder", 250, 100, []int{100, 100, 50}},
		{"size one", 3, 1, []int{1, 1, 1}},
		{"zero size", 7, 0, []int{7}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ids := makeIDs(tt.n)
			chunks := Chunk(ids, tt.size)

			sizes := make([]int, 0, len(chunks))
			flat := make([]string, 0, tt.n)
			for _, c := range chunks {
				sizes = append(sizes, len(c))
				flat = append(flat, c...)
			}
			assert.Equal(t, tt.wantSizes, sizes)
			assert.Equal(t, ids, flat)
		})
	}
}

func TestChunk_DoesNotAliasAppends(t *testing.T) {
	ids := makeIDs(4)
	chunks := Chunk(ids, 2)
	require.Len(t, chunks, 2)

	_ = append(chunks[0], "extra")
	assert.Equal(t, "id3", ids[2])
}

type row struct {
	id    string
	value int
}

func TestMerge_DuplicateAcrossChunks(t *testing.T) {
	ids := makeIDs(250)
	chunks := Chunk(ids, 100)
	require.Len(t, chunks, 3)

	// the backend returns id100 in both the first and the second chunk
	results := make([][]row, len(chunks))
	for i, c := range chunks {
		for _, id := range c {
			results[i] = append(results[i], row{id: id, value: i})
		}
	}
	results[1] = append(results[1], row{id: "id100", value: 1})

	merged := Merge(results, func(r row) string { return r.id })
	require.Len(t, merged, 250)

	seen := map[string]int{}
	for _, r := range merged {
		seen[r.id] = r.value
	}
	assert.Len(t, seen, 250)
	assert.Equal(t, 1, seen["id100"], "last occurrence wins")
}

func TestMerge_IdempotentUnderRechunking(t *testing.T) {
	ids := makeIDs(37)
	fetch := func(chunk []string) []row {
		out := make([]row, 0, len(chunk))
		for _, id := range chunk {
			out = append(out, row{id: id, value: len(id)})
		}
		return out
	}
	key := func(r row) string { return r.id }

	run := func(size int) map[string]int {
		chunks := Chunk(ids, size)
		results := make([][]row, 0, len(chunks))
		for _, c := range chunks {
			results = append(results, fetch(c))
		}
		out := map[string]int{}
		for _, r := range Merge(results, key) {
			out[r.id] = r.value
		}
		return out
	}

	want := run(100)
	for _, size := range []int{1, 5, 10, 36, 37} {
		assert.Equal(t, want, run(size), "size %d", size)
	}
}

func TestDedup(t *testing.T) {
	rows := []row{{"a", 1}, {"b", 2}, {"a", 3}, {"c", 4}}
	got := Dedup(rows, func(r row) string { return r.id })

	assert.Equal(t, []row{{"b", 2}, {"a", 3}, {"c", 4}}, got)
	assert.Empty(t, Dedup([]row{}, func(r row) string { return r.id }))
}
