package contracts

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// DecodeTable decodes a serialized table embedded in a document field.
// Accepted shapes:
//   - records: [{"secID": "...", ...}, ...]
//   - columns: {"secID": {"0": "...", "1": "..."}, ...}
//   - split:   {"columns": [...], "data": [[...], ...]}
//
// Any of them may itself be wrapped in a JSON string.
func DecodeTable(raw json.RawMessage) ([]Row, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []Row{}, nil
	}

	switch raw[0] {
	case '"':
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return nil, fmt.Errorf("decode table: %w", err)
		}
		return DecodeTable(json.RawMessage(inner))
	case '[':
		var records []Row
		if err := json.Unmarshal(raw, &records); err != nil {
			return nil, fmt.Errorf("decode table records: %w", err)
		}
		return records, nil
	case '{':
		return decodeObjectTable(raw)
	}
	return nil, fmt.Errorf("decode table: unexpected token %q", raw[0])
}

func decodeObjectTable(raw json.RawMessage) ([]Row, error) {
	var split struct {
		Columns []string        `json:"columns"`
		Data    [][]interface{} `json:"data"`
	}
	if err := json.Unmarshal(raw, &split); err == nil && len(split.Columns) > 0 {
		rows := make([]Row, 0, len(split.Data))
		for _, values := range split.Data {
			if len(values) != len(split.Columns) {
				return nil, fmt.Errorf("decode table: row has %d values for %d columns", len(values), len(split.Columns))
			}
			row := make(Row, len(values))
			for i, c := range split.Columns {
				row[c] = values[i]
			}
			rows = append(rows, row)
		}
		return rows, nil
	}

	var columns map[string]map[string]interface{}
	if err := json.Unmarshal(raw, &columns); err != nil {
		return nil, fmt.Errorf("decode table columns: %w", err)
	}

	// 인덱스 키 수집 후 정렬
	indexSet := make(map[string]struct{})
	for _, cells := range columns {
		for idx := range cells {
			indexSet[idx] = struct{}{}
		}
	}
	index := make([]string, 0, len(indexSet))
	for idx := range indexSet {
		index = append(index, idx)
	}
	sort.Slice(index, func(i, j int) bool {
		a, errA := strconv.Atoi(index[i])
		b, errB := strconv.Atoi(index[j])
		if errA == nil && errB == nil {
			return a < b
		}
		return index[i] < index[j]
	})

	rows := make([]Row, 0, len(index))
	for _, idx := range index {
		row := make(Row, len(columns))
		for col, cells := range columns {
			if v, ok := cells[idx]; ok {
				row[col] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
