package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToInt64(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want int64
		ok   bool
	}{
		{"int64", int64(7), 7, true},
		{"int", 7, 7, true},
		{"int32", int32(7), 7, true},
		{"whole float", 7.0, 7, true},
		{"fractional float", 7.5, 0, false},
		{"float out of range", 1e19, 0, false},
		{"string", "7", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toInt64(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetInt64SliceFromRecord(t *testing.T) {
	ids, ok := getInt64SliceFromRecord(Record{"nodeIds": []any{int64(1), 2.0}}, "nodeIds")
	assert.True(t, ok)
	assert.Equal(t, []int64{1, 2}, ids)

	ids, ok = getInt64SliceFromRecord(Record{}, "nodeIds")
	assert.True(t, ok)
	assert.Empty(t, ids)

	_, ok = getInt64SliceFromRecord(Record{"nodeIds": []any{int64(1), 2.5}}, "nodeIds")
	assert.False(t, ok)
}
