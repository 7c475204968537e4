package quota

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRowNormalizes(t *testing.T) {
	used := int64(42)

	tests := []struct {
		name string
		in   RowResource
		want Row
	}{
		{
			name: "fixed limit with usage",
			in:   RowResource{UserID: 1, LimitBytes: 100, UsedBytes: &used, ResetSource: "user"},
			want: Row{UserID: 1, NodeID: 5, LimitBytes: 100, UsedBytes: 42, ResetSource: ResetByUser},
		},
		{
			name: "negative limit means unlimited",
			in:   RowResource{UserID: 2, LimitBytes: -1},
			want: Row{UserID: 2, NodeID: 5, Unlimited: true, ResetSource: ResetByNode},
		},
		{
			name: "null usage reads as zero",
			in:   RowResource{UserID: 3, LimitBytes: 10, UsedBytes: nil},
			want: Row{UserID: 3, NodeID: 5, LimitBytes: 10, ResetSource: ResetByNode},
		},
		{
			name: "unknown reset source falls back to node",
			in:   RowResource{UserID: 4, LimitBytes: 10, ResetSource: "weekly"},
			want: Row{UserID: 4, NodeID: 5, LimitBytes: 10, ResetSource: ResetByNode},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewRow(5, &tt.in))
		})
	}
}
