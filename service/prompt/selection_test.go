package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		count   int
		want    []int
		wantErr string
	}{
		{name: "all lowercase", input: "all", count: 3, want: []int{0, 1, 2}},
		{name: "all uppercase", input: "ALL", count: 2, want: []int{0, 1}},
		{name: "all mixed case padded", input: "  aLl ", count: 1, want: []int{0}},
		{name: "single index", input: "2", count: 3, want: []int{1}},
		{name: "several indices", input: "1,3", count: 3, want: []int{0, 2}},
		{name: "indices with spaces", input: " 3 , 1 ", count: 3, want: []int{2, 0}},
		{name: "empty", input: "", count: 3, wantErr: "nothing selected"},
		{name: "blank", input: "   ", count: 3, wantErr: "nothing selected"},
		{name: "zero index", input: "0", count: 3, wantErr: "out of range"},
		{name: "index too large", input: "4", count: 3, wantErr: "out of range"},
		{name: "negative index", input: "-1", count: 3, wantErr: "out of range"},
		{name: "duplicate index", input: "1,1", count: 3, wantErr: "more than once"},
		{name: "not a number", input: "one", count: 3, wantErr: "not a number"},
		{name: "dangling comma", input: "1,,2", count: 3, wantErr: "not a number"},
		{name: "mixed valid and invalid", input: "1,9", count: 3, wantErr: "out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelection(tt.input, tt.count)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
