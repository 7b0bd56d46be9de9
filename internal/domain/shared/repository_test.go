package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Offset(t *testing.T) {
	tests := []struct {
		page, size, want int
	}{
		{page: 0, size: 20, want: 0},
		{page: 1, size: 20, want: 0},
		{page: 3, size: 20, want: 40},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Filter{Page: tt.page, PageSize: tt.size}.Offset())
	}
}

func TestNewPaginated(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		pageSize  int
		wantPages int
	}{
		{"exact", 40, 20, 2},
		{"remainder", 41, 20, 3},
		{"empty", 0, 20, 0},
		{"no page size", 5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPaginated([]string{"a"}, tt.total, 1, tt.pageSize)
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.Equal(t, tt.total, p.Total)
			assert.Equal(t, []string{"a"}, p.Items)
		})
	}
}
