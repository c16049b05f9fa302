package shared

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilter_Offset(t *testing.T) {
	assert.Equal(t, 0, Filter{Page: 0, PageSize: 20}.Offset())
	assert.Equal(t, 0, Filter{Page: 1, PageSize: 20}.Offset())
	assert.Equal(t, 40, Filter{Page: 3, PageSize: 20}.Offset())
}

func TestNewPage(t *testing.T) {
	tests := []struct {
		name      string
		total     int64
		pageSize  int
		wantPages int
	}{
		{"empty", 0, 20, 0},
		{"exact fit", 40, 20, 2},
		{"partial last page", 41, 20, 3},
		{"no page size", 41, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPage[string](nil, tt.total, Filter{Page: 1, PageSize: tt.pageSize})
			assert.Equal(t, tt.wantPages, p.TotalPages)
			assert.NotNil(t, p.Items)
			assert.Equal(t, tt.total, p.Total)
		})
	}
}
