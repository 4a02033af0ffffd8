package util

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePage(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"0", 1},
		{"-4", 1},
		{"1", 1},
		{"3", 3},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePage(tt.raw))
		})
	}
}

func TestCalculate(t *testing.T) {
	offset, limit := Calculate(3, 3)
	assert.Equal(t, 6, offset)
	assert.Equal(t, 3, limit)

	offset, limit = Calculate(0, 0)
	assert.Equal(t, 0, offset)
	assert.Equal(t, DefaultPageSize, limit)
}

func TestNewPageSevenItems(t *testing.T) {
	first := NewPage(1, 3, 7)
	assert.True(t, first.HasNextPage)
	assert.False(t, first.HasPreviousPage)
	assert.Equal(t, 3, first.LastPage)
	assert.Equal(t, 2, first.NextPage)

	middle := NewPage(2, 3, 7)
	assert.True(t, middle.HasNextPage)
	assert.True(t, middle.HasPreviousPage)
	assert.Equal(t, 1, middle.PreviousPage)

	last := NewPage(3, 3, 7)
	assert.False(t, last.HasNextPage)
	assert.True(t, last.HasPreviousPage)

	beyond := NewPage(5, 3, 7)
	assert.False(t, beyond.HasNextPage)
	assert.Equal(t, 3, beyond.LastPage)
}

func TestNewPageEdges(t *testing.T) {
	empty := NewPage(1, 3, 0)
	assert.Equal(t, 0, empty.LastPage)
	assert.False(t, empty.HasNextPage)

	exact := NewPage(2, 3, 6)
	assert.False(t, exact.HasNextPage)
	assert.Equal(t, 2, exact.LastPage)
}

func TestHugePageStaysPastTheEnd(t *testing.T) {
	page := ParsePage("6148914691236517206")
	require.Equal(t, 6148914691236517206, page)

	offset, limit := Calculate(page, 3)
	assert.Positive(t, offset)
	assert.Equal(t, 3, limit)

	p := NewPage(page, 3, 7)
	assert.False(t, p.HasNextPage)
	assert.True(t, p.HasPreviousPage)
	assert.Equal(t, 3, p.LastPage)
	assert.Greater(t, p.NextPage, p.CurrentPage)

	offset, _ = Calculate(math.MaxInt, 1)
	assert.Positive(t, offset)
}
