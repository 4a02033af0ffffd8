package util

import (
	"math"
	"strconv"
)

const DefaultPageSize = 3

type Page struct {
	CurrentPage     int   `json:"current_page"`
	Size            int   `json:"size"`
	TotalItems      int64 `json:"total_items"`
	HasNextPage     bool  `json:"has_next_page"`
	HasPreviousPage bool  `json:"has_previous_page"`
	NextPage        int   `json:"next_page"`
	PreviousPage    int   `json:"previous_page"`
	LastPage        int   `json:"last_page"`
}

func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

// ParsePage reads a 1-based page number. Absent, malformed and non-positive
// values all mean the first page.
func ParsePage(raw string) int {
	page := ParseIntDefault(raw, 1)
	if page < 1 {
		return 1
	}
	return page
}

// maxPage bounds page so that its offset and next page still fit in an int.
// Anything larger is past the last page of every real catalog.
func maxPage(size int) int {
	return math.MaxInt/size - 1
}

func Calculate(page, size int) (offset, limit int) {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	page = min(page, maxPage(size))
	return (page - 1) * size, size
}

// NewPage derives navigation flags from the live item count.
func NewPage(page, size int, total int64) Page {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	page = min(page, maxPage(size))
	last := int((total + int64(size) - 1) / int64(size))
	return Page{
		CurrentPage:     page,
		Size:            size,
		TotalItems:      total,
		HasNextPage:     page < last,
		HasPreviousPage: page > 1,
		NextPage:        page + 1,
		PreviousPage:    page - 1,
		LastPage:        last,
	}
}
