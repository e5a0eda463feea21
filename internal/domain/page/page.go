// Package page slices a filtered result list into fixed-size pages.
package page

// DefaultSize is the number of results shown per page.
const DefaultSize = 20

// Page is one window into a larger result list. HasNext is a heuristic:
// a full page assumes more results exist, so the final page of an exact
// multiple of size reports one phantom next page.
type Page[T any] struct {
	Items       []T
	Number      int
	Size        int
	HasNext     bool
	HasPrevious bool
}

// Paginate returns the page-th window of items, 1-based. Page numbers
// below 1 clamp to 1; pages past the end return an empty window.
func Paginate[T any](items []T, number, size int) Page[T] {
	if number < 1 {
		number = 1
	}
	if size < 1 {
		size = DefaultSize
	}

	start := (number - 1) * size
	end := start + size
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}

	return Page[T]{
		Items:       items[start:end],
		Number:      number,
		Size:        size,
		HasNext:     end-start == size,
		HasPrevious: number > 1,
	}
}
