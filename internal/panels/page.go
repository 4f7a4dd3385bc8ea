package panels

// BlogPageSize is how many blog reviews the sentiment table shows at once.
const BlogPageSize = 5

// Paginate returns page p (1-based, clamped) of items and the page count.
func Paginate[T any](items []T, p, size int) ([]T, int) {
	if size < 1 || len(items) == 0 {
		return nil, 0
	}
	pages := (len(items) + size - 1) / size
	if p < 1 {
		p = 1
	}
	if p > pages {
		p = pages
	}
	start := (p - 1) * size
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], pages
}
