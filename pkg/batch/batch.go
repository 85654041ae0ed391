// Package batch partitions ordered sequences into fixed-size contiguous groups.
package batch

// Chunk splits items into contiguous runs of length size, preserving order.
// The last run may be shorter but is never empty. An empty input yields no
// chunks. Panics if size is not positive, which is a programming error.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		panic("batch: chunk size must be positive")
	}

	if len(items) == 0 {
		return nil
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
