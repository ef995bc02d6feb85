package queue

import "github.com/finch-technologies/go-queue/utils"

// chunkSizes partitions total into per-request sizes no larger than limit:
// full chunks of limit plus the remainder. Non-positive sizes are filtered
// out, so an exact multiple of limit yields no empty trailing chunk and a
// total of zero yields no chunks at all.
func chunkSizes(total, limit int) []int {
	if total <= 0 || limit <= 0 {
		return nil
	}

	sizes := make([]int, 0, total/limit+1)

	for i := 0; i < total/limit; i++ {
		sizes = append(sizes, limit)
	}

	sizes = append(sizes, total%limit)

	return utils.Filter(sizes, func(n int, _ int) bool {
		return n > 0
	})
}
