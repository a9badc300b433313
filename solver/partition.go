package solver

import "fmt"

// IterationRange is a contiguous block of iteration indices assigned to one
// solver instance: [Start, Start+Count).
type IterationRange struct {
	Start int
	Count int
}

// End returns the exclusive upper bound of the range.
func (r IterationRange) End() int {
	return r.Start + r.Count
}

// Partition splits total iterations across instances for fully independent
// solver processes. The ranges are contiguous, non-overlapping, sum to
// total, and differ in size by at most one: any remainder from uneven
// division lands on the first instances.
func Partition(total, instances int) ([]IterationRange, error) {
	if total <= 0 {
		return nil, fmt.Errorf("total iterations must be > 0, got %d", total)
	}
	if instances <= 0 {
		return nil, fmt.Errorf("instances must be > 0, got %d", instances)
	}

	base := total / instances
	remainder := total % instances
	out := make([]IterationRange, instances)
	start := 0
	for i := range out {
		count := base
		if i < remainder {
			count++
		}
		out[i] = IterationRange{Start: start, Count: count}
		start += count
	}
	return out, nil
}
