package solver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPartitionCoversExactly(t *testing.T) {
	cases := []struct{ total, instances int }{
		{100, 1},
		{100, 4},
		{10, 3},
		{7, 7},
		{5, 8},
	}
	for _, tc := range cases {
		ranges, err := Partition(tc.total, tc.instances)
		require.NoError(t, err)
		require.Len(t, ranges, tc.instances)

		next, sum := 0, 0
		minCount, maxCount := tc.total, 0
		for _, r := range ranges {
			require.Equal(t, next, r.Start, "%d/%d ranges must be contiguous", tc.total, tc.instances)
			next = r.End()
			sum += r.Count
			if r.Count < minCount {
				minCount = r.Count
			}
			if r.Count > maxCount {
				maxCount = r.Count
			}
		}
		require.Equal(t, tc.total, sum)
		require.LessOrEqual(t, maxCount-minCount, 1)
	}
}

func TestPartitionRejectsBadInput(t *testing.T) {
	_, err := Partition(0, 4)
	require.Error(t, err)
	_, err = Partition(100, 0)
	require.Error(t, err)
}
