package solver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Matching pennies: both players pick heads or tails, the matcher wins on a
// match. The unique equilibrium mixes 50/50, so self-play average strategies
// must approach it.
func TestSelfPlayConvergesOnMatchingPennies(t *testing.T) {
	// Row player utility; the column player gets the negation.
	payoff := [2][2]float64{
		{+1, -1},
		{-1, +1},
	}
	row := newEntry(2)
	col := newEntry(2)

	for iter := 0; iter < 20000; iter++ {
		rs := row.Strategy()
		cs := col.Strategy()

		var rowEV, colEV float64
		var rowU, colU [2]float64
		for a := 0; a < 2; a++ {
			for b := 0; b < 2; b++ {
				rowU[a] += cs[b] * payoff[a][b]
				colU[a] += rs[b] * -payoff[b][a]
			}
		}
		for a := 0; a < 2; a++ {
			rowEV += rs[a] * rowU[a]
			colEV += cs[a] * colU[a]
		}

		row.AddRegrets([]float64{rowU[0] - rowEV, rowU[1] - rowEV}, false)
		col.AddRegrets([]float64{colU[0] - colEV, colU[1] - colEV}, false)
		row.AddStrategy(rs, 1)
		col.AddStrategy(cs, 1)
	}

	for _, avg := range [][]float64{row.AverageStrategy(), col.AverageStrategy()} {
		require.InDelta(t, 0.5, avg[0], 0.05)
		require.InDelta(t, 0.5, avg[1], 0.05)
	}
}
