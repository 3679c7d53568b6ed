package experiment

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Cell holds the statistics of one (influencer count, fraction) group.
type Cell struct {
	// N is the number of records aggregated into the cell.
	N int
	// StaticMean and StaticSD summarize the pre-diffusion illusion counts.
	StaticMean float64
	StaticSD   float64
	// FinalMean and FinalSD summarize the post-diffusion illusion counts.
	FinalMean float64
	FinalSD   float64
}

// Row collects the cells of one distinct influencer count.
type Row struct {
	// Influencers is the group key.
	Influencers int
	// Trials is the number of records across the whole row.
	Trials int
	// Cells is indexed like Summary.Fractions.
	Cells []Cell
}

// Summary is a table of grouped statistics: one row per distinct
// influencer count, one cell column per fraction.
type Summary struct {
	// Fractions is the column order, ascending.
	Fractions []float64
	// Rows is ordered by ascending influencer count.
	Rows []Row
}

// Summarize groups trial records by influencer count and computes, per
// (group, fraction), the mean and sample standard deviation of the static
// and final illusion counts. Groups of one record report a deviation of
// zero.
func Summarize(records []Trial) Summary {
	var fractions []float64
	colOf := make(map[float64]int)
	groups := make(map[int][]Trial)
	for _, rec := range records {
		if _, ok := colOf[rec.Fraction]; !ok {
			colOf[rec.Fraction] = 0
			fractions = append(fractions, rec.Fraction)
		}
		groups[rec.Influencers] = append(groups[rec.Influencers], rec)
	}
	sort.Float64s(fractions)
	for i, f := range fractions {
		colOf[f] = i
	}

	keys := make([]int, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	rows := make([]Row, 0, len(keys))
	for _, k := range keys {
		static := make([][]float64, len(fractions))
		final := make([][]float64, len(fractions))
		for _, rec := range groups[k] {
			col := colOf[rec.Fraction]
			static[col] = append(static[col], float64(rec.StaticIllusion))
			final[col] = append(final[col], float64(rec.FinalIllusion))
		}

		row := Row{Influencers: k, Trials: len(groups[k]), Cells: make([]Cell, len(fractions))}
		for col := range row.Cells {
			row.Cells[col] = Cell{
				N:          len(static[col]),
				StaticMean: meanOf(static[col]),
				StaticSD:   sdOf(static[col]),
				FinalMean:  meanOf(final[col]),
				FinalSD:    sdOf(final[col]),
			}
		}
		rows = append(rows, row)
	}
	return Summary{Fractions: fractions, Rows: rows}
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// sdOf is the sample standard deviation. Fewer than two samples report
// zero rather than NaN.
func sdOf(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}
