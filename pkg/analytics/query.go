package analytics

import (
	"math"
	"sort"

	"gitlab.com/tozd/go/errors"
)

// Quarters are the periods summed per year. Annual averages (Q05) are
// left out.
var Quarters = []string{"Q01", "Q02", "Q03", "Q04"}

type Stats struct {
	Mean   float64
	StdDev float64
	Count  int
}

// PopulationStats returns the mean and sample standard deviation of the
// population over [fromYear, toYear]. NaN populations are ignored. StdDev is
// NaN with fewer than two values.
func PopulationStats(pop []Population, fromYear, toYear int) (Stats, error) {
	var values []float64
	for _, p := range pop {
		if p.Year < fromYear || p.Year > toYear || math.IsNaN(p.Population) {
			continue
		}
		values = append(values, p.Population)
	}
	if len(values) == 0 {
		return Stats{}, errors.Errorf("no population between %d and %d", fromYear, toYear)
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	std := math.NaN()
	if len(values) > 1 {
		var sq float64
		for _, v := range values {
			sq += (v - mean) * (v - mean)
		}
		std = math.Sqrt(sq / float64(len(values)-1))
	}
	return Stats{Mean: mean, StdDev: std, Count: len(values)}, nil
}

type SeriesYear struct {
	SeriesID string
	Year     int
	Value    float64
}

// BestYears sums the quarterly values of each (series, year) and returns,
// per series, the year with the largest sum. Ties go to the earliest year.
// The result is sorted by series id.
func BestYears(obs []Observation) []SeriesYear {
	quarter := make(map[string]bool, len(Quarters))
	for _, q := range Quarters {
		quarter[q] = true
	}

	type groupKey struct {
		series string
		year   int
	}
	sums := make(map[groupKey]float64)
	for _, o := range obs {
		if !quarter[o.Period] {
			continue
		}
		v := o.Value
		if math.IsNaN(v) {
			v = 0
		}
		sums[groupKey{o.SeriesID, o.Year}] += v
	}

	groups := make([]SeriesYear, 0, len(sums))
	for k, v := range sums {
		groups = append(groups, SeriesYear{SeriesID: k.series, Year: k.year, Value: v})
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].SeriesID != groups[j].SeriesID {
			return groups[i].SeriesID < groups[j].SeriesID
		}
		return groups[i].Year < groups[j].Year
	})

	var best []SeriesYear
	for _, g := range groups {
		n := len(best)
		if n == 0 || best[n-1].SeriesID != g.SeriesID {
			best = append(best, g)
			continue
		}
		if g.Value > best[n-1].Value {
			best[n-1] = g
		}
	}
	return best
}

type JoinedRow struct {
	SeriesID string
	Year     int
	Period   string
	Value    float64
	// Population is nil when no population record exists for Year.
	Population *float64
}

// JoinPopulation left-joins the observations of one series and period to
// the population of the same year. Observation order is kept.
func JoinPopulation(obs []Observation, pop []Population, seriesID, period string) []JoinedRow {
	byYear := make(map[int][]float64)
	for _, p := range pop {
		byYear[p.Year] = append(byYear[p.Year], p.Population)
	}

	rows := []JoinedRow{}
	for _, o := range obs {
		if o.SeriesID != seriesID || o.Period != period {
			continue
		}
		row := JoinedRow{SeriesID: o.SeriesID, Year: o.Year, Period: o.Period, Value: o.Value}
		matches := byYear[o.Year]
		if len(matches) == 0 {
			rows = append(rows, row)
			continue
		}
		for _, v := range matches {
			v := v
			row.Population = &v
			rows = append(rows, row)
		}
	}
	return rows
}
