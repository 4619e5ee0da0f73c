package analytics

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yuya-takeyama/listing-s3-sync/pkg/s3client/s3clienttest"
)

const seriesTSV = "series_id        \tyear\tperiod\t       value\tfootnote_codes\n" +
	"PRS30006011      \t2019\tQ01\t  1.0\t\n" +
	"PRS30006011      \t2019\tQ02\t  2.0\t\n" +
	"PRS30006011      \t2020\tQ01\t  3.0\t\n" +
	"PRS30006011      \t2020\tQ05\t100.0\t\n" +
	"PRS30006032      \t2013\tQ01\t  0.5\tR\n" +
	"PRS30006032      \t2014\tQ01\t  -\t\n" +
	"PRS30006032      \t2019\tQ01\t  1.5\t\n" +
	"PRS30006032      \t2019\tQ02\t  1.5\t\n" +
	"PRS30006032      \t2020\tQ01\t  3.0\t\n" +
	"PRS30006032      \tyear\tQ01\t  9.0\t\n"

const populationJSON = `{"data":[
	{"ID Nation":"01000US","Nation":"United States","Year":2013,"Population":316128839},
	{"Year":"2014","Population":"318857056"},
	{"Year":2015,"Population":321418821},
	{"Year":2016,"Population":323127515},
	{"Year":2017,"Population":325719178},
	{"Year":2018,"Population":327167439},
	{"Year":2019,"Population":328239523},
	{"Year":"n/a","Population":1}
]}`

func TestLoadSeries(t *testing.T) {
	obs, err := LoadSeries(strings.NewReader(seriesTSV))
	require.NoError(t, err)
	require.Len(t, obs, 9)

	assert.Equal(t, Observation{SeriesID: "PRS30006011", Year: 2019, Period: "Q01", Value: 1.0}, obs[0])
	assert.Equal(t, "PRS30006032", obs[5].SeriesID)
	assert.True(t, math.IsNaN(obs[5].Value))
}

func TestLoadSeries_MissingColumn(t *testing.T) {
	_, err := LoadSeries(strings.NewReader("series_id\tyear\tvalue\nX\t2020\t1\n"))
	assert.Error(t, err)

	_, err = LoadSeries(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadPopulation(t *testing.T) {
	pop, err := LoadPopulation(strings.NewReader(populationJSON))
	require.NoError(t, err)
	require.Len(t, pop, 7)
	assert.Equal(t, Population{Year: 2014, Population: 318857056}, pop[1])

	_, err = LoadPopulation(strings.NewReader("<html>"))
	assert.Error(t, err)
}

func TestPopulationStats(t *testing.T) {
	pop, err := LoadPopulation(strings.NewReader(populationJSON))
	require.NoError(t, err)

	stats, err := PopulationStats(pop, 2013, 2018)
	require.NoError(t, err)
	assert.Equal(t, 6, stats.Count)
	assert.InDelta(t, 322069808.0, stats.Mean, 1)
	assert.InDelta(t, 4158441.04, stats.StdDev, 0.01)

	single, err := PopulationStats(pop, 2019, 2019)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(single.StdDev))

	_, err = PopulationStats(pop, 1900, 1950)
	assert.Error(t, err)
}

func TestBestYears(t *testing.T) {
	obs, err := LoadSeries(strings.NewReader(seriesTSV))
	require.NoError(t, err)

	assert.Equal(t, []SeriesYear{
		{SeriesID: "PRS30006011", Year: 2019, Value: 3.0},
		{SeriesID: "PRS30006032", Year: 2019, Value: 3.0},
	}, BestYears(obs))
}

func TestJoinPopulation(t *testing.T) {
	obs, err := LoadSeries(strings.NewReader(seriesTSV))
	require.NoError(t, err)
	pop, err := LoadPopulation(strings.NewReader(populationJSON))
	require.NoError(t, err)

	rows := JoinPopulation(obs, pop, "PRS30006032", "Q01")
	require.Len(t, rows, 4)

	assert.Equal(t, 2013, rows[0].Year)
	require.NotNil(t, rows[0].Population)
	assert.Equal(t, 316128839.0, *rows[0].Population)

	assert.Equal(t, 2014, rows[1].Year)
	assert.True(t, math.IsNaN(rows[1].Value))

	assert.Equal(t, 2020, rows[3].Year)
	assert.Nil(t, rows[3].Population)
}

func TestAnalyzerRun(t *testing.T) {
	client := s3clienttest.NewMemoryClient()
	client.SeedBody("bucket", DefaultSeriesKey, []byte(seriesTSV))
	client.SeedBody("bucket", DefaultPopulationKey, []byte(populationJSON))

	report, err := NewAnalyzer(client, nil, DefaultOptions()).Run(context.Background(), "bucket", DefaultSeriesKey, DefaultPopulationKey)
	require.NoError(t, err)

	assert.Equal(t, 6, report.Population.Count)
	assert.Len(t, report.BestYears, 2)
	assert.Len(t, report.Joined, 4)
}

func TestAnalyzerRun_MissingObject(t *testing.T) {
	client := s3clienttest.NewMemoryClient()
	client.SeedBody("bucket", DefaultSeriesKey, []byte(seriesTSV))

	_, err := NewAnalyzer(client, nil, DefaultOptions()).Run(context.Background(), "bucket", DefaultSeriesKey, DefaultPopulationKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), DefaultPopulationKey)
}
