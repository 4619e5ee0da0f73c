package analytics

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"strconv"
	"strings"

	"gitlab.com/tozd/go/errors"
)

// Observation is one row of a time-series data file.
type Observation struct {
	SeriesID string
	Year     int
	Period   string
	// Value is NaN when the file holds something that is not a number.
	Value float64
}

type Population struct {
	Year       int
	Population float64
}

var seriesColumns = []string{"series_id", "year", "period", "value"}

// LoadSeries reads a tab-separated series file with a header row. Cells and
// header names are trimmed. Rows whose year is not a number are dropped.
func LoadSeries(r io.Reader) ([]Observation, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("series file is empty")
	}
	if err != nil {
		return nil, errors.Errorf("reading series header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range seriesColumns {
		if _, ok := idx[col]; !ok {
			return nil, errors.Errorf("series file has no %q column", col)
		}
	}

	cell := func(record []string, col string) string {
		i := idx[col]
		if i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	var out []Observation
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Errorf("reading series row: %w", err)
		}

		year, err := strconv.Atoi(cell(record, "year"))
		if err != nil {
			continue
		}
		value, err := strconv.ParseFloat(cell(record, "value"), 64)
		if err != nil {
			value = math.NaN()
		}
		out = append(out, Observation{
			SeriesID: cell(record, "series_id"),
			Year:     year,
			Period:   cell(record, "period"),
			Value:    value,
		})
	}
	return out, nil
}

// number accepts a JSON number or a string holding one. Anything else
// decodes to NaN.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		b = []byte(strings.TrimSpace(s))
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		*n = number(math.NaN())
		return nil
	}
	*n = number(f)
	return nil
}

type populationDoc struct {
	Data []struct {
		Year       number `json:"Year"`
		Population number `json:"Population"`
	} `json:"data"`
}

// LoadPopulation reads a {"data":[{"Year":..,"Population":..}]} document.
// Records without a usable year are dropped.
func LoadPopulation(r io.Reader) ([]Population, error) {
	var doc populationDoc
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, errors.Errorf("decoding population document: %w", err)
	}

	out := make([]Population, 0, len(doc.Data))
	for _, rec := range doc.Data {
		year := float64(rec.Year)
		if math.IsNaN(year) || year != math.Trunc(year) {
			continue
		}
		out = append(out, Population{Year: int(year), Population: float64(rec.Population)})
	}
	return out, nil
}
