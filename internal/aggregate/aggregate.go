// Package aggregate rolls the enriched geolocation data up into per-country
// counts for the map frontend.
package aggregate

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/raphael-attias/clubcyber/internal/geo"
)

// CountryCount is one output row.
type CountryCount struct {
	Country     string
	CountryCode string
	Count       int
}

// ByCountry counts records per (country, country code) pair, sorted by country
// name. Records with an empty country still count, under the empty key, so the
// totals stay consistent with the enriched file.
func ByCountry(records []geo.Record) []CountryCount {
	type key struct{ country, code string }
	counts := map[key]int{}
	for _, rec := range records {
		counts[key{rec.Country, rec.CountryCode}]++
	}

	out := make([]CountryCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, CountryCount{Country: k.country, CountryCode: k.code, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Country != out[j].Country {
			return out[i].Country < out[j].Country
		}
		return out[i].CountryCode < out[j].CountryCode
	})
	return out
}

// WriteCSV writes the aggregate as country,country_code,count.
func WriteCSV(path string, counts []CountryCount) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create aggregate csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"country", "country_code", "count"}); err != nil {
		return fmt.Errorf("write aggregate header: %w", err)
	}
	for _, c := range counts {
		if err := w.Write([]string{c.Country, c.CountryCode, strconv.Itoa(c.Count)}); err != nil {
			return fmt.Errorf("write aggregate row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// Run reads the enriched store and writes the per-country CSV. Returns the
// number of countries.
func Run(store *geo.CSVStore, outPath string) (int, error) {
	records, err := store.Rows()
	if err != nil {
		return 0, err
	}
	counts := ByCountry(records)
	if err := WriteCSV(outPath, counts); err != nil {
		return 0, err
	}
	return len(counts), nil
}
