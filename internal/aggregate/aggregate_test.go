package aggregate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/raphael-attias/clubcyber/internal/geo"
)

func TestByCountryCountsAndSorts(t *testing.T) {
	records := []geo.Record{
		{IP: "1.1.1.1", Country: "France", CountryCode: "FR"},
		{IP: "2.2.2.2", Country: "Australia", CountryCode: "AU"},
		{IP: "3.3.3.3", Country: "France", CountryCode: "FR"},
		{IP: "4.4.4.4", Country: "France", CountryCode: "FR"},
	}

	got := ByCountry(records)
	if len(got) != 2 {
		t.Fatalf("expected 2 countries, got %d", len(got))
	}
	if got[0].Country != "Australia" || got[0].Count != 1 {
		t.Errorf("unexpected first row: %+v", got[0])
	}
	if got[1].Country != "France" || got[1].Count != 3 {
		t.Errorf("unexpected second row: %+v", got[1])
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	store := geo.NewCSVStore(filepath.Join(dir, "geo_enriched.csv"))
	if err := store.EnsureHeader(); err != nil {
		t.Fatal(err)
	}
	for _, rec := range []geo.Record{
		{IP: "1.1.1.1", Country: "Japan", CountryCode: "JP", Latitude: 35, Longitude: 139},
		{IP: "2.2.2.2", Country: "Japan", CountryCode: "JP", Latitude: 34, Longitude: 135},
	} {
		if err := store.Append(rec); err != nil {
			t.Fatal(err)
		}
	}

	outPath := filepath.Join(dir, "agg_by_country.csv")
	n, err := Run(store, outPath)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("expected 1 country, got %d", n)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	want := "country,country_code,count\nJapan,JP,2\n"
	if string(data) != want {
		t.Errorf("aggregate csv = %q, want %q", data, want)
	}
}
