// Package geo resolves IP addresses to coordinates. A classic geolocation API
// is tried first; when it fails or returns no coordinates, a Mistral prompt in
// strict JSON mode takes over.
package geo

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/raphael-attias/clubcyber/internal/logger"
	"github.com/raphael-attias/clubcyber/internal/metrics"
	"github.com/raphael-attias/clubcyber/internal/mistral"
	"github.com/raphael-attias/clubcyber/internal/retry"
)

// Record is one enriched address. Source tells which resolver produced the
// coordinates: "api" for the classic lookup, "gps" or "city" for the AI
// fallback (exact fix vs city-center approximation).
type Record struct {
	IP          string  `json:"ip"`
	Source      string  `json:"source"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	City        string  `json:"city"`
	Region      string  `json:"region"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Org         string  `json:"org"`
}

const aiSystemPrompt = "Tu es un service de géolocalisation d'adresses IP.\n" +
	"Quand je te fournis une adresse IP, tu dois d'abord tenter d'obtenir ses coordonnées GPS exactes (latitude, longitude).\n" +
	"Si les coordonnées GPS exactes ne sont pas disponibles, tu récupères alors les coordonnées (latitude, longitude) du centre de la ville d'origine de cette IP.\n" +
	"Tu répondras uniquement par un objet JSON formaté exactement comme :\n" +
	"{\n" +
	"  \"ip\": \"1.2.3.4\",\n" +
	"  \"source\": \"gps\" | \"city\",\n" +
	"  \"latitude\": 0.0,\n" +
	"  \"longitude\": 0.0,\n" +
	"  \"city\": \"\",\n" +
	"  \"region\": \"\",\n" +
	"  \"country\": \"\",\n" +
	"  \"country_code\": \"\"\n" +
	"}\n" +
	"sans texte additionnel."

// Classic queries an Abstract-API-shaped endpoint:
// GET <url>?api_key=<key>&ip_address=<ip>.
type Classic struct {
	apiURL string
	apiKey string
	client *http.Client
	policy retry.Policy
}

func NewClassic(apiURL, apiKey string, timeout time.Duration, policy retry.Policy) *Classic {
	return &Classic{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
		policy: policy,
	}
}

type classicResponse struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	City        string   `json:"city"`
	Region      string   `json:"region"`
	Country     string   `json:"country"`
	CountryCode string   `json:"country_code"`
	Connection  struct {
		OrganizationName string `json:"organization_name"`
	} `json:"connection"`
}

// Lookup resolves one IP. A response without both coordinates is an error so
// the caller falls through to the AI resolver.
func (c *Classic) Lookup(ctx context.Context, ip string) (Record, error) {
	var decoded classicResponse
	err := c.policy.Do(ctx, func() error {
		q := url.Values{}
		q.Set("api_key", c.apiKey)
		q.Set("ip_address", ip)

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+q.Encode(), nil)
		if err != nil {
			return &retry.Permanent{Err: err}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("geolocation request: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := fmt.Errorf("geolocation status %d", resp.StatusCode)
			if c.policy.RetryableStatus(resp.StatusCode) {
				return statusErr
			}
			return &retry.Permanent{Err: statusErr}
		}

		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return &retry.Permanent{Err: fmt.Errorf("decode geolocation response: %w", err)}
		}
		return nil
	})
	if err != nil {
		return Record{}, err
	}

	if decoded.Latitude == nil || decoded.Longitude == nil {
		return Record{}, fmt.Errorf("no coordinates for %s", ip)
	}
	return Record{
		IP:          ip,
		Source:      "api",
		Latitude:    *decoded.Latitude,
		Longitude:   *decoded.Longitude,
		City:        decoded.City,
		Region:      decoded.Region,
		Country:     decoded.Country,
		CountryCode: decoded.CountryCode,
		Org:         decoded.Connection.OrganizationName,
	}, nil
}

// AIResolver asks Mistral for coordinates when the classic API comes up empty.
type AIResolver struct {
	client *mistral.Client
}

func NewAIResolver(client *mistral.Client) *AIResolver {
	return &AIResolver{client: client}
}

type aiResponse struct {
	IP          string   `json:"ip"`
	Source      string   `json:"source"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	City        string   `json:"city"`
	Region      string   `json:"region"`
	Country     string   `json:"country"`
	CountryCode string   `json:"country_code"`
}

func (r *AIResolver) Lookup(ctx context.Context, ip string) (Record, error) {
	raw, err := r.client.CompleteJSON(ctx, aiSystemPrompt, ip)
	if err != nil {
		return Record{}, err
	}

	var decoded aiResponse
	if err := json.Unmarshal([]byte(extractJSON(raw)), &decoded); err != nil {
		return Record{}, fmt.Errorf("parse ai geolocation for %s: %w", ip, err)
	}
	if decoded.Latitude == nil || decoded.Longitude == nil {
		return Record{}, fmt.Errorf("ai answer without coordinates for %s", ip)
	}

	source := decoded.Source
	if source == "" {
		source = "ai"
	}
	return Record{
		IP:          ip,
		Source:      source,
		Latitude:    *decoded.Latitude,
		Longitude:   *decoded.Longitude,
		City:        decoded.City,
		Region:      decoded.Region,
		Country:     decoded.Country,
		CountryCode: decoded.CountryCode,
	}, nil
}

// extractJSON strips markdown code fences and returns the outermost JSON
// object, since models wrap answers despite being told not to.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

// Enricher runs the classic-then-AI cascade for a batch of addresses.
type Enricher struct {
	classic  *Classic
	fallback *AIResolver
	store    *CSVStore
	pause    time.Duration
}

func NewEnricher(classic *Classic, fallback *AIResolver, store *CSVStore, pause time.Duration) *Enricher {
	return &Enricher{classic: classic, fallback: fallback, store: store, pause: pause}
}

// Resolve returns the record for one IP, trying the classic API first.
func (e *Enricher) Resolve(ctx context.Context, ip string) (Record, error) {
	rec, err := e.classic.Lookup(ctx, ip)
	if err == nil {
		return rec, nil
	}
	logger.Warn("classic geolocation failed, trying ai fallback", "ip", ip, "error", err)

	if e.fallback == nil {
		return Record{}, err
	}
	rec, err = e.fallback.Lookup(ctx, ip)
	if err != nil {
		return Record{}, err
	}
	metrics.Global.IncrementAIFallbacks()
	return rec, nil
}

// Run enriches every IP not yet in the store, appending each success
// immediately so an interrupted run loses nothing. Per-IP failures are logged
// and skipped. Returns the number of newly enriched addresses.
func (e *Enricher) Run(ctx context.Context, ips []string) (int, error) {
	if err := e.store.EnsureHeader(); err != nil {
		return 0, err
	}
	done, err := e.store.DoneIPs()
	if err != nil {
		return 0, err
	}

	var todo []string
	for _, ip := range ips {
		if _, ok := done[ip]; !ok {
			todo = append(todo, ip)
		}
	}
	if len(todo) == 0 {
		logger.Info("no new ip to enrich")
		return 0, nil
	}

	enriched := 0
	for i, ip := range todo {
		if i > 0 && e.pause > 0 {
			select {
			case <-ctx.Done():
				return enriched, ctx.Err()
			case <-time.After(e.pause):
			}
		}

		logger.Info("enriching ip", "ip", ip, "index", i+1, "total", len(todo))
		rec, err := e.Resolve(ctx, ip)
		if err != nil {
			logger.Error("enrichment failed, skipping", "ip", ip, "error", err)
			continue
		}
		if err := e.store.Append(rec); err != nil {
			return enriched, err
		}
		metrics.Global.IncrementIPsEnriched()
		enriched++
	}
	return enriched, nil
}

// CSVStore persists enriched records, one row per address, appended as soon as
// each address resolves.
type CSVStore struct {
	path string
}

var csvHeader = []string{"ip", "country", "country_code", "latitude", "longitude", "org"}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// EnsureHeader creates the file with its header when missing or empty.
func (s *CSVStore) EnsureHeader() error {
	if info, err := os.Stat(s.path); err == nil && info.Size() > 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	f, err := os.Create(s.path)
	if err != nil {
		return fmt.Errorf("create enriched csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// DoneIPs returns the set of addresses already enriched.
func (s *CSVStore) DoneIPs() (map[string]struct{}, error) {
	rows, err := s.readAll()
	if err != nil {
		return nil, err
	}

	done := map[string]struct{}{}
	for _, row := range rows {
		if len(row) > 0 {
			done[row[0]] = struct{}{}
		}
	}
	return done, nil
}

// Append writes one record row.
func (s *CSVStore) Append(rec Record) error {
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open enriched csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	row := []string{
		rec.IP,
		rec.Country,
		rec.CountryCode,
		strconv.FormatFloat(rec.Latitude, 'f', -1, 64),
		strconv.FormatFloat(rec.Longitude, 'f', -1, 64),
		rec.Org,
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("append enriched row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Rows returns every data row (header excluded).
func (s *CSVStore) Rows() ([]Record, error) {
	rows, err := s.readAll()
	if err != nil {
		return nil, err
	}

	var records []Record
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		lat, _ := strconv.ParseFloat(row[3], 64)
		lon, _ := strconv.ParseFloat(row[4], 64)
		records = append(records, Record{
			IP:          row[0],
			Country:     row[1],
			CountryCode: row[2],
			Latitude:    lat,
			Longitude:   lon,
			Org:         row[5],
		})
	}
	return records, nil
}

// readAll returns the data rows of the CSV, skipping the header. A missing
// file is an empty store.
func (s *CSVStore) readAll() ([][]string, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open enriched csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read enriched csv: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 && rows[0][0] == "ip" {
		rows = rows[1:]
	}
	return rows, nil
}
