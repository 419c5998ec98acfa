// Package blocklist downloads a published IP blocklist and tracks which
// addresses are new since the previous run.
package blocklist

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/raphael-attias/clubcyber/internal/retry"
)

var ipRe = regexp.MustCompile(`(?:\d{1,3}\.){3}\d{1,3}`)

type Client struct {
	client *http.Client
	policy retry.Policy
}

func NewClient(timeout time.Duration, policy retry.Policy) *Client {
	return &Client{
		client: &http.Client{Timeout: timeout},
		policy: policy,
	}
}

// Fetch downloads the blocklist and extracts every IPv4 address found in the
// body. The publisher's format mixes addresses with comments and netmask
// suffixes, so extraction is by regex rather than line parsing.
func (c *Client) Fetch(ctx context.Context, url string) (map[string]struct{}, error) {
	var body []byte
	err := c.policy.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return &retry.Permanent{Err: err}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch blocklist: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			statusErr := fmt.Errorf("blocklist status %d", resp.StatusCode)
			if c.policy.RetryableStatus(resp.StatusCode) {
				return statusErr
			}
			return &retry.Permanent{Err: statusErr}
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read blocklist body: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ips := map[string]struct{}{}
	for _, ip := range ipRe.FindAllString(string(body), -1) {
		ips[ip] = struct{}{}
	}
	return ips, nil
}

// Diff returns the addresses present in current but not in seen, sorted for
// stable report output.
func Diff(current, seen map[string]struct{}) []string {
	var fresh []string
	for ip := range current {
		if _, ok := seen[ip]; !ok {
			fresh = append(fresh, ip)
		}
	}
	sort.Strings(fresh)
	return fresh
}

// Store keeps the accumulated blocklist snapshot under a data directory as
// both a plain list (ips.csv, one address per line) and a JSON mirror
// (ips.json) for downstream tooling.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) csvPath() string  { return filepath.Join(s.dir, "ips.csv") }
func (s *Store) jsonPath() string { return filepath.Join(s.dir, "ips.json") }

// Load reads the stored address set. A missing file is an empty set.
func (s *Store) Load() (map[string]struct{}, error) {
	data, err := os.ReadFile(s.csvPath())
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf("read ip store: %w", err)
	}

	ips := map[string]struct{}{}
	for _, ip := range ipRe.FindAllString(string(data), -1) {
		ips[ip] = struct{}{}
	}
	return ips, nil
}

// Merge folds fetched addresses into the store and rewrites both files with
// the union, sorted. Returns the union size.
func (s *Store) Merge(fetched map[string]struct{}) (int, error) {
	existing, err := s.Load()
	if err != nil {
		return 0, err
	}
	for ip := range fetched {
		existing[ip] = struct{}{}
	}

	all := make([]string, 0, len(existing))
	for ip := range existing {
		all = append(all, ip)
	}
	sort.Strings(all)

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return 0, fmt.Errorf("create data dir: %w", err)
	}

	var plain []byte
	for _, ip := range all {
		plain = append(plain, ip...)
		plain = append(plain, '\n')
	}
	if err := os.WriteFile(s.csvPath(), plain, 0644); err != nil {
		return 0, fmt.Errorf("write ip store: %w", err)
	}

	asJSON, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return 0, fmt.Errorf("marshal ip store: %w", err)
	}
	if err := os.WriteFile(s.jsonPath(), asJSON, 0644); err != nil {
		return 0, fmt.Errorf("write ip store mirror: %w", err)
	}
	return len(all), nil
}
