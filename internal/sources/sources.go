package sources

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Kind string

const (
	KindRSS  Kind = "rss"
	KindHTML Kind = "html"
)

// Site is one news source to watch.
type Site struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
	Kind Kind   `yaml:"kind"`
}

// FileConfig is the YAML config structure
// sites:
//   - name: thehackernews
//     url: https://...
//     kind: rss
type FileConfig struct {
	Sites []Site `yaml:"sites"`
}

// Load reads the site list from a YAML file. A missing file falls back to the
// built-in defaults; a malformed file is an error.
func Load(path string) ([]Site, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Defaults(), nil
		}
		return nil, err
	}
	defer f.Close()

	var cfg FileConfig
	dec := yaml.NewDecoder(f)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	sites := make([]Site, 0, len(cfg.Sites))
	for _, s := range cfg.Sites {
		if s.URL == "" {
			continue
		}
		if s.Kind == "" {
			s.Kind = KindHTML
		}
		sites = append(sites, s)
	}
	if len(sites) == 0 {
		return Defaults(), nil
	}
	return sites, nil
}

// Defaults returns the watched cybersecurity sites.
func Defaults() []Site {
	return []Site{
		{Name: "thehackernews", URL: "https://feeds.feedburner.com/TheHackersNews", Kind: KindRSS},
		{Name: "krebsonsecurity", URL: "https://krebsonsecurity.com/feed/", Kind: KindRSS},
		{Name: "bleepingcomputer", URL: "https://www.bleepingcomputer.com/feed/", Kind: KindRSS},
		{Name: "lemondeinformatique", URL: "https://www.lemondeinformatique.fr/actualites/lire-cybersecurite-c47/", Kind: KindHTML},
		{Name: "theregister", URL: "https://www.theregister.com/security/", Kind: KindHTML},
		{Name: "cybernews", URL: "https://cybernews.com", Kind: KindHTML},
		{Name: "darkreading", URL: "https://www.darkreading.com", Kind: KindHTML},
		{Name: "zataz", URL: "https://www.zataz.com", Kind: KindHTML},
		{Name: "undernews", URL: "https://www.undernews.fr", Kind: KindHTML},
		{Name: "silicon", URL: "https://www.silicon.fr", Kind: KindHTML},
		{Name: "zdnet", URL: "https://www.zdnet.fr/actualites/securite/", Kind: KindHTML},
		{Name: "numerama", URL: "https://www.numerama.com/tag/cybersecurite", Kind: KindHTML},
		{Name: "usine_digitale", URL: "https://www.usine-digitale.fr/", Kind: KindHTML},
	}
}
