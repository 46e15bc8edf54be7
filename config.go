// Run configuration: defaults, optional YAML settings file, CLI overrides.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultUA = "wikibind/1.0 (offline reading compiler; contact: user@example.com)"

// defaultURLFile is read when no inputs are given on the command line.
const defaultURLFile = "wiki_articles.txt"

// defaultAllowedHosts are the host suffixes accepted by the URL loader.
var defaultAllowedHosts = []string{
	"wikipedia.org",
	"wikibooks.org",
	"wiktionary.org",
	"wikiquote.org",
	"wikisource.org",
	"wikiversity.org",
	"wikivoyage.org",
	"wikinews.org",
	"mediawiki.org",
	"wikimedia.org",
}

const (
	rendererServer = "server"
	rendererChrome = "chrome"
	rendererLocal  = "local"
)

// bookConfig holds the EPUB-level metadata.
type bookConfig struct {
	Title    string
	Author   string
	Language string
	Cover    bool
}

// pdfConfig controls the alternate PDF pipeline.
type pdfConfig struct {
	Renderer string
	TempDir  string
	KeepTemp bool
}

// Config is built once per run and handed to every component.
type Config struct {
	UserAgent       string
	FetchTimeout    time.Duration
	RenderTimeout   time.Duration
	DownloadTimeout time.Duration
	Delay           time.Duration
	PDFDelay        time.Duration

	// MaxResponseBytes caps buffered response bodies; 0 means unlimited.
	MaxResponseBytes int64

	AllowedHosts []string

	Proxy                string
	BrowserTLS           bool
	AllowPrivateNetworks bool
	RespectRobots        bool

	Book bookConfig
	PDF  pdfConfig

	Output   string
	LogLevel string
	Silent   bool
}

func defaultConfig() *Config {
	return &Config{
		UserAgent:        defaultUA,
		FetchTimeout:     30 * time.Second,
		RenderTimeout:    60 * time.Second,
		DownloadTimeout:  180 * time.Second,
		Delay:            1500 * time.Millisecond,
		PDFDelay:         time.Second,
		MaxResponseBytes: 128 * 1024 * 1024,
		AllowedHosts:     append([]string(nil), defaultAllowedHosts...),
		RespectRobots:    true,
		Book: bookConfig{
			Title:    "Wikipedia Article Compilation",
			Author:   "Wikipedia Contributors",
			Language: "en",
		},
		PDF: pdfConfig{
			Renderer: rendererServer,
		},
		LogLevel: "info",
	}
}

// yamlDuration decodes Go duration strings ("45s", "1m30s").
type yamlDuration time.Duration

func (d *yamlDuration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = yamlDuration(parsed)
	return nil
}

// Settings mirrors the YAML settings file. Pointer fields distinguish
// "not present" from a zero value.
type Settings struct {
	UserAgent            *string       `yaml:"user_agent"`
	FetchTimeout         *yamlDuration `yaml:"fetch_timeout"`
	RenderTimeout        *yamlDuration `yaml:"render_timeout"`
	DownloadTimeout      *yamlDuration `yaml:"download_timeout"`
	Delay                *yamlDuration `yaml:"delay"`
	PDFDelay             *yamlDuration `yaml:"pdf_delay"`
	MaxResponseBytes     *int64        `yaml:"max_response_bytes"`
	AllowedHosts         []string      `yaml:"allowed_hosts"`
	Proxy                *string       `yaml:"proxy"`
	BrowserTLS           *bool         `yaml:"browser_tls"`
	AllowPrivateNetworks *bool         `yaml:"allow_private_networks"`
	RespectRobots        *bool         `yaml:"respect_robots"`
	LogLevel             *string       `yaml:"log_level"`
	Book                 struct {
		Title    *string `yaml:"title"`
		Author   *string `yaml:"author"`
		Language *string `yaml:"language"`
		Cover    *bool   `yaml:"cover"`
	} `yaml:"book"`
	PDF struct {
		Renderer *string `yaml:"renderer"`
		TempDir  *string `yaml:"temp_dir"`
		KeepTemp *bool   `yaml:"keep_temp"`
	} `yaml:"pdf"`
}

// loadSettings reads and decodes a YAML settings file. Unknown keys are
// rejected so typos surface instead of being silently ignored.
func loadSettings(path string) (*Settings, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s Settings
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &s, nil
}

// apply copies every field present in s onto cfg.
func (s *Settings) apply(cfg *Config) {
	setString(&cfg.UserAgent, s.UserAgent)
	setDuration(&cfg.FetchTimeout, s.FetchTimeout)
	setDuration(&cfg.RenderTimeout, s.RenderTimeout)
	setDuration(&cfg.DownloadTimeout, s.DownloadTimeout)
	setDuration(&cfg.Delay, s.Delay)
	setDuration(&cfg.PDFDelay, s.PDFDelay)
	if s.MaxResponseBytes != nil {
		cfg.MaxResponseBytes = *s.MaxResponseBytes
	}
	if len(s.AllowedHosts) > 0 {
		cfg.AllowedHosts = append([]string(nil), s.AllowedHosts...)
	}
	setString(&cfg.Proxy, s.Proxy)
	setBool(&cfg.BrowserTLS, s.BrowserTLS)
	setBool(&cfg.AllowPrivateNetworks, s.AllowPrivateNetworks)
	setBool(&cfg.RespectRobots, s.RespectRobots)
	setString(&cfg.LogLevel, s.LogLevel)

	setString(&cfg.Book.Title, s.Book.Title)
	setString(&cfg.Book.Author, s.Book.Author)
	setString(&cfg.Book.Language, s.Book.Language)
	setBool(&cfg.Book.Cover, s.Book.Cover)

	setString(&cfg.PDF.Renderer, s.PDF.Renderer)
	setString(&cfg.PDF.TempDir, s.PDF.TempDir)
	setBool(&cfg.PDF.KeepTemp, s.PDF.KeepTemp)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *yamlDuration) {
	if v != nil {
		*dst = time.Duration(*v)
	}
}

// validate reports every invalid setting at once.
func (c *Config) validate() error {
	var errs []error
	if c.UserAgent == "" {
		errs = append(errs, errors.New("user agent must not be empty"))
	}
	for name, d := range map[string]time.Duration{
		"fetch timeout":    c.FetchTimeout,
		"render timeout":   c.RenderTimeout,
		"download timeout": c.DownloadTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	if c.Delay < 0 || c.PDFDelay < 0 {
		errs = append(errs, errors.New("delays must not be negative"))
	}
	if c.MaxResponseBytes < 0 {
		errs = append(errs, errors.New("max response bytes must not be negative"))
	}
	if len(c.AllowedHosts) == 0 {
		errs = append(errs, errors.New("at least one allowed host is required"))
	}
	switch c.PDF.Renderer {
	case rendererServer, rendererChrome, rendererLocal:
	default:
		errs = append(errs, fmt.Errorf("unknown pdf renderer %q (want server, chrome or local)", c.PDF.Renderer))
	}
	return errors.Join(errs...)
}
