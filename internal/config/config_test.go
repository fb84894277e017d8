package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/contactscan/internal/model"
)

// TestNewConfig documents the defaults.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 10 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 10*time.Second {
			t.Errorf("expected Timeout to be 10s, got %v", cfg.Timeout)
		}
	})

	t.Run("default MaxSubpages is 10", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxSubpages != 10 {
			t.Errorf("expected MaxSubpages to be 10, got %d", cfg.MaxSubpages)
		}
	})

	t.Run("default MaxRetries is 2", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxRetries != 2 {
			t.Errorf("expected MaxRetries to be 2, got %d", cfg.MaxRetries)
		}
	})

	t.Run("default delay is 1-3 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.DelayMin != time.Second || cfg.DelayMax != 3*time.Second {
			t.Errorf("expected 1s-3s, got %v-%v", cfg.DelayMin, cfg.DelayMax)
		}
	})

	t.Run("default render timing", func(t *testing.T) {
		t.Parallel()
		if cfg.RenderWait != 10*time.Second || cfg.RenderTimeout != 60*time.Second {
			t.Errorf("expected 10s/60s, got %v/%v", cfg.RenderWait, cfg.RenderTimeout)
		}
	})

	t.Run("rendering is on by default", func(t *testing.T) {
		t.Parallel()
		if !cfg.Render {
			t.Error("expected Render to default to true")
		}
	})

	t.Run("workers are sized automatically", func(t *testing.T) {
		t.Parallel()
		if cfg.Workers != 0 {
			t.Errorf("expected Workers to be 0, got %d", cfg.Workers)
		}
	})
}

// TestConfigValidate tests configuration validation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := NewConfig()
		cfg.Targets = []string{"acme.io"}
		return cfg
	}

	tests := []struct {
		name   string
		modify func(*Config)
		want   error
	}{
		{name: "valid config", modify: func(*Config) {}},
		{name: "no targets", modify: func(c *Config) { c.Targets = nil }, want: ErrNoTarget},
		{name: "zero timeout", modify: func(c *Config) { c.Timeout = 0 }, want: ErrInvalidTimeout},
		{name: "negative subpages", modify: func(c *Config) { c.MaxSubpages = -1 }, want: ErrInvalidMaxSubpages},
		{name: "zero subpages is valid", modify: func(c *Config) { c.MaxSubpages = 0 }},
		{name: "negative retries", modify: func(c *Config) { c.MaxRetries = -1 }, want: ErrInvalidMaxRetries},
		{name: "min above max delay", modify: func(c *Config) { c.DelayMin = 5 * time.Second }, want: ErrInvalidDelay},
		{name: "negative delay", modify: func(c *Config) { c.DelayMin = -time.Second }, want: ErrInvalidDelay},
		{name: "zero delay is valid", modify: func(c *Config) { c.DelayMin, c.DelayMax = 0, 0 }},
		{name: "negative workers", modify: func(c *Config) { c.Workers = -2 }, want: ErrInvalidWorkers},
		{
			name:   "render wait above timeout",
			modify: func(c *Config) { c.RenderWait = 2 * time.Minute },
			want:   ErrInvalidRenderTimeout,
		},
		{
			name:   "render timing ignored without render",
			modify: func(c *Config) { c.Render = false; c.RenderWait = 2 * time.Minute },
		},
		{
			name:   "json and markdown",
			modify: func(c *Config) { c.JSONReport, c.MarkdownReport = true, true },
			want:   ErrConflictingReportFormats,
		},
		{name: "negative body size", modify: func(c *Config) { c.MaxBodySize = -1 }, want: ErrInvalidMaxBodySize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.modify(cfg)
			err := cfg.Validate()

			if tt.want == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	t.Run("ValidateSettings ignores targets", func(t *testing.T) {
		t.Parallel()

		if err := NewConfig().ValidateSettings(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

// TestConfigJobFor tests building crawl jobs from configuration.
func TestConfigJobFor(t *testing.T) {
	t.Parallel()

	t.Run("copies global settings", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.MaxSubpages = 3
		cfg.MaxRetries = 1
		cfg.DelayMin, cfg.DelayMax = 0, 0
		cfg.RespectRobots = true

		job := cfg.JobFor("acme.io")
		if job.Seed != "acme.io" {
			t.Errorf("expected seed acme.io, got %q", job.Seed)
		}
		if job.MaxSubpages != 3 || job.MaxRetries != 1 {
			t.Errorf("unexpected budgets: %+v", job)
		}
		if job.Delay != (model.DelayRange{}) {
			t.Errorf("expected zero delay, got %+v", job.Delay)
		}
		if !job.RespectRobots {
			t.Error("expected RespectRobots")
		}
		if job.UserAgent != model.DefaultUserAgent {
			t.Errorf("expected default user agent, got %q", job.UserAgent)
		}
	})

	t.Run("applies site overrides", func(t *testing.T) {
		t.Parallel()

		no := false
		cfg := NewConfig()
		cfg.RespectRobots = true
		cfg.SiteConfigs = &File{
			Defaults: SiteConfig{Headers: map[string]string{"Accept-Language": "en"}},
			Sites: map[string]SiteConfig{
				"acme.io": {
					Cookie:        "session=abc",
					MaxSubpages:   25,
					RespectRobots: &no,
					Headers:       map[string]string{"X-Token": "t"},
				},
			},
		}

		job := cfg.JobFor("https://WWW.acme.io/home")
		if job.MaxSubpages != 25 {
			t.Errorf("expected 25 subpages, got %d", job.MaxSubpages)
		}
		if job.RespectRobots {
			t.Error("expected site to disable robots")
		}
		if got := job.Headers.Get("Cookie"); got != "session=abc" {
			t.Errorf("expected cookie header, got %q", got)
		}
		if got := job.Headers.Get("X-Token"); got != "t" {
			t.Errorf("expected site header, got %q", got)
		}
		if got := job.Headers.Get("Accept-Language"); got != "en" {
			t.Errorf("expected default header, got %q", got)
		}
	})

	t.Run("other hosts only get defaults", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.SiteConfigs = &File{
			Sites: map[string]SiteConfig{"acme.io": {MaxSubpages: 25}},
		}
		if job := cfg.JobFor("other.io"); job.MaxSubpages != cfg.MaxSubpages {
			t.Errorf("expected global budget, got %d", job.MaxSubpages)
		}
	})
}

// TestHostOf tests host extraction for site lookups.
func TestHostOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "acme.io", want: "acme.io"},
		{in: "https://www.Acme.io/contact", want: "acme.io"},
		{in: "http://acme.io:8080", want: "acme.io"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		if got := HostOf(tt.in); got != tt.want {
			t.Errorf("HostOf(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// TestFileGetSiteConfig tests merging site overrides over defaults.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	t.Run("returns defaults when site not found", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{Cookie: "d=1", MaxSubpages: 4},
			Sites:    map[string]SiteConfig{},
		}
		sc := cf.GetSiteConfig("unknown.io")
		if sc.Cookie != "d=1" || sc.MaxSubpages != 4 {
			t.Errorf("expected defaults, got %+v", sc)
		}
	})

	t.Run("site headers override default headers", func(t *testing.T) {
		t.Parallel()

		cf := &File{
			Defaults: SiteConfig{Headers: map[string]string{"A": "1", "B": "1"}},
			Sites:    map[string]SiteConfig{"acme.io": {Headers: map[string]string{"B": "2"}}},
		}
		sc := cf.GetSiteConfig("acme.io")
		if sc.Headers["A"] != "1" || sc.Headers["B"] != "2" {
			t.Errorf("unexpected headers %v", sc.Headers)
		}
		if cf.Defaults.Headers["B"] != "1" {
			t.Error("merging must not modify the defaults")
		}
	})

	t.Run("lookup ignores case and www", func(t *testing.T) {
		t.Parallel()

		cf := &File{Sites: map[string]SiteConfig{"www.Acme.io": {Cookie: "x=1"}}}
		if sc := cf.GetSiteConfig("acme.io"); sc.Cookie != "x=1" {
			t.Errorf("expected site match, got %+v", sc)
		}
	})

	t.Run("nil sites map", func(t *testing.T) {
		t.Parallel()

		cf := &File{Defaults: SiteConfig{Cookie: "d=1"}}
		if sc := cf.GetSiteConfig("acme.io"); sc.Cookie != "d=1" {
			t.Errorf("expected defaults, got %+v", sc)
		}
	})
}

// TestLoadConfigFile tests reading the YAML site file.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		content := `defaults:
  headers:
    Accept-Language: en-US
sites:
  WWW.Acme.io:
    cookie: "session=abc"
    maxSubpages: 20
    respectRobots: true
`
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		sc, ok := cf.Sites["acme.io"]
		if !ok {
			t.Fatalf("expected normalized site key, got %v", cf.Sites)
		}
		if sc.Cookie != "session=abc" || sc.MaxSubpages != 20 {
			t.Errorf("unexpected site config %+v", sc)
		}
		if sc.RespectRobots == nil || !*sc.RespectRobots {
			t.Error("expected respectRobots true")
		}
		if cf.Defaults.Headers["Accept-Language"] != "en-US" {
			t.Errorf("unexpected defaults %+v", cf.Defaults)
		}
	})

	t.Run("rejects unknown keys", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("sites:\n  acme.io:\n    maxSubpage: 3\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfigFile(path); err == nil {
			t.Error("expected error for unknown key")
		}
	})

	t.Run("empty file is valid", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatal(err)
		}
		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cf.Sites == nil {
			t.Error("expected initialized Sites map")
		}
	})
}

// TestFindConfigFile tests config file discovery.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(path, []byte("sites: {}\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := FindConfigFile(path); got != path {
			t.Errorf("expected %q, got %q", path, got)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if got := FindConfigFile(filepath.Join(t.TempDir(), "nope")); got != "" {
			t.Errorf("expected empty, got %q", got)
		}
	})

	t.Run("searches the XDG config directory last", func(t *testing.T) {
		t.Parallel()

		candidates := configCandidates()
		if len(candidates) == 0 {
			t.Fatal("expected candidates")
		}
		want := filepath.Join(XDGConfigDir(), XDGConfigFile)
		if got := candidates[len(candidates)-1]; got != want {
			t.Errorf("expected last candidate %q, got %q", want, got)
		}
	})

	t.Run("first existing candidate wins", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		local := filepath.Join(dir, DefaultConfigFile)
		xdgFile := filepath.Join(dir, AppName, XDGConfigFile)
		if err := os.MkdirAll(filepath.Dir(xdgFile), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(xdgFile, []byte("sites: {}\n"), 0o600); err != nil {
			t.Fatal(err)
		}

		if got := firstExisting([]string{local, xdgFile}); got != xdgFile {
			t.Errorf("expected %q, got %q", xdgFile, got)
		}
		if err := os.WriteFile(local, []byte("sites: {}\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		if got := firstExisting([]string{local, xdgFile}); got != local {
			t.Errorf("expected %q, got %q", local, got)
		}
	})

	t.Run("directories are skipped", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		if got := firstExisting([]string{dir}); got != "" {
			t.Errorf("expected empty, got %q", got)
		}
	})
}

// TestLoadSiteConfigs tests loading overrides into a Config.
func TestLoadSiteConfigs(t *testing.T) {
	t.Parallel()

	t.Run("explicit missing file is an error", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ConfigFilePath = filepath.Join(t.TempDir(), "missing.yaml")
		if err := cfg.LoadSiteConfigs(); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("explicit file is loaded", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), "sites.yaml")
		if err := os.WriteFile(path, []byte("sites:\n  acme.io:\n    maxSubpages: 2\n"), 0o600); err != nil {
			t.Fatal(err)
		}
		cfg := NewConfig()
		cfg.ConfigFilePath = path
		if err := cfg.LoadSiteConfigs(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.JobFor("acme.io").MaxSubpages != 2 {
			t.Error("expected site override to apply")
		}
	})
}

// TestXDGDirs tests XDG directory helpers.
func TestXDGDirs(t *testing.T) {
	t.Parallel()

	if dir := XDGDataDir(); filepath.Base(dir) != AppName {
		t.Errorf("expected data dir to end in %q, got %q", AppName, dir)
	}
	if dir := XDGConfigDir(); filepath.Base(dir) != AppName {
		t.Errorf("expected config dir to end in %q, got %q", AppName, dir)
	}
}
