package config

import (
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/contactscan/internal/model"
)

const (
	// AppName is the application name used for XDG directory paths.
	AppName = "contactscan"

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB
)

// Config holds all configuration options for contactscan.
// It is populated from CLI flags and passed down explicitly.
type Config struct {
	// Timeout is the per-request connection timeout.
	Timeout time.Duration

	// MaxSubpages is the number of non-seed pages visited per site.
	MaxSubpages int

	// MaxRetries is the number of retries after a failed fetch attempt.
	MaxRetries int

	// RenderWait is how long the network must stay idle before a rendered
	// page is read. Only used with Render.
	RenderWait time.Duration

	// RenderTimeout caps the time spent rendering one page.
	RenderTimeout time.Duration

	// DelayMin and DelayMax bound the random pause before each subpage.
	DelayMin time.Duration
	DelayMax time.Duration

	// Workers fixes the number of concurrent site crawls.
	// Zero sizes the pool from the batch size and CPU count.
	Workers int

	// Render uses headless Chrome, falling back to plain HTTP when no
	// browser is installed.
	Render bool

	// ProxyAddress routes HTTP fetches through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// RespectRobots skips subpages disallowed by robots.txt.
	RespectRobots bool

	// Verbose enables debug logging.
	Verbose bool

	// LogJSON switches log output to JSON.
	LogJSON bool

	// LogEmails disables masking of addresses in log output.
	LogEmails bool

	// JSONReport and MarkdownReport select the report format.
	// They are mutually exclusive; neither means plain text.
	JSONReport     bool
	MarkdownReport bool

	// ReportFile writes the report to a file instead of stdout.
	ReportFile string

	// Targets are the site URLs to crawl.
	Targets []string

	// ConfigFilePath is an explicit path to the site configuration file.
	// When empty, .contactscan is searched in the current and home directories.
	ConfigFilePath string

	// SiteConfigs holds per-site overrides loaded from the config file.
	SiteConfigs *File

	// DBDir is the directory holding the result history database.
	DBDir string

	// SaveToDB stores results in the history database.
	SaveToDB bool
}

// NewConfig creates a Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:       model.DefaultTimeout,
		MaxSubpages:   model.DefaultMaxSubpages,
		MaxRetries:    model.DefaultMaxRetries,
		RenderWait:    model.DefaultRenderWait,
		RenderTimeout: model.DefaultRenderTimeout,
		DelayMin:      model.DefaultDelayMin,
		DelayMax:      model.DefaultDelayMax,
		UserAgent:     model.DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
		Render:        true,
	}
}

// XDGDataDir returns the XDG data directory for contactscan.
// On Linux: ~/.local/share/contactscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for contactscan.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	return c.ValidateSettings()
}

// ValidateSettings checks everything except the target list. The web server
// uses it because its targets arrive with each upload.
func (c *Config) ValidateSettings() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxSubpages < 0 {
		return ErrInvalidMaxSubpages
	}
	if c.MaxRetries < 0 {
		return ErrInvalidMaxRetries
	}
	if c.DelayMin < 0 || c.DelayMax < 0 || c.DelayMin > c.DelayMax {
		return ErrInvalidDelay
	}
	if c.Workers < 0 {
		return ErrInvalidWorkers
	}
	if c.Render && (c.RenderWait <= 0 || c.RenderTimeout <= 0 || c.RenderWait > c.RenderTimeout) {
		return ErrInvalidRenderTimeout
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}

// JobFor returns the crawl job for seed, applying any site overrides from
// the configuration file.
func (c *Config) JobFor(seed string) model.CrawlJob {
	job := model.NewCrawlJob(seed)
	job.MaxSubpages = c.MaxSubpages
	job.MaxRetries = c.MaxRetries
	job.Timeout = c.Timeout
	job.RenderWait = c.RenderWait
	job.RenderTimeout = c.RenderTimeout
	job.Delay = model.DelayRange{Min: c.DelayMin, Max: c.DelayMax}
	job.RespectRobots = c.RespectRobots
	if c.UserAgent != "" {
		job.UserAgent = c.UserAgent
	}

	if c.SiteConfigs == nil {
		return job
	}

	site := c.SiteConfigs.GetSiteConfig(HostOf(seed))
	if site.MaxSubpages > 0 {
		job.MaxSubpages = site.MaxSubpages
	}
	if site.RespectRobots != nil {
		job.RespectRobots = *site.RespectRobots
	}
	if site.UserAgent != "" {
		job.UserAgent = site.UserAgent
	}

	headers := make(http.Header, len(site.Headers)+1)
	for k, v := range site.Headers {
		headers.Set(k, v)
	}
	if site.Cookie != "" {
		headers.Set("Cookie", site.Cookie)
	}
	job.Headers = headers

	return job
}

// HostOf returns the lowercase host name of seed without port or "www.".
// It returns "" when seed cannot be parsed.
func HostOf(seed string) string {
	u, err := url.Parse(model.NormalizeSeed(seed))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
