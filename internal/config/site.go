package config

import "strings"

// SiteConfig holds crawl overrides for a single host.
type SiteConfig struct {
	// Cookie is sent as the Cookie header, e.g. "name=value; other=1".
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers for requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// MaxSubpages overrides the subpage budget when positive.
	MaxSubpages int `yaml:"maxSubpages,omitempty"`

	// RespectRobots overrides the global robots.txt setting when set.
	RespectRobots *bool `yaml:"respectRobots,omitempty"`

	// UserAgent overrides the User-Agent header.
	UserAgent string `yaml:"userAgent,omitempty"`
}

// File is the structure of the .contactscan configuration file.
type File struct {
	// Sites maps host names (without scheme or "www.") to their overrides.
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults apply to every site unless a site entry overrides them.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over the defaults.
// Host lookup ignores case and a leading "www.".
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if len(cf.Defaults.Headers) > 0 {
		result.Headers = make(map[string]string, len(cf.Defaults.Headers))
		for k, v := range cf.Defaults.Headers {
			result.Headers[k] = v
		}
	}

	siteConfig, ok := cf.lookup(host)
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.MaxSubpages != 0 {
		result.MaxSubpages = siteConfig.MaxSubpages
	}
	if siteConfig.RespectRobots != nil {
		result.RespectRobots = siteConfig.RespectRobots
	}
	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string)
		}
		for k, v := range siteConfig.Headers {
			result.Headers[k] = v
		}
	}

	return result
}

func (cf *File) lookup(host string) (SiteConfig, bool) {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	if sc, ok := cf.Sites[host]; ok {
		return sc, true
	}
	for key, sc := range cf.Sites {
		if strings.TrimPrefix(strings.ToLower(key), "www.") == host {
			return sc, true
		}
	}
	return SiteConfig{}, false
}
