// Package config loads the YAML configuration of the page context server.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/foomo/contentserver-pagecontext/pagecontext"
	"github.com/foomo/contentserver-pagecontext/pagestate"
	"github.com/foomo/contentserver-pagecontext/service"
	"github.com/foomo/contentserver/requests"
	"gopkg.in/yaml.v3"
)

// Config represents the complete server configuration
type Config struct {
	Site   SiteConfig   `yaml:"site"`
	Server ServerConfig `yaml:"server"`
}

// SiteConfig describes the site whose pages are classified
type SiteConfig struct {
	// BaseURL is prefixed to relative paths before scraping
	BaseURL string `yaml:"baseURL"`
	// ContentServerURL enables path lookups (empty = disabled)
	ContentServerURL string `yaml:"contentServerURL"`
	// ContentSelector picks the node converted to markdown
	ContentSelector string   `yaml:"contentSelector"`
	Dimensions      []string `yaml:"dimensions"`
	Groups          []string `yaml:"groups"`
	// FrontPageURI is the content server URI of the front page
	FrontPageURI string `yaml:"frontPageURI"`
	// FrontPage is one of posts, page or none
	FrontPage pagestate.FrontPageMode `yaml:"frontPage"`
	// MimeTypes maps content server mime types to page kinds
	MimeTypes map[string]RuleConfig `yaml:"mimeTypes"`
	DataKeys  DataKeysConfig        `yaml:"dataKeys"`
	// TemplateExtensions are stripped from custom template slugs
	TemplateExtensions []string `yaml:"templateExtensions"`
}

// RuleConfig is the textual form of pagestate.Rule
type RuleConfig struct {
	Kind     string `yaml:"kind"`
	Singular string `yaml:"singular"`
	Archive  string `yaml:"archive"`
	PostType string `yaml:"postType"`
	Taxonomy string `yaml:"taxonomy"`
}

// DataKeysConfig overrides the content item data keys
type DataKeysConfig struct {
	ID        string `yaml:"id"`
	Slug      string `yaml:"slug"`
	Type      string `yaml:"type"`
	Template  string `yaml:"template"`
	MimeType  string `yaml:"mimeType"`
	Taxonomy  string `yaml:"taxonomy"`
	PostTypes string `yaml:"postTypes"`
}

// ServerConfig configures the MCP transports
type ServerConfig struct {
	// HTTP is the listen address (empty = stdio)
	HTTP     string    `yaml:"http"`
	Endpoint string    `yaml:"endpoint"`
	SSE      SSEConfig `yaml:"sse"`
}

type SSEConfig struct {
	KeepaliveInterval time.Duration `yaml:"keepaliveInterval"`
	BufferSize        int           `yaml:"bufferSize"`
	ClientTimeout     time.Duration `yaml:"clientTimeout"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ContentSelector:    "main",
			FrontPageURI:       "/",
			FrontPage:          pagestate.FrontPagePosts,
			TemplateExtensions: []string{".php"},
		},
		Server: ServerConfig{
			Endpoint: "/mcp",
			SSE: SSEConfig{
				KeepaliveInterval: 30 * time.Second,
				BufferSize:        100,
				ClientTimeout:     60 * time.Second,
			},
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Endpoint == "" {
		return fmt.Errorf("server.endpoint is required")
	}
	if c.Server.SSE.BufferSize < 0 {
		return fmt.Errorf("server.sse.bufferSize must not be negative")
	}
	switch c.Site.FrontPage {
	case pagestate.FrontPagePosts, pagestate.FrontPagePage, pagestate.FrontPageNone:
	default:
		return fmt.Errorf("site.frontPage must be one of posts, page or none, got %q", c.Site.FrontPage)
	}
	for mimeType, rule := range c.Site.MimeTypes {
		if _, err := rule.Rule(); err != nil {
			return fmt.Errorf("site.mimeTypes[%s]: %w", mimeType, err)
		}
	}
	return nil
}

// Rule parses the textual kinds
func (r RuleConfig) Rule() (pagestate.Rule, error) {
	kind, err := pagecontext.ParseKind(r.Kind)
	if err != nil {
		return pagestate.Rule{}, err
	}
	singular, err := pagecontext.ParseSingularKind(r.Singular)
	if err != nil {
		return pagestate.Rule{}, err
	}
	archive, err := pagecontext.ParseArchiveKind(r.Archive)
	if err != nil {
		return pagestate.Rule{}, err
	}
	return pagestate.Rule{
		Kind:         kind,
		SingularKind: singular,
		ArchiveKind:  archive,
		PostType:     r.PostType,
		Taxonomy:     r.Taxonomy,
	}, nil
}

// SiteSettings converts the site section for the service. Call Validate first.
func (c *Config) SiteSettings() service.SiteSettings {
	rules := make(map[string]pagestate.Rule, len(c.Site.MimeTypes))
	for mimeType, rc := range c.Site.MimeTypes {
		if rule, err := rc.Rule(); err == nil {
			rules[mimeType] = rule
		}
	}
	return service.SiteSettings{
		Env: &requests.Env{
			Dimensions: c.Site.Dimensions,
			Groups:     c.Site.Groups,
		},
		ContentSelector:  c.Site.ContentSelector,
		BaseURL:          c.Site.BaseURL,
		ContentServerURL: c.Site.ContentServerURL,
		State: pagestate.Settings{
			FrontPageURI: c.Site.FrontPageURI,
			FrontPage:    c.Site.FrontPage,
			Rules:        rules,
			DataKeys:     c.Site.DataKeys.merge(pagestate.DefaultDataKeys()),
		},
	}
}

func (d DataKeysConfig) merge(keys pagestate.DataKeys) pagestate.DataKeys {
	set := func(target *string, value string) {
		if value != "" {
			*target = value
		}
	}
	set(&keys.ID, d.ID)
	set(&keys.Slug, d.Slug)
	set(&keys.Type, d.Type)
	set(&keys.Template, d.Template)
	set(&keys.MimeType, d.MimeType)
	set(&keys.Taxonomy, d.Taxonomy)
	set(&keys.PostTypes, d.PostTypes)
	return keys
}

// Resolver builds the page context resolver the site uses
func (c *Config) Resolver() *pagecontext.Resolver {
	return pagecontext.NewResolver(pagecontext.WithTemplateExtensions(c.Site.TemplateExtensions...))
}

// LoadFromFile loads configuration from a YAML file
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}
	return config, nil
}
