package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/foomo/contentserver-pagecontext/pagecontext"
	"github.com/foomo/contentserver-pagecontext/pagestate"
	"github.com/foomo/contentserver-pagecontext/scrape"
	"github.com/foomo/contentserver-pagecontext/service/vo"
	contentserverclient "github.com/foomo/contentserver/client"
	"github.com/foomo/contentserver/content"
	"github.com/foomo/contentserver/requests"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ErrNoContentServer is returned by ResolvePath when no content server is configured.
var ErrNoContentServer = errors.New("no content server configured")

type Service interface {
	// ResolveState resolves a state the caller already built.
	ResolveState(ctx context.Context, state pagecontext.PageState) *vo.PageContext
	// ResolvePath looks path up on the content server and resolves the result.
	ResolvePath(ctx context.Context, path string) (*vo.PageContext, error)
	// ResolveURL scrapes a rendered page and resolves its body classes.
	ResolveURL(ctx context.Context, url, selector string) (*vo.Document, error)
}

// ContentLoader is the part of the content server client the service uses.
type ContentLoader interface {
	GetContent(ctx context.Context, cmd *requests.Content) (*content.SiteContent, error)
}

type SiteSettings struct {
	Env              *requests.Env
	ContentSelector  string
	BaseURL          string
	ContentServerURL string
	State            pagestate.Settings
}

type service struct {
	l             *zap.Logger
	contentLoader ContentLoader
	httpClient    *http.Client
	siteSettings  SiteSettings
	resolver      *pagecontext.Resolver
	resolutions   *prometheus.CounterVec
}

type Option func(s *service)

func WithLogger(l *zap.Logger) Option {
	return func(s *service) {
		if l != nil {
			s.l = l
		}
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(s *service) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithContentLoader replaces the HTTP content server client built from
// SiteSettings.ContentServerURL.
func WithContentLoader(loader ContentLoader) Option {
	return func(s *service) {
		s.contentLoader = loader
	}
}

func WithResolver(r *pagecontext.Resolver) Option {
	return func(s *service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithRegisterer registers the service metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *service) {
		if reg != nil {
			reg.MustRegister(s.resolutions)
		}
	}
}

func NewService(siteSettings SiteSettings, opts ...Option) Service {
	s := &service{
		l:            zap.NewNop(),
		httpClient:   http.DefaultClient,
		siteSettings: siteSettings,
		resolver:     pagecontext.NewResolver(),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pagecontext",
			Name:      "resolutions_total",
			Help:      "Number of resolved page contexts by page kind.",
		}, []string{"kind"}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.contentLoader == nil && siteSettings.ContentServerURL != "" {
		s.contentLoader = contentserverclient.New(
			contentserverclient.NewHTTPTransport(
				siteSettings.ContentServerURL,
				contentserverclient.HTTPTransportWithHTTPClient(s.httpClient),
			))
	}
	return s
}

func (s *service) ResolveState(ctx context.Context, state pagecontext.PageState) *vo.PageContext {
	c := s.resolver.GetContext(state)
	kind := state.Kind.String()
	if kind == "" {
		kind = "none"
	}
	s.resolutions.WithLabelValues(kind).Inc()
	s.l.Debug("resolved page context", zap.String("kind", kind), zap.Strings("context", c))
	return &vo.PageContext{State: state, Context: c}
}

func (s *service) ResolvePath(ctx context.Context, uri string) (*vo.PageContext, error) {
	if s.contentLoader == nil {
		return nil, ErrNoContentServer
	}
	siteContent, err := s.contentLoader.GetContent(ctx, &requests.Content{
		URI:   uri,
		Env:   s.siteSettings.Env,
		Nodes: map[string]*requests.Node{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load content for %q: %w", uri, err)
	}
	pc := s.ResolveState(ctx, pagestate.FromSiteContent(s.siteSettings.State, siteContent))
	pc.Path = uri
	return pc, nil
}

func (s *service) ResolveURL(ctx context.Context, rawURL, selector string) (*vo.Document, error) {
	if selector == "" {
		selector = s.siteSettings.ContentSelector
	}
	if strings.HasPrefix(rawURL, "/") {
		rawURL = strings.TrimSuffix(s.siteSettings.BaseURL, "/") + rawURL
	}
	page, err := scrape.Scrape(ctx, s.httpClient, rawURL, selector)
	if err != nil {
		return nil, err
	}
	if page.SelectorMissed {
		s.l.Warn("content selector did not match, markdown left empty", zap.String("url", rawURL), zap.String("selector", selector))
	}

	state := pagestate.FromBodyClasses(page.BodyClasses)
	if state.Post != nil && state.Post.Slug == "" {
		state.Post.Slug = slugFromURL(rawURL)
	}

	pc := s.ResolveState(ctx, state)
	if u, err := url.Parse(rawURL); err == nil {
		pc.Path = u.Path
	}
	return &vo.Document{
		DocumentSummary: *page.Summary,
		Markdown:        page.Markdown,
		BodyClasses:     page.BodyClasses,
		PageContext:     *pc,
	}, nil
}

// slugFromURL takes the last path segment, which is where permalinks keep
// the slug of the page or post.
func slugFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := strings.TrimSuffix(u.Path, "/")
	if p == "" {
		return ""
	}
	return path.Base(p)
}
