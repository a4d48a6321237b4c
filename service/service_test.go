package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/foomo/contentserver-pagecontext/pagecontext"
	"github.com/foomo/contentserver-pagecontext/pagestate"
	"github.com/foomo/contentserver/content"
	"github.com/foomo/contentserver/requests"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type contentLoaderFunc func(ctx context.Context, cmd *requests.Content) (*content.SiteContent, error)

func (f contentLoaderFunc) GetContent(ctx context.Context, cmd *requests.Content) (*content.SiteContent, error) {
	return f(ctx, cmd)
}

func testSiteSettings() SiteSettings {
	return SiteSettings{
		Env:             &requests.Env{Dimensions: []string{"en"}},
		ContentSelector: "main",
		State: pagestate.Settings{
			FrontPageURI: "/",
			FrontPage:    pagestate.FrontPagePosts,
			DataKeys:     pagestate.DefaultDataKeys(),
			Rules: map[string]pagestate.Rule{
				"application/x-category": {
					Kind:        pagecontext.KindArchive,
					ArchiveKind: pagecontext.ArchiveCategory,
					Taxonomy:    "category",
				},
			},
		},
	}
}

func TestResolveState(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := NewService(testSiteSettings(), WithRegisterer(reg), WithLogger(zap.NewNop())).(*service)

	pc := s.ResolveState(context.Background(), pagecontext.PageState{Kind: pagecontext.KindNotFound})
	assert.Equal(t, pagecontext.Context{"404"}, pc.Context)
	s.ResolveState(context.Background(), pagecontext.PageState{})

	assert.InDelta(t, 1, testutil.ToFloat64(s.resolutions.WithLabelValues("not-found")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(s.resolutions.WithLabelValues("none")), 0)
}

func TestResolvePath(t *testing.T) {
	var got *requests.Content
	loader := contentLoaderFunc(func(ctx context.Context, cmd *requests.Content) (*content.SiteContent, error) {
		got = cmd
		return &content.SiteContent{
			Status:   content.StatusOk,
			URI:      cmd.URI,
			MimeType: "application/x-category",
			Item: &content.Item{
				ID:       "news",
				URI:      cmd.URI,
				MimeType: "application/x-category",
				Data:     map[string]interface{}{"id": 7, "slug": "News"},
			},
		}, nil
	})
	s := NewService(testSiteSettings(), WithContentLoader(loader))

	pc, err := s.ResolvePath(context.Background(), "/news")
	require.NoError(t, err)
	assert.Equal(t, "/news", pc.Path)
	assert.Equal(t, pagecontext.Context{"category-news", "category-7", "category", "archive"}, pc.Context)
	require.NotNil(t, got)
	assert.Equal(t, []string{"en"}, got.Env.Dimensions)
}

func TestResolvePathErrors(t *testing.T) {
	_, err := NewService(SiteSettings{}).ResolvePath(context.Background(), "/")
	require.ErrorIs(t, err, ErrNoContentServer)

	boom := errors.New("boom")
	s := NewService(testSiteSettings(), WithContentLoader(contentLoaderFunc(func(context.Context, *requests.Content) (*content.SiteContent, error) {
		return nil, boom
	})))
	_, err = s.ResolvePath(context.Background(), "/news")
	require.ErrorIs(t, err, boom)
}

func TestResolveURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Hello</title></head>
<body class="single single-post postid-42"><main><p>Hi</p></main></body></html>`))
	}))
	defer server.Close()

	settings := testSiteSettings()
	settings.BaseURL = server.URL + "/"
	s := NewService(settings, WithHTTPClient(server.Client()))

	doc, err := s.ResolveURL(context.Background(), "/2024/01/Hello-World/", "")
	require.NoError(t, err)
	assert.Equal(t, "/2024/01/Hello-World/", doc.Path)
	assert.Equal(t, "Hello", doc.DocumentSummary.Title)
	assert.Equal(t, pagecontext.Context{"single-post-hello-world", "single-post", "single", "singular"}, doc.Context)
	assert.Contains(t, string(doc.Markdown), "Hi")
}

func TestResolveURLWithoutContentNode(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body class="home blog"><div id="content">Latest posts</div></body></html>`))
	}))
	defer server.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	settings := testSiteSettings()
	settings.BaseURL = server.URL
	s := NewService(settings, WithHTTPClient(server.Client()), WithLogger(zap.New(core)))

	doc, err := s.ResolveURL(context.Background(), "/", "")
	require.NoError(t, err)
	assert.Equal(t, pagecontext.Context{"front-page", "home"}, doc.Context)
	assert.Empty(t, doc.Markdown)
	assert.Equal(t, []string{"home", "blog"}, doc.BodyClasses)

	warnings := logs.FilterMessage("content selector did not match, markdown left empty").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "main", warnings[0].ContextMap()["selector"])
}

func TestSlugFromURL(t *testing.T) {
	assert.Equal(t, "hello", slugFromURL("https://example.com/blog/hello/"))
	assert.Equal(t, "", slugFromURL("https://example.com/"))
	assert.Equal(t, "", slugFromURL("://broken"))
}
