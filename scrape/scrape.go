package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
	"github.com/foomo/contentserver-pagecontext/service/vo"
	"golang.org/x/net/html"
)

// Page is what a scrape extracts from a rendered page.
type Page struct {
	Summary     *vo.DocumentSummary
	Markdown    vo.Markdown
	BodyClasses []string
	// SelectorMissed is set when selector matched no node; Markdown stays
	// empty but the rest of the page is still usable.
	SelectorMissed bool
}

// Scrape downloads url, extracts its meta data and body classes and converts
// the node matching selector to markdown. An empty selector skips the
// markdown conversion, a selector without match leaves it empty.
func Scrape(ctx context.Context, client *http.Client, url, selector string) (*Page, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download HTML: %w", err)
	}
	defer resp.Body.Close()

	// 404 pages still carry their classification in the body classes
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		return nil, fmt.Errorf("HTTP request failed with status: %d", resp.StatusCode)
	}

	page, err := Parse(resp.Body, selector)
	if err != nil {
		return nil, err
	}
	page.Summary.URL = url
	return page, nil
}

// Parse extracts a Page from an HTML document.
func Parse(r io.Reader, selector string) (*Page, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	doc := goquery.NewDocumentFromNode(root)

	page := &Page{
		Summary: &vo.DocumentSummary{
			ContentSummary: vo.ContentSummary{
				Title:       strings.TrimSpace(doc.Find("title").First().Text()),
				Description: metaContent(doc, "description"),
				Keywords:    metaKeywords(doc),
			},
		},
		BodyClasses: bodyClasses(doc),
	}

	if selector == "" {
		return page, nil
	}
	selection := doc.Find(selector).First()
	if selection.Length() == 0 {
		page.SelectorMissed = true
		return page, nil
	}
	markdownBytes, err := htmltomarkdown.ConvertNode(selection.Get(0))
	if err != nil {
		return nil, fmt.Errorf("failed to convert HTML to markdown: %w", err)
	}
	page.Markdown = vo.Markdown(markdownBytes)
	return page, nil
}

func metaContent(doc *goquery.Document, name string) string {
	content, _ := doc.Find(`meta[name="` + name + `"]`).First().Attr("content")
	return strings.TrimSpace(content)
}

func metaKeywords(doc *goquery.Document) []string {
	var keywords []string
	for _, keyword := range strings.Split(metaContent(doc, "keywords"), ",") {
		if trimmed := strings.TrimSpace(keyword); trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}
	return keywords
}

func bodyClasses(doc *goquery.Document) []string {
	class, _ := doc.Find("body").First().Attr("class")
	return strings.Fields(class)
}
