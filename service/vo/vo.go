package vo

import "github.com/foomo/contentserver-pagecontext/pagecontext"

type Markdown string

type ContentSummary struct {
	Title       string   `json:"title"`       // Page title
	Description string   `json:"description"` // Meta description
	Keywords    []string `json:"keywords"`    // Meta keywords
}

type DocumentSummary struct {
	URL            string `json:"url"`
	ContentSummary `json:"contentSummary"`
}

// PageContext pairs a resolved context with the state it was resolved from.
type PageContext struct {
	Path    string                `json:"path,omitempty"`
	State   pagecontext.PageState `json:"state"`
	Context pagecontext.Context   `json:"context"`
}

// Document is a scraped page together with its context.
type Document struct {
	DocumentSummary DocumentSummary `json:"summary"`
	Markdown        Markdown        `json:"markdown,omitempty"` // Selected content in markdown
	BodyClasses     []string        `json:"bodyClasses,omitempty"`
	PageContext
}
