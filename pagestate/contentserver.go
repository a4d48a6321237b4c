// Package pagestate builds pagecontext.PageState snapshots from what a host
// knows about the current page: a content server lookup or the body classes
// of an already rendered page.
package pagestate

import (
	"strings"

	"github.com/foomo/contentserver-pagecontext/pagecontext"
	"github.com/foomo/contentserver/content"
	"github.com/spf13/cast"
)

// FrontPageMode tells what the site front page displays.
type FrontPageMode string

const (
	FrontPagePosts FrontPageMode = "posts"
	FrontPagePage  FrontPageMode = "page"
	FrontPageNone  FrontPageMode = "none"
)

// Rule classifies content items of one mime type.
type Rule struct {
	Kind         pagecontext.Kind
	SingularKind pagecontext.SingularKind
	ArchiveKind  pagecontext.ArchiveKind
	// PostType overrides the post type read from the item data.
	PostType string
	// Taxonomy overrides the taxonomy read from the item data.
	Taxonomy string
}

// DataKeys names the item data fields the mapping reads.
type DataKeys struct {
	ID        string
	Slug      string
	Type      string
	Template  string
	MimeType  string
	Taxonomy  string
	PostTypes string
}

func DefaultDataKeys() DataKeys {
	return DataKeys{
		ID:        "id",
		Slug:      "slug",
		Type:      "type",
		Template:  "template",
		MimeType:  "mimeType",
		Taxonomy:  "taxonomy",
		PostTypes: "postTypes",
	}
}

// Settings drive FromSiteContent.
type Settings struct {
	FrontPageURI string
	FrontPage    FrontPageMode
	Rules        map[string]Rule
	DataKeys     DataKeys
}

// FromSiteContent maps a content server response onto a PageState. Items
// whose mime type has no rule resolve to KindNone.
func FromSiteContent(settings Settings, siteContent *content.SiteContent) pagecontext.PageState {
	if siteContent == nil || siteContent.Status == content.StatusNotFound || siteContent.Item == nil {
		return pagecontext.PageState{Kind: pagecontext.KindNotFound}
	}
	keys := settings.DataKeys
	item := siteContent.Item

	if settings.FrontPageURI != "" && siteContent.URI == settings.FrontPageURI {
		state := pagecontext.PageState{Kind: pagecontext.KindFrontPage}
		switch settings.FrontPage {
		case FrontPagePosts:
			state.FrontPageIsHome = true
		case FrontPagePage:
			state.FrontPageIsStaticPage = true
			state.Post = postFromItem(keys, item, "page")
		}
		return state
	}

	rule, ok := settings.Rules[item.MimeType]
	if !ok {
		return pagecontext.PageState{}
	}

	state := pagecontext.PageState{Kind: rule.Kind}
	switch rule.Kind {
	case pagecontext.KindSingular:
		state.SingularKind = rule.SingularKind
		state.Post = postFromItem(keys, item, rule.PostType)
		if rule.SingularKind == pagecontext.SingularAttachment {
			state.AttachmentMimeType = cast.ToString(item.Data[keys.MimeType])
		}
	case pagecontext.KindArchive:
		state.ArchiveKind = rule.ArchiveKind
		switch rule.ArchiveKind {
		case pagecontext.ArchiveTaxonomy, pagecontext.ArchiveCategory, pagecontext.ArchiveTag:
			state.Term = termFromItem(keys, item, rule.Taxonomy)
		case pagecontext.ArchiveAuthor:
			state.User = &pagecontext.User{
				ID:   cast.ToInt(item.Data[keys.ID]),
				Slug: slugOf(keys, item),
			}
		case pagecontext.ArchivePostType:
			state.QueriedPostTypes = postTypesOf(keys, item, rule.PostType)
		}
	}
	return state
}

func postFromItem(keys DataKeys, item *content.Item, postType string) *pagecontext.Post {
	if postType == "" {
		postType = cast.ToString(item.Data[keys.Type])
	}
	post := &pagecontext.Post{
		ID:   cast.ToInt(item.Data[keys.ID]),
		Type: postType,
		Slug: slugOf(keys, item),
	}
	if template := cast.ToString(item.Data[keys.Template]); template != "" {
		post.TemplateSlug = &template
	}
	return post
}

func termFromItem(keys DataKeys, item *content.Item, taxonomy string) *pagecontext.Term {
	if taxonomy == "" {
		taxonomy = cast.ToString(item.Data[keys.Taxonomy])
	}
	return &pagecontext.Term{
		ID:       cast.ToInt(item.Data[keys.ID]),
		Slug:     slugOf(keys, item),
		Taxonomy: taxonomy,
	}
}

func slugOf(keys DataKeys, item *content.Item) string {
	if slug := cast.ToString(item.Data[keys.Slug]); slug != "" {
		return slug
	}
	if item.Name != "" {
		return item.Name
	}
	uri := strings.TrimSuffix(item.URI, "/")
	return uri[strings.LastIndex(uri, "/")+1:]
}

func postTypesOf(keys DataKeys, item *content.Item, fallback string) *pagecontext.PostTypes {
	switch v := item.Data[keys.PostTypes].(type) {
	case nil:
	case string:
		if v != "" {
			return pagecontext.SinglePostType(v)
		}
	default:
		if names := cast.ToStringSlice(v); len(names) > 0 {
			return pagecontext.MultiplePostTypes(names...)
		}
	}
	if fallback != "" {
		return pagecontext.SinglePostType(fallback)
	}
	return nil
}
