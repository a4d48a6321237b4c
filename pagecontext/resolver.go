// Package pagecontext classifies the page a CMS is rendering into an ordered
// list of tags, following the template hierarchy: front page, home, singular,
// archive, search and not found, each optionally refined by taxonomy, term,
// author, date, post type or custom template.
//
// Tags are ordered most specific first. Every branch appends its own
// identifying tag last, so "archive" always closes an archive context and
// "singular" always closes a singular one.
package pagecontext

import (
	"strconv"
	"strings"
)

const (
	TagFrontPage     = "front-page"
	TagHome          = "home"
	TagSingular      = "singular"
	TagSingle        = "single"
	TagPage          = "page"
	TagAttachment    = "attachment"
	TagArchive       = "archive"
	TagTaxonomy      = "taxonomy"
	TagCategory      = "category"
	TagTag           = "tag"
	TagAuthor        = "author"
	TagDate          = "date"
	TagSearch        = "search"
	TagNotFound      = "404"
	TagMultiPostType = "archive-multi-post-type"

	// DefaultTemplate is the value some hosts store for "no custom template".
	DefaultTemplate = "default"
)

// Context is the resolved, ordered tag list.
type Context []string

// Resolver computes the Context of a PageState. The zero value is not usable,
// use NewResolver.
type Resolver struct {
	sanitize           Sanitizer
	templateExtensions []string
}

type Option func(r *Resolver)

// WithSanitizer replaces Sanitize, for hosts that ship their own notion of a
// class safe identifier.
func WithSanitizer(s Sanitizer) Option {
	return func(r *Resolver) {
		if s != nil {
			r.sanitize = s
		}
	}
}

// WithTemplateExtensions sets the file extensions stripped from custom
// template slugs. Defaults to ".php".
func WithTemplateExtensions(extensions ...string) Option {
	return func(r *Resolver) {
		r.templateExtensions = extensions
	}
}

func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		sanitize:           Sanitize,
		templateExtensions: []string{".php"},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultResolver = NewResolver()

// GetContext resolves state with the default resolver.
func GetContext(state PageState) Context {
	return defaultResolver.GetContext(state)
}

// GetContext never fails: missing facts shorten the result, an unknown kind
// yields an empty Context.
func (r *Resolver) GetContext(state PageState) Context {
	switch state.Kind {
	case KindFrontPage:
		return r.frontPage(state)
	case KindHome:
		return r.home()
	case KindSingular:
		return r.singular(state)
	case KindArchive:
		return r.archive(state)
	case KindSearch:
		return Context{TagSearch}
	case KindNotFound:
		return Context{TagNotFound}
	default:
		return Context{}
	}
}

func (r *Resolver) frontPage(state PageState) Context {
	c := Context{TagFrontPage}
	switch {
	case state.FrontPageIsHome:
		c = append(c, r.home()...)
	case state.FrontPageIsStaticPage:
		c = append(c, r.page(state.Post)...)
	}
	return c
}

func (r *Resolver) home() Context {
	return Context{TagHome}
}

func (r *Resolver) singular(state PageState) Context {
	var c Context
	switch state.SingularKind {
	case SingularAttachment:
		c = r.attachment(state.Post, state.AttachmentMimeType)
	case SingularPage:
		c = r.page(state.Post)
	case SingularSingle:
		c = r.single(state.Post)
	}
	return append(c, TagSingular)
}

func (r *Resolver) attachment(post *Post, mimeType string) Context {
	var c Context
	if mimeType != "" {
		kind, subtype, _ := strings.Cut(mimeType, "/")
		// only the segment up to a second slash counts as subtype
		subtype, _, _ = strings.Cut(subtype, "/")
		if subtype != "" {
			c = append(c, kind+"-"+subtype, subtype)
		}
		c = append(c, kind)
	}
	c = append(c, TagAttachment)
	if post != nil {
		c = append(c, "single-attachment-"+r.sanitize(post.Slug))
	}
	return append(c, "single-attachment", TagSingle)
}

func (r *Resolver) page(post *Post) Context {
	if post == nil {
		return Context{TagPage}
	}
	c := r.template(post)
	return append(c,
		"page-"+r.sanitize(post.Slug),
		"page-"+strconv.Itoa(post.ID),
		TagPage,
	)
}

func (r *Resolver) single(post *Post) Context {
	if post == nil {
		return Context{TagSingle}
	}
	c := r.template(post)
	return append(c,
		"single-"+post.Type+"-"+r.sanitize(post.Slug),
		"single-"+post.Type,
		TagSingle,
	)
}

// template yields the custom template tag of post, if it has one.
func (r *Resolver) template(post *Post) Context {
	if post.TemplateSlug == nil {
		return nil
	}
	slug := *post.TemplateSlug
	if slug == "" || slug == DefaultTemplate {
		return nil
	}
	for _, ext := range r.templateExtensions {
		slug = strings.TrimSuffix(slug, ext)
	}
	return Context{slug}
}

func (r *Resolver) archive(state PageState) Context {
	var c Context
	switch state.ArchiveKind {
	case ArchiveTaxonomy:
		c = r.taxonomyArchive(state.Term)
	case ArchiveCategory:
		c = r.termArchive(TagCategory, state.Term)
	case ArchiveTag:
		c = r.termArchive(TagTag, state.Term)
	case ArchiveAuthor:
		c = r.authorArchive(state.User)
	case ArchiveDate:
		c = Context{TagDate}
	case ArchivePostType:
		c = r.postTypeArchive(state.QueriedPostTypes)
	}
	return append(c, TagArchive)
}

func (r *Resolver) taxonomyArchive(term *Term) Context {
	if term == nil {
		return Context{TagTaxonomy}
	}
	return Context{
		"taxonomy-" + term.Taxonomy + "-" + r.sanitize(term.Slug),
		"taxonomy-" + term.Taxonomy,
		TagTaxonomy,
	}
}

// termArchive covers the built in category and tag taxonomies.
func (r *Resolver) termArchive(prefix string, term *Term) Context {
	if term == nil {
		return Context{prefix}
	}
	return Context{
		prefix + "-" + r.sanitize(term.Slug),
		prefix + "-" + strconv.Itoa(term.ID),
		prefix,
	}
}

func (r *Resolver) authorArchive(user *User) Context {
	if user == nil {
		return Context{TagAuthor}
	}
	return Context{
		"author-" + r.sanitize(user.Slug),
		"author-" + strconv.Itoa(user.ID),
		TagAuthor,
	}
}

func (r *Resolver) postTypeArchive(postTypes *PostTypes) Context {
	if postTypes == nil || len(postTypes.Names) == 0 {
		return nil
	}
	if len(postTypes.Names) > 1 {
		return Context{TagMultiPostType}
	}
	return Context{"archive-" + postTypes.Names[0]}
}
