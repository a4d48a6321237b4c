package pagestate

import (
	"mime"
	"strconv"
	"strings"

	"github.com/foomo/contentserver-pagecontext/pagecontext"
)

// FromBodyClasses infers a PageState from the class list a CMS theme puts on
// the <body> element of a rendered page. Facts the classes do not carry stay
// absent.
func FromBodyClasses(classes []string) pagecontext.PageState {
	set := make(map[string]struct{}, len(classes))
	for _, class := range classes {
		set[class] = struct{}{}
	}
	has := func(class string) bool {
		_, ok := set[class]
		return ok
	}

	switch {
	case has("error404"):
		return pagecontext.PageState{Kind: pagecontext.KindNotFound}
	case has("search") || has("search-results") || has("search-no-results"):
		return pagecontext.PageState{Kind: pagecontext.KindSearch}
	case has("home"):
		state := pagecontext.PageState{Kind: pagecontext.KindFrontPage}
		if has("blog") {
			state.FrontPageIsHome = true
		} else if has("page") {
			state.FrontPageIsStaticPage = true
			state.Post = pageFromClasses(classes)
		}
		return state
	case has("blog"):
		return pagecontext.PageState{Kind: pagecontext.KindHome}
	case has("attachment"):
		return pagecontext.PageState{
			Kind:               pagecontext.KindSingular,
			SingularKind:       pagecontext.SingularAttachment,
			Post:               attachmentFromClasses(classes),
			AttachmentMimeType: attachmentMimeType(classes),
		}
	case has("page"):
		return pagecontext.PageState{
			Kind:         pagecontext.KindSingular,
			SingularKind: pagecontext.SingularPage,
			Post:         pageFromClasses(classes),
		}
	case has("single"):
		return pagecontext.PageState{
			Kind:         pagecontext.KindSingular,
			SingularKind: pagecontext.SingularSingle,
			Post:         singleFromClasses(classes),
		}
	case has("archive") || has("category") || has("tag") || has("tax") || has("author") || has("date") || has("post-type-archive"):
		return archiveFromClasses(classes, has)
	}
	return pagecontext.PageState{}
}

func archiveFromClasses(classes []string, has func(string) bool) pagecontext.PageState {
	state := pagecontext.PageState{Kind: pagecontext.KindArchive, ArchiveKind: pagecontext.ArchiveGeneric}
	switch {
	case hasPrefix(classes, "tax-"):
		state.ArchiveKind = pagecontext.ArchiveTaxonomy
		state.Term = termFromClasses(classes, "term-")
		if state.Term == nil {
			state.Term = &pagecontext.Term{}
		}
		state.Term.Taxonomy = firstSuffix(classes, "tax-")
	case has("category"):
		state.ArchiveKind = pagecontext.ArchiveCategory
		state.Term = termFromClasses(classes, "category-")
		if state.Term != nil {
			state.Term.Taxonomy = "category"
		}
	case has("tag"):
		state.ArchiveKind = pagecontext.ArchiveTag
		state.Term = termFromClasses(classes, "tag-")
		if state.Term != nil {
			state.Term.Taxonomy = "post_tag"
		}
	case has("author"):
		state.ArchiveKind = pagecontext.ArchiveAuthor
		if term := termFromClasses(classes, "author-"); term != nil {
			state.User = &pagecontext.User{ID: term.ID, Slug: term.Slug}
		}
	case has("date"):
		state.ArchiveKind = pagecontext.ArchiveDate
	case has("post-type-archive"):
		state.ArchiveKind = pagecontext.ArchivePostType
		if postType := firstSuffix(classes, "post-type-archive-"); postType != "" {
			state.QueriedPostTypes = pagecontext.SinglePostType(postType)
		}
	}
	return state
}

// termFromClasses reads "{prefix}{slug}" and "{prefix}{id}" pairs.
func termFromClasses(classes []string, prefix string) *pagecontext.Term {
	var term pagecontext.Term
	found := false
	for _, class := range classes {
		rest, ok := strings.CutPrefix(class, prefix)
		if !ok || rest == "" {
			continue
		}
		if id, err := strconv.Atoi(rest); err == nil {
			term.ID = id
		} else if term.Slug == "" {
			term.Slug = rest
		}
		found = true
	}
	if !found {
		return nil
	}
	return &term
}

func pageFromClasses(classes []string) *pagecontext.Post {
	post := &pagecontext.Post{Type: "page", ID: firstInt(classes, "page-id-")}
	post.TemplateSlug = templateFromClasses(classes, "page-template-")
	return post
}

func singleFromClasses(classes []string) *pagecontext.Post {
	post := &pagecontext.Post{ID: firstInt(classes, "postid-")}
	for _, class := range classes {
		rest, ok := strings.CutPrefix(class, "single-")
		if !ok || rest == "" || strings.HasPrefix(rest, "format-") {
			continue
		}
		post.Type = rest
		break
	}
	post.TemplateSlug = templateFromClasses(classes, "post-template-")
	return post
}

// templateFromClasses reads the template slug from the last "{prefix}*"
// class, which carries the full file path with "/" dropped and "." turned
// into "-": "templates/full-width.php" shows up as "templatesfull-width-php".
func templateFromClasses(classes []string, prefix string) *string {
	var template string
	for _, class := range classes {
		if rest, ok := strings.CutPrefix(class, prefix); ok && rest != "" {
			template = rest
		}
	}
	template = strings.TrimSuffix(template, "-php")
	if template == "" || template == pagecontext.DefaultTemplate {
		return nil
	}
	return &template
}

func attachmentFromClasses(classes []string) *pagecontext.Post {
	return &pagecontext.Post{Type: "attachment", ID: firstInt(classes, "attachmentid-")}
}

// attachmentMimeType reads the "attachment-{subtype}" class. The theme drops
// the image/, video/, audio/ and application/ prefix, so the full type is
// looked up by extension and the bare subtype kept when that fails.
func attachmentMimeType(classes []string) string {
	for _, class := range classes {
		rest, ok := strings.CutPrefix(class, "attachment-")
		if !ok || rest == "" || strings.HasPrefix(rest, "template-") {
			continue
		}
		if mediaType, _, err := mime.ParseMediaType(mime.TypeByExtension("." + rest)); err == nil {
			return mediaType
		}
		return rest
	}
	return ""
}

func hasPrefix(classes []string, prefix string) bool {
	return firstSuffix(classes, prefix) != ""
}

func firstSuffix(classes []string, prefix string) string {
	for _, class := range classes {
		if rest, ok := strings.CutPrefix(class, prefix); ok && rest != "" {
			return rest
		}
	}
	return ""
}

func firstInt(classes []string, prefix string) int {
	for _, class := range classes {
		if rest, ok := strings.CutPrefix(class, prefix); ok {
			if id, err := strconv.Atoi(rest); err == nil {
				return id
			}
		}
	}
	return 0
}
