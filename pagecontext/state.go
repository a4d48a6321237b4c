package pagecontext

import (
	"encoding/json"
	"fmt"
)

// Kind identifies the top level category of the current page.
type Kind int

const (
	KindNone Kind = iota
	KindFrontPage
	KindHome
	KindSingular
	KindArchive
	KindSearch
	KindNotFound
)

var kindNames = map[Kind]string{
	KindNone:      "",
	KindFrontPage: "front-page",
	KindHome:      "home",
	KindSingular:  "singular",
	KindArchive:   "archive",
	KindSearch:    "search",
	KindNotFound:  "not-found",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) MarshalText() ([]byte, error) {
	name, ok := kindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown page kind %d", int(k))
	}
	return []byte(name), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	return unmarshalName(kindNames, string(text), "page kind", k)
}

// SingularKind refines KindSingular.
type SingularKind int

const (
	SingularNone SingularKind = iota
	SingularAttachment
	SingularPage
	SingularSingle
)

var singularKindNames = map[SingularKind]string{
	SingularNone:       "",
	SingularAttachment: "attachment",
	SingularPage:       "page",
	SingularSingle:     "single",
}

func (k SingularKind) String() string {
	if name, ok := singularKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("SingularKind(%d)", int(k))
}

func (k SingularKind) MarshalText() ([]byte, error) {
	name, ok := singularKindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown singular kind %d", int(k))
	}
	return []byte(name), nil
}

func (k *SingularKind) UnmarshalText(text []byte) error {
	return unmarshalName(singularKindNames, string(text), "singular kind", k)
}

// ArchiveKind refines KindArchive.
type ArchiveKind int

const (
	ArchiveNone ArchiveKind = iota
	ArchiveTaxonomy
	ArchiveCategory
	ArchiveTag
	ArchiveAuthor
	ArchiveDate
	ArchivePostType
	ArchiveGeneric
)

var archiveKindNames = map[ArchiveKind]string{
	ArchiveNone:     "",
	ArchiveTaxonomy: "taxonomy",
	ArchiveCategory: "category",
	ArchiveTag:      "tag",
	ArchiveAuthor:   "author",
	ArchiveDate:     "date",
	ArchivePostType: "post-type-archive",
	ArchiveGeneric:  "generic",
}

func (k ArchiveKind) String() string {
	if name, ok := archiveKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ArchiveKind(%d)", int(k))
}

func (k ArchiveKind) MarshalText() ([]byte, error) {
	name, ok := archiveKindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown archive kind %d", int(k))
	}
	return []byte(name), nil
}

func (k *ArchiveKind) UnmarshalText(text []byte) error {
	return unmarshalName(archiveKindNames, string(text), "archive kind", k)
}

// ParseKind, ParseSingularKind and ParseArchiveKind map the textual names
// used in JSON and configuration files back to their values.
func ParseKind(name string) (Kind, error) {
	var k Kind
	err := k.UnmarshalText([]byte(name))
	return k, err
}

func ParseSingularKind(name string) (SingularKind, error) {
	var k SingularKind
	err := k.UnmarshalText([]byte(name))
	return k, err
}

func ParseArchiveKind(name string) (ArchiveKind, error) {
	var k ArchiveKind
	err := k.UnmarshalText([]byte(name))
	return k, err
}

func unmarshalName[T comparable](names map[T]string, name, what string, target *T) error {
	for value, candidate := range names {
		if candidate == name {
			*target = value
			return nil
		}
	}
	return fmt.Errorf("unknown %s %q", what, name)
}

// Post is the singular entity a page, post or attachment view is about.
type Post struct {
	ID   int    `json:"id"`
	Type string `json:"type"`
	Slug string `json:"slug"`
	// TemplateSlug is nil when the post uses the default template.
	TemplateSlug *string `json:"templateSlug,omitempty"`
}

// Term is a taxonomy term an archive lists.
type Term struct {
	ID       int    `json:"id"`
	Slug     string `json:"slug"`
	Taxonomy string `json:"taxonomy"`
}

// User is the author an author archive lists.
type User struct {
	ID   int    `json:"id"`
	Slug string `json:"slug"`
}

// PostTypes holds the queried post type(s) of a post type archive. In JSON
// it is either a single string or a list of strings; the list form is kept
// as such so a single-element list and a plain string both round trip.
type PostTypes struct {
	Names []string
	Multi bool
}

// SinglePostType is the plain string form.
func SinglePostType(name string) *PostTypes {
	return &PostTypes{Names: []string{name}}
}

// MultiplePostTypes is the list form.
func MultiplePostTypes(names ...string) *PostTypes {
	return &PostTypes{Names: names, Multi: true}
}

func (p PostTypes) MarshalJSON() ([]byte, error) {
	if !p.Multi && len(p.Names) == 1 {
		return json.Marshal(p.Names[0])
	}
	names := p.Names
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

func (p *PostTypes) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*p = PostTypes{Names: []string{single}}
		return nil
	}
	var multi []string
	if err := json.Unmarshal(data, &multi); err != nil {
		return fmt.Errorf("queried post types must be a string or a list of strings: %w", err)
	}
	*p = PostTypes{Names: multi, Multi: true}
	return nil
}

// PageState is an immutable snapshot of the facts the host knows about the
// page being rendered. Sub fields are only meaningful when consistent with
// Kind, SingularKind and ArchiveKind.
type PageState struct {
	Kind         Kind         `json:"kind"`
	SingularKind SingularKind `json:"singularKind,omitempty"`
	ArchiveKind  ArchiveKind  `json:"archiveKind,omitempty"`

	FrontPageIsHome       bool `json:"frontPageIsHome,omitempty"`
	FrontPageIsStaticPage bool `json:"frontPageIsStaticPage,omitempty"`

	Post               *Post      `json:"post,omitempty"`
	AttachmentMimeType string     `json:"attachmentMimeType,omitempty"`
	Term               *Term      `json:"term,omitempty"`
	User               *User      `json:"user,omitempty"`
	QueriedPostTypes   *PostTypes `json:"queriedPostTypes,omitempty"`
}
