package nodes

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/brettbedarf/nodetree"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

const (
	BookNodeType    = "TheBook"
	ChapterNodeType = "Chapter"
	LinkNodeType    = "Link"

	DefaultChapterKind = "Ordinary chapter"
)

// Book is the metadata node at the root of a book tree
type Book struct {
	Base
	ID       string
	Title    string
	Created  time.Time
	LastSave time.Time
}

// NewBook returns an unbound book created now with a fresh ID
func NewBook(title string) *Book {
	now := time.Now()
	return &Book{
		Base:     Base{Required: map[string]string{}},
		ID:       uuid.NewString(),
		Title:    title,
		Created:  now,
		LastSave: now,
	}
}

func newBookFromFields(fields map[string]nodetree.Value) (nodetree.Node, error) {
	var err error
	n := &Book{}
	if n.ID, err = stringField(fields, "id", false); err != nil {
		return nil, err
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	} else if _, err := uuid.Parse(n.ID); err != nil {
		return nil, errors.Wrapf(err, "field %q", "id")
	}
	if n.Title, err = stringField(fields, "title", false); err != nil {
		return nil, err
	}
	now := time.Now()
	if n.Created, err = timeField(fields, "created", now); err != nil {
		return nil, err
	}
	if n.LastSave, err = timeField(fields, "last_save", n.Created); err != nil {
		return nil, err
	}
	if err := n.decodeBase(fields, nil); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Book) NodeType() string { return BookNodeType }

func (n *Book) EncodeFields() (map[string]nodetree.Value, error) {
	fields := n.baseFields()
	fields["id"] = nodetree.String(n.ID)
	fields["title"] = nodetree.String(n.Title)
	fields["created"] = nodetree.Time(n.Created)
	fields["last_save"] = nodetree.Time(n.LastSave)
	return fields, nil
}

func (n *Book) BeforeSave(now time.Time) {
	n.LastSave = now
}

func (n *Book) String() string {
	return fmt.Sprintf("The Book: %s (created %s, saved %s)",
		n.Title, n.Created.Format(time.DateTime), n.LastSave.Format(time.DateTime))
}

// Chapter is a titled section of a book
type Chapter struct {
	Base
	Title    string
	Kind     string
	Tags     []string
	Created  time.Time
	LastSave time.Time
}

func NewChapter(title string, tags ...string) *Chapter {
	now := time.Now()
	return &Chapter{
		Base:     Base{Required: map[string]string{}},
		Title:    title,
		Kind:     DefaultChapterKind,
		Tags:     tags,
		Created:  now,
		LastSave: now,
	}
}

func newChapterFromFields(fields map[string]nodetree.Value) (nodetree.Node, error) {
	var err error
	n := &Chapter{}
	if n.Title, err = stringField(fields, "title", true); err != nil {
		return nil, err
	}
	if n.Kind, err = stringField(fields, "chapter_type", false); err != nil {
		return nil, err
	}
	if n.Kind == "" {
		n.Kind = DefaultChapterKind
	}
	if n.Tags, err = stringsField(fields, "tags"); err != nil {
		return nil, err
	}
	now := time.Now()
	if n.Created, err = timeField(fields, "created", now); err != nil {
		return nil, err
	}
	if n.LastSave, err = timeField(fields, "last_save", n.Created); err != nil {
		return nil, err
	}
	if err := n.decodeBase(fields, nil); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Chapter) NodeType() string { return ChapterNodeType }

func (n *Chapter) EncodeFields() (map[string]nodetree.Value, error) {
	fields := n.baseFields()
	fields["title"] = nodetree.String(n.Title)
	fields["chapter_type"] = nodetree.String(n.Kind)
	fields["tags"] = nodetree.Strings(n.Tags...)
	fields["created"] = nodetree.Time(n.Created)
	fields["last_save"] = nodetree.Time(n.LastSave)
	return fields, nil
}

func (n *Chapter) BeforeSave(now time.Time) {
	n.LastSave = now
}

func (n *Chapter) Check() error {
	if strings.TrimSpace(n.Title) == "" {
		return errors.New("chapter title is blank")
	}
	if slices.Contains(n.Tags, "") {
		return errors.New("chapter has an empty tag")
	}
	return nil
}

func (n *Chapter) String() string {
	return n.Title
}

// Link points at another location, usually a node directory elsewhere in the tree
type Link struct {
	Base
	PointTo string
}

func NewLink(target string) *Link {
	return &Link{Base: Base{Required: map[string]string{}}, PointTo: target}
}

func newLinkFromFields(fields map[string]nodetree.Value) (nodetree.Node, error) {
	target, err := stringField(fields, "point_to", true)
	if err != nil {
		return nil, err
	}
	n := &Link{PointTo: target}
	if err := n.decodeBase(fields, nil); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Link) NodeType() string { return LinkNodeType }

func (n *Link) EncodeFields() (map[string]nodetree.Value, error) {
	fields := n.baseFields()
	fields["point_to"] = nodetree.String(n.PointTo)
	return fields, nil
}

func (n *Link) Check() error {
	if n.PointTo == "" {
		return errors.New("link has no target")
	}
	return nil
}

func (n *Link) String() string {
	return "-> " + n.PointTo
}
