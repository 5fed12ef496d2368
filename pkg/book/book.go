// Package book models the book that mdbook passes to preprocessors, and
// implements the JSON protocol used to exchange it.
//
// Only the parts of the book that preprocessors need to understand are
// modelled; every other field is kept as raw JSON and written back
// unchanged.
package book

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Context is the first element of the preprocessor input.
type Context struct {
	Root          string          `json:"root"`
	Config        json.RawMessage `json:"config"`
	Renderer      string          `json:"renderer"`
	MdbookVersion string          `json:"mdbook_version"`
}

// Book is an ordered collection of items. It is the Document that the
// preprocessor rewrites.
type Book struct {
	Items []Item
	// Name of the JSON key holding the items: "sections" in mdbook 0.4,
	// "items" in later versions.
	itemsKey string
	extra    map[string]json.RawMessage
}

// Item is one element of a book. Exactly one of Chapter, Separator and
// PartTitle is set for known kinds; unknown kinds are kept as raw JSON.
type Item struct {
	Chapter   *Chapter
	Separator bool
	PartTitle *string
	raw       json.RawMessage
}

// Chapter is a chapter of a book. Its Content is a text unit subject to
// rewriting.
type Chapter struct {
	Name     string
	Content  string
	SubItems []Item
	extra    map[string]json.RawMessage
}

// ErrBadInput is wrapped by errors from ParseInput.
var ErrBadInput = errors.New("bad preprocessor input")

// ParseInput parses the input of a preprocessor, a JSON array of a Context
// and a Book.
func ParseInput(r io.Reader) (*Context, *Book, error) {
	var input []json.RawMessage
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrBadInput, err)
	}
	if len(input) != 2 {
		return nil, nil, fmt.Errorf("%w: want [context, book], got %d elements",
			ErrBadInput, len(input))
	}
	var ctx Context
	if err := json.Unmarshal(input[0], &ctx); err != nil {
		return nil, nil, fmt.Errorf("%w: context: %v", ErrBadInput, err)
	}
	var b Book
	if err := json.Unmarshal(input[1], &b); err != nil {
		return nil, nil, fmt.Errorf("%w: book: %v", ErrBadInput, err)
	}
	return &ctx, &b, nil
}

// ForEachChapter calls f with each chapter in the book, depth first, in the
// order they appear.
func (b *Book) ForEachChapter(f func(*Chapter)) {
	forEachChapter(b.Items, f)
}

func forEachChapter(items []Item, f func(*Chapter)) {
	for _, item := range items {
		if item.Chapter != nil {
			f(item.Chapter)
			forEachChapter(item.Chapter.SubItems, f)
		}
	}
}

func (b *Book) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	b.itemsKey = "sections"
	if _, ok := fields["sections"]; !ok {
		if _, ok := fields["items"]; ok {
			b.itemsKey = "items"
		}
	}
	if raw, ok := fields[b.itemsKey]; ok {
		if err := json.Unmarshal(raw, &b.Items); err != nil {
			return fmt.Errorf("%s: %w", b.itemsKey, err)
		}
		delete(fields, b.itemsKey)
	}
	b.extra = fields
	return nil
}

func (b *Book) MarshalJSON() ([]byte, error) {
	key := b.itemsKey
	if key == "" {
		key = "sections"
	}
	items := b.Items
	if items == nil {
		items = []Item{}
	}
	return marshalWithExtra(b.extra, map[string]any{key: items})
}

func (it *Item) UnmarshalJSON(data []byte) error {
	var name string
	if json.Unmarshal(data, &name) == nil {
		if name == "Separator" {
			*it = Item{Separator: true}
		} else {
			*it = Item{raw: append(json.RawMessage(nil), data...)}
		}
		return nil
	}
	var variant map[string]json.RawMessage
	if err := json.Unmarshal(data, &variant); err != nil {
		return err
	}
	if raw, ok := variant["Chapter"]; ok && len(variant) == 1 {
		var ch Chapter
		if err := json.Unmarshal(raw, &ch); err != nil {
			return fmt.Errorf("chapter: %w", err)
		}
		*it = Item{Chapter: &ch}
		return nil
	}
	if raw, ok := variant["PartTitle"]; ok && len(variant) == 1 {
		var title string
		if err := json.Unmarshal(raw, &title); err != nil {
			return fmt.Errorf("part title: %w", err)
		}
		*it = Item{PartTitle: &title}
		return nil
	}
	*it = Item{raw: append(json.RawMessage(nil), data...)}
	return nil
}

func (it Item) MarshalJSON() ([]byte, error) {
	switch {
	case it.Chapter != nil:
		return marshal(map[string]*Chapter{"Chapter": it.Chapter})
	case it.Separator:
		return marshal("Separator")
	case it.PartTitle != nil:
		return marshal(map[string]string{"PartTitle": *it.PartTitle})
	case it.raw != nil:
		return it.raw, nil
	}
	return nil, errors.New("empty book item")
}

func (ch *Chapter) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for key, p := range map[string]any{
		"name": &ch.Name, "content": &ch.Content, "sub_items": &ch.SubItems} {
		if raw, ok := fields[key]; ok {
			if err := json.Unmarshal(raw, p); err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			delete(fields, key)
		}
	}
	ch.extra = fields
	return nil
}

func (ch *Chapter) MarshalJSON() ([]byte, error) {
	subItems := ch.SubItems
	if subItems == nil {
		subItems = []Item{}
	}
	return marshalWithExtra(ch.extra, map[string]any{
		"name": ch.Name, "content": ch.Content, "sub_items": subItems})
}

func marshalWithExtra(extra map[string]json.RawMessage, known map[string]any) ([]byte, error) {
	fields := make(map[string]any, len(extra)+len(known))
	for k, v := range extra {
		fields[k] = v
	}
	for k, v := range known {
		fields[k] = v
	}
	return marshal(fields)
}

// Like json.Marshal, but leaves HTML characters alone, since chapter
// contents are full of them.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}
