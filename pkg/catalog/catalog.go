// Package catalog loads the pool of content items a rotation draws from.
//
// A catalog is a YAML (or JSON) file:
//
//	items:
//	  - id: "2.47"
//	    title: Patience
//	    tags: [short, evening]
//
// The engine only ever sees ids. Titles, bodies and tags are for display and
// for narrowing the candidate set with a Filter.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	yaml "go.yaml.in/yaml/v3"
)

// Item is one piece of rotating content.
type Item struct {
	ID    string   `yaml:"id" json:"id"`
	Title string   `yaml:"title,omitempty" json:"title,omitempty"`
	Body  string   `yaml:"body,omitempty" json:"body,omitempty"`
	Tags  []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// HasTag reports whether the item carries tag (case-insensitive).
func (it Item) HasTag(tag string) bool {
	for _, t := range it.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Filter narrows a catalog. An item passes when it has at least one of Tags
// (or Tags is empty) and none of Exclude.
type Filter struct {
	Tags    []string `yaml:"tags,omitempty" json:"tags,omitempty"`
	Exclude []string `yaml:"exclude,omitempty" json:"exclude,omitempty"`
}

// Match reports whether it passes the filter.
func (f Filter) Match(it Item) bool {
	for _, t := range f.Exclude {
		if it.HasTag(t) {
			return false
		}
	}
	if len(f.Tags) == 0 {
		return true
	}
	for _, t := range f.Tags {
		if it.HasTag(t) {
			return true
		}
	}
	return false
}

// Catalog is an immutable, ordered set of items with unique ids.
type Catalog struct {
	items []Item
	index map[string]int
}

type file struct {
	Items []Item `yaml:"items"`
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}
	return c, nil
}

// Parse decodes catalog bytes. Unknown fields, empty ids and duplicate ids
// are errors.
func Parse(data []byte) (*Catalog, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return New(f.Items)
}

// New builds a catalog from items, trimming ids.
func New(items []Item) (*Catalog, error) {
	c := &Catalog{
		items: make([]Item, 0, len(items)),
		index: make(map[string]int, len(items)),
	}
	for i, it := range items {
		it.ID = strings.TrimSpace(it.ID)
		if it.ID == "" {
			return nil, fmt.Errorf("item %d: empty id", i)
		}
		if _, dup := c.index[it.ID]; dup {
			return nil, fmt.Errorf("item %d: duplicate id %q", i, it.ID)
		}
		it.Tags = slices.Clone(it.Tags)
		c.index[it.ID] = len(c.items)
		c.items = append(c.items, it)
	}
	return c, nil
}

// Len returns the number of items.
func (c *Catalog) Len() int { return len(c.items) }

// Items returns the items passing f, in file order.
func (c *Catalog) Items(f Filter) []Item {
	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		if f.Match(it) {
			out = append(out, it)
		}
	}
	return out
}

// Lookup returns the item with the given id.
func (c *Catalog) Lookup(id string) (Item, bool) {
	i, ok := c.index[id]
	if !ok {
		return Item{}, false
	}
	return c.items[i], true
}

// IDs extracts the ids of items, in order.
func IDs(items []Item) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}
