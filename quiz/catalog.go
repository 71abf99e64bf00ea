/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import (
	"fmt"
	"strings"
)

// FallbackDescription is shown for target labels without a description.
const FallbackDescription = "AI assistant"

// Category tags every label in the catalog.
type Category int

const (
	Distractor Category = iota
	Target
)

func (c Category) String() string {
	switch c {
	case Target:
		return "target"
	case Distractor:
		return "distractor"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

type Item struct {
	Label       string
	Category    Category
	Description string
}

// Catalog is an immutable label -> item mapping.
type Catalog struct {
	items map[string]Item
}

// NewCatalog builds a catalog from items. A label may only appear once,
// so no label can belong to both categories.
func NewCatalog(items ...Item) (*Catalog, error) {
	c := &Catalog{
		items: make(map[string]Item, len(items)),
	}

	for _, it := range items {
		if strings.TrimSpace(it.Label) == "" {
			return nil, ErrEmptyLabel
		}

		if prev, ok := c.items[it.Label]; ok {
			return nil, fmt.Errorf("%w: %q listed as %s and %s", ErrDuplicateLabel, it.Label, prev.Category, it.Category)
		}

		c.items[it.Label] = it
	}

	return c, nil
}

func (c *Catalog) CategoryOf(label string) (Category, error) {
	it, ok := c.items[label]
	if !ok {
		return 0, &UnknownLabelError{Label: label}
	}

	return it.Category, nil
}

// Describe returns the description of label, or "" if it is unknown.
func (c *Catalog) Describe(label string) string {
	it, ok := c.items[label]
	if !ok {
		return ""
	}

	if it.Description == "" && it.Category == Target {
		return FallbackDescription
	}

	return it.Description
}

func (c *Catalog) Len() int {
	return len(c.items)
}
