/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package quiz

import (
	_ "embed"
	"fmt"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

//go:embed content/aiorikea.hcl
var defaultContent []byte

// Content is a decoded content file.
type Content struct {
	Catalog *Catalog
	Rounds  []Round
}

type contentFile struct {
	Targets     []labelBlock `hcl:"target,block"`
	Distractors []labelBlock `hcl:"distractor,block"`
	Rounds      []roundBlock `hcl:"round,block"`
}

type labelBlock struct {
	Label       string `hcl:"label,label"`
	Description string `hcl:"description,optional"`
}

type roundBlock struct {
	Labels []string `hcl:"labels"`
}

// ParseContent decodes an HCL content document. filename is only used in
// diagnostics.
func ParseContent(src []byte, filename string) (*Content, error) {
	f, diags := hclparse.NewParser().ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, diags)
	}

	var doc contentFile
	if diags := gohcl.DecodeBody(f.Body, nil, &doc); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode %s: %w", filename, diags)
	}

	items := make([]Item, 0, len(doc.Targets)+len(doc.Distractors))
	for _, b := range doc.Targets {
		items = append(items, Item{Label: b.Label, Category: Target, Description: b.Description})
	}
	for _, b := range doc.Distractors {
		items = append(items, Item{Label: b.Label, Category: Distractor, Description: b.Description})
	}

	catalog, err := NewCatalog(items...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}

	rounds := make([]Round, 0, len(doc.Rounds))
	for i, b := range doc.Rounds {
		if len(b.Labels) != 2 {
			return nil, fmt.Errorf("%s: %w", filename, &RoundError{Index: i, Reason: fmt.Sprintf("want 2 labels, got %d", len(b.Labels))})
		}
		rounds = append(rounds, NewRound(b.Labels[0], b.Labels[1]))
	}

	return &Content{Catalog: catalog, Rounds: rounds}, nil
}

// DefaultContent returns a fresh copy of the built-in rounds and catalog.
func DefaultContent() (*Content, error) {
	return ParseContent(defaultContent, "aiorikea.hcl")
}

// NewDefault returns an engine over the built-in content.
func NewDefault() (*Engine, error) {
	c, err := DefaultContent()
	if err != nil {
		return nil, err
	}

	return New(c.Catalog, c.Rounds)
}
