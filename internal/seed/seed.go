// Package seed loads form documents and writes them through the tree
// service at startup. The embedded default mirrors the demo form the editor
// expects on a fresh database.
package seed

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/matthewbaird/formbuilder/internal/tree"
	"github.com/matthewbaird/formbuilder/internal/types"
)

//go:embed default.cue
var defaultDoc []byte

//go:embed schema.cue
var schemaSrc []byte

// Document is a set of forms to create.
type Document struct {
	Forms []FormSpec `json:"forms" yaml:"forms"`
}

type FormSpec struct {
	Name        string     `json:"name" yaml:"name"`
	Description string     `json:"description,omitempty" yaml:"description"`
	Pages       []PageSpec `json:"pages,omitempty" yaml:"pages"`
}

type PageSpec struct {
	Name       string          `json:"name" yaml:"name"`
	Components []ComponentSpec `json:"components,omitempty" yaml:"components"`
}

// ComponentSpec describes one component and its nested children, in order.
type ComponentSpec struct {
	ComponentType string          `json:"componentType" yaml:"componentType"`
	Label         string          `json:"label,omitempty" yaml:"label"`
	Attributes    string          `json:"attributes,omitempty" yaml:"attributes"`
	Children      []ComponentSpec `json:"children,omitempty" yaml:"children"`
}

// Count returns the number of components described by the document.
func (d Document) Count() (pages, components int) {
	var walk func([]ComponentSpec)
	walk = func(cs []ComponentSpec) {
		for _, c := range cs {
			components++
			walk(c.Children)
		}
	}
	for _, f := range d.Forms {
		pages += len(f.Pages)
		for _, p := range f.Pages {
			walk(p.Components)
		}
	}
	return pages, components
}

// Default returns the embedded demo document.
func Default() (Document, error) {
	return parseCUE(defaultDoc, "default.cue")
}

// Load reads a document from path. CUE files are checked against the seed
// schema; YAML and JSON are decoded directly.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading seed file: %w", err)
	}
	name := filepath.Base(path)
	if len(strings.TrimSpace(string(data))) == 0 {
		return Document{}, fmt.Errorf("seed file %s is empty", name)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return parseCUE(data, name)
	case ".yaml", ".yml", ".json":
		var doc Document
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return Document{}, fmt.Errorf("parsing %s: %w", name, err)
		}
		return doc, nil
	default:
		return Document{}, fmt.Errorf("seed file %s: unsupported extension %q", name, filepath.Ext(path))
	}
}

func parseCUE(data []byte, name string) (Document, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileBytes(schemaSrc, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return Document{}, fmt.Errorf("compiling seed schema: %w", err)
	}
	val := ctx.CompileBytes(data, cue.Filename(name))
	if err := val.Err(); err != nil {
		return Document{}, fmt.Errorf("compiling %s: %w", name, err)
	}
	val = schema.Unify(val)
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return Document{}, fmt.Errorf("validating %s: %w", name, err)
	}
	if !val.LookupPath(cue.ParsePath("forms")).Exists() {
		return Document{}, fmt.Errorf("%s: no forms field", name)
	}
	var doc Document
	if err := val.Decode(&doc); err != nil {
		return Document{}, fmt.Errorf("decoding %s: %w", name, err)
	}
	return doc, nil
}

// Writer is the subset of the tree service the seeder needs.
type Writer interface {
	ListForms(ctx context.Context) ([]types.Form, error)
	CreateForm(ctx context.Context, in tree.FormInput) (types.Form, error)
	CreatePage(ctx context.Context, formID uuid.UUID, in tree.PageInput) (types.Page, error)
	CreateComponent(ctx context.Context, in tree.ComponentInput) (types.Component, error)
	DeleteForm(ctx context.Context, id uuid.UUID) (tree.Removal, error)
}

// Apply creates every form in doc. A form that fails part way is deleted
// again so no half-built form is left behind.
func Apply(ctx context.Context, w Writer, doc Document) ([]types.Form, error) {
	created := make([]types.Form, 0, len(doc.Forms))
	for _, fs := range doc.Forms {
		f, err := applyForm(ctx, w, fs)
		if err != nil {
			return created, fmt.Errorf("seeding form %q: %w", fs.Name, err)
		}
		created = append(created, f)
	}
	return created, nil
}

func applyForm(ctx context.Context, w Writer, fs FormSpec) (types.Form, error) {
	f, err := w.CreateForm(ctx, tree.FormInput{Name: fs.Name, Description: fs.Description})
	if err != nil {
		return types.Form{}, err
	}
	if err := applyPages(ctx, w, f.ID, fs.Pages); err != nil {
		if _, derr := w.DeleteForm(ctx, f.ID); derr != nil {
			return types.Form{}, fmt.Errorf("%w (cleanup failed: %v)", err, derr)
		}
		return types.Form{}, err
	}
	return f, nil
}

func applyPages(ctx context.Context, w Writer, formID uuid.UUID, pages []PageSpec) error {
	for _, ps := range pages {
		p, err := w.CreatePage(ctx, formID, tree.PageInput{Name: ps.Name})
		if err != nil {
			return fmt.Errorf("page %q: %w", ps.Name, err)
		}
		pageID := p.ID
		if err := applyComponents(ctx, w, &pageID, nil, ps.Components); err != nil {
			return err
		}
	}
	return nil
}

func applyComponents(ctx context.Context, w Writer, pageID, parentID *uuid.UUID, specs []ComponentSpec) error {
	for _, cs := range specs {
		c, err := w.CreateComponent(ctx, tree.ComponentInput{
			PageID:        pageID,
			ParentID:      parentID,
			ComponentType: cs.ComponentType,
			Label:         cs.Label,
			Attributes:    cs.Attributes,
		})
		if err != nil {
			return fmt.Errorf("component %q: %w", cs.Label, err)
		}
		id := c.ID
		if err := applyComponents(ctx, w, nil, &id, cs.Children); err != nil {
			return err
		}
	}
	return nil
}

// IfEmpty applies doc only when the store holds no forms yet.
func IfEmpty(ctx context.Context, w Writer, doc Document, logger *slog.Logger) error {
	existing, err := w.ListForms(ctx)
	if err != nil {
		return fmt.Errorf("checking forms: %w", err)
	}
	if len(existing) > 0 {
		logger.Info("forms already present, skipping seed", "count", len(existing))
		return nil
	}
	created, err := Apply(ctx, w, doc)
	if err != nil {
		return err
	}
	pages, comps := doc.Count()
	logger.Info("seeded forms", "forms", len(created), "pages", pages, "components", comps)
	return nil
}
