// Package generator renders a parsed page into a complete, self-contained
// Go plugin source plus the build manifest needed to compile it.
//
// Generation is deterministic: identical (nodes, directives) inputs yield
// byte-identical output. The build cache keys on the generated bytes, so
// any nondeterminism here (timestamps, map iteration order, generated
// identifiers) would silently defeat caching.
package generator

import (
	"fmt"
	"strconv"
	"strings"

	gsperr "github.com/conneroisu/gsp/internal/errors"
	"github.com/conneroisu/gsp/internal/parser"
)

// RuntimeModule is the module path generated pages import for the page
// runtime. The build workspace wires it to the local gsp checkout with a
// replace directive.
const RuntimeModule = "github.com/conneroisu/gsp"

// runtimeImport is the import line emitted first in every generated unit.
const runtimeImport = `gsprt "github.com/conneroisu/gsp/pkg/gsprt"`

// Module versions implied by feature toggles.
const (
	sqliteModule  = "modernc.org/sqlite"
	sqliteVersion = "v1.46.1"
)

// Requirement is one manifest entry: a module path and version.
type Requirement struct {
	Path    string
	Version string
}

// Manifest is the dependency set a generated unit needs beyond the gsp
// runtime itself. Order is first-seen and duplicate-free.
type Manifest struct {
	Require []Requirement
}

// Canonical returns a stable byte serialization of the manifest for cache
// key derivation and for writing into the build workspace.
func (m Manifest) Canonical() []byte {
	var b strings.Builder
	for _, r := range m.Require {
		b.WriteString(r.Path)
		b.WriteByte(' ')
		b.WriteString(r.Version)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// CompiledUnit is the generator output: plugin source text plus the
// manifest required to build it.
type CompiledUnit struct {
	Source   []byte
	Manifest Manifest
}

// Generator renders parsed pages. The zero value is ready to use.
type Generator struct{}

// New returns a Generator.
func New() *Generator {
	return &Generator{}
}

// Generate renders doc into a CompiledUnit. It fails with a
// conflicting-dependency error when two dep directives name the same
// module with different versions; the toolchain is never invoked for such
// a page.
func (g *Generator) Generate(doc *parser.Document) (*CompiledUnit, error) {
	if conflicts := doc.Directives.Conflicts(); len(conflicts) > 0 {
		c := conflicts[0]
		return nil, gsperr.NewGenerationError(gsperr.CodeConflictingDependency,
			fmt.Sprintf("dependency %s declared as %q and %q", c.Name, c.FirstSpec, c.OtherSpec)).
			WithLocation(c.Line, c.Column)
	}

	var src strings.Builder
	src.WriteString("// Code generated by gsp. DO NOT EDIT.\n")
	src.WriteString("package main\n\n")

	writeImports(&src, doc.Directives.Imports())
	writeStatics(&src, doc.Nodes)
	writeEntry(&src, doc.Nodes)

	return &CompiledUnit{
		Source:   []byte(src.String()),
		Manifest: buildManifest(doc.Directives),
	}, nil
}

// writeImports emits the import block: the runtime first, then directive
// imports in first-seen order. A "use" payload already containing a quote
// is spliced as written (allowing aliases); a bare path is quoted.
func writeImports(src *strings.Builder, imports []string) {
	src.WriteString("import (\n")
	src.WriteString("\t" + runtimeImport + "\n")
	for _, imp := range imports {
		if strings.Contains(imp, `"`) {
			src.WriteString("\t" + imp + "\n")
		} else {
			src.WriteString("\t" + strconv.Quote(imp) + "\n")
		}
	}
	src.WriteString(")\n\n")
}

// writeStatics emits each static block verbatim at package scope, in node
// order. Package-level declarations run once per loaded artifact, which is
// exactly the <%! %> contract.
func writeStatics(src *strings.Builder, nodes []parser.Node) {
	for _, n := range nodes {
		if n.Kind != parser.NodeStatic {
			continue
		}
		src.WriteString(n.Text)
		src.WriteString("\n\n")
	}
}

// writeEntry emits the exported entry function. All code blocks share one
// lexical scope inside the function body (JSP model), so a variable
// declared in one <% %> block is visible in later blocks and expressions.
func writeEntry(src *strings.Builder, nodes []parser.Node) {
	src.WriteString("// Render is the page entry point invoked once per request.\n")
	src.WriteString("func Render(ctx *gsprt.Context) {\n")
	for _, n := range nodes {
		switch n.Kind {
		case parser.NodeLiteral:
			src.WriteString("\tctx.Write(" + strconv.Quote(n.Text) + ")\n")
		case parser.NodeExpression:
			src.WriteString("\tctx.Print(" + n.Text + ")\n")
		case parser.NodeCode:
			for _, line := range strings.Split(n.Text, "\n") {
				src.WriteString("\t" + line + "\n")
			}
		}
	}
	src.WriteString("}\n")
}

// buildManifest merges dep directives with toggle-implied modules,
// first-seen order, duplicates dropped. An explicit dep for a module wins
// over the toggle-implied version.
func buildManifest(table *parser.DirectiveTable) Manifest {
	var m Manifest
	seen := make(map[string]bool)
	for _, d := range table.Dependencies() {
		if seen[d.Name] {
			continue
		}
		seen[d.Name] = true
		m.Require = append(m.Require, Requirement{Path: d.Name, Version: d.Spec})
	}
	if table.HasToggle(parser.FeatureSqlite) && !seen[sqliteModule] {
		m.Require = append(m.Require, Requirement{Path: sqliteModule, Version: sqliteVersion})
	}
	return m
}
