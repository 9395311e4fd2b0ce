// Package parser turns gsp page source into an ordered node sequence and
// a directive table. The template grammar has four tags, scanned in this
// precedence order so <% never prefix-matches the others:
//
//	<%= expr %>   expression appended to page output
//	<%! code %>   static declaration, once per loaded artifact
//	<%@ ... %>    directive (use / dep / feature toggle)
//	<% code %>    statements spliced into the entry function
//
// Text outside tags is preserved verbatim, including whitespace and
// newlines. "<<%" escapes to a literal "<%".
package parser

import (
	"fmt"
	"strings"

	gsperr "github.com/conneroisu/gsp/internal/errors"
)

// Parser parses page source text. The zero value is ready to use.
type Parser struct{}

// New returns a Parser.
func New() *Parser {
	return &Parser{}
}

type scanner struct {
	src  string
	pos  int
	line int
	col  int
}

func (s *scanner) advance(n int) {
	for k := 0; k < n && s.pos < len(s.src); k++ {
		if s.src[s.pos] == '\n' {
			s.line++
			s.col = 1
		} else {
			s.col++
		}
		s.pos++
	}
}

// Parse scans source into a Document. The returned error is always a
// *errors.GspError carrying the offending tag's line and column.
func (p *Parser) Parse(source string) (*Document, error) {
	doc := &Document{Directives: NewDirectiveTable()}
	s := &scanner{src: source, line: 1, col: 1}

	var lit strings.Builder
	litLine, litCol := s.line, s.col

	flushLiteral := func() {
		if lit.Len() == 0 {
			return
		}
		doc.Nodes = append(doc.Nodes, Node{
			Kind:   NodeLiteral,
			Text:   lit.String(),
			Line:   litLine,
			Column: litCol,
		})
		lit.Reset()
	}

	for s.pos < len(s.src) {
		// "<<%" is the escape for a literal "<%".
		if strings.HasPrefix(s.src[s.pos:], "<<%") {
			if lit.Len() == 0 {
				litLine, litCol = s.line, s.col
			}
			lit.WriteByte('<')
			s.advance(2)
			continue
		}

		if !strings.HasPrefix(s.src[s.pos:], "<%") {
			if lit.Len() == 0 {
				litLine, litCol = s.line, s.col
			}
			lit.WriteByte(s.src[s.pos])
			s.advance(1)
			continue
		}

		flushLiteral()
		openLine, openCol := s.line, s.col
		s.advance(2)

		kind := NodeCode
		if s.pos < len(s.src) {
			switch s.src[s.pos] {
			case '=':
				kind = NodeExpression
				s.advance(1)
			case '!':
				kind = NodeStatic
				s.advance(1)
			case '@':
				kind = NodeDirective
				s.advance(1)
			}
		}

		end := strings.Index(s.src[s.pos:], "%>")
		if end < 0 {
			return nil, gsperr.NewParseError(gsperr.CodeUnterminatedTag,
				"unterminated tag, missing closing %>").
				WithLocation(openLine, openCol)
		}
		content := strings.TrimSpace(s.src[s.pos : s.pos+end])
		s.advance(end + 2)

		node := Node{Kind: kind, Text: content, Line: openLine, Column: openCol}

		if kind == NodeDirective {
			directive, err := parseDirective(content)
			if err != nil {
				return nil, err.WithLocation(openLine, openCol)
			}
			node.Text = ""
			node.Directive = directive
			applyDirective(doc.Directives, directive, openLine, openCol)
		}

		doc.Nodes = append(doc.Nodes, node)
	}

	flushLiteral()
	return doc, nil
}

// parseDirective interprets the trimmed body of a <%@ %> tag. Recognized
// verbs are "use" and "dep"; a single bare identifier must name a known
// feature toggle.
func parseDirective(content string) (*Directive, *gsperr.GspError) {
	fields := strings.Fields(content)
	if len(fields) == 0 {
		return nil, gsperr.NewParseError(gsperr.CodeMalformedDirective, "empty directive")
	}

	switch fields[0] {
	case "use":
		path := strings.TrimSpace(strings.TrimPrefix(content, "use"))
		if path == "" {
			return nil, gsperr.NewParseError(gsperr.CodeMalformedDirective,
				"use directive requires an import path")
		}
		return &Directive{Kind: DirectiveImport, ImportPath: path}, nil

	case "dep":
		rest := strings.TrimSpace(strings.TrimPrefix(content, "dep"))
		name, spec, ok := strings.Cut(rest, "=")
		name = strings.TrimSpace(name)
		spec = unquote(strings.TrimSpace(spec))
		if !ok || name == "" || spec == "" {
			return nil, gsperr.NewParseError(gsperr.CodeMalformedDirective,
				"dep directive must have the form: dep <module> = <version>")
		}
		return &Directive{Kind: DirectiveDependency, DepName: name, DepSpec: spec}, nil

	default:
		if len(fields) == 1 && knownFeatures[fields[0]] {
			return &Directive{Kind: DirectiveFeature, Feature: fields[0]}, nil
		}
		return nil, gsperr.NewParseError(gsperr.CodeUnknownDirective,
			fmt.Sprintf("unknown directive %q", fields[0]))
	}
}

func applyDirective(table *DirectiveTable, d *Directive, line, col int) {
	switch d.Kind {
	case DirectiveImport:
		table.AddImport(d.ImportPath)
	case DirectiveDependency:
		table.AddDependency(d.DepName, d.DepSpec, line, col)
	case DirectiveFeature:
		table.AddToggle(d.Feature)
	}
}

// unquote strips one matched pair of surrounding double quotes, so
// `dep a = "v1.0"` and `dep a = v1.0` record the same spec.
func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
