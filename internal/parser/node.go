package parser

// NodeKind discriminates the node union produced by the parser.
type NodeKind int

const (
	// NodeLiteral is raw page text outside any tag, preserved verbatim.
	NodeLiteral NodeKind = iota
	// NodeCode is a <% code %> block spliced into the entry function.
	NodeCode
	// NodeExpression is a <%= expr %> whose rendering is appended to output.
	NodeExpression
	// NodeStatic is a <%! code %> declaration executed once per loaded
	// artifact.
	NodeStatic
	// NodeDirective is a <%@ ... %> metadata tag.
	NodeDirective
)

// String returns the node kind name.
func (k NodeKind) String() string {
	switch k {
	case NodeLiteral:
		return "literal"
	case NodeCode:
		return "code"
	case NodeExpression:
		return "expression"
	case NodeStatic:
		return "static"
	case NodeDirective:
		return "directive"
	default:
		return "unknown"
	}
}

// Node is one parsed page element. Node order is execution order in the
// generated source and must be preserved.
type Node struct {
	Kind NodeKind
	// Text holds literal text for NodeLiteral and trimmed code for
	// NodeCode, NodeExpression, and NodeStatic.
	Text string
	// Directive is set only for NodeDirective.
	Directive *Directive
	// Line and Column locate the node's opening tag (1-based). Literals
	// carry the position of their first character.
	Line   int
	Column int
}

// DirectiveKind discriminates directive payloads.
type DirectiveKind int

const (
	// DirectiveImport adds an import to the generated unit (use <path>).
	DirectiveImport DirectiveKind = iota
	// DirectiveDependency adds a module to the build manifest
	// (dep <name> = <spec>).
	DirectiveDependency
	// DirectiveFeature enables a named feature toggle.
	DirectiveFeature
)

// Directive is the payload of a NodeDirective.
type Directive struct {
	Kind DirectiveKind
	// ImportPath is set for DirectiveImport; either a bare import path or
	// a full import line (with alias and/or quotes) spliced as written.
	ImportPath string
	// DepName and DepSpec are set for DirectiveDependency.
	DepName string
	DepSpec string
	// Feature is set for DirectiveFeature.
	Feature string
}

// Document is the parse result: the ordered node sequence plus the
// accumulated directive table.
type Document struct {
	Nodes      []Node
	Directives *DirectiveTable
}
