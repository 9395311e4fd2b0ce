package parser

// Features the engine understands as bare-identifier directives.
const (
	// FeatureSqlite adds the sqlite driver to the page's build manifest so
	// page code can use the runtime's database helpers.
	FeatureSqlite = "sqlite"
	// FeatureLazyInit marks the page as using the runtime's per-artifact
	// lazy state scope.
	FeatureLazyInit = "lazyinit"
)

var knownFeatures = map[string]bool{
	FeatureSqlite:   true,
	FeatureLazyInit: true,
}

// Dependency is one manifest entry: a module path and its version spec.
type Dependency struct {
	Name string
	Spec string
	// Line and Column locate the first directive naming this module, for
	// conflict diagnostics.
	Line   int
	Column int
}

// DependencyConflict records two directives naming the same module with
// different specs.
type DependencyConflict struct {
	Name      string
	FirstSpec string
	OtherSpec string
	Line      int
	Column    int
}

// DirectiveTable accumulates per-page metadata from directive nodes.
// All collections preserve first-seen order and drop exact duplicates;
// dependency name collisions with differing specs are recorded as
// conflicts and rejected at generation time.
type DirectiveTable struct {
	imports   []string
	importSet map[string]bool

	deps     []Dependency
	depIndex map[string]int

	toggles   []string
	toggleSet map[string]bool

	conflicts []DependencyConflict
}

// NewDirectiveTable returns an empty table.
func NewDirectiveTable() *DirectiveTable {
	return &DirectiveTable{
		importSet: make(map[string]bool),
		depIndex:  make(map[string]int),
		toggleSet: make(map[string]bool),
	}
}

// AddImport records an import line, dropping exact duplicates.
func (t *DirectiveTable) AddImport(path string) {
	if t.importSet[path] {
		return
	}
	t.importSet[path] = true
	t.imports = append(t.imports, path)
}

// AddDependency records a manifest entry. The first-seen spec wins for
// ordering; a later directive naming the same module with a different spec
// records a conflict.
func (t *DirectiveTable) AddDependency(name, spec string, line, column int) {
	if i, ok := t.depIndex[name]; ok {
		if t.deps[i].Spec != spec {
			t.conflicts = append(t.conflicts, DependencyConflict{
				Name:      name,
				FirstSpec: t.deps[i].Spec,
				OtherSpec: spec,
				Line:      line,
				Column:    column,
			})
		}
		return
	}
	t.depIndex[name] = len(t.deps)
	t.deps = append(t.deps, Dependency{Name: name, Spec: spec, Line: line, Column: column})
}

// AddToggle records an enabled feature, dropping duplicates.
func (t *DirectiveTable) AddToggle(feature string) {
	if t.toggleSet[feature] {
		return
	}
	t.toggleSet[feature] = true
	t.toggles = append(t.toggles, feature)
}

// Imports returns import lines in first-seen order.
func (t *DirectiveTable) Imports() []string { return t.imports }

// Dependencies returns manifest entries in first-seen order.
func (t *DirectiveTable) Dependencies() []Dependency { return t.deps }

// Toggles returns enabled features in first-seen order.
func (t *DirectiveTable) Toggles() []string { return t.toggles }

// HasToggle reports whether the named feature is enabled.
func (t *DirectiveTable) HasToggle(feature string) bool { return t.toggleSet[feature] }

// Conflicts returns recorded dependency conflicts in encounter order.
func (t *DirectiveTable) Conflicts() []DependencyConflict { return t.conflicts }
