package generator

import (
	"strings"
	"testing"

	gsperr "github.com/conneroisu/gsp/internal/errors"
	"github.com/conneroisu/gsp/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *parser.Document {
	t.Helper()
	doc, err := parser.New().Parse(src)
	require.NoError(t, err)
	return doc
}

func TestGenerate_LiteralOnly(t *testing.T) {
	unit, err := New().Generate(mustParse(t, "Hello,\n\t\"World\" & <more>\n"))
	require.NoError(t, err)

	src := string(unit.Source)
	assert.Contains(t, src, "package main")
	assert.Contains(t, src, "func Render(ctx *gsprt.Context) {")
	// The literal round-trips exactly, whitespace and quotes included.
	assert.Contains(t, src, `ctx.Write("Hello,\n\t\"World\" & <more>\n")`)
	assert.Empty(t, unit.Manifest.Require)
}

func TestGenerate_ExpressionScenario(t *testing.T) {
	unit, err := New().Generate(mustParse(t, "Hello, <%= 1+1 %>!"))
	require.NoError(t, err)

	src := string(unit.Source)
	writeIdx := strings.Index(src, `ctx.Write("Hello, ")`)
	printIdx := strings.Index(src, `ctx.Print(1+1)`)
	bangIdx := strings.Index(src, `ctx.Write("!")`)
	require.GreaterOrEqual(t, writeIdx, 0)
	require.GreaterOrEqual(t, printIdx, 0)
	require.GreaterOrEqual(t, bangIdx, 0)
	assert.Less(t, writeIdx, printIdx)
	assert.Less(t, printIdx, bangIdx)
}

func TestGenerate_CodeBlocksShareScope(t *testing.T) {
	src := `<% name := "x" %><%= name %>`
	unit, err := New().Generate(mustParse(t, src))
	require.NoError(t, err)

	out := string(unit.Source)
	declIdx := strings.Index(out, "\tname := \"x\"\n")
	useIdx := strings.Index(out, "\tctx.Print(name)\n")
	require.GreaterOrEqual(t, declIdx, 0)
	require.GreaterOrEqual(t, useIdx, 0)
	assert.Less(t, declIdx, useIdx)

	// Both land inside a single function body: exactly one Render decl.
	assert.Equal(t, 1, strings.Count(out, "func Render("))
}

func TestGenerate_StaticBlocksAtPackageScope(t *testing.T) {
	src := `<%! var hits int %>count: <%= hits %>`
	unit, err := New().Generate(mustParse(t, src))
	require.NoError(t, err)

	out := string(unit.Source)
	staticIdx := strings.Index(out, "var hits int")
	entryIdx := strings.Index(out, "func Render(")
	require.GreaterOrEqual(t, staticIdx, 0)
	require.GreaterOrEqual(t, entryIdx, 0)
	// Static declarations precede the entry function and are not inside it.
	assert.Less(t, staticIdx, entryIdx)
}

func TestGenerate_ImportBlock(t *testing.T) {
	src := `<%@ use strings %><%@ use rnd "math/rand" %><%@ use strings %>x`
	unit, err := New().Generate(mustParse(t, src))
	require.NoError(t, err)

	out := string(unit.Source)
	assert.Contains(t, out, "\tgsprt \"github.com/conneroisu/gsp/pkg/gsprt\"\n")
	assert.Contains(t, out, "\t\"strings\"\n")
	assert.Contains(t, out, "\trnd \"math/rand\"\n")
	// Duplicate use directives collapse to one import line.
	assert.Equal(t, 1, strings.Count(out, `"strings"`))
}

func TestGenerate_Manifest(t *testing.T) {
	src := `<%@ dep example.com/lib = v1.2.3 %><%@ sqlite %>x`
	unit, err := New().Generate(mustParse(t, src))
	require.NoError(t, err)

	require.Len(t, unit.Manifest.Require, 2)
	assert.Equal(t, Requirement{Path: "example.com/lib", Version: "v1.2.3"}, unit.Manifest.Require[0])
	assert.Equal(t, Requirement{Path: "modernc.org/sqlite", Version: sqliteVersion}, unit.Manifest.Require[1])
}

func TestGenerate_ExplicitDepWinsOverToggle(t *testing.T) {
	src := `<%@ dep modernc.org/sqlite = v1.40.0 %><%@ sqlite %>x`
	unit, err := New().Generate(mustParse(t, src))
	require.NoError(t, err)

	require.Len(t, unit.Manifest.Require, 1)
	assert.Equal(t, "v1.40.0", unit.Manifest.Require[0].Version)
}

func TestGenerate_ConflictingDependency(t *testing.T) {
	src := `<%@ dep a = "1.0" %><%@ dep a = "2.0" %>`
	_, err := New().Generate(mustParse(t, src))
	require.Error(t, err)
	assert.True(t, gsperr.IsCode(err, gsperr.CodeConflictingDependency))
	assert.Equal(t, gsperr.KindGeneration, gsperr.KindOf(err))
}

func TestGenerate_SameSpecTwiceIsFine(t *testing.T) {
	src := `<%@ dep a = "1.0" %><%@ dep a = "1.0" %>x`
	unit, err := New().Generate(mustParse(t, src))
	require.NoError(t, err)
	assert.Len(t, unit.Manifest.Require, 1)
}

func TestGenerate_Deterministic(t *testing.T) {
	src := `<%@ use fmt %><%@ dep a = "1.0" %><%! var n int %>a<% n++ %>b<%= n %>`
	first, err := New().Generate(mustParse(t, src))
	require.NoError(t, err)
	second, err := New().Generate(mustParse(t, src))
	require.NoError(t, err)

	assert.Equal(t, first.Source, second.Source)
	assert.Equal(t, first.Manifest.Canonical(), second.Manifest.Canonical())
}

func TestManifest_CanonicalStable(t *testing.T) {
	m := Manifest{Require: []Requirement{
		{Path: "b.example/y", Version: "v2"},
		{Path: "a.example/x", Version: "v1"},
	}}
	// First-seen order is the canonical order; no sorting happens behind
	// the caller's back.
	assert.Equal(t, "b.example/y v2\na.example/x v1\n", string(m.Canonical()))
}
