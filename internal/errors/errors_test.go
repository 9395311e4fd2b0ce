package errors

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := NewParseError(CodeUnterminatedTag, "tag opened but never closed").
		WithPage("pages/index.gsp").
		WithLocation(3, 7)

	msg := err.Error()
	assert.Contains(t, msg, "[parse/unterminated_tag]")
	assert.Contains(t, msg, "pages/index.gsp:3:7")
	assert.Contains(t, msg, "tag opened but never closed")
}

func TestErrorFormattingWithoutPage(t *testing.T) {
	err := NewParseError(CodeUnknownDirective, "unknown directive").WithLocation(2, 1)
	assert.Contains(t, err.Error(), "line 2, column 1")
}

func TestErrorIncludesDiagnostics(t *testing.T) {
	err := NewBuildError(CodeCompileFailed, "go build failed", "page.go:4:2: undefined: foo\n")
	assert.Contains(t, err.Error(), "undefined: foo")
}

func TestUnwrap(t *testing.T) {
	cause := fs.ErrNotExist
	err := NewIOError("reading page", cause)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestIsMatchesKindAndCode(t *testing.T) {
	err := NewBuildError(CodeBuildTimeout, "build exceeded deadline", "")

	assert.ErrorIs(t, err, NewBuildError(CodeBuildTimeout, "", ""))
	// An empty code matches any error of the same kind.
	assert.ErrorIs(t, err, &GspError{Kind: KindBuild})
	assert.NotErrorIs(t, err, NewBuildError(CodeCompileFailed, "", ""))
	assert.NotErrorIs(t, err, &GspError{Kind: KindLoad})
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindRuntime, KindOf(NewRuntimeError("panic", nil)))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))

	// Kind survives wrapping.
	wrapped := errors.Join(errors.New("context"), NewLoadError(CodeArtifactOpen, "open failed", nil))
	assert.Equal(t, KindLoad, KindOf(wrapped))
}

func TestIsCode(t *testing.T) {
	err := NewGenerationError(CodeConflictingDependency, "dep pinned twice")
	assert.True(t, IsCode(err, CodeConflictingDependency))
	assert.False(t, IsCode(err, CodeCompileFailed))
	assert.False(t, IsCode(errors.New("plain"), CodeConflictingDependency))
}

func TestRuntimeErrorCode(t *testing.T) {
	err := NewRuntimeError("page code panicked: boom", nil)
	require.Equal(t, CodePageExecution, err.Code)
	assert.Equal(t, KindRuntime, err.Kind)
}
