// Package errors defines the structured error taxonomy for the gsp
// pipeline. Every failure a page can produce — malformed template syntax,
// conflicting directives, toolchain failures, artifact load problems, and
// panics inside page code — is represented as a *GspError carrying its
// kind, a stable code, and where applicable the source location, so the
// serving layer can render a useful diagnostic without switching on
// message text.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind categorizes pipeline errors by the stage that produced them.
type Kind string

const (
	KindParse      Kind = "parse"
	KindGeneration Kind = "generation"
	KindBuild      Kind = "build"
	KindLoad       Kind = "load"
	KindRuntime    Kind = "runtime"
	KindIO         Kind = "io"
)

// Stable error codes, one per distinguishable failure mode.
const (
	CodeUnterminatedTag       = "unterminated_tag"
	CodeUnknownDirective      = "unknown_directive"
	CodeMalformedDirective    = "malformed_directive"
	CodeConflictingDependency = "conflicting_dependency"
	CodeCompileFailed         = "compile_failed"
	CodeBuildTimeout          = "build_timeout"
	CodeArtifactOpen          = "artifact_open"
	CodeSymbolNotFound        = "symbol_not_found"
	CodePageExecution         = "page_execution_failed"
)

// GspError is the structured error type used across the pipeline.
type GspError struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error

	// Page is the page path the error is attributed to, when known.
	Page string
	// Line and Column locate the error in page source (1-based); zero
	// when the error has no source position.
	Line   int
	Column int
	// Diagnostics carries toolchain output for build failures.
	Diagnostics string
}

// Error implements the error interface.
func (e *GspError) Error() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s/%s]", e.Kind, e.Code))
	if e.Page != "" {
		loc := e.Page
		if e.Line > 0 {
			loc += fmt.Sprintf(":%d", e.Line)
			if e.Column > 0 {
				loc += fmt.Sprintf(":%d", e.Column)
			}
		}
		parts = append(parts, loc)
	} else if e.Line > 0 {
		parts = append(parts, fmt.Sprintf("line %d, column %d", e.Line, e.Column))
	}
	parts = append(parts, e.Message)
	out := strings.Join(parts, " ")
	if e.Cause != nil {
		out += ": " + e.Cause.Error()
	}
	if e.Diagnostics != "" {
		out += "\n" + strings.TrimRight(e.Diagnostics, "\n")
	}
	return out
}

// Unwrap returns the underlying cause.
func (e *GspError) Unwrap() error { return e.Cause }

// Is matches on kind and code so callers can compare against sentinels
// built with the same constructors. A target with an empty code matches
// any error of the same kind.
func (e *GspError) Is(target error) bool {
	var t *GspError
	if errors.As(target, &t) {
		return e.Kind == t.Kind && (t.Code == "" || e.Code == t.Code)
	}
	return false
}

// WithPage attributes the error to a page path.
func (e *GspError) WithPage(page string) *GspError {
	e.Page = page
	return e
}

// WithLocation records the 1-based source position.
func (e *GspError) WithLocation(line, column int) *GspError {
	e.Line = line
	e.Column = column
	return e
}

// NewParseError creates a parse-stage error.
func NewParseError(code, message string) *GspError {
	return &GspError{Kind: KindParse, Code: code, Message: message}
}

// NewGenerationError creates a generation-stage error.
func NewGenerationError(code, message string) *GspError {
	return &GspError{Kind: KindGeneration, Code: code, Message: message}
}

// NewBuildError creates a build-stage error carrying toolchain output.
func NewBuildError(code, message, diagnostics string) *GspError {
	return &GspError{Kind: KindBuild, Code: code, Message: message, Diagnostics: diagnostics}
}

// NewLoadError creates a load-stage error.
func NewLoadError(code, message string, cause error) *GspError {
	return &GspError{Kind: KindLoad, Code: code, Message: message, Cause: cause}
}

// NewRuntimeError creates a page-execution error.
func NewRuntimeError(message string, cause error) *GspError {
	return &GspError{Kind: KindRuntime, Code: CodePageExecution, Message: message, Cause: cause}
}

// NewIOError wraps a filesystem error encountered while reading page
// source or managing the cache directory.
func NewIOError(message string, cause error) *GspError {
	return &GspError{Kind: KindIO, Code: "io", Message: message, Cause: cause}
}

// KindOf extracts the pipeline kind from err, or "" when err is not a
// *GspError anywhere in its chain.
func KindOf(err error) Kind {
	var ge *GspError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}

// IsCode reports whether err carries the given code.
func IsCode(err error, code string) bool {
	var ge *GspError
	return errors.As(err, &ge) && ge.Code == code
}
