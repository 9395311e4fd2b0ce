// Package internal contains the core implementation packages for gsp.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the gsp CLI tool.
//
// # Package Organization
//
// The internal packages are organized by pipeline stage:
//
//   - parser: template tokenization into literal, code, expression,
//     static, and directive nodes
//   - generator: translation of parsed pages into compilable main-package
//     source plus a dependency manifest
//   - build: content-keyed artifact cache and the toolchain subprocess
//     that compiles page workspaces into plugins
//   - loader: artifact registry with reference-counted handles and
//     panic-isolated page execution
//   - engine: per-page compile lifecycle and atomic handle swapping
//   - server: HTTP routing of page and static requests plus live reload
//   - watcher: file system monitoring with debouncing
//   - config: configuration loading and validation
//   - errors: the structured error taxonomy shared by every stage
//   - logging: structured component-scoped logging
//
// # Inter-Package Communication
//
// A request flows engine -> parser -> generator -> build -> loader; the
// engine owns the per-page state machine and is the only package that
// composes the others. The server translates HTTP traffic into engine
// calls, and the watcher feeds invalidations back into the engine.
//
// The runtime surface compiled pages link against lives outside this
// tree in pkg/gsprt, because plugins must be able to import it.
package internal
