package gsprt

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// OpenDB returns the artifact-scoped sqlite pool for path, opening it on
// first use. The pool lives in the context's state scope, so all requests
// served by one loaded artifact share a single *sql.DB and a reload closes
// it via State.Close. Requires the sqlite feature toggle (<%@ sqlite %>)
// so the driver is present in the page's build manifest.
func (c *Context) OpenDB(path string) (*sql.DB, error) {
	key := "gsprt.db:" + path
	v := c.State.GetOrInit(key, func() any {
		db, err := sql.Open("sqlite", path)
		if err != nil {
			return err
		}
		return db
	})
	switch t := v.(type) {
	case *sql.DB:
		return t, nil
	case error:
		// Failures are never left in the state scope: the next request
		// retries the open instead of replaying a stale error.
		c.State.Delete(key)
		return nil, fmt.Errorf("open sqlite %s: %w", path, t)
	default:
		return nil, fmt.Errorf("open sqlite %s: unexpected state entry %T", path, v)
	}
}

// MustDB is OpenDB for pages that prefer to fail the request on database
// errors; the loader converts the panic into a page execution error.
func (c *Context) MustDB(path string) *sql.DB {
	db, err := c.OpenDB(path)
	if err != nil {
		panic(err)
	}
	return db
}
