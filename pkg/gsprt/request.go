// Package gsprt is the runtime shared between the gsp host process and
// compiled page plugins. Generated page code receives a *Context and uses
// the request, response, and state surfaces defined here. The host and
// every plugin must be built against the same version of this package so
// that the entry-point signature asserts cleanly across the plugin
// boundary.
package gsprt

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Params holds decoded key/value request parameters (query string or form
// body). Lookups on missing keys return the zero value rather than
// panicking so page code can stay terse.
type Params map[string]string

// Get returns the value for key and whether it was present.
func (p Params) Get(key string) (string, bool) {
	v, ok := p[key]
	return v, ok
}

// Str returns the value for key, or "" when absent.
func (p Params) Str(key string) string {
	return p[key]
}

// Or returns the value for key, or def when absent.
func (p Params) Or(key, def string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return def
}

// Int returns the value for key parsed as an int, or def when absent or
// unparseable.
func (p Params) Int(key string, def int) int {
	if v, ok := p[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// Headers holds request headers keyed by lower-cased name.
type Headers map[string]string

// Str returns the header value, or "" when absent.
func (h Headers) Str(key string) string {
	return h[strings.ToLower(key)]
}

// Or returns the header value, or def when absent.
func (h Headers) Or(key, def string) string {
	if v, ok := h[strings.ToLower(key)]; ok {
		return v
	}
	return def
}

// Cookies holds request cookies by name.
type Cookies map[string]string

// Str returns the cookie value, or "" when absent.
func (c Cookies) Str(key string) string {
	return c[key]
}

// Or returns the cookie value, or def when absent.
func (c Cookies) Or(key, def string) string {
	if v, ok := c[key]; ok {
		return v
	}
	return def
}

// Request is the immutable request view handed to page code.
type Request struct {
	// GET holds decoded query-string parameters.
	GET Params
	// POST holds decoded form-body parameters.
	POST Params
	// Cookie holds request cookies by name.
	Cookie Cookies
	// Header holds request headers keyed by lower-cased name.
	Header Headers

	method string
	path   string
	body   string
}

// NewRequest builds a Request from raw components. Used by tests and by
// callers that do not have an *http.Request (e.g. the render CLI command).
func NewRequest(method, path string, get, post Params) *Request {
	if get == nil {
		get = Params{}
	}
	if post == nil {
		post = Params{}
	}
	return &Request{
		GET:    get,
		POST:   post,
		Cookie: Cookies{},
		Header: Headers{},
		method: method,
		path:   path,
	}
}

// FromHTTP builds a page Request from an incoming HTTP request. The body
// is consumed for form decoding.
func FromHTTP(r *http.Request) *Request {
	req := &Request{
		GET:    Params{},
		POST:   Params{},
		Cookie: Cookies{},
		Header: Headers{},
		method: r.Method,
		path:   r.URL.Path,
	}

	for key, vals := range r.URL.Query() {
		if len(vals) > 0 {
			req.GET[key] = vals[0]
		}
	}

	for key, vals := range r.Header {
		if len(vals) > 0 {
			req.Header[strings.ToLower(key)] = vals[0]
		}
	}

	for _, c := range r.Cookies() {
		req.Cookie[c.Name] = c.Value
	}

	if r.Body != nil {
		if raw, err := io.ReadAll(r.Body); err == nil {
			req.body = string(raw)
		}
	}
	if vals, err := url.ParseQuery(req.body); err == nil {
		for key, vs := range vals {
			if len(vs) > 0 {
				req.POST[key] = vs[0]
			}
		}
	}

	return req
}

// Method returns the request method ("GET", "POST", ...).
func (r *Request) Method() string { return r.method }

// Path returns the request path.
func (r *Request) Path() string { return r.path }

// Body returns the raw request body.
func (r *Request) Body() string { return r.body }

// IsGet reports whether the method is GET.
func (r *Request) IsGet() bool { return r.method == http.MethodGet }

// IsPost reports whether the method is POST.
func (r *Request) IsPost() bool { return r.method == http.MethodPost }

// IP returns the client address as reported by X-Forwarded-For or
// X-Real-IP, preferring the first forwarded hop.
func (r *Request) IP() string {
	if fwd := r.Header.Str("x-forwarded-for"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	return r.Header.Str("x-real-ip")
}
