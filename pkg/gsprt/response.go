package gsprt

import (
	"bytes"
	"fmt"
)

// SetCookieOp records a cookie mutation requested by page code. MaxAge is
// seconds; a negative MaxAge deletes the cookie.
type SetCookieOp struct {
	Name   string
	Value  string
	MaxAge int
}

// HeaderOp records an extra response header requested by page code.
type HeaderOp struct {
	Name  string
	Value string
}

// Response accumulates everything a page invocation produces: the rendered
// body plus status, redirect, cookie, and header mutations. A fresh
// Response is created for every invocation.
type Response struct {
	buf      bytes.Buffer
	status   int
	redirect string
	cookies  []SetCookieOp
	headers  []HeaderOp
}

// NewResponse returns an empty Response with status 200.
func NewResponse() *Response {
	return &Response{status: 200}
}

// WriteString appends raw text to the page body.
func (r *Response) WriteString(s string) {
	r.buf.WriteString(s)
}

// Print appends the default textual rendering of each value to the body.
func (r *Response) Print(values ...any) {
	fmt.Fprint(&r.buf, values...)
}

// Status sets the HTTP status code. Values outside 100..599 are ignored.
func (r *Response) Status(code int) {
	if code >= 100 && code <= 599 {
		r.status = code
	}
}

// Redirect issues a redirect to url and sets the status to 302.
func (r *Response) Redirect(url string) {
	r.redirect = url
	r.status = 302
}

// SetCookie queues a cookie with a time-to-live in seconds.
func (r *Response) SetCookie(name, value string, maxAge int) {
	r.cookies = append(r.cookies, SetCookieOp{Name: name, Value: value, MaxAge: maxAge})
}

// CleanCookie queues deletion of the named cookie.
func (r *Response) CleanCookie(name string) {
	r.cookies = append(r.cookies, SetCookieOp{Name: name, MaxAge: -1})
}

// AddHeader queues an extra response header.
func (r *Response) AddHeader(name, value string) {
	r.headers = append(r.headers, HeaderOp{Name: name, Value: value})
}

// Body returns the rendered page body.
func (r *Response) Body() string { return r.buf.String() }

// StatusCode returns the effective status code.
func (r *Response) StatusCode() int { return r.status }

// RedirectURL returns the redirect target, or "" when none was issued.
func (r *Response) RedirectURL() string { return r.redirect }

// CookieOps returns the queued cookie mutations in order.
func (r *Response) CookieOps() []SetCookieOp { return r.cookies }

// HeaderOps returns the queued extra headers in order.
func (r *Response) HeaderOps() []HeaderOp { return r.headers }
