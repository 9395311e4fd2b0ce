package gsprt

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParams(t *testing.T) {
	p := Params{"name": "ada", "page": "3", "bad": "x"}

	v, ok := p.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "ada", v)

	_, ok = p.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, "ada", p.Str("name"))
	assert.Equal(t, "", p.Str("missing"))
	assert.Equal(t, "fallback", p.Or("missing", "fallback"))
	assert.Equal(t, 3, p.Int("page", 1))
	assert.Equal(t, 1, p.Int("bad", 1))
	assert.Equal(t, 1, p.Int("missing", 1))
}

func TestHeadersCaseInsensitive(t *testing.T) {
	h := Headers{"content-type": "text/html"}
	assert.Equal(t, "text/html", h.Str("Content-Type"))
	assert.Equal(t, "text/html", h.Str("content-type"))
	assert.Equal(t, "def", h.Or("X-Missing", "def"))
}

func TestFromHTTP(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/submit?q=search&page=2",
		strings.NewReader("name=ada&role=engineer"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	r.AddCookie(&http.Cookie{Name: "session", Value: "abc123"})

	req := FromHTTP(r)

	assert.Equal(t, "/submit", req.Path())
	assert.True(t, req.IsPost())
	assert.False(t, req.IsGet())
	assert.Equal(t, "search", req.GET.Str("q"))
	assert.Equal(t, 2, req.GET.Int("page", 1))
	assert.Equal(t, "ada", req.POST.Str("name"))
	assert.Equal(t, "engineer", req.POST.Str("role"))
	assert.Equal(t, "abc123", req.Cookie.Str("session"))
	assert.Equal(t, "application/x-www-form-urlencoded", req.Header.Str("Content-Type"))
	assert.Equal(t, "name=ada&role=engineer", req.Body())
	assert.Equal(t, "10.0.0.1", req.IP())
}

func TestRequestIPFallsBackToRealIP(t *testing.T) {
	req := NewRequest(http.MethodGet, "/", nil, nil)
	req.Header["x-real-ip"] = "192.168.1.9"
	assert.Equal(t, "192.168.1.9", req.IP())
}

func TestResponseDefaults(t *testing.T) {
	res := NewResponse()
	assert.Equal(t, 200, res.StatusCode())
	assert.Empty(t, res.Body())
	assert.Empty(t, res.RedirectURL())
}

func TestResponseBodyAccumulates(t *testing.T) {
	res := NewResponse()
	res.WriteString("Hello, ")
	res.Print(1+1, "!")
	assert.Equal(t, "Hello, 2!", res.Body())
}

func TestResponseStatusClamped(t *testing.T) {
	res := NewResponse()
	res.Status(404)
	assert.Equal(t, 404, res.StatusCode())

	// Out-of-range codes are ignored.
	res.Status(42)
	assert.Equal(t, 404, res.StatusCode())
	res.Status(700)
	assert.Equal(t, 404, res.StatusCode())
}

func TestResponseRedirect(t *testing.T) {
	res := NewResponse()
	res.Redirect("/login")
	assert.Equal(t, "/login", res.RedirectURL())
	assert.Equal(t, 302, res.StatusCode())
}

func TestResponseCookieOps(t *testing.T) {
	res := NewResponse()
	res.SetCookie("session", "abc", 3600)
	res.CleanCookie("old")

	ops := res.CookieOps()
	require.Len(t, ops, 2)
	assert.Equal(t, SetCookieOp{Name: "session", Value: "abc", MaxAge: 3600}, ops[0])
	assert.Equal(t, "old", ops[1].Name)
	assert.Negative(t, ops[1].MaxAge)
}

func TestResponseHeaderOps(t *testing.T) {
	res := NewResponse()
	res.AddHeader("Cache-Control", "no-store")
	res.AddHeader("X-Custom", "1")

	ops := res.HeaderOps()
	require.Len(t, ops, 2)
	assert.Equal(t, HeaderOp{Name: "Cache-Control", Value: "no-store"}, ops[0])
}

func TestStateGetOrInitOnce(t *testing.T) {
	s := NewState()

	var inits int
	const n = 16
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.GetOrInit("counter", func() any {
				inits++
				return new(int)
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, inits)
}

type closeRecorder struct {
	closed bool
	err    error
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return c.err
}

func TestStateCloseClosesClosers(t *testing.T) {
	s := NewState()
	a := &closeRecorder{}
	b := &closeRecorder{err: errors.New("close failed")}
	s.Set("a", a)
	s.Set("b", b)
	s.Set("plain", 42)

	err := s.Close()
	assert.Error(t, err)
	assert.True(t, a.closed)
	assert.True(t, b.closed)

	// Idempotent.
	assert.NoError(t, s.Close())
	assert.Nil(t, s.Get("a"))
}

func TestStateDelete(t *testing.T) {
	s := NewState()
	rec := &closeRecorder{}
	s.Set("k", rec)

	s.Delete("k")
	assert.Nil(t, s.Get("k"))

	// Delete does not close the removed value, and Close no longer sees it.
	require.NoError(t, s.Close())
	assert.False(t, rec.closed)

	// Deleting an absent key is a no-op.
	s.Delete("missing")
}

func TestContextDefaults(t *testing.T) {
	ctx := NewContext(nil, nil)
	require.NotNil(t, ctx.Req)
	require.NotNil(t, ctx.Res)
	require.NotNil(t, ctx.State)
	assert.True(t, ctx.Req.IsGet())

	ctx.Write("a")
	ctx.Print("b", 1)
	assert.Equal(t, "ab1", ctx.Res.Body())
}

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t,
		"&lt;a href=&quot;x&quot;&gt;Tom &amp; Jerry&#39;s&lt;/a&gt;",
		EscapeHTML(`<a href="x">Tom & Jerry's</a>`))
	assert.Equal(t, "plain", EscapeHTML("plain"))
}
