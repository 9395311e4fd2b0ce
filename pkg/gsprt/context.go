package gsprt

// EntrySymbol is the exported function every compiled page plugin exposes.
// The generator emits it and the loader resolves it; both sides must agree
// on the name and on EntryFunc's signature.
const EntrySymbol = "Render"

// EntryFunc is the signature of a compiled page's entry point.
type EntryFunc = func(*Context)

// Context is the single argument of a compiled page's entry point. It
// bundles the request view, the per-invocation response, and the
// per-artifact state scope.
type Context struct {
	Req   *Request
	Res   *Response
	State *State
}

// NewContext pairs a request with a fresh response and the given state
// scope. state may be nil; a detached scope is created so page code can
// always call ctx.State methods.
func NewContext(req *Request, state *State) *Context {
	if req == nil {
		req = NewRequest("GET", "/", nil, nil)
	}
	if state == nil {
		state = NewState()
	}
	return &Context{Req: req, Res: NewResponse(), State: state}
}

// Write appends raw text to the page output. Generated code uses this for
// literal template segments.
func (c *Context) Write(s string) {
	c.Res.WriteString(s)
}

// Print appends the textual rendering of each value to the page output.
// Generated code uses this for <%= %> expressions.
func (c *Context) Print(values ...any) {
	c.Res.Print(values...)
}
