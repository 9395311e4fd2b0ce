package gsprt

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML escapes s for safe interpolation into HTML text content or
// attribute values. Page output is not escaped automatically; authors opt
// in per expression.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
