// Package urls renders the public URLs of the local CDN driver.
//
// Every URL shape is a Template: an ordered list of literal segments and
// named {{token}} placeholders. Rendering walks the segments once, so a
// substituted value is never scanned for further placeholders and the
// substitution order is fixed by the template itself.
package urls

import (
	"fmt"
	"strings"
)

const (
	tokenOpen  = "{{"
	tokenClose = "}}"
)

// Values maps token names to their substitutions.
type Values map[string]string

type segment struct {
	text    string
	isToken bool
}

// Template is a parsed URL shape. The zero value renders the empty string.
type Template struct {
	raw      string
	segments []segment
}

// Parse splits s into literal and token segments. An opening "{{" with no
// matching "}}" is kept as literal text.
func Parse(s string) Template {
	var segments []segment

	rest := s
	for {
		start := strings.Index(rest, tokenOpen)
		if start < 0 {
			break
		}
		end := strings.Index(rest[start+len(tokenOpen):], tokenClose)
		if end < 0 {
			break
		}

		if start > 0 {
			segments = append(segments, segment{text: rest[:start]})
		}
		name := rest[start+len(tokenOpen) : start+len(tokenOpen)+end]
		segments = append(segments, segment{text: name, isToken: true})
		rest = rest[start+len(tokenOpen)+end+len(tokenClose):]
	}

	if rest != "" {
		segments = append(segments, segment{text: rest})
	}

	return Template{raw: s, segments: segments}
}

// String returns the template with its placeholders unfilled.
func (t Template) String() string {
	return t.raw
}

// Tokens returns the placeholder names in the order they appear.
func (t Template) Tokens() []string {
	var names []string
	for _, seg := range t.segments {
		if seg.isToken {
			names = append(names, seg.text)
		}
	}
	return names
}

// Render substitutes every placeholder. A placeholder with no value is an
// error; unresolved tokens never reach the output.
func (t Template) Render(values Values) (string, error) {
	var b strings.Builder
	b.Grow(len(t.raw))

	for _, seg := range t.segments {
		if !seg.isToken {
			b.WriteString(seg.text)
			continue
		}
		v, ok := values[seg.text]
		if !ok {
			return "", fmt.Errorf("template %q: no value for token %q", t.raw, seg.text)
		}
		b.WriteString(v)
	}

	return b.String(), nil
}

// MustRender is like Render but panics when a value is missing. It is meant
// for templates whose token set is fixed at compile time.
func (t Template) MustRender(values Values) string {
	out, err := t.Render(values)
	if err != nil {
		panic(err)
	}
	return out
}
