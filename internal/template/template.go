// Package template expands `{field}` and `{field.sub}` placeholders against a
// roster row and a small set of synthetic values.
//
// Literal braces cannot be escaped.
package template

import (
	"fmt"
	"strings"
)

// Lookup resolves plain fields, typically a roster row.
type Lookup interface {
	Get(name string) (string, bool)
}

// Fields is a structured value addressed as `{name.field}`.
type Fields map[string]string

// Value is an entry of the extra context: either a plain string or Fields.
type Value struct {
	text   string
	fields Fields
}

// String wraps a plain extra value.
func String(s string) Value {
	return Value{text: s}
}

// Struct wraps a structured extra value.
func Struct(f Fields) Value {
	if f == nil {
		f = Fields{}
	}
	return Value{fields: f}
}

func (v Value) structured() bool {
	return v.fields != nil
}

// Context holds synthetic values that take precedence over row fields.
type Context map[string]Value

type segment struct {
	literal string
	name    string
	field   string
}

func (s segment) key() string {
	if s.field == "" {
		return s.name
	}
	return s.name + "." + s.field
}

// Template is a parsed template string.
type Template struct {
	source   string
	segments []segment
}

// Parse validates the template syntax.
func Parse(source string) (*Template, error) {
	var (
		segments []segment
		literal  strings.Builder
	)

	for i := 0; i < len(source); i++ {
		switch c := source[i]; c {
		case '{':
			end := strings.IndexAny(source[i+1:], "{}")
			if end < 0 || source[i+1+end] == '{' {
				return nil, fmt.Errorf("%w: unterminated placeholder at offset %d in %q", ErrMalformedTemplate, i, source)
			}
			key := source[i+1 : i+1+end]
			name, field, err := parseKey(key)
			if err != nil {
				return nil, fmt.Errorf("%w: %w in %q", ErrMalformedTemplate, err, source)
			}
			if literal.Len() > 0 {
				segments = append(segments, segment{literal: literal.String()})
				literal.Reset()
			}
			segments = append(segments, segment{name: name, field: field})
			i += end + 1
		case '}':
			return nil, fmt.Errorf("%w: unmatched '}' at offset %d in %q", ErrMalformedTemplate, i, source)
		default:
			literal.WriteByte(c)
		}
	}
	if literal.Len() > 0 {
		segments = append(segments, segment{literal: literal.String()})
	}

	return &Template{source: source, segments: segments}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(source string) *Template {
	t, err := Parse(source)
	if err != nil {
		panic(err)
	}
	return t
}

func parseKey(key string) (string, string, error) {
	name, field, dotted := strings.Cut(key, ".")
	if !validIdentifier(name) {
		return "", "", fmt.Errorf("invalid placeholder {%s}", key)
	}
	if dotted && !validIdentifier(field) {
		return "", "", fmt.Errorf("invalid placeholder {%s}", key)
	}
	return name, field, nil
}

func validIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// String returns the source text.
func (t *Template) String() string {
	return t.source
}

// Fields returns the distinct top-level names referenced by the template.
func (t *Template) Fields() []string {
	var names []string
	seen := map[string]bool{}
	for _, s := range t.segments {
		if s.name == "" || seen[s.name] {
			continue
		}
		seen[s.name] = true
		names = append(names, s.name)
	}
	return names
}

// Expand substitutes every placeholder. Names are looked up in extra first
// and then in row; only structured extra values support `.field` access.
func (t *Template) Expand(row Lookup, extra Context) (string, error) {
	var b strings.Builder
	for _, s := range t.segments {
		if s.name == "" {
			b.WriteString(s.literal)
			continue
		}
		v, err := resolve(s, row, extra)
		if err != nil {
			return "", err
		}
		b.WriteString(v)
	}
	return b.String(), nil
}

func resolve(s segment, row Lookup, extra Context) (string, error) {
	if v, ok := extra[s.name]; ok {
		switch {
		case s.field == "" && !v.structured():
			return v.text, nil
		case s.field == "":
			return "", &UnresolvedPlaceholderError{Key: s.key(), Reason: "structured value needs a field"}
		case !v.structured():
			return "", &UnresolvedPlaceholderError{Key: s.key(), Reason: "value has no fields"}
		}
		if f, ok := v.fields[s.field]; ok {
			return f, nil
		}
		return "", &UnresolvedPlaceholderError{Key: s.key(), Reason: "no such field"}
	}

	if row != nil {
		if v, ok := row.Get(s.name); ok {
			if s.field != "" {
				return "", &UnresolvedPlaceholderError{Key: s.key(), Reason: "row fields have no attributes"}
			}
			return v, nil
		}
	}

	return "", &UnresolvedPlaceholderError{Key: s.name}
}

// Expand parses and expands source in one step.
func Expand(source string, row Lookup, extra Context) (string, error) {
	t, err := Parse(source)
	if err != nil {
		return "", err
	}
	return t.Expand(row, extra)
}
