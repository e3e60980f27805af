// value.go — the closed algebra of values the serializer accepts, per
// SPEC_FULL.md §3. Reference types (Array, Object) are used through
// pointers so that a cyclic or shared-subtree Go value graph can be
// built the way a JS object graph naturally is.
package serialize

import "regexp"

// Undefined is the serializable analogue of JavaScript's undefined.
// A bare Go nil is JSON null; Undefined is the distinct "absent" value.
type Undefined struct{}

// Array is an ordered, identity-bearing sequence of values. Build
// cyclic or shared-subtree graphs by appending a pointer to the Array
// itself (or to an ancestor) into Items.
type Array struct {
	Items []any
}

// Object is an ordered, identity-bearing set of string-keyed
// properties, preserving insertion order the way a JS object's own
// enumerable string keys would.
type Object struct {
	Props []Property
}

// Property is one key/value pair of an Object, in insertion order.
type Property struct {
	Key   string
	Value any
}

// Set inserts or updates a property, preserving the position of an
// existing key and appending new keys at the end.
func (o *Object) Set(key string, value any) {
	for i := range o.Props {
		if o.Props[i].Key == key {
			o.Props[i].Value = value
			return
		}
	}
	o.Props = append(o.Props, Property{Key: key, Value: value})
}

// Get returns the value for key and whether it was present.
func (o *Object) Get(key string) (any, bool) {
	for _, p := range o.Props {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Regexp models a regular expression's source/flags pair the way a JS
// RegExp carries both. Go's *regexp.Regexp has no separate flags
// string, so platform regexes round-trip through this wrapper instead
// of the stdlib type directly.
type Regexp struct {
	Source string
	Flags  string
}

// Compile translates the supported flag letters (i, s, m) into Go's
// inline flag syntax and compiles the pattern. Flags with no Go
// equivalent (g, u, y) are accepted but have no compiled effect, since
// they describe match-iteration behavior rather than pattern syntax.
func (r Regexp) Compile() (*regexp.Regexp, error) {
	inline := ""
	for _, f := range r.Flags {
		switch f {
		case 'i', 's', 'm':
			inline += string(f)
		}
	}
	pattern := r.Source
	if inline != "" {
		pattern = "(?" + inline + ")" + pattern
	}
	return regexp.Compile(pattern)
}

// HandleRef is an opaque reference to a host-side object, carrying
// only the integer id assigned by the handle registry (internal/handle/host).
type HandleRef struct {
	ID int
}

// NamedError lets a Go error control the "n" (name) field an error
// node serializes with; without it, the error's dynamic type name is
// used.
type NamedError interface {
	error
	ErrorName() string
}

// StackedError lets a Go error supply the "s" (stack) field.
type StackedError interface {
	error
	Stack() string
}
