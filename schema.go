package redisrec

import (
	"fmt"
	"strings"
)

// Kind is the declared type of an attribute, as far as storage cares.
type Kind int

const (
	String Kind = iota
	Integer
	Float
	Boolean
	Time
	// Structured covers maps, slices and anything else that is not a
	// store-native scalar. Structured values are stored as JSON.
	Structured
)

var kindNames = [...]string{
	String:     "string",
	Integer:    "integer",
	Float:      "float",
	Boolean:    "boolean",
	Time:       "time",
	Structured: "structured",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind accepts the names returned by Kind.String, plus a few aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "string", "str", "text", "symbol":
		return String, nil
	case "integer", "int":
		return Integer, nil
	case "float", "number":
		return Float, nil
	case "boolean", "bool":
		return Boolean, nil
	case "time", "datetime", "timestamp":
		return Time, nil
	case "structured", "json", "duck":
		return Structured, nil
	default:
		return 0, fmt.Errorf("unknown attribute kind %q", s)
	}
}

// RequiresEncoding reports whether values of this kind are serialized as JSON.
func (k Kind) RequiresEncoding() bool {
	return k == Structured
}

type Attribute struct {
	Name string
	Kind Kind
}

// Classifier is what a table needs to know about its entity type. The table
// asks once, at construction, and caches the answers.
type Classifier interface {
	// PrimaryKey returns the name of the primary key attribute, which must
	// also be listed by Attributes.
	PrimaryKey() string
	Attributes() []Attribute
}

// Schema is a simple Classifier built in code:
//
//	var users = redisrec.NewSchema("id").
//		Attr("email", redisrec.String).
//		Attr("prefs", redisrec.Structured)
type Schema struct {
	pk     string
	attrs  []Attribute
	byName map[string]int
}

// NewSchema returns a schema whose primary key is an Integer attribute with
// the given name.
func NewSchema(primaryKey string) *Schema {
	scm := &Schema{
		pk:     primaryKey,
		byName: make(map[string]int),
	}
	if primaryKey != "" {
		scm.Attr(primaryKey, Integer)
	}
	return scm
}

// Attr declares an attribute. Declaring the same name twice panics.
func (scm *Schema) Attr(name string, kind Kind) *Schema {
	if name == "" {
		panic("attribute name must not be empty")
	}
	if _, dup := scm.byName[name]; dup {
		panic(fmt.Errorf("schema already has attribute %q", name))
	}
	scm.byName[name] = len(scm.attrs)
	scm.attrs = append(scm.attrs, Attribute{name, kind})
	return scm
}

// KeyKind changes the declared kind of the primary key. Tables only accept
// Integer keys; this exists so that other entity systems can be described
// faithfully and rejected at table construction.
func (scm *Schema) KeyKind(kind Kind) *Schema {
	i, ok := scm.byName[scm.pk]
	if !ok {
		panic("schema has no primary key")
	}
	scm.attrs[i].Kind = kind
	return scm
}

func (scm *Schema) PrimaryKey() string {
	return scm.pk
}

func (scm *Schema) Attributes() []Attribute {
	return append([]Attribute(nil), scm.attrs...)
}
