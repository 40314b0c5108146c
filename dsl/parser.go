package dsl

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	dslLexer = lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Whitespace", Pattern: `[ \t\r]+`},
		{Name: "Newline", Pattern: `\n+`},
		{Name: "BlockComment", Pattern: `/\*[^*]*\*+(?:[^/*][^*]*\*+)*/`},
		{Name: "LineComment", Pattern: `//[^\n]*`},
		{Name: "Color", Pattern: `#(?:[0-9A-Fa-f]{3}|[0-9A-Fa-f]{6}|[0-9A-Fa-f]{8})\b`},
		{Name: "HashComment", Pattern: `#[^\n]*`},
		{Name: "Date", Pattern: `\d{4}-\d{2}-\d{2}`},
		{Name: "Number", Pattern: `-?(?:\d+\.\d+|\d+)(?:pt|mm|cm|in)?`},
		{Name: "String", Pattern: `"(?:\\.|[^"])*"`},
		{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_-]*`},
		{Name: "Symbol", Pattern: `[][(),.=;:]`},
		{Name: "LBrace", Pattern: `{`},
		{Name: "RBrace", Pattern: `}`},
	})

	documentParser = participle.MustBuild[Document](
		participle.Lexer(dslLexer),
		participle.Elide("Whitespace", "LineComment", "BlockComment", "HashComment"),
	)
)

// Document is the root AST node for a lifegrid DSL file.
//
//	lifegrid "My Life" v1 {
//	    birthdate: 1990-11-01
//	    event "First job" { date: 2013-06-15; color: #00008B }
//	}
type Document struct {
	Pos        lexer.Position `parser:"" json:"-"`
	Title      StringLiteral  `parser:"Newline* 'lifegrid' @String"`
	Version    string         `parser:"@Ident"`
	Statements []*Statement   `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}' Newline*"`
}

// Statement is either a document-level assignment or a command block.
type Statement struct {
	Assignment *Assignment `parser:"  @@"`
	Command    *Command    `parser:"| @@"`
}

// Assignment uses colon syntax (key: value).
type Assignment struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Key   string         `parser:"@Ident"`
	Value *Value         `parser:"':' @@"`
}

// Command declares an annotated element: event/era/span/image/axis.
// The quoted label and the bare identifier argument are both optional
// (events carry a label, `axis x` carries an identifier).
type Command struct {
	Pos   lexer.Position `parser:"" json:"-"`
	Name  string         `parser:"@Ident"`
	Label *StringLiteral `parser:"( @String )?"`
	Arg   string         `parser:"( @Ident )?"`
	Block *Block         `parser:"( Newline* @@ )?"`
}

// Block is a delimited list of assignments.
type Block struct {
	Entries []*Assignment `parser:"'{' Newline* ( @@ ( ';' | Newline )* )* '}'"`
}

// Get returns the value assigned to key inside the block, or nil.
func (b *Block) Get(key string) *Value {
	if b == nil {
		return nil
	}
	for _, e := range b.Entries {
		if e.Key == key {
			return e.Value
		}
	}
	return nil
}

// Value represents a property value of any supported shape.
type Value struct {
	Pos    lexer.Position `parser:"" json:"-"`
	String *StringLiteral `parser:"  @String"`
	Date   *DateLiteral   `parser:"| @Date"`
	Color  *string        `parser:"| @Color"`
	Number *NumberLiteral `parser:"| @Number"`
	Bool   *BoolLiteral   `parser:"| @('true' | 'false')"`
	Ident  *string        `parser:"| @Ident"`
	Array  *ArrayValue    `parser:"| @@"`
}

// Kind returns the human-readable value type for error messages.
func (v *Value) Kind() string {
	switch {
	case v == nil:
		return "nothing"
	case v.String != nil:
		return "string"
	case v.Date != nil:
		return "date"
	case v.Color != nil:
		return "color"
	case v.Number != nil:
		return "number"
	case v.Bool != nil:
		return "bool"
	case v.Ident != nil:
		return "identifier"
	case v.Array != nil:
		return "array"
	default:
		return "unknown"
	}
}

// Text returns the value as free text: quoted strings unquoted,
// identifiers verbatim. ok is false for any other shape.
func (v *Value) Text() (string, bool) {
	switch {
	case v == nil:
		return "", false
	case v.String != nil:
		return string(*v.String), true
	case v.Ident != nil:
		return *v.Ident, true
	default:
		return "", false
	}
}

// ArrayValue captures `[ ... ]` lists.
type ArrayValue struct {
	Values []*Value `parser:"'[' Newline* ( @@ ( (',' | ';' | Newline+) Newline* @@ )* )? Newline* ']'"`
}

// StringLiteral unquotes Go-style strings on capture.
type StringLiteral string

// Capture implements participle.Capture.
func (s *StringLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("string literal capture requires value")
	}
	val, err := strconv.Unquote(values[0])
	if err != nil {
		return err
	}
	*s = StringLiteral(val)
	return nil
}

// DateLiteral captures ISO dates (2006-01-02) as UTC midnight.
type DateLiteral time.Time

// Capture implements participle.Capture.
func (d *DateLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("date literal capture requires value")
	}
	t, err := time.ParseInLocation("2006-01-02", values[0], time.UTC)
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", values[0], err)
	}
	*d = DateLiteral(t)
	return nil
}

// Time converts the literal back to time.Time.
func (d DateLiteral) Time() time.Time { return time.Time(d) }

// NumberLiteral keeps the numeric value together with its optional unit suffix.
type NumberLiteral struct {
	Value float64
	Unit  string // "", pt, mm, cm, in
}

// Capture implements participle.Capture.
func (n *NumberLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("number literal capture requires value")
	}
	raw := values[0]
	num := raw
	for _, suffix := range []string{"pt", "mm", "cm", "in"} {
		if len(raw) > len(suffix) && raw[len(raw)-len(suffix):] == suffix {
			num, n.Unit = raw[:len(raw)-len(suffix)], suffix
			break
		}
	}
	val, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", raw, err)
	}
	n.Value = val
	return nil
}

// BoolLiteral captures bare true/false identifiers.
type BoolLiteral bool

// Capture implements participle.Capture.
func (b *BoolLiteral) Capture(values []string) error {
	if len(values) == 0 {
		return fmt.Errorf("bool literal capture requires value")
	}
	*b = values[0] == "true"
	return nil
}

// Parse parses DSL content from an io.Reader.
func Parse(r io.Reader) (*Document, error) {
	return documentParser.Parse("", r)
}

// ParseString parses DSL content from a string.
func ParseString(input string) (*Document, error) {
	return documentParser.ParseString("", input)
}
