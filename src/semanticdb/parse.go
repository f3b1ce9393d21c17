package semanticdb

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"semanticdb-lsp/src/internal/errors"
)

const (
	rootPackage = "_root_/"
	localPrefix = "local"
)

// Parse reads a symbol in SemanticDB syntax, e.g. "a/b/Foo#copy().(x)".
// Malformed input yields a ValidationError.
func Parse(s string) (Symbol, error) {
	if s == "" {
		return nil, errors.NewValidationError("symbol", "empty symbol")
	}
	if s == rootPackage {
		return Root{}, nil
	}
	if rest, ok := strings.CutPrefix(s, localPrefix); ok && !strings.ContainsAny(rest, "/.#([`") {
		return Local{ID: rest}, nil
	}

	p := &parser{input: s}
	var sym Symbol = Root{}
	for !p.eof() {
		sig, err := p.descriptor()
		if err != nil {
			return nil, errors.NewValidationError("symbol", fmt.Sprintf("%q: %v", s, err))
		}
		sym = Global{Owner: sym, Signature: sig}
	}
	return sym, nil
}

// MustParse is Parse for constants known to be well formed
func MustParse(s string) Symbol {
	sym, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return sym
}

type parser struct {
	input string
	pos   int
}

func (p *parser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

func (p *parser) expect(c byte) error {
	if p.peek() != c {
		return fmt.Errorf("expected %q at offset %d", c, p.pos)
	}
	p.pos++
	return nil
}

func (p *parser) descriptor() (Signature, error) {
	switch p.peek() {
	case '(':
		p.pos++
		name, err := p.name()
		if err != nil {
			return nil, err
		}
		if err := p.expect(')'); err != nil {
			return nil, err
		}
		return TermParameter{Name: name}, nil
	case '[':
		p.pos++
		name, err := p.name()
		if err != nil {
			return nil, err
		}
		if err := p.expect(']'); err != nil {
			return nil, err
		}
		return TypeParameter{Name: name}, nil
	}

	name, err := p.name()
	if err != nil {
		return nil, err
	}
	if p.eof() {
		return nil, fmt.Errorf("missing descriptor suffix after %q", name)
	}

	switch c := p.input[p.pos]; c {
	case '/':
		p.pos++
		return Package{Name: name}, nil
	case '.':
		p.pos++
		return Term{Name: name}, nil
	case '#':
		p.pos++
		return Type{Name: name}, nil
	case '(':
		end := strings.IndexByte(p.input[p.pos:], ')')
		if end < 0 {
			return nil, fmt.Errorf("unterminated method disambiguator at offset %d", p.pos)
		}
		disambiguator := p.input[p.pos : p.pos+end+1]
		p.pos += end + 1
		if err := p.expect('.'); err != nil {
			return nil, err
		}
		return Method{Name: name, Descriptor: disambiguator}, nil
	default:
		return nil, fmt.Errorf("unexpected %q at offset %d", c, p.pos)
	}
}

func (p *parser) name() (string, error) {
	if p.peek() == '`' {
		p.pos++
		end := strings.IndexByte(p.input[p.pos:], '`')
		if end < 0 {
			return "", fmt.Errorf("unterminated backquoted name at offset %d", p.pos-1)
		}
		name := p.input[p.pos : p.pos+end]
		p.pos += end + 1
		return name, nil
	}

	start := p.pos
	for !p.eof() {
		r, size := utf8.DecodeRuneInString(p.input[p.pos:])
		if !isIdentRune(r) {
			break
		}
		p.pos += size
	}
	if start == p.pos {
		return "", fmt.Errorf("expected name at offset %d", p.pos)
	}
	return p.input[start:p.pos], nil
}
