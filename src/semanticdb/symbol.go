// Package semanticdb models SemanticDB symbols: owner-qualified global
// symbols, file-local symbols and the root marker, plus the alternative-symbol
// rules used when syntactic sugar makes one declaration appear under several names.
package semanticdb

import (
	"strings"
)

// Symbol is one of Global, Local or Root. All variants are comparable values,
// so == and map keys give structural equality over the whole owner chain.
type Symbol interface {
	// String renders the symbol in SemanticDB syntax
	String() string
	isSymbol()
}

// Signature is the descriptor of a Global symbol: one of Package, Term, Type,
// Method, TermParameter or TypeParameter.
type Signature interface {
	// DisplayName is the bare name without descriptor punctuation
	DisplayName() string
	render(b *strings.Builder)
	isSignature()
}

// Global is a symbol owned by another symbol
type Global struct {
	Owner     Symbol
	Signature Signature
}

// Local is a symbol only visible inside one document, e.g. "local12"
type Local struct {
	ID string
}

// Root terminates every owner chain
type Root struct{}

func (Global) isSymbol() {}
func (Local) isSymbol()  {}
func (Root) isSymbol()   {}

func (g Global) String() string {
	var b strings.Builder
	g.render(&b)
	return b.String()
}

func (g Global) render(b *strings.Builder) {
	switch owner := g.Owner.(type) {
	case Global:
		owner.render(b)
	case nil, Root:
	default:
		b.WriteString(owner.String())
	}
	g.Signature.render(b)
}

func (l Local) String() string { return localPrefix + l.ID }

func (Root) String() string { return rootPackage }

// NewGlobal builds Global{owner, sig}; a nil owner means the root
func NewGlobal(owner Symbol, sig Signature) Global {
	if owner == nil {
		owner = Root{}
	}
	return Global{Owner: owner, Signature: sig}
}

// Package is a package descriptor: "name/"
type Package struct{ Name string }

// Term is a value descriptor: "name."
type Term struct{ Name string }

// Type is a type descriptor: "name#"
type Type struct{ Name string }

// Method is a method descriptor: "name(disambiguator)."
type Method struct {
	Name string
	// Descriptor is the overload disambiguator including parentheses, e.g. "()" or "(+1)"
	Descriptor string
}

// TermParameter is a value parameter descriptor: "(name)"
type TermParameter struct{ Name string }

// TypeParameter is a type parameter descriptor: "[name]"
type TypeParameter struct{ Name string }

func (Package) isSignature()       {}
func (Term) isSignature()          {}
func (Type) isSignature()          {}
func (Method) isSignature()        {}
func (TermParameter) isSignature() {}
func (TypeParameter) isSignature() {}

func (s Package) DisplayName() string       { return s.Name }
func (s Term) DisplayName() string          { return s.Name }
func (s Type) DisplayName() string          { return s.Name }
func (s Method) DisplayName() string        { return s.Name }
func (s TermParameter) DisplayName() string { return s.Name }
func (s TypeParameter) DisplayName() string { return s.Name }

func (s Package) render(b *strings.Builder) {
	writeName(b, s.Name)
	b.WriteByte('/')
}

func (s Term) render(b *strings.Builder) {
	writeName(b, s.Name)
	b.WriteByte('.')
}

func (s Type) render(b *strings.Builder) {
	writeName(b, s.Name)
	b.WriteByte('#')
}

func (s Method) render(b *strings.Builder) {
	writeName(b, s.Name)
	if s.Descriptor == "" {
		b.WriteString("()")
	} else {
		b.WriteString(s.Descriptor)
	}
	b.WriteByte('.')
}

func (s TermParameter) render(b *strings.Builder) {
	b.WriteByte('(')
	writeName(b, s.Name)
	b.WriteByte(')')
}

func (s TypeParameter) render(b *strings.Builder) {
	b.WriteByte('[')
	writeName(b, s.Name)
	b.WriteByte(']')
}

// DisplayName returns the bare name of sym, or "" for Root
func DisplayName(sym Symbol) string {
	switch s := sym.(type) {
	case Global:
		return s.Signature.DisplayName()
	case Local:
		return s.String()
	}
	return ""
}

// Canonical rewrites every nil owner in sym's chain to Root, the form Parse
// and NewGlobal produce. Symbols are only == when both are canonical.
func Canonical(sym Symbol) Symbol {
	g, ok := sym.(Global)
	if !ok {
		return sym
	}
	return Global{Owner: Canonical(Owner(g)), Signature: g.Signature}
}

// Owner returns the owner of a Global symbol and Root for everything else
func Owner(sym Symbol) Symbol {
	if g, ok := sym.(Global); ok && g.Owner != nil {
		return g.Owner
	}
	return Root{}
}

func writeName(b *strings.Builder, name string) {
	if isPlainName(name) {
		b.WriteString(name)
		return
	}
	b.WriteByte('`')
	b.WriteString(name)
	b.WriteByte('`')
}

func isPlainName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if !isIdentRune(r) || (i == 0 && r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '$' ||
		(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		r > 0x7f
}
