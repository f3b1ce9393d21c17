package semanticdb

// Resolver computes fallback symbols to try when a symbol has no indexed data
type Resolver interface {
	ReferenceAlternatives(sym Symbol) []Symbol
	DefinitionAlternatives(sym Symbol) []Symbol
}

// rule is one independent predicate+transform over symbols
type rule struct {
	name  string
	apply func(Symbol) (Symbol, bool)
}

// synthesizedMethods are the companion methods generated for record-like types
var synthesizedMethods = map[string]bool{
	"apply": true,
	"copy":  true,
}

// termTypeSwap: Global(o, Term(n)) <-> Global(o, Type(n))
var termTypeSwap = rule{
	name: "term-type-swap",
	apply: func(sym Symbol) (Symbol, bool) {
		g, ok := sym.(Global)
		if !ok {
			return nil, false
		}
		switch sig := g.Signature.(type) {
		case Term:
			return Global{Owner: Owner(g), Signature: Type{Name: sig.Name}}, true
		case Type:
			return Global{Owner: Owner(g), Signature: Term{Name: sig.Name}}, true
		}
		return nil, false
	},
}

// synthesizedParamToField maps a parameter of a generated apply/copy method
// back to the field declared on the type:
// Global(Global(Global(o, sig), Method(apply|copy)), TermParameter(p)) -> Global(Global(o, Type(sig.name)), TermParameter(p))
var synthesizedParamToField = rule{
	name: "synthesized-param-to-field",
	apply: func(sym Symbol) (Symbol, bool) {
		param, ok := sym.(Global)
		if !ok {
			return nil, false
		}
		p, ok := param.Signature.(TermParameter)
		if !ok {
			return nil, false
		}
		owner, ok := synthesizedMethodOwner(param.Owner)
		if !ok {
			return nil, false
		}
		return Global{Owner: owner, Signature: p}, true
	},
}

// synthesizedMethodToType: Global(Global(o, sig), Method(apply|copy)) -> Global(o, Type(sig.name))
var synthesizedMethodToType = rule{
	name: "synthesized-method-to-type",
	apply: func(sym Symbol) (Symbol, bool) {
		return synthesizedMethodOwner(sym)
	},
}

// methodToValue: Global(o, Method(n)) -> Global(o, Term(n))
var methodToValue = rule{
	name: "method-to-value",
	apply: func(sym Symbol) (Symbol, bool) {
		g, ok := sym.(Global)
		if !ok {
			return nil, false
		}
		m, ok := g.Signature.(Method)
		if !ok {
			return nil, false
		}
		return Global{Owner: Owner(g), Signature: Term{Name: m.Name}}, true
	},
}

// synthesizedMethodOwner matches Global(Global(o, sig), Method(apply|copy))
// and returns Global(o, Type(sig.name)).
func synthesizedMethodOwner(sym Symbol) (Symbol, bool) {
	method, ok := sym.(Global)
	if !ok {
		return nil, false
	}
	m, ok := method.Signature.(Method)
	if !ok || !synthesizedMethods[m.Name] {
		return nil, false
	}
	companion, ok := method.Owner.(Global)
	if !ok {
		return nil, false
	}
	return Global{Owner: Owner(companion), Signature: Type{Name: companion.Signature.DisplayName()}}, true
}

var (
	referenceRules  = []rule{termTypeSwap, synthesizedParamToField}
	definitionRules = []rule{termTypeSwap, synthesizedMethodToType, synthesizedParamToField, methodToValue}
)

// ReferenceAlternatives returns the symbols to try, in order, when a reference
// query finds nothing for sym.
func ReferenceAlternatives(sym Symbol) []Symbol {
	return alternatives(sym, referenceRules)
}

// DefinitionAlternatives returns the symbols to try, in order, when a
// definition query finds nothing for sym.
func DefinitionAlternatives(sym Symbol) []Symbol {
	return alternatives(sym, definitionRules)
}

func alternatives(sym Symbol, rules []rule) []Symbol {
	if sym == nil {
		return nil
	}
	sym = Canonical(sym)
	seen := map[Symbol]struct{}{sym: {}}
	var out []Symbol
	for _, r := range rules {
		alt, ok := r.apply(sym)
		if !ok {
			continue
		}
		if _, dup := seen[alt]; dup {
			continue
		}
		seen[alt] = struct{}{}
		out = append(out, alt)
	}
	return out
}

// DefaultResolver applies the built-in rule sets
type DefaultResolver struct{}

func (DefaultResolver) ReferenceAlternatives(sym Symbol) []Symbol {
	return ReferenceAlternatives(sym)
}

func (DefaultResolver) DefinitionAlternatives(sym Symbol) []Symbol {
	return DefinitionAlternatives(sym)
}
