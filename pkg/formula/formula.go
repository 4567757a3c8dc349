// Package formula parses model formulas of the form
//
//	kid_score ~ mom_hs + mom_iq + mom_hs:mom_iq
//
// and turns them into design matrices. Supported operators: '+' adds terms,
// ':' forms interactions, '*' crosses (a*b = a + b + a:b), '-' removes a term,
// factor(x) treats x as categorical, I(x^k) adds a power term, and 0 / -1
// remove the intercept.
package formula

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// ErrSyntax is wrapped by every parse failure.
var ErrSyntax = errors.New("formula: syntax error")

// FactorKind says how a variable enters a term.
type FactorKind int

const (
	Plain FactorKind = iota
	AsFactor
	PowerOf
)

// Factor is one variable inside a term.
type Factor struct {
	Var   string
	Kind  FactorKind
	Power int
}

// Label renders the factor the way it appears in coefficient names.
func (f Factor) Label() string {
	switch f.Kind {
	case AsFactor:
		return "factor(" + f.Var + ")"
	case PowerOf:
		return "I(" + f.Var + "^" + strconv.Itoa(f.Power) + ")"
	}
	return f.Var
}

// Term is a main effect (one factor) or an interaction (several).
type Term struct {
	Factors []Factor
}

// Label joins factor labels with ':'.
func (t Term) Label() string {
	parts := make([]string, len(t.Factors))
	for i, f := range t.Factors {
		parts[i] = f.Label()
	}
	return strings.Join(parts, ":")
}

func (t Term) key() string {
	parts := make([]string, len(t.Factors))
	for i, f := range t.Factors {
		parts[i] = f.Label()
	}
	sort.Strings(parts)
	return strings.Join(parts, ":")
}

// Formula is a parsed model formula.
type Formula struct {
	Text      string
	Response  string
	Terms     []Term
	Intercept bool
}

// String returns the source text.
func (f *Formula) String() string { return f.Text }

// Variables returns the response followed by every distinct predictor
// variable, in order of first appearance.
func (f *Formula) Variables() []string {
	seen := map[string]bool{f.Response: true}
	out := []string{f.Response}
	for _, t := range f.Terms {
		for _, fac := range t.Factors {
			if !seen[fac.Var] {
				seen[fac.Var] = true
				out = append(out, fac.Var)
			}
		}
	}
	return out
}

// Predictors returns Variables without the response.
func (f *Formula) Predictors() []string { return f.Variables()[1:] }

// Parse parses a formula.
func Parse(text string) (*Formula, error) {
	lhs, rhs, ok := strings.Cut(text, "~")
	if !ok {
		return nil, fmt.Errorf("%w: missing '~' in %q", ErrSyntax, text)
	}
	resp := strings.TrimSpace(lhs)
	if !isIdent(resp) {
		return nil, fmt.Errorf("%w: response %q is not a column name", ErrSyntax, resp)
	}
	toks, err := lex(rhs)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks, intercept: true}
	terms, err := p.expr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, p.toks[p.pos].text)
	}
	for _, t := range terms {
		for _, fac := range t.Factors {
			if fac.Var == resp {
				return nil, fmt.Errorf("%w: response %q used as predictor", ErrSyntax, resp)
			}
		}
	}
	// main effects first, then two-way interactions, and so on
	sort.SliceStable(terms, func(i, j int) bool { return len(terms[i].Factors) < len(terms[j].Factors) })

	return &Formula{
		Text:      strings.TrimSpace(text),
		Response:  resp,
		Terms:     terms,
		Intercept: p.intercept,
	}, nil
}

// MustParse is Parse for static formulas; it panics on error.
func MustParse(text string) *Formula {
	f, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return f
}

type tokKind int

const (
	tIdent tokKind = iota
	tNum
	tOp
)

type token struct {
	kind tokKind
	text string
}

func lex(s string) ([]token, error) {
	var toks []token
	rs := []rune(s)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case strings.ContainsRune("+-*:()^", r):
			toks = append(toks, token{tOp, string(r)})
			i++
		case unicode.IsDigit(r):
			j := i
			for j < len(rs) && (unicode.IsDigit(rs[j]) || rs[j] == '.') {
				j++
			}
			toks = append(toks, token{tNum, string(rs[i:j])})
			i = j
		case unicode.IsLetter(r) || r == '_' || r == '.':
			j := i
			for j < len(rs) && (unicode.IsLetter(rs[j]) || unicode.IsDigit(rs[j]) || rs[j] == '_' || rs[j] == '.') {
				j++
			}
			toks = append(toks, token{tIdent, string(rs[i:j])})
			i = j
		default:
			return nil, fmt.Errorf("%w: unexpected character %q", ErrSyntax, r)
		}
	}
	if len(toks) == 0 {
		return nil, fmt.Errorf("%w: empty right-hand side", ErrSyntax)
	}
	return toks, nil
}

func isIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if unicode.IsLetter(r) || r == '_' || r == '.' || (i > 0 && unicode.IsDigit(r)) {
			continue
		}
		return false
	}
	return true
}

type parser struct {
	toks      []token
	pos       int
	intercept bool
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.toks) {
		return token{}, false
	}
	return p.toks[p.pos], true
}

func (p *parser) isOp(op string) bool {
	t, ok := p.peek()
	return ok && t.kind == tOp && t.text == op
}

func (p *parser) expect(op string) error {
	if !p.isOp(op) {
		return fmt.Errorf("%w: expected %q", ErrSyntax, op)
	}
	p.pos++
	return nil
}

// expr := ['-'] sumand { ('+'|'-') sumand }
func (p *parser) expr() ([]Term, error) {
	var terms []Term
	sign := "+"
	if p.isOp("-") {
		sign = "-"
		p.pos++
	}
	for {
		if t, ok := p.peek(); ok && t.kind == tNum {
			p.pos++
			switch {
			case t.text == "0":
				p.intercept = false
			case t.text == "1":
				p.intercept = sign == "+"
			default:
				return nil, fmt.Errorf("%w: unexpected number %s", ErrSyntax, t.text)
			}
		} else {
			ts, err := p.cross()
			if err != nil {
				return nil, err
			}
			if sign == "+" {
				terms = addTerms(terms, ts)
			} else {
				terms = removeTerms(terms, ts)
			}
		}
		switch {
		case p.isOp("+"):
			sign = "+"
		case p.isOp("-"):
			sign = "-"
		default:
			return terms, nil
		}
		p.pos++
	}
}

// cross := inter { '*' inter }
func (p *parser) cross() ([]Term, error) {
	acc, err := p.inter()
	if err != nil {
		return nil, err
	}
	for p.isOp("*") {
		p.pos++
		rhs, err := p.inter()
		if err != nil {
			return nil, err
		}
		acc = addTerms(addTerms(acc, rhs), product(acc, rhs))
	}
	return acc, nil
}

// inter := atom { ':' atom }
func (p *parser) inter() ([]Term, error) {
	acc, err := p.atom()
	if err != nil {
		return nil, err
	}
	for p.isOp(":") {
		p.pos++
		rhs, err := p.atom()
		if err != nil {
			return nil, err
		}
		acc = product(acc, rhs)
	}
	return acc, nil
}

func (p *parser) atom() ([]Term, error) {
	t, ok := p.peek()
	if !ok {
		return nil, fmt.Errorf("%w: unexpected end of formula", ErrSyntax)
	}
	if t.kind != tIdent {
		return nil, fmt.Errorf("%w: unexpected %q", ErrSyntax, t.text)
	}
	p.pos++

	if !p.isOp("(") {
		return []Term{{Factors: []Factor{{Var: t.text, Kind: Plain}}}}, nil
	}
	p.pos++
	arg, ok := p.peek()
	if !ok || arg.kind != tIdent {
		return nil, fmt.Errorf("%w: %s() needs a column name", ErrSyntax, t.text)
	}
	p.pos++

	var fac Factor
	switch t.text {
	case "factor", "as.factor":
		fac = Factor{Var: arg.text, Kind: AsFactor}
	case "I":
		if err := p.expect("^"); err != nil {
			return nil, err
		}
		n, ok := p.peek()
		if !ok || n.kind != tNum {
			return nil, fmt.Errorf("%w: I() needs an integer power", ErrSyntax)
		}
		k, err := strconv.Atoi(n.text)
		if err != nil || k < 1 {
			return nil, fmt.Errorf("%w: bad power %q", ErrSyntax, n.text)
		}
		p.pos++
		fac = Factor{Var: arg.text, Kind: PowerOf, Power: k}
	default:
		return nil, fmt.Errorf("%w: unknown function %s()", ErrSyntax, t.text)
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}
	return []Term{{Factors: []Factor{fac}}}, nil
}

func product(a, b []Term) []Term {
	var out []Term
	for _, ta := range a {
		for _, tb := range b {
			fs := append([]Factor{}, ta.Factors...)
			for _, f := range tb.Factors {
				dup := false
				for _, g := range fs {
					if g == f {
						dup = true
						break
					}
				}
				if !dup {
					fs = append(fs, f)
				}
			}
			out = addTerms(out, []Term{{Factors: fs}})
		}
	}
	return out
}

func addTerms(dst, src []Term) []Term {
	for _, t := range src {
		found := false
		for _, d := range dst {
			if d.key() == t.key() {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, t)
		}
	}
	return dst
}

func removeTerms(dst, src []Term) []Term {
	out := dst[:0:0]
	for _, d := range dst {
		drop := false
		for _, t := range src {
			if d.key() == t.key() {
				drop = true
				break
			}
		}
		if !drop {
			out = append(out, d)
		}
	}
	return out
}
