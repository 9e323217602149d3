package expr

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Expression is a parsed, immutable equation.
type Expression struct {
	source string
	root   Node
	vars   []string
}

// Parse parses equation text into an Expression.
// The text is NFC-normalized before lexing; ParseError offsets refer to the
// normalized text.
func Parse(text string) (*Expression, error) {
	normalized := norm.NFC.String(text)
	if strings.TrimSpace(normalized) == "" {
		return nil, &ParseError{Offset: 0, Message: "empty equation", Source: text}
	}

	toks, err := lex([]rune(normalized))
	if err != nil {
		return nil, withSource(err, text)
	}

	p := &parser{toks: toks}
	root, err := p.parseExpr()
	if err != nil {
		return nil, withSource(err, text)
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, &ParseError{Offset: tok.offset, Message: fmt.Sprintf("unexpected %s", describe(tok)), Source: text}
	}

	return &Expression{source: text, root: root, vars: collectVariables(root)}, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or when the equation is known to be valid.
func MustParse(text string) *Expression {
	e, err := Parse(text)
	if err != nil {
		panic(err)
	}
	return e
}

// Source returns the equation text as given to Parse.
func (e *Expression) Source() string {
	return e.source
}

// Root returns the root node of the expression tree.
func (e *Expression) Root() Node {
	return e.root
}

// Variables returns the distinct variable names referenced by the
// expression, sorted.
func (e *Expression) Variables() []string {
	out := make([]string, len(e.vars))
	copy(out, e.vars)
	return out
}

// String returns a normalized rendering of the expression with explicit
// spacing and only the parentheses the grammar requires.
func (e *Expression) String() string {
	var sb strings.Builder
	e.root.write(&sb)
	return sb.String()
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) next() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) parseExpr() (Node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokPlus && tok.kind != tokMinus {
			return left, nil
		}
		p.next()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: tok.text[0], Left: left, Right: right}
	}
}

func (p *parser) parseTerm() (Node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokStar && tok.kind != tokSlash {
			return left, nil
		}
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: tok.text[0], Left: left, Right: right}
	}
}

func (p *parser) parseUnary() (Node, error) {
	tok := p.peek()
	if tok.kind == tokMinus || tok.kind == tokPlus {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: tok.text[0], Operand: operand}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Node, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokCaret {
		return base, nil
	}
	p.next()
	exp, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &Binary{Op: '^', Left: base, Right: exp}, nil
}

func (p *parser) parsePrimary() (Node, error) {
	tok := p.next()
	switch tok.kind {
	case tokNumber:
		return &Literal{Value: tok.num}, nil
	case tokIdent:
		if p.peek().kind == tokLParen {
			return p.parseCall(tok)
		}
		return &Variable{Name: tok.text}, nil
	case tokLParen:
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if closing := p.next(); closing.kind != tokRParen {
			return nil, &ParseError{Offset: closing.offset, Message: fmt.Sprintf("expected ')' but found %s", describe(closing))}
		}
		return inner, nil
	default:
		return nil, &ParseError{Offset: tok.offset, Message: fmt.Sprintf("expected operand but found %s", describe(tok))}
	}
}

func (p *parser) parseCall(name token) (Node, error) {
	fn, ok := functions[name.text]
	if !ok {
		return nil, &ParseError{Offset: name.offset, Message: fmt.Sprintf("unknown function %q", name.text)}
	}
	p.next() // '('

	var args []Node
	if p.peek().kind != tokRParen {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if closing := p.next(); closing.kind != tokRParen {
		return nil, &ParseError{Offset: closing.offset, Message: fmt.Sprintf("expected ')' or ',' but found %s", describe(closing))}
	}

	if len(args) < fn.minArgs || (fn.maxArgs >= 0 && len(args) > fn.maxArgs) {
		return nil, &ParseError{Offset: name.offset, Message: fmt.Sprintf("function %s expects %s, got %d", name.text, fn.arity(), len(args))}
	}
	return &Call{Name: name.text, Args: args}, nil
}

func describe(tok token) string {
	switch tok.kind {
	case tokEOF:
		return tok.kind.String()
	case tokNumber, tokIdent:
		return fmt.Sprintf("%s %q", tok.kind, tok.text)
	default:
		return fmt.Sprintf("'%s'", tok.text)
	}
}

func withSource(err error, source string) error {
	if pe, ok := err.(*ParseError); ok {
		pe.Source = source
	}
	return err
}

func collectVariables(root Node) []string {
	seen := make(map[string]bool)
	var walk func(Node)
	walk = func(n Node) {
		switch v := n.(type) {
		case *Variable:
			seen[v.Name] = true
		case *Unary:
			walk(v.Operand)
		case *Binary:
			walk(v.Left)
			walk(v.Right)
		case *Call:
			for _, a := range v.Args {
				walk(a)
			}
		}
	}
	walk(root)

	vars := make([]string, 0, len(seen))
	for name := range seen {
		vars = append(vars, name)
	}
	sort.Strings(vars)
	return vars
}
