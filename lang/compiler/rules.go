package compiler

import "github.com/andrewfurey21/sting/lang/token"

// Precedence is one of the 11 levels the Pratt loop climbs through (§4.2).
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // ( )
	PrecPrimary
)

type prefixFn func(c *Compiler, canAssign bool)
type infixFn func(c *Compiler, canAssign bool)

// rule is one row of the rule table described in §4.2: which prefix parser
// (if any) a token type starts an expression with, which infix parser (if
// any) continues one, and at what precedence the infix form binds.
type rule struct {
	prefix     prefixFn
	infix      infixFn
	precedence Precedence
}

// rules is indexed by token.Type, mirroring clox's array-of-rules table.
var rules [int(token.ERROR) + 1]rule

func init() {
	rules[token.LEFT_PAREN] = rule{prefix: grouping, infix: call, precedence: PrecCall}
	rules[token.MINUS] = rule{prefix: unary, infix: binary, precedence: PrecTerm}
	rules[token.PLUS] = rule{infix: binary, precedence: PrecTerm}
	rules[token.SLASH] = rule{infix: binary, precedence: PrecFactor}
	rules[token.STAR] = rule{infix: binary, precedence: PrecFactor}
	rules[token.BANG] = rule{prefix: unary}
	rules[token.BANG_EQUAL] = rule{infix: binary, precedence: PrecEquality}
	rules[token.EQUAL_EQUAL] = rule{infix: binary, precedence: PrecEquality}
	rules[token.GREATER] = rule{infix: binary, precedence: PrecComparison}
	rules[token.GREATER_EQUAL] = rule{infix: binary, precedence: PrecComparison}
	rules[token.LESS] = rule{infix: binary, precedence: PrecComparison}
	rules[token.LESS_EQUAL] = rule{infix: binary, precedence: PrecComparison}
	rules[token.IDENTIFIER] = rule{prefix: variable}
	rules[token.STRING] = rule{prefix: stringLiteral}
	rules[token.NUMBER] = rule{prefix: number}
	rules[token.AND] = rule{infix: and_, precedence: PrecAnd}
	rules[token.OR] = rule{infix: or_, precedence: PrecOr}
	rules[token.TRUE] = rule{prefix: literal}
	rules[token.FALSE] = rule{prefix: literal}
	rules[token.NIL] = rule{prefix: literal}
}

func getRule(t token.Type) *rule { return &rules[t] }
