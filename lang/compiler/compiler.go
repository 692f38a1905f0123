// Package compiler implements the single-pass Pratt parser that drives the
// scanner and emits bytecode directly into a tree of lang/object.Function
// values rooted at a synthetic "script" function (§4.2). There is no
// intermediate AST: parser state (the current/previous token, the
// function-compiler stack, scope depth) and bytecode emission are
// deliberately interleaved, because back-patching jumps needs to know the
// current emission position as control-flow statements are parsed (§9,
// "Parser state sharing").
package compiler

import (
	"strconv"

	"github.com/andrewfurey21/sting/lang/bytecode"
	"github.com/andrewfurey21/sting/lang/object"
	"github.com/andrewfurey21/sting/lang/scanner"
	"github.com/andrewfurey21/sting/lang/token"
	"github.com/andrewfurey21/sting/lang/value"
)

type funcKind int

const (
	kindScript funcKind = iota
	kindFunction
)

// local is one entry of a function-compiler's locals stack (§4.2). depth
// == -1 means "declared but not yet defined", which is what makes
// `var x = x;` a compile error: the initializer's variable() lookup sees
// the not-yet-defined local and rejects it.
type local struct {
	name     string
	depth    int
	captured bool
}

// upvalueRef is one entry of a function-compiler's upvalues stack (§4.2).
type upvalueRef struct {
	index   uint32
	isLocal bool
}

// funcState holds the compiler state for one function body being compiled
// (§4.2's "functions" + "locals" + "upvalues" + "scope_depth", scoped to a
// single nesting level rather than parallel stacks, since Go's call stack
// already gives us the nesting via enclosing).
type funcState struct {
	enclosing *funcState
	fn        *object.Function
	kind      funcKind

	locals     []local
	upvalues   []upvalueRef
	scopeDepth int
}

func (fs *funcState) chunk() *bytecode.Chunk { return fs.fn.Chunk }

// Compiler is the one long-lived struct for an entire compilation (§4.2).
type Compiler struct {
	scanner *scanner.Scanner
	src     []byte
	pool    *value.Pool

	previous token.Token
	current  token.Token

	panicMode bool
	hadError  bool
	firstErr  *Error

	fn *funcState
}

// Compile compiles src into a tree of functions rooted at the synthetic
// script function (§2's control-flow: "scan → compile"). pool interns
// every string constant and global name sting's compiler produces.
func Compile(src []byte, pool *value.Pool) (*object.Function, error) {
	c := &Compiler{
		scanner: scanner.New(src),
		src:     src,
		pool:    pool,
	}
	c.fn = &funcState{
		fn:   &object.Function{Chunk: bytecode.NewChunk()},
		kind: kindScript,
	}

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	fn := c.endFunction()

	if c.hadError {
		return nil, c.firstErr
	}
	return fn, nil
}

// --- token stream plumbing ---

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.Next()
		if c.current.Type != token.ERROR {
			break
		}
		c.errorAtCurrent(c.current.Message)
	}
}

func (c *Compiler) check(t token.Type) bool { return c.current.Type == t }

func (c *Compiler) match(t token.Type) bool {
	if !c.check(t) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(t token.Type, msg string) {
	if c.current.Type == t {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) lexeme(tok token.Token) string { return tok.Lexeme(c.src) }

// --- error reporting: first-error-wins, panic-mode suppression (§7.1) ---

func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }
func (c *Compiler) errorAtPrevious(msg string) { c.errorAt(c.previous, msg) }

func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true
	if c.firstErr == nil {
		c.firstErr = &Error{Line: tok.Line, Message: msg}
	}
}

// synchronize skips tokens until a likely statement boundary, so one
// malformed statement doesn't prevent the rest of the file from being
// scanned for (suppressed) structural errors. It does not un-suppress
// reporting of new errors found this way beyond the first already kept.
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Type != token.EOF {
		if c.previous.Type == token.SEMICOLON {
			return
		}
		switch c.current.Type {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- emission helpers ---

func (c *Compiler) emit(op bytecode.Opcode, operands ...uint32) int {
	return c.fn.chunk().Emit(op, c.previous.Line, operands...)
}

func (c *Compiler) emitJump(op bytecode.Opcode) int {
	return c.emit(op, 0)
}

func (c *Compiler) patchJump(index int) { c.fn.chunk().PatchJump(index) }

func (c *Compiler) emitLoop(start int) { c.fn.chunk().EmitLoop(start, c.previous.Line) }

func (c *Compiler) makeConstant(v value.Value) uint32 { return c.fn.chunk().AddConstant(v) }

func (c *Compiler) identifierConstant(tok token.Token) uint32 {
	name := c.lexeme(tok)
	return c.makeConstant(value.String(c.pool.Intern(name)))
}

// endFunction appends the implicit `nil; return;` when a body falls off
// its end without an explicit return (§4.2), fixes the function's
// UpvalueCount from the accumulated upvalues list, and pops the
// function-compiler stack.
func (c *Compiler) endFunction() *object.Function {
	if op, ok := c.fn.chunk().LastOp(); !ok || op != bytecode.RETURN {
		c.emit(bytecode.NIL)
		c.emit(bytecode.RETURN)
	}
	fn := c.fn.fn
	fn.UpvalueCount = len(c.fn.upvalues)
	c.fn = c.fn.enclosing
	return fn
}

// --- scope handling ---

func (c *Compiler) beginScope() { c.fn.scopeDepth++ }

// endScope implements the "tight teardown" described in §4.2: walking the
// locals declared in the scope being closed from the top of the stack
// down, emitting CLOSE_VALUE for each captured local (closing its upvalue
// and popping it) and batching each run of uncaptured locals between them
// into a single POP/POPN.
func (c *Compiler) endScope() {
	c.fn.scopeDepth--

	pending := 0
	flush := func() {
		switch {
		case pending == 1:
			c.emit(bytecode.POP)
		case pending > 1:
			c.emit(bytecode.POPN, uint32(pending))
		}
		pending = 0
	}

	locals := c.fn.locals
	for len(locals) > 0 && locals[len(locals)-1].depth > c.fn.scopeDepth {
		loc := locals[len(locals)-1]
		if loc.captured {
			flush()
			c.emit(bytecode.CLOSE_VALUE)
		} else {
			pending++
		}
		locals = locals[:len(locals)-1]
	}
	flush()
	c.fn.locals = locals
}

// --- variable declaration/resolution (§4.2) ---

func (c *Compiler) parseVariable(msg string) uint32 {
	c.consume(token.IDENTIFIER, msg)
	c.declareVariable()
	if c.fn.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.previous)
}

func (c *Compiler) declareVariable() {
	if c.fn.scopeDepth == 0 {
		return
	}
	name := c.lexeme(c.previous)
	for i := len(c.fn.locals) - 1; i >= 0; i-- {
		l := c.fn.locals[i]
		if l.depth != -1 && l.depth < c.fn.scopeDepth {
			break
		}
		if l.name == name {
			c.errorAtPrevious("already a variable with this name in this scope")
			return
		}
	}
	c.addLocal(name)
}

func (c *Compiler) addLocal(name string) {
	c.fn.locals = append(c.fn.locals, local{name: name, depth: -1})
}

func (c *Compiler) markInitialized() {
	if c.fn.scopeDepth == 0 {
		return
	}
	c.fn.locals[len(c.fn.locals)-1].depth = c.fn.scopeDepth
}

func (c *Compiler) defineVariable(global uint32) {
	if c.fn.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emit(bytecode.DEFINE_GLOBAL, global)
}

// resolveLocal implements step 1 of §4.2's variable resolution order.
func resolveLocal(fs *funcState, name string) (int, bool) {
	for i := len(fs.locals) - 1; i >= 0; i-- {
		if fs.locals[i].name == name {
			return i, true
		}
	}
	return -1, false
}

// resolveUpvalue implements step 2: walk enclosing functions, marking the
// owning local captured and threading an upvalue entry through every
// intermediate function (first hop is_local=true, further hops
// is_local=false), deduplicated by (index, is_local).
func resolveUpvalue(fs *funcState, name string) (int, bool) {
	if fs.enclosing == nil {
		return -1, false
	}
	if idx, ok := resolveLocal(fs.enclosing, name); ok {
		fs.enclosing.locals[idx].captured = true
		return addUpvalue(fs, uint32(idx), true), true
	}
	if idx, ok := resolveUpvalue(fs.enclosing, name); ok {
		return addUpvalue(fs, uint32(idx), false), true
	}
	return -1, false
}

func addUpvalue(fs *funcState, index uint32, isLocal bool) int {
	for i, up := range fs.upvalues {
		if up.index == index && up.isLocal == isLocal {
			return i
		}
	}
	fs.upvalues = append(fs.upvalues, upvalueRef{index: index, isLocal: isLocal})
	return len(fs.upvalues) - 1
}

// --- Pratt engine ---

func (c *Compiler) parsePrecedence(prec Precedence) {
	c.advance()
	prefix := getRule(c.previous.Type).prefix
	if prefix == nil {
		c.errorAtPrevious("expected expression")
		return
	}
	canAssign := prec <= PrecAssignment
	prefix(c, canAssign)

	for prec <= getRule(c.current.Type).precedence {
		c.advance()
		infix := getRule(c.previous.Type).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.EQUAL) {
		c.errorAtPrevious("invalid assignment target")
	}
}

func (c *Compiler) expression() { c.parsePrecedence(PrecAssignment) }

// --- prefix/infix rules ---

func number(c *Compiler, _ bool) {
	text := c.lexeme(c.previous)
	f, _ := strconv.ParseFloat(text, 32)
	c.emit(bytecode.LOAD_CONST, c.makeConstant(value.Number(float32(f))))
}

func stringLiteral(c *Compiler, _ bool) {
	text := c.lexeme(c.previous)
	content := text[1 : len(text)-1] // strip the surrounding quotes; no escapes (§6)
	c.emit(bytecode.LOAD_CONST, c.makeConstant(value.String(c.pool.Intern(content))))
}

func literal(c *Compiler, _ bool) {
	switch c.previous.Type {
	case token.TRUE:
		c.emit(bytecode.TRUE)
	case token.FALSE:
		c.emit(bytecode.FALSE)
	case token.NIL:
		c.emit(bytecode.NIL)
	}
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.consume(token.RIGHT_PAREN, "expect ')' after expression")
}

func unary(c *Compiler, _ bool) {
	op := c.previous.Type
	c.parsePrecedence(PrecUnary)
	switch op {
	case token.MINUS:
		c.emit(bytecode.NEGATE)
	case token.BANG:
		c.emit(bytecode.NOT)
	}
}

func binary(c *Compiler, _ bool) {
	op := c.previous.Type
	r := getRule(op)
	c.parsePrecedence(r.precedence + 1)
	switch op {
	case token.PLUS:
		c.emit(bytecode.ADD)
	case token.MINUS:
		c.emit(bytecode.SUB)
	case token.STAR:
		c.emit(bytecode.MUL)
	case token.SLASH:
		c.emit(bytecode.DIV)
	case token.EQUAL_EQUAL:
		c.emit(bytecode.EQUAL)
	case token.BANG_EQUAL:
		c.emit(bytecode.EQUAL)
		c.emit(bytecode.NOT)
	case token.GREATER:
		c.emit(bytecode.GREATER)
	case token.GREATER_EQUAL:
		c.emit(bytecode.LESS)
		c.emit(bytecode.NOT)
	case token.LESS:
		c.emit(bytecode.LESS)
	case token.LESS_EQUAL:
		c.emit(bytecode.GREATER)
		c.emit(bytecode.NOT)
	}
}

func and_(c *Compiler, _ bool) {
	endJump := c.emitJump(bytecode.BRANCH_FALSE)
	c.emit(bytecode.POP)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func or_(c *Compiler, _ bool) {
	elseJump := c.emitJump(bytecode.BRANCH_FALSE)
	endJump := c.emitJump(bytecode.BRANCH)
	c.patchJump(elseJump)
	c.emit(bytecode.POP)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func variable(c *Compiler, canAssign bool) {
	name := c.lexeme(c.previous)

	var getOp, setOp bytecode.Opcode
	var arg uint32

	if idx, ok := resolveLocal(c.fn, name); ok {
		if c.fn.locals[idx].depth == -1 {
			c.errorAtPrevious("can't read local variable in its own initializer")
		}
		getOp, setOp, arg = bytecode.GET_LOCAL, bytecode.SET_LOCAL, uint32(idx)
	} else if idx, ok := resolveUpvalue(c.fn, name); ok {
		getOp, setOp, arg = bytecode.GET_UPVALUE, bytecode.SET_UPVALUE, uint32(idx)
	} else {
		arg = c.identifierConstant(c.previous)
		getOp, setOp = bytecode.GET_GLOBAL, bytecode.SET_GLOBAL
	}

	if canAssign && c.match(token.EQUAL) {
		c.expression()
		c.emit(setOp, arg)
	} else {
		c.emit(getOp, arg)
	}
}

// call compiles the argument list of a call expression. The callee's value
// is already on the stack (evaluated as the primary expression this rule
// is attached to as an infix); arguments are pushed after it, so the
// machine's CALL handler finds the callee below its n arguments rather
// than above them, an equally valid convention per §4.5's note that either
// ordering is acceptable as long as compiler and machine agree.
func call(c *Compiler, _ bool) {
	argCount := argumentList(c)
	c.emit(bytecode.CALL, argCount)
}

func argumentList(c *Compiler) uint32 {
	var count uint32
	if !c.check(token.RIGHT_PAREN) {
		for {
			c.expression()
			count++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RIGHT_PAREN, "expect ')' after arguments")
	return count
}

// --- statements ---

func (c *Compiler) declaration() {
	switch {
	case c.match(token.VAR):
		c.varDeclaration()
	case c.match(token.FUN):
		c.funDeclaration()
	default:
		c.statement()
	}
	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("expect variable name")
	if c.match(token.EQUAL) {
		c.expression()
	} else {
		c.emit(bytecode.NIL)
	}
	c.consume(token.SEMICOLON, "expect ';' after variable declaration")
	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("expect function name")
	c.markInitialized() // visible to its own body, enabling recursion
	c.function(kindFunction)
	c.defineVariable(global)
}

func (c *Compiler) function(kind funcKind) {
	name := c.lexeme(c.previous)
	fn := &object.Function{
		Name:  c.pool.Intern(name),
		Chunk: bytecode.NewChunk(),
	}
	c.fn = &funcState{enclosing: c.fn, fn: fn, kind: kind}
	c.beginScope()

	c.consume(token.LEFT_PAREN, "expect '(' after function name")
	if !c.check(token.RIGHT_PAREN) {
		for {
			fn.Arity++
			paramConst := c.parseVariable("expect parameter name")
			c.defineVariable(paramConst)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RIGHT_PAREN, "expect ')' after parameters")
	c.consume(token.LEFT_BRACE, "expect '{' before function body")
	c.block()

	upvalues := c.fn.upvalues
	compiled := c.endFunction()

	outer := c.fn
	constIdx := outer.chunk().AddConstant(compiled.Value())
	c.emit(bytecode.LOAD_CONST, constIdx)

	operands := make([]uint32, 0, 1+2*len(upvalues))
	operands = append(operands, uint32(len(upvalues)))
	for _, up := range upvalues {
		isLocal := uint32(0)
		if up.isLocal {
			isLocal = 1
		}
		operands = append(operands, isLocal, up.index)
	}
	c.emit(bytecode.MAKE_CLOSURE, operands...)
}

func (c *Compiler) block() {
	for !c.check(token.RIGHT_BRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RIGHT_BRACE, "expect '}' after block")
}

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.LEFT_BRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "expect ';' after value")
	c.emit(bytecode.PRINT)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "expect ';' after expression")
	c.emit(bytecode.POP)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LEFT_PAREN, "expect '(' after 'if'")
	c.expression()
	c.consume(token.RIGHT_PAREN, "expect ')' after condition")

	thenJump := c.emitJump(bytecode.BRANCH_FALSE)
	c.emit(bytecode.POP)
	c.statement()

	elseJump := c.emitJump(bytecode.BRANCH)
	c.patchJump(thenJump)
	c.emit(bytecode.POP)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := c.fn.chunk().Len()
	c.consume(token.LEFT_PAREN, "expect '(' after 'while'")
	c.expression()
	c.consume(token.RIGHT_PAREN, "expect ')' after condition")

	exitJump := c.emitJump(bytecode.BRANCH_FALSE)
	c.emit(bytecode.POP)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emit(bytecode.POP)
}

// forStatement desugars `for (init; cond; inc) body` the way §4.2
// prescribes: init's variable lives in an enclosing scope visible to
// cond/body/inc, cond is checked before every iteration (including the
// first), body runs, then inc, then the loop repeats from cond.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LEFT_PAREN, "expect '(' after 'for'")

	switch {
	case c.match(token.SEMICOLON):
		// no initializer
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := c.fn.chunk().Len()
	exitJump := -1
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "expect ';' after loop condition")
		exitJump = c.emitJump(bytecode.BRANCH_FALSE)
		c.emit(bytecode.POP)
	}

	if !c.check(token.RIGHT_PAREN) {
		bodyJump := c.emitJump(bytecode.BRANCH)
		incrementStart := c.fn.chunk().Len()
		c.expression()
		c.emit(bytecode.POP)
		c.consume(token.RIGHT_PAREN, "expect ')' after for clauses")

		c.emitLoop(loopStart)
		loopStart = incrementStart
		c.patchJump(bodyJump)
	} else {
		c.consume(token.RIGHT_PAREN, "expect ')' after for clauses")
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emit(bytecode.POP)
	}
	c.endScope()
}

func (c *Compiler) returnStatement() {
	if c.fn.kind == kindScript {
		c.errorAtPrevious("can't return from top-level code")
	}
	if c.match(token.SEMICOLON) {
		c.emit(bytecode.NIL)
		c.emit(bytecode.RETURN)
		return
	}
	c.expression()
	c.consume(token.SEMICOLON, "expect ';' after return value")
	c.emit(bytecode.RETURN)
}
