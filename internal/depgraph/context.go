package depgraph

import "github.com/rc-lang/rc/internal/ir"

// Context is the shared, process-scoped mutable state spec.md §5
// describes: a function-name -> CFG map and a function-name ->
// memoised dependency-graph map. A simple sequential map is sufficient
// (spec.md §5): there is no concurrency in this pipeline, so no
// synchronization is needed around either map.
type Context struct {
	Funcs        map[string]*ir.Func
	Constructors map[string]bool // named tagged-union variant constructors

	memo      map[string]*Graph
	computing map[string]bool
}

// NewContext creates an empty analysis context.
func NewContext() *Context {
	return &Context{
		Funcs:        map[string]*ir.Func{},
		Constructors: map[string]bool{},
		memo:         map[string]*Graph{},
		computing:    map[string]bool{},
	}
}

// AddFunc registers a function's CFG for later lookup by name.
func (c *Context) AddFunc(f *ir.Func) { c.Funcs[f.Name] = f }

// AddConstructor registers name as a named tagged-union constructor:
// calls to it are treated as product construction (like tuple), not
// as a recursive callee to inline.
func (c *Context) AddConstructor(name string) { c.Constructors[name] = true }

// install makes g the current approximation for name, observable by
// the very next lookup — the fixed-point primitive spec.md §5 and §9
// call for.
func (c *Context) install(name string, g *Graph) { c.memo[name] = g }

// Install pre-seeds the memoised graph for name, so a later GraphFor
// returns g directly instead of computing it from a registered CFG.
// Exported for tests and tooling that already have a graph on hand
// (a cached build artifact, a hand-constructed fixture) and want to
// short-circuit the fixed point rather than reconstruct a CFG that
// would produce it.
func (c *Context) Install(name string, g *Graph) { c.install(name, g) }

// installed returns the currently memoised graph for name, if any,
// without triggering computation.
func (c *Context) installed(name string) (*Graph, bool) {
	g, ok := c.memo[name]
	return g, ok
}

// GraphFor returns the dependency graph for a user-defined function,
// computing and memoising it (via the recursion-aware fixed point) on
// first use. It panics with rcerrors.ErrMissingFunction if no function
// named name is registered with AddFunc; intrinsics and constructors
// have no graph here either, and callers handle those names before
// asking for one. An unknown callee is fatal by design.
func (c *Context) GraphFor(name string) *Graph {
	if g, ok := c.installed(name); ok {
		return g
	}

	f, ok := c.Funcs[name]
	if !ok {
		panicMissingFunction(name)
	}

	if c.computing[name] {
		// Mutual recursion through a cycle this driver hasn't
		// installed an approximation for yet: fall back to a safe
		// opaque-return stub rather than recursing forever. Only
		// self-recursion is exercised by spec.md's scenarios; this is
		// the same conservative upper bound FixedPoint's divergence
		// fallback uses.
		return opaqueReturnStub(f.ArgCount)
	}

	c.computing[name] = true
	defer delete(c.computing, name)

	return FixedPoint(c, f)
}
