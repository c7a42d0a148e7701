package symbols

import (
	"zulonc/internal/ast"
	"zulonc/internal/source"
	"zulonc/internal/types"
)

// SymbolKind classifies the semantic meaning of a symbol.
type SymbolKind uint8

const (
	// SymbolInvalid represents an uninitialized or erroneous symbol.
	SymbolInvalid SymbolKind = iota
	SymbolFunction
	SymbolLet
	SymbolConst
	SymbolType
	SymbolParam
	SymbolEffect
	SymbolTrait
)

// SymbolFlags encode misc attributes for quick checks.
type SymbolFlags uint16

const (
	// SymbolFlagMutable indicates the symbol was declared `let mut`.
	SymbolFlagMutable SymbolFlags = 1 << iota
	SymbolFlagBuiltin
	SymbolFlagIsTest
)

func (k SymbolKind) String() string {
	switch k {
	case SymbolFunction:
		return "function"
	case SymbolLet:
		return "let"
	case SymbolConst:
		return "const"
	case SymbolType:
		return "type"
	case SymbolParam:
		return "param"
	case SymbolEffect:
		return "effect"
	case SymbolTrait:
		return "trait"
	default:
		return "invalid"
	}
}

// TypeParamSymbol describes a generic parameter and its trait bounds.
type TypeParamSymbol struct {
	Name   source.StringID
	Span   source.Span
	Bounds []SymbolID // each bound names a trait symbol
}

// SymbolDecl points back to the AST origin, for diagnostics.
type SymbolDecl struct {
	SourceFile source.FileID
	Item       ast.ItemID
	Stmt       ast.StmtID
}

// Symbol describes a named entity available in a scope.
type Symbol struct {
	Name       source.StringID
	Kind       SymbolKind
	Scope      ScopeID
	Span       source.Span
	Flags      SymbolFlags
	Decl       SymbolDecl
	Type       types.TypeID
	TypeParams []TypeParamSymbol
}
