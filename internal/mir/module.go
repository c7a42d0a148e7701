package mir

import (
	"zulonc/internal/layout"
	"zulonc/internal/source"
	"zulonc/internal/symbols"
	"zulonc/internal/types"
)

// Module is a whole monomorphized program lowered to MIR: one CFG per
// function instantiation, plus the global table and the metadata the
// LLVM backend needs for ABI-sensitive lowering (struct/union layout,
// tag-union case names).
type Module struct {
	Funcs     map[FuncID]*Func
	FuncBySym map[symbols.SymbolID]FuncID
	Globals   []Global
	Main      FuncID
	Meta      *ModuleMeta
}

// Global represents a module-level variable.
type Global struct {
	Sym   symbols.SymbolID
	Type  types.TypeID
	Name  string
	IsMut bool
	Span  source.Span
}

// ModuleMeta carries cross-function information the backend needs but
// that doesn't belong on any single Func: the ABI layout engine and the
// tag-union case tables used to emit discriminant switches and payload
// field names in debug output.
type ModuleMeta struct {
	Layout       *layout.Engine
	FuncTypeArgs map[symbols.SymbolID][]types.TypeID
	TagLayouts   map[types.TypeID][]TagCaseMeta
	TagNames     map[symbols.SymbolID]string
	TagAliases   map[symbols.SymbolID]symbols.SymbolID
}

// TagCaseMeta describes one case of a tag-union type for backend lowering.
type TagCaseMeta struct {
	TagName      string
	TagSym       symbols.SymbolID
	PayloadTypes []types.TypeID
}
