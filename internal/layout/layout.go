package layout

import "zulonc/internal/types"

// TypeLayout is the ABI layout of a type for a specific Target.
type TypeLayout struct {
	Size  int
	Align int

	// Struct-only:
	FieldOffsets []int
	FieldAligns  []int

	// Tag-union fields, for ABI queries only.
	TagSize       int
	TagAlign      int
	PayloadOffset int
}

// Engine computes and caches ABI layouts against a fixed Target and type
// interner. It is the thing mir.Module.Meta.Layout hangs off of for the
// backend's struct/enum/union field-offset queries.
type Engine struct {
	Target Target
	Types  *types.Interner

	cache     *cache
	computing map[types.TypeID]struct{} // cycle guard for recursive value types
}

func New(target Target, typesIn *types.Interner) *Engine {
	return &Engine{
		Target: target,
		Types:  typesIn,
		cache:  newCache(),
	}
}

// LayoutOf returns the cached or freshly computed layout of t. It reports an
// *Error wrapping ErrRecursiveUnsized if t's layout depends on itself without
// going through a pointer/reference/own indirection.
func (e *Engine) LayoutOf(t types.TypeID) (TypeLayout, error) {
	if e == nil {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	if e.cache == nil {
		e.cache = newCache()
	}
	canon := canonicalType(e.Types, t)
	if cached, ok := e.cache.get(canon); ok {
		return cached, nil
	}
	if e.computing == nil {
		e.computing = make(map[types.TypeID]struct{}, 8)
	}
	if _, ok := e.computing[canon]; ok {
		cycle := make([]types.TypeID, 0, len(e.computing))
		for id := range e.computing {
			cycle = append(cycle, id)
		}
		return TypeLayout{}, &Error{Kind: ErrRecursiveUnsized, Type: canon, Cycle: cycle}
	}
	e.computing[canon] = struct{}{}
	defer delete(e.computing, canon)

	l, err := e.computeLayout(canon)
	if err != nil {
		return TypeLayout{}, err
	}
	e.cache.put(canon, l)
	return l, nil
}

func (e *Engine) SizeOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

func (e *Engine) AlignOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Align, err
}

func (e *Engine) FieldOffset(structT types.TypeID, fieldIdx int) (int, error) {
	l, err := e.LayoutOf(structT)
	if err != nil {
		return 0, err
	}
	if fieldIdx < 0 || fieldIdx >= len(l.FieldOffsets) {
		return 0, nil
	}
	return l.FieldOffsets[fieldIdx], nil
}
