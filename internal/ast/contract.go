package ast

import (
	"fmt"

	"fortio.org/safecast"

	"zulonc/internal/source"
)

// ContractItemKind distinguishes the two kinds of requirement a trait can place
// on an implementing type.
type ContractItemKind uint8

const (
	// ContractItemField requires a field of a given type.
	ContractItemField ContractItemKind = iota
	// ContractItemFn requires a method with a given signature.
	ContractItemFn
)

// ContractDecl is a trait declaration: a named set of field and method
// requirements that a concrete type must satisfy structurally.
type ContractDecl struct {
	Name        source.StringID
	ItemsStart  ContractItemID
	ItemsCount  uint32
	AttrStart   AttrID
	AttrCount   uint32
	Visibility  Visibility
	KeywordSpan source.Span
	BodySpan    source.Span
	Span        source.Span
}

// ContractItem is one member of a trait declaration, either a field or a
// method requirement.
type ContractItem struct {
	Kind    ContractItemKind
	Payload PayloadID
	Span    source.Span
}

// ContractFieldReq is a required field: an implementing type must carry a
// field of this name and type.
type ContractFieldReq struct {
	Name      source.StringID
	Type      TypeID
	AttrStart AttrID
	AttrCount uint32
	Span      source.Span
}

// ContractFnReq is a required method: an implementing type must expose a
// method matching this signature.
type ContractFnReq struct {
	Name        source.StringID
	ParamsStart FnParamID
	ParamsCount uint32
	ReturnType  TypeID
	Attr        FnAttr
	AttrStart   AttrID
	AttrCount   uint32
	Span        source.Span
}

// Contract returns the ContractDecl for the given ItemID, or nil/false if invalid.
func (i *Items) Contract(itemID ItemID) (*ContractDecl, bool) {
	item := i.Get(itemID)
	if item == nil || item.Kind != ItemContract || !item.Payload.IsValid() {
		return nil, false
	}
	return i.Contracts.Get(uint32(item.Payload)), true
}

// ContractItem returns the ContractItem for the given ContractItemID.
func (i *Items) ContractItem(id ContractItemID) *ContractItem {
	if !id.IsValid() {
		return nil
	}
	return i.ContractItems.Get(uint32(id))
}

// ContractField returns the ContractFieldReq referenced by a ContractItem.
func (i *Items) ContractField(item *ContractItem) *ContractFieldReq {
	if item == nil || item.Kind != ContractItemField || !item.Payload.IsValid() {
		return nil
	}
	return i.ContractFields.Get(uint32(item.Payload))
}

// ContractFn returns the ContractFnReq referenced by a ContractItem.
func (i *Items) ContractFn(item *ContractItem) *ContractFnReq {
	if item == nil || item.Kind != ContractItemFn || !item.Payload.IsValid() {
		return nil
	}
	return i.ContractFns.Get(uint32(item.Payload))
}

// GetContractItemIDs returns the ContractItemIDs belonging to a contract decl.
func (i *Items) GetContractItemIDs(decl *ContractDecl) []ContractItemID {
	if decl == nil || decl.ItemsCount == 0 || !decl.ItemsStart.IsValid() {
		return nil
	}
	ids := make([]ContractItemID, decl.ItemsCount)
	start := uint32(decl.ItemsStart)
	for j := uint32(0); j < decl.ItemsCount; j++ {
		ids[j] = ContractItemID(start + j)
	}
	return ids
}

// NewContractField allocates a required-field entry and wraps it as a ContractItem.
func (i *Items) NewContractField(name source.StringID, typ TypeID, attrs []Attr, span source.Span) ContractItemID {
	attrStart, attrCount := i.allocateAttrs(attrs)
	payload := i.ContractFields.Allocate(ContractFieldReq{
		Name:      name,
		Type:      typ,
		AttrStart: attrStart,
		AttrCount: attrCount,
		Span:      span,
	})
	return ContractItemID(i.ContractItems.Allocate(ContractItem{
		Kind:    ContractItemField,
		Payload: PayloadID(payload),
		Span:    span,
	}))
}

// NewContractFn allocates a required-method entry and wraps it as a ContractItem.
func (i *Items) NewContractFn(name source.StringID, params []FnParam, returnType TypeID, attr FnAttr, attrs []Attr, span source.Span) ContractItemID {
	var paramsStart FnParamID
	paramsCount := uint32(len(params))
	if paramsCount > 0 {
		for idx, param := range params {
			id := FnParamID(i.FnParams.Allocate(param))
			if idx == 0 {
				paramsStart = id
			}
		}
	}
	attrStart, attrCount := i.allocateAttrs(attrs)
	payload := i.ContractFns.Allocate(ContractFnReq{
		Name:        name,
		ParamsStart: paramsStart,
		ParamsCount: paramsCount,
		ReturnType:  returnType,
		Attr:        attr,
		AttrStart:   attrStart,
		AttrCount:   attrCount,
		Span:        span,
	})
	return ContractItemID(i.ContractItems.Allocate(ContractItem{
		Kind:    ContractItemFn,
		Payload: PayloadID(payload),
		Span:    span,
	}))
}

// NewContract creates a new trait declaration item from its pre-allocated member items.
func (i *Items) NewContract(
	name source.StringID,
	items []ContractItemID,
	attrs []Attr,
	visibility Visibility,
	keywordSpan source.Span,
	bodySpan source.Span,
	span source.Span,
) ItemID {
	attrStart, attrCount := i.allocateAttrs(attrs)
	var itemsStart ContractItemID
	itemsCount, err := safecast.Conv[uint32](len(items))
	if err != nil {
		panic(fmt.Errorf("contract items count overflow: %w", err))
	}
	if itemsCount > 0 {
		itemsStart = items[0]
	}
	payload := i.Contracts.Allocate(ContractDecl{
		Name:        name,
		ItemsStart:  itemsStart,
		ItemsCount:  itemsCount,
		AttrStart:   attrStart,
		AttrCount:   attrCount,
		Visibility:  visibility,
		KeywordSpan: keywordSpan,
		BodySpan:    bodySpan,
		Span:        span,
	})
	return i.New(ItemContract, span, PayloadID(payload))
}
