package ast

import "zulonc/internal/source"

// TagItem is a nominal newtype declaration: a distinct named type wrapping
// one or more payload types, used for tag-union case types and opaque
// wrapper types.
type TagItem struct {
	Name       source.StringID
	Payload    []TypeID
	AttrStart  AttrID
	AttrCount  uint32
	Visibility Visibility
	Span       source.Span
}

// Tag returns the TagItem for the given ItemID, or nil/false if invalid.
func (i *Items) Tag(id ItemID) (*TagItem, bool) {
	item := i.Get(id)
	if item == nil || item.Kind != ItemTag || !item.Payload.IsValid() {
		return nil, false
	}
	return i.Tags.Get(uint32(item.Payload)), true
}

// NewTag creates a new tag declaration item.
func (i *Items) NewTag(name source.StringID, payload []TypeID, attrs []Attr, visibility Visibility, span source.Span) ItemID {
	attrStart, attrCount := i.allocateAttrs(attrs)
	tagPayload := i.Tags.Allocate(TagItem{
		Name:       name,
		Payload:    append([]TypeID(nil), payload...),
		AttrStart:  attrStart,
		AttrCount:  attrCount,
		Visibility: visibility,
		Span:       span,
	})
	return i.New(ItemTag, span, PayloadID(tagPayload))
}
