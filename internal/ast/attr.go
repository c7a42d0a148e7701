package ast

import "zulonc/internal/source"


type Attr struct {
	Name source.StringID
	Args []ExprID
	Span source.Span
}
