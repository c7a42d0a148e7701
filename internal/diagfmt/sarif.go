package diagfmt

import (
	"io"
	"zulonc/internal/diag"
	"zulonc/internal/source"
)


func Sarif(w io.Writer, bag *diag.Bag, fs *source.FileSet, meta SarifRunMeta) {

	_ = w
	_ = bag
	_ = fs
	_ = meta
}
