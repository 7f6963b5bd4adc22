package display

import (
	"fmt"
	"io"

	"github.com/backmassage/quickconv/internal/term"
)

const banner = `               _      _
  __ _ _  _(_)__| |__ __ ___ _ ___ __
 / _` + "`" + ` | || | / _| / // _/ _ \ ' \ V /
 \__, |\_,_|_\__|_\_\\__\___/_||_\_/
    |_|
`

// PrintBanner writes the ASCII banner to w, in magenta when colors are enabled.
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, term.Paint(term.Magenta, banner))
	if term.Enabled() {
		fmt.Fprintln(w)
	}
}
