package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// printf prints a message with no prefix.
func printf(w io.Writer, format string, a ...interface{}) {
	//nolint:errcheck
	fmt.Fprintf(w, format+"\n", a...)
}

// warningf prints a message prefixed with a bold "Warning: ". The prefix is only styled when w
// is a terminal and NO_COLOR is unset.
func warningf(w io.Writer, format string, a ...interface{}) {
	bold := color.New(color.Bold)
	if !isTerminal(w) {
		bold.DisableColor()
	}
	//nolint:errcheck
	bold.Fprint(w, "Warning: ")
	printf(w, format, a...)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
