// Package diff renders readable structural diffs for test failures.
package diff

import (
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/kylelemons/godebug/diff"
)

// Exported pretty prints want and got (exported fields only, no color) and
// returns a line diff, or "" when they print the same.
func Exported[T any](want T, got T) string {
	printer := pp.New()
	printer.SetExportedOnly(true)
	printer.SetColoringEnabled(false)

	lines := diff.Diff(printer.Sprint(got), printer.Sprint(want))
	if lines == "" {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("\n\nactual -> expected (- remove, + add):\n\n")
	sb.WriteString(lines)
	return sb.String()
}
