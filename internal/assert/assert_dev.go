//go:build !release

package assert

import "fmt"

// That panics with the formatted message when cond is false. It guards internal invariants that can only be
// broken by a bug in this module, never by caller input.
func That(cond bool, format string, args ...any) { //nolint:goprintffuncname // it's ok
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
