package testutils

import (
	"github.com/rotisserie/eris"
	gotest "gotest.tools/v3/assert"
)

type helperT interface {
	Helper()
}

// ErrorIs checks that err matches target with eris.Is, and prints err with its stack trace when it doesn't.
func ErrorIs(t gotest.TestingT, err error, target error, msgAndArgs ...any) bool {
	if ht, ok := t.(helperT); ok {
		ht.Helper()
	}
	if err == nil {
		return gotest.Check(t, false, append([]any{"expected an error matching %q, got nil", target.Error()},
			msgAndArgs...)...)
	}
	msgAndArgs = append([]any{eris.ToString(err, true)}, msgAndArgs...)
	return gotest.Check(t, eris.Is(err, target), msgAndArgs...)
}
