package query

import (
	"github.com/rotisserie/eris"

	"github.com/argus-labs/ecsquery/types"
)

// taxonomy lists the errors a store may return that already carry their meaning for the caller.
var taxonomy = []error{
	types.ErrInvalidSpec,
	types.ErrUnknownType,
	types.ErrNotSingleton,
	types.ErrStoreFailure,
}

// classify passes taxonomy errors through and wraps anything else from the store as types.ErrStoreFailure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, e := range taxonomy {
		if eris.Is(err, e) {
			return err
		}
	}
	return eris.Wrap(err, types.ErrStoreFailure.Error())
}
