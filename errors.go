package ecsquery

import "github.com/argus-labs/ecsquery/types"

// Errors returned by the facade. Match them with errors.Is or eris.Is.
var (
	ErrInvalidSpec  = types.ErrInvalidSpec
	ErrUnknownType  = types.ErrUnknownType
	ErrNotSingleton = types.ErrNotSingleton
	ErrStoreFailure = types.ErrStoreFailure
)
