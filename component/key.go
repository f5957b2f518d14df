package component

import (
	"bytes"

	"github.com/cespare/xxhash/v2"

	"github.com/argus-labs/ecsquery/types"
)

// Key identifies a shared component value by its serialized form. Two values of the same component type are
// considered equal when their encodings are byte-equal.
type Key struct {
	Hash  uint64
	Bytes []byte
}

// KeyOf encodes v with the component's codec and hashes the result.
func KeyOf(meta types.ComponentMetadata, v types.Component) (Key, error) {
	bz, err := meta.Encode(v)
	if err != nil {
		return Key{}, err
	}
	return Key{Hash: xxhash.Sum64(bz), Bytes: bz}, nil
}

func (k Key) Equal(other Key) bool {
	return k.Hash == other.Hash && bytes.Equal(k.Bytes, other.Bytes)
}
