package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
)

var (
	ErrNoSchemaFound = errors.New("no schema found")
)

// SchemaStorage persists component schemas so a restarted process can detect component structs that changed
// shape under the same name.
type SchemaStorage struct {
	Client    *redis.Client
	Namespace string
}

func NewSchemaStorage(client *redis.Client, namespace string) *SchemaStorage {
	return &SchemaStorage{
		Client:    client,
		Namespace: namespace,
	}
}

func (r *SchemaStorage) GetSchema(componentName string) ([]byte, error) {
	ctx := context.Background()
	schemaBytes, err := r.Client.HGet(ctx, r.schemaStorageKey(), componentName).Bytes()
	if eris.Is(err, redis.Nil) {
		return nil, eris.Wrap(err, ErrNoSchemaFound.Error())
	} else if err != nil {
		return nil, eris.Wrap(err, "")
	}
	return schemaBytes, nil
}

func (r *SchemaStorage) SetSchema(componentName string, schemaData []byte) error {
	ctx := context.Background()
	return eris.Wrap(r.Client.HSet(ctx, r.schemaStorageKey(), componentName, schemaData).Err(), "")
}
