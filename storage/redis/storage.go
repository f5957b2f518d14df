package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog/log"
)

type Options = redis.Options

// Storage is a redis connection together with the schema storage built on it.
type Storage struct {
	Client *redis.Client
	*SchemaStorage
}

// NewRedisStorage opens a client for options. Schema keys are prefixed with namespace.
func NewRedisStorage(options Options, namespace string) Storage {
	client := redis.NewClient(&options)
	return Storage{
		Client:        client,
		SchemaStorage: NewSchemaStorage(client, namespace),
	}
}

// Ping checks that the server is reachable.
func (r *Storage) Ping(ctx context.Context) error {
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return eris.Wrapf(err, "failed to reach redis at %s", r.Client.Options().Addr)
	}
	return nil
}

func (r *Storage) Close() error {
	if err := r.Client.Close(); err != nil {
		return eris.Wrap(err, "failed to close redis connection")
	}
	log.Debug().Str("namespace", r.Namespace).Msg("closed redis connection")
	return nil
}
