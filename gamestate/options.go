package gamestate

import (
	"github.com/rs/zerolog"

	"github.com/argus-labs/ecsquery/storage/redis"
)

type Option func(*State)

// WithSchemaStorage makes component registration persist and validate component schemas.
func WithSchemaStorage(schemas *redis.SchemaStorage) Option {
	return func(s *State) {
		s.schemas = schemas
	}
}

// WithLogger sets the logger used for registration and lifecycle events.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *State) {
		s.logger = logger
	}
}
