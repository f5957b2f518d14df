package testutils

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"github.com/argus-labs/ecsquery/storage/redis"
)

// NewSchemaStorage returns schema storage backed by a miniredis server that lives for the duration of the test.
func NewSchemaStorage(t *testing.T) (*miniredis.Miniredis, *redis.SchemaStorage) {
	t.Helper()
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{
		Addr:     s.Addr(),
		Password: "", // no password set
		DB:       0,  // use default DB
	})
	t.Cleanup(func() { _ = client.Close() })
	return s, redis.NewSchemaStorage(client, "test")
}
