// Package statsd is a helper package that wraps some common statsd methods.
// It hides the datadog dependency so if we decide to migrate away from datadog in the future, we only need to
// edit this single file.
package statsd

import (
	"strings"
	"time"

	ddstatsd "github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var client ddstatsd.ClientInterface = &ddstatsd.NoOpClient{}

func Client() ddstatsd.ClientInterface {
	return client
}

// EmitQueryStat records how long one facade call took, tagged with its result shape.
func EmitQueryStat(start time.Time, shape string) {
	duration := time.Since(start)
	err := Client().Timing("query", duration, []string{"shape:" + shape}, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit query stat: %v", err)
	}
}

// EmitNotSingleton counts singleton calls that matched zero or several entities.
func EmitNotSingleton(shape string) {
	err := Client().Incr("query.not_singleton", []string{"shape:" + shape}, 1)
	if err != nil {
		log.Logger.Warn().Msgf("failed to emit not singleton stat: %v", err)
	}
}

func Init(address string, tags []string) error {
	if address == "" {
		return eris.New("address must not be empty")
	}
	opts := []ddstatsd.Option{
		// The statsd namespace is the prefix of all metrics
		ddstatsd.WithNamespace("ecsquery"),
	}
	if len(tags) > 0 {
		opts = append(opts, ddstatsd.WithTags(tags))
	}

	newClient, err := ddstatsd.New(address, opts...)
	if err != nil {
		return eris.Wrap(err, "failed to create statsd client")
	}
	// Success! replace the global client
	client = newClient

	dict := zerolog.Dict()
	for _, tag := range tags {
		key, value := splitTag(tag)
		dict = dict.Interface(key, value)
	}
	log.Info().Str("address", address).Dict("tags", dict).Msg("statsd client initialized")
	return nil
}

// splitTag splits a "key:value" statsd tag. A tag without a value yields a nil value.
func splitTag(tag string) (string, any) {
	key, value, _ := strings.Cut(tag, ":")
	if key == "" {
		return value, nil
	}
	if value == "" {
		return key, nil
	}
	return key, value
}
