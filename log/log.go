// Package log holds zerolog helpers that render component sets and query lifecycles as structured events.
package log

import (
	"sort"

	"github.com/rs/zerolog"

	"github.com/argus-labs/ecsquery/types"
)

type Loggable interface {
	RegisteredComponents() []types.ComponentMetadata
}

func loadComponentIntoArrayLogger(
	component types.ComponentMetadata,
	arrayLogger *zerolog.Array,
) *zerolog.Array {
	dictLogger := zerolog.Dict()
	dictLogger = dictLogger.Int("component_id", int(component.ID()))
	dictLogger = dictLogger.Str("component_name", component.Name())
	dictLogger = dictLogger.Bool("shared", component.IsShared())
	return arrayLogger.Dict(dictLogger)
}

func loadComponentsToEvent(zeroLoggerEvent *zerolog.Event, components []types.ComponentMetadata) *zerolog.Event {
	arrayLogger := zerolog.Arr()
	for _, _component := range components {
		arrayLogger = loadComponentIntoArrayLogger(_component, arrayLogger)
	}
	return zeroLoggerEvent.Array("components", arrayLogger)
}

// Components logs all component types registered with the target, ordered by id.
func Components(logger *zerolog.Logger, target Loggable, level zerolog.Level) {
	components := target.RegisteredComponents()
	sort.Slice(components, func(i, j int) bool {
		return components[i].ID() < components[j].ID()
	})
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent.Int("total_components", len(components))
	loadComponentsToEvent(zeroLoggerEvent, components).Send()
}

// Entity logs a lifecycle step of an entity together with the component types it carries.
func Entity(
	logger *zerolog.Logger, level zerolog.Level, msg string,
	entityID types.EntityID, components []types.ComponentMetadata,
) {
	if !Enabled(logger, level) {
		return
	}
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent.Uint32("entity_id", uint32(entityID))
	loadComponentsToEvent(zeroLoggerEvent, components).Msg(msg)
}

// Enabled reports whether an event at level would be written by logger. Callers use it to skip collecting
// component sets nobody will see.
func Enabled(logger *zerolog.Logger, level zerolog.Level) bool {
	return logger.GetLevel() <= level && zerolog.GlobalLevel() <= level
}

// Query logs a lifecycle step of a store query together with the component types it requires.
func Query(
	logger *zerolog.Logger, level zerolog.Level, msg string,
	handle types.QueryHandle, components []types.ComponentMetadata,
) {
	if !Enabled(logger, level) {
		return
	}
	zeroLoggerEvent := logger.WithLevel(level)
	zeroLoggerEvent.Str("query_id", handle.String())
	loadComponentsToEvent(zeroLoggerEvent, components).Msg(msg)
}
