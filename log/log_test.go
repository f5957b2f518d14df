package log_test

import (
	"bytes"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-labs/ecsquery/component"
	"github.com/argus-labs/ecsquery/log"
	"github.com/argus-labs/ecsquery/types"
)

type Alpha struct{}

func (Alpha) Name() string { return "alpha" }

type Beta struct{}

func (Beta) Name() string { return "beta" }
func (Beta) Shared()      {}

type registry []types.ComponentMetadata

func (r registry) RegisteredComponents() []types.ComponentMetadata {
	return r
}

func newRegistry(t *testing.T) registry {
	alpha := component.New[Alpha]()
	beta := component.New[Beta]()
	require.NoError(t, alpha.SetID(0))
	require.NoError(t, beta.SetID(1))
	// Deliberately out of order, Components sorts by id.
	return registry{beta, alpha}
}

type loggedComponent struct {
	ID     int    `json:"component_id"`
	Name   string `json:"component_name"`
	Shared bool   `json:"shared"`
}

func TestComponents(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	log.Components(&logger, newRegistry(t), zerolog.InfoLevel)

	var got struct {
		Level      string            `json:"level"`
		Total      int               `json:"total_components"`
		Components []loggedComponent `json:"components"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "info", got.Level)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, []loggedComponent{
		{ID: 0, Name: "alpha", Shared: false},
		{ID: 1, Name: "beta", Shared: true},
	}, got.Components)
}

func TestQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	handle := types.NewQueryHandle()
	reg := newRegistry(t)

	// Filtered out by the logger level.
	log.Query(&logger, zerolog.TraceLevel, "query created", handle, reg)
	assert.Empty(t, buf.String())

	log.Query(&logger, zerolog.DebugLevel, "query created", handle, reg)

	var got struct {
		QueryID    string            `json:"query_id"`
		Message    string            `json:"message"`
		Components []loggedComponent `json:"components"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, handle.String(), got.QueryID)
	assert.Equal(t, "query created", got.Message)
	assert.Len(t, got.Components, 2)
}

func TestEntity(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	reg := newRegistry(t)

	log.Entity(&logger, zerolog.TraceLevel, "entity created", 7, reg)
	assert.Empty(t, buf.String())

	log.Entity(&logger, zerolog.DebugLevel, "entity created", 7, reg)

	var got struct {
		Level      string            `json:"level"`
		EntityID   uint32            `json:"entity_id"`
		Message    string            `json:"message"`
		Components []loggedComponent `json:"components"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "debug", got.Level)
	assert.Equal(t, uint32(7), got.EntityID)
	assert.Equal(t, "entity created", got.Message)
	assert.Len(t, got.Components, 2)
}

func TestEnabled(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.InfoLevel)
	assert.True(t, log.Enabled(&logger, zerolog.WarnLevel))
	assert.False(t, log.Enabled(&logger, zerolog.DebugLevel))

	nop := zerolog.Nop()
	assert.False(t, log.Enabled(&nop, zerolog.ErrorLevel))
}
