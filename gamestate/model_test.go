package gamestate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-labs/ecsquery/gamestate"
	. "github.com/argus-labs/ecsquery/internal/testutils"
	"github.com/argus-labs/ecsquery/types"
)

// -------------------------------------------------------------------------------------------------
// Model-Based Fuzzing
//
// Applies random sequences of entity mutations to a State and to a map model, then checks that
// shared filter queries agree with the model. Each op's value is its weight.
// -------------------------------------------------------------------------------------------------

type stateOp uint8

const (
	opCreate     stateOp = 40
	opDestroy    stateOp = 20
	opSetTeam    stateOp = 25
	opRemoveTeam stateOp = 15
)

var stateOps = []stateOp{opCreate, opDestroy, opSetTeam, opRemoveTeam}

func TestState_ModelBasedFuzz(t *testing.T) {
	t.Parallel()
	prng := NewRand(t)

	s := newState(t)
	model := make(map[types.EntityID]string) // Entity -> team label, "" when the entity has no Team
	labels := []string{"red", "green", "blue"}

	const opsMax = 1 << 12

	for range opsMax {
		switch RandWeightedOp(prng, stateOps) {
		case opCreate:
			label := labels[prng.IntN(len(labels))]
			id, err := s.Create(Position{X: prng.IntN(100)}, Team{Label: label})
			require.NoError(t, err)
			model[id] = label

		case opDestroy:
			if len(model) == 0 {
				continue
			}
			id := RandMapKey(prng, model)
			require.NoError(t, s.Destroy(id))
			delete(model, id)

		case opSetTeam:
			if len(model) == 0 {
				continue
			}
			id := RandMapKey(prng, model)
			label := labels[prng.IntN(len(labels))]
			require.NoError(t, gamestate.Set(s, id, Team{Label: label}))
			model[id] = label

		case opRemoveTeam:
			if len(model) == 0 {
				continue
			}
			id := RandMapKey(prng, model)
			if model[id] == "" {
				continue
			}
			require.NoError(t, gamestate.Remove[Team](s, id))
			model[id] = ""
		}
	}

	require.Equal(t, len(model), s.Len())

	team := ids(t, s, "Team")[0]
	for _, label := range labels {
		want := make([]types.EntityID, 0)
		for id, l := range model {
			if l == label {
				want = append(want, id)
			}
		}

		h := createQuery(t, s, "Position", "Team")
		require.NoError(t, s.ApplySharedFilter(h, []types.SharedValue{{ID: team, Value: Team{Label: label}}}))
		got, err := s.MaterializeEntities(h, nil)
		require.NoError(t, err)

		assert.ElementsMatch(t, want, got, "entities with team %q", label)
	}

	distinct := make(map[string]struct{})
	for _, l := range model {
		if l != "" {
			distinct[l] = struct{}{}
		}
	}
	n, err := s.SharedValues("Team")
	require.NoError(t, err)
	assert.Equal(t, len(distinct), n)
}
