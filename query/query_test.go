package query_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/argus-labs/ecsquery/component"
	"github.com/argus-labs/ecsquery/query"
	"github.com/argus-labs/ecsquery/types"
)

type Position struct{ X, Y int }

func (Position) Name() string { return "position" }

type Health struct{ HP int }

func (Health) Name() string { return "health" }

type Team struct{ Label string }

func (Team) Name() string { return "team" }
func (Team) Shared()      {}

type Missing struct{}

func (Missing) Name() string { return "missing" }

var errBoom = errors.New("boom")

// stubStore records the calls made to it and fails the operation named in failOn.
type stubStore struct {
	components map[string]types.ComponentMetadata
	failOn     string
	failWith   error

	created  int
	released int
	filters  []types.SharedValue
	where    string

	entities []types.EntityID
	values   []types.Component
}

var _ query.Store = &stubStore{}

func newStubStore(t *testing.T) *stubStore {
	t.Helper()
	s := &stubStore{components: map[string]types.ComponentMetadata{}, failWith: errBoom}
	for i, meta := range []types.ComponentMetadata{
		component.New[Position](), component.New[Health](), component.New[Team](),
	} {
		require.NoError(t, meta.SetID(types.ComponentID(i)))
		s.components[meta.Name()] = meta
	}
	return s
}

func (s *stubStore) fail(op string) error {
	if s.failOn == op {
		return s.failWith
	}
	return nil
}

func (s *stubStore) Component(name string) (types.ComponentMetadata, error) {
	meta, ok := s.components[name]
	if !ok {
		return nil, eris.Wrapf(types.ErrUnknownType, "component %q", name)
	}
	return meta, nil
}

func (s *stubStore) CreateQuery([]types.ComponentID) (types.QueryHandle, error) {
	if err := s.fail("create"); err != nil {
		return types.QueryHandle{}, err
	}
	s.created++
	return types.NewQueryHandle(), nil
}

func (s *stubStore) ApplySharedFilter(_ types.QueryHandle, filters []types.SharedValue) error {
	if err := s.fail("filter"); err != nil {
		return err
	}
	s.filters = append(s.filters, filters...)
	return nil
}

func (s *stubStore) ApplyWhere(_ types.QueryHandle, expression string) error {
	if err := s.fail("where"); err != nil {
		return err
	}
	s.where = expression
	return nil
}

func (s *stubStore) ReleaseQuery(types.QueryHandle) error {
	s.released++
	return s.fail("release")
}

func (s *stubStore) ReadSingletonValue(types.QueryHandle, types.ComponentID) (types.Component, error) {
	if err := s.fail("read"); err != nil {
		return nil, err
	}
	if len(s.values) != 1 {
		return nil, eris.Wrapf(types.ErrNotSingleton, "%d matches", len(s.values))
	}
	return s.values[0], nil
}

func (s *stubStore) ReadSingletonEntity(types.QueryHandle) (types.EntityID, error) {
	if err := s.fail("read"); err != nil {
		return 0, err
	}
	if len(s.entities) != 1 {
		return 0, eris.Wrapf(types.ErrNotSingleton, "%d matches", len(s.entities))
	}
	return s.entities[0], nil
}

func (s *stubStore) CountMatches(types.QueryHandle) (int, error) {
	if err := s.fail("read"); err != nil {
		return 0, err
	}
	return len(s.entities), nil
}

func (s *stubStore) MaterializeEntities(_ types.QueryHandle, dst []types.EntityID) ([]types.EntityID, error) {
	if err := s.fail("read"); err != nil {
		return dst, err
	}
	return append(dst, s.entities...), nil
}

func (s *stubStore) MaterializeValues(
	_ types.QueryHandle, _ types.ComponentID, dst []types.Component,
) ([]types.Component, error) {
	if err := s.fail("read"); err != nil {
		return dst, err
	}
	return append(dst, s.values...), nil
}

func TestSpecValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		spec    query.Spec
		wantErr bool
	}{
		{
			name:    "empty required list",
			spec:    query.Spec{},
			wantErr: true,
		},
		{
			name:    "nil component",
			spec:    query.Spec{Required: []types.Component{nil}},
			wantErr: true,
		},
		{
			name:    "duplicate required type",
			spec:    query.Spec{Required: []types.Component{Position{}, Health{}, Position{}}},
			wantErr: true,
		},
		{
			name: "filter on type outside the required list",
			spec: query.Spec{
				Required: []types.Component{Position{}},
				Filters:  []query.Filter{{Component: Team{}}},
			},
			wantErr: true,
		},
		{
			name: "duplicate filter",
			spec: query.Spec{
				Required: []types.Component{Position{}, Team{}},
				Filters:  []query.Filter{{Component: Team{}}, {Component: Team{}, Value: Team{Label: "red"}}},
			},
			wantErr: true,
		},
		{
			name: "filter value of another type",
			spec: query.Spec{
				Required: []types.Component{Position{}, Team{}},
				Filters:  []query.Filter{{Component: Team{}, Value: Health{}}},
			},
			wantErr: true,
		},
		{
			name: "filter without component",
			spec: query.Spec{
				Required: []types.Component{Position{}},
				Filters:  []query.Filter{{}},
			},
			wantErr: true,
		},
		{
			name: "single required type",
			spec: query.Spec{Required: []types.Component{Position{}}},
		},
		{
			name: "constrained and unconstrained filters",
			spec: query.Spec{
				Required: []types.Component{Position{}, Team{}},
				Filters:  []query.Filter{{Component: Team{}, Value: Team{Label: "red"}}},
				Where:    "position.X > 1",
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := tc.spec.Validate()
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, eris.Is(err, types.ErrInvalidSpec))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestSpecProjection(t *testing.T) {
	t.Parallel()

	spec := query.Spec{Required: []types.Component{Health{}, Position{}}}
	assert.Equal(t, Health{}, spec.Projection())
	assert.Equal(t, []string{"health", "position"}, spec.Names())
	assert.Nil(t, query.Spec{}.Projection())
}

func TestBuild(t *testing.T) {
	t.Parallel()

	store := newStubStore(t)
	q, err := query.Build(store, query.Spec{
		Required: []types.Component{Position{}, Team{}},
		Filters:  []query.Filter{{Component: Team{}, Value: Team{Label: "red"}}},
		Where:    "_id > 0",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, store.created)
	assert.Equal(t, "position", q.Projection().Name())
	assert.Len(t, q.Components(), 2)
	assert.Equal(t, []types.SharedValue{{ID: 2, Value: Team{Label: "red"}}}, store.filters)
	assert.Equal(t, "_id > 0", store.where)

	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
	assert.Equal(t, 1, store.released)
}

func TestLifecycleLogging(t *testing.T) {
	var buf bytes.Buffer
	query.SetLogger(zerolog.New(&buf).Level(zerolog.TraceLevel))
	t.Cleanup(func() { query.SetLogger(zerolog.Nop()) })

	q, err := query.Build(newStubStore(t), query.Spec{Required: []types.Component{Position{}}})
	require.NoError(t, err)
	require.NoError(t, q.Close())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "query created")
	assert.Contains(t, lines[1], "query released")
	for _, line := range lines {
		assert.Contains(t, line, q.Handle().String())
	}

	buf.Reset()
	query.SetLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
	q, err = query.Build(newStubStore(t), query.Spec{Required: []types.Component{Position{}}})
	require.NoError(t, err)
	require.NoError(t, q.Close())
	assert.Empty(t, buf.String())
}

func TestBuildUnconstrainedFilterDoesNotNarrow(t *testing.T) {
	t.Parallel()

	store := newStubStore(t)
	q, err := query.Build(store, query.Spec{
		Required: []types.Component{Position{}, Team{}},
		Filters:  []query.Filter{{Component: Team{}}},
	})
	require.NoError(t, err)
	defer q.Close()

	assert.Empty(t, store.filters)
	assert.Empty(t, store.where)
}

func TestBuildFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		spec         query.Spec
		failOn       string
		wantErr      error
		wantCreated  int
		wantReleased int
	}{
		{
			name:    "invalid spec never reaches the store",
			spec:    query.Spec{},
			wantErr: types.ErrInvalidSpec,
		},
		{
			name:    "unknown component type",
			spec:    query.Spec{Required: []types.Component{Position{}, Missing{}}},
			wantErr: types.ErrUnknownType,
		},
		{
			name: "filter on non-shared type",
			spec: query.Spec{
				Required: []types.Component{Position{}, Health{}},
				Filters:  []query.Filter{{Component: Health{}, Value: Health{HP: 1}}},
			},
			wantErr: types.ErrInvalidSpec,
		},
		{
			name:    "create fails",
			spec:    query.Spec{Required: []types.Component{Position{}}},
			failOn:  "create",
			wantErr: types.ErrStoreFailure,
		},
		{
			name: "filter fails after create",
			spec: query.Spec{
				Required: []types.Component{Position{}, Team{}},
				Filters:  []query.Filter{{Component: Team{}, Value: Team{Label: "red"}}},
			},
			failOn:       "filter",
			wantErr:      types.ErrStoreFailure,
			wantCreated:  1,
			wantReleased: 1,
		},
		{
			name:         "where fails after create",
			spec:         query.Spec{Required: []types.Component{Position{}}, Where: "nope("},
			failOn:       "where",
			wantErr:      types.ErrStoreFailure,
			wantCreated:  1,
			wantReleased: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			store := newStubStore(t)
			store.failOn = tc.failOn

			q, err := query.Build(store, tc.spec)
			require.Error(t, err)
			assert.Nil(t, q)
			assert.True(t, eris.Is(err, tc.wantErr), "got %v", err)
			assert.Equal(t, tc.wantCreated, store.created)
			assert.Equal(t, tc.wantReleased, store.released)
		})
	}
}

func TestBuildKeepsStoreTaxonomyErrors(t *testing.T) {
	t.Parallel()

	store := newStubStore(t)
	store.failOn = "where"
	store.failWith = eris.Wrap(types.ErrInvalidSpec, "bad expression")

	_, err := query.Build(store, query.Spec{Required: []types.Component{Position{}}, Where: "1 +"})
	require.Error(t, err)
	assert.True(t, eris.Is(err, types.ErrInvalidSpec))
	assert.False(t, eris.Is(err, types.ErrStoreFailure))
	assert.Equal(t, 1, store.released)
}

func TestProjector(t *testing.T) {
	t.Parallel()

	store := newStubStore(t)
	store.entities = []types.EntityID{3, 7}
	store.values = []types.Component{Position{X: 1}, Position{X: 2}}

	q, err := query.Build(store, query.Spec{Required: []types.Component{Position{}}})
	require.NoError(t, err)
	defer q.Close()

	n, err := q.Count()
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ids, err := q.AppendEntities([]types.EntityID{1})
	require.NoError(t, err)
	assert.Equal(t, []types.EntityID{1, 3, 7}, ids)

	values, err := q.AppendValues(nil)
	require.NoError(t, err)
	assert.Equal(t, store.values, values)

	_, err = q.SingletonEntity()
	assert.True(t, eris.Is(err, types.ErrNotSingleton))
	_, err = q.SingletonValue()
	assert.True(t, eris.Is(err, types.ErrNotSingleton))

	store.entities = store.entities[:1]
	store.values = store.values[:1]

	id, err := q.SingletonEntity()
	require.NoError(t, err)
	assert.Equal(t, types.EntityID(3), id)
	v, err := q.SingletonValue()
	require.NoError(t, err)
	assert.Equal(t, Position{X: 1}, v)
}

func TestProjectorWrapsStoreErrors(t *testing.T) {
	t.Parallel()

	store := newStubStore(t)
	q, err := query.Build(store, query.Spec{Required: []types.Component{Position{}}})
	require.NoError(t, err)
	defer q.Close()

	store.failOn = "read"

	_, err = q.Count()
	require.Error(t, err)
	assert.True(t, eris.Is(err, types.ErrStoreFailure))

	dst := []types.EntityID{9}
	out, err := q.AppendEntities(dst)
	require.Error(t, err)
	assert.True(t, eris.Is(err, types.ErrStoreFailure))
	assert.Equal(t, dst, out)
}

func TestProjectorAfterClose(t *testing.T) {
	t.Parallel()

	store := newStubStore(t)
	q, err := query.Build(store, query.Spec{Required: []types.Component{Position{}}})
	require.NoError(t, err)
	require.NoError(t, q.Close())

	_, err = q.Count()
	require.Error(t, err)
	assert.True(t, eris.Is(err, types.ErrStoreFailure))

	_, err = q.AppendValues(nil)
	assert.True(t, eris.Is(err, types.ErrStoreFailure))
}

func TestCloseFailureIsStoreFailure(t *testing.T) {
	t.Parallel()

	store := newStubStore(t)
	q, err := query.Build(store, query.Spec{Required: []types.Component{Position{}}})
	require.NoError(t, err)

	store.failOn = "release"
	err = q.Close()
	require.Error(t, err)
	assert.True(t, eris.Is(err, types.ErrStoreFailure))

	// The handle is considered gone after the first attempt.
	require.NoError(t, q.Close())
	assert.Equal(t, 1, store.released)
}
