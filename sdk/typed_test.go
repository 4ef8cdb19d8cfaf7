package sdk

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/birbparty/roost/sdk/testdata"
)

// memoryStore answers loads and searches from canned bodies and records
// saved objects.
type memoryStore struct {
	types     *TypeRegistry
	body      string
	saved     []*Object
	deleted   []string
	lastQuery string
}

func (m *memoryStore) Load(ctx context.Context, opts *RequestOptions, keys ...string) (*LoadResponse, error) {
	return NewLoadResponse(jsonResponse(200, m.body)), nil
}

func (m *memoryStore) Search(ctx context.Context, query string, opts *RequestOptions) (*LoadResponse, error) {
	m.lastQuery = query
	return NewLoadResponse(jsonResponse(200, m.body)), nil
}

func (m *memoryStore) Save(ctx context.Context, objs ...*Object) (*ObjectModificationResponse, error) {
	m.saved = append(m.saved, objs...)
	return NewObjectModificationResponse(jsonResponse(200, `{"success":{}}`)), nil
}

func (m *memoryStore) Delete(ctx context.Context, keys ...string) (*ObjectModificationResponse, error) {
	m.deleted = append(m.deleted, keys...)
	return NewObjectModificationResponse(jsonResponse(200, `{"success":{}}`)), nil
}

func (m *memoryStore) Types() *TypeRegistry { return m.types }

func TestTyped_Save(t *testing.T) {
	store := &memoryStore{types: playerTypes(t)}
	players := NewTyped[testdata.Player](store, "Player")
	assert.Equal(t, "Player", players.Class())

	_, err := players.Save(context.Background(), "p1", testdata.Player{Name: "Alice", Level: 7})
	require.NoError(t, err)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "p1", store.saved[0].Key())
	assert.Equal(t, "Player", store.saved[0].Class())

	_, err = players.SaveAll(context.Background(), testdata.Players(3))
	require.NoError(t, err)
	require.Len(t, store.saved, 4)

	var keys []string
	for _, obj := range store.saved[1:] {
		keys = append(keys, obj.Key())
	}
	sort.Strings(keys)
	assert.Equal(t, []string{"player-0", "player-1", "player-2"}, keys)
}

func TestTyped_SaveUnregistered(t *testing.T) {
	store := &memoryStore{types: NewTypeRegistry()}
	_, err := NewTyped[testdata.Player](store, "Player").Save(context.Background(), "p", testdata.Player{})
	assert.True(t, IsConversion(err))
	assert.Empty(t, store.saved)
}

func TestTyped_Load(t *testing.T) {
	store := &memoryStore{types: playerTypes(t), body: testdata.LoadBody}
	players := NewTyped[testdata.Player](store, "Player")

	got, resp, err := players.Load(context.Background(), "player-1", "player-2", "motd")
	require.NoError(t, err)
	assert.Equal(t, map[string]testdata.Player{
		"player-1": {Name: "Alice", Level: 7},
		"player-2": {Name: "Bob", Level: 3},
	}, got)
	assert.Equal(t, []string{"player-2", "player-1", "motd"}, resp.SuccessKeys(), "untyped entries stay on the response")
}

func TestTyped_Search(t *testing.T) {
	store := &memoryStore{types: playerTypes(t), body: testdata.LoadBody}
	players := NewTyped[testdata.Player](store, "Player")

	q := Filter("level").GreaterThan(1).SearchQuery()
	got, _, err := players.Search(context.Background(), q, nil)
	require.NoError(t, err)
	assert.Equal(t, q, store.lastQuery)
	require.Len(t, got, 2)
	assert.Equal(t, "Bob", got[0].Name, "response order")
	assert.Equal(t, "Alice", got[1].Name)
}

func TestTyped_OtherClassesSkipped(t *testing.T) {
	store := &memoryStore{
		types: playerTypes(t),
		body:  `{"success":{"g":{"__class__":"Guild","name":"x"},"p":{"__class__":"Player","name":"y","level":2}}}`,
	}
	got, _, err := NewTyped[testdata.Player](store, "Player").Load(context.Background(), "g", "p")
	require.NoError(t, err)
	assert.Equal(t, map[string]testdata.Player{"p": {Name: "y", Level: 2}}, got)
}

func TestTyped_Delete(t *testing.T) {
	store := &memoryStore{types: playerTypes(t)}
	_, err := NewTyped[testdata.Player](store, "Player").Delete(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, store.deleted)
}
