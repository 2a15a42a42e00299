package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEnvelopeShapes(t *testing.T) {
	cases := []struct {
		name     string
		body     string
		kind     EnvelopeKind
		items    int
		total    int
		hasTotal bool
	}{
		{"bare array", `[{"branchId":1},{"branchId":2}]`, EnvelopeArray, 2, 0, false},
		{"data list", `{"data":[{"id":1}]}`, EnvelopeData, 1, 0, false},
		{"data list with totalElements", `{"data":[{"id":1}],"totalElements":7}`, EnvelopeData, 1, 7, true},
		{"data list with pagination", `{"data":[{"id":1}],"pagination":{"total":"12","page":1}}`, EnvelopeData, 1, 12, true},
		{"paged content", `{"data":{"content":[{"id":1},{"id":2}],"totalElements":25}}`, EnvelopePage, 2, 25, true},
		{"top level content", `{"content":[],"totalElements":0}`, EnvelopePage, 0, 0, true},
		{"roles", `{"roles":[{"roleId":3}],"total":4}`, EnvelopeRoles, 1, 4, true},
		{"users", `{"users":[{"userId":9}],"total":1}`, EnvelopeUsers, 1, 1, true},
		{"null data", `{"data":null}`, EnvelopeData, 0, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := DecodeEnvelope([]byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.kind, env.Kind)
			assert.Len(t, env.Items, tc.items)
			assert.Equal(t, tc.total, env.Total)
			assert.Equal(t, tc.hasTotal, env.HasTotal)
		})
	}
}

func TestDecodeEnvelopeRejectsUnknownShapes(t *testing.T) {
	for _, body := range []string{``, `"x"`, `{"items":[]}`, `{"data":{"rows":[]}}`} {
		_, err := DecodeEnvelope([]byte(body))
		assert.ErrorIs(t, err, ErrUnknownEnvelope, body)
	}
	_, err := DecodeEnvelope([]byte(`{"data":[1,2]}`))
	assert.Error(t, err)
}

func TestEnvelopeCountFallsBackToItems(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`[{"id":1},{"id":2},{"id":3}]`))
	require.NoError(t, err)
	assert.Equal(t, 3, env.Count())
}

func TestDecodeItemUnwrapsData(t *testing.T) {
	item, err := DecodeItem([]byte(`{"data":{"roleId":5,"name":"Ops"}}`))
	require.NoError(t, err)
	assert.Equal(t, "Ops", item["name"])

	item, err = DecodeItem([]byte(`{"user":{"userId":2}}`))
	require.NoError(t, err)
	assert.Contains(t, item, "userId")

	item, err = DecodeItem([]byte(`{"id":1,"name":"A"}`))
	require.NoError(t, err)
	assert.Equal(t, "A", item["name"])

	_, err = DecodeItem([]byte(`not json`))
	assert.Error(t, err)
}

func TestNormalizeMapsIDField(t *testing.T) {
	roles := MustLookup(Roles)
	env, err := DecodeEnvelope([]byte(`{"roles":[{"roleId":3,"name":"Admin"}],"total":1}`))
	require.NoError(t, err)

	recs := roles.NormalizeAll(env.Items)
	require.Len(t, recs, 1)
	assert.Equal(t, "3", recs[0].ID())
	assert.Equal(t, "Admin", recs[0].String("name"))

	branches := MustLookup(Branches)
	rec := branches.Normalize(map[string]any{"branchId": "b-1"})
	assert.Equal(t, "b-1", rec.ID())

	rec = branches.Normalize(map[string]any{"id": 7, "branchId": 9})
	assert.Equal(t, "7", rec.ID())

	assert.Equal(t, "", branches.Normalize(nil).ID())
}
