package formdialog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/entities"
)

type fakeSubmitter struct {
	creates  []map[string]any
	updates  map[string]map[string]any
	err      error
	returned domain.Record
}

func (f *fakeSubmitter) Create(_ context.Context, _ string, payload map[string]any) (domain.Record, error) {
	f.creates = append(f.creates, payload)
	if f.err != nil {
		return nil, f.err
	}
	return f.returned, nil
}

func (f *fakeSubmitter) Update(_ context.Context, _ string, id string, payload map[string]any) (domain.Record, error) {
	if f.updates == nil {
		f.updates = map[string]map[string]any{}
	}
	f.updates[id] = payload
	if f.err != nil {
		return nil, f.err
	}
	return f.returned, nil
}

func (f *fakeSubmitter) calls() int { return len(f.creates) + len(f.updates) }

type fakeRefresher struct{ n int }

func (f *fakeRefresher) Refresh(context.Context) error {
	f.n++
	return nil
}

func TestOpenSelectsMode(t *testing.T) {
	d := New(entities.MustLookup(entities.Branches), &fakeSubmitter{}, nil)
	assert.False(t, d.IsOpen())

	d.Open(nil)
	assert.True(t, d.IsOpen())
	assert.Equal(t, Create, d.Mode())
	assert.Equal(t, "", d.Draft()["name"])

	d.Open(domain.Record{"id": "9", "name": "North", "phone": "555"})
	assert.Equal(t, Edit, d.Mode())
	assert.Equal(t, "9", d.RecordID())
	assert.Equal(t, "North", d.Draft()["name"])
	assert.Empty(t, d.FieldErrors())
}

func TestSubmitCreateClosesAndRefreshes(t *testing.T) {
	sub := &fakeSubmitter{returned: domain.Record{"id": "1", "name": "Acme"}}
	ref := &fakeRefresher{}
	d := New(entities.MustLookup(entities.Customers), sub, ref)

	d.Open(nil)
	require.NoError(t, d.Set("name", "Acme"))
	rec, err := d.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "1", rec.ID())
	assert.False(t, d.IsOpen())
	assert.Nil(t, d.Draft())
	assert.Equal(t, 1, ref.n)
	require.Len(t, sub.creates, 1)
	assert.Equal(t, "Acme", sub.creates[0]["name"])
}

func TestSubmitEditUsesUpdate(t *testing.T) {
	sub := &fakeSubmitter{returned: domain.Record{"id": "3"}}
	d := New(entities.MustLookup(entities.Roles), sub, &fakeRefresher{})
	d.Open(domain.Record{"id": "3", "name": "Ops", "permissions": []any{map[string]any{"permissionId": 2}}})

	_, err := d.Submit(context.Background())
	require.NoError(t, err)
	require.Contains(t, sub.updates, "3")
	assert.Equal(t, []string{"2"}, sub.updates["3"]["permissions"])
}

func TestValidationFailureNeverReachesSubmitter(t *testing.T) {
	sub := &fakeSubmitter{}
	ref := &fakeRefresher{}
	d := New(entities.MustLookup(entities.Users), sub, ref)
	d.Open(nil)
	require.NoError(t, d.Set("email", "not-an-email"))

	_, err := d.Submit(context.Background())
	require.True(t, domain.IsValidation(err))
	assert.Equal(t, 0, sub.calls())
	assert.Equal(t, 0, ref.n)
	assert.True(t, d.IsOpen())
	assert.True(t, d.Blocked())
	assert.Contains(t, d.FieldErrors(), "name")
	assert.Contains(t, d.FieldErrors(), "email")

	_, err = d.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBlocked)

	require.NoError(t, d.Set("name", "Ann"))
	assert.False(t, d.Blocked())
	assert.NotContains(t, d.FieldErrors(), "name")
}

func TestGatewayFailureKeepsDraftAndBlocksRetry(t *testing.T) {
	sub := &fakeSubmitter{err: domain.UpstreamError{Status: 409, Msg: "Branch name already exists"}}
	ref := &fakeRefresher{}
	d := New(entities.MustLookup(entities.Branches), sub, ref)
	d.Open(nil)
	require.NoError(t, d.Set("name", "North"))

	_, err := d.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Branch name already exists", d.SubmitError().Error())
	assert.True(t, d.IsOpen())
	assert.Equal(t, "North", d.Draft()["name"])
	assert.Equal(t, 0, ref.n)

	_, err = d.Submit(context.Background())
	assert.ErrorIs(t, err, ErrBlocked)
	assert.Equal(t, 1, sub.calls())

	sub.err = nil
	require.NoError(t, d.Set("name", "North 2"))
	_, err = d.Submit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, sub.calls())
	assert.Equal(t, 1, ref.n)
}

func TestServerValidationDetailsBecomeFieldErrors(t *testing.T) {
	sub := &fakeSubmitter{err: domain.ValidationError{Msg: "invalid", Details: map[string]string{"email": "taken"}}}
	d := New(entities.MustLookup(entities.Users), sub, nil)
	d.Open(nil)
	require.NoError(t, d.Set("name", "Ann"))
	_, err := d.Submit(context.Background())
	require.Error(t, err)
	assert.Equal(t, "taken", d.FieldErrors()["email"])
}

func TestClosedDialog(t *testing.T) {
	d := New(entities.MustLookup(entities.Branches), &fakeSubmitter{}, nil)
	_, err := d.Submit(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, d.Set("name", "x"), ErrClosed)

	d.Open(nil)
	d.Cancel()
	assert.False(t, d.IsOpen())
	assert.Nil(t, d.Draft())
}
