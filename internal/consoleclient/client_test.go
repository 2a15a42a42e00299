package consoleclient

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/entities"
	"github.com/feridsherif/crms-frontend/internal/export"
	"github.com/feridsherif/crms-frontend/internal/upstream"
)

type call struct {
	method string
	path   string
	query  url.Values
	token  string
	body   any
}

type stubDoer struct {
	calls   []call
	respond func(c call) (upstream.Response, error)
}

func (s *stubDoer) Do(_ context.Context, method, path string, query url.Values, token string, body any) (upstream.Response, error) {
	c := call{method: method, path: path, query: query, token: token, body: body}
	s.calls = append(s.calls, c)
	return s.respond(c)
}

func reply(status int, body string) func(call) (upstream.Response, error) {
	return func(call) (upstream.Response, error) {
		return upstream.Response{Status: status, Body: []byte(body)}, nil
	}
}

func TestLoginKeepsToken(t *testing.T) {
	doer := &stubDoer{respond: reply(http.StatusOK, `{"token":"jwt-1","user":{"subjectId":"3","email":"a@b.c"}}`)}
	c := NewWithDoer(doer)

	user, err := c.Login(context.Background(), "admin", "secret-pass")
	require.NoError(t, err)
	assert.Equal(t, "3", user.SubjectID)
	assert.Equal(t, "/auth/login", doer.calls[0].path)

	doer.respond = reply(http.StatusOK, `{"data":[],"pagination":{"total":0,"page":1}}`)
	_, err = c.List(context.Background(), entities.Customers, domain.ListQuery{PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, "jwt-1", doer.calls[1].token)

	doer.respond = reply(http.StatusOK, `{"message":"Logout success"}`)
	require.NoError(t, c.Logout(context.Background()))
	assert.Empty(t, c.session())
}

func TestLoginFailure(t *testing.T) {
	doer := &stubDoer{respond: reply(http.StatusUnauthorized, `{"message":"Invalid credentials","code":"unauthorized"}`)}
	_, err := NewWithDoer(doer).Login(context.Background(), "admin", "bad")
	assert.True(t, domain.IsUnauthorized(err))
}

func TestListQueryAndResult(t *testing.T) {
	doer := &stubDoer{respond: reply(http.StatusOK, `{"data":[{"id":1},{"id":2}],"pagination":{"total":25,"page":3},"empty":false}`)}
	c := NewWithDoer(doer)

	res, err := c.List(context.Background(), entities.Users, domain.ListQuery{
		PageIndex: 2, PageSize: 10, SortField: "name", SortDescending: true,
		SearchText: "ann", Filters: map[string]string{"status": "active", "roleId": ""},
	})
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, 25, res.TotalCount)
	assert.Equal(t, 3, res.Page)

	got := doer.calls[0]
	assert.Equal(t, "/user-management/users", got.path)
	assert.Equal(t, "3", got.query.Get("page"))
	assert.Equal(t, "10", got.query.Get("limit"))
	assert.Equal(t, "desc", got.query.Get("dir"))
	assert.Equal(t, "active", got.query.Get("status"))
	assert.False(t, got.query.Has("roleId"))
}

func TestValidationErrorRoundTrip(t *testing.T) {
	doer := &stubDoer{respond: reply(http.StatusBadRequest, `{"message":"invalid input","code":"invalid_input","details":{"name":"is required"}}`)}
	_, err := NewWithDoer(doer).Create(context.Background(), entities.Branches, map[string]any{})
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Equal(t, map[string]string{"name": "is required"}, domain.ValidationDetails(err))
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		check  func(error) bool
	}{
		{"not found", http.StatusNotFound, domain.IsNotFound},
		{"conflict", http.StatusConflict, domain.IsUpstream},
		{"server", http.StatusInternalServerError, domain.IsUpstream},
		{"bad request without code", http.StatusBadRequest, domain.IsUpstream},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doer := &stubDoer{respond: reply(tc.status, `{"message":"nope"}`)}
			err := NewWithDoer(doer).Delete(context.Background(), entities.Roles, "9")
			assert.True(t, tc.check(err), "got %v", err)
		})
	}
}

func TestTransportFailureIsInternal(t *testing.T) {
	doer := &stubDoer{respond: func(call) (upstream.Response, error) {
		return upstream.Response{}, errors.New("connection refused")
	}}
	_, err := NewWithDoer(doer).Get(context.Background(), entities.Customers, "1")
	assert.True(t, domain.IsInternal(err))
}

func TestUnknownEntity(t *testing.T) {
	doer := &stubDoer{respond: reply(http.StatusOK, `{}`)}
	_, err := NewWithDoer(doer).List(context.Background(), "planets", domain.ListQuery{PageSize: 10})
	assert.True(t, domain.IsNotFound(err))
	assert.Empty(t, doer.calls)
}

func TestUpdateActionOptionsExport(t *testing.T) {
	doer := &stubDoer{respond: reply(http.StatusOK, `{"data":{"id":"4","name":"Ops"}}`)}
	c := NewWithDoer(doer)
	ctx := context.Background()

	rec, err := c.Update(ctx, entities.Roles, "4", map[string]any{"name": "Ops"})
	require.NoError(t, err)
	assert.Equal(t, "4", rec.ID())
	assert.Equal(t, http.MethodPut, doer.calls[0].method)
	assert.Equal(t, "/user-management/roles/4", doer.calls[0].path)

	_, err = c.Action(ctx, entities.Users, "8", "restore")
	require.NoError(t, err)
	assert.Equal(t, "/user-management/users/8/restore", doer.calls[1].path)

	doer.respond = reply(http.StatusOK, `{"data":[{"id":1,"name":"Admin"}]}`)
	opts, err := c.Options(ctx, entities.Roles)
	require.NoError(t, err)
	assert.Len(t, opts, 1)

	_, err = c.Options(ctx, entities.Customers)
	assert.True(t, domain.IsNotFound(err))

	doer.respond = reply(http.StatusOK, "%PDF-1.3")
	out, err := c.Export(ctx, entities.Customers, export.PDF, domain.ListQuery{PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.3", string(out))
	assert.Equal(t, "pdf", doer.calls[len(doer.calls)-1].query.Get("format"))
}
