package upstream

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feridsherif/crms-frontend/internal/domain"
)

func TestDoAttachesCredentialAndQuery(t *testing.T) {
	var got *http.Request
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		if r.Body != nil {
			b, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(b, &gotBody)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	c, err := New(srv.URL+"/api/", time.Second, "X-Request-ID")
	require.NoError(t, err)

	ctx := WithRequestID(context.Background(), "req-1")
	resp, err := c.Do(ctx, http.MethodPost, "/branches", url.Values{"page": {"1"}}, "tok", map[string]any{"name": "A"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.True(t, resp.OK())
	assert.JSONEq(t, `{"id":1}`, string(resp.Body))
	assert.Equal(t, "/api/branches", got.URL.Path)
	assert.Equal(t, "1", got.URL.Query().Get("page"))
	assert.Equal(t, "Bearer tok", got.Header.Get("Authorization"))
	assert.Equal(t, "req-1", got.Header.Get("X-Request-ID"))
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "A", gotBody["name"])
}

func TestDoSendsRawBodyUnchanged(t *testing.T) {
	var contentType, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(srv.URL, time.Second, "")
	require.NoError(t, err)
	raw := RawBody{ContentType: "multipart/form-data; boundary=xyz", Data: []byte("--xyz\r\n--xyz--\r\n")}
	_, err = c.Do(context.Background(), http.MethodPost, "/account/profile", nil, "tok", raw)
	require.NoError(t, err)

	assert.Equal(t, "multipart/form-data; boundary=xyz", contentType)
	assert.Equal(t, "--xyz\r\n--xyz--\r\n", body)
}

func TestDoGeneratesRequestID(t *testing.T) {
	var id string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = r.Header.Get("X-Request-ID")
		assert.Empty(t, r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, err := New(srv.URL, time.Second, "X-Request-ID")
	require.NoError(t, err)
	_, err = c.Do(context.Background(), http.MethodGet, "ping", nil, "", nil)
	require.NoError(t, err)
	assert.Len(t, id, 36)
}

func TestDoTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(base, time.Second, "")
	require.NoError(t, err)
	_, err = c.Do(context.Background(), http.MethodGet, "/roles", nil, "t", nil)
	assert.Error(t, err)
}

func TestNewRejectsInvalidBase(t *testing.T) {
	_, err := New("not a url", time.Second, "")
	assert.Error(t, err)
}

func TestResponseErr(t *testing.T) {
	assert.NoError(t, Response{Status: 200}.Err("role"))

	err := Response{Status: 404}.Err("role")
	assert.True(t, domain.IsNotFound(err))

	err = Response{Status: 500, Body: []byte(`{"message":"db down"}`)}.Err("role")
	require.True(t, domain.IsUpstream(err))
	assert.Equal(t, "db down", err.Error())
	assert.Equal(t, 500, domain.UpstreamStatus(err))

	err = Response{Status: 409, Body: []byte(`{"error":"duplicate"}`)}.Err("role")
	assert.Equal(t, "duplicate", err.Error())

	err = Response{Status: 502, Body: []byte(`<html>`)}.Err("role")
	assert.Equal(t, 502, domain.UpstreamStatus(err))
}
