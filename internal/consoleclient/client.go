// Package consoleclient is a typed client for the console gateway API. It
// satisfies the list synchronizer and form dialog interfaces so a terminal
// console can drive them over HTTP.
package consoleclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/entities"
	"github.com/feridsherif/crms-frontend/internal/export"
	"github.com/feridsherif/crms-frontend/internal/upstream"
)

// Doer is the transport; *upstream.Client implements it.
type Doer interface {
	Do(ctx context.Context, method, path string, query url.Values, token string, body any) (upstream.Response, error)
}

type Client struct {
	doer Doer

	mu    sync.RWMutex
	token string
	user  domain.SessionCredential
}

// New builds a client for a gateway mounted at baseURL (for example
// http://localhost:8080/api).
func New(baseURL string, timeout time.Duration, requestIDHeader string) (*Client, error) {
	doer, err := upstream.New(baseURL, timeout, requestIDHeader)
	if err != nil {
		return nil, err
	}
	return &Client{doer: doer}, nil
}

// NewWithDoer is used by tests and callers that bring their own transport.
func NewWithDoer(d Doer) *Client {
	return &Client{doer: d}
}

func (c *Client) session() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// User returns the signed-in user.
func (c *Client) User() domain.SessionCredential {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.user
}

// Login signs in and keeps the session token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) (domain.SessionCredential, error) {
	body := map[string]string{"username": username, "password": password}
	var out struct {
		Token string                   `json:"token"`
		User  domain.SessionCredential `json:"user"`
	}
	if err := c.call(ctx, "session", http.MethodPost, "/auth/login", nil, body, &out); err != nil {
		return domain.SessionCredential{}, err
	}
	if out.Token == "" {
		return domain.SessionCredential{}, domain.UnauthorizedError{Msg: "no session token returned"}
	}
	c.mu.Lock()
	c.token, c.user = out.Token, out.User
	c.mu.Unlock()
	return out.User, nil
}

// Logout drops the local session even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.call(ctx, "session", http.MethodPost, "/auth/logout", nil, nil, nil)
	c.mu.Lock()
	c.token, c.user = "", domain.SessionCredential{}
	c.mu.Unlock()
	return err
}

func route(entity string) (entities.Definition, string, error) {
	def, ok := entities.Lookup(entity)
	if !ok || len(def.Routes) == 0 {
		return entities.Definition{}, "", domain.NotFoundError{Resource: "entity " + entity}
	}
	return def, def.Routes[0], nil
}

// ListQueryValues renders q as the gateway's list parameters.
func ListQueryValues(q domain.ListQuery) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page()))
	v.Set("limit", strconv.Itoa(q.PageSize))
	if q.SortField != "" {
		v.Set("sort", q.SortField)
		v.Set("dir", q.Direction())
	}
	if s := strings.TrimSpace(q.SearchText); s != "" {
		v.Set("query", s)
	}
	for k, val := range q.Filters {
		if strings.TrimSpace(val) != "" {
			v.Set(k, val)
		}
	}
	return v
}

// List fetches one page.
func (c *Client) List(ctx context.Context, entity string, q domain.ListQuery) (domain.ListResult, error) {
	_, path, err := route(entity)
	if err != nil {
		return domain.ListResult{}, err
	}
	var out struct {
		Data       []domain.Record `json:"data"`
		Pagination struct {
			Total int `json:"total"`
			Page  int `json:"page"`
		} `json:"pagination"`
	}
	if err := c.call(ctx, entity, http.MethodGet, path, ListQueryValues(q), nil, &out); err != nil {
		return domain.ListResult{}, err
	}
	if out.Data == nil {
		out.Data = []domain.Record{}
	}
	return domain.ListResult{Items: out.Data, TotalCount: out.Pagination.Total, Page: out.Pagination.Page}, nil
}

func (c *Client) Get(ctx context.Context, entity, id string) (domain.Record, error) {
	_, path, err := route(entity)
	if err != nil {
		return nil, err
	}
	return c.record(ctx, entity, http.MethodGet, path+"/"+url.PathEscape(id), nil)
}

func (c *Client) Create(ctx context.Context, entity string, payload map[string]any) (domain.Record, error) {
	_, path, err := route(entity)
	if err != nil {
		return nil, err
	}
	return c.record(ctx, entity, http.MethodPost, path, payload)
}

func (c *Client) Update(ctx context.Context, entity, id string, payload map[string]any) (domain.Record, error) {
	_, path, err := route(entity)
	if err != nil {
		return nil, err
	}
	return c.record(ctx, entity, http.MethodPut, path+"/"+url.PathEscape(id), payload)
}

func (c *Client) Delete(ctx context.Context, entity, id string) error {
	_, path, err := route(entity)
	if err != nil {
		return err
	}
	return c.call(ctx, entity, http.MethodDelete, path+"/"+url.PathEscape(id), nil, nil, nil)
}

// Action invokes a named record action such as "restore".
func (c *Client) Action(ctx context.Context, entity, id, action string) (domain.Record, error) {
	_, path, err := route(entity)
	if err != nil {
		return nil, err
	}
	return c.record(ctx, entity, http.MethodPatch, path+"/"+url.PathEscape(id)+"/"+action, nil)
}

// Options lists the select choices of an entity.
func (c *Client) Options(ctx context.Context, entity string) ([]domain.Record, error) {
	def, path, err := route(entity)
	if err != nil {
		return nil, err
	}
	if def.SelectPath == "" {
		return nil, domain.NotFoundError{Resource: entity + " options"}
	}
	var out struct {
		Data []domain.Record `json:"data"`
	}
	if err := c.call(ctx, entity, http.MethodGet, path+"/select", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Export downloads the rendered list.
func (c *Client) Export(ctx context.Context, entity string, format export.Format, q domain.ListQuery) ([]byte, error) {
	_, path, err := route(entity)
	if err != nil {
		return nil, err
	}
	values := ListQueryValues(q)
	values.Set("format", string(format))
	resp, err := c.doer.Do(ctx, http.MethodGet, path+"/export", values, c.session(), nil)
	if err != nil {
		return nil, domain.InternalError{Msg: "gateway unreachable", Err: err}
	}
	if !resp.OK() {
		return nil, decodeError(entity, resp)
	}
	return resp.Body, nil
}

func (c *Client) record(ctx context.Context, entity, method, path string, body any) (domain.Record, error) {
	var out struct {
		Data domain.Record `json:"data"`
	}
	if err := c.call(ctx, entity, method, path, nil, body, &out); err != nil {
		return nil, err
	}
	if out.Data == nil {
		out.Data = domain.Record{}
	}
	return out.Data, nil
}

func (c *Client) call(ctx context.Context, resource, method, path string, query url.Values, body, dst any) error {
	resp, err := c.doer.Do(ctx, method, path, query, c.session(), body)
	if err != nil {
		return domain.InternalError{Msg: "gateway unreachable", Err: err}
	}
	if !resp.OK() {
		return decodeError(resource, resp)
	}
	if dst == nil || len(resp.Body) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Body, dst); err != nil {
		return domain.InternalError{Msg: "malformed gateway response", Err: errors.Wrap(err, "decode")}
	}
	return nil
}

type errorBody struct {
	Message string            `json:"message"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details"`
}

// decodeError turns a gateway error body back into a domain error.
func decodeError(resource string, resp upstream.Response) error {
	var body errorBody
	_ = json.Unmarshal(resp.Body, &body)
	msg := strings.TrimSpace(body.Message)
	switch {
	case resp.Status == http.StatusBadRequest && body.Code == "invalid_input":
		return domain.ValidationError{Msg: msg, Details: body.Details}
	case resp.Status == http.StatusUnauthorized:
		return domain.UnauthorizedError{Msg: msg}
	case resp.Status == http.StatusNotFound:
		return domain.NotFoundError{Resource: resource}
	default:
		if msg == "" {
			msg = http.StatusText(resp.Status)
		}
		return domain.UpstreamError{Status: resp.Status, Msg: msg}
	}
}
