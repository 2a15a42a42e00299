package services

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/entities"
	"github.com/feridsherif/crms-frontend/internal/metrics"
	"github.com/feridsherif/crms-frontend/internal/upstream"
	"github.com/feridsherif/crms-frontend/internal/utils"
)

// Backend issues one call to the external API. *upstream.Client implements it.
type Backend interface {
	Do(ctx context.Context, method, path string, query url.Values, token string, body any) (upstream.Response, error)
}

// AuditRecorder stores the trail of successful mutations.
type AuditRecorder interface {
	Insert(ctx context.Context, entry domain.AuditEntry) error
}

// Gateway forwards authenticated entity operations to the backend and
// normalizes what comes back. Every method returns a typed domain error.
type Gateway struct {
	Backend       Backend
	Audit         AuditRecorder
	Logger        logrus.FieldLogger
	BulkDeleteMax int
	Now           func() time.Time
}

type requestIDKey struct{}

// WithRequestID tags ctx so logs, audit rows and backend calls share the id.
func WithRequestID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey{}, id)
	return upstream.WithRequestID(ctx, id)
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (g Gateway) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g Gateway) authorize(cred *domain.SessionCredential) error {
	if cred == nil || strings.TrimSpace(cred.AccessToken) == "" {
		return domain.UnauthorizedError{Msg: "Unauthorized request"}
	}
	if cred.Expired(g.now()) {
		return domain.UnauthorizedError{Msg: "session expired"}
	}
	return nil
}

func (g Gateway) begin(cred *domain.SessionCredential, entity string) (entities.Definition, error) {
	if err := g.authorize(cred); err != nil {
		return entities.Definition{}, err
	}
	def, ok := entities.Lookup(entity)
	if !ok {
		return entities.Definition{}, domain.NotFoundError{Resource: "entity " + entity}
	}
	return def, nil
}

func (g Gateway) call(ctx context.Context, cred *domain.SessionCredential, def entities.Definition, op, method, path string, query url.Values, body any) ([]byte, error) {
	resp, err := g.Backend.Do(ctx, method, path, query, cred.AccessToken, body)
	if err != nil {
		utils.LogError(g.Logger, requestID(ctx), def.Name, op, err)
		metrics.RecordGatewayError(def.Name, op, "network")
		return nil, domain.InternalError{Msg: "Oops! Something went wrong. Please try again in a moment.", Err: err}
	}
	if err := resp.Err(def.Label); err != nil {
		metrics.RecordGatewayError(def.Name, op, errorKind(err))
		utils.LogEvent(g.Logger, requestID(ctx), def.Name, op+"_rejected", "backend status="+strconv.Itoa(resp.Status))
		return nil, err
	}
	return resp.Body, nil
}

func malformed(err error) error {
	return domain.InternalError{Msg: "malformed backend response", Err: err}
}

// ListQueryParams renders q the way the backend expects it.
func ListQueryParams(def entities.Definition, q domain.ListQuery) url.Values {
	params := url.Values{}
	params.Set("page", strconv.Itoa(def.BackendPage(q.PageIndex)))
	params.Set(def.SizeParam, strconv.Itoa(q.PageSize))
	if q.SortField != "" {
		params.Set("sort", q.SortField)
		params.Set("dir", q.Direction())
	}
	if s := utils.NormalizeSpace(q.SearchText); s != "" {
		params.Set("query", s)
	}
	for k, v := range q.Filters {
		if def.HasFilter(k) && strings.TrimSpace(v) != "" {
			params.Set(k, v)
		}
	}
	return params
}

// List fetches one page of entity records.
func (g Gateway) List(ctx context.Context, cred *domain.SessionCredential, entity string, q domain.ListQuery) (domain.ListResult, error) {
	def, err := g.begin(cred, entity)
	if err != nil {
		return domain.ListResult{}, err
	}
	if err := q.Validate(); err != nil {
		return domain.ListResult{}, err
	}

	body, err := g.call(ctx, cred, def, "list", http.MethodGet, def.ListPath, ListQueryParams(def, q), nil)
	if err != nil {
		return domain.ListResult{}, err
	}
	env, err := entities.DecodeEnvelope(body)
	if err != nil {
		metrics.RecordGatewayError(def.Name, "list", "malformed")
		return domain.ListResult{}, malformed(err)
	}
	items := env.Items
	if !env.HasTotal && len(items) > q.PageSize {
		// The backend ignored paging and sent every row.
		items = pageWindow(items, q.PageIndex, q.PageSize)
	}
	return domain.ListResult{
		Items:      def.NormalizeAll(items),
		TotalCount: env.Count(),
		Page:       q.Page(),
	}, nil
}

func pageWindow(items []map[string]any, pageIndex, pageSize int) []map[string]any {
	start := pageIndex * pageSize
	if start >= len(items) {
		return nil
	}
	end := start + pageSize
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}

// Get fetches a single record.
func (g Gateway) Get(ctx context.Context, cred *domain.SessionCredential, entity, id string) (domain.Record, error) {
	def, err := g.begin(cred, entity)
	if err != nil {
		return nil, err
	}
	id, err = requireID(id)
	if err != nil {
		return nil, err
	}
	body, err := g.call(ctx, cred, def, "get", http.MethodGet, def.ItemURL(id), nil, nil)
	if err != nil {
		return nil, err
	}
	item, err := entities.DecodeItem(body)
	if err != nil {
		return nil, malformed(err)
	}
	return def.Normalize(item), nil
}

// Create validates payload and posts it. An empty backend body yields the
// submitted fields.
func (g Gateway) Create(ctx context.Context, cred *domain.SessionCredential, entity string, payload map[string]any) (domain.Record, error) {
	def, err := g.begin(cred, entity)
	if err != nil {
		return nil, err
	}
	clean, out, err := def.PrepareWrite(payload)
	if err != nil {
		return nil, err
	}
	body, err := g.call(ctx, cred, def, "create", http.MethodPost, def.CreatePath, nil, out)
	if err != nil {
		return nil, err
	}
	rec, err := g.written(def, body, clean, "")
	if err != nil {
		return nil, err
	}
	g.audit(ctx, cred, def, "create", rec.ID())
	return rec, nil
}

// Update validates payload and replaces the record.
func (g Gateway) Update(ctx context.Context, cred *domain.SessionCredential, entity, id string, payload map[string]any) (domain.Record, error) {
	def, err := g.begin(cred, entity)
	if err != nil {
		return nil, err
	}
	id, err = requireID(id)
	if err != nil {
		return nil, err
	}
	clean, out, err := def.PrepareWrite(payload)
	if err != nil {
		return nil, err
	}
	body, err := g.call(ctx, cred, def, "update", http.MethodPut, def.ItemURL(id), nil, out)
	if err != nil {
		return nil, err
	}
	rec, err := g.written(def, body, clean, id)
	if err != nil {
		return nil, err
	}
	g.audit(ctx, cred, def, "update", id)
	return rec, nil
}

// Delete removes a record.
func (g Gateway) Delete(ctx context.Context, cred *domain.SessionCredential, entity, id string) error {
	def, err := g.begin(cred, entity)
	if err != nil {
		return err
	}
	id, err = requireID(id)
	if err != nil {
		return err
	}
	if _, err := g.call(ctx, cred, def, "delete", http.MethodDelete, def.ItemURL(id), nil, nil); err != nil {
		return err
	}
	g.audit(ctx, cred, def, "delete", id)
	return nil
}

// Action runs a named PATCH action (roles: default, users: restore).
func (g Gateway) Action(ctx context.Context, cred *domain.SessionCredential, entity, id, action string) (domain.Record, error) {
	def, err := g.begin(cred, entity)
	if err != nil {
		return nil, err
	}
	suffix, ok := def.Actions[action]
	if !ok {
		return nil, domain.NotFoundError{Resource: "action " + action}
	}
	id, err = requireID(id)
	if err != nil {
		return nil, err
	}
	body, err := g.call(ctx, cred, def, action, http.MethodPatch, def.ItemURL(id)+suffix, nil, nil)
	if err != nil {
		return nil, err
	}
	rec, err := g.written(def, body, nil, id)
	if err != nil {
		return nil, err
	}
	g.audit(ctx, cred, def, action, id)
	return rec, nil
}

// Options returns the unpaginated option list of an entity.
func (g Gateway) Options(ctx context.Context, cred *domain.SessionCredential, entity string) ([]domain.Record, error) {
	def, err := g.begin(cred, entity)
	if err != nil {
		return nil, err
	}
	if def.SelectPath == "" {
		return nil, domain.NotFoundError{Resource: "options for " + entity}
	}
	body, err := g.call(ctx, cred, def, "options", http.MethodGet, def.SelectPath, nil, nil)
	if err != nil {
		return nil, err
	}
	env, err := entities.DecodeEnvelope(body)
	if err != nil {
		return nil, malformed(err)
	}
	return def.NormalizeAll(env.Items), nil
}

// DeleteMany deletes ids one at a time and stops at the first failure.
// It returns how many were deleted.
func (g Gateway) DeleteMany(ctx context.Context, cred *domain.SessionCredential, entity string, ids []string) (int, error) {
	if _, err := g.begin(cred, entity); err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, domain.ValidationError{Field: "ids", Msg: "Invalid input."}
	}
	if g.BulkDeleteMax > 0 && len(ids) > g.BulkDeleteMax {
		return 0, domain.ValidationError{
			Field: "ids",
			Msg:   "You cannot delete more than " + strconv.Itoa(g.BulkDeleteMax) + " records at once.",
		}
	}
	for i, id := range ids {
		if err := g.Delete(ctx, cred, entity, id); err != nil {
			return i, err
		}
	}
	return len(ids), nil
}

// Account loads the signed-in user's own profile.
func (g Gateway) Account(ctx context.Context, cred *domain.SessionCredential) (domain.Record, error) {
	def, err := g.begin(cred, entities.Users)
	if err != nil {
		return nil, err
	}
	query := url.Values{"email": {cred.Email}}
	body, err := g.call(ctx, cred, def, "account", http.MethodGet, "/users/account", query, nil)
	if err != nil {
		return nil, err
	}
	item, err := entities.DecodeItem(body)
	if err != nil {
		return nil, malformed(err)
	}
	return def.Normalize(item), nil
}

// SaveSettings validates a JSON settings section and posts it. The result is
// the backend's decoded body, nil when it sent none.
func (g Gateway) SaveSettings(ctx context.Context, cred *domain.SessionCredential, section string, payload map[string]any) (any, error) {
	sec, err := g.settings(cred, section)
	if err != nil {
		return nil, err
	}
	if sec.Multipart {
		return nil, domain.ValidationError{Msg: sec.Label + " expects multipart form data"}
	}
	clean, err := sec.Validate(payload)
	if err != nil {
		return nil, err
	}
	return g.postSettings(ctx, cred, sec, clean)
}

// SubmitSettingsForm forwards multipart form data to a settings section
// unchanged.
func (g Gateway) SubmitSettingsForm(ctx context.Context, cred *domain.SessionCredential, section string, form upstream.RawBody) (any, error) {
	sec, err := g.settings(cred, section)
	if err != nil {
		return nil, err
	}
	if !sec.Multipart {
		return nil, domain.ValidationError{Msg: sec.Label + " expects a JSON body"}
	}
	if len(form.Data) == 0 {
		return nil, domain.ValidationError{Msg: "Request body is required."}
	}
	return g.postSettings(ctx, cred, sec, form)
}

func (g Gateway) settings(cred *domain.SessionCredential, section string) (entities.SettingsSection, error) {
	if err := g.authorize(cred); err != nil {
		return entities.SettingsSection{}, err
	}
	sec, ok := entities.LookupSettings(section)
	if !ok {
		return entities.SettingsSection{}, domain.NotFoundError{Resource: "settings " + section}
	}
	return sec, nil
}

func (g Gateway) postSettings(ctx context.Context, cred *domain.SessionCredential, sec entities.SettingsSection, body any) (any, error) {
	def := sec.Definition()
	raw, err := g.call(ctx, cred, def, sec.Name, http.MethodPost, sec.Path, nil, body)
	if err != nil {
		return nil, err
	}
	g.audit(ctx, cred, def, sec.Name, "")
	return entities.DecodeOptional(raw), nil
}

// written turns a mutation response into a record. Fields the client sent
// fill in whatever the backend left out.
func (g Gateway) written(def entities.Definition, body []byte, sent map[string]any, id string) (domain.Record, error) {
	rec := domain.Record{}
	if len(strings.TrimSpace(string(body))) > 0 {
		item, err := entities.DecodeItem(body)
		if err != nil {
			return nil, malformed(err)
		}
		rec = def.Normalize(item)
	}
	for k, v := range sent {
		if _, ok := rec[k]; !ok {
			rec[k] = v
		}
	}
	if rec.ID() == "" && id != "" {
		rec["id"] = id
	}
	return rec, nil
}

func (g Gateway) audit(ctx context.Context, cred *domain.SessionCredential, def entities.Definition, action, id string) {
	if g.Audit == nil {
		return
	}
	entry := domain.AuditEntry{
		ActorID:   cred.SubjectID,
		ActorName: cred.DisplayName,
		Entity:    def.Name,
		Action:    action,
		RecordID:  id,
		RequestID: requestID(ctx),
		CreatedAt: g.now().UTC(),
	}
	if err := g.Audit.Insert(ctx, entry); err != nil {
		metrics.RecordAuditFailure()
		utils.LogError(g.Logger, entry.RequestID, "audit", "insert", err)
	}
}

func requireID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", domain.ValidationError{Field: "id", Msg: "is required"}
	}
	return url.PathEscape(id), nil
}

func errorKind(err error) string {
	switch {
	case domain.IsNotFound(err):
		return "not_found"
	case domain.IsUpstream(err):
		return "upstream"
	default:
		return "other"
	}
}

// Bind fixes the credential so the gateway can serve one signed-in console.
func (g Gateway) Bind(cred *domain.SessionCredential) BoundGateway {
	return BoundGateway{Gateway: g, Cred: cred}
}

// BoundGateway is a Gateway with the credential already attached.
type BoundGateway struct {
	Gateway Gateway
	Cred    *domain.SessionCredential
}

func (b BoundGateway) List(ctx context.Context, entity string, q domain.ListQuery) (domain.ListResult, error) {
	return b.Gateway.List(ctx, b.Cred, entity, q)
}

func (b BoundGateway) Create(ctx context.Context, entity string, payload map[string]any) (domain.Record, error) {
	return b.Gateway.Create(ctx, b.Cred, entity, payload)
}

func (b BoundGateway) Update(ctx context.Context, entity, id string, payload map[string]any) (domain.Record, error) {
	return b.Gateway.Update(ctx, b.Cred, entity, id, payload)
}

func (b BoundGateway) Delete(ctx context.Context, entity, id string) error {
	return b.Gateway.Delete(ctx, b.Cred, entity, id)
}
