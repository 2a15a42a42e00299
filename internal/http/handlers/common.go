package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/feridsherif/crms-frontend/internal/config"
	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/entities"
	"github.com/feridsherif/crms-frontend/internal/http/middleware"
	"github.com/feridsherif/crms-frontend/internal/services"
)

// AuditLister reads the audit trail.
type AuditLister interface {
	List(ctx context.Context, entity string, limit int) ([]domain.AuditEntry, error)
}

// API carries the dependencies shared by every handler.
type API struct {
	Gateway  services.Gateway
	Auth     services.Authenticator
	Sessions services.SessionIssuer
	Audit    AuditLister
	Env      config.Env
	Logger   logrus.FieldLogger
	Now      func() time.Time
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

// requestContext carries the request id into services and backend calls.
func requestContext(c *gin.Context) context.Context {
	return services.WithRequestID(c.Request.Context(), middleware.GetRequestID(c))
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		respondError(c, http.StatusBadRequest, "invalid_input", "Request body is required.", nil)
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, "invalid_input", "Invalid input.", nil)
		return false
	}
	return true
}

// parseListQuery reads page (1-based), limit/size, sort, dir, query and the
// entity's filters.
func (a *API) parseListQuery(c *gin.Context, def entities.Definition) (domain.ListQuery, error) {
	page, err := intParam(c, "page", 1)
	if err != nil {
		return domain.ListQuery{}, err
	}
	sizeRaw := c.Query("limit")
	if sizeRaw == "" {
		sizeRaw = c.Query("size")
	}
	size := a.Env.PageSize
	if strings.TrimSpace(sizeRaw) != "" {
		size, err = strconv.Atoi(strings.TrimSpace(sizeRaw))
		if err != nil {
			return domain.ListQuery{}, domain.ValidationError{Field: "limit", Msg: "must be a number"}
		}
	}
	if size <= 0 {
		return domain.ListQuery{}, domain.ValidationError{Field: "limit", Msg: "must be positive"}
	}
	if a.Env.MaxPageSize > 0 && size > a.Env.MaxPageSize {
		size = a.Env.MaxPageSize
	}

	q := domain.ListQuery{
		PageIndex:      max(0, page-1),
		PageSize:       size,
		SortField:      strings.TrimSpace(c.Query("sort")),
		SortDescending: strings.EqualFold(c.Query("dir"), "desc"),
		SearchText:     strings.TrimSpace(c.Query("query")),
	}
	for _, f := range def.Filters {
		if v := strings.TrimSpace(c.Query(f)); v != "" {
			if q.Filters == nil {
				q.Filters = map[string]string{}
			}
			q.Filters[f] = v
		}
	}
	return q, nil
}

func intParam(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.ValidationError{Field: name, Msg: "must be a number"}
	}
	return n, nil
}
