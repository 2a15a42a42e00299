package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/feridsherif/crms-frontend/internal/domain"
	"github.com/feridsherif/crms-frontend/internal/entities"
	"github.com/feridsherif/crms-frontend/internal/http/middleware"
)

type bulkDeleteRequest struct {
	PermissionIDs []any `json:"permissionIds"`
}

// DELETE /api/user-management/permissions/delete
func (a *API) DeletePermissions(c *gin.Context) {
	var req bulkDeleteRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	ids := make([]string, 0, len(req.PermissionIDs))
	for _, v := range req.PermissionIDs {
		if id := strings.TrimSpace(domain.IDString(v)); id != "" {
			ids = append(ids, id)
		}
	}
	n, err := a.Gateway.DeleteMany(requestContext(c), middleware.GetSession(c), entities.Permissions, ids)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Delete selected success", "deleted": n})
}

// GET /api/user-management/account
func (a *API) Account(c *gin.Context) {
	rec, err := a.Gateway.Account(requestContext(c), middleware.GetSession(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec})
}

// GET /api/audit?entity=&limit=
func (a *API) AuditTrail(c *gin.Context) {
	if a.Audit == nil {
		RespondDomainError(c, domain.NotFoundError{Resource: "audit trail"})
		return
	}
	limit := 100
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondDomainError(c, domain.ValidationError{Field: "limit", Msg: "must be a positive number"})
			return
		}
		limit = n
	}
	rows, err := a.Audit.List(requestContext(c), strings.TrimSpace(c.Query("entity")), limit)
	if err != nil {
		RespondDomainError(c, domain.InternalError{Msg: "could not read audit trail", Err: err})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}
