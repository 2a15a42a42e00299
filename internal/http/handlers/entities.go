package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/feridsherif/crms-frontend/internal/entities"
	"github.com/feridsherif/crms-frontend/internal/export"
	"github.com/feridsherif/crms-frontend/internal/http/middleware"
	"github.com/feridsherif/crms-frontend/internal/utils"
)

// GET /api/{entity}
func (a *API) ListEntity(def entities.Definition) gin.HandlerFunc {
	return func(c *gin.Context) {
		q, err := a.parseListQuery(c, def)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		res, err := a.Gateway.List(requestContext(c), middleware.GetSession(c), def.Name, q)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"data": res.Items,
			"pagination": gin.H{
				"total": res.TotalCount,
				"page":  res.Page,
			},
			"empty": len(res.Items) == 0,
		})
	}
}

// GET /api/{entity}/:id
func (a *API) GetEntity(def entities.Definition) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := a.Gateway.Get(requestContext(c), middleware.GetSession(c), def.Name, c.Param("id"))
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rec})
	}
}

// POST /api/{entity}
func (a *API) CreateEntity(def entities.Definition) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload map[string]any
		if !BindJSONOrError(c, &payload) {
			return
		}
		rec, err := a.Gateway.Create(requestContext(c), middleware.GetSession(c), def.Name, payload)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"data": rec, "message": def.Label + " created"})
	}
}

// PUT /api/{entity}/:id
func (a *API) UpdateEntity(def entities.Definition) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload map[string]any
		if !BindJSONOrError(c, &payload) {
			return
		}
		rec, err := a.Gateway.Update(requestContext(c), middleware.GetSession(c), def.Name, c.Param("id"), payload)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rec, "message": def.Label + " updated"})
	}
}

// DELETE /api/{entity}/:id
func (a *API) DeleteEntity(def entities.Definition) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := a.Gateway.Delete(requestContext(c), middleware.GetSession(c), def.Name, c.Param("id")); err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": def.Label + " deleted"})
	}
}

// PATCH /api/{entity}/:id/{action}
func (a *API) EntityAction(def entities.Definition, action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := a.Gateway.Action(requestContext(c), middleware.GetSession(c), def.Name, c.Param("id"), action)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": rec, "message": def.Label + " " + action + " applied"})
	}
}

// GET /api/{entity}/select
func (a *API) EntityOptions(def entities.Definition) gin.HandlerFunc {
	return func(c *gin.Context) {
		opts, err := a.Gateway.Options(requestContext(c), middleware.GetSession(c), def.Name)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"data": opts})
	}
}

// GET /api/{entity}/export?format=pdf|xlsx
func (a *API) ExportEntity(def entities.Definition) gin.HandlerFunc {
	return func(c *gin.Context) {
		format, err := export.ParseFormat(c.Query("format"))
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		q, err := a.parseListQuery(c, def)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		ctx := requestContext(c)
		rows, err := export.Collect(ctx, a.Gateway.Bind(middleware.GetSession(c)), def.Name, q, a.Env.ExportMaxRows)
		if err != nil {
			RespondDomainError(c, err)
			return
		}
		now := a.now()
		out, err := export.Render(format, export.Table{
			Title:       def.Label + " list",
			Columns:     def.Columns,
			Rows:        rows,
			GeneratedAt: now,
		})
		if err != nil {
			utils.LogError(a.Logger, middleware.GetRequestID(c), def.Name, "export", err)
			RespondDomainError(c, err)
			return
		}
		utils.LogEvent(a.Logger, middleware.GetRequestID(c), def.Name, "export", strings.ToUpper(string(format))+" rows="+strconv.Itoa(len(rows)))
		c.Header("Content-Disposition", `attachment; filename="`+format.Filename(def.Name, now)+`"`)
		c.Data(http.StatusOK, format.ContentType(), out)
	}
}
