package api

import (
	stdhttp "net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/feridsherif/crms-frontend/internal/entities"
	h "github.com/feridsherif/crms-frontend/internal/http/handlers"
	"github.com/feridsherif/crms-frontend/internal/http/middleware"
	"github.com/feridsherif/crms-frontend/internal/utils"
)

const userManagementPrefix = "/user-management"

// NewRouter mounts the console API. loginLimit may be nil.
func NewRouter(a *h.API, loginLimit gin.HandlerFunc) *gin.Engine {
	env := a.Env

	r := gin.New()
	r.Use(
		middleware.RequestID(env.RequestIDHeader),
		middleware.Tracing(),
		middleware.Logger(a.Logger),
		gin.Recovery(),
		middleware.CORS(env.CORSOrigins, env.RequestIDHeader),
	)

	if err := r.SetTrustedProxies(nil); err != nil {
		utils.LogError(a.Logger, "", "router", "trusted_proxies", err)
	}

	r.OPTIONS("/*path", func(c *gin.Context) { c.AbortWithStatus(stdhttp.StatusNoContent) })

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"message": "route not found",
			"code":    "not_found",
			"path":    c.Request.URL.Path,
			"method":  c.Request.Method,
		})
	})

	if env.Prometheus.Enabled {
		r.GET(env.Prometheus.Path, gin.WrapH(promhttp.Handler()))
	}

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/routes", h.Routes)

		// Auth
		auth := api.Group("/auth")
		if loginLimit != nil {
			auth.POST("/login", loginLimit, a.Login)
		} else {
			auth.POST("/login", a.Login)
		}
		auth.POST("/logout", a.Logout)

		protected := api.Group("", middleware.RequireSession(a.Sessions, env.Session.Cookie))
		protected.GET("/auth/session", a.Session)

		admin := protected.Group("", middleware.RequirePermissions(env.Auth.UserManagementPermissions...))
		admin.GET("/audit", a.AuditTrail)

		um := admin.Group(userManagementPrefix)
		um.GET("/account", a.Account)
		um.DELETE("/permissions/delete", a.DeletePermissions)
		for _, sec := range entities.Settings() {
			um.POST(sec.Route, a.SaveSettings(sec))
		}

		for _, def := range entities.All() {
			for _, route := range def.Routes {
				if rest, ok := strings.CutPrefix(route, userManagementPrefix); ok {
					mountEntity(um.Group(rest), a, def)
					continue
				}
				mountEntity(protected.Group(route), a, def)
			}
		}
	}

	h.SetRouter(r)
	return r
}

func mountEntity(g *gin.RouterGroup, a *h.API, def entities.Definition) {
	g.GET("", a.ListEntity(def))
	g.GET("/export", a.ExportEntity(def))
	if def.SelectPath != "" {
		g.GET("/select", a.EntityOptions(def))
	}
	g.GET("/:id", a.GetEntity(def))
	g.POST("", a.CreateEntity(def))
	g.PUT("/:id", a.UpdateEntity(def))
	g.DELETE("/:id", a.DeleteEntity(def))
	for action := range def.Actions {
		g.PATCH("/:id/"+action, a.EntityAction(def, action))
	}
}
