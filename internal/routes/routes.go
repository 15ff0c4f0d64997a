// Package routes defines the HTTP route table.
package routes

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/qc-workbench-api/internal/authz"
	"github.com/noah-isme/qc-workbench-api/internal/handler"
	"github.com/noah-isme/qc-workbench-api/internal/middleware"
	"github.com/noah-isme/qc-workbench-api/internal/service"
	"github.com/noah-isme/qc-workbench-api/pkg/config"
	"github.com/noah-isme/qc-workbench-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/qc-workbench-api/pkg/middleware/cors"
	csrfmiddleware "github.com/noah-isme/qc-workbench-api/pkg/middleware/csrf"
	reqidmiddleware "github.com/noah-isme/qc-workbench-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler mounted by Setup. Reports may be nil
// when exports are disabled.
type Handlers struct {
	Auth     *handler.AuthHandler
	Admin    *handler.AdminHandler
	Subjects *handler.SubjectHandler
	Tasks    *handler.TaskHandler
	Progress *handler.ProgressHandler
	Prompts  *handler.PromptHandler
	Chat     *handler.ChatHandler
	Reports  *handler.ReportHandler
	Metrics  *handler.MetricsHandler
}

// Deps are the cross-cutting collaborators of the middleware chain.
type Deps struct {
	Sessions middleware.TokenValidator
	Audit    middleware.AuditRecorder
	Metrics  *service.MetricsService
	Logger   *zap.Logger
}

// Setup configures all HTTP routes for the application.
func Setup(router *gin.Engine, cfg *config.Config, h Handlers, deps Deps) {
	router.Use(gin.Recovery())
	router.Use(reqidmiddleware.Middleware())
	router.Use(logger.GinMiddleware(deps.Logger, "/health", "/ready", "/metrics"))
	router.Use(middleware.Metrics(deps.Metrics, "/metrics", "/health", "/ready"))
	router.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	router.Use(csrfmiddleware.New(cfg.CORS.AllowedOrigins))
	router.Use(middleware.WithResponseMeta())

	router.GET("/health", h.Metrics.Health)
	router.GET("/ready", h.Metrics.Ready)
	router.GET("/metrics", h.Metrics.Prometheus)
	if cfg.Env != config.EnvProduction {
		router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	cookie := cfg.Session.CookieName
	requireSession := middleware.Session(deps.Sessions, cookie)
	optionalSession := middleware.OptionalSession(deps.Sessions, cookie)
	can := middleware.RequireCapability
	audit := func(action, resource, param string) gin.HandlerFunc {
		return middleware.Audit(deps.Audit, deps.Logger, action, resource, param)
	}

	api := router.Group(apiPrefix(cfg.APIPrefix))

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/logout", optionalSession, h.Auth.Logout)
		auth.GET("/me", requireSession, h.Auth.Me)
	}

	api.POST("/chat", optionalSession, h.Chat.Chat)

	if h.Reports != nil {
		api.GET("/exports/:token", h.Reports.Download)
	}

	secured := api.Group("")
	secured.Use(requireSession)

	subjects := secured.Group("/subjects")
	{
		subjects.GET("", h.Subjects.List)
		subjects.GET("/deleted", can(authz.ActionSubjectViewDeleted), h.Subjects.ListDeleted)
		subjects.GET("/:subjectId", h.Subjects.Get)
		subjects.POST("", can(authz.ActionSubjectCreate), h.Subjects.Create)
		subjects.DELETE("", can(authz.ActionSubjectDelete), h.Subjects.Delete)
	}

	tasks := secured.Group("/tasks")
	{
		tasks.GET("/:subjectId", can(authz.ActionTaskRead), h.Tasks.Get)
		tasks.PUT("/:subjectId", can(authz.ActionTaskWrite), audit("TASKS_UPDATE", "task_definition", "subjectId"), h.Tasks.Upsert)
	}

	work := secured.Group("/work")
	{
		work.GET("/progress", h.Progress.List)
		work.GET("/progress/summary", h.Progress.Summary)
		work.POST("/progress", can(authz.ActionWorkSubmit), h.Progress.Submit)
	}

	prompts := secured.Group("/prompts")
	{
		prompts.GET("/system", h.Prompts.ListSystem)
		prompts.POST("/system", can(authz.ActionPromptWrite), audit("SYSTEM_PROMPT_CREATE", "system_prompt", ""), h.Prompts.CreateSystem)
		prompts.PUT("/system/:id", can(authz.ActionPromptWrite), audit("SYSTEM_PROMPT_UPDATE", "system_prompt", "id"), h.Prompts.UpdateSystem)
		prompts.DELETE("/system/:id", can(authz.ActionPromptWrite), audit("SYSTEM_PROMPT_DELETE", "system_prompt", "id"), h.Prompts.DeleteSystem)
		prompts.GET("/uploads", h.Prompts.ListUploads)
		prompts.GET("/uploads/current", h.Prompts.CurrentUpload)
		prompts.PUT("/uploads", can(authz.ActionPromptWrite), audit("PROMPT_UPLOAD_UPSERT", "prompt_upload", ""), h.Prompts.UpsertUpload)
		prompts.DELETE("/uploads/:id", can(authz.ActionPromptWrite), audit("PROMPT_UPLOAD_DELETE", "prompt_upload", "id"), h.Prompts.DeleteUpload)
	}

	admin := secured.Group("/admin")
	{
		admin.GET("/users", can(authz.ActionAdminView), h.Admin.ListUsers)
		admin.PUT("/users/role", can(authz.ActionAdminManageRoles), h.Admin.UpdateRole)
		admin.GET("/permissions", can(authz.ActionAdminView), h.Admin.ListPermissions)
		admin.PUT("/permissions", can(authz.ActionAdminManagePermissions), h.Admin.UpsertPermission)
		if h.Reports != nil {
			admin.POST("/exports", can(authz.ActionExportCreate), h.Reports.CreateExport)
			admin.GET("/exports/:id", can(authz.ActionExportCreate), h.Reports.ExportStatus)
		}
	}
}

func apiPrefix(prefix string) string {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		return "/api/v1"
	}
	return prefix
}
