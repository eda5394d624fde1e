package setting

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinicore/clinic-api/internal/handler"
	"github.com/clinicore/clinic-api/internal/middleware"
	"github.com/clinicore/clinic-api/internal/model"
	"github.com/clinicore/clinic-api/internal/service/setting"
)

type Handler struct {
	svc *setting.Service
}

func NewHandler(svc *setting.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	settings := r.Group("/settings")
	{
		settings.GET("", h.ListSettings)
		settings.GET("/:key", h.GetSetting)
	}
}

// RegisterAdminRoutes mounts the mutating routes, gated to admins by the
// router.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.PUT("/settings", h.UpsertSetting)
}

// ListSettings returns all settings for admins and only the public ones
// for everyone else.
func (h *Handler) ListSettings(c *gin.Context) {
	publicOnly := middleware.UserRole(c) != model.UserRoleAdmin

	settings, err := h.svc.List(c.Request.Context(), publicOnly)
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(settings))
}

func (h *Handler) GetSetting(c *gin.Context) {
	key := c.Param("key")

	s, err := h.svc.Get(c.Request.Context(), key)
	if err != nil {
		handler.Error(c, err)
		return
	}
	if !s.IsPublic && middleware.UserRole(c) != model.UserRoleAdmin {
		c.JSON(http.StatusForbidden, handler.NewErrorResponse("insufficient permissions"))
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(s))
}

func (h *Handler) UpsertSetting(c *gin.Context) {
	var req model.UpsertSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	s, err := h.svc.Upsert(c.Request.Context(), &req, middleware.UserID(c))
	if err != nil {
		handler.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, handler.NewSuccessResponse(s))
}
