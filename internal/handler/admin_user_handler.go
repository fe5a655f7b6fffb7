package handler

import (
	"net/http"

	"storefront/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminUserHandler struct {
	uc    *usecase.AdminUserUsecase
	audit *usecase.AuditLogUsecase
}

func NewAdminUserHandler(uc *usecase.AdminUserUsecase, audit *usecase.AuditLogUsecase) *AdminUserHandler {
	return &AdminUserHandler{uc: uc, audit: audit}
}

func (h *AdminUserHandler) RegisterRoutes(e *echo.Echo, admin []echo.MiddlewareFunc) {
	// ★ /admin 配下は全部「JWT必須 + token_version一致 + ADMIN限定」
	g := e.Group("/admin", admin...)

	g.POST("/users/:id/force-logout", h.ForceLogout)
	g.GET("/audit-logs", h.AuditLogs)
}

func (h *AdminUserHandler) ForceLogout(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}
	userID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user_id")
	}

	res, err := h.uc.ForceLogout(c.Request().Context(), p, userID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, res)
}

func (h *AdminUserHandler) AuditLogs(c echo.Context) error {
	p, ok := getPrincipal(c)
	if !ok {
		return unauthorized(c)
	}
	page, ok := queryInt(c, "page", 1)
	if !ok {
		return badRequest(c, "invalid page")
	}
	limit, ok := queryInt(c, "limit", 50)
	if !ok {
		return badRequest(c, "invalid limit")
	}

	out, err := h.audit.List(c.Request().Context(), p, usecase.AuditLogQuery{
		ActorUserID:  c.QueryParam("actor_user_id"),
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resource_type"),
		ResourceID:   c.QueryParam("resource_id"),
		From:         c.QueryParam("from"),
		To:           c.QueryParam("to"),
		Page:         page,
		Limit:        limit,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
