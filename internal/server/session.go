package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/mohammad-safakhou/floatchat/internal/complexity"
	"github.com/mohammad-safakhou/floatchat/internal/session"
)

type SessionHandler struct {
	Session *session.Controller
}

func (h *SessionHandler) Register(g *echo.Group) {
	g.GET("", h.view)
	g.GET("/actions", h.actions)
	g.POST("/query", h.query)
	g.POST("/dispatch", h.dispatch)
	g.POST("/reset", h.reset)
	g.POST("/palette", h.palette)
}

func (h *SessionHandler) view(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Session.View())
}

func (h *SessionHandler) actions(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string][]string{"actions": h.Session.Actions()})
}

func (h *SessionHandler) query(c echo.Context) error {
	var req struct {
		Question string `json:"question"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	turn, err := h.Session.Submit(c.Request().Context(), req.Question)
	if errors.Is(err, session.ErrEmptyQuestion) {
		return echo.NewHTTPError(http.StatusBadRequest, "question required")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, turn)
}

func (h *SessionHandler) dispatch(c echo.Context) error {
	var req struct {
		Action  string `json:"action"`
		Payload string `json:"payload"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out, err := h.Session.Dispatch(c.Request().Context(), req.Action, req.Payload)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, out)
}

func (h *SessionHandler) reset(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Session.Reset(c.Request().Context()))
}

func (h *SessionHandler) palette(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Session.OpenPalette())
}

// estimate scores a question without touching the session.
func estimate(c echo.Context) error {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Query) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}
	return c.JSON(http.StatusOK, complexity.Estimate(req.Query))
}
