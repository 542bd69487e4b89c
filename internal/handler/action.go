package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"avatar-gateway/internal/model"
	"avatar-gateway/internal/service"
)

// ActionHandler serves the session action endpoint.
type ActionHandler struct {
	gateway *service.Gateway
	logger  *slog.Logger
}

// NewActionHandler creates an ActionHandler.
func NewActionHandler(gw *service.Gateway, logger *slog.Logger) *ActionHandler {
	return &ActionHandler{
		gateway: gw,
		logger:  logger.With("component", "action_handler"),
	}
}

// Handle decodes a {action, token?, ...params} body and relays the gateway result.
// Success responses carry the upstream payload as-is; failures are {error, details?}.
func (h *ActionHandler) Handle(c echo.Context) error {
	var req model.ActionRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body",
			"err", err,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		)
		return c.JSON(http.StatusBadRequest, model.ErrorBody{Error: "invalid JSON body"})
	}

	res := h.gateway.Handle(c.Request().Context(), &req)
	if res.Success {
		return c.JSON(http.StatusOK, res.Data)
	}
	return c.JSON(res.HTTPStatus, model.ErrorBody{Error: res.Error, Details: res.Details})
}
