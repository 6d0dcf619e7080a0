package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flowline/fileauth/internal/core/ports"
)

// HealthHandler handles the GET /health liveness probe. Reports the
// process alive along with the current user count, which doubles as a
// cheap signal that the backing file loaded.
type HealthHandler struct {
	store ports.UserStore
}

func NewHealthHandler(store ports.UserStore) *HealthHandler {
	return &HealthHandler{store: store}
}

type healthResponse struct {
	Status string `json:"status"`
	Users  int    `json:"users"`
}

func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{
		Status: "ok",
		Users:  len(h.store.GetAllUsers()),
	})
}
