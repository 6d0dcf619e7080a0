package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/flowline/fileauth/internal/api/metrics"
	"github.com/flowline/fileauth/internal/core/domain"
	"github.com/flowline/fileauth/internal/core/ports"
)

// UserHandler exposes admin-only management of the users file. Every
// mutation persists immediately: one request, one atomic save.
type UserHandler struct {
	store ports.UserStore
}

func NewUserHandler(store ports.UserStore) *UserHandler {
	return &UserHandler{store: store}
}

type createUserRequest struct {
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	Role      string `json:"role" validate:"required,oneof=admin editor viewer"`
	Email     string `json:"email" validate:"omitempty,email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type updateUserRequest struct {
	Password  *string `json:"password"`
	Role      *string `json:"role" validate:"omitempty,oneof=admin editor viewer"`
	Email     *string `json:"email" validate:"omitempty,email"`
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Active    *bool   `json:"active"`
}

// List returns every user record, without password hashes.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Success      200  {array}  domain.User
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	return c.JSON(http.StatusOK, h.store.GetAllUsers())
}

// Create adds a user and persists the file.
//
// @Summary      Create a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      createUserRequest  true  "New user"
// @Success      201   {object}  domain.User
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	var req createUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.store.AddUser(domain.NewUserParams{
		Username:  req.Username,
		Password:  req.Password,
		Role:      req.Role,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		return err
	}
	if err := h.store.Save(); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, user)
}

// Update patches a user and persists the file. Absent JSON fields are
// left unchanged.
//
// @Summary      Update a user
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        username  path      string             true  "Username"
// @Param        body      body      updateUserRequest  true  "Fields to change"
// @Success      200       {object}  domain.User
// @Failure      400       {object}  map[string]string
// @Failure      404       {object}  map[string]string
// @Router       /users/{username} [patch]
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.store.UpdateUser(c.Param("username"), domain.UserPatch{
		Password:  req.Password,
		Role:      req.Role,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Active:    req.Active,
	})
	if err != nil {
		return err
	}
	if err := h.store.Save(); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Reload forces a fresh read of the users file, for operators who
// edited it out-of-band and do not want to wait for the watcher or the
// polling interval.
//
// @Summary      Reload the users file
// @Tags         users
// @Produce      json
// @Success      200  {object}  map[string]int
// @Router       /users/reload [post]
func (h *UserHandler) Reload(c echo.Context) error {
	h.store.Reload()
	count := len(h.store.GetAllUsers())
	metrics.StoreReloadsTotal.WithLabelValues("manual").Inc()
	metrics.UsersLoaded.Set(float64(count))
	return c.JSON(http.StatusOK, map[string]int{"users": count})
}

// Delete removes a user and persists the file.
//
// @Summary      Delete a user
// @Tags         users
// @Param        username  path  string  true  "Username"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Router       /users/{username} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.store.DeleteUser(c.Param("username")); err != nil {
		return err
	}
	if err := h.store.Save(); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
