package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	mw "github.com/padraicbc/demoapi/middleware"
	"github.com/padraicbc/demoapi/models"
	"github.com/padraicbc/demoapi/service"
	"github.com/padraicbc/demoapi/store"
	"github.com/padraicbc/demoapi/token"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=256"`
}

type updateRequest struct {
	Username   *string `json:"username" validate:"omitnil,min=1,max=64"`
	Email      *string `json:"email" validate:"omitnil,email"`
	Password   *string `json:"password" validate:"omitnil,min=8,max=256"`
	Admin      *bool   `json:"admin"`
	Superadmin *bool   `json:"superadmin"`
	Banned     *bool   `json:"banned"`
}

// Register creates an account and returns it with its token in the
// x-auth-token response header.
func (h *Handler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	u, tok, err := h.users.Create(c.Request().Context(), service.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	c.Response().Header().Set(mw.TokenHeader, tok)
	return c.JSON(http.StatusOK, u)
}

// Me returns the authenticated user.
func (h *Handler) Me(c echo.Context) error {
	claims, err := requester(c)
	if err != nil {
		return err
	}

	u, err := h.users.ByID(c.Request().Context(), claims.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// ListUsers returns users, optionally filtered by a username fragment and paged.
func (h *Handler) ListUsers(c echo.Context) error {
	var f store.UserFilter
	err := echo.QueryParamsBinder(c).
		String("username", &f.UsernameContains).
		Int("page", &f.Page).
		Int("pageSize", &f.PageSize).
		BindError()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "error_validation").SetInternal(err)
	}
	if f.Page < 0 || f.PageSize < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "error_validation")
	}

	users, err := h.users.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	if users == nil {
		users = []models.User{}
	}
	return c.JSON(http.StatusOK, users)
}

// GetUser returns a single user by id.
func (h *Handler) GetUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	u, err := h.users.ByID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateUser applies a partial update. Only the user themself or an admin
// may call it; the service decides which fields actually change.
func (h *Handler) UpdateUser(c echo.Context) error {
	claims, err := requester(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if claims.ID != id && !claims.Admin && !claims.Superadmin {
		return echo.NewHTTPError(http.StatusForbidden, "error_access_denied")
	}

	var req updateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	u, err := h.users.Update(c.Request().Context(), id, service.UserPatch{
		Username:   req.Username,
		Email:      req.Email,
		Password:   req.Password,
		Admin:      req.Admin,
		Superadmin: req.Superadmin,
		Banned:     req.Banned,
	}, claims)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, u)
}

// DeleteUser removes a user by id.
func (h *Handler) DeleteUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.users.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "error_validation").SetInternal(err)
	}
	return c.Validate(req)
}

func pathID(c echo.Context) (int64, error) {
	var id int64
	err := echo.PathParamsBinder(c).MustInt64("id", &id).BindError()
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "error_validation")
	}
	return id, nil
}

func requester(c echo.Context) (token.Claims, error) {
	claims, ok := mw.ClaimsFrom(c)
	if !ok {
		return token.Claims{}, echo.NewHTTPError(http.StatusUnauthorized, "error_no_token")
	}
	return claims, nil
}
