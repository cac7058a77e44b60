package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/padraicbc/demoapi/service"
)

type credentials struct {
	EmailOrUsername string `json:"emailOrUsername" validate:"required"`
	Password        string `json:"password" validate:"required"`
}

// Authenticate checks credentials and returns a token.
func (h *Handler) Authenticate(c echo.Context) error {
	var creds credentials
	if err := bindAndValidate(c, &creds); err != nil {
		return err
	}

	tok, err := h.users.Authenticate(c.Request().Context(), service.Credentials{
		EmailOrUsername: creds.EmailOrUsername,
		Password:        creds.Password,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]string{"token": tok})
}
