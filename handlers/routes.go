package handlers

import (
	"github.com/labstack/echo/v4"

	mw "github.com/padraicbc/demoapi/middleware"
)

// Mount registers the API routes on g. auth must authenticate the request
// and leave its claims in the context.
func (h *Handler) Mount(g *echo.Group, auth echo.MiddlewareFunc) {
	// Public
	g.POST("/users", h.Register)
	g.POST("/auth", h.Authenticate)

	users := g.Group("/users", auth)
	users.GET("/me", h.Me)
	users.GET("", h.ListUsers, mw.Admin())
	users.GET("/:id", h.GetUser, mw.Admin())
	users.PUT("/:id", h.UpdateUser)
	users.DELETE("/:id", h.DeleteUser, mw.Superadmin())

	demos := g.Group("/demos", auth)
	demos.POST("", h.UploadDemos)
	demos.GET("", h.ListDemos)
}
