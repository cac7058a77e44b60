package handlers

import (
	"context"
	"io"

	"github.com/padraicbc/demoapi/models"
	"github.com/padraicbc/demoapi/service"
	"github.com/padraicbc/demoapi/store"
	"github.com/padraicbc/demoapi/token"
)

// UserService is the account API the handlers call.
type UserService interface {
	Create(ctx context.Context, nu service.NewUser) (*models.User, string, error)
	Authenticate(ctx context.Context, c service.Credentials) (string, error)
	ByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, f store.UserFilter) ([]models.User, error)
	Update(ctx context.Context, id int64, patch service.UserPatch, requester token.Claims) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

// DemoService is the demo API the handlers call.
type DemoService interface {
	Upload(ctx context.Context, userID int64, uploads []service.UploadedFile) ([]string, error)
	List(ctx context.Context, userID int64) ([]models.Demo, error)
}

// TempStore holds incoming uploads until the demo service has seen them.
type TempStore interface {
	SaveTemp(userID int64, name string, r io.Reader) (string, error)
	Discard(paths ...string) error
}

// UploadLimits are the checks a demo file must pass before it is accepted.
type UploadLimits struct {
	Extensions  []string
	MaxFileSize int64
	MaxFiles    int
}

// Handler holds shared dependencies used by all route handlers.
type Handler struct {
	users  UserService
	demos  DemoService
	temp   TempStore
	limits UploadLimits
}

// New creates a Handler.
func New(users UserService, demos DemoService, temp TempStore, limits UploadLimits) *Handler {
	return &Handler{users: users, demos: demos, temp: temp, limits: limits}
}
