package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/padraicbc/demoapi/models"
	"github.com/padraicbc/demoapi/password"
	"github.com/padraicbc/demoapi/store"
	"github.com/padraicbc/demoapi/token"
)

// UserStore is the persistence UserService needs.
type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	Exists(ctx context.Context, username, email string) (bool, error)
	FindByIdentifier(ctx context.Context, value string) ([]models.User, error)
	ByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, f store.UserFilter) ([]models.User, error)
	Update(ctx context.Context, id int64, u *models.User, columns []string) (*models.User, error)
	Delete(ctx context.Context, id int64) error
}

// TokenIssuer signs auth tokens.
type TokenIssuer interface {
	Issue(claims token.Claims) (string, error)
}

// NewUser is a registration request.
type NewUser struct {
	Username string
	Email    string
	Password string
}

// Credentials identify a user by username or email.
type Credentials struct {
	EmailOrUsername string
	Password        string
}

// UserPatch is a partial update; nil fields are left alone.
type UserPatch struct {
	Username   *string
	Email      *string
	Password   *string
	Admin      *bool
	Superadmin *bool
	Banned     *bool
}

// UserService owns the account lifecycle and its authorization rules.
//
// Uniqueness checks and the writes that follow them are separate
// statements, so two concurrent registrations of the same name can both
// pass the check; the unique constraints then fail one of them as a
// storage error.
type UserService struct {
	log    *zap.Logger
	users  UserStore
	tokens TokenIssuer
}

// NewUserService wires a UserService.
func NewUserService(log *zap.Logger, users UserStore, tokens TokenIssuer) *UserService {
	return &UserService{log: log, users: users, tokens: tokens}
}

// Create registers a user with all role and ban flags false and returns the
// stored user (password cleared) with a fresh token.
func (s *UserService) Create(ctx context.Context, nu NewUser) (*models.User, string, error) {
	const op = "service.UserService.Create"
	log := s.log.With(zap.String("op", op))

	if nu.Username == "" || nu.Email == "" || nu.Password == "" {
		return nil, "", fmt.Errorf("%s: %w: username, email and password are required", op, ErrValidation)
	}

	exists, err := s.users.Exists(ctx, nu.Username, nu.Email)
	if err != nil {
		log.Error("checking existing user", zap.Error(err))
		return nil, "", storageErr(op, err)
	}
	if exists {
		log.Info("user exists", zap.String("username", nu.Username))
		return nil, "", fmt.Errorf("%s: %w", op, ErrUserExists)
	}

	hash, err := password.Hash(nu.Password)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	u := &models.User{
		Username: nu.Username,
		Email:    nu.Email,
		Password: hash,
	}
	if err := s.users.Create(ctx, u); err != nil {
		log.Error("saving user", zap.Error(err))
		return nil, "", storageErr(op, err)
	}

	tok, err := s.tokens.Issue(claimsOf(u))
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user registered", zap.Int64("id", u.ID))
	u.Password = ""
	return u, tok, nil
}

// Authenticate checks credentials and returns a token for the stored identity.
// The banned flag is not consulted.
func (s *UserService) Authenticate(ctx context.Context, c Credentials) (string, error) {
	const op = "service.UserService.Authenticate"
	log := s.log.With(zap.String("op", op))

	if c.EmailOrUsername == "" || c.Password == "" {
		return "", fmt.Errorf("%s: %w: credentials are required", op, ErrValidation)
	}

	candidates, err := s.users.FindByIdentifier(ctx, c.EmailOrUsername)
	if err != nil {
		log.Error("looking up user", zap.Error(err))
		return "", storageErr(op, err)
	}
	if len(candidates) == 0 {
		log.Info("user not found")
		return "", fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}

	// One user's username can equal another's email, so try each match.
	for i := range candidates {
		u := &candidates[i]
		ok, err := password.Verify(u.Password, c.Password)
		if err != nil {
			log.Error("unusable stored password", zap.Int64("id", u.ID), zap.Error(err))
			continue
		}
		if !ok {
			continue
		}

		tok, err := s.tokens.Issue(claimsOf(u))
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}
		return tok, nil
	}

	log.Info("invalid password")
	return "", fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
}

// ByID returns a user with the password cleared.
func (s *UserService) ByID(ctx context.Context, id int64) (*models.User, error) {
	const op = "service.UserService.ByID"

	u, err := s.byID(ctx, op, id)
	if err != nil {
		return nil, err
	}
	u.Password = ""
	return u, nil
}

// List returns a page of users ordered by id, passwords cleared.
func (s *UserService) List(ctx context.Context, f store.UserFilter) ([]models.User, error) {
	const op = "service.UserService.List"

	users, err := s.users.List(ctx, f)
	if err != nil {
		s.log.Error("listing users", zap.String("op", op), zap.Error(err))
		return nil, storageErr(op, err)
	}
	for i := range users {
		users[i].Password = ""
	}
	return users, nil
}

// Delete removes a user.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	const op = "service.UserService.Delete"

	if err := s.users.Delete(ctx, id); err != nil {
		return s.writeErr(op, id, err)
	}
	s.log.Info("user deleted", zap.String("op", op), zap.Int64("id", id))
	return nil
}

// IsSuperAdmin reports the superadmin flag of a user.
func (s *UserService) IsSuperAdmin(ctx context.Context, id int64) (bool, error) {
	const op = "service.UserService.IsSuperAdmin"

	u, err := s.byID(ctx, op, id)
	if err != nil {
		return false, err
	}
	return u.Superadmin, nil
}

// Update applies patch to user id on behalf of requester.
//
// A superadmin can only be changed by themself; that check wins over every
// other outcome. Username and email must not belong to another user. A
// requester's own banned flag and, for non-superadmins, the role flags are
// dropped from the patch without error.
func (s *UserService) Update(ctx context.Context, id int64, patch UserPatch, requester token.Claims) (*models.User, error) {
	const op = "service.UserService.Update"
	log := s.log.With(zap.String("op", op), zap.Int64("id", id), zap.Int64("requester", requester.ID))

	super, err := s.IsSuperAdmin(ctx, id)
	if err != nil {
		return nil, err
	}
	if super && requester.ID != id {
		log.Warn("superadmin edit by another user")
		return nil, fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	for _, v := range []*string{patch.Username, patch.Email} {
		if v == nil {
			continue
		}
		taken, err := s.takenByOther(ctx, *v, id)
		if err != nil {
			log.Error("checking collision", zap.Error(err))
			return nil, storageErr(op, err)
		}
		if taken {
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
	}

	if id == requester.ID {
		patch.Banned = nil
	}
	if !requester.Superadmin {
		patch.Admin = nil
		patch.Superadmin = nil
	}

	u := &models.User{}
	var columns []string
	if patch.Username != nil {
		u.Username = *patch.Username
		columns = append(columns, "username")
	}
	if patch.Email != nil {
		u.Email = *patch.Email
		columns = append(columns, "email")
	}
	if patch.Password != nil {
		hash, err := password.Hash(*patch.Password)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %w", op, ErrValidation, err)
		}
		u.Password = hash
		columns = append(columns, "password")
	}
	if patch.Admin != nil {
		u.Admin = *patch.Admin
		columns = append(columns, "admin")
	}
	if patch.Superadmin != nil {
		u.Superadmin = *patch.Superadmin
		columns = append(columns, "superadmin")
	}
	if patch.Banned != nil {
		u.Banned = *patch.Banned
		columns = append(columns, "banned")
	}

	updated, err := s.users.Update(ctx, id, u, columns)
	if err != nil {
		return nil, s.writeErr(op, id, err)
	}

	log.Info("user updated", zap.Strings("columns", columns))
	updated.Password = ""
	return updated, nil
}

// CheckClaims rejects token claims that no longer match the stored user.
func (s *UserService) CheckClaims(ctx context.Context, claims token.Claims) error {
	const op = "service.UserService.CheckClaims"

	u, err := s.byID(ctx, op, claims.ID)
	if err != nil {
		return err
	}
	if claimsOf(u) != claims {
		s.log.Info("stale token claims", zap.String("op", op), zap.Int64("id", claims.ID))
		return fmt.Errorf("%s: %w", op, ErrStaleCredentials)
	}
	return nil
}

func (s *UserService) byID(ctx context.Context, op string, id int64) (*models.User, error) {
	u, err := s.users.ByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		s.log.Error("fetching user", zap.String("op", op), zap.Int64("id", id), zap.Error(err))
		return nil, storageErr(op, err)
	}
	return u, nil
}

func (s *UserService) takenByOther(ctx context.Context, value string, id int64) (bool, error) {
	matches, err := s.users.FindByIdentifier(ctx, value)
	if err != nil {
		return false, err
	}
	for _, m := range matches {
		if m.ID != id {
			return true, nil
		}
	}
	return false, nil
}

// writeErr translates a single-row write failure.
func (s *UserService) writeErr(op string, id int64, err error) error {
	var rae *store.RowsAffectedError
	if errors.As(err, &rae) {
		if rae.Affected == 0 {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		s.log.Error("single-row write affected several rows",
			zap.String("op", op), zap.Int64("id", id), zap.Int64("affected", rae.Affected))
		return fmt.Errorf("%s: %w: %w", op, ErrTooManyRowsAffected, err)
	}
	s.log.Error("writing user", zap.String("op", op), zap.Int64("id", id), zap.Error(err))
	return storageErr(op, err)
}

func claimsOf(u *models.User) token.Claims {
	return token.Claims{ID: u.ID, Admin: u.Admin, Superadmin: u.Superadmin}
}
