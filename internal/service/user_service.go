package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"catalog/internal/auth"
	"catalog/internal/authz"
	"catalog/internal/model"
	"catalog/internal/repository"
	"catalog/pkg/apperror"
	"catalog/pkg/optional"
)

// DTOs for Request validation
type RegisterRequest struct {
	Name                 string `json:"name" binding:"required,max=255"`
	Email                string `json:"email" binding:"required,email,max=255"`
	Password             string `json:"password" binding:"required,min=8"`
	PasswordConfirmation string `json:"password_confirmation" binding:"required,eqfield=Password"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type CreateUserRequest struct {
	Name     string   `json:"name" binding:"required,max=255"`
	Email    string   `json:"email" binding:"required,email,max=255"`
	Password string   `json:"password" binding:"required,min=8"`
	Roles    []string `json:"roles"`
}

// UpdateUserRequest applies only the fields that were sent. Roles, when
// present, replaces the full role set.
type UpdateUserRequest struct {
	Name     optional.Value[string]   `json:"name"`
	Email    optional.Value[string]   `json:"email"`
	Password optional.Value[string]   `json:"password"`
	Roles    optional.Value[[]string] `json:"roles"`
}

type RoleSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// DTO for returning User without exposing sensitive data (e.g. password)
type UserResponse struct {
	ID          uint          `json:"id"`
	Name        string        `json:"name"`
	Email       string        `json:"email"`
	Roles       []RoleSummary `json:"roles"`
	Permissions []string      `json:"permissions,omitempty"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
}

type AuthResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int64        `json:"expires_in"`
	User        UserResponse `json:"user"`
}

var errNoRegistrationRole = errors.New("registration role is not seeded")

// PermissionResolver returns the effective permissions of a user.
type PermissionResolver interface {
	PermissionsForUser(ctx context.Context, userID uint) ([]string, error)
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Logout(ctx context.Context, token *auth.Claims) error
	Profile(ctx context.Context, actor uint) (*UserResponse, error)
	ListUsers(ctx context.Context, actor uint, page, limit int) ([]UserResponse, int64, error)
	GetUser(ctx context.Context, actor, id uint) (*UserResponse, error)
	CreateUser(ctx context.Context, actor uint, req CreateUserRequest) (*UserResponse, error)
	UpdateUser(ctx context.Context, actor, id uint, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, actor, id uint) error
	EnsureUser(ctx context.Context, name, email, password, roleName string) error
}

type UserDeps struct {
	Users            repository.UserRepository
	Roles            repository.RoleRepository
	Audit            repository.AuditRepository
	Tx               repository.TransactionManager
	Authz            Authorizer
	Permissions      PermissionResolver
	Tokens           *auth.TokenIssuer
	Hasher           auth.PasswordHasher
	RegistrationRole string
	Log              *slog.Logger
}

type userService struct {
	users            repository.UserRepository
	roles            repository.RoleRepository
	audit            repository.AuditRepository
	tx               repository.TransactionManager
	authz            Authorizer
	permissions      PermissionResolver
	tokens           *auth.TokenIssuer
	hasher           auth.PasswordHasher
	registrationRole string
	log              *slog.Logger
}

// NewUserService returns a new instance of UserService
func NewUserService(d UserDeps) UserService {
	if d.Hasher == nil {
		d.Hasher = auth.BcryptHasher{}
	}
	if d.RegistrationRole == "" {
		d.RegistrationRole = model.RoleAdmin
	}
	if d.Log == nil {
		d.Log = slog.Default()
	}
	return &userService{
		users:            d.Users,
		roles:            d.Roles,
		audit:            d.Audit,
		tx:               d.Tx,
		authz:            d.Authz,
		permissions:      d.Permissions,
		tokens:           d.Tokens,
		hasher:           d.Hasher,
		registrationRole: d.RegistrationRole,
		log:              d.Log,
	}
}

// Helper: parse model to standard json API response
func toUserResponse(user *model.User) UserResponse {
	roles := make([]RoleSummary, 0, len(user.Roles))
	for _, r := range user.Roles {
		roles = append(roles, RoleSummary{ID: r.ID, Name: r.Name})
	}
	return UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Roles:     roles,
		CreatedAt: formatTime(user.CreatedAt),
		UpdatedAt: formatTime(user.UpdatedAt),
	}
}

// emailTaken reports whether email belongs to a user other than exceptID.
func (s *userService) emailTaken(ctx context.Context, email string, exceptID uint) (bool, error) {
	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if repository.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return existing.ID != exceptID, nil
}

// resolveRoles loads roles by name and rejects unknown names.
func (s *userService) resolveRoles(ctx context.Context, names []string) ([]model.Role, error) {
	if len(names) == 0 {
		return []model.Role{}, nil
	}
	roles, err := s.roles.FindByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch roles: %w", err)
	}
	found := make(map[string]bool, len(roles))
	for _, r := range roles {
		found[r.Name] = true
	}
	for _, n := range names {
		if !found[n] {
			return nil, apperror.NewValidation("roles", msgInvalid("roles"))
		}
	}
	return roles, nil
}

func (s *userService) authResponse(ctx context.Context, user *model.User) (*AuthResponse, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	res := toUserResponse(user)
	res.Permissions, err = s.permissions.PermissionsForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve permissions: %w", err)
	}

	return &AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.tokens.TTL().Seconds()),
		User:        res,
	}, nil
}

func (s *userService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if req.Password != req.PasswordConfirmation {
		return nil, apperror.NewValidation("password", "The password field confirmation does not match.")
	}

	taken, err := s.emailTaken(ctx, email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.NewConflict("email", msgTaken("email"))
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	role, err := s.roles.FindByName(ctx, s.registrationRole)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", errNoRegistrationRole, s.registrationRole)
		}
		return nil, fmt.Errorf("failed to fetch registration role: %w", err)
	}

	user := &model.User{Name: strings.TrimSpace(req.Name), Email: email, Password: hashed, Roles: []model.Role{*role}}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Create(txCtx, user); err != nil {
			if repository.IsDuplicate(err) {
				return apperror.NewConflict("email", msgTaken("email"))
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return writeAudit(txCtx, s.audit, user.ID, model.ActionCreateUser, user.ID, user.Email, map[string]string{"source": "register"})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("User registered", "user_id", user.ID, "role", role.Name)
	return s.authResponse(ctx, user)
}

func (s *userService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("invalid email or password: %w", apperror.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	if err := s.hasher.Compare(user.Password, req.Password); err != nil {
		return nil, fmt.Errorf("invalid email or password: %w", apperror.ErrUnauthorized)
	}

	return s.authResponse(ctx, user)
}

// Logout revokes the caller's access token for the rest of its lifetime.
func (s *userService) Logout(ctx context.Context, token *auth.Claims) error {
	if token == nil {
		return apperror.ErrUnauthorized
	}
	if err := s.tokens.Revoke(ctx, token); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

func (s *userService) Profile(ctx context.Context, actor uint) (*UserResponse, error) {
	if err := s.authz.Authenticate(ctx, actor); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, actor)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, apperror.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}

	res := toUserResponse(user)
	res.Permissions, err = s.permissions.PermissionsForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve permissions: %w", err)
	}
	return &res, nil
}

func (s *userService) ListUsers(ctx context.Context, actor uint, page, limit int) ([]UserResponse, int64, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionViewUsers); err != nil {
		return nil, 0, err
	}

	users, total, err := s.users.List(ctx, (page-1)*limit, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}

	res := make([]UserResponse, 0, len(users))
	for i := range users {
		res = append(res, toUserResponse(&users[i]))
	}
	return res, total, nil
}

func (s *userService) GetUser(ctx context.Context, actor, id uint) (*UserResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionViewUsers); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}
	res := toUserResponse(user)
	return &res, nil
}

func (s *userService) CreateUser(ctx context.Context, actor uint, req CreateUserRequest) (*UserResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionCreateUsers); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	taken, err := s.emailTaken(ctx, email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperror.NewConflict("email", msgTaken("email"))
	}

	roles, err := s.resolveRoles(ctx, req.Roles)
	if err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizeRoleGrant(ctx, actor, req.Roles); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &model.User{Name: strings.TrimSpace(req.Name), Email: email, Password: hashed, Roles: roles}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Create(txCtx, user); err != nil {
			if repository.IsDuplicate(err) {
				return apperror.NewConflict("email", msgTaken("email"))
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionCreateUser, user.ID, user.Email,
			map[string]interface{}{"name": user.Name, "email": user.Email, "roles": req.Roles})
	})
	if err != nil {
		return nil, err
	}

	res := toUserResponse(user)
	return &res, nil
}

func (s *userService) UpdateUser(ctx context.Context, actor, id uint, req UpdateUserRequest) (*UserResponse, error) {
	if err := s.authz.Authorize(ctx, actor, authz.ActionManageUsers); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "user")
	}

	ve := &apperror.ValidationError{}
	if req.Name.IsSet() {
		name, _ := req.Name.Get()
		switch {
		case strings.TrimSpace(name) == "":
			ve.Add("name", msgRequired("name"))
		case len(name) > 255:
			ve.Add("name", msgMax("name", 255))
		default:
			user.Name = strings.TrimSpace(name)
		}
	}
	if req.Email.IsSet() {
		email, _ := req.Email.Get()
		email = strings.ToLower(strings.TrimSpace(email))
		if err := validate.Var(email, "required,email,max=255"); err != nil {
			ve.Add("email", "The email field must be a valid email address.")
		} else {
			user.Email = email
		}
	}
	if req.Password.IsSet() {
		password, _ := req.Password.Get()
		if len(password) < 8 {
			ve.Add("password", "The password field must be at least 8 characters.")
		} else if user.Password, err = s.hasher.Hash(password); err != nil {
			return nil, err
		}
	}
	if err := ve.OrNil(); err != nil {
		return nil, err
	}

	if req.Email.IsSet() {
		taken, err := s.emailTaken(ctx, user.Email, user.ID)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, apperror.NewConflict("email", msgTaken("email"))
		}
	}

	var roles []model.Role
	roleNames, syncRoles := req.Roles.Get()
	if req.Roles.IsNull() {
		syncRoles = true
	}
	if syncRoles {
		if roles, err = s.resolveRoles(ctx, roleNames); err != nil {
			return nil, err
		}
		if err := s.authz.AuthorizeRoleGrant(ctx, actor, roleNames); err != nil {
			return nil, err
		}
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Update(txCtx, user); err != nil {
			if repository.IsDuplicate(err) {
				return apperror.NewConflict("email", msgTaken("email"))
			}
			return fmt.Errorf("failed to update user: %w", err)
		}
		if syncRoles {
			if err := s.users.ReplaceRoles(txCtx, user, roles); err != nil {
				return fmt.Errorf("failed to sync roles: %w", err)
			}
			user.Roles = roles
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionUpdateUser, user.ID, user.Email,
			map[string]interface{}{"name": req.Name, "email": req.Email, "roles": req.Roles})
	})
	if err != nil {
		return nil, err
	}

	res := toUserResponse(user)
	return &res, nil
}

// DeleteUser removes another user. Callers can never delete themselves.
func (s *userService) DeleteUser(ctx context.Context, actor, id uint) error {
	if err := s.authz.Authorize(ctx, actor, authz.ActionDeleteUsers); err != nil {
		return err
	}
	if actor == id {
		return fmt.Errorf("you cannot delete your own account: %w", apperror.ErrForbidden)
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "user")
	}

	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Delete(txCtx, user); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return writeAudit(txCtx, s.audit, actor, model.ActionDeleteUser, user.ID, user.Email, map[string]uint{"deleted_id": id})
	})
}

// EnsureUser creates an account with roleName unless the email is already
// registered. Used for bootstrap accounts on start.
func (s *userService) EnsureUser(ctx context.Context, name, email, password, roleName string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	taken, err := s.emailTaken(ctx, email, 0)
	if err != nil || taken {
		return err
	}

	role, err := s.roles.FindByName(ctx, roleName)
	if err != nil {
		return fmt.Errorf("failed to fetch role '%s': %w", roleName, err)
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}

	user := &model.User{Name: name, Email: email, Password: hashed, Roles: []model.Role{*role}}
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.users.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return writeAudit(txCtx, s.audit, 0, model.ActionCreateUser, user.ID, user.Email, map[string]string{"source": "bootstrap", "role": roleName})
	})
	if err != nil {
		return err
	}

	s.log.Info("Bootstrap user created", "email", email, "role", roleName)
	return nil
}
