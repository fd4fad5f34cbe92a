package services

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"finanzapp/internal/apperror"
	"finanzapp/internal/core"
	"finanzapp/internal/log"
	"finanzapp/internal/session"
	"finanzapp/internal/storage"
)

// UserService handles registration, login and profile updates. A
// successful register or login also starts the session.
type UserService struct {
	store    storage.Store
	sessions *session.Manager
	logger   *log.Logger
	hashCost int
}

func NewUserService(store storage.Store, sessions *session.Manager, logger *log.Logger) *UserService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &UserService{
		store:    store,
		sessions: sessions,
		logger:   logger.WithComponent(log.ComponentUser),
		hashCost: bcrypt.DefaultCost,
	}
}

// WithHashCost overrides the bcrypt cost. Tests use bcrypt.MinCost.
func (s *UserService) WithHashCost(cost int) *UserService {
	s.hashCost = cost
	return s
}

// Register creates a user and logs them in. Email is stored in its
// normalized form and must be unique case-insensitively; the password
// is stored as a bcrypt hash.
func (s *UserService) Register(ctx context.Context, u core.User, password string) (*core.User, error) {
	u.Email = core.NormalizeEmail(u.Email)
	if err := u.Validate(); err != nil {
		return nil, apperror.ValidationFailed("user", err.Error())
	}
	if u.Email == "" {
		return nil, apperror.ValidationFailed("email", "email is required")
	}
	if password == "" {
		return nil, apperror.ValidationFailed("password", "password is required")
	}

	existing, err := s.store.UserByEmail(ctx, u.Email)
	if err != nil {
		return nil, fmt.Errorf("check existing email: %w", err)
	}
	if existing != nil {
		return nil, apperror.DuplicateEmail(u.Email)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.Credential = string(hash)

	id, err := s.store.InsertUser(ctx, &u)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	u.ID = id

	if err := s.sessions.Start(ctx, &u); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	s.logger.InfoContext(ctx, "Registered user",
		log.FieldUserID, u.ID,
		log.FieldEmail, u.Email)
	return &u, nil
}

// Login checks the password against the stored hash and starts the
// session. Unknown email and wrong password fail identically.
func (s *UserService) Login(ctx context.Context, email, password string) (*core.User, error) {
	u, err := s.store.UserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u == nil || u.Credential == "" {
		return nil, apperror.ValidationFailed("credentials", "invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Credential), []byte(password)); err != nil {
		return nil, apperror.ValidationFailed("credentials", "invalid email or password")
	}

	if err := s.sessions.Start(ctx, u); err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}

	s.logger.InfoContext(ctx, "User logged in", log.FieldUserID, u.ID)
	return u, nil
}

func (s *UserService) Logout(ctx context.Context) error {
	return s.sessions.End(ctx)
}

func (s *UserService) FindByID(ctx context.Context, id int64) (*core.User, error) {
	u, err := s.store.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

func (s *UserService) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	u, err := s.store.UserByEmail(ctx, core.NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return u, nil
}

// UpdateProfile updates the logged-in user's display fields. The
// credential is kept as stored; an empty password never overwrites an
// existing hash. The snapshot row is refreshed afterwards.
func (s *UserService) UpdateProfile(ctx context.Context, u core.User) (*core.User, error) {
	current, err := s.sessions.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	u.ID = current.ID
	u.Email = current.Email
	u.Credential = current.Credential
	if err := u.Validate(); err != nil {
		return nil, apperror.ValidationFailed("user", err.Error())
	}

	if err := s.store.UpdateUser(ctx, &u); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if err := s.store.SaveSnapshot(ctx, &u); err != nil {
		return nil, fmt.Errorf("refresh snapshot: %w", err)
	}

	s.logger.InfoContext(ctx, "Updated profile", log.FieldUserID, u.ID)
	return &u, nil
}

// ChangePassword rehashes and stores a new credential for the
// logged-in user.
func (s *UserService) ChangePassword(ctx context.Context, newPassword string) error {
	if newPassword == "" {
		return apperror.ValidationFailed("password", "password is required")
	}
	current, err := s.sessions.CurrentUser(ctx)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	current.Credential = string(hash)

	if err := s.store.UpdateUser(ctx, current); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	s.logger.InfoContext(ctx, "Changed password", log.FieldUserID, current.ID)
	return nil
}
