package service

import (
	"context"
	"errors"

	"inventory-service/internal/auth"
	"inventory-service/internal/models"
	"inventory-service/internal/store"
	"inventory-service/internal/util"

	"go.uber.org/zap"
)

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// AuthService handles registration and login.
type AuthService struct {
	store      UserStore
	tokens     *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(store UserStore, tokens *auth.TokenManager, bcryptCost int) *AuthService {
	return &AuthService{
		store:      store,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		logger:     util.GetLogger(),
	}
}

// RegisterRequest represents a registration request
type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     string `json:"role"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse carries an issued bearer token
type TokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

// Register creates a user account and issues a token
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*TokenResponse, error) {
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return nil, validationError("name, email and password are required")
	}

	role := req.Role
	if role == "" {
		role = models.RoleStaff
	}
	switch role {
	case models.RoleAdmin, models.RoleWarehouseManager, models.RoleStaff:
	default:
		return nil, validationError("unknown role %q", role)
	}

	existing, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, store.ErrNoRows) {
		return nil, unavailableError("failed to check existing user", err)
	}
	if existing != nil {
		return nil, validationError("user already exists")
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, unavailableError("failed to hash password", err)
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, unavailableError("failed to create user", err)
	}

	token, err := s.tokens.Mint(user.ID, user.Role)
	if err != nil {
		return nil, unavailableError("failed to issue token", err)
	}

	s.logger.Info("User registered", zap.Int64("user_id", user.ID), zap.String("role", user.Role))
	return &TokenResponse{Message: "User created successfully", Token: token}, nil
}

// Login verifies credentials and issues a token
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*TokenResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, validationError("email and password are required")
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return nil, notFoundError("user not found")
		}
		return nil, unavailableError("failed to load user", err)
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, validationError("invalid credentials")
	}

	token, err := s.tokens.Mint(user.ID, user.Role)
	if err != nil {
		return nil, unavailableError("failed to issue token", err)
	}

	return &TokenResponse{Message: "Login successful", Token: token}, nil
}

// ResolveIdentity loads the identity for a verified token's claims. The
// account is re-read so role changes take effect before token expiry.
func (s *AuthService) ResolveIdentity(ctx context.Context, claims *auth.Claims) (models.Identity, error) {
	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNoRows) {
			return models.Identity{}, notFoundError("user %d not found", claims.UserID)
		}
		return models.Identity{}, unavailableError("failed to load user", err)
	}
	return models.Identity{ID: user.ID, Role: user.Role}, nil
}
