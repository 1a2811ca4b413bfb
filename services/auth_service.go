package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yeremiapane/restaurant-reservations/apperrors"
	"github.com/yeremiapane/restaurant-reservations/models"
	"github.com/yeremiapane/restaurant-reservations/utils"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or a
// wrong password alike.
var ErrInvalidCredentials = errors.New("incorrect email or password")

var (
	clientScopes = []string{"client:read", "client:write"}
	adminScopes  = []string{"client:read", "client:write", "admin:read", "admin:write"}
)

func ScopesFor(role string) []string {
	if role == models.RoleAdmin {
		return adminScopes
	}
	return clientScopes
}

type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type IssuedToken struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresAt   time.Time    `json:"expires_at"`
	User        *models.User `json:"user"`
}

type AuthService struct {
	DB     *gorm.DB
	tokens *utils.TokenManager
}

func NewAuthService(db *gorm.DB, tokens *utils.TokenManager) *AuthService {
	return &AuthService{DB: db, tokens: tokens}
}

// Register creates a client account. Admins are provisioned out of band.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.createUser(ctx, in, models.RoleClient)
}

func (s *AuthService) createUser(ctx context.Context, in RegisterInput, role string) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, apperrors.BadRequest("Email and password are required.")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:           strings.TrimSpace(in.Name),
		Email:          email,
		HashedPassword: string(hashed),
		Role:           role,
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&n).Error; err != nil {
			return fmt.Errorf("check email: %w", err)
		}
		if n > 0 {
			return apperrors.Conflict("Email already registered")
		}
		if err := tx.Create(user).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(map[string]interface{}{"user_id": user.ID, "role": role}).Info("User registered")
	return user, nil
}

func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

func (s *AuthService) IssueToken(user *models.User) (*IssuedToken, error) {
	token, expiresAt, err := s.tokens.Generate(user.ID, user.Email, user.Role, ScopesFor(user.Role))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &IssuedToken{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresAt:   expiresAt,
		User:        user,
	}, nil
}

// Login authenticates and issues a token in one step.
func (s *AuthService) Login(ctx context.Context, email, password string) (*IssuedToken, error) {
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.IssueToken(user)
}

func (s *AuthService) Me(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("User not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return &user, nil
}

// EnsureAdmin creates the admin account if the email is unused. An existing
// account with that email is left untouched.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) (*models.User, bool, error) {
	var existing models.User
	err := s.DB.WithContext(ctx).Where("email = ?", normalizeEmail(email)).First(&existing).Error
	if err == nil {
		if !existing.IsAdmin() {
			utils.ErrorLogger.WithField("user_id", existing.ID).Warn("Configured admin email belongs to a non-admin account")
		}
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("load admin: %w", err)
	}

	user, err := s.createUser(ctx, RegisterInput{Name: name, Email: email, Password: password}, models.RoleAdmin)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
