package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/lumichat/backend/internal/model/admin"
)

var (
	ErrEmailTaken      = errors.New("email already registered")
	ErrBadCredentials  = errors.New("invalid email or password")
	ErrInvalidToken    = errors.New("invalid token")
	ErrMissingPassword = errors.New("email and password are required")
)

// Claims identify the admin a verified token belongs to.
type Claims struct {
	AdminID string
	Email   string
}

// Service issues and validates admin credentials. It backs the
// dashboard login flow and authorizes admin-attributed hub events.
type Service struct {
	db       *gorm.DB
	secret   []byte
	tokenTTL time.Duration
}

// NewService wraps the database handle with the signing secret.
func NewService(db *gorm.DB, secret string, tokenTTL time.Duration) *Service {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &Service{db: db, secret: []byte(secret), tokenTTL: tokenTTL}
}

// Register creates an admin account and returns a signed token.
func (s *Service) Register(ctx context.Context, email, password, fullName string) (admin.Admin, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return admin.Admin{}, "", ErrMissingPassword
	}

	var existing admin.Admin
	err := s.db.WithContext(ctx).First(&existing, "email = ?", email).Error
	if err == nil {
		return admin.Admin{}, "", ErrEmailTaken
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return admin.Admin{}, "", err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return admin.Admin{}, "", err
	}

	account := admin.Admin{
		ID:           uuid.NewString(),
		Email:        email,
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&account).Error; err != nil {
		return admin.Admin{}, "", err
	}

	token, err := s.issueToken(account)
	if err != nil {
		return admin.Admin{}, "", err
	}
	return account, token, nil
}

// Login verifies credentials and returns the account with a fresh
// token.
func (s *Service) Login(ctx context.Context, email, password string) (admin.Admin, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return admin.Admin{}, "", ErrBadCredentials
	}

	var account admin.Admin
	if err := s.db.WithContext(ctx).First(&account, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return admin.Admin{}, "", ErrBadCredentials
		}
		return admin.Admin{}, "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return admin.Admin{}, "", ErrBadCredentials
	}

	token, err := s.issueToken(account)
	if err != nil {
		return admin.Admin{}, "", err
	}
	return account, token, nil
}

func (s *Service) issueToken(account admin.Admin) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   account.ID,
		"email": account.Email,
		"role":  "admin",
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// VerifyToken validates a bearer token and extracts its claims.
func (s *Service) VerifyToken(tokenString string) (Claims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Claims{}, ErrInvalidToken
	}
	sub, _ := mapClaims["sub"].(string)
	email, _ := mapClaims["email"].(string)
	if sub == "" {
		return Claims{}, ErrInvalidToken
	}
	return Claims{AdminID: sub, Email: email}, nil
}
