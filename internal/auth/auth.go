package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/frahmantamala/research-vault/internal/user"
)

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenGenerator creates and validates signed tokens.
type TokenGenerator interface {
	GenerateAccessToken(userID string, email string) (string, error)
	GenerateRefreshToken(userID string, email string) (string, error)
	ValidateToken(tokenString string, tokenType TokenType) (*Claims, error)
}

// Repository is the credential store behind registration and login.
type Repository interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByID(ctx context.Context, userID string) (*user.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

type ServiceAPI interface {
	Register(ctx context.Context, dto RegisterDTO) (*AuthResult, error)
	Authenticate(ctx context.Context, dto LoginDTO) (*AuthResult, error)
	RefreshTokens(ctx context.Context, refreshToken string) (*AuthResult, error)
	ValidateAccessToken(tokenString string) (*Claims, error)
}

type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type AuthResult struct {
	User *user.User `json:"user"`
	AuthTokens
}

// Claims represents JWT token claims
type Claims struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

type JWTTokenGenerator struct {
	AccessTokenSecret  []byte
	RefreshTokenSecret []byte
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	Issuer             string
}
