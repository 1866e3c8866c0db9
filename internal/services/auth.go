package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"

	"github.com/HammerMeetNail/socialgraph/internal/config"
	"github.com/HammerMeetNail/socialgraph/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"

	refreshKeyPrefix = "refresh:"
)

// TokenClaims are carried by both access and refresh tokens. Type tells them
// apart so a refresh token is never accepted as a bearer credential.
type TokenClaims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type credentialLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type AuthService struct {
	users      credentialLookup
	redis      RedisClient
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	bcryptCost int
	now        func() time.Time
}

func NewAuthService(users credentialLookup, redis RedisClient, cfg config.AuthConfig) *AuthService {
	return &AuthService{
		users:      users,
		redis:      redis,
		secret:     []byte(cfg.JWTSecret),
		issuer:     cfg.Issuer,
		accessTTL:  cfg.AccessTokenTTL,
		refreshTTL: cfg.RefreshTokenTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) VerifyPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Authenticate resolves email and password to a user. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) IssueTokens(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, _, err := s.sign(user.ID, tokenTypeAccess, s.accessTTL)
	if err != nil {
		return nil, err
	}
	refresh, jti, err := s.sign(user.ID, tokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return nil, err
	}
	if err := s.redis.Set(ctx, refreshKeyPrefix+jti, user.ID.String(), s.refreshTTL); err != nil {
		return nil, fmt.Errorf("storing refresh token: %w: %w", ErrStoreUnavailable, err)
	}
	return &TokenPair{Access: access, Refresh: refresh}, nil
}

// ParseAccessToken returns the user id an access token was issued to.
func (s *AuthService) ParseAccessToken(token string) (uuid.UUID, error) {
	claims, err := s.parse(token, tokenTypeAccess)
	if err != nil {
		return uuid.Nil, err
	}
	return subjectID(claims)
}

// Refresh consumes a refresh token and issues a new pair. Each refresh token
// can be used once.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.parse(refreshToken, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	userID, err := subjectID(claims)
	if err != nil {
		return nil, err
	}

	stored, err := s.redis.GetDel(ctx, refreshKeyPrefix+claims.ID)
	if errors.Is(err, redis.Nil) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("consuming refresh token: %w: %w", ErrStoreUnavailable, err)
	}
	if stored != userID.String() {
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, ErrUserNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	return s.IssueTokens(ctx, user)
}

func (s *AuthService) sign(userID uuid.UUID, tokenType string, ttl time.Duration) (string, string, error) {
	now := s.now()
	jti := uuid.NewString()
	claims := TokenClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", "", fmt.Errorf("signing %s token: %w", tokenType, err)
	}
	return signed, jti, nil
}

func (s *AuthService) parse(token, tokenType string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Type != tokenType || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func subjectID(claims *TokenClaims) (uuid.UUID, error) {
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	return id, nil
}
