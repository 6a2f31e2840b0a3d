package auth

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"thesis-portal/internal/config"
	"thesis-portal/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// JWTClaims represents the claims in a JWT token
type JWTClaims struct {
	UserID uint        `json:"user_id"`
	Role   models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and verifies access tokens and password hashes
type Service struct {
	privateKey    *ecdsa.PrivateKey
	publicKey     *ecdsa.PublicKey
	jwtExpiration time.Duration
}

// NewService creates a new authentication service
func NewService(cfg *config.JWTConfig) *Service {
	privateKey, publicKey := loadOrGenerateKeys(cfg.Secret)
	return &Service{
		privateKey:    privateKey,
		publicKey:     publicKey,
		jwtExpiration: cfg.Expiration,
	}
}

// HashPassword hashes a password using bcrypt
func (s *Service) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// VerifyPassword verifies a password against a hash
func (s *Service) VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// GenerateToken signs an access token for the user. The returned jti identifies
// the session the token belongs to.
func (s *Service) GenerateToken(userID uint, role models.Role) (token, jti string, expiresAt time.Time, err error) {
	now := time.Now()
	jti = uuid.NewString()
	expiresAt = now.Add(s.jwtExpiration)

	claims := JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   fmt.Sprint(userID),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token, err = jwt.NewWithClaims(jwt.SigningMethodES256, claims).SignedString(s.privateKey)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, jti, expiresAt, nil
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.publicKey, nil
	})
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrExpiredToken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.ID == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// ExtractJTI extracts the JTI from a token without validating signature or expiration.
// Logout uses it so that expired tokens can still end their session.
func (s *Service) ExtractJTI(tokenString string) (string, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	token, _, err := parser.ParseUnverified(tokenString, &JWTClaims{})
	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || claims.ID == "" {
		return "", ErrInvalidToken
	}
	return claims.ID, nil
}

// loadOrGenerateKeys loads ECDSA keys from secret or generates new ones
func loadOrGenerateKeys(secret string) (*ecdsa.PrivateKey, *ecdsa.PublicKey) {
	if block, _ := pem.Decode([]byte(secret)); block != nil {
		if privateKey, err := x509.ParseECPrivateKey(block.Bytes); err == nil {
			return privateKey, &privateKey.PublicKey
		}
	}

	// Tokens signed with a generated key do not survive a restart
	slog.Warn("JWT_SECRET is not a PEM encoded EC private key, generating an ephemeral signing key")
	privateKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ECDSA key: %v", err))
	}
	return privateKey, &privateKey.PublicKey
}
