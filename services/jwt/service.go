package jwt

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/logging"
)

var (
	ErrInvalidToken     = apperr.Unauthorized("invalid JWT token")
	ErrExpiredToken     = apperr.Unauthorized("JWT token has expired")
	ErrMalformedToken   = apperr.Unauthorized("malformed JWT token")
	ErrInvalidSignature = apperr.Unauthorized("invalid JWT token signature")
	ErrTokenRevoked     = apperr.Unauthorized("JWT token has been revoked")
)

type Claims struct {
	UserID uint      `json:"user_id"`
	Role   auth.Role `json:"role"`
	JTI    string    `json:"jti"`
	jwt.RegisteredClaims
}

type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type Service struct {
	config      *config.Config
	clock       clockwork.Clock
	logger      *logging.Service
	revocations RevocationChecker
	method      jwt.SigningMethod
}

func NewService(cfg *config.Config, clock clockwork.Clock, logger *logging.Service, revocations RevocationChecker) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	method := jwt.GetSigningMethod(cfg.JWT.Algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		method = jwt.SigningMethodHS256
	}
	return &Service{
		config:      cfg,
		clock:       clock,
		logger:      logger.Named("jwt"),
		revocations: revocations,
		method:      method,
	}
}

func (s *Service) GetAccessExpirySeconds() int {
	return int(s.config.JWT.AccessExpiry.Seconds())
}

func (s *Service) GenerateToken(user *auth.User) (string, error) {
	now := s.clock.Now()
	jti := uuid.New().String()
	claims := Claims{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    jti,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.config.JWT.Issuer,
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Audience:  []string{s.config.JWT.Issuer},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.JWT.AccessExpiry)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(s.method, claims)
	tokenString, err := token.SignedString([]byte(s.config.JWT.SecretKey))
	if err != nil {
		s.logger.Error("failed to sign JWT token", zap.Error(err))
		return "", fmt.Errorf("failed to generate JWT token: %w", err)
	}

	return tokenString, nil
}

func (s *Service) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() == "none" {
			return nil, errors.New("'none' algorithm is not allowed")
		}
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid algorithm family: %v", token.Header["alg"])
		}
		return []byte(s.config.JWT.SecretKey), nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithIssuer(s.config.JWT.Issuer),
		jwt.WithAudience(s.config.JWT.Issuer),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		s.logger.Debug("JWT token validation failed", zap.Error(err))

		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpiredToken
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformedToken
		case errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidToken
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.JTI == "" {
		return nil, ErrInvalidToken
	}

	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.JTI)
		if err != nil {
			s.logger.Error("failed to check token revocation status", zap.Error(err))
			return nil, fmt.Errorf("failed to check token revocation: %w", err)
		}
		if revoked {
			s.logger.Warn("revoked token presented", zap.String("jti", claims.JTI))
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}
