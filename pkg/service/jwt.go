package service

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	apperrors "freight-portal/pkg/errors"
	"freight-portal/pkg/types"
)

// JwtCustomClaim — сессия портала, выданная сервисом входа.
type JwtCustomClaim struct {
	UserID      uint64 `json:"userId"`
	CompanyID   uint64 `json:"companyId"`
	CompanyName string `json:"companyName"`
	Language    string `json:"language"`
	jwt.RegisteredClaims
}

// Session переводит claims в контекст сессии.
func (c *JwtCustomClaim) Session() types.Session {
	return types.Session{
		UserID:      c.UserID,
		CompanyID:   c.CompanyID,
		CompanyName: c.CompanyName,
		Language:    c.Language,
	}
}

type JWTService interface {
	GenerateToken(session types.Session) (string, error)
	ValidateToken(tokenString string) (*JwtCustomClaim, error)
}

type jwtService struct {
	SecretKey string
	TokenExp  time.Duration
}

func NewJWTService(secretKey string, tokenExp time.Duration) JWTService {
	return &jwtService{
		SecretKey: secretKey,
		TokenExp:  tokenExp,
	}
}

// GenerateToken нужен локальному запуску и тестам: в бою токен выдаёт портал.
func (service *jwtService) GenerateToken(session types.Session) (string, error) {
	now := time.Now()
	claims := &JwtCustomClaim{
		UserID:      session.UserID,
		CompanyID:   session.CompanyID,
		CompanyName: session.CompanyName,
		Language:    session.Language,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(service.TokenExp)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	return token.SignedString([]byte(service.SecretKey))
}

func (service *jwtService) ValidateToken(tokenString string) (*JwtCustomClaim, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaim{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrInvalidSigningMethod
		}
		return []byte(service.SecretKey), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	claims, ok := token.Claims.(*JwtCustomClaim)
	if !ok || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}
	if claims.UserID == 0 || claims.CompanyID == 0 {
		return nil, apperrors.ErrInvalidToken
	}
	return claims, nil
}
