package auth

import (
	"errors"
	"time"

	"fyp-portal/internal/models"

	jwt "github.com/golang-jwt/jwt/v5"
)

type JWTClaims struct {
	UserID     string          `json:"ui"`
	Role       models.UserRole `json:"rl"`
	University string          `json:"un,omitempty"`
	Company    string          `json:"co,omitempty"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
}

func NewTokenManager(secretKey string, ttl time.Duration) *TokenManager {
	return &TokenManager{secretKey: []byte(secretKey), ttl: ttl}
}

// CreateToken issues an access token carrying the actor identity.
func (tm *TokenManager) CreateToken(actor models.Actor) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		UserID:     actor.ID,
		Role:       actor.Role,
		University: actor.University,
		Company:    actor.Company,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

func (tm *TokenManager) CheckToken(requestToken string) (models.Actor, error) {
	claims := JWTClaims{}
	_, err := jwt.ParseWithClaims(requestToken, &claims, func(_ *jwt.Token) (any, error) {
		return tm.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Actor{}, err
	}
	if claims.UserID == "" || !claims.Role.Valid() {
		return models.Actor{}, errors.New("token carries no identity")
	}
	return models.Actor{
		ID:         claims.UserID,
		Role:       claims.Role,
		University: claims.University,
		Company:    claims.Company,
	}, nil
}
