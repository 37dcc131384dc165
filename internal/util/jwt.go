package util

import (
	"coursehub_backend/internal/model"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

type Claims struct {
	UserID      string         `json:"user_id"`
	Role        model.UserRole `json:"role"`
	Email       string         `json:"email"`
	PinVerified bool           `json:"pin_verified,omitempty"`
	jwt.RegisteredClaims
}

func GenerateJWT(userID, email string, role model.UserRole, secret string, expiration time.Duration) (string, error) {
	return signClaims(&Claims{
		UserID: userID,
		Role:   role,
		Email:  email,
	}, secret, expiration)
}

// GeneratePinJWT 管理员 PIN 校验通过后签发的短期令牌
func GeneratePinJWT(claims *Claims, secret string, expiration time.Duration) (string, error) {
	return signClaims(&Claims{
		UserID:      claims.UserID,
		Role:        claims.Role,
		Email:       claims.Email,
		PinVerified: true,
	}, secret, expiration)
}

func signClaims(claims *Claims, secret string, expiration time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiration)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func ParseJWT(tokenString, secret string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

func GetUserFromContext(c *gin.Context) *Claims {
	user, exists := c.Get("user")
	if !exists {
		return nil
	}
	claims, ok := user.(*Claims)
	if !ok {
		return nil
	}
	return claims
}
