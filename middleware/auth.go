package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"sitesafe-api/config"
	"sitesafe-api/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by AuthMiddleware.
const (
	ContextUserID   = "userID"
	ContextEmail    = "email"
	ContextUserType = "userType"
)

type Claims struct {
	UserID   int    `json:"user_id"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`
	jwt.RegisteredClaims
}

// GenerateToken signs an HS256 token for user valid for JWT_EXPIRE_HOURS.
func GenerateToken(user *models.User, now time.Time) (string, time.Time, error) {
	expires := now.Add(time.Duration(config.Current.Auth.JWTExpireHours) * time.Hour)
	claims := Claims{
		UserID:   user.UserID,
		Email:    user.Email,
		UserType: user.UserType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprint(user.UserID),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    "sitesafe-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(config.Current.Auth.JWTSecret))
	return signed, expires, err
}

// ParseToken verifies signature, algorithm and expiry.
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(config.Current.Auth.JWTSecret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	return claims, nil
}

func unauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": msg})
}

// AuthMiddleware validates the bearer token and that the account is still
// active.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			unauthorized(c, "Authorization header is required")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			unauthorized(c, "Invalid authorization header format")
			return
		}

		claims, err := ParseToken(tokenString)
		if err != nil {
			unauthorized(c, "Invalid or expired token")
			return
		}

		var user models.User
		if err := config.DB.Where("user_id = ? AND delete_at IS NULL", claims.UserID).First(&user).Error; err != nil {
			unauthorized(c, "User not found")
			return
		}
		if !user.IsActive {
			unauthorized(c, "Account is disabled")
			return
		}

		c.Set(ContextUserID, user.UserID)
		c.Set(ContextEmail, user.Email)
		c.Set(ContextUserType, user.UserType)

		c.Next()
	}
}

// RequireUserType allows only the listed account types through.
func RequireUserType(types ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userType := c.GetString(ContextUserType)
		for _, t := range types {
			if userType == t {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient permissions"})
	}
}

// UserID returns the authenticated user id, or 0.
func UserID(c *gin.Context) int {
	return c.GetInt(ContextUserID)
}
