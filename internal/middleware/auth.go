package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

// RoleAdmin grants access to the admin API
const RoleAdmin = "ADMIN"

// AdminKeyHeader carries a static operator key as an alternative to a token
const AdminKeyHeader = "X-Admin-Key"

// JWTClaims represents the JWT token claims
type JWTClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator validates admin credentials
type Authenticator struct {
	secret       []byte
	adminKeyHash []byte
}

// NewAuthenticator creates an Authenticator. adminKeyHash is a bcrypt hash;
// when empty the static key is disabled.
func NewAuthenticator(secret, adminKeyHash string) *Authenticator {
	if secret == "" {
		secret = "default-secret-change-in-production" // Fallback for development
	}
	return &Authenticator{secret: []byte(secret), adminKeyHash: []byte(adminKeyHash)}
}

// GenerateJWT issues a token for a user
func (a *Authenticator) GenerateJWT(userID uuid.UUID, role string, ttl time.Duration) (string, error) {
	claims := &JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// RequireAdmin accepts either a valid ADMIN bearer token or a matching admin key
func (a *Authenticator) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if key := c.Request().Header.Get(AdminKeyHeader); key != "" {
			if len(a.adminKeyHash) == 0 || bcrypt.CompareHashAndPassword(a.adminKeyHash, []byte(key)) != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid admin key")
			}
			c.Set("role", RoleAdmin)
			return next(c)
		}

		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing authentication token")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
		}

		claims, err := a.parse(parts[1])
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		if claims.Role != RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "Admin access required")
		}

		c.Set("user_id", claims.UserID)
		c.Set("role", claims.Role)

		return next(c)
	}
}

func (a *Authenticator) parse(tokenString string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// GetUserID extracts user ID from echo context
func GetUserID(c echo.Context) (uuid.UUID, error) {
	userID, ok := c.Get("user_id").(uuid.UUID)
	if !ok {
		return uuid.Nil, fmt.Errorf("user_id not found in context")
	}
	return userID, nil
}
