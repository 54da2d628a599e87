package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/BruksfildServices01/salon-scheduler/internal/config"
	domain "github.com/BruksfildServices01/salon-scheduler/internal/domain/appointment"
)

const (
	ContextUserID   = "userID"
	ContextUserRole = "userRole"
)

var errNoToken = errors.New("missing_authorization_header")

// IssueToken signs an HS256 token carrying the user id and role.
func IssueToken(secret string, userID uint, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":  userID,
		"role": role,
		"exp":  now.Add(ttl).Unix(),
		"iat":  now.Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseBearer(cfg *config.Config, header string) (domain.Actor, error) {
	if header == "" {
		return domain.Actor{}, errNoToken
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return domain.Actor{}, errors.New("invalid_authorization_header")
	}

	token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenMalformed
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid_token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.Actor{}, errors.New("invalid_token_claims")
	}

	userID, ok := claims["sub"].(float64)
	role, _ := claims["role"].(string)
	if !ok || userID <= 0 || role == "" {
		return domain.Actor{}, errors.New("invalid_token_payload")
	}

	return domain.Actor{UserID: uint(userID), Role: role}, nil
}

func setActor(c *gin.Context, a domain.Actor) {
	c.Set(ContextUserID, a.UserID)
	c.Set(ContextUserRole, a.Role)
}

// AuthMiddleware requires a valid bearer token.
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := parseBearer(cfg, c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		setActor(c, actor)
		c.Next()
	}
}

// OptionalAuth lets anonymous requests through as guests. A token that is
// present but invalid is still rejected.
func OptionalAuth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := parseBearer(cfg, c.GetHeader("Authorization"))
		if errors.Is(err, errNoToken) {
			c.Next()
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		setActor(c, actor)
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.GetString(ContextUserRole)
		for _, r := range roles {
			if r == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// ActorFrom returns the authenticated actor, if any.
func ActorFrom(c *gin.Context) (domain.Actor, bool) {
	id := c.GetUint(ContextUserID)
	if id == 0 {
		return domain.Actor{}, false
	}
	return domain.Actor{UserID: id, Role: c.GetString(ContextUserRole)}, true
}
