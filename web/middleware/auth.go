package middleware

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"elitehub/web/db"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"
)

const userKey = "user"

type Auth struct {
	db     *gorm.DB
	secret []byte
	ttl    time.Duration
}

func NewAuth(conn *gorm.DB, secret string, ttl time.Duration) *Auth {
	return &Auth{db: conn, secret: []byte(secret), ttl: ttl}
}

// IssueToken signs a token for uid.
func (a *Auth) IssueToken(uid string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": uid,
		"exp": time.Now().Add(a.ttl).Unix(),
	})
	return token.SignedString(a.secret)
}

func (a *Auth) parse(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New("token has no subject")
	}
	return sub, nil
}

// bearer reads the Authorization header, then the Authorization cookie when
// cookies is set, then ?token=.
func bearer(c *gin.Context, cookies bool) string {
	h := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	if cookies {
		if cookie, err := c.Cookie("Authorization"); err == nil {
			return cookie
		}
	}
	// browsers cannot set headers on websocket upgrades
	return c.Query("token")
}

// RequireAuth loads the user named by the bearer token into the context.
func (a *Auth) RequireAuth(c *gin.Context) {
	a.authenticate(c, bearer(c, true))
}

// RequireSocketAuth is RequireAuth for websocket upgrades. The session
// cookie is ignored, so the client has to present the token itself.
func (a *Auth) RequireSocketAuth(c *gin.Context) {
	a.authenticate(c, bearer(c, false))
}

func (a *Auth) authenticate(c *gin.Context, tokenString string) {
	if tokenString == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	uid, err := a.parse(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
		return
	}

	var user db.User
	if err := a.db.WithContext(c.Request.Context()).Where("uid = ?", uid).First(&user).Error; err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	c.Set(userKey, user)
	c.Next()
}

// RequireAdmin must run after RequireAuth.
func RequireAdmin(c *gin.Context) {
	user, ok := CurrentUser(c)
	if !ok || user.Role != db.RoleAdmin {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
		return
	}
	c.Next()
}

func CurrentUser(c *gin.Context) (db.User, bool) {
	v, ok := c.Get(userKey)
	if !ok {
		return db.User{}, false
	}
	user, ok := v.(db.User)
	return user, ok
}

// CronSecret admits requests carrying secret as ?secret= or a bearer
// token. An empty secret closes the route.
func CronSecret(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := c.Query("secret")
		if got == "" {
			got, _ = strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if secret == "" || subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Invalid cron secret"})
			return
		}
		c.Next()
	}
}
