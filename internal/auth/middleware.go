package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const sessionIDKey = "session_id"

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name       string
	Issuer     string
	SigningKey string
	Secure     bool
}

// SessionCookie resolves the browser session from a bearer token or the
// session cookie, starting a new session when neither is valid.
func SessionCookie(cfg CookieConfig, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if sid := tokenSession(c, cfg); sid != "" {
			c.Set(sessionIDKey, sid)
			c.Next()
			return
		}

		sid := uuid.NewString()
		token, err := Issue(sid, cfg.Issuer, cfg.SigningKey, time.Now())
		if err != nil {
			log.WithError(err).Error("issue session token")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		// MaxAge 0 keeps it a browser-session cookie.
		c.SetCookie(cfg.Name, token, 0, "/", "", cfg.Secure, true)
		c.Set(sessionIDKey, sid)
		c.Next()
	}
}

func tokenSession(c *gin.Context, cfg CookieConfig) string {
	tokenStr := ""
	if authz := c.GetHeader("Authorization"); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
		tokenStr = strings.TrimSpace(authz[len("bearer "):])
	} else if v, err := c.Cookie(cfg.Name); err == nil {
		tokenStr = v
	}
	if tokenStr == "" {
		return ""
	}
	claims, err := Parse(tokenStr, cfg.SigningKey, cfg.Issuer)
	if err != nil {
		return ""
	}
	return claims.SessionID
}

// SessionID returns the session resolved by SessionCookie.
func SessionID(c *gin.Context) string {
	return c.GetString(sessionIDKey)
}

// Guard lets authenticated admins through. Others are redirected to
// loginPath, or get a 401 on JSON routes under /api/.
func Guard(sessions *Sessions, loginPath string, log logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := sessions.Authenticated(c.Request.Context(), SessionID(c))
		if err != nil {
			log.WithError(err).Error("read session flag")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "session unavailable"})
			return
		}
		if ok {
			c.Next()
			return
		}
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin login required"})
			return
		}
		c.Redirect(http.StatusSeeOther, loginPath)
		c.Abort()
	}
}
