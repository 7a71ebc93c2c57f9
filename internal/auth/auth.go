// Package auth gates graph mutations on the authoring surface behind a
// shared write token. Reads stay open.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var ErrUnauthorized = errors.New("auth: unauthorized")

// Validator validates a write token.
type Validator interface {
	Validate(token string) error
}

// WriteToken accepts exactly one configured token. An empty Token denies
// everything; use Open to disable checks.
type WriteToken struct {
	Token string
}

func (w WriteToken) Validate(token string) error {
	if w.Token == "" {
		return ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(w.Token), []byte(token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}

// Open accepts every token.
type Open struct{}

func (Open) Validate(string) error { return nil }

// FromConfig returns Open when token is blank, otherwise a WriteToken.
func FromConfig(token string) Validator {
	token = strings.TrimSpace(token)
	if token == "" {
		return Open{}
	}
	return WriteToken{Token: token}
}

// RequireWrite rejects unsafe methods whose bearer token fails v.
func RequireWrite(v Validator) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if err := v.Validate(bearer(c.GetHeader("Authorization"))); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}

func bearer(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
