// Package web serves the kiosk, the admin login and the admin dashboard.
package web

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"visitorlog/internal/auth"
	"visitorlog/internal/config"
	"visitorlog/internal/metrics"
	"visitorlog/internal/photo"
	"visitorlog/internal/terms"
	"visitorlog/internal/visitor"
)

// Handler holds the dependencies of every page and API handler.
type Handler struct {
	visitors *visitor.Service
	auth     *auth.Authenticator
	sessions *auth.Sessions
	terms    terms.Document
	metrics  *metrics.Metrics
	log      logrus.FieldLogger
}

// Deps are the collaborators a Handler is built from.
type Deps struct {
	Visitors      *visitor.Service
	Authenticator *auth.Authenticator
	Sessions      *auth.Sessions
	Terms         terms.Document
	Metrics       *metrics.Metrics
	Logger        logrus.FieldLogger
}

// NewHandler wires a Handler.
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = logrus.StandardLogger()
	}
	return &Handler{
		visitors: d.Visitors,
		auth:     d.Authenticator,
		sessions: d.Sessions,
		terms:    d.Terms,
		metrics:  d.Metrics,
		log:      d.Logger.WithField("component", "web"),
	}
}

func (h *Handler) now() time.Time {
	return h.visitors.Now()
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, visitor.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, visitor.ErrAgreementRequired),
		errors.Is(err, visitor.ErrInvalidForm),
		errors.Is(err, photo.ErrNoPhoto),
		errors.Is(err, photo.ErrUnsupportedImage):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidPassword):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// userMessage is the text shown for err. Internal errors stay generic.
func userMessage(err error) string {
	switch {
	case errors.Is(err, visitor.ErrAgreementRequired):
		return "Please accept the terms and conditions to sign in."
	case errors.Is(err, photo.ErrNoPhoto):
		return "Please take a photo before signing in."
	case errors.Is(err, photo.ErrUnsupportedImage):
		return "The photo could not be read. Please take it again."
	case errors.Is(err, visitor.ErrInvalidForm):
		return "Please fill in all required fields."
	case errors.Is(err, visitor.ErrNotFound):
		return "Visitor not found."
	case errors.Is(err, auth.ErrInvalidPassword):
		return "Incorrect password."
	}
	return "Something went wrong. Please try again."
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		config.LogError(h.log, "web", op, c.Request.URL.Path, err)
	}
	if wantsJSON(c) {
		c.JSON(code, gin.H{"error": userMessage(err)})
		return
	}
	c.String(code, userMessage(err))
}

func wantsJSON(c *gin.Context) bool {
	return strings.HasPrefix(c.Request.URL.Path, "/api/") ||
		strings.Contains(c.GetHeader("Accept"), "application/json")
}
