package web

import (
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"visitorlog/internal/config"
	"visitorlog/internal/terms"
	"visitorlog/internal/visitor"
)

type kioskView struct {
	Terms    terms.Document
	Form     visitor.Form
	Error    string
	SignedIn string
}

// Kiosk renders the sign-in page.
func (h *Handler) Kiosk(c *gin.Context) {
	c.HTML(http.StatusOK, "kiosk.html", kioskView{
		Terms:    h.terms,
		SignedIn: c.Query("welcome"),
	})
}

// SignIn stores a new visitor from the kiosk form.
func (h *Handler) SignIn(c *gin.Context) {
	var form visitor.Form
	if err := c.ShouldBind(&form); err != nil {
		h.renderKioskError(c, form, http.StatusBadRequest, "Please check the details you entered.")
		return
	}

	rec, err := h.visitors.SignIn(c.Request.Context(), form, requestCamera{c: c})
	if err != nil {
		if wantsJSON(c) {
			h.fail(c, "sign_in", err)
			return
		}
		code := statusFor(err)
		if code == http.StatusInternalServerError {
			config.LogError(h.log, "web", "sign_in", c.Request.URL.Path, err)
		}
		h.renderKioskError(c, form, code, userMessage(err))
		return
	}
	if h.metrics != nil {
		h.metrics.SignIns.Inc()
	}

	if wantsJSON(c) {
		c.JSON(http.StatusCreated, gin.H{"id": rec.ID, "date": rec.Date, "timeIn": rec.TimeIn})
		return
	}
	c.Redirect(http.StatusSeeOther, "/?welcome="+url.QueryEscape(rec.Name))
}

func (h *Handler) renderKioskError(c *gin.Context, form visitor.Form, code int, msg string) {
	if wantsJSON(c) {
		c.JSON(code, gin.H{"error": msg})
		return
	}
	c.HTML(code, "kiosk.html", kioskView{Terms: h.terms, Form: form, Error: msg})
}

// Terms returns the terms and conditions document.
func (h *Handler) Terms(c *gin.Context) {
	c.JSON(http.StatusOK, h.terms)
}
