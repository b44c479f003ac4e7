package web

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"visitorlog/internal/auth"
	"visitorlog/internal/dashboard"
	"visitorlog/internal/photo"
	"visitorlog/internal/visitor"
)

type loginView struct {
	Error string
}

// LoginPage renders the admin login, or skips it for a logged-in session.
func (h *Handler) LoginPage(c *gin.Context) {
	if ok, err := h.sessions.Authenticated(c.Request.Context(), auth.SessionID(c)); err == nil && ok {
		c.Redirect(http.StatusSeeOther, "/admin")
		return
	}
	c.HTML(http.StatusOK, "login.html", loginView{})
}

// Login checks the admin password and marks the session.
func (h *Handler) Login(c *gin.Context) {
	err := h.auth.AttemptLogin(c.Request.Context(), auth.SessionID(c), c.PostForm("password"))
	switch {
	case err == nil:
		h.countLogin("success")
		h.log.Info("admin logged in")
		c.Redirect(http.StatusSeeOther, "/admin")
	case errors.Is(err, auth.ErrInvalidPassword):
		h.countLogin("failure")
		h.log.WithField("client_ip", c.ClientIP()).Warn("admin login failed")
		c.HTML(http.StatusUnauthorized, "login.html", loginView{Error: userMessage(err)})
	default:
		h.countLogin("error")
		h.log.WithError(err).Error("admin login")
		c.HTML(http.StatusInternalServerError, "login.html", loginView{Error: userMessage(err)})
	}
}

func (h *Handler) countLogin(result string) {
	if h.metrics != nil {
		h.metrics.Logins.WithLabelValues(result).Inc()
	}
}

// Logout clears the admin flag and returns to the login page.
func (h *Handler) Logout(c *gin.Context) {
	if err := h.auth.Logout(c.Request.Context(), auth.SessionID(c)); err != nil {
		h.fail(c, "logout", err)
		return
	}
	c.Redirect(http.StatusSeeOther, "/login")
}

type bar struct {
	Label   string
	Count   int
	Percent int
}

type adminView struct {
	Filter   dashboard.Filter
	Query    string
	Stats    dashboard.Stats
	Visitors []visitor.Record
	Trend    []bar
	Peak     []bar
}

// snapshot is the dashboard state derived from one read of the store.
type snapshot struct {
	all      []visitor.Record
	filtered []visitor.Record
	filter   dashboard.Filter
	now      time.Time
}

func (h *Handler) load(c *gin.Context) (snapshot, error) {
	var f dashboard.Filter
	_ = c.ShouldBindQuery(&f)
	f = f.Normalized()

	all, err := h.visitors.List(c.Request.Context())
	if err != nil {
		return snapshot{}, err
	}
	now := h.now()
	sorted := dashboard.SortByDateDesc(all, now.Location())
	return snapshot{
		all:      all,
		filtered: dashboard.Apply(sorted, f, now),
		filter:   f,
		now:      now,
	}, nil
}

func filterQuery(f dashboard.Filter) string {
	v := url.Values{}
	if f.Search != "" {
		v.Set("q", f.Search)
	}
	if f.Status != dashboard.StatusAll {
		v.Set("status", f.Status)
	}
	if f.DateRange != dashboard.RangeAll {
		v.Set("range", f.DateRange)
	}
	if len(v) == 0 {
		return ""
	}
	return "?" + v.Encode()
}

// Dashboard renders the admin view.
func (h *Handler) Dashboard(c *gin.Context) {
	snap, err := h.load(c)
	if err != nil {
		h.fail(c, "dashboard", err)
		return
	}

	trend := dashboard.DailyTrend(snap.filtered)
	counts := make([]int, len(trend))
	for i, d := range trend {
		counts[i] = d.Count
	}
	trendMax := dashboard.Max(counts...)
	trendBars := make([]bar, len(trend))
	for i, d := range trend {
		trendBars[i] = bar{Label: d.Date, Count: d.Count, Percent: d.Count * 100 / trendMax}
	}

	peak := dashboard.PeakHours(snap.filtered)
	peakMax := dashboard.Max(peak[:]...)
	peakBars := make([]bar, len(peak))
	for hour, n := range peak {
		peakBars[hour] = bar{Label: hourLabel(hour), Count: n, Percent: n * 100 / peakMax}
	}

	c.HTML(http.StatusOK, "admin.html", adminView{
		Filter:   snap.filter,
		Query:    filterQuery(snap.filter),
		Stats:    dashboard.Overview(snap.all, snap.now),
		Visitors: snap.filtered,
		Trend:    trendBars,
		Peak:     peakBars,
	})
}

func hourLabel(hour int) string {
	return time.Date(0, 1, 1, hour, 0, 0, 0, time.UTC).Format("15:04")
}

// backToDashboard redirects to /admin keeping the filter the form came from.
func backToDashboard(c *gin.Context) {
	ret := c.PostForm("return")
	if !strings.HasPrefix(ret, "?") || strings.ContainsAny(ret, "\r\n") {
		ret = ""
	}
	c.Redirect(http.StatusSeeOther, "/admin"+ret)
}

// SignOutVisitor stamps the visitor's time out.
func (h *Handler) SignOutVisitor(c *gin.Context) {
	if _, err := h.visitors.SignOut(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "sign_out", err)
		return
	}
	if h.metrics != nil {
		h.metrics.SignOuts.Inc()
	}
	backToDashboard(c)
}

// EditVisitor replaces a record with the revision posted by the edit dialog.
func (h *Handler) EditVisitor(c *gin.Context) {
	var form editForm
	if err := c.ShouldBind(&form); err != nil {
		h.fail(c, "edit", visitor.ErrInvalidForm)
		return
	}
	if _, err := h.visitors.Update(c.Request.Context(), c.Param("id"), form.revise); err != nil {
		h.fail(c, "edit", err)
		return
	}
	backToDashboard(c)
}

// DeleteVisitor removes a record. The page confirms before posting.
func (h *Handler) DeleteVisitor(c *gin.Context) {
	if err := h.visitors.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, "delete", err)
		return
	}
	backToDashboard(c)
}

// VisitorPhoto serves an embedded photo, or redirects to a hosted one.
func (h *Handler) VisitorPhoto(c *gin.Context) {
	rec, err := h.visitors.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "photo", err)
		return
	}
	switch {
	case photo.IsDataURI(rec.Photo):
		mime, data, err := photo.DecodeDataURI(rec.Photo)
		if err != nil {
			h.log.WithError(err).WithField("visitor_id", rec.ID).Warn("stored photo is unreadable")
			c.Status(http.StatusNotFound)
			return
		}
		c.Header("Cache-Control", "private, max-age=300")
		c.Data(http.StatusOK, mime, data)
	case strings.HasPrefix(rec.Photo, "https://") || strings.HasPrefix(rec.Photo, "http://"):
		c.Redirect(http.StatusFound, rec.Photo)
	default:
		c.Status(http.StatusNotFound)
	}
}

// ExportCSV downloads the filtered log as CSV.
func (h *Handler) ExportCSV(c *gin.Context) {
	h.export(c, "csv", dashboard.ContentTypeCSV)
}

// ExportXLSX downloads the filtered log as a workbook.
func (h *Handler) ExportXLSX(c *gin.Context) {
	h.export(c, "xlsx", dashboard.ContentTypeXLSX)
}

func (h *Handler) export(c *gin.Context, format, contentType string) {
	snap, err := h.load(c)
	if err != nil {
		h.fail(c, "export", err)
		return
	}
	c.Header("Content-Type", contentType)
	c.Header("Content-Disposition", `attachment; filename="`+dashboard.ExportFilename(snap.now, format)+`"`)
	c.Status(http.StatusOK)

	write := dashboard.WriteCSV
	if format == "xlsx" {
		write = dashboard.WriteXLSX
	}
	if err := write(c.Writer, snap.filtered); err != nil {
		h.log.WithError(err).WithField("format", format).Error("export failed")
		return
	}
	if h.metrics != nil {
		h.metrics.Exports.WithLabelValues(format).Inc()
	}
}

// apiRecord hides the inline photo behind its URL.
type apiRecord struct {
	visitor.Record
	Photo string `json:"photo"`
}

// APIVisitors returns the filtered log as JSON.
func (h *Handler) APIVisitors(c *gin.Context) {
	snap, err := h.load(c)
	if err != nil {
		h.fail(c, "api_visitors", err)
		return
	}
	out := make([]apiRecord, len(snap.filtered))
	for i, r := range snap.filtered {
		out[i] = apiRecord{Record: r, Photo: "/admin/visitors/" + url.PathEscape(r.ID) + "/photo"}
	}
	c.JSON(http.StatusOK, gin.H{"visitors": out, "count": len(out), "filter": snap.filter})
}

// APIStats returns the overview and chart data.
func (h *Handler) APIStats(c *gin.Context) {
	snap, err := h.load(c)
	if err != nil {
		h.fail(c, "api_stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"overview":   dashboard.Overview(snap.all, snap.now),
		"dailyTrend": dashboard.DailyTrend(snap.filtered),
		"peakHours":  dashboard.PeakHours(snap.filtered),
	})
}
