// Package api exposes the scraping engine over HTTP. Every route is a POST
// answering 200 with a {isSuccess, message} envelope; the caller's EAMS
// session travels in two browser cookies.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"eamsassist-backend/internal/calendar"
	"eamsassist-backend/internal/components/assert"
	"eamsassist-backend/internal/components/chrono"
	"eamsassist-backend/internal/components/telemetry"
	"eamsassist-backend/internal/eams"
	"eamsassist-backend/internal/eams/auth"
	"eamsassist-backend/internal/eams/scraper"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	report_api_bind         = "api.bind"
	report_api_login        = "api.login"
	report_api_semesters    = "api.semesters"
	report_api_course_table = "api.course-table"
	report_api_term_begin   = "api.term-begin"
	report_api_calendar     = "api.calendar"
)

// Messages returned in the envelope on failure.
const (
	MessageInvalidStudentID = "Invalid StudentID"
	MessageLoginFailed      = "Login failed"
	MessageSessionExpired   = "Session expired"
	MessageInvalidRequest   = "Invalid request"
	MessageInternalError    = "Internal server error"
	MessageUnknownSemester  = "Unknown semester"
)

const requestIDHeader = "X-Request-ID"

type Response struct {
	IsSuccess bool `json:"isSuccess"`
	Message   any  `json:"message,omitempty"`
}

type Options struct {
	SessionMaxAge time.Duration
	SecureCookies bool
	Calendar      calendar.Options
	Encode        calendar.EncodeOptions
}

type Handler struct {
	flow    *auth.Flow
	scraper *scraper.Scraper
	clock   chrono.API
	tel     telemetry.API
	opts    Options
}

func NewHandler(flow *auth.Flow, s *scraper.Scraper, clock chrono.API, tel telemetry.API, opts Options) *Handler {
	assert.NotNil(flow)
	assert.NotNil(s)
	assert.NotNil(clock)
	assert.NotNil(tel)

	if opts.SessionMaxAge == 0 {
		opts.SessionMaxAge = 90 * 24 * time.Hour
	}
	return &Handler{
		flow:    flow,
		scraper: s,
		clock:   clock,
		tel:     telemetry.NewScopedAPI("api", tel),
		opts:    opts,
	}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.POST("/login", h.Login)
	rg.POST("/logout", h.Logout)
	rg.POST("/semesters", h.Semesters)
	rg.POST("/course_table", h.CourseTable)
	rg.POST("/term_begin", h.TermBegin)
	rg.POST("/calendar", h.Calendar)
}

// NewRouter builds the engine serving every route under /api.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLog())
	h.Register(router.Group("/api"))
	return router
}

// requestLog tags every request with an id and writes one debug line when it
// completes.
func (h *Handler) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(requestIDHeader, requestID)
		c.Header(requestIDHeader, requestID)

		start := time.Now()
		c.Next()
		h.tel.ReportDebug(
			"request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"request_id", requestID,
		)
	}
}

func (h *Handler) succeed(c *gin.Context, message any) {
	c.JSON(http.StatusOK, Response{IsSuccess: true, Message: message})
}

func (h *Handler) reject(c *gin.Context, message string) {
	c.JSON(http.StatusOK, Response{IsSuccess: false, Message: message})
}

// fail maps an engine error onto the envelope. Expired sessions also drop the
// browser cookies, the details of anything else stay in the logs.
func (h *Handler) fail(c *gin.Context, id string, err error) {
	if errors.Is(err, eams.ErrSessionExpired) {
		h.clearSessionCookies(c)
		h.reject(c, MessageSessionExpired)
		return
	}
	h.tel.ReportWarning(id, err, c.GetString(requestIDHeader))
	h.reject(c, MessageInternalError)
}

// bind decodes the JSON body, reporting false after answering when it is
// malformed.
func (h *Handler) bind(c *gin.Context, body any) bool {
	if err := c.ShouldBindJSON(body); err != nil {
		h.tel.ReportDebug(report_api_bind, err, c.FullPath())
		h.reject(c, MessageInvalidRequest)
		return false
	}
	return true
}

type loginRequest struct {
	StudentID string `json:"studentId"`
	Password  string `json:"password"`
}

func (h *Handler) Login(c *gin.Context) {
	var body loginRequest
	if !h.bind(c, &body) {
		return
	}
	if !ValidStudentID(body.StudentID) {
		h.reject(c, MessageInvalidStudentID)
		return
	}

	session, err := h.flow.Login(c.Request.Context(), eams.NewSession(body.StudentID), body.Password)
	if err != nil {
		h.fail(c, report_api_login, err)
		return
	}
	if !session.Authenticated {
		h.reject(c, MessageLoginFailed)
		return
	}
	h.setSessionCookies(c, session)
	h.succeed(c, nil)
}

// Logout always clears the browser cookies, the upstream logout is best
// effort and skipped when there is no session to end.
func (h *Handler) Logout(c *gin.Context) {
	if session, err := sessionFromRequest(c); err == nil {
		h.flow.Logout(c.Request.Context(), session)
	}
	h.clearSessionCookies(c)
	h.succeed(c, nil)
}

func (h *Handler) Semesters(c *gin.Context) {
	session, err := sessionFromRequest(c)
	if err != nil {
		h.fail(c, report_api_semesters, err)
		return
	}
	catalog, err := h.scraper.Semesters(c.Request.Context(), session)
	if err != nil {
		h.fail(c, report_api_semesters, err)
		return
	}
	h.succeed(c, catalog)
}

type courseTableRequest struct {
	SemesterID string `json:"semester_id"`
	TableID    string `json:"table_id"`
	StartWeek  *int   `json:"start_week"`
}

func (h *Handler) CourseTable(c *gin.Context) {
	var body courseTableRequest
	if !h.bind(c, &body) {
		return
	}
	session, err := sessionFromRequest(c)
	if err != nil {
		h.fail(c, report_api_course_table, err)
		return
	}
	table, err := h.scraper.CourseTable(c.Request.Context(), session, scraper.CourseTableQuery{
		SemesterID: body.SemesterID,
		TableID:    body.TableID,
		StartWeek:  body.StartWeek,
	})
	if err != nil {
		h.fail(c, report_api_course_table, err)
		return
	}
	h.succeed(c, table)
}

type termBeginRequest struct {
	Year     string `json:"year"`
	Semester string `json:"semester"`
}

func (h *Handler) TermBegin(c *gin.Context) {
	var body termBeginRequest
	if !h.bind(c, &body) {
		return
	}
	session, err := sessionFromRequest(c)
	if err != nil {
		h.fail(c, report_api_term_begin, err)
		return
	}
	begin, err := h.scraper.TermBegin(c.Request.Context(), session, body.Year, body.Semester)
	if err != nil {
		h.fail(c, report_api_term_begin, err)
		return
	}
	h.succeed(c, begin.Format(time.DateOnly))
}

type calendarRequest struct {
	SemesterID string `json:"semester_id"`
	TableID    string `json:"table_id"`
	// Year and Semester are looked up from the semester catalog when empty.
	Year     string `json:"year"`
	Semester string `json:"semester"`
}

// Calendar answers with the whole semester as an ICS attachment. Failures use
// the JSON envelope like every other route.
func (h *Handler) Calendar(c *gin.Context) {
	var body calendarRequest
	if !h.bind(c, &body) {
		return
	}
	session, err := sessionFromRequest(c)
	if err != nil {
		h.fail(c, report_api_calendar, err)
		return
	}
	ctx := c.Request.Context()

	if body.Year == "" || body.Semester == "" {
		catalog, err := h.scraper.Semesters(ctx, session)
		if err != nil {
			h.fail(c, report_api_calendar, err)
			return
		}
		year, term, ok := catalog.Lookup(body.SemesterID)
		if !ok {
			h.reject(c, MessageUnknownSemester)
			return
		}
		body.Year, body.Semester = year, term
	}

	table, err := h.scraper.CourseTable(ctx, session, scraper.CourseTableQuery{
		SemesterID: body.SemesterID,
		TableID:    body.TableID,
	})
	if err != nil {
		h.fail(c, report_api_calendar, err)
		return
	}
	begin, err := h.scraper.TermBegin(ctx, session, body.Year, body.Semester)
	if err != nil {
		h.fail(c, report_api_calendar, err)
		return
	}

	events := calendar.Export(table.Courses, table.Periods, begin, h.opts.Calendar)
	encode := h.opts.Encode
	encode.Stamp = h.clock.Now()
	doc := calendar.Encode(events, encode)

	filename := fmt.Sprintf("%s-%s.ics", body.Year, body.Semester)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", []byte(doc))
}
