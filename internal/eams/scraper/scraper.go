// Package scraper reads the semester catalogue, course tables and term start
// dates out of EAMS on behalf of an authenticated session.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"eamsassist-backend/internal/components/assert"
	"eamsassist-backend/internal/components/chrono"
	"eamsassist-backend/internal/components/telemetry"
	"eamsassist-backend/internal/eams"
	"eamsassist-backend/internal/eams/markup"
	"eamsassist-backend/internal/eams/transport"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const (
	report_scraper_semesters    = "scraper.semesters"
	report_scraper_course_table = "scraper.course-table"
	report_scraper_term_begin   = "scraper.term-begin"
)

const (
	landingPath     = "/courseTableForStd.action"
	dataQueryPath   = "/dataQuery.action"
	courseTablePath = "/courseTableForStd!courseTable.action"
)

var tracer = otel.Tracer("eams/scraper")

type Scraper struct {
	client    *transport.Client
	endpoints eams.Endpoints
	clock     chrono.API
	tel       telemetry.API
}

func NewScraper(client *transport.Client, endpoints eams.Endpoints, clock chrono.API, tel telemetry.API) *Scraper {
	assert.NotNil(client)
	assert.NotNil(clock)
	assert.NotNil(tel)
	assert.NotEmptyStr(endpoints.EAMS)

	return &Scraper{
		client:    client,
		endpoints: endpoints,
		clock:     clock,
		tel:       telemetry.NewScopedAPI("scraper", tel),
	}
}

// Catalog is everything the landing page and the semester query reveal.
type Catalog struct {
	Semesters eams.Semesters `json:"semesters"`
	// Default is the id of the semester EAMS selects on its own.
	Default string `json:"defaultSemester"`
	// TableID is the id attribute of the schedule table element, empty when
	// the page has none.
	TableID string `json:"tableId"`
}

// Lookup finds the school year and term name of a semester id.
func (c Catalog) Lookup(id string) (schoolYear, term string, ok bool) {
	return c.Semesters.Lookup(id)
}

type CourseTableQuery struct {
	SemesterID string
	// TableID is looked up from the landing page when empty.
	TableID string
	// StartWeek is sent empty when nil.
	StartWeek *int
}

// reportFailure reports drift and transport failures as broken. Session
// expiry is an expected outcome and is left to the caller.
func (s *Scraper) reportFailure(id string, err error, params ...any) {
	if errors.Is(err, eams.ErrSessionExpired) {
		return
	}
	s.tel.ReportBroken(id, append([]any{err}, params...)...)
}

func requireSession(session eams.Session) error {
	if !session.Authenticated || len(session.Cookies) == 0 {
		return eams.ErrSessionExpired
	}
	return nil
}

// landing fetches the schedule landing page, checking for expiry.
func (s *Scraper) landing(ctx context.Context, session eams.Session) (transport.Response, error) {
	res, err := s.client.Get(ctx, s.endpoints.EAMS+landingPath, session.Cookies)
	if err != nil {
		return transport.Response{}, fmt.Errorf("fetch landing page: %w", err)
	}
	if markup.IsAuthRequired(res.Text()) {
		return transport.Response{}, eams.ErrSessionExpired
	}
	return res, nil
}

func (s *Scraper) Semesters(ctx context.Context, session eams.Session) (Catalog, error) {
	ctx, span := tracer.Start(ctx, "Semesters")
	defer span.End()

	catalog, err := s.semesters(ctx, session)
	if err != nil {
		s.reportFailure(report_scraper_semesters, err, session.StudentID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch semesters")
		return Catalog{}, err
	}
	return catalog, nil
}

func (s *Scraper) semesters(ctx context.Context, session eams.Session) (Catalog, error) {
	if err := requireSession(session); err != nil {
		return Catalog{}, err
	}

	landing, err := s.landing(ctx, session)
	if err != nil {
		return Catalog{}, err
	}
	body := landing.Text()

	barID, ok := markup.SemesterBarID(body)
	if !ok {
		return Catalog{}, &eams.TokenNotFoundError{Field: "semester bar id", Page: "course table landing page"}
	}
	defaultSemester, ok := markup.DefaultSemester(body)
	if !ok {
		return Catalog{}, &eams.TokenNotFoundError{Field: "default semester", Page: "course table landing page"}
	}
	tableID, _ := markup.CourseTableElementID(body)

	res, err := s.client.PostForm(ctx, s.endpoints.EAMS+dataQueryPath, url.Values{
		"tagId":    {fmt.Sprintf("semesterBar%sSemester", barID)},
		"dataType": {"semesterCalendar"},
		"value":    {"6"},
		"empty":    {"false"},
	}, landing.Cookies)
	if err != nil {
		return Catalog{}, fmt.Errorf("query semester catalogue: %w", err)
	}
	if markup.IsAuthRequired(res.Text()) {
		return Catalog{}, eams.ErrSessionExpired
	}

	semesters := eams.Semesters{}
	for _, sem := range markup.Semesters(res.Text()) {
		semesters.Add(sem)
	}
	return Catalog{
		Semesters: semesters,
		Default:   defaultSemester,
		TableID:   tableID,
	}, nil
}

func (s *Scraper) CourseTable(ctx context.Context, session eams.Session, query CourseTableQuery) (eams.CourseTable, error) {
	ctx, span := tracer.Start(ctx, "CourseTable")
	defer span.End()

	table, err := s.courseTable(ctx, session, query)
	if err != nil {
		s.reportFailure(report_scraper_course_table, err, session.StudentID, query.SemesterID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch course table")
		return eams.CourseTable{}, err
	}
	return table, nil
}

func (s *Scraper) courseTable(ctx context.Context, session eams.Session, query CourseTableQuery) (eams.CourseTable, error) {
	if err := requireSession(session); err != nil {
		return eams.CourseTable{}, err
	}

	jar := session.Cookies
	tableID := query.TableID
	if tableID == "" {
		landing, err := s.landing(ctx, session)
		if err != nil {
			return eams.CourseTable{}, err
		}
		id, ok := markup.FormTableID(landing.Text())
		if !ok {
			return eams.CourseTable{}, eams.ErrMissingTableID
		}
		tableID = id
		jar = landing.Cookies
	}

	startWeek := ""
	if query.StartWeek != nil {
		startWeek = strconv.Itoa(*query.StartWeek)
	}
	params := url.Values{
		"ignoreHead":             {"1"},
		"setting.kind":           {"std"},
		"startWeek":              {startWeek},
		"semester.id":            {query.SemesterID},
		"ids":                    {tableID},
		"tutorRedirectstudentId": {tableID},
	}

	res, err := s.client.PostForm(ctx, s.endpoints.EAMS+courseTablePath+"?"+params.Encode(), nil, jar)
	if err != nil {
		return eams.CourseTable{}, fmt.Errorf("query course table: %w", err)
	}
	body := res.Text()
	if markup.IsAuthRequired(body) {
		return eams.CourseTable{}, eams.ErrSessionExpired
	}

	periodBlock, courseBlocks := markup.SplitCourseTable(body)
	table := eams.CourseTable{
		Periods: markup.Periods(periodBlock),
		Courses: make([]eams.Course, 0, len(courseBlocks)),
	}
	for _, block := range courseBlocks {
		course := markup.Course(block)
		if course.Name == "" {
			s.tel.ReportWarning(report_scraper_course_table, "course block without attributes", query.SemesterID)
		}
		table.Courses = append(table.Courses, course)
	}
	return table, nil
}

// TermBegin looks up the first day of a term. term is the term name from the
// semester catalogue ("1", "2", ...); the calendar service numbers terms from
// one above that.
func (s *Scraper) TermBegin(ctx context.Context, session eams.Session, schoolYear, term string) (time.Time, error) {
	ctx, span := tracer.Start(ctx, "TermBegin")
	defer span.End()

	begin, err := s.termBegin(ctx, session, schoolYear, term)
	if err != nil {
		s.reportFailure(report_scraper_term_begin, err, schoolYear, term)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch term begin")
		return time.Time{}, err
	}
	return begin, nil
}

func (s *Scraper) termBegin(ctx context.Context, session eams.Session, schoolYear, term string) (time.Time, error) {
	if err := requireSession(session); err != nil {
		return time.Time{}, err
	}
	assert.NotEmptyStr(s.endpoints.TermBegin)

	termNumber, err := strconv.Atoi(strings.TrimSpace(term))
	if err != nil {
		return time.Time{}, fmt.Errorf("term %q is not numeric: %w", term, err)
	}

	params := url.Values{
		"termJump":       {"prev"},
		"schoolYearTerm": {fmt.Sprintf("%s-%d", schoolYear, termNumber+1)},
	}
	res, err := s.client.Get(ctx, s.endpoints.TermBegin+"?"+params.Encode(), session.Cookies)
	if err != nil {
		return time.Time{}, fmt.Errorf("fetch school calendar: %w", err)
	}

	// anything but a JSON object is the login interstitial
	var payload struct {
		TermBegin string `json:"termBegin"`
	}
	if markup.IsAuthRequired(res.Text()) || res.JSON(&payload) != nil {
		return time.Time{}, eams.ErrSessionExpired
	}

	value := strings.TrimSpace(payload.TermBegin)
	if len(value) < len(time.DateOnly) {
		return time.Time{}, &eams.TokenNotFoundError{Field: "termBegin", Page: "school calendar"}
	}
	begin, err := time.ParseInLocation(time.DateOnly, value[:len(time.DateOnly)], s.clock.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse termBegin %q: %w", payload.TermBegin, err)
	}
	return begin, nil
}
