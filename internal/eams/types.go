// Package eams contains the value types shared by the scraping session engine
// for the university academic-records system (EAMS) and its CAS login.
package eams

import (
	"regexp"
	"strings"

	"eamsassist-backend/internal/eams/cookies"
)

// Session is the caller-owned handle passed into and returned from every
// operation. The engine never stores it.
type Session struct {
	StudentID     string
	Cookies       cookies.Set
	Authenticated bool
}

func NewSession(studentID string) Session {
	return Session{
		StudentID: studentID,
		Cookies:   cookies.Set{},
	}
}

// Invalidated returns a copy of the session with no cookies and the
// authenticated flag cleared.
func (s Session) Invalidated() Session {
	return Session{
		StudentID: s.StudentID,
		Cookies:   cookies.Set{},
	}
}

// LoginToken holds the one-shot values scraped from the login page. It is
// fetched fresh for every login attempt.
type LoginToken struct {
	Salt      string
	LT        string
	DLLT      string
	Execution string
	EventID   string
}

type Semester struct {
	ID         string `json:"id"`
	SchoolYear string `json:"schoolYear"`
	Name       string `json:"name"`
}

// Semesters maps schoolYear -> term name -> semester id.
type Semesters map[string]map[string]string

func (s Semesters) Add(sem Semester) {
	terms, ok := s[sem.SchoolYear]
	if !ok {
		terms = map[string]string{}
		s[sem.SchoolYear] = terms
	}
	terms[sem.Name] = sem.ID
}

// Lookup finds the school year and term name of a semester id.
func (s Semesters) Lookup(id string) (schoolYear, term string, ok bool) {
	for year, terms := range s {
		for name, semID := range terms {
			if semID == id {
				return year, name, true
			}
		}
	}
	return "", "", false
}

// Period is one class period, Index is 0-based in presentation order and
// times are zero padded "HH:MM".
type Period struct {
	Index     int    `json:"index"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// Course is a single course registration as scraped from the table page.
//
// Weeks is the week-presence bitstring, character i marks academic week i+1.
// This is one off from reading the raw EAMS string as weeks[week] with a
// week-0 slot, and the calendar export and grid both depend on it.
// Times maps a weekday (1 = Monday ... 7 = Sunday) to the 1-based periods the
// course occupies on that day, in declaration order.
type Course struct {
	Name      string        `json:"name"`
	Classroom string        `json:"classroom"`
	Teachers  string        `json:"teachers"`
	Weeks     string        `json:"weeks"`
	Times     map[int][]int `json:"times"`
}

// CourseTable is the result of one course table query.
type CourseTable struct {
	Periods []Period `json:"periods"`
	Courses []Course `json:"courses"`
}

var courseCodeRegex = regexp.MustCompile(`^(.*)\(([\w.]+)\)$`)

// SplitCourseName splits "Linear Algebra(MATH1112.01)" into its display name
// and course code. Names without a trailing code are returned unchanged.
func SplitCourseName(full string) (name, code string) {
	groups := courseCodeRegex.FindStringSubmatch(strings.TrimSpace(full))
	if len(groups) < 3 {
		return full, ""
	}
	return strings.TrimSpace(groups[1]), strings.TrimSpace(groups[2])
}
