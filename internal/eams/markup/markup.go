// Package markup holds every pattern the engine matches against upstream
// pages. Each extraction lives in its own function with its own fixture test,
// so upstream drift shows up as one failing test instead of silently corrupt
// data.
package markup

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"eamsassist-backend/internal/eams"
	"eamsassist-backend/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// IsAuthRequired reports whether body is the CAS interstitial instead of the
// requested page.
func IsAuthRequired(body string) bool {
	return strings.Contains(body, eams.AuthRequiredMarker)
}

// LoginToken reads the password-login sub-form of the CAS login page. The
// salt, execution and _eventId fields are required; lt and dllt may be empty.
func LoginToken(page []byte) (eams.LoginToken, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return eams.LoginToken{}, fmt.Errorf("parse login page: %w", err)
	}
	form := doc.Find("#pwdLoginDiv").First()
	if form.Length() == 0 {
		return eams.LoginToken{}, &eams.TokenNotFoundError{Field: "pwdLoginDiv", Page: "login page"}
	}

	token := eams.LoginToken{
		Salt:      strings.TrimSpace(form.Find("#pwdEncryptSalt").AttrOr("value", "")),
		LT:        form.Find(`input[name="lt"]`).AttrOr("value", ""),
		DLLT:      form.Find(`input[name="dllt"]`).AttrOr("value", ""),
		Execution: form.Find(`input[name="execution"]`).AttrOr("value", ""),
		EventID:   form.Find(`input[name="_eventId"]`).AttrOr("value", ""),
	}

	required := []struct {
		field string
		value string
	}{
		{field: "pwdEncryptSalt", value: token.Salt},
		{field: "execution", value: token.Execution},
		{field: "_eventId", value: token.EventID},
	}
	for _, r := range required {
		if r.value == "" {
			return eams.LoginToken{}, &eams.TokenNotFoundError{Field: r.field, Page: "login page"}
		}
	}
	return token, nil
}

const semesterBarMarker = `"></div>`

var trailingDigitsRegex = regexp.MustCompile(`(\d+)$`)

// SemesterBarID finds the numeric id embedded right before the first
// `"></div>` of the landing page. It namespaces the semester catalogue query.
func SemesterBarID(body string) (string, bool) {
	prefix, _, found := strings.Cut(body, semesterBarMarker)
	if !found {
		return "", false
	}
	groups := trailingDigitsRegex.FindStringSubmatch(prefix)
	if len(groups) < 2 {
		return "", false
	}
	return groups[1], true
}

var defaultSemesterRegex = regexp.MustCompile(`\{empty:"false",value:"(\d+)"},"searchTable\(\)"\);`)

// DefaultSemester finds the semester selected by default in the semester bar
// setup call.
func DefaultSemester(body string) (string, bool) {
	groups := defaultSemesterRegex.FindStringSubmatch(body)
	if len(groups) < 2 {
		return "", false
	}
	return groups[1], true
}

// CourseTableElementID returns the id attribute of the schedule data table.
func CourseTableElementID(body string) (string, bool) {
	doc, err := htmlutil.Parse(body)
	if err != nil {
		return "", false
	}
	return doc.Find("#courseTable").First().Attr("id")
}

var formTableIDRegex = regexp.MustCompile(`bg\.form\.addInput\(form,"ids","(\d+)"\)`)

// FormTableID finds the table identifier passed to the course table form in
// an inline script.
func FormTableID(body string) (string, bool) {
	doc, err := htmlutil.Parse(body)
	if err != nil {
		return "", false
	}
	return htmlutil.FirstSubmatch(htmlutil.InlineScripts(doc), formTableIDRegex)
}

var semesterRecordRegex = regexp.MustCompile(`\{id:(\d+),schoolYear:"(\d+-\d+)",name:"(.*?)"}`)

// Semesters reads every `{id, schoolYear, name}` record of the semester
// catalogue in declaration order.
func Semesters(body string) []eams.Semester {
	var out []eams.Semester
	for _, groups := range semesterRecordRegex.FindAllStringSubmatch(body, -1) {
		out = append(out, eams.Semester{
			ID:         groups[1],
			SchoolYear: groups[2],
			Name:       groups[3],
		})
	}
	return out
}

// CourseBlockDelimiter separates the period header of the course table page
// from the per-course script blocks.
const CourseBlockDelimiter = "var teachers"

// SplitCourseTable splits the course table page into its period block and one
// block per course.
func SplitCourseTable(body string) (periodBlock string, courseBlocks []string) {
	parts := strings.Split(body, CourseBlockDelimiter)
	return parts[0], parts[1:]
}

var periodRegex = regexp.MustCompile(`<br>\s*(\d{1,2}:\d{2})\s*-\s*(\d{1,2}:\d{2})\s*</font>`)

// Periods reads every "HH:MM-HH:MM" range of the period block in order.
func Periods(block string) []eams.Period {
	var out []eams.Period
	for i, groups := range periodRegex.FindAllStringSubmatch(block, -1) {
		out = append(out, eams.Period{
			Index:     i,
			StartTime: padClock(groups[1]),
			EndTime:   padClock(groups[2]),
		})
	}
	return out
}

// padClock turns "8:15" into "08:15".
func padClock(s string) string {
	if len(s) == 4 {
		return "0" + s
	}
	return s
}

var (
	courseAttributesRegex = regexp.MustCompile(`\),"[0-9A-Za-z().]+","(.*?\([0-9A-Za-z().]+\))","[\d,-]+","(.*?)","([01]+)",`)
	courseTimeRegex       = regexp.MustCompile(`index =(\d+)\*unitCount\+(\d+);`)
	actTeachersRegex      = regexp.MustCompile(`var actTeachers = \[([\s\S]*?)];`)
	teacherNameRegex      = regexp.MustCompile(`name:"([^"]+)"`)
)

// CourseAttributes reads the display name (with code), classroom and week
// bitstring from a TaskActivity declaration.
func CourseAttributes(block string) (name, classroom, weeks string, ok bool) {
	groups := courseAttributesRegex.FindStringSubmatch(block)
	if len(groups) < 4 {
		return "", "", "", false
	}
	return groups[1], groups[2], groups[3], true
}

// CourseTimes reads every `index =<weekday>*unitCount+<period>;` declaration,
// shifting both 0-based source indices to 1-based.
func CourseTimes(block string) map[int][]int {
	out := map[int][]int{}
	for _, groups := range courseTimeRegex.FindAllStringSubmatch(block, -1) {
		weekday, err := strconv.Atoi(groups[1])
		if err != nil {
			continue
		}
		period, err := strconv.Atoi(groups[2])
		if err != nil {
			continue
		}
		out[weekday+1] = append(out[weekday+1], period+1)
	}
	return out
}

// Teachers joins the names of the actTeachers array literal with commas.
func Teachers(block string) string {
	groups := actTeachersRegex.FindStringSubmatch(block)
	if len(groups) < 2 {
		return ""
	}
	var names []string
	for _, name := range teacherNameRegex.FindAllStringSubmatch(groups[1], -1) {
		names = append(names, name[1])
	}
	return strings.Join(names, ",")
}

// Course assembles one course block. Missing pieces default to empty values,
// a malformed block never fails the others.
func Course(block string) eams.Course {
	name, classroom, weeks, _ := CourseAttributes(block)
	return eams.Course{
		Name:      name,
		Classroom: classroom,
		Teachers:  Teachers(block),
		Weeks:     weeks,
		Times:     CourseTimes(block),
	}
}
