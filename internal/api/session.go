package api

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"eamsassist-backend/internal/eams"
	"eamsassist-backend/internal/eams/cookies"

	"github.com/gin-gonic/gin"
)

// Browser cookies that carry the session between requests.
const (
	CookieStudentID    = "STUDENT_ID"
	CookieLoginSession = "LOGIN_SESSION"
)

var studentIDRegex = regexp.MustCompile(`^\d+$`)

func ValidStudentID(id string) bool {
	return studentIDRegex.MatchString(id)
}

// EncodeSession packs the upstream cookie set into a single cookie value.
func EncodeSession(set cookies.Set) string {
	return base64.StdEncoding.EncodeToString([]byte(set.Header()))
}

// DecodeSession is the inverse of EncodeSession. Sessions restored from a
// browser are assumed authenticated, upstream pages tell otherwise.
func DecodeSession(studentID, encoded string) (eams.Session, error) {
	if studentID == "" || encoded == "" {
		return eams.Session{}, eams.ErrSessionExpired
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return eams.Session{}, fmt.Errorf("decode %s: %w", CookieLoginSession, err)
	}
	set := cookies.Parse(string(raw))
	if len(set) == 0 {
		return eams.Session{}, eams.ErrSessionExpired
	}
	return eams.Session{
		StudentID:     studentID,
		Cookies:       set,
		Authenticated: true,
	}, nil
}

func sessionFromRequest(c *gin.Context) (eams.Session, error) {
	studentID, _ := c.Cookie(CookieStudentID)
	encoded, _ := c.Cookie(CookieLoginSession)
	return DecodeSession(studentID, encoded)
}

func (h *Handler) setSessionCookies(c *gin.Context, session eams.Session) {
	maxAge := int(h.opts.SessionMaxAge / time.Second)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieStudentID, session.StudentID, maxAge, "/", "", h.opts.SecureCookies, false)
	c.SetCookie(CookieLoginSession, EncodeSession(session.Cookies), maxAge, "/", "", h.opts.SecureCookies, true)
}

func (h *Handler) clearSessionCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(CookieStudentID, "", -1, "/", "", h.opts.SecureCookies, false)
	c.SetCookie(CookieLoginSession, "", -1, "/", "", h.opts.SecureCookies, true)
}
