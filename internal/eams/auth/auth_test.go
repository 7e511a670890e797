package auth

import (
	"context"
	_ "embed"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"eamsassist-backend/internal/components/telemetry"
	"eamsassist-backend/internal/eams"
	"eamsassist-backend/internal/eams/cookies"
	"eamsassist-backend/internal/eams/credential"
	"eamsassist-backend/internal/eams/transport"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

//go:embed testdata/login.html
var loginPage string

const (
	testStudentID = "2023533000"
	testPassword  = "correct horse"
	testSalt      = "rjBFAaHsNkKAhpoi"
)

// fakeCAS imitates the CAS login endpoint: GET serves the login page, POST
// checks the obfuscated password and redirects with a ticket cookie on
// success.
type fakeCAS struct {
	t        *testing.T
	page     string
	posts    atomic.Int32
	logouts  atomic.Int32
	lastForm map[string]string
}

func (f *fakeCAS) serve() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/authserver/login", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			http.SetCookie(w, &http.Cookie{Name: "JSESSIONID", Value: "login-page", Path: "/authserver"})
			w.Header().Set("Content-Type", "text/html;charset=UTF-8")
			w.Write([]byte(f.page))
			return
		}

		f.posts.Add(1)
		assert.NoError(f.t, r.ParseForm())
		f.lastForm = map[string]string{}
		for key := range r.PostForm {
			f.lastForm[key] = r.PostForm.Get(key)
		}
		// the token fetch cookies must come back with the form
		assert.Contains(f.t, r.Header.Get("Cookie"), "JSESSIONID=login-page")

		password, err := credential.Decrypt(r.PostForm.Get("password"), testSalt)
		if err != nil || password != testPassword {
			w.Header().Set("Content-Type", "text/html;charset=UTF-8")
			w.Write([]byte(f.page))
			return
		}
		w.Header().Add("Set-Cookie", "CASTGC=TGT-42-abc; Path=/authserver; Secure; HttpOnly")
		w.Header().Set("Location", "/authserver/index.do")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/authserver/index.do", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "route", Value: "node1"})
		w.Write([]byte("welcome"))
	})
	mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		f.logouts.Add(1)
		assert.Contains(f.t, r.Header.Get("Cookie"), "CASTGC=")
		w.Write([]byte("bye"))
	})
	return httptest.NewServer(mux)
}

func newTestFlow(server *httptest.Server, rec *telemetry.Recorder) *Flow {
	return NewFlow(
		transport.NewClient(transport.Options{}, rec),
		eams.Endpoints{
			Login:  server.URL + "/authserver/login",
			Logout: server.URL + "/logout",
		},
		rec,
	)
}

func TestLoginAuthenticated(t *testing.T) {
	cas := &fakeCAS{t: t, page: loginPage}
	server := cas.serve()
	defer server.Close()

	rec := &telemetry.Recorder{}
	flow := newTestFlow(server, rec)

	session, err := flow.Login(context.Background(), eams.NewSession(testStudentID), testPassword)
	require.NoError(t, err)
	require.True(t, session.Authenticated)
	require.Equal(t, testStudentID, session.StudentID)
	require.Equal(t, cookies.Set{
		"JSESSIONID": "login-page",
		"CASTGC":     "TGT-42-abc",
		"route":      "node1",
	}, session.Cookies)

	require.Equal(t, testStudentID, cas.lastForm["username"])
	require.Equal(t, "", cas.lastForm["captcha"])
	require.Equal(t, "", cas.lastForm["lt"])
	require.Equal(t, "userNameLogin", cas.lastForm["cllt"])
	require.Equal(t, "generalLogin", cas.lastForm["dllt"])
	require.Equal(t, "e1s1-4c2f1a", cas.lastForm["execution"])
	require.Equal(t, "submit", cas.lastForm["_eventId"])
	require.NotEqual(t, testPassword, cas.lastForm["password"])

	require.Empty(t, rec.Broken())
	require.Empty(t, rec.Reports("warning"))
}

func TestLoginRejected(t *testing.T) {
	cas := &fakeCAS{t: t, page: loginPage}
	server := cas.serve()
	defer server.Close()

	rec := &telemetry.Recorder{}
	session, err := newTestFlow(server, rec).Login(context.Background(), eams.NewSession(testStudentID), "wrong")
	require.NoError(t, err)
	require.False(t, session.Authenticated)
	require.False(t, session.Cookies.Has(eams.TicketCookie))
	require.EqualValues(t, 1, cas.posts.Load())
	require.Empty(t, rec.Broken())
}

func TestLoginMissingSaltNeverPosts(t *testing.T) {
	page := strings.Replace(loginPage, `id="pwdEncryptSalt"`, `id="somethingElse"`, 1)
	cas := &fakeCAS{t: t, page: page}
	server := cas.serve()
	defer server.Close()

	rec := &telemetry.Recorder{}
	_, err := newTestFlow(server, rec).Login(context.Background(), eams.NewSession(testStudentID), testPassword)
	var tokenErr *eams.TokenNotFoundError
	require.True(t, errors.As(err, &tokenErr), "got %v", err)
	require.Equal(t, "pwdEncryptSalt", tokenErr.Field)
	require.EqualValues(t, 0, cas.posts.Load())
}

func TestFetchToken(t *testing.T) {
	cas := &fakeCAS{t: t, page: loginPage}
	server := cas.serve()
	defer server.Close()

	token, jar, err := newTestFlow(server, &telemetry.Recorder{}).FetchToken(
		context.Background(),
		eams.Session{StudentID: testStudentID, Cookies: cookies.Set{"stale": "1"}},
	)
	require.NoError(t, err)
	require.Equal(t, testSalt, token.Salt)
	require.Equal(t, cookies.Set{"stale": "1", "JSESSIONID": "login-page"}, jar)
}

func TestLogout(t *testing.T) {
	cas := &fakeCAS{t: t, page: loginPage}
	server := cas.serve()
	defer server.Close()

	flow := newTestFlow(server, &telemetry.Recorder{})

	// unauthenticated sessions never reach the gateway
	cleared := flow.Logout(context.Background(), eams.Session{
		StudentID: testStudentID,
		Cookies:   cookies.Set{"JSESSIONID": "x"},
	})
	require.Empty(t, cleared.Cookies)
	require.EqualValues(t, 0, cas.logouts.Load())

	cleared = flow.Logout(context.Background(), eams.Session{
		StudentID:     testStudentID,
		Cookies:       cookies.Set{"CASTGC": "TGT-42-abc"},
		Authenticated: true,
	})
	require.False(t, cleared.Authenticated)
	require.Empty(t, cleared.Cookies)
	require.Equal(t, testStudentID, cleared.StudentID)
	require.EqualValues(t, 1, cas.logouts.Load())
}

func TestLogoutFailureIsSwallowed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway down", http.StatusBadGateway)
	}))
	defer server.Close()

	rec := &telemetry.Recorder{}
	cleared := newTestFlow(server, rec).Logout(context.Background(), eams.Session{
		StudentID:     testStudentID,
		Cookies:       cookies.Set{"CASTGC": "TGT"},
		Authenticated: true,
	})
	require.False(t, cleared.Authenticated)
	require.Len(t, rec.Reports("warning"), 1)
}
