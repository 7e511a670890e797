package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"eamsassist-backend/internal/components/telemetry"
	"eamsassist-backend/internal/eams"
	"eamsassist-backend/internal/eams/cookies"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// redirectChain serves /hop/<n> as a 302 to /hop/<n-1> until n reaches zero,
// setting a cookie on every hop.
func redirectChain(t testing.TB) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/hop/", func(w http.ResponseWriter, r *http.Request) {
		n, err := strconv.Atoi(strings.TrimPrefix(r.URL.Path, "/hop/"))
		if err != nil {
			t.Error(err)
			return
		}
		http.SetCookie(w, &http.Cookie{Name: fmt.Sprintf("hop%d", n), Value: "1", Path: "/"})
		http.SetCookie(w, &http.Cookie{Name: "last", Value: strconv.Itoa(n)})
		if n == 0 {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, "done, cookie header: %s", r.Header.Get("Cookie"))
			return
		}
		w.Header().Set("Location", fmt.Sprintf("/hop/%d", n-1))
		w.WriteHeader(http.StatusFound)
	})
	return httptest.NewServer(mux)
}

func newTestClient(rec *telemetry.Recorder) *Client {
	return NewClient(Options{}, rec)
}

func TestRedirectBudget(t *testing.T) {
	server := redirectChain(t)
	defer server.Close()

	client := newTestClient(&telemetry.Recorder{})

	res, err := client.Do(context.Background(), Request{
		Method:       http.MethodGet,
		URL:          server.URL + "/hop/4",
		Cookies:      cookies.Set{"seed": "x"},
		MaxRedirects: 4,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, server.URL+"/hop/0", res.URL)
	require.Empty(t, cmp.Diff(cookies.Set{
		"seed": "x",
		"hop4": "1",
		"hop3": "1",
		"hop2": "1",
		"hop1": "1",
		"hop0": "1",
		"last": "0",
	}, res.Cookies))
	// cookies accumulated along the chain were sent on the final hop
	require.Contains(t, res.Text(), "hop1=1")
	require.Contains(t, res.Text(), "seed=x")

	_, err = client.Do(context.Background(), Request{
		Method:       http.MethodGet,
		URL:          server.URL + "/hop/5",
		MaxRedirects: 4,
	})
	var protoErr *eams.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, "too many redirects", protoErr.Reason)
}

func TestDefaultRedirectBudget(t *testing.T) {
	server := redirectChain(t)
	defer server.Close()

	client := newTestClient(&telemetry.Recorder{})
	_, err := client.Get(context.Background(), server.URL+"/hop/4", nil)
	require.NoError(t, err)
	_, err = client.Get(context.Background(), server.URL+"/hop/5", nil)
	require.Error(t, err)
}

func TestNoRedirects(t *testing.T) {
	server := redirectChain(t)
	defer server.Close()

	client := NewClient(Options{MaxRedirects: NoRedirects}, &telemetry.Recorder{})
	_, err := client.Get(context.Background(), server.URL+"/hop/1", nil)
	var protoErr *eams.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, "too many redirects", protoErr.Reason)

	// the final page itself needs no budget
	res, err := client.Get(context.Background(), server.URL+"/hop/0", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status)

	_, err = newTestClient(&telemetry.Recorder{}).Do(context.Background(), Request{
		Method:       http.MethodGet,
		URL:          server.URL + "/hop/1",
		MaxRedirects: NoRedirects,
	})
	require.ErrorAs(t, err, &protoErr)
}

func TestMissingLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	defer server.Close()

	_, err := newTestClient(&telemetry.Recorder{}).Get(context.Background(), server.URL, nil)
	var protoErr *eams.ProtocolError
	require.ErrorAs(t, err, &protoErr)
	require.Equal(t, "missing redirect target", protoErr.Reason)
}

func TestStatusFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestClient(&telemetry.Recorder{}).Get(context.Background(), server.URL+"/eams", nil)
	var statusErr *eams.StatusError
	require.True(t, errors.As(err, &statusErr))
	require.Equal(t, http.StatusForbidden, statusErr.Status)
}

func TestPostFormThenRedirect(t *testing.T) {
	var posted url.Values
	var redirectedMethod string
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		posted = r.PostForm
		require.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		w.Header().Add("Set-Cookie", "CASTGC=TGT-1; Path=/authserver; HttpOnly")
		w.Header().Set("Location", "/home")
		w.WriteHeader(http.StatusFound)
	})
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {
		redirectedMethod = r.Method
		w.Header().Set("Content-Type", "application/json;charset=UTF-8")
		w.Write([]byte(`{"termBegin":"2025-02-17"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	rec := &telemetry.Recorder{}
	res, err := newTestClient(rec).PostForm(
		context.Background(),
		server.URL+"/login",
		url.Values{"username": {"2023533000"}},
		cookies.Set{"JSESSIONID": "abc"},
	)
	require.NoError(t, err)
	require.Equal(t, "2023533000", posted.Get("username"))
	require.Equal(t, http.MethodGet, redirectedMethod)
	require.Equal(t, "TGT-1", res.Cookies["CASTGC"])
	require.Equal(t, "abc", res.Cookies["JSESSIONID"])

	require.True(t, res.IsJSON())
	var body struct {
		TermBegin string `json:"termBegin"`
	}
	require.NoError(t, res.JSON(&body))
	require.Equal(t, "2025-02-17", body.TermBegin)

	// one trace line per hop
	hops := 0
	for _, report := range rec.Reports("debug") {
		if strings.HasSuffix(report.ID, report_transport_do) {
			hops++
		}
	}
	require.Equal(t, 2, hops)
	require.Empty(t, rec.Broken())
}
