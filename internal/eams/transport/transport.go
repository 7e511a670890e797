// Package transport is the HTTP layer of the scraping engine. It follows 302
// redirects by hand so that every Set-Cookie along the chain lands in the
// caller's cookie set, which net/http's jar-based following would hide.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"eamsassist-backend/internal/components/assert"
	"eamsassist-backend/internal/components/telemetry"
	"eamsassist-backend/internal/eams"
	"eamsassist-backend/internal/eams/cookies"
	"eamsassist-backend/lib/restyutil"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_transport_do = "transport.do"
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Safari/537.36 Chrome/91.0.4472.164"

type Options struct {
	// Timeout per HTTP hop, defaults to 30 seconds.
	Timeout time.Duration
	// RequestsPerSecond paces outgoing hops, 0 disables pacing.
	RequestsPerSecond float64
	// MaxRedirects is used for requests that do not set their own budget,
	// NoRedirects disallows them.
	MaxRedirects int
	UserAgent    string
	// Dump receives every raw request/response pair, it may be nil.
	Dump restyutil.Output
}

type Client struct {
	http         *resty.Client
	tel          telemetry.API
	maxRedirects int
}

func NewClient(opts Options, tel telemetry.API) *Client {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("transport", tel)

	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}
	if opts.MaxRedirects == 0 {
		opts.MaxRedirects = eams.DefaultMaxRedirects
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	httpClient := resty.New()
	httpClient.SetTimeout(opts.Timeout)
	httpClient.SetHeader("user-agent", opts.UserAgent)
	// cookies are carried explicitly in the Cookie header, never by a jar
	httpClient.SetCookieJar(nil)
	httpClient.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))

	if opts.RequestsPerSecond > 0 {
		// burst >= 1 just means that no requests will be dropped
		rateLimiter := rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
		httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
			return rateLimiter.Wait(req.Context())
		})
	}

	telemetry.InstrumentResty(httpClient, "eams/transport", tel)
	restyutil.DumpMessages(httpClient, opts.Dump)

	return &Client{
		http:         httpClient,
		tel:          tel,
		maxRedirects: opts.MaxRedirects,
	}
}

type Request struct {
	Method string
	URL    string
	// Form is sent url-encoded when non-nil.
	Form    url.Values
	Cookies cookies.Set
	// MaxRedirects overrides the client's budget when non-zero, NoRedirects
	// turns any 302 into an error.
	MaxRedirects int
}

// NoRedirects is a redirect budget of zero.
const NoRedirects = -1

type Response struct {
	Status      int
	URL         string
	Body        []byte
	ContentType string
	// Cookies is the request's cookie set merged with every Set-Cookie seen
	// along the redirect chain.
	Cookies cookies.Set
	// Location is set when the terminal response still carried one.
	Location string
}

func (r Response) Text() string {
	return string(r.Body)
}

// IsJSON reports whether the declared content type is a JSON payload.
func (r Response) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// JSON decodes the body into v.
func (r Response) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// Do sends req and follows up to the redirect budget of 302 responses.
// Redirect follow-ups are always GETs carrying the cumulative cookie set.
func (c *Client) Do(ctx context.Context, req Request) (Response, error) {
	remaining := req.MaxRedirects
	if remaining == 0 {
		remaining = c.maxRedirects
	}
	remaining = max(remaining, 0)

	jar := req.Cookies.Clone()
	method := req.Method
	target := req.URL
	form := req.Form

	for {
		res, err := c.hop(ctx, method, target, form, jar)
		if err != nil {
			return Response{}, err
		}
		jar = cookies.Merge(jar, res.Header().Values("Set-Cookie"))
		location := res.Header().Get("Location")

		c.tel.ReportDebug(report_transport_do, method, res.StatusCode(), target)

		status := res.StatusCode()
		if status == http.StatusFound {
			if location == "" {
				return Response{}, &eams.ProtocolError{Reason: "missing redirect target", URL: target}
			}
			if remaining <= 0 {
				return Response{}, &eams.ProtocolError{Reason: "too many redirects", URL: target}
			}
			remaining--

			next, err := resolve(target, location)
			if err != nil {
				return Response{}, &eams.ProtocolError{Reason: fmt.Sprintf("bad redirect target %q", location), URL: target}
			}
			method = http.MethodGet
			target = next
			form = nil
			continue
		}
		if status >= 400 {
			return Response{}, &eams.StatusError{Status: status, Method: method, URL: target}
		}

		return Response{
			Status:      status,
			URL:         target,
			Body:        res.Body(),
			ContentType: res.Header().Get("Content-Type"),
			Cookies:     jar,
			Location:    location,
		}, nil
	}
}

func (c *Client) hop(ctx context.Context, method, target string, form url.Values, jar cookies.Set) (*resty.Response, error) {
	r := c.http.R().SetContext(ctx)
	if len(jar) > 0 {
		r.SetHeader("Cookie", jar.Header())
	}
	if form != nil {
		r.SetHeader("Content-Type", "application/x-www-form-urlencoded")
		r.SetBody(form.Encode())
	}
	res, err := r.Execute(method, target)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	return res, nil
}

func resolve(base, location string) (string, error) {
	baseUrl, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(location)
	if err != nil {
		return "", err
	}
	return baseUrl.ResolveReference(ref).String(), nil
}

// Get is Do with a GET request.
func (c *Client) Get(ctx context.Context, target string, jar cookies.Set) (Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: target, Cookies: jar})
}

// PostForm is Do with a url-encoded POST request.
func (c *Client) PostForm(ctx context.Context, target string, form url.Values, jar cookies.Set) (Response, error) {
	if form == nil {
		form = url.Values{}
	}
	return c.Do(ctx, Request{Method: http.MethodPost, URL: target, Form: form, Cookies: jar})
}
