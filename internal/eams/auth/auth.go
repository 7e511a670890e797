// Package auth drives the CAS password login that yields an EAMS session.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"eamsassist-backend/internal/components/assert"
	"eamsassist-backend/internal/components/telemetry"
	"eamsassist-backend/internal/eams"
	"eamsassist-backend/internal/eams/cookies"
	"eamsassist-backend/internal/eams/credential"
	"eamsassist-backend/internal/eams/markup"
	"eamsassist-backend/internal/eams/transport"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	report_flow_init            = "flow.init"
	report_flow_fetch_token     = "flow.fetch-token"
	report_flow_encode_password = "flow.encode-password"
	report_flow_login           = "flow.login"
	report_flow_logout          = "flow.logout"
)

const (
	OutcomeAuthenticated = "authenticated"
	OutcomeRejected      = "rejected"
	OutcomeFailed        = "failed"
)

var tracer = otel.Tracer("eams/auth")

type Flow struct {
	client    *transport.Client
	endpoints eams.Endpoints
	tel       telemetry.API
	outcomes  metric.Int64Counter
}

func NewFlow(client *transport.Client, endpoints eams.Endpoints, tel telemetry.API) *Flow {
	assert.NotNil(client)
	assert.NotNil(tel)
	assert.NotEmptyStr(endpoints.Login)
	tel = telemetry.NewScopedAPI("auth", tel)

	outcomes, err := otel.Meter("eams/auth").Int64Counter(
		"eams.login.outcomes",
		metric.WithDescription("Login attempts by outcome."),
	)
	if err != nil {
		tel.ReportBroken(report_flow_init, fmt.Errorf("create login counter: %w", err))
		outcomes = noop.Int64Counter{}
	}

	return &Flow{
		client:    client,
		endpoints: endpoints,
		tel:       tel,
		outcomes:  outcomes,
	}
}

// FetchToken loads the login page with the session's cookies and returns the
// one-shot login token together with the cookies the page set.
func (f *Flow) FetchToken(ctx context.Context, session eams.Session) (eams.LoginToken, cookies.Set, error) {
	res, err := f.client.Get(ctx, f.endpoints.Login, session.Cookies)
	if err != nil {
		return eams.LoginToken{}, nil, fmt.Errorf("fetch login page: %w", err)
	}
	token, err := markup.LoginToken(res.Body)
	if err != nil {
		f.tel.ReportBroken(report_flow_fetch_token, err)
		return eams.LoginToken{}, nil, err
	}
	return token, res.Cookies, nil
}

func loginForm(studentID, password string, token eams.LoginToken) url.Values {
	return url.Values{
		"username":  {studentID},
		"password":  {password},
		"captcha":   {""},
		"lt":        {token.LT},
		"cllt":      {"userNameLogin"},
		"dllt":      {token.DLLT},
		"execution": {token.Execution},
		"_eventId":  {token.EventID},
	}
}

// Login submits the password form. A rejected password is not an error: the
// returned session simply has Authenticated set to false.
func (f *Flow) Login(ctx context.Context, session eams.Session, password string) (eams.Session, error) {
	ctx, span := tracer.Start(ctx, "Login")
	defer span.End()

	token, jar, err := f.FetchToken(ctx, session)
	if err != nil {
		f.count(ctx, OutcomeFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to fetch login token")
		return session, err
	}

	encoded, err := credential.Encode(password, token.Salt)
	var encErr *eams.EncodingError
	if errors.As(err, &encErr) {
		f.tel.ReportWarning(report_flow_encode_password, err)
	}

	res, err := f.client.PostForm(ctx, f.endpoints.Login, loginForm(session.StudentID, encoded, token), jar)
	if err != nil {
		f.count(ctx, OutcomeFailed)
		f.tel.ReportBroken(report_flow_login, err, session.StudentID)
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to submit login form")
		return session, fmt.Errorf("submit login form: %w", err)
	}

	result := eams.Session{
		StudentID:     session.StudentID,
		Cookies:       res.Cookies,
		Authenticated: res.Cookies.Has(eams.TicketCookie),
	}
	if result.Authenticated {
		f.count(ctx, OutcomeAuthenticated)
	} else {
		f.count(ctx, OutcomeRejected)
		f.tel.ReportDebug(report_flow_login, "rejected", session.StudentID)
	}
	return result, nil
}

// Logout tells the gateway to drop the ticket when the session is
// authenticated. Failures are only reported, the returned session is always
// cleared.
func (f *Flow) Logout(ctx context.Context, session eams.Session) eams.Session {
	if session.Authenticated && f.endpoints.Logout != "" {
		_, err := f.client.Get(ctx, f.endpoints.Logout, session.Cookies)
		if err != nil {
			f.tel.ReportWarning(report_flow_logout, err)
		}
	}
	return session.Invalidated()
}

func (f *Flow) count(ctx context.Context, outcome string) {
	f.outcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
