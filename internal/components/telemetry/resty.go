package telemetry

import (
	"context"
	"errors"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_resty_request  = "resty.request"
	report_resty_response = "resty.response"
)

// InstrumentResty wraps every request of client in a span from the tracer
// named tracerName and reports one debug line per request and per response.
// The transport follows redirects itself, so each hop is its own span.
func InstrumentResty(client *resty.Client, tracerName string, tel API) {
	hooks := &restyHooks{
		tel:    tel,
		tracer: otel.Tracer(tracerName),
	}
	client.OnBeforeRequest(hooks.before)
	client.OnAfterResponse(hooks.after)
	client.OnError(hooks.failed)
}

type restyHooks struct {
	tel    API
	tracer trace.Tracer
	seq    atomic.Uint64
}

type hopKey struct{}

type hop struct {
	seq   uint64
	start time.Time
}

func spanName(method, rawURL string) string {
	if parsed, err := url.Parse(rawURL); err == nil && parsed.Path != "" {
		return method + " " + parsed.Path
	}
	return method
}

func (h *restyHooks) before(_ *resty.Client, req *resty.Request) error {
	ctx, _ := h.tracer.Start(
		req.Context(),
		spanName(req.Method, req.URL),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	current := hop{seq: h.seq.Add(1), start: time.Now()}
	req.SetContext(context.WithValue(ctx, hopKey{}, current))

	h.tel.ReportDebug(report_resty_request, current.seq, req.Method, req.URL)
	return nil
}

func (h *restyHooks) after(_ *resty.Client, res *resty.Response) error {
	ctx := res.Request.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()

	setCookies := len(res.Header().Values("Set-Cookie"))
	span.SetAttributes(
		attribute.String("http.method", res.Request.Method),
		attribute.String("http.url", res.Request.URL),
		attribute.Int("http.status_code", res.StatusCode()),
		attribute.Int("eams.set_cookie_count", setCookies),
	)
	if location := res.Header().Get("Location"); location != "" {
		span.SetAttributes(attribute.String("eams.redirect_location", location))
	}
	if res.StatusCode() >= 400 {
		span.SetStatus(codes.Error, res.Status())
	}

	current, ok := ctx.Value(hopKey{}).(hop)
	if !ok {
		return nil
	}
	h.tel.ReportDebug(
		report_resty_response,
		current.seq,
		res.StatusCode(),
		time.Since(current.start).String(),
		"set-cookie", setCookies,
	)
	return nil
}

// failed reports transport errors. A cancelled caller is not a broken
// upstream, so those only produce a warning.
func (h *restyHooks) failed(req *resty.Request, err error) {
	ctx := req.Context()
	span := trace.SpanFromContext(ctx)
	defer span.End()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var elapsed time.Duration
	if current, ok := ctx.Value(hopKey{}).(hop); ok {
		elapsed = time.Since(current.start)
	}

	if errors.Is(err, context.Canceled) {
		h.tel.ReportWarning(report_resty_response, err, req.Method, req.URL, elapsed)
		return
	}
	h.tel.ReportBroken(report_resty_response, err, req.Method, req.URL, elapsed)
}
