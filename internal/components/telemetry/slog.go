package telemetry

import (
	"fmt"
	"log/slog"
	"os"
)

// SlogAPI implements API on top of the default slog logger.
type SlogAPI struct{}

// attrs turns report params into slog arguments. Params that already read as
// key/value pairs ("status", 200, ...) are kept as such, anything else is
// numbered params.0, params.1, ...
func attrs(head []any, params []any) []any {
	out := head
	if isKeyValues(params) {
		return append(out, params...)
	}
	for i, p := range params {
		if err, ok := p.(error); ok {
			p = err.Error()
		}
		out = append(out, fmt.Sprintf("params.%d", i), p)
	}
	return out
}

func isKeyValues(params []any) bool {
	if len(params) == 0 || len(params)%2 != 0 {
		return false
	}
	for i := 0; i < len(params); i += 2 {
		if _, ok := params[i].(string); !ok {
			return false
		}
	}
	return true
}

func (SlogAPI) ReportBroken(id string, params ...any) {
	slog.Error("broken component", attrs([]any{"id", id}, params)...)
}

func (SlogAPI) ReportWarning(id string, params ...any) {
	slog.Warn("warning", attrs([]any{"id", id}, params)...)
}

func (SlogAPI) ReportDebug(message string, params ...any) {
	slog.Debug(message, attrs(nil, params)...)
}

func (SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)
}

// InitSlog installs the default slog handler on stderr, json when asked for
// (log collectors) and text otherwise.
func InitSlog(debug bool, json bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if json {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
