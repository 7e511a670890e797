// Package restyutil writes every HTTP exchange of a resty client to disk, so
// a scrape can be replayed by eye when upstream markup drifts.
package restyutil

import (
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/go-resty/resty/v2"
)

// Output receives one named dump per exchange.
type Output interface {
	Write(name string, contents string)
}

// Form fields whose values never reach a dump.
var redactedFields = []string{"password"}

// DirOutput writes each dump to its own file in a directory.
type DirOutput struct {
	dir string
}

// NewFilesystemOutput empties dir so it only holds the dumps of one run.
func NewFilesystemOutput(dir string) (DirOutput, error) {
	if err := os.RemoveAll(dir); err != nil {
		return DirOutput{}, err
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return DirOutput{}, err
	}
	return DirOutput{dir: dir}, nil
}

func (o DirOutput) Write(name string, contents string) {
	err := os.WriteFile(filepath.Join(o.dir, name), []byte(contents), 0600)
	if err != nil {
		slog.Warn("failed to write http dump", "name", name, "err", err)
	}
}

// DumpMessages hooks client so every completed exchange is written to output
// as "<seq>-<last path segment>-<status>.txt". A nil output is a no-op.
func DumpMessages(client *resty.Client, output Output) {
	if output == nil {
		return
	}
	var seq atomic.Uint64
	client.OnAfterResponse(func(_ *resty.Client, res *resty.Response) error {
		n := seq.Add(1)
		name := fmt.Sprintf("%04d-%s-%d.txt", n, dumpSlug(res.Request.URL), res.StatusCode())
		output.Write(name, FormatExchange(res))
		return nil
	})
}

var unsafeSlugChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func dumpSlug(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "request"
	}
	base := path.Base(parsed.Path)
	if base == "/" || base == "." {
		return "root"
	}
	return unsafeSlugChars.ReplaceAllString(base, "_")
}

func writeHeaders(out *strings.Builder, headers http.Header) {
	for _, name := range slices.Sorted(maps.Keys(headers)) {
		for _, value := range headers[name] {
			fmt.Fprintf(out, "%s: %s\n", name, value)
		}
	}
}

func requestBody(req *http.Request) string {
	if req == nil || req.GetBody == nil {
		return ""
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Sprintf("<unreadable body: %s>", err)
	}
	raw, err := io.ReadAll(body)
	if err != nil {
		return fmt.Sprintf("<unreadable body: %s>", err)
	}
	return redactForm(req.Header.Get("Content-Type"), string(raw))
}

// redactForm masks sensitive fields of urlencoded bodies, other bodies are
// returned unchanged.
func redactForm(contentType, body string) string {
	if !strings.HasPrefix(contentType, "application/x-www-form-urlencoded") {
		return body
	}
	form, err := url.ParseQuery(body)
	if err != nil {
		return body
	}
	for _, field := range redactedFields {
		if form.Has(field) {
			form.Set(field, "<redacted>")
		}
	}
	return form.Encode()
}

// FormatExchange renders the request and response of res as plain text.
// Redirects are not followed by the transport, so a 302 dump shows the
// Location and Set-Cookie headers of that hop.
func FormatExchange(res *resty.Response) string {
	var out strings.Builder

	out.WriteString("==> ")
	out.WriteString(res.Request.Method + " " + res.Request.URL + "\n")
	if raw := res.Request.RawRequest; raw != nil {
		writeHeaders(&out, raw.Header)
		if body := requestBody(raw); body != "" {
			out.WriteString("\n" + body + "\n")
		}
	}

	fmt.Fprintf(&out, "\n<== %d %s\n", res.StatusCode(), res.Request.URL)
	writeHeaders(&out, res.Header())
	out.WriteString("\n")
	out.Write(res.Body())
	return out.String()
}
