package crawler

import (
	"compress/flate"
	"compress/gzip"
	"errors"
	"fmt"
	"html"
	"io"
	"net"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/corpuslab/quantang-cli/internal/identity"
	"github.com/corpuslab/quantang-cli/internal/model"
)

// Fetcher performs one volume request using a checked-out identity and
// returns the decoded body. Transport failures come back as errors; the
// orchestrator maps them onto the outcome taxonomy.
type Fetcher interface {
	Fetch(id *identity.Identity, volume int) (status int, body string, err error)
}

// HTTPFetcher fetches volume pages from the document store. The in-flight
// request is bounded by the identity client's timeout rather than a
// caller context, so cancellation never truncates an attempt.
type HTTPFetcher struct {
	baseURL string
}

// NewHTTPFetcher creates a fetcher for the given base URL.
func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{baseURL: strings.TrimRight(baseURL, "/")}
}

// URL returns the request URL for a volume.
func (f *HTTPFetcher) URL(volume int) string {
	return fmt.Sprintf("%s/%d/zh", f.baseURL, volume)
}

// Fetch issues the GET with the identity's header fingerprint, decodes
// any gzip/deflate content encoding, and unescapes HTML entities so the
// classifier and extractor see plain markup.
func (f *HTTPFetcher) Fetch(id *identity.Identity, volume int) (int, string, error) {
	resp, err := id.Client().R().
		SetHeaders(id.Fingerprint().Headers()).
		SetDoNotParseResponse(true).
		Get(f.URL(volume))
	if err != nil {
		return 0, "", eris.Wrapf(err, "fetch: volume %d", volume)
	}
	raw := resp.RawBody()
	defer raw.Close() //nolint:errcheck

	body, err := decodeBody(raw, resp.Header().Get("Content-Encoding"))
	if err != nil {
		return 0, "", eris.Wrapf(err, "fetch: decode volume %d", volume)
	}

	return resp.StatusCode(), html.UnescapeString(body), nil
}

func decodeBody(r io.Reader, encoding string) (string, error) {
	switch strings.ToLower(encoding) {
	case "gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return "", eris.Wrap(err, "gzip reader")
		}
		defer gz.Close() //nolint:errcheck
		r = gz
	case "deflate":
		fl := flate.NewReader(r)
		defer fl.Close() //nolint:errcheck
		r = fl
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return "", eris.Wrap(err, "read body")
	}
	return string(data), nil
}

// transportOutcome maps a fetch error onto the outcome taxonomy:
// deadline-style failures are timeouts, everything else at this layer is
// a connection error. Both are retryable.
func transportOutcome(err error) model.Outcome {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.Outcome{Kind: model.OutcomeTimeout}
	}
	msg := strings.ToLower(err.Error())
	for _, p := range []string{"timeout", "deadline exceeded"} {
		if strings.Contains(msg, p) {
			return model.Outcome{Kind: model.OutcomeTimeout}
		}
	}
	return model.Outcome{Kind: model.OutcomeConnectionError}
}
