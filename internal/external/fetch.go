// Package external talks to the third-party anime providers: the Jikan
// catalog and the Kodik player index.
package external

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dom/anivers/internal/domain"
	"github.com/dom/anivers/internal/logging"
	"github.com/dom/anivers/internal/metrics"
	gobreaker "github.com/sony/gobreaker/v2"
)

const maxResponseSize = 8 << 20

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.Provider, e.StatusCode)
}

// isProviderAnswer reports whether err is a deliberate 4xx reply rather than
// an outage.
func isProviderAnswer(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode >= 400 && se.StatusCode < 500
}

// fetcher performs bounded GET requests against one provider behind a
// circuit breaker.
type fetcher struct {
	name   string
	client *http.Client
	cb     *gobreaker.CircuitBreaker[[]byte]
}

func newFetcher(name string, timeout time.Duration, client *http.Client) *fetcher {
	if client == nil {
		client = &http.Client{}
	}
	if timeout > 0 {
		c := *client
		c.Timeout = timeout
		client = &c
	}
	return &fetcher{
		name:   name,
		client: client,
		cb:     newBreaker(name),
	}
}

func (f *fetcher) get(ctx context.Context, rawURL string) ([]byte, error) {
	body, err := f.cb.Execute(func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, &StatusError{Provider: f.name, StatusCode: resp.StatusCode, Body: data}
		}
		return data, nil
	})

	switch {
	case err == nil:
		metrics.External(f.name, "success")
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.External(f.name, "rejected")
	case errors.Is(err, context.Canceled):
		metrics.External(f.name, "canceled")
	default:
		metrics.External(f.name, "failure")
		logging.Ctx(ctx).Warn().Err(err).Str("provider", f.name).Msg("external request failed")
	}
	return body, err
}

// translate turns a fetch error into a domain error. notFound is the message
// used when the provider answered 404.
func translate(provider string, err error, notFound string) error {
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusNotFound {
		return domain.NotFound(notFound)
	}
	return domain.ExternalUnavailable(provider+" is unavailable", err)
}
