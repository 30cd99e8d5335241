package external

import "net/http"

type options struct {
	httpClient *http.Client
}

type Option func(*options)

// WithHTTPClient replaces the default transport, mostly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
