package ilp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/pior/ilp/internal/bufpool"
)

// httpTransport delivers the buffer as one POST per flush. Unlike the
// streaming transports the server answers every send, so data defects are
// reported precisely: a 4xx-class response is a client bug and must not be
// retried, while the retryable status set maps to ErrConnection so the
// session's retry loop treats it like any transient fault.
type httpTransport struct {
	url    string
	auth   httpAuth
	client *http.Client
	gzip   bool
	bufs   *bufpool.Pool
}

// Statuses that indicate a transient server condition. Everything else
// non-2xx is a terminal rejection.
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

func newHTTPTransport(conf Config) (*httpTransport, error) {
	scheme := "http"
	if conf.Protocol == ProtocolHTTPS {
		scheme = "https"
	}

	u := url.URL{Scheme: scheme, Host: conf.Address, Path: httpWritePath}

	inner := http.DefaultTransport.(*http.Transport).Clone()
	if scheme == "https" {
		tc, err := newTLSConfig(conf)
		if err != nil {
			return nil, err
		}
		inner.TLSClientConfig = tc
	}

	return &httpTransport{
		url:  u.String(),
		auth: httpAuth{username: conf.Username, password: conf.Password, token: conf.Token},
		client: &http.Client{
			Transport: inner,
			Timeout:   conf.RequestTimeout,
		},
		gzip: conf.GzipRequests,
		bufs: bufpool.New(DefaultInitBufSize, 8*DefaultInitBufSize),
	}, nil
}

// Connect is a no-op: HTTP connections are established per request and
// pooled by the underlying http.Transport.
func (t *httpTransport) Connect(ctx context.Context) error {
	return nil
}

// Send runs one full request/response cycle for the payload.
func (t *httpTransport) Send(ctx context.Context, data []byte) error {
	body := t.bufs.Get()
	defer t.bufs.Put(body)

	encoding := ""
	if t.gzip {
		zw := gzip.NewWriter(body)
		if _, err := zw.Write(data); err != nil {
			return fmt.Errorf("%w: gzip: %v", ErrConnection, err)
		}
		if err := zw.Close(); err != nil {
			return fmt.Errorf("%w: gzip: %v", ErrConnection, err)
		}
		encoding = "gzip"
	} else {
		body.Write(data)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body.Bytes()))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrConnection, err)
	}
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if encoding != "" {
		req.Header.Set("Content-Encoding", encoding)
	}
	t.auth.apply(req)

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if retryableStatus[resp.StatusCode] {
		return fmt.Errorf("%w: server unavailable (status %d)", ErrConnection, resp.StatusCode)
	}
	return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode, strings.TrimSpace(string(detail)))
}

// Close releases pooled connections. Safe to call repeatedly.
func (t *httpTransport) Close() error {
	t.client.CloseIdleConnections()
	return nil
}

// reset is a no-op: there is no session state to tear down between retries.
func (t *httpTransport) reset() {}
