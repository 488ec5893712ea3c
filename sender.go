package ilp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config holds configuration for a sender session. The zero value of most
// fields means "use the default"; thresholds can be disabled with -1.
type Config struct {
	// Address is the endpoint as host:port.
	// Required.
	Address string

	// Protocol selects the transport: "tcp", "tcps", "http" or "https".
	// Defaults to "tcp".
	Protocol string

	// Username and Password enable HTTP Basic authentication.
	Username string
	Password string

	// Token enables HTTP Bearer authentication. Takes precedence over
	// Username/Password when both are set.
	Token string

	// KeyID and Key enable the TCP challenge-response authentication.
	// Key is the base64url-encoded P-256 private scalar.
	KeyID string
	Key   string

	// TLSVerify is the certificate verification mode: "on" (default) or
	// "unsafe_off" for trusted local networks.
	TLSVerify string

	// TLSRoots is an optional path to a PEM bundle of additional CA
	// certificates.
	TLSRoots string

	// AutoFlushBytes flushes when the buffer reaches this size.
	// Default 64KiB; -1 disables.
	AutoFlushBytes int

	// AutoFlushRows flushes when this many rows are buffered.
	// Default 75000; -1 disables.
	AutoFlushRows int

	// AutoFlushInterval flushes on commit when this much time passed since
	// the last flush. Default 1s; -1 disables. Checked only on commit:
	// there is no background timer.
	AutoFlushInterval time.Duration

	// MaxRetries is the number of retry attempts after a failed send.
	// Default 3.
	MaxRetries int

	// RetryBackoff and MaxRetryBackoff bound the jittered exponential
	// backoff between retries. Defaults 250ms and 5s.
	RetryBackoff    time.Duration
	MaxRetryBackoff time.Duration

	// ConnectTimeout bounds dialing and the auth handshake. Default 5s.
	ConnectTimeout time.Duration

	// RequestTimeout bounds one HTTP request/response cycle. Default 10s.
	RequestTimeout time.Duration

	// InitBufSize is the buffer's initial capacity. Default 64KiB.
	InitBufSize int

	// MaxNameLen is the table/column name length limit. Default 127.
	MaxNameLen int

	// GzipRequests compresses HTTP request bodies.
	GzipRequests bool

	// CloseWithoutFlush skips the final flush on Close.
	CloseWithoutFlush bool

	// Logger receives retry and reconnect events. Nil disables logging.
	Logger *zerolog.Logger

	// NewCircuitBreaker, when set, creates a circuit breaker guarding
	// flushes. Called once with the endpoint address. See
	// NewCircuitBreakerConfig.
	NewCircuitBreaker func(addr string) CircuitBreaker
}

func (c Config) withDefaults() Config {
	if c.Protocol == "" {
		c.Protocol = ProtocolTCP
	}
	if c.AutoFlushBytes == 0 {
		c.AutoFlushBytes = DefaultAutoFlushBytes
	}
	if c.AutoFlushRows == 0 {
		c.AutoFlushRows = DefaultAutoFlushRows
	}
	if c.AutoFlushInterval == 0 {
		c.AutoFlushInterval = DefaultAutoFlushInterval
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	} else if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = DefaultRetryBackoff
	}
	if c.MaxRetryBackoff <= 0 {
		c.MaxRetryBackoff = DefaultMaxRetryBackoff
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.InitBufSize <= 0 {
		c.InitBufSize = DefaultInitBufSize
	}
	if c.MaxNameLen <= 0 {
		c.MaxNameLen = DefaultMaxNameLen
	}
	return c
}

// Sender is an ingestion session: it owns a buffer, a transport, and the
// flush policy tying them together. One producer goroutine per Sender; use
// independent senders (or a SenderPool) for concurrent producers.
type Sender struct {
	conf      Config
	buf       *Buffer
	tr        transport
	log       zerolog.Logger
	cb        CircuitBreaker
	stats     senderStatsCollector
	lastFlush time.Time
	closed    bool
}

// New creates a sender and, for streaming transports, connects and
// authenticates eagerly so configuration errors surface at construction.
func New(conf Config) (*Sender, error) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.withDefaults().ConnectTimeout)
	defer cancel()
	return newSender(ctx, conf)
}

func newSender(ctx context.Context, conf Config) (*Sender, error) {
	conf = conf.withDefaults()
	if conf.Address == "" {
		return nil, fmt.Errorf("%w: address is required", ErrConnection)
	}

	var tr transport
	var err error
	switch conf.Protocol {
	case ProtocolTCP, ProtocolTCPS:
		tr, err = newTCPTransport(conf)
	case ProtocolHTTP, ProtocolHTTPS:
		tr, err = newHTTPTransport(conf)
	default:
		return nil, fmt.Errorf("%w: unknown protocol %q", ErrConnection, conf.Protocol)
	}
	if err != nil {
		return nil, err
	}

	s := &Sender{
		conf:      conf,
		buf:       NewBuffer(conf.InitBufSize),
		tr:        tr,
		log:       zerolog.Nop(),
		lastFlush: time.Now(),
	}
	s.buf.SetMaxNameLen(conf.MaxNameLen)
	if conf.Logger != nil {
		s.log = *conf.Logger
	}
	if conf.NewCircuitBreaker != nil {
		s.cb = conf.NewCircuitBreaker(conf.Address)
	}

	if err := tr.Connect(ctx); err != nil {
		tr.Close()
		return nil, err
	}
	return s, nil
}

// Table opens a new row for the given table.
func (s *Sender) Table(name string) error {
	if s.closed {
		return ErrClosed
	}
	return s.buf.Table(name)
}

// Symbol appends a symbol (tag) column to the open row.
func (s *Sender) Symbol(name, value string) error {
	if s.closed {
		return ErrClosed
	}
	return s.buf.Symbol(name, value)
}

// BoolField appends a boolean field column to the open row.
func (s *Sender) BoolField(name string, value bool) error {
	if s.closed {
		return ErrClosed
	}
	return s.buf.BoolField(name, value)
}

// Int64Field appends an integer field column to the open row.
func (s *Sender) Int64Field(name string, value int64) error {
	if s.closed {
		return ErrClosed
	}
	return s.buf.Int64Field(name, value)
}

// Float64Field appends a float field column to the open row.
func (s *Sender) Float64Field(name string, value float64) error {
	if s.closed {
		return ErrClosed
	}
	return s.buf.Float64Field(name, value)
}

// StringField appends a string field column to the open row.
func (s *Sender) StringField(name, value string) error {
	if s.closed {
		return ErrClosed
	}
	return s.buf.StringField(name, value)
}

// TimestampField appends a timestamp-typed field column to the open row.
func (s *Sender) TimestampField(name string, value time.Time) error {
	if s.closed {
		return ErrClosed
	}
	return s.buf.TimestampField(name, value)
}

// Discard rolls back the open row.
func (s *Sender) Discard() {
	s.buf.Discard()
}

// Commit finalizes the open row with no designated timestamp (the server
// assigns ingestion time), then evaluates the auto-flush policy.
func (s *Sender) Commit(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.buf.Commit(); err != nil {
		return err
	}
	s.stats.rowsCommitted.Add(1)
	return s.maybeAutoFlush(ctx)
}

// At finalizes the open row with the given designated timestamp.
func (s *Sender) At(ctx context.Context, ts time.Time) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.buf.At(ts); err != nil {
		return err
	}
	return s.Commit(ctx)
}

// AtNanos finalizes the open row with a designated timestamp in epoch
// nanoseconds.
func (s *Sender) AtNanos(ctx context.Context, nanos int64) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.buf.AtNanos(nanos); err != nil {
		return err
	}
	return s.Commit(ctx)
}

// Buffered returns the committed but not yet flushed size in bytes.
func (s *Sender) Buffered() int {
	return s.buf.Len()
}

// Stats returns a snapshot of the sender's counters.
func (s *Sender) Stats() SenderStats {
	return s.stats.snapshot()
}

// Flush sends the whole committed buffer through the transport. Transient
// faults are retried with backoff up to MaxRetries; on success the buffer is
// cleared, on failure it is left intact for the caller to retry or persist.
// Rejections and TLS trust failures are surfaced immediately without retry.
func (s *Sender) Flush(ctx context.Context) error {
	if s.closed {
		return ErrClosed
	}
	if s.buf.RowInProgress() {
		return ErrRowOpen
	}
	if s.buf.Len() == 0 {
		s.lastFlush = time.Now()
		return nil
	}

	var err error
	if s.cb != nil {
		_, err = s.cb.Execute(func() (bool, error) {
			return true, s.flushRetry(ctx)
		})
		if err != nil && !isFlushError(err) {
			// Breaker open: fail fast, buffer intact.
			err = fmt.Errorf("%w: %v", ErrFlush, err)
		}
	} else {
		err = s.flushRetry(ctx)
	}
	if err != nil {
		s.stats.flushErrors.Add(1)
		return err
	}

	s.stats.flushes.Add(1)
	s.stats.rowsSent.Add(uint64(s.buf.Rows()))
	s.stats.bytesSent.Add(uint64(s.buf.Len()))
	s.log.Debug().Int("rows", s.buf.Rows()).Int("bytes", s.buf.Len()).Msg("flushed")
	s.buf.Reset()
	s.lastFlush = time.Now()
	return nil
}

// Close flushes pending rows (unless CloseWithoutFlush) and releases the
// transport. A row still open at close time is discarded; rows already
// committed are always flushed. Closing twice is a no-op.
func (s *Sender) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}

	var ferr error
	if !s.conf.CloseWithoutFlush {
		s.buf.Discard()
		if s.buf.Len() > 0 {
			ferr = s.Flush(ctx)
		}
	}
	s.closed = true

	if cerr := s.tr.Close(); cerr != nil && ferr == nil {
		ferr = cerr
	}
	return ferr
}

// flushRetry sends the buffer, reconnecting and backing off between
// attempts. Only transient connection faults are retried.
func (s *Sender) flushRetry(ctx context.Context) error {
	data := s.buf.Bytes()
	bo := newBackoff(s.conf.RetryBackoff, s.conf.MaxRetryBackoff)

	var err error
	for attempt := 0; ; attempt++ {
		err = s.sendOnce(ctx, data)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConnection) {
			// Rejected data, TLS trust failure, closed sender: retrying
			// unchanged input cannot succeed.
			return err
		}
		if attempt >= s.conf.MaxRetries {
			break
		}
		s.stats.retries.Add(1)
		s.log.Warn().Err(err).Int("attempt", attempt+1).Msg("flush failed, retrying")
		s.tr.reset()
		if werr := bo.sleep(ctx); werr != nil {
			return fmt.Errorf("%w: cancelled during retry: %v", ErrFlush, werr)
		}
	}
	return fmt.Errorf("%w: %d attempts: %v", ErrFlush, s.conf.MaxRetries+1, err)
}

func (s *Sender) sendOnce(ctx context.Context, data []byte) error {
	if err := s.tr.Connect(ctx); err != nil {
		return err
	}
	return s.tr.Send(ctx, data)
}

// maybeAutoFlush flushes synchronously when any configured threshold is
// crossed: row count, byte size, or time since the last flush.
func (s *Sender) maybeAutoFlush(ctx context.Context) error {
	rows, size := s.buf.Rows(), s.buf.Len()
	if size == 0 {
		return nil
	}

	trigger := ""
	switch {
	case s.conf.AutoFlushRows > 0 && rows >= s.conf.AutoFlushRows:
		trigger = "rows"
	case s.conf.AutoFlushBytes > 0 && size >= s.conf.AutoFlushBytes:
		trigger = "bytes"
	case s.conf.AutoFlushInterval > 0 && time.Since(s.lastFlush) >= s.conf.AutoFlushInterval:
		trigger = "interval"
	}
	if trigger == "" {
		return nil
	}

	s.log.Debug().Str("trigger", trigger).Int("rows", rows).Int("bytes", size).Msg("auto-flush")
	return s.Flush(ctx)
}

func isFlushError(err error) bool {
	return errors.Is(err, ErrFlush) || errors.Is(err, ErrRejected) ||
		errors.Is(err, ErrTLS) || errors.Is(err, ErrConnection) || errors.Is(err, ErrClosed)
}
