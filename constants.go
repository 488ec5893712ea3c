package ilp

import "time"

// Flush policy defaults. Each threshold can be disabled with -1.
const (
	DefaultAutoFlushBytes    = 64 * 1024
	DefaultAutoFlushRows     = 75000
	DefaultAutoFlushInterval = time.Second
)

// Transport defaults.
const (
	DefaultConnectTimeout  = 5 * time.Second
	DefaultRequestTimeout  = 10 * time.Second
	DefaultMaxRetries      = 3
	DefaultRetryBackoff    = 250 * time.Millisecond
	DefaultMaxRetryBackoff = 5 * time.Second
)

// Buffer defaults.
const (
	DefaultInitBufSize = 64 * 1024
	DefaultMaxNameLen  = 127 // server-side limit on table/column names
)

// Protocol constants.
const (
	httpWritePath = "/write"

	// Supported conf string / Config.Protocol values.
	ProtocolTCP   = "tcp"
	ProtocolTCPS  = "tcps"
	ProtocolHTTP  = "http"
	ProtocolHTTPS = "https"

	// TLS certificate verification modes.
	TLSVerifyOn        = "on"
	TLSVerifyUnsafeOff = "unsafe_off" // trusted local networks only
)
