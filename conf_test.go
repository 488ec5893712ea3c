package ilp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseConfTCP(t *testing.T) {
	c, err := ParseConf("tcp::addr=localhost:9009;")
	require.NoError(t, err)
	require.Equal(t, ProtocolTCP, c.Protocol)
	require.Equal(t, "localhost:9009", c.Address)
}

func TestParseConfTCPAuth(t *testing.T) {
	c, err := ParseConf("tcps::addr=db:9009;username=kid1;token=SGVsbG8;tls_verify=unsafe_off;")
	require.NoError(t, err)
	require.Equal(t, ProtocolTCPS, c.Protocol)
	require.Equal(t, "kid1", c.KeyID, "tcp schemas map username to the auth key id")
	require.Equal(t, "SGVsbG8", c.Key)
	require.Empty(t, c.Username)
	require.Equal(t, TLSVerifyUnsafeOff, c.TLSVerify)
}

func TestParseConfHTTP(t *testing.T) {
	c, err := ParseConf("https::addr=db.example.com:9000;username=joe;password=p=ss;token=;gzip=on;")
	require.NoError(t, err)
	require.Equal(t, ProtocolHTTPS, c.Protocol)
	require.Equal(t, "joe", c.Username)
	require.Equal(t, "p=ss", c.Password, "value keeps everything after the first '='")
	require.True(t, c.GzipRequests)
}

func TestParseConfThresholds(t *testing.T) {
	c, err := ParseConf("http::addr=x:1;auto_flush_rows=100;auto_flush_bytes=4096;auto_flush_interval=2000;max_retries=5;retry_backoff=50;connect_timeout=1000;request_timeout=3000;")
	require.NoError(t, err)
	require.Equal(t, 100, c.AutoFlushRows)
	require.Equal(t, 4096, c.AutoFlushBytes)
	require.Equal(t, 2*time.Second, c.AutoFlushInterval)
	require.Equal(t, 5, c.MaxRetries)
	require.Equal(t, 50*time.Millisecond, c.RetryBackoff)
	require.Equal(t, time.Second, c.ConnectTimeout)
	require.Equal(t, 3*time.Second, c.RequestTimeout)
}

func TestParseConfEscapedSemicolon(t *testing.T) {
	c, err := ParseConf("http::addr=x:1;password=a;;b;")
	require.NoError(t, err)
	require.Equal(t, "a;b", c.Password)
}

func TestParseConfTrailingSeparatorOptional(t *testing.T) {
	c, err := ParseConf("tcp::addr=localhost:9009")
	require.NoError(t, err)
	require.Equal(t, "localhost:9009", c.Address)
}

func TestParseConfErrors(t *testing.T) {
	tests := []struct {
		name string
		conf string
	}{
		{"no schema", "addr=localhost:9009;"},
		{"unknown schema", "udp::addr=localhost:9009;"},
		{"missing addr", "tcp::auto_flush_rows=10;"},
		{"unknown key", "tcp::addr=x:1;shiny=yes;"},
		{"malformed pair", "tcp::addr=x:1;justakey;"},
		{"bad integer", "tcp::addr=x:1;auto_flush_rows=ten;"},
		{"bad gzip", "http::addr=x:1;gzip=always;"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConf(tt.conf)
			require.Error(t, err, "conf %q", tt.conf)
		})
	}
}
