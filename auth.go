package ilp

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
	"net"
	"net/http"
	"time"
)

// TCP authentication is a challenge-response handshake run immediately after
// connect: the client sends its key id, the server replies with a one-line
// challenge, the client signs the challenge's SHA-256 digest with its ECDSA
// P-256 key and sends the signature back base64 encoded. There is no
// explicit acknowledgement; the server drops the connection on failure.
type tcpAuth struct {
	keyID string
	key   *ecdsa.PrivateKey
}

// newTCPAuth builds the signing key from the base64url-encoded P-256 scalar
// supplied in the configuration.
func newTCPAuth(keyID, secret string) (*tcpAuth, error) {
	if keyID == "" || secret == "" {
		return nil, fmt.Errorf("%w: auth requires both key id and key", ErrConnection)
	}
	raw, err := base64.RawURLEncoding.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: auth key is not base64url: %v", ErrConnection, err)
	}
	key := &ecdsa.PrivateKey{
		PublicKey: ecdsa.PublicKey{Curve: elliptic.P256()},
		D:         new(big.Int).SetBytes(raw),
	}
	key.PublicKey.X, key.PublicKey.Y = key.Curve.ScalarBaseMult(raw)
	return &tcpAuth{keyID: keyID, key: key}, nil
}

const maxChallengeLen = 1024

// handshake runs the challenge-response exchange on a fresh connection.
// Failures are ErrConnection: a transient network fault and a rejected key
// look identical from the client side (the server just hangs up).
func (a *tcpAuth) handshake(ctx context.Context, conn net.Conn) error {
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
		defer conn.SetDeadline(time.Time{})
	}

	if _, err := conn.Write([]byte(a.keyID + "\n")); err != nil {
		return fmt.Errorf("%w: auth: send key id: %v", ErrConnection, err)
	}

	challenge, err := readLine(conn, maxChallengeLen)
	if err != nil {
		return fmt.Errorf("%w: auth: read challenge: %v", ErrConnection, err)
	}

	digest := sha256.Sum256(challenge)
	sig, err := ecdsa.SignASN1(rand.Reader, a.key, digest[:])
	if err != nil {
		return fmt.Errorf("%w: auth: sign challenge: %v", ErrConnection, err)
	}

	reply := base64.StdEncoding.EncodeToString(sig) + "\n"
	if _, err := conn.Write([]byte(reply)); err != nil {
		return fmt.Errorf("%w: auth: send signature: %v", ErrConnection, err)
	}
	return nil
}

// readLine reads up to a '\n', excluded from the result. Byte-at-a-time is
// fine here: the handshake happens once per connection and a buffered reader
// could swallow bytes that belong to the data stream.
func readLine(conn net.Conn, max int) ([]byte, error) {
	line := make([]byte, 0, 64)
	buf := make([]byte, 1)
	for len(line) < max {
		if _, err := conn.Read(buf); err != nil {
			return nil, err
		}
		if buf[0] == '\n' {
			return line, nil
		}
		line = append(line, buf[0])
	}
	return nil, fmt.Errorf("challenge exceeds %d bytes", max)
}

// httpAuth sets the Authorization header on outgoing requests: HTTP Basic
// for username/password, Bearer for tokens. Configured at construction,
// never negotiated.
type httpAuth struct {
	username string
	password string
	token    string
}

func (a *httpAuth) apply(req *http.Request) {
	switch {
	case a.token != "":
		req.Header.Set("Authorization", "Bearer "+a.token)
	case a.username != "":
		req.SetBasicAuth(a.username, a.password)
	}
}
