package transport

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/binary"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenAudio/solana-programs/internal/crypto/ed25519"
)

type tlsCertPair struct {
	priv ed25519.PrivateKey
	cert *tls.Certificate
}

func newCert(t *testing.T) *tlsCertPair {
	t.Helper()
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	cert, err := GenerateCertificate(priv, time.Hour)
	require.NoError(t, err)
	return &tlsCertPair{priv: priv, cert: cert}
}

func TestCertificate(t *testing.T) {
	pair := newCert(t)
	require.NoError(t, ValidateCertificate(pair.cert.Leaf))

	pub := pair.priv.Public().(ed25519.PublicKey)
	assert.Equal(t, EncodePubKeyToDNS(pub), pair.cert.Leaf.DNSNames[0])
	assert.Len(t, pair.cert.Leaf.DNSNames[0], 53)

	tampered := *pair.cert.Leaf
	tampered.DNSNames = []string{EncodePubKeyToDNS(make([]byte, ed25519.PublicKeySize))}
	assert.ErrorIs(t, ValidateCertificate(&tampered), ErrInvalidCertificate)

	expired := *pair.cert.Leaf
	expired.NotAfter = time.Now().Add(-time.Second)
	assert.ErrorIs(t, ValidateCertificate(&expired), ErrInvalidCertificate)
}

func TestMessageFraming(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteMessage(ctx, &buf, []byte("hello")))
		assert.Equal(t, []byte{5, 0, 0, 0, 'h', 'e', 'l', 'l', 'o'}, buf.Bytes())

		got, err := ReadMessage(ctx, &buf)
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), got)
	})

	t.Run("oversized frame header", func(t *testing.T) {
		var buf bytes.Buffer
		buf.Write(binary.LittleEndian.AppendUint32(nil, MaxMessageSize+1))
		_, err := ReadMessage(ctx, &buf)
		assert.ErrorIs(t, err, ErrMessageTooLarge)
	})

	t.Run("oversized write", func(t *testing.T) {
		err := WriteMessage(ctx, &bytes.Buffer{}, make([]byte, MaxMessageSize+1))
		assert.ErrorIs(t, err, ErrMessageTooLarge)
	})

	t.Run("truncated content", func(t *testing.T) {
		buf := bytes.NewBuffer([]byte{4, 0, 0, 0, 1})
		_, err := ReadMessage(ctx, buf)
		assert.Error(t, err)
	})
}

func TestResponse(t *testing.T) {
	assert.NoError(t, decodeResponse(encodeResponse(nil)))

	err := decodeResponse(encodeResponse(errors.New("sum mismatch")))
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "sum mismatch")

	assert.ErrorIs(t, decodeResponse(nil), ErrMalformedResponse)
	assert.ErrorIs(t, decodeResponse([]byte{7}), ErrMalformedResponse)
}

func TestLoopback(t *testing.T) {
	var (
		mu       sync.Mutex
		received [][]byte
	)
	handler := HandlerFunc(func(_ context.Context, payload []byte) error {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, payload)
		if bytes.Equal(payload, []byte("bad")) {
			return errors.New("unknown instruction")
		}
		return nil
	})

	server, err := NewServer(Config{TLSCert: newCert(t).cert, ListenAddr: "127.0.0.1:0", Handler: handler})
	require.NoError(t, err)
	require.NoError(t, server.Start())
	t.Cleanup(func() { assert.NoError(t, server.Stop()) })

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := Dial(ctx, server.Addr().String(), newCert(t).cert)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Submit(ctx, []byte("good")))

	err = client.Submit(ctx, []byte("bad"))
	require.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "unknown instruction")

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, [][]byte{[]byte("good"), []byte("bad")}, received)
}

func TestNewServerValidation(t *testing.T) {
	_, err := NewServer(Config{Handler: HandlerFunc(func(context.Context, []byte) error { return nil })})
	assert.Error(t, err)

	_, err = NewServer(Config{TLSCert: newCert(t).cert})
	assert.Error(t, err)
}
