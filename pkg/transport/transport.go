// Package transport carries signed calls to a node over QUIC. Each call uses
// one bidirectional stream: the client writes one frame holding the encoded
// envelope and closes its side, the server answers with one frame holding a
// status byte and, on rejection, the error text.
package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/rs/zerolog"

	"github.com/OpenAudio/solana-programs/pkg/log"
)

// ALPN is the only application protocol the node speaks.
const ALPN = "routernode/1"

const (
	MaxIdleTimeout = 5 * time.Minute
	// CallTimeout bounds reading, processing and answering one call.
	CallTimeout = 30 * time.Second
)

// Handler processes one encoded call. A non-nil error is reported to the
// caller as a rejection.
type Handler interface {
	HandleCall(ctx context.Context, payload []byte) error
}

type HandlerFunc func(ctx context.Context, payload []byte) error

func (f HandlerFunc) HandleCall(ctx context.Context, payload []byte) error {
	return f(ctx, payload)
}

type Config struct {
	TLSCert    *tls.Certificate
	ListenAddr string
	Handler    Handler
}

type Server struct {
	config   Config
	listener *quic.Listener
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	done     chan struct{}
	logger   zerolog.Logger
}

func NewServer(config Config) (*Server, error) {
	if config.TLSCert == nil {
		return nil, fmt.Errorf("TLS certificate required")
	}
	if config.Handler == nil {
		return nil, fmt.Errorf("call handler required")
	}
	if err := ValidateCertificate(config.TLSCert.Leaf); err != nil {
		return nil, err
	}
	return &Server{config: config, logger: log.Transport}, nil
}

func tlsConfig(cert *tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates:          []tls.Certificate{*cert},
		NextProtos:            []string{ALPN},
		ClientAuth:            tls.RequireAnyClientCert,
		MinVersion:            tls.VersionTLS13,
		InsecureSkipVerify:    true,
		VerifyPeerCertificate: verifyPeer,
	}
}

func quicConfig() *quic.Config {
	return &quic.Config{MaxIdleTimeout: MaxIdleTimeout}
}

// Start listens and accepts connections until Stop.
func (s *Server) Start() error {
	listener, err := quic.ListenAddr(s.config.ListenAddr, tlsConfig(s.config.TLSCert), quicConfig())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrListenerFailed, err)
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.listener = listener
	s.done = make(chan struct{})
	go func() {
		s.acceptLoop()
		close(s.done)
	}()
	s.logger.Info().Str("addr", listener.Addr().String()).Msg("listening")
	return nil
}

// Addr is the bound listen address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// Stop closes the listener and waits for in-flight calls to finish.
func (s *Server) Stop() error {
	if s.listener == nil {
		return nil
	}
	s.cancel()
	err := s.listener.Close()
	<-s.done
	s.wg.Wait()
	if err != nil {
		return fmt.Errorf("failed to close listener: %w", err)
	}
	return nil
}

func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept(s.ctx)
		if err != nil {
			if s.ctx.Err() == nil && !errors.Is(err, quic.ErrServerClosed) {
				s.logger.Warn().Err(err).Msg("failed to accept connection")
				continue
			}
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(conn)
		}()
	}
}

func (s *Server) serveConn(conn quic.Connection) {
	remote := conn.RemoteAddr().String()
	defer conn.CloseWithError(0, "")
	for {
		stream, err := conn.AcceptStream(s.ctx)
		if err != nil {
			s.logger.Debug().Str("remote", remote).Err(err).Msg("connection closed")
			return
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.serveStream(stream); err != nil {
				s.logger.Warn().Str("remote", remote).Err(err).Msg("stream failed")
			}
		}()
	}
}

func (s *Server) serveStream(stream quic.Stream) error {
	defer stream.Close()
	ctx, cancel := context.WithTimeout(s.ctx, CallTimeout)
	defer cancel()

	payload, err := ReadMessage(ctx, stream)
	if err != nil {
		stream.CancelRead(0)
		return err
	}
	callErr := s.config.Handler.HandleCall(ctx, payload)
	return WriteMessage(ctx, stream, encodeResponse(callErr))
}

// Client submits calls to one node.
type Client struct {
	conn quic.Connection
}

// Dial connects to a node, presenting cert as the client certificate.
func Dial(ctx context.Context, addr string, cert *tls.Certificate) (*Client, error) {
	conn, err := quic.DialAddr(ctx, addr, tlsConfig(cert), quicConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDialFailed, err)
	}
	return &Client{conn: conn}, nil
}

// Submit sends one encoded call and waits for the node's verdict. A rejected
// call returns an error wrapping ErrRejected.
func (c *Client) Submit(ctx context.Context, payload []byte) error {
	stream, err := c.conn.OpenStreamSync(ctx)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	if err := WriteMessage(ctx, stream, payload); err != nil {
		stream.CancelRead(0)
		return err
	}
	// half-close so the server sees the end of the request
	if err := stream.Close(); err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	resp, err := ReadMessage(ctx, stream)
	if err != nil {
		return err
	}
	return decodeResponse(resp)
}

func (c *Client) Close() error {
	return c.conn.CloseWithError(0, "")
}
