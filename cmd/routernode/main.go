package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OpenAudio/solana-programs/internal/config"
	"github.com/OpenAudio/solana-programs/internal/crypto/ed25519"
	"github.com/OpenAudio/solana-programs/internal/ledger"
	"github.com/OpenAudio/solana-programs/pkg/db/pebble"
	"github.com/OpenAudio/solana-programs/pkg/log"
	"github.com/OpenAudio/solana-programs/pkg/transport"
)

const certValidity = 365 * 24 * time.Hour

// main runs a reference ledger that accepts signed calls over QUIC.
// go run ./cmd/routernode -listen 127.0.0.1:9443 -db ./routernode.db
func main() {
	listen := flag.String("listen", "127.0.0.1:9443", "QUIC listen address")
	dbPath := flag.String("db", "routernode.db", "ledger database directory")
	keyHex := flag.String("key", "", "hex ed25519 seed of the node key; random when empty")
	logLevel := flag.String("log-level", "info", "log level")
	logJSON := flag.Bool("log-json", false, "log as JSON")
	flag.Parse()

	if err := run(*listen, *dbPath, *keyHex, *logLevel, *logJSON); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(listen, dbPath, keyHex, logLevel string, logJSON bool) error {
	level, err := log.ParseLogLevel(logLevel)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	logType := log.ConsoleLogger
	if logJSON {
		logType = log.JSONLogger
	}
	log.Init(log.Options{LogLevel: level, Type: logType})

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	key, err := nodeKey(keyHex)
	if err != nil {
		return err
	}
	cert, err := transport.GenerateCertificate(key, certValidity)
	if err != nil {
		return err
	}

	store, err := pebble.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	l, err := ledger.New(store, cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	server, err := transport.NewServer(transport.Config{TLSCert: cert, ListenAddr: listen, Handler: l})
	if err != nil {
		return err
	}
	if err := server.Start(); err != nil {
		return err
	}
	log.Root.Info().
		Str("router", cfg.PaymentRouter.ID.String()).
		Str("bridge", cfg.StakingBridge.ID.String()).
		Str("node", transport.EncodePubKeyToDNS(key.Public().(ed25519.PublicKey))).
		Msg("node started")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Root.Info().Msg("shutting down")
	return server.Stop()
}

func nodeKey(keyHex string) (ed25519.PrivateKey, error) {
	if keyHex == "" {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		return priv, err
	}
	seed, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("key seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return ed25519.NewKeyFromSeed(seed), nil
}
