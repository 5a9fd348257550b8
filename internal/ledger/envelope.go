package ledger

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/OpenAudio/solana-programs/internal/crypto"
	"github.com/OpenAudio/solana-programs/internal/crypto/ed25519"
)

type AccountMeta struct {
	Key      solana.PublicKey
	Writable bool
}

// Message is the signed part of an envelope.
type Message struct {
	Program  solana.PublicKey
	Data     []byte
	Accounts []AccountMeta
}

func (m Message) Bytes() ([]byte, error) {
	return bin.MarshalBorsh(m)
}

// Hash identifies the call in logs and events.
func (m Message) Hash() (crypto.Hash, error) {
	b, err := m.Bytes()
	if err != nil {
		return crypto.Hash{}, err
	}
	return crypto.HashData(b), nil
}

type Signature struct {
	Key       solana.PublicKey
	Signature [ed25519.SignatureSize]byte
}

// Envelope is a call as it arrives over the wire.
type Envelope struct {
	Message    Message
	Signatures []Signature
}

// Sign signs msg with every key.
func Sign(msg Message, keys ...ed25519.PrivateKey) (Envelope, error) {
	b, err := msg.Bytes()
	if err != nil {
		return Envelope{}, fmt.Errorf("encode message: %w", err)
	}
	env := Envelope{Message: msg}
	for _, k := range keys {
		var sig Signature
		copy(sig.Key[:], k.Public().(ed25519.PublicKey))
		copy(sig.Signature[:], ed25519.Sign(k, b))
		env.Signatures = append(env.Signatures, sig)
	}
	return env, nil
}

// Signers verifies every signature and returns the set of keys that signed.
func (e Envelope) Signers() (map[solana.PublicKey]bool, error) {
	b, err := e.Message.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}
	signers := make(map[solana.PublicKey]bool, len(e.Signatures))
	for _, s := range e.Signatures {
		if signers[s.Key] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSignature, s.Key)
		}
		if !ed25519.Verify(s.Key[:], b, s.Signature[:]) {
			return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, s.Key)
		}
		signers[s.Key] = true
	}
	return signers, nil
}

func (e Envelope) Bytes() ([]byte, error) {
	return bin.MarshalBorsh(e)
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	var e Envelope
	if err := bin.UnmarshalBorsh(&e, b); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return e, nil
}
