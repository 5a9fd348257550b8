package transport

import (
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base32"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/OpenAudio/solana-programs/internal/crypto/ed25519"
)

// DNSNamePrefix is prepended to the encoded node key in certificate DNS names.
const DNSNamePrefix = "n"

var base32Encoding = base32.NewEncoding("abcdefghijklmnopqrstuvwxyz234567").WithPadding(base32.NoPadding)

// EncodePubKeyToDNS encodes a node key as "n" + base32(key).
func EncodePubKeyToDNS(pubKey ed25519.PublicKey) string {
	return DNSNamePrefix + base32Encoding.EncodeToString(pubKey)
}

// GenerateCertificate creates a self-signed ed25519 certificate for a node,
// usable for both server and client authentication.
func GenerateCertificate(priv ed25519.PrivateKey, validity time.Duration) (*tls.Certificate, error) {
	pub, ok := priv.Public().(ed25519.PublicKey)
	if !ok {
		return nil, fmt.Errorf("private key is not ed25519")
	}
	dnsName := EncodePubKeyToDNS(pub)

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}
	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: serialNumber,
		Subject:      pkix.Name{CommonName: dnsName},
		DNSNames:     []string{dnsName},
		NotBefore:    now.Add(-time.Minute),
		NotAfter:     now.Add(validity),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage: []x509.ExtKeyUsage{
			x509.ExtKeyUsageServerAuth,
			x509.ExtKeyUsageClientAuth,
		},
		SignatureAlgorithm:    x509.PureEd25519,
		PublicKeyAlgorithm:    x509.Ed25519,
		BasicConstraintsValid: true,
	}

	certDER, err := x509.CreateCertificate(rand.Reader, template, template, pub, priv)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}
	leaf, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}
	return &tls.Certificate{
		Certificate: [][]byte{certDER},
		PrivateKey:  priv,
		Leaf:        leaf,
	}, nil
}

// ValidateCertificate checks that a peer certificate is a node certificate:
// ed25519 signed, one DNS name encoding its own key, and currently valid.
func ValidateCertificate(cert *x509.Certificate) error {
	if cert.SignatureAlgorithm != x509.PureEd25519 {
		return fmt.Errorf("%w: signature algorithm is not ed25519", ErrInvalidCertificate)
	}
	pubKey, ok := cert.PublicKey.(ed25519.PublicKey)
	if !ok {
		return fmt.Errorf("%w: public key is not ed25519", ErrInvalidCertificate)
	}
	if len(cert.DNSNames) != 1 {
		return fmt.Errorf("%w: want exactly one DNS name", ErrInvalidCertificate)
	}
	dnsName := cert.DNSNames[0]
	if !strings.HasPrefix(dnsName, DNSNamePrefix) || dnsName != EncodePubKeyToDNS(pubKey) {
		return fmt.Errorf("%w: DNS name %q does not match public key", ErrInvalidCertificate, dnsName)
	}
	now := time.Now()
	if now.Before(cert.NotBefore) {
		return fmt.Errorf("%w: not yet valid", ErrInvalidCertificate)
	}
	if now.After(cert.NotAfter) {
		return fmt.Errorf("%w: expired", ErrInvalidCertificate)
	}
	return nil
}

// verifyPeer is a tls.Config.VerifyPeerCertificate callback for self-signed
// node certificates.
func verifyPeer(rawCerts [][]byte, _ [][]*x509.Certificate) error {
	if len(rawCerts) == 0 {
		return fmt.Errorf("%w: no peer certificate provided", ErrInvalidCertificate)
	}
	c, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	return ValidateCertificate(c)
}
