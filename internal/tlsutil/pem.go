// Package tlsutil validates user-supplied TLS material before it is pushed
// into the cluster as an ingress secret.
package tlsutil

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"
)

// Pair holds the PEM contents of a certificate chain and its private key.
type Pair struct {
	CertPEM []byte
	KeyPEM  []byte

	// Leaf is the parsed leaf certificate.
	Leaf *x509.Certificate
}

// LoadPair reads and validates a certificate/key pair from disk. It fails
// when the files are unreadable, the key does not match the certificate, or
// the leaf certificate has expired.
func LoadPair(certPath, keyPath string) (*Pair, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate %s: %w", certPath, err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key %s: %w", keyPath, err)
	}

	pair, err := ValidatePair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}
	return pair, nil
}

// ValidatePair checks that the PEM blocks form a usable certificate/key pair.
func ValidatePair(certPEM, keyPEM []byte) (*Pair, error) {
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("certificate and key do not form a valid pair: %w", err)
	}

	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return nil, fmt.Errorf("failed to parse leaf certificate: %w", err)
	}

	now := time.Now()
	if now.After(leaf.NotAfter) {
		return nil, fmt.Errorf("certificate expired on %s", leaf.NotAfter.Format(time.RFC3339))
	}
	if now.Before(leaf.NotBefore) {
		return nil, fmt.Errorf("certificate is not valid until %s", leaf.NotBefore.Format(time.RFC3339))
	}

	return &Pair{CertPEM: certPEM, KeyPEM: keyPEM, Leaf: leaf}, nil
}

// CoversHost reports whether the leaf certificate is valid for the hostname.
func (p *Pair) CoversHost(host string) bool {
	return p.Leaf.VerifyHostname(host) == nil
}

// ExpiresWithin reports whether the leaf certificate expires within d.
func (p *Pair) ExpiresWithin(d time.Duration) bool {
	return time.Now().Add(d).After(p.Leaf.NotAfter)
}
