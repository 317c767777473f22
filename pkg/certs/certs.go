// Package certs loads the server's TLS identity: a PKCS#12 (PFX)
// bundle at a configured path, or a generated self-signed RSA-2048
// certificate persisted to that path when none exists yet.
package certs

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"os"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// Config describes where to find or create the server certificate.
type Config struct {
	PFXPath     string
	PFXPassword string
	// Subject is the self-signed certificate's common name, used only
	// when PFXPath doesn't exist yet.
	Subject string
	// ValidFor bounds the generated certificate's lifetime.
	ValidFor time.Duration
}

// DefaultValidFor matches what a freshly generated self-signed
// certificate is good for before it needs regenerating.
const DefaultValidFor = 825 * 24 * time.Hour // 825 days, the CA/B Forum's historical max

// Load returns a tls.Certificate for cfg, generating and persisting a
// self-signed one at cfg.PFXPath if the file doesn't exist.
func Load(cfg Config) (tls.Certificate, error) {
	if _, err := os.Stat(cfg.PFXPath); err == nil {
		return loadPFX(cfg.PFXPath, cfg.PFXPassword)
	} else if !os.IsNotExist(err) {
		return tls.Certificate{}, fmt.Errorf("certs: stat %s: %w", cfg.PFXPath, err)
	}

	validFor := cfg.ValidFor
	if validFor <= 0 {
		validFor = DefaultValidFor
	}
	cert, key, err := generateSelfSigned(cfg.Subject, validFor)
	if err != nil {
		return tls.Certificate{}, err
	}
	if err := persistPFX(cfg.PFXPath, cfg.PFXPassword, cert, key); err != nil {
		return tls.Certificate{}, fmt.Errorf("certs: persisting generated certificate: %w", err)
	}
	return tls.X509KeyPair(certPEM(cert), keyPEM(key))
}

func loadPFX(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("certs: reading %s: %w", path, err)
	}
	key, cert, caCerts, err := pkcs12.DecodeChain(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("certs: decoding PFX %s: %w", path, err)
	}
	chain := [][]byte{cert.Raw}
	for _, ca := range caCerts {
		chain = append(chain, ca.Raw)
	}
	return tls.Certificate{
		Certificate: chain,
		PrivateKey:  key,
		Leaf:        cert,
	}, nil
}

func generateSelfSigned(subject string, validFor time.Duration) (*x509.Certificate, *rsa.PrivateKey, error) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("certs: generating RSA key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("certs: generating serial number: %w", err)
	}

	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: subject},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(validFor),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		DNSNames:              []string{subject},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("certs: creating self-signed certificate: %w", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, nil, fmt.Errorf("certs: parsing generated certificate: %w", err)
	}
	return cert, key, nil
}

func persistPFX(path, password string, cert *x509.Certificate, key *rsa.PrivateKey) error {
	data, err := pkcs12.Modern.Encode(rand.Reader, key, cert, nil, password)
	if err != nil {
		return fmt.Errorf("encoding PFX: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
