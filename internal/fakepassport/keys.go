package fakepassport

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

const (
	permKey = 0600

	DefaultKeyBits = 2048
)

// EnsureKey loads the RSA private key at keyPath, generating and writing a
// new one when the file does not exist. An empty path keeps the key in
// memory only.
func EnsureKey(keyPath string, bits int, logger *zerolog.Logger) (*rsa.PrivateKey, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	if bits == 0 {
		bits = DefaultKeyBits
	}

	if keyPath == "" {
		key, err := rsa.GenerateKey(rand.Reader, bits)
		if err != nil {
			return nil, fmt.Errorf("failed to generate private key: %w", err)
		}
		return key, nil
	}

	if _, err := os.Stat(keyPath); errors.Is(err, os.ErrNotExist) {
		logger.Warn().
			Str("file", keyPath).
			Msg("private key does not exist")
		key, err := generateKeyFile(keyPath, bits)
		if err != nil {
			return nil, err
		}
		logger.Info().
			Str("file", keyPath).
			Msg("created new private key")
		return key, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to retrieve private key: %w", err)
	}

	key, err := loadKeyFile(keyPath)
	if err != nil {
		return nil, err
	}
	logger.Info().
		Str("file", keyPath).
		Msg("parsed private key")
	return key, nil
}

// PublicKeyPEM encodes the public half the way the passport service hands
// it out: a PKIX "PUBLIC KEY" block.
func PublicKeyPEM(key *rsa.PrivateKey) (string, error) {
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

func generateKeyFile(keyPath string, bits int) (*rsa.PrivateKey, error) {
	keyFile, err := os.OpenFile(keyPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, permKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create private key file: %w", err)
	}
	defer keyFile.Close()

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate private key: %w", err)
	}
	keyBytes, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	keyBlock := &pem.Block{
		Type:  "PRIVATE KEY",
		Bytes: keyBytes,
	}
	if err := pem.Encode(keyFile, keyBlock); err != nil {
		return nil, fmt.Errorf("failed to write key PEM file to disk: %w", err)
	}
	return key, nil
}

func loadKeyFile(keyPath string) (*rsa.PrivateKey, error) {
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key: %w", err)
	}

	keyBlock, _ := pem.Decode(keyPEM)
	if keyBlock == nil {
		return nil, fmt.Errorf("failed to decode private key: no PEM block")
	}
	keyAny, err := x509.ParsePKCS8PrivateKey(keyBlock.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	key, ok := keyAny.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("incorrect private key format (must be rsa)")
	}
	return key, nil
}
