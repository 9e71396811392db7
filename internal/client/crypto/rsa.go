package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"io"

	"github.com/shanmiteko/bili-login/internal/client/domain"
)

// EncryptPassword encrypts salt+password with the server key using PKCS#1
// v1.5 padding and returns standard base64. The server decrypts with
// nothing else.
func EncryptPassword(publicKeyPEM, plaintext string) (string, error) {
	return EncryptPasswordWithRand(rand.Reader, publicKeyPEM, plaintext)
}

func EncryptPasswordWithRand(rnd io.Reader, publicKeyPEM, plaintext string) (string, error) {
	key, err := ParsePublicKey(publicKeyPEM)
	if err != nil {
		return "", err
	}
	if rnd == nil {
		rnd = rand.Reader
	}
	if limit := key.Size() - 11; len(plaintext) > limit {
		return "", &domain.CryptoError{
			Err: fmt.Errorf("plaintext is %d bytes, key allows at most %d", len(plaintext), limit),
		}
	}
	cipher, err := rsa.EncryptPKCS1v15(rnd, key, []byte(plaintext))
	if err != nil {
		return "", &domain.CryptoError{Err: fmt.Errorf("failed to encrypt: %w", err)}
	}
	return base64.StdEncoding.EncodeToString(cipher), nil
}

// ParsePublicKey accepts a PKIX "PUBLIC KEY" block, which is what the
// passport service sends, or a PKCS#1 "RSA PUBLIC KEY" block.
func ParsePublicKey(publicKeyPEM string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(publicKeyPEM))
	if block == nil {
		return nil, &domain.CryptoError{Err: fmt.Errorf("no PEM block found")}
	}

	switch block.Type {
	case "PUBLIC KEY":
		keyAny, err := x509.ParsePKIXPublicKey(block.Bytes)
		if err != nil {
			return nil, &domain.CryptoError{Err: fmt.Errorf("failed to parse public key: %w", err)}
		}
		key, ok := keyAny.(*rsa.PublicKey)
		if !ok {
			return nil, &domain.CryptoError{Err: fmt.Errorf("incorrect public key format (must be rsa)")}
		}
		return key, nil
	case "RSA PUBLIC KEY":
		key, err := x509.ParsePKCS1PublicKey(block.Bytes)
		if err != nil {
			return nil, &domain.CryptoError{Err: fmt.Errorf("failed to parse public key: %w", err)}
		}
		return key, nil
	default:
		return nil, &domain.CryptoError{Err: fmt.Errorf("unexpected PEM block type %q", block.Type)}
	}
}
