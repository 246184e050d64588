// Package token issues one-time seat secrets and verifies them by SHA-256 digest.
// Only digests are ever stored; a successful claim discards the digest for good.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultSecretBytes = 32
	MinSecretBytes     = 16
)

var (
	ErrSeatTaken    = errors.New("seat already taken")
	ErrInvalidToken = errors.New("invalid or already-used token")
)

// Digest is the SHA-256 of a secret.
type Digest [sha256.Size]byte

// Hash is deterministic: the same secret always yields the same digest.
func Hash(secret string) Digest {
	return sha256.Sum256([]byte(secret))
}

func (d Digest) String() string { return hex.EncodeToString(d[:]) }

// ParseDigest decodes the hex form produced by Digest.String.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	raw, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return d, fmt.Errorf("decode digest: %w", err)
	}
	if len(raw) != len(d) {
		return d, fmt.Errorf("digest must be %d bytes, got %d", len(d), len(raw))
	}
	copy(d[:], raw)
	return d, nil
}

// RandomSource supplies secure random bytes. Read may block on an external source;
// ctx bounds the wait.
type RandomSource interface {
	Read(ctx context.Context, n int) ([]byte, error)
}

// CryptoSource reads from crypto/rand.
type CryptoSource struct{}

func (CryptoSource) Read(ctx context.Context, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return b, nil
}

// Authority generates seat secrets.
type Authority struct {
	src  RandomSource
	size int
}

func NewAuthority(src RandomSource, size int) *Authority {
	if src == nil {
		src = CryptoSource{}
	}
	if size < MinSecretBytes {
		size = DefaultSecretBytes
	}
	return &Authority{src: src, size: size}
}

// Generate returns a URL-safe, unpadded base64 secret.
func (a *Authority) Generate(ctx context.Context) (string, error) {
	b, err := a.src.Read(ctx, a.size)
	if err != nil {
		return "", err
	}
	if len(b) != a.size {
		return "", fmt.Errorf("random source returned %d bytes, want %d", len(b), a.size)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
