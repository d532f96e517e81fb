package credstore

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed file layout: magic, argon2id salt, XChaCha20-Poly1305 nonce,
// ciphertext of a JSON object holding the entries. The salt is fixed per file
// so the derived key is stable across rewrites.
const (
	sealedMagic    = "WRSC1"
	sealedSaltSize = 16

	argonTime    uint32 = 1
	argonMemory  uint32 = 64 * 1024 // KiB
	argonThreads uint8  = 4
)

// SealedFileBackend is the secure credential backend: a single local file
// encrypted with a key derived from a caller-supplied passphrase. Every write
// re-seals the whole entry set and lands via temp-file rename so readers never
// observe a torn file.
type SealedFileBackend struct {
	path       string
	passphrase []byte

	mu   sync.Mutex
	salt []byte
}

// NewSealedFileBackend creates a backend sealing entries at path. The
// passphrase is held for key derivation; the file is created lazily on first
// write with 0600 permissions.
func NewSealedFileBackend(path string, passphrase []byte) (*SealedFileBackend, error) {
	if path == "" {
		return nil, errors.New("sealed file path required")
	}
	if len(passphrase) == 0 {
		return nil, errors.New("sealed store passphrase required")
	}
	pp := make([]byte, len(passphrase))
	copy(pp, passphrase)
	return &SealedFileBackend{path: path, passphrase: pp}, nil
}

// Get retrieves a single entry from the sealed file.
func (b *SealedFileBackend) Get(ctx context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.open(ctx)
	if err != nil {
		return "", err
	}
	val, ok := entries[key]
	if !ok {
		return "", ErrNotFound
	}
	return val, nil
}

// Set writes a single entry, re-sealing the file.
func (b *SealedFileBackend) Set(ctx context.Context, key, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.open(ctx)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if entries == nil {
		entries = map[string]string{}
	}
	entries[key] = value
	return b.seal(entries)
}

// Delete removes entries. Deleting the last entry removes the file itself.
func (b *SealedFileBackend) Delete(ctx context.Context, keys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries, err := b.open(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		// A corrupt file cannot be partially cleared; drop it whole.
		if errors.Is(err, ErrSealedCorrupt) {
			return b.remove()
		}
		return err
	}

	for _, k := range keys {
		delete(entries, k)
	}
	if len(entries) == 0 {
		return b.remove()
	}
	return b.seal(entries)
}

func (b *SealedFileBackend) open(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	data, err := os.ReadFile(b.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	minLen := len(sealedMagic) + sealedSaltSize + chacha20poly1305.NonceSizeX
	if len(data) < minLen || string(data[:len(sealedMagic)]) != sealedMagic {
		return nil, ErrSealedCorrupt
	}

	salt := data[len(sealedMagic) : len(sealedMagic)+sealedSaltSize]
	nonce := data[len(sealedMagic)+sealedSaltSize : minLen]
	ciphertext := data[minLen:]

	aead, err := b.aead(salt)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, nonce, ciphertext, []byte(sealedMagic))
	if err != nil {
		return nil, ErrSealedCorrupt
	}

	var entries map[string]string
	if err := json.Unmarshal(plaintext, &entries); err != nil {
		return nil, ErrSealedCorrupt
	}

	b.salt = append(b.salt[:0], salt...)
	return entries, nil
}

func (b *SealedFileBackend) seal(entries map[string]string) error {
	plaintext, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if len(b.salt) != sealedSaltSize {
		salt := make([]byte, sealedSaltSize)
		if _, err := rand.Read(salt); err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		b.salt = salt
	}

	aead, err := b.aead(b.salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	out := make([]byte, 0, len(sealedMagic)+sealedSaltSize+len(nonce)+len(plaintext)+aead.Overhead())
	out = append(out, sealedMagic...)
	out = append(out, b.salt...)
	out = append(out, nonce...)
	out = aead.Seal(out, nonce, plaintext, []byte(sealedMagic))

	tmp := b.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err := os.WriteFile(tmp, out, 0o600); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if err := os.Rename(tmp, b.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (b *SealedFileBackend) remove() error {
	if err := os.Remove(b.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (b *SealedFileBackend) aead(salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(b.passphrase, salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	c, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return c, nil
}
