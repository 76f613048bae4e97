package hipaa

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// KeySize is the AES-256 key length in bytes.
const KeySize = 32

// fileMagic prefixes every encrypted file so plaintext sheets can be told
// apart without a key.
var fileMagic = []byte("RLENC1\n")

var (
	ErrKeyMissing       = errors.New("encryption key does not exist")
	ErrNotEncrypted     = errors.New("file is not encrypted")
	ErrAlreadyEncrypted = errors.New("file is already encrypted")
)

// IsEncrypted reports whether the file at path carries the encryption envelope.
// A missing file is reported as an error, not as plaintext.
func IsEncrypted(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	head := make([]byte, len(fileMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read header of %s: %w", path, err)
	}
	return n == len(fileMagic) && bytes.Equal(head, fileMagic), nil
}

// EncryptFile encrypts path in place with key.
func EncryptFile(path string, key []byte) error {
	enc, err := NewPHIEncryptor(key)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if bytes.HasPrefix(data, fileMagic) {
		return fmt.Errorf("%s: %w", path, ErrAlreadyEncrypted)
	}

	sealed, err := enc.EncryptBytes(data)
	if err != nil {
		return err
	}
	out := make([]byte, 0, len(fileMagic)+len(sealed))
	out = append(out, fileMagic...)
	out = append(out, sealed...)
	return replaceFile(path, out)
}

// DecryptFile decrypts path in place with key. The file on disk is left
// untouched when the key is wrong.
func DecryptFile(path string, key []byte) error {
	ring, err := newKeyRing(key)
	if err != nil {
		return err
	}
	return ring.decryptFile(path)
}

// LoadKey reads a hex-encoded AES-256 key from keyPath.
func LoadKey(keyPath string) ([]byte, error) {
	raw, err := os.ReadFile(keyPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", keyPath, ErrKeyMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}

	key, err := hex.DecodeString(strings.TrimSpace(string(raw)))
	if err != nil {
		return nil, fmt.Errorf("key file %s is not valid hex: %w", keyPath, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("key file %s must hold %d bytes (%d hex chars), got %d bytes",
			keyPath, KeySize, KeySize*2, len(key))
	}
	return key, nil
}

// GenerateKey creates a new random key and writes it to keyPath. An existing
// key file is never overwritten, since files sealed with it would become
// unreadable.
func GenerateKey(keyPath string) ([]byte, error) {
	if _, err := os.Stat(keyPath); err == nil {
		return nil, fmt.Errorf("key file %s already exists", keyPath)
	}

	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(keyPath), 0o755); err != nil {
		return nil, fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(hex.EncodeToString(key)+"\n"), 0o600); err != nil {
		return nil, fmt.Errorf("write key: %w", err)
	}
	return key, nil
}

func replaceFile(path string, data []byte) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".rosterlink-crypt-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
