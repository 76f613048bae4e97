package hipaa

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

// EncryptionService encrypts working files at rest. It resolves the key from
// a key file on every call so a key generated mid-session takes effect
// immediately. Without a key file the service is effectively disabled:
// Seal becomes a logged no-op and decrypting fails with ErrKeyMissing.
type EncryptionService struct {
	keyPath   string
	logger    zerolog.Logger
	decrypted []string
}

// NewEncryptionService creates a service backed by the key at keyPath.
func NewEncryptionService(keyPath string, logger zerolog.Logger) *EncryptionService {
	return &EncryptionService{
		keyPath: keyPath,
		logger:  logger.With().Str("component", "encryption").Logger(),
	}
}

// KeyPath returns the key file location.
func (s *EncryptionService) KeyPath() string {
	return s.keyPath
}

// IsEnabled returns true if a key file exists.
func (s *EncryptionService) IsEnabled() bool {
	_, err := os.Stat(s.keyPath)
	return err == nil
}

// GenerateKey creates the key file.
func (s *EncryptionService) GenerateKey() error {
	if _, err := GenerateKey(s.keyPath); err != nil {
		return err
	}
	s.logger.Info().Str("key_file", s.keyPath).Msg("encryption key generated")
	return nil
}

// IsEncrypted reports whether path carries the encryption envelope.
func (s *EncryptionService) IsEncrypted(path string) (bool, error) {
	return IsEncrypted(path)
}

// DecryptFile decrypts path in place. Files sealed before the last key
// rotation are opened with the retired key.
func (s *EncryptionService) DecryptFile(path string) error {
	ring, err := loadKeyRing(s.keyPath)
	if err != nil {
		return err
	}
	if err := ring.decryptFile(path); err != nil {
		return err
	}
	s.remember(path)
	s.logger.Info().Str("file", path).Msg("file decrypted")
	return nil
}

func (s *EncryptionService) remember(path string) {
	for _, p := range s.decrypted {
		if p == path {
			return
		}
	}
	s.decrypted = append(s.decrypted, path)
}

// Decrypted lists the files this service has decrypted, in first-seen order.
func (s *EncryptionService) Decrypted() []string {
	return append([]string(nil), s.decrypted...)
}

// SealAll seals every path and every file decrypted by this service, each
// once. It reports how many files it encrypted; all paths are attempted and
// errors are joined.
func (s *EncryptionService) SealAll(paths ...string) (int, error) {
	seen := make(map[string]bool)
	var (
		sealed int
		errs   []error
	)
	for _, p := range append(append([]string(nil), paths...), s.decrypted...) {
		if seen[p] {
			continue
		}
		seen[p] = true
		ok, err := s.Seal(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			sealed++
		}
	}
	return sealed, errors.Join(errs...)
}

// EncryptFile encrypts path in place.
func (s *EncryptionService) EncryptFile(path string) error {
	key, err := LoadKey(s.keyPath)
	if err != nil {
		return err
	}
	if err := EncryptFile(path, key); err != nil {
		return err
	}
	s.logger.Info().Str("file", path).Msg("file encrypted")
	return nil
}

// Seal is the end-of-session checkpoint. It encrypts path when a key exists,
// the file exists and it is still plaintext, and reports whether it did.
// Anything short of a real I/O failure is logged and skipped.
func (s *EncryptionService) Seal(path string) (bool, error) {
	if !s.IsEnabled() {
		s.logger.Warn().Str("key_file", s.keyPath).Msg("encryption key does not exist; leaving file unencrypted")
		return false, nil
	}
	encrypted, err := IsEncrypted(path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Warn().Str("file", path).Msg("file does not exist; cannot encrypt")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if encrypted {
		s.logger.Debug().Str("file", path).Msg("file is already encrypted")
		return false, nil
	}
	if err := s.EncryptFile(path); err != nil {
		return false, fmt.Errorf("seal %s: %w", path, err)
	}
	return true, nil
}

// RotateKey replaces the key and re-seals the encrypted files among paths.
func (s *EncryptionService) RotateKey(paths []string) (*RotationResult, error) {
	res, err := RotateKey(s.keyPath, paths)
	if err != nil {
		return res, err
	}
	s.logger.Info().
		Int("rotated", len(res.Rotated)).
		Int("skipped", len(res.Skipped)).
		Str("key_file", s.keyPath).
		Msg("encryption key rotated")
	return res, nil
}
