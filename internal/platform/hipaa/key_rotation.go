package hipaa

import (
	"bytes"
	"errors"
	"fmt"
	"os"
)

// Key files kept next to the active key during and after a rotation.
const (
	previousKeySuffix = ".prev"
	nextKeySuffix     = ".next"
)

// keyRing seals with the current key and opens with the current key or any
// previous one, so files sealed before a rotation stay readable.
type keyRing struct {
	current  *PHIEncryptor
	previous []*PHIEncryptor
}

func newKeyRing(current []byte, previous ...[]byte) (*keyRing, error) {
	enc, err := NewPHIEncryptor(current)
	if err != nil {
		return nil, fmt.Errorf("key ring: current key: %w", err)
	}
	r := &keyRing{current: enc}
	for i, k := range previous {
		p, err := NewPHIEncryptor(k)
		if err != nil {
			return nil, fmt.Errorf("key ring: previous key %d: %w", i, err)
		}
		r.previous = append(r.previous, p)
	}
	return r, nil
}

// loadKeyRing reads the active key and, when present, the key it replaced.
func loadKeyRing(keyPath string) (*keyRing, error) {
	current, err := LoadKey(keyPath)
	if err != nil {
		return nil, err
	}
	prev, err := LoadKey(keyPath + previousKeySuffix)
	if errors.Is(err, ErrKeyMissing) {
		return newKeyRing(current)
	}
	if err != nil {
		return nil, err
	}
	return newKeyRing(current, prev)
}

func (r *keyRing) open(data []byte) ([]byte, error) {
	plain, err := r.current.DecryptBytes(data)
	if err == nil {
		return plain, nil
	}
	for _, p := range r.previous {
		if plain, perr := p.DecryptBytes(data); perr == nil {
			return plain, nil
		}
	}
	return nil, err
}

func (r *keyRing) decryptFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if !bytes.HasPrefix(data, fileMagic) {
		return fmt.Errorf("%s: %w", path, ErrNotEncrypted)
	}
	plain, err := r.open(data[len(fileMagic):])
	if err != nil {
		return fmt.Errorf("decrypt %s: %w", path, err)
	}
	return replaceFile(path, plain)
}

// reseal re-encrypts an encrypted file under the current key.
func (r *keyRing) reseal(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if !bytes.HasPrefix(data, fileMagic) {
		return fmt.Errorf("%s: %w", path, ErrNotEncrypted)
	}
	plain, err := r.open(data[len(fileMagic):])
	if err != nil {
		return fmt.Errorf("decrypt %s: %w", path, err)
	}
	sealed, err := r.current.EncryptBytes(plain)
	if err != nil {
		return err
	}
	return replaceFile(path, append(append([]byte(nil), fileMagic...), sealed...))
}

// RotationResult lists what RotateKey did with each path.
type RotationResult struct {
	Rotated []string
	Skipped []string
}

// RotateKey replaces the key at keyPath with a fresh one and re-seals every
// encrypted file in paths. Plaintext and missing files are skipped. The new
// key is staged at keyPath+".next" first, so an interrupted rotation can be
// re-run: files already re-sealed open with the staged key. The replaced key
// is kept at keyPath+".prev".
func RotateKey(keyPath string, paths []string) (*RotationResult, error) {
	oldKey, err := LoadKey(keyPath)
	if err != nil {
		return nil, err
	}
	nextPath := keyPath + nextKeySuffix
	newKey, err := LoadKey(nextPath)
	if errors.Is(err, ErrKeyMissing) {
		newKey, err = GenerateKey(nextPath)
	}
	if err != nil {
		return nil, fmt.Errorf("stage new key: %w", err)
	}

	ring, err := newKeyRing(newKey, oldKey)
	if err != nil {
		return nil, err
	}

	res := &RotationResult{}
	for _, p := range paths {
		encrypted, err := IsEncrypted(p)
		if errors.Is(err, os.ErrNotExist) {
			res.Skipped = append(res.Skipped, p)
			continue
		}
		if err != nil {
			return res, err
		}
		if !encrypted {
			res.Skipped = append(res.Skipped, p)
			continue
		}
		if err := ring.reseal(p); err != nil {
			return res, fmt.Errorf("rotate %s: %w", p, err)
		}
		res.Rotated = append(res.Rotated, p)
	}

	if err := os.Rename(keyPath, keyPath+previousKeySuffix); err != nil {
		return res, fmt.Errorf("retire old key: %w", err)
	}
	if err := os.Rename(nextPath, keyPath); err != nil {
		return res, fmt.Errorf("activate new key: %w", err)
	}
	return res, nil
}
