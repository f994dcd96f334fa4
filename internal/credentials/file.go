package credentials

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/avolkov/snapsync/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	keyFileName    = "credentials.key"
	secretFileName = "credentials.enc"

	saltSize  = 16
	nonceSize = 12
)

// FileStore keeps the secret AES-GCM encrypted on disk, with the encryption
// key derived (argon2id) from a per-installation random key file. Both files
// are created 0600; this guards the secret against casual reads and backup
// tooling, not against an attacker who owns the machine.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) Get(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blob, err := os.ReadFile(filepath.Join(s.dir, secretFileName))
	if errors.Is(err, os.ErrNotExist) {
		return nil, common.ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	if len(blob) < saltSize+nonceSize {
		return nil, fmt.Errorf("credentials file is truncated")
	}

	keyMaterial, err := os.ReadFile(filepath.Join(s.dir, keyFileName))
	if err != nil {
		return nil, fmt.Errorf("read credentials key: %w", err)
	}
	defer common.WipeByteArray(keyMaterial)

	salt := blob[:saltSize]
	nonce := blob[saltSize : saltSize+nonceSize]
	ciphertext := blob[saltSize+nonceSize:]

	gcm, err := newGCM(keyMaterial, salt)
	if err != nil {
		return nil, err
	}

	secret, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt credentials: %w", err)
	}
	return secret, nil
}

func (s *FileStore) Set(ctx context.Context, secret []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create credentials directory: %w", err)
	}

	keyMaterial, err := s.loadOrCreateKeyFile()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(keyMaterial)

	salt := common.GenerateRandByteArray(saltSize)
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("generate nonce: %w", err)
	}

	gcm, err := newGCM(keyMaterial, salt)
	if err != nil {
		return err
	}

	blob := make([]byte, 0, saltSize+nonceSize+len(secret)+gcm.Overhead())
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = gcm.Seal(blob, nonce, secret, nil)

	if err := os.WriteFile(filepath.Join(s.dir, secretFileName), blob, 0o600); err != nil {
		return fmt.Errorf("write credentials: %w", err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, name := range []string{secretFileName, keyFileName} {
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

func (s *FileStore) loadOrCreateKeyFile() ([]byte, error) {
	path := filepath.Join(s.dir, keyFileName)

	keyMaterial, err := os.ReadFile(path)
	if err == nil {
		return keyMaterial, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read credentials key: %w", err)
	}

	keyMaterial = common.GenerateRandByteArray(32)
	if err := os.WriteFile(path, keyMaterial, 0o600); err != nil {
		return nil, fmt.Errorf("write credentials key: %w", err)
	}
	return keyMaterial, nil
}

func newGCM(keyMaterial, salt []byte) (cipher.AEAD, error) {
	key := argon2.IDKey(keyMaterial, salt, 1, 64*1024, 4, 32)
	defer common.WipeByteArray(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	return gcm, nil
}
