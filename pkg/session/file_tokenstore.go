package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
)

var ErrInvalidEncryptionKey = errors.New("token encryption key must be 32 bytes hex encoded")

type tokenFile struct {
	AccessToken string `json:"access_token,omitempty"`
	Sealed      string `json:"sealed,omitempty"`
}

// FileTokenStore persists the token to a local file, the gateway's
// equivalent of browser local storage. When a key is configured the token is
// sealed with NaCl secretbox before it touches disk.
type FileTokenStore struct {
	path string
	key  *[32]byte
	mu   sync.Mutex
}

// NewFileTokenStore creates a store at path. hexKey may be empty to store the
// token in plain text.
func NewFileTokenStore(path, hexKey string) (*FileTokenStore, error) {
	store := &FileTokenStore{path: path}
	if hexKey == "" {
		return store, nil
	}

	raw, err := hex.DecodeString(hexKey)
	if err != nil || len(raw) != 32 {
		return nil, ErrInvalidEncryptionKey
	}
	var key [32]byte
	copy(key[:], raw)
	store.key = &key
	return store, nil
}

func (s *FileTokenStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}

	var file tokenFile
	if err := json.Unmarshal(data, &file); err != nil {
		return "", fmt.Errorf("failed to decode token file: %w", err)
	}
	if file.Sealed == "" {
		return file.AccessToken, nil
	}
	if s.key == nil {
		return "", errors.New("token file is sealed but no encryption key is configured")
	}
	return s.open(file.Sealed)
}

func (s *FileTokenStore) Save(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file := tokenFile{AccessToken: token}
	if s.key != nil {
		sealed, err := s.seal(token)
		if err != nil {
			return err
		}
		file = tokenFile{Sealed: sealed}
	}

	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode token file: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

func (s *FileTokenStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}
	return nil
}

func (s *FileTokenStore) seal(token string) (string, error) {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	box := secretbox.Seal(nonce[:], []byte(token), &nonce, s.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

func (s *FileTokenStore) open(sealed string) (string, error) {
	box, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil || len(box) < 24 {
		return "", errors.New("token file is corrupt")
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	plain, ok := secretbox.Open(nil, box[24:], &nonce, s.key)
	if !ok {
		return "", errors.New("failed to decrypt token file")
	}
	return string(plain), nil
}

func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".token-*")
	if err != nil {
		return fmt.Errorf("failed to create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("failed to set token file mode: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}
