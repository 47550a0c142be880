// Package filestore keeps the credential pair in a JSON file, optionally sealed
// with a passphrase, for command line and desktop environments.
package filestore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/jrsteele09/appo-client/internal/errors"
	"github.com/jrsteele09/appo-client/token"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	saltLength  = 16
	nonceLength = 24
	keyLength   = 32

	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

var _ token.Storage = (*Store)(nil)

// Store is a token.Storage backed by a single file. Every operation rewrites
// the whole file; the pair is two short strings.
type Store struct {
	path       string
	passphrase []byte

	lock sync.Mutex
	salt []byte
	key  *[keyLength]byte
}

type Option func(*Store)

// WithPassphrase seals the file with NaCl secretbox under an argon2id derived key.
func WithPassphrase(passphrase string) Option {
	return func(s *Store) {
		if passphrase != "" {
			s.passphrase = []byte(passphrase)
		}
	}
}

func New(path string, options ...Option) *Store {
	s := &Store{path: path}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *Store) Path() string {
	return s.path
}

// envelope is the on-disk layout. Plain files use Values, sealed files use the rest.
type envelope struct {
	Values map[string]string `json:"values,omitempty"`
	Salt   []byte            `json:"salt,omitempty"`
	Nonce  []byte            `json:"nonce,omitempty"`
	Box    []byte            `json:"box,omitempty"`
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	values[key] = value
	return s.save(values)
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	values, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := values[key]; !ok {
		return nil
	}
	delete(values, key)
	return s.save(values)
}

func (s *Store) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filestore read %s: %w", s.path, err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("filestore decode %s: %w", s.path, err)
	}

	if len(env.Box) == 0 {
		if env.Values == nil {
			env.Values = map[string]string{}
		}
		return env.Values, nil
	}

	if len(s.passphrase) == 0 {
		return nil, apperrors.Wrapf(apperrors.ErrSealedStorage, "filestore %s: no passphrase configured", s.path)
	}
	if len(env.Nonce) != nonceLength || len(env.Salt) != saltLength {
		return nil, apperrors.Wrapf(apperrors.ErrSealedStorage, "filestore %s: malformed envelope", s.path)
	}

	key := s.keyFor(env.Salt)
	var nonce [nonceLength]byte
	copy(nonce[:], env.Nonce)

	plain, ok := secretbox.Open(nil, env.Box, &nonce, key)
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrSealedStorage, "filestore %s: wrong passphrase or corrupt file", s.path)
	}

	values := map[string]string{}
	if err := json.Unmarshal(plain, &values); err != nil {
		return nil, fmt.Errorf("filestore decode sealed values: %w", err)
	}
	return values, nil
}

func (s *Store) save(values map[string]string) error {
	var env envelope
	if len(s.passphrase) == 0 {
		env.Values = values
	} else {
		if s.salt == nil {
			salt := make([]byte, saltLength)
			if _, err := io.ReadFull(rand.Reader, salt); err != nil {
				return fmt.Errorf("filestore salt: %w", err)
			}
			s.keyFor(salt)
		}

		plain, err := json.Marshal(values)
		if err != nil {
			return fmt.Errorf("filestore encode values: %w", err)
		}

		var nonce [nonceLength]byte
		if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
			return fmt.Errorf("filestore nonce: %w", err)
		}

		env.Salt = s.salt
		env.Nonce = nonce[:]
		env.Box = secretbox.Seal(nil, plain, &nonce, s.key)
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("filestore encode: %w", err)
	}
	return writeFileAtomic(s.path, raw)
}

// keyFor derives (and caches) the key for salt. The cache holds one salt at a time.
func (s *Store) keyFor(salt []byte) *[keyLength]byte {
	if s.key != nil && string(s.salt) == string(salt) {
		return s.key
	}
	derived := argon2.IDKey(s.passphrase, salt, argonTime, argonMemory, argonThreads, keyLength)
	var key [keyLength]byte
	copy(key[:], derived)
	s.salt = append([]byte(nil), salt...)
	s.key = &key
	return s.key
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("filestore mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tokens-*")
	if err != nil {
		return fmt.Errorf("filestore temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore write: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("filestore chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore close: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("filestore rename: %w", err)
	}
	return nil
}
