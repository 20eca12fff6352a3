package auth

import (
	"errors"

	"github.com/zalando/go-keyring"
)

// KeyStore keeps service account keys under a name
type KeyStore interface {
	Save(name string, data []byte) error
	Load(name string) ([]byte, error)
	Delete(name string) error
	Name() string
}

// ErrKeyNotFound is returned when no key is stored under a name
var ErrKeyNotFound = errors.New("key not found")

// KeyringStorage uses system keyring for key storage
type KeyringStorage struct {
	serviceName string
}

// NewKeyringStorage creates a keyring storage backend
func NewKeyringStorage(serviceName string) *KeyringStorage {
	return &KeyringStorage{
		serviceName: serviceName,
	}
}

func (s *KeyringStorage) Save(name string, data []byte) error {
	return keyring.Set(s.serviceName, name, string(data))
}

func (s *KeyringStorage) Load(name string) ([]byte, error) {
	data, err := keyring.Get(s.serviceName, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func (s *KeyringStorage) Delete(name string) error {
	err := keyring.Delete(s.serviceName, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrKeyNotFound
	}
	return err
}

func (s *KeyringStorage) Name() string {
	return "system-keyring"
}
