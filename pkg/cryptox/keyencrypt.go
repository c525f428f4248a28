package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"sync"
)

// MasterKeyEnv is consulted when no master key file is configured.
const MasterKeyEnv = "AUTH_MASTER_KEY"

var (
	masterMu   sync.Mutex
	masterKey  []byte
	masterPath string
)

var ErrCiphertextTooShort = errors.New("cryptox: ciphertext too short")

// SetMasterKeyPath points the signing key encryption at a key file. Call it
// before the first Encrypt/Decrypt.
func SetMasterKeyPath(path string) {
	masterMu.Lock()
	defer masterMu.Unlock()
	masterPath = path
	masterKey = nil
}

// ResetMasterKey forgets the cached master key so the next call reloads it.
func ResetMasterKey() {
	SetMasterKeyPath("")
}

// The master key is SHA-256 of the configured material: a file, then the
// environment, then (development only) random bytes which make persisted
// keys unreadable after a restart.
func loadMasterKey() ([]byte, error) {
	masterMu.Lock()
	defer masterMu.Unlock()

	if masterKey != nil {
		return masterKey, nil
	}

	var material []byte
	switch {
	case masterPath != "":
		data, err := os.ReadFile(masterPath)
		if err != nil {
			return nil, fmt.Errorf("cryptox: read master key: %w", err)
		}
		material = data
	case os.Getenv(MasterKeyEnv) != "":
		material = []byte(os.Getenv(MasterKeyEnv))
	default:
		material = make([]byte, 32)
		if _, err := rand.Read(material); err != nil {
			return nil, fmt.Errorf("cryptox: generate master key: %w", err)
		}
	}

	sum := sha256.Sum256(material)
	masterKey = sum[:]
	return masterKey, nil
}

func masterAEAD() (cipher.AEAD, error) {
	key, err := loadMasterKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("cryptox: aes: %w", err)
	}
	return cipher.NewGCM(block)
}

// EncryptPrivateKey seals PEM key material with AES-256-GCM. Output layout is
// nonce || ciphertext || tag.
func EncryptPrivateKey(plaintext []byte) ([]byte, error) {
	aead, err := masterAEAD()
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("cryptox: nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// DecryptPrivateKey reverses EncryptPrivateKey.
func DecryptPrivateKey(sealed []byte) ([]byte, error) {
	aead, err := masterAEAD()
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrCiphertextTooShort
	}
	nonce, body := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, body, nil)
	if err != nil {
		return nil, fmt.Errorf("cryptox: decrypt: %w", err)
	}
	return plain, nil
}
