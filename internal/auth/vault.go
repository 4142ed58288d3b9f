// Package auth stores portal API tokens encrypted at rest. The vault key is
// either derived from a passphrase (scrypt) or generated once and kept in a
// mode-0600 key file next to the vault.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const (
	// EnvPassphrase selects passphrase-derived keys instead of the key file.
	EnvPassphrase = "LMC_VAULT_PASSPHRASE"

	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// Vault is an encrypted token store.
type Vault struct {
	path    string
	keyPath string
}

// vaultFile is the on-disk shape of the vault.
type vaultFile struct {
	Version int               `json:"version"`
	Salt    string            `json:"salt"`
	Tokens  map[string]sealed `json:"tokens"`
}

type sealed struct {
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// NewVault creates a vault over the given file paths.
func NewVault(path, keyPath string) *Vault {
	return &Vault{path: path, keyPath: keyPath}
}

// SetToken encrypts and stores the API token for a portal.
func (v *Vault) SetToken(portalID, token string) error {
	file, err := v.load()
	if err != nil {
		return err
	}
	key, err := v.key(file)
	if err != nil {
		return err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return fmt.Errorf("failed to create cipher: %w", err)
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	ct := aead.Seal(nil, nonce, []byte(token), []byte(portalID))
	file.Tokens[portalID] = sealed{
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
	}
	return v.save(file)
}

// Token decrypts the stored API token for a portal.
func (v *Vault) Token(portalID string) (string, error) {
	file, err := v.load()
	if err != nil {
		return "", err
	}
	entry, ok := file.Tokens[portalID]
	if !ok {
		return "", fmt.Errorf("no credential stored for portal %q", portalID)
	}
	key, err := v.key(file)
	if err != nil {
		return "", err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(entry.Nonce)
	if err != nil {
		return "", fmt.Errorf("corrupt vault entry: %w", err)
	}
	ct, err := base64.StdEncoding.DecodeString(entry.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("corrupt vault entry: %w", err)
	}
	plain, err := aead.Open(nil, nonce, ct, []byte(portalID))
	if err != nil {
		return "", fmt.Errorf("failed to decrypt credential (wrong key or passphrase?): %w", err)
	}
	return string(plain), nil
}

// DeleteToken removes the stored token for a portal.
func (v *Vault) DeleteToken(portalID string) error {
	file, err := v.load()
	if err != nil {
		return err
	}
	delete(file.Tokens, portalID)
	return v.save(file)
}

// HasToken reports whether a token is stored for the portal.
func (v *Vault) HasToken(portalID string) bool {
	file, err := v.load()
	if err != nil {
		return false
	}
	_, ok := file.Tokens[portalID]
	return ok
}

func (v *Vault) load() (*vaultFile, error) {
	data, err := os.ReadFile(v.path)
	if os.IsNotExist(err) {
		salt := make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
		return &vaultFile{
			Version: 1,
			Salt:    base64.StdEncoding.EncodeToString(salt),
			Tokens:  make(map[string]sealed),
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read vault: %w", err)
	}
	var file vaultFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse vault: %w", err)
	}
	if file.Tokens == nil {
		file.Tokens = make(map[string]sealed)
	}
	return &file, nil
}

func (v *Vault) save(file *vaultFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode vault: %w", err)
	}
	if err := os.WriteFile(v.path, data, 0600); err != nil {
		return fmt.Errorf("failed to write vault: %w", err)
	}
	return nil
}

// key returns the vault encryption key: scrypt-derived when a passphrase is
// set, the key file's contents otherwise.
func (v *Vault) key(file *vaultFile) ([]byte, error) {
	if pass := os.Getenv(EnvPassphrase); pass != "" {
		salt, err := base64.StdEncoding.DecodeString(file.Salt)
		if err != nil {
			return nil, fmt.Errorf("corrupt vault salt: %w", err)
		}
		return scrypt.Key([]byte(pass), salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	}

	key, err := os.ReadFile(v.keyPath)
	if err == nil {
		if len(key) != chacha20poly1305.KeySize {
			return nil, fmt.Errorf("vault key file has wrong size")
		}
		return key, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read vault key: %w", err)
	}

	key = make([]byte, chacha20poly1305.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate vault key: %w", err)
	}
	if err := os.WriteFile(v.keyPath, key, 0600); err != nil {
		return nil, fmt.Errorf("failed to write vault key: %w", err)
	}
	return key, nil
}
