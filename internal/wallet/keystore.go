package wallet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// keystoreVersion is the current wallet file format. Version 2 seals the
// seed under the wallet name and records its fingerprint.
const keystoreVersion = 2

// keystoreFile is the on-disk JSON format for an encrypted wallet.
type keystoreFile struct {
	Version       int            `json:"version"`
	CreatedAt     time.Time      `json:"created_at"`
	Fingerprint   string         `json:"fingerprint"`
	EncryptedSeed []byte         `json:"encrypted_seed"`
	Accounts      []AccountEntry `json:"accounts"`
}

// AccountEntry stores metadata for an address account. An account is one
// security level's address space under the wallet seed.
type AccountEntry struct {
	Name     string `json:"name"`
	Security int    `json:"security"`
	Address  string `json:"address"` // address at index 0, identifies the account
}

// Keystore manages encrypted key storage on disk.
type Keystore struct {
	path string
}

// NewKeystore creates a keystore that reads/writes to the given directory.
// The directory is created if it doesn't exist.
func NewKeystore(path string) (*Keystore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("create keystore dir: %w", err)
	}
	return &Keystore{path: path}, nil
}

// walletPath returns the file path for a wallet by name.
func (ks *Keystore) walletPath(name string) string {
	return filepath.Join(ks.path, name+".wallet")
}

// Create creates a new encrypted wallet file from a mnemonic seed. The
// ciphertext is bound to name, so a renamed file no longer opens.
func (ks *Keystore) Create(name string, seed, password []byte, params EncryptionParams) error {
	if len(seed) != SeedSize {
		return fmt.Errorf("seed is %d bytes, want %d", len(seed), SeedSize)
	}
	path := ks.walletPath(name)
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("wallet %q already exists", name)
	}

	encrypted, err := Encrypt(seed, password, SeedContext(name), params)
	if err != nil {
		return fmt.Errorf("encrypt seed: %w", err)
	}

	kf := keystoreFile{
		Version:       keystoreVersion,
		CreatedAt:     time.Now().UTC(),
		Fingerprint:   SeedFingerprint(seed),
		EncryptedSeed: encrypted,
		Accounts:      []AccountEntry{},
	}

	return ks.writeFile(path, &kf)
}

// Load decrypts a wallet and returns the seed bytes.
func (ks *Keystore) Load(name string, password []byte) ([]byte, error) {
	kf, err := ks.readFile(ks.walletPath(name))
	if err != nil {
		return nil, err
	}

	seed, err := Decrypt(kf.EncryptedSeed, password, SeedContext(name))
	if err != nil {
		return nil, fmt.Errorf("decrypt wallet %q: %w", name, err)
	}
	if len(seed) != SeedSize || SeedFingerprint(seed) != kf.Fingerprint {
		zeroBytes(seed)
		return nil, fmt.Errorf("wallet %q: seed does not match fingerprint %s", name, kf.Fingerprint)
	}

	return seed, nil
}

// Fingerprint returns the stored seed fingerprint without decrypting.
func (ks *Keystore) Fingerprint(name string) (string, error) {
	kf, err := ks.readFile(ks.walletPath(name))
	if err != nil {
		return "", err
	}
	return kf.Fingerprint, nil
}

// AddAccount records an account in the wallet metadata.
func (ks *Keystore) AddAccount(walletName string, acct AccountEntry) error {
	if acct.Name == "" {
		return fmt.Errorf("account name is required")
	}
	if acct.Security < MinSecurity || acct.Security > MaxSecurity {
		return fmt.Errorf("account %q: invalid security level %d", acct.Name, acct.Security)
	}

	path := ks.walletPath(walletName)
	kf, err := ks.readFile(path)
	if err != nil {
		return err
	}

	for _, existing := range kf.Accounts {
		if existing.Name != acct.Name {
			continue
		}
		// Idempotent insert if metadata is unchanged.
		if existing.Security == acct.Security && existing.Address == acct.Address {
			return nil
		}
		return fmt.Errorf("account %q already exists", acct.Name)
	}

	kf.Accounts = append(kf.Accounts, acct)
	return ks.writeFile(path, kf)
}

// GetAccount returns the named account entry.
func (ks *Keystore) GetAccount(walletName, name string) (AccountEntry, error) {
	accounts, err := ks.ListAccounts(walletName)
	if err != nil {
		return AccountEntry{}, err
	}
	for _, a := range accounts {
		if a.Name == name {
			return a, nil
		}
	}
	return AccountEntry{}, fmt.Errorf("account %q not found in wallet %q", name, walletName)
}

// ListAccounts returns the account entries for a wallet.
func (ks *Keystore) ListAccounts(walletName string) ([]AccountEntry, error) {
	kf, err := ks.readFile(ks.walletPath(walletName))
	if err != nil {
		return nil, err
	}
	return kf.Accounts, nil
}

// List returns the names of all wallet files in the keystore.
func (ks *Keystore) List() ([]string, error) {
	entries, err := os.ReadDir(ks.path)
	if err != nil {
		return nil, fmt.Errorf("read keystore dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if ext := filepath.Ext(name); ext == ".wallet" {
			names = append(names, name[:len(name)-len(ext)])
		}
	}
	return names, nil
}

// Delete removes a wallet file.
func (ks *Keystore) Delete(name string) error {
	path := ks.walletPath(name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("wallet %q not found", name)
	}
	return os.Remove(path)
}

func (ks *Keystore) writeFile(path string, kf *keystoreFile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal wallet: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write wallet: %w", err)
	}
	return nil
}

func (ks *Keystore) readFile(path string) (*keystoreFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read wallet: %w", err)
	}
	var kf keystoreFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("parse wallet: %w", err)
	}
	if kf.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported wallet version: %d", kf.Version)
	}
	return &kf, nil
}
