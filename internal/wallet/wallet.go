// ==================================
// File: internal/wallet/wallet.go
// ==================================
package wallet

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"
	"gopkg.in/yaml.v3"

	"github.com/rovshanmuradov/solana-counter/internal/transaction"
)

var ErrNoKey = errors.New("no private key configured")

// Wallet представляет кошелёк Solana.
type Wallet struct {
	PrivateKey solana.PrivateKey
	PublicKey  solana.PublicKey
}

// NewWallet создаёт кошелёк из base58-строки или JSON-массива байт
// (формат solana-keygen).
func NewWallet(secret string) (*Wallet, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrNoKey
	}

	var keyBytes []byte
	if strings.HasPrefix(secret, "[") {
		var raw []byte
		var ints []int
		if err := json.Unmarshal([]byte(secret), &ints); err != nil {
			return nil, fmt.Errorf("failed to decode private key array: %w", err)
		}
		for _, v := range ints {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("invalid private key byte: %d", v)
			}
			raw = append(raw, byte(v))
		}
		keyBytes = raw
	} else {
		decoded, err := base58.Decode(secret)
		if err != nil {
			return nil, fmt.Errorf("failed to decode private key: %w", err)
		}
		keyBytes = decoded
	}

	if len(keyBytes) != 64 {
		return nil, fmt.Errorf("invalid private key length: expected 64 bytes, got %d", len(keyBytes))
	}
	privateKey := solana.PrivateKey(keyBytes)
	return &Wallet{PrivateKey: privateKey, PublicKey: privateKey.PublicKey()}, nil
}

// Generate создаёт новый случайный кошелёк.
func Generate() (*Wallet, error) {
	key, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return &Wallet{PrivateKey: key, PublicKey: key.PublicKey()}, nil
}

// FromKeypairFile reads a solana-keygen JSON keypair file.
func FromKeypairFile(path string) (*Wallet, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read keypair file: %w", err)
	}
	w, err := NewWallet(string(data))
	if err != nil {
		return nil, fmt.Errorf("keypair %s: %w", path, err)
	}
	return w, nil
}

// FromEnv reads a key from the environment variable name.
func FromEnv(name string) (*Wallet, error) {
	value, ok := os.LookupEnv(name)
	if !ok || strings.TrimSpace(value) == "" {
		return nil, fmt.Errorf("%w: %s is not set", ErrNoKey, name)
	}
	w, err := NewWallet(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return w, nil
}

// SaveKeypair writes w in solana-keygen format, readable only by the owner.
func (w *Wallet) SaveKeypair(path string) error {
	ints := make([]int, len(w.PrivateKey))
	for i, b := range w.PrivateKey {
		ints[i] = int(b)
	}
	data, err := json.Marshal(ints)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}

// Signer adapts the wallet for the submission engine.
func (w *Wallet) Signer() transaction.Signer {
	return transaction.NewKeypairSigner(w.PrivateKey)
}

// String возвращает строковое представление кошелька (его публичный ключ).
func (w *Wallet) String() string {
	return w.PublicKey.String()
}

// WalletConfig represents the structure of wallets YAML file
type WalletConfig struct {
	Wallets []struct {
		Name       string `yaml:"name"`
		PrivateKey string `yaml:"private_key"`
	} `yaml:"wallets"`
}

// LoadWallets загружает кошельки из YAML-файла.
func LoadWallets(path string) (map[string]*Wallet, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config WalletConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(config.Wallets) == 0 {
		return nil, fmt.Errorf("no wallets found in configuration")
	}

	wallets := make(map[string]*Wallet)
	for _, walletData := range config.Wallets {
		if walletData.Name == "" || walletData.PrivateKey == "" {
			continue
		}
		w, err := NewWallet(walletData.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("wallet %q: %w", walletData.Name, err)
		}
		wallets[walletData.Name] = w
	}

	if len(wallets) == 0 {
		return nil, fmt.Errorf("no valid wallets loaded")
	}
	return wallets, nil
}
