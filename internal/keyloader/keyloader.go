package keyloader

import (
	"bufio"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"sahara/internal/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrWalletsFileNotFound  = errors.New("key file not found")
	ErrWalletFileReadFailed = errors.New("failed to read key file")
	ErrWalletInvalidKey     = errors.New("invalid private key format")
	ErrNoValidKeysFound     = errors.New("no valid private keys found in the file")
)

// LoadedKey stores the private key and address loaded from a source.
// It does not provide any signing capabilities itself.
type LoadedKey struct {
	PrivateKey *ecdsa.PrivateKey
	Address    common.Address
}

// LoadKeys reads private keys from a file and returns a slice of LoadedKey pointers.
// It expects one private key per line, optionally prefixed with "0x".
// Lines starting with '#' or empty lines are ignored, and so are repeated keys.
func LoadKeys(path string, log logger.Logger) ([]*LoadedKey, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("файл ключей '%s': %w", path, ErrWalletsFileNotFound)
		}
		return nil, fmt.Errorf("чтение файла ключей '%s': %w: %w", path, ErrWalletFileReadFailed, err)
	}
	defer file.Close()

	keys, err := ReadKeys(file, path, log)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// ReadKeys parses keys from r. name is only used in log lines and errors.
func ReadKeys(r io.Reader, name string, log logger.Logger) ([]*LoadedKey, error) {
	var loadedKeys []*LoadedKey
	seen := make(map[common.Address]bool)

	scanner := bufio.NewScanner(r)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(line, "0x"))
		if err != nil {
			log.Warn("Неверный формат приватного ключа", "line", lineNumber, "file", name, "error", ErrWalletInvalidKey)
			continue
		}

		address := crypto.PubkeyToAddress(privateKey.PublicKey)
		if seen[address] {
			log.Warn("Повторяющийся ключ пропущен", "line", lineNumber, "addr", address.Hex())
			continue
		}
		seen[address] = true
		loadedKeys = append(loadedKeys, &LoadedKey{PrivateKey: privateKey, Address: address})
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("сканирование файла ключей '%s': %w: %w", name, ErrWalletFileReadFailed, err)
	}

	if len(loadedKeys) == 0 {
		return nil, fmt.Errorf("%w в файле '%s'", ErrNoValidKeysFound, name)
	}
	return loadedKeys, nil
}
