package tron

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// addressPrefix is the Tron mainnet address version byte (0x41).
const addressPrefix = 0x41

// AddressToHex converts a base58check Tron address (T...) to its 21-byte hex
// form with the 0x41 prefix. Hex input passes through unchanged.
func AddressToHex(address string) (string, error) {
	if strings.HasPrefix(address, "41") && len(address) == 42 {
		return address, nil
	}
	if !strings.HasPrefix(address, "T") {
		return "", fmt.Errorf("tron: invalid address %q", address)
	}

	decoded := base58.Decode(address)
	if len(decoded) != 25 {
		return "", fmt.Errorf("tron: invalid base58 address %q", address)
	}

	payload, checksum := decoded[:21], decoded[21:]
	h1 := sha256.Sum256(payload)
	h2 := sha256.Sum256(h1[:])
	for i := 0; i < 4; i++ {
		if checksum[i] != h2[i] {
			return "", fmt.Errorf("tron: bad address checksum in %q", address)
		}
	}
	if payload[0] != addressPrefix {
		return "", fmt.Errorf("tron: unexpected address version 0x%02x", payload[0])
	}
	return hex.EncodeToString(payload), nil
}

// HexToAddress converts a 21-byte hex Tron address to base58check form.
func HexToAddress(hexAddr string) (string, error) {
	hexAddr = strings.TrimPrefix(hexAddr, "0x")
	payload, err := hex.DecodeString(hexAddr)
	if err != nil {
		return "", fmt.Errorf("tron: invalid hex address: %w", err)
	}
	if len(payload) != 21 || payload[0] != addressPrefix {
		return "", fmt.Errorf("tron: invalid hex address %q", hexAddr)
	}

	h1 := sha256.Sum256(payload)
	h2 := sha256.Sum256(h1[:])
	return base58.Encode(append(payload, h2[:4]...)), nil
}

// IsValidAddress reports whether the address is a well-formed base58check
// Tron address.
func IsValidAddress(address string) bool {
	_, err := AddressToHex(address)
	return err == nil
}
