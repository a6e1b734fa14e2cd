package internal

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

const npubPrefix = "npub"

// DecodeNPub converts a bech32 "npub1..." public key into the 64-character
// lower-case hex form relays filter on
func DecodeNPub(npub string) (string, error) {
	npub = strings.TrimSpace(npub)
	if npub == "" {
		return "", &KeyError{Key: npub, Err: errors.New("empty key")}
	}

	hrp, data, err := bech32.Decode(npub)
	if err != nil {
		return "", &KeyError{Key: npub, Err: err}
	}
	if hrp != npubPrefix {
		return "", &KeyError{Key: npub, Err: fmt.Errorf("unexpected prefix %q, want %q", hrp, npubPrefix)}
	}

	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return "", &KeyError{Key: npub, Err: err}
	}
	if len(raw) != 32 {
		return "", &KeyError{Key: npub, Err: fmt.Errorf("decoded key is %d bytes, want 32", len(raw))}
	}
	return hex.EncodeToString(raw), nil
}

// EncodeNPub is the inverse of DecodeNPub
func EncodeNPub(hexKey string) (string, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return "", &KeyError{Key: hexKey, Err: err}
	}
	if len(raw) != 32 {
		return "", &KeyError{Key: hexKey, Err: fmt.Errorf("key is %d bytes, want 32", len(raw))}
	}
	data, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", &KeyError{Key: hexKey, Err: err}
	}
	npub, err := bech32.Encode(npubPrefix, data)
	if err != nil {
		return "", &KeyError{Key: hexKey, Err: err}
	}
	return npub, nil
}
