package internal

import (
	"encoding/hex"
	"errors"
	"strings"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

func TestDecodeNPub_RoundTrip(t *testing.T) {
	hexKey := strings.Repeat("ab", 32)

	npub, err := EncodeNPub(hexKey)
	if err != nil {
		t.Fatalf("EncodeNPub() error = %v", err)
	}
	if !strings.HasPrefix(npub, "npub1") {
		t.Errorf("EncodeNPub() = %q, want npub1 prefix", npub)
	}

	got, err := DecodeNPub(npub)
	if err != nil {
		t.Fatalf("DecodeNPub() error = %v", err)
	}
	if got != hexKey {
		t.Errorf("DecodeNPub() = %q, want %q", got, hexKey)
	}
}

func TestDecodeNPub_DefaultKey(t *testing.T) {
	got, err := DecodeNPub(DefaultConfig().Relay.NPub)
	if err != nil {
		t.Fatalf("DecodeNPub(default) error = %v", err)
	}
	if len(got) != 64 {
		t.Errorf("len(hex) = %d, want 64", len(got))
	}
	if strings.ToLower(got) != got {
		t.Error("hex key should be lower case")
	}
}

func TestDecodeNPub_Invalid(t *testing.T) {
	valid, err := EncodeNPub(strings.Repeat("01", 32))
	if err != nil {
		t.Fatalf("EncodeNPub() error = %v", err)
	}
	// flip the last checksum character
	last := valid[len(valid)-1]
	swap := byte('q')
	if last == 'q' {
		swap = 'p'
	}
	corrupted := valid[:len(valid)-1] + string(swap)

	tests := []struct {
		name string
		key  string
	}{
		{name: "empty", key: ""},
		{name: "not bech32", key: "hello world"},
		{name: "bad checksum", key: corrupted},
		{name: "wrong prefix", key: mustEncode(t, "nsec", strings.Repeat("01", 32))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeNPub(tt.key)
			if err == nil {
				t.Fatal("DecodeNPub() should fail")
			}
			var keyErr *KeyError
			if !errors.As(err, &keyErr) {
				t.Errorf("DecodeNPub() error = %T, want *KeyError", err)
			}
		})
	}
}

func mustEncode(t *testing.T, hrp, hexKey string) string {
	t.Helper()
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		t.Fatalf("hex.DecodeString() error = %v", err)
	}
	data, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		t.Fatalf("ConvertBits() error = %v", err)
	}
	out, err := bech32.Encode(hrp, data)
	if err != nil {
		t.Fatalf("bech32.Encode() error = %v", err)
	}
	return out
}
