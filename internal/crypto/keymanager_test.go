package crypto

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"

	"github.com/mr-tron/base58"
)

func TestEncryptDecryptKey_RoundTrip(t *testing.T) {
	_, priv := testKeypair(t)
	material := base58.Encode(priv)

	blob, err := EncryptKey(material, "correct horse battery staple")
	if err != nil {
		t.Fatalf("EncryptKey() error: %v", err)
	}

	got, err := DecryptKey(blob, "correct horse battery staple")
	if err != nil {
		t.Fatalf("DecryptKey() error: %v", err)
	}
	if got != material {
		t.Error("decrypted material does not match original")
	}
}

func TestDecryptKey_WrongPassword(t *testing.T) {
	_, priv := testKeypair(t)

	blob, err := EncryptKey(base58.Encode(priv), "right")
	if err != nil {
		t.Fatalf("EncryptKey() error: %v", err)
	}
	if _, err := DecryptKey(blob, "wrong"); err == nil {
		t.Fatal("DecryptKey() with wrong password expected error, got nil")
	}
}

func TestEncryptKey_RejectsBadMaterial(t *testing.T) {
	if _, err := EncryptKey("not a key", "password"); err == nil {
		t.Fatal("EncryptKey() with invalid material expected error, got nil")
	}
	if _, err := EncryptKey(base58.Encode(make([]byte, ed25519.PrivateKeySize)), ""); err == nil {
		t.Fatal("EncryptKey() with empty password expected error, got nil")
	}
}

func TestLoadKey(t *testing.T) {
	_, priv := testKeypair(t)
	material := base58.Encode(priv)

	t.Run("raw key wins", func(t *testing.T) {
		got, err := LoadKey(KeyConfig{RawPrivateKey: material, EncryptedKeyPath: "/nonexistent"})
		if err != nil {
			t.Fatalf("LoadKey() error: %v", err)
		}
		if got != material {
			t.Error("LoadKey() did not return the raw key")
		}
	})

	t.Run("encrypted file", func(t *testing.T) {
		blob, err := EncryptKey(material, "pw")
		if err != nil {
			t.Fatalf("EncryptKey() error: %v", err)
		}
		path := filepath.Join(t.TempDir(), "key.json")
		if err := os.WriteFile(path, blob, 0o600); err != nil {
			t.Fatalf("write key file: %v", err)
		}

		got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
		if err != nil {
			t.Fatalf("LoadKey() error: %v", err)
		}
		if got != material {
			t.Error("LoadKey() did not return the decrypted key")
		}
	})

	t.Run("no source", func(t *testing.T) {
		if _, err := LoadKey(KeyConfig{}); err == nil {
			t.Fatal("LoadKey() with no source expected error, got nil")
		}
	})
}
