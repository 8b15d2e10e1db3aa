// Package crypto provides the ed25519 wallet used to sign Solana swap
// transactions, plus encrypted-keyfile handling for key material at rest.
package crypto

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// Wallet holds the holder's ed25519 keypair. It is constructed once at engine
// startup and passed by reference for the lifetime of the process; the secret
// key is never logged or serialized.
type Wallet struct {
	priv    ed25519.PrivateKey
	address string
}

// NewWallet parses key material into a Wallet. Two formats are accepted:
//
//   - a base58-encoded 64-byte secret key (phantom-style export)
//   - a JSON array of 64 byte values (solana-keygen file format)
func NewWallet(material string) (*Wallet, error) {
	material = strings.TrimSpace(material)
	if material == "" {
		return nil, fmt.Errorf("crypto: empty key material")
	}

	var raw []byte
	if strings.HasPrefix(material, "[") {
		var ints []byte
		if err := json.Unmarshal([]byte(material), &ints); err != nil {
			return nil, fmt.Errorf("crypto: parse keypair JSON array: %w", err)
		}
		raw = ints
	} else {
		decoded, err := base58.Decode(material)
		if err != nil {
			return nil, fmt.Errorf("crypto: decode base58 secret key: %w", err)
		}
		raw = decoded
	}

	if len(raw) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("crypto: expected %d-byte secret key, got %d bytes", ed25519.PrivateKeySize, len(raw))
	}

	priv := ed25519.PrivateKey(raw)
	pub := priv.Public().(ed25519.PublicKey)

	return &Wallet{
		priv:    priv,
		address: base58.Encode(pub),
	}, nil
}

// Address returns the wallet's public key in base58.
func (w *Wallet) Address() string {
	return w.address
}

// SignTransaction signs a base64-encoded unsigned Solana transaction as
// returned by the aggregator's swap endpoint and returns the signed
// transaction, base64-encoded and ready for submission.
//
// Solana wire format: a compact-u16 signature count, the signatures (64 bytes
// each), then the message. The aggregator reserves the signature slots; the
// fee payer (this wallet) signs the message bytes into slot 0.
func (w *Wallet) SignTransaction(txBase64 string) (string, error) {
	tx, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return "", fmt.Errorf("crypto: decode transaction: %w", err)
	}

	sigCount, offset, err := decodeCompactU16(tx)
	if err != nil {
		return "", fmt.Errorf("crypto: parse signature count: %w", err)
	}
	if sigCount == 0 {
		return "", fmt.Errorf("crypto: transaction reserves no signature slots")
	}

	msgStart := offset + sigCount*ed25519.SignatureSize
	if msgStart > len(tx) {
		return "", fmt.Errorf("crypto: truncated transaction (%d bytes, need %d for signatures)", len(tx), msgStart)
	}

	sig := ed25519.Sign(w.priv, tx[msgStart:])
	copy(tx[offset:offset+ed25519.SignatureSize], sig)

	return base64.StdEncoding.EncodeToString(tx), nil
}

// decodeCompactU16 reads Solana's compact-u16 ("shortvec") length prefix and
// returns the value plus the number of bytes consumed.
func decodeCompactU16(data []byte) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if i >= len(data) {
			return 0, 0, fmt.Errorf("unexpected end of input")
		}
		b := int(data[i])
		value |= (b & 0x7f) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("compact-u16 too long")
}
