// Package transport implements the Sender/Receiver and
// FramePublisher/FrameSubscriber network operators of §4.6 and §6: wire
// envelopes carrying FrameProto/DetectionProto are sealed with a
// per-session secretbox key derived via HKDF before leaving the process
// when the SenderBody has a Cipher (the registry-built kinds have none),
// mirroring stream/stream.go's exchange()/txFrame() confidentiality
// scheme, then carried over one of three concrete transports (QUIC,
// Websocket, RPC) selected per operator instance.
package transport

import (
	"crypto/rand"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"

	"github.com/saf-project/saf/errs"
)

// deriveKey expands a shared secret into a 32-byte secretbox key, the
// same HKDF-SHA256 construction stream/stream.go uses to derive its
// per-session frame encryption key.
func deriveKey(secret, salt []byte) (*[32]byte, error) {
	r := hkdf.New(sha256.New, secret, salt, []byte("saf-transport-envelope"))
	var key [32]byte
	if _, err := io.ReadFull(r, key[:]); err != nil {
		return nil, errs.NewRuntimeError("transport: derive key: %v", err)
	}
	return &key, nil
}

// Cipher seals and opens envelope payloads with a fixed session key.
type Cipher struct {
	key *[32]byte
}

// NewCipher derives a Cipher's key from secret and salt. When salt is
// empty a random 16-byte salt is generated and used; it is not returned,
// so two peers derive the same key only when both pass the same
// non-empty salt.
func NewCipher(secret []byte, salt []byte) (*Cipher, error) {
	if len(salt) == 0 {
		salt = make([]byte, 16)
		if _, err := rand.Read(salt); err != nil {
			return nil, errs.NewRuntimeError("transport: generate salt: %v", err)
		}
	}
	key, err := deriveKey(secret, salt)
	if err != nil {
		return nil, err
	}
	return &Cipher{key: key}, nil
}

// Seal encrypts plaintext into a new nonce||ciphertext slice; plaintext
// is left unmodified.
func (c *Cipher) Seal(plaintext []byte) ([]byte, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, errs.NewRuntimeError("transport: nonce: %v", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, c.key), nil
}

// Open decrypts a nonce||ciphertext envelope produced by Seal.
func (c *Cipher) Open(box []byte) ([]byte, error) {
	if len(box) < 24 {
		return nil, errs.NewRuntimeError("transport: envelope too short")
	}
	var nonce [24]byte
	copy(nonce[:], box[:24])
	out, ok := secretbox.Open(nil, box[24:], &nonce, c.key)
	if !ok {
		return nil, errs.NewRuntimeError("transport: envelope authentication failed")
	}
	return out, nil
}
