// Package encryption - per-user field level encryption primitives
package encryption

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

// SymmetricKeyLen length of a symmetric key in bytes
const SymmetricKeyLen = 32

/*
KeyDerivationScheme identifies the password to key derivation function and its
parameters. It is persisted with the system parameters; any change to DeriveKey must
come with a new scheme identifier and a data migration.
*/
const KeyDerivationScheme = "argon2id-v19-t1-m65536-p4-k32-halcyon.v1"

// kdfDomainSalt fixed salt of the password to key derivation. The per-user salt only
// applies to the stored key hash, so re-login reproduces the same key.
var kdfDomainSalt = []byte("halcyon.user-key.v1")

const (
	kdfTime    = 1
	kdfMemory  = 64 * 1024
	kdfThreads = 4
)

// SymmetricKey a user's field encryption key
type SymmetricKey [SymmetricKeyLen]byte

/*
DeriveKey derive the symmetric key of a password. The derivation is deterministic.

	@param password string - the user password
	@returns the key
*/
func DeriveKey(password string) SymmetricKey {
	var key SymmetricKey
	copy(
		key[:],
		argon2.IDKey([]byte(password), kdfDomainSalt, kdfTime, kdfMemory, kdfThreads, SymmetricKeyLen),
	)
	return key
}

/*
DeriveSubKey expand a high entropy server secret into a purpose bound key

	@param secret []byte - the server secret
	@param purpose string - what the key is used for
	@returns the key
*/
func DeriveSubKey(secret []byte, purpose string) (SymmetricKey, error) {
	var key SymmetricKey
	reader := hkdf.New(sha256.New, secret, kdfDomainSalt, []byte(purpose))
	if _, err := io.ReadFull(reader, key[:]); err != nil {
		return SymmetricKey{}, fmt.Errorf("failed to expand '%s' key [%w]", purpose, err)
	}
	return key, nil
}

// Encode the key as URL safe base64
func (k SymmetricKey) Encode() string {
	return base64.RawURLEncoding.EncodeToString(k[:])
}

// Equal constant time key comparison
func (k SymmetricKey) Equal(other SymmetricKey) bool {
	return subtle.ConstantTimeCompare(k[:], other[:]) == 1
}

// IsZero whether the key is unset
func (k SymmetricKey) IsZero() bool {
	return k == SymmetricKey{}
}

/*
ParseSymmetricKey parse a key produced by SymmetricKey.Encode

	@param encoded string - the encoded key
	@returns the key
*/
func ParseSymmetricKey(encoded string) (SymmetricKey, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return SymmetricKey{}, fmt.Errorf("symmetric key is not valid base64 [%w]", err)
	}
	if len(raw) != SymmetricKeyLen {
		return SymmetricKey{}, fmt.Errorf(
			"symmetric key length %d =/= %d", len(raw), SymmetricKeyLen,
		)
	}
	var key SymmetricKey
	copy(key[:], raw)
	return key, nil
}

/*
HashKey compute the stored password hash of a key: hex(SHA256(key || salt))

	@param key SymmetricKey - the user key
	@param salt string - the user salt
	@returns hex encoded hash
*/
func HashKey(key SymmetricKey, salt string) string {
	hasher := sha256.New()
	_, _ = hasher.Write(key[:])
	_, _ = hasher.Write([]byte(salt))
	return hex.EncodeToString(hasher.Sum(nil))
}

/*
VerifyKeyHash constant time check that a key matches a stored hash

	@param key SymmetricKey - the candidate key
	@param salt string - the user salt
	@param storedHash string - the stored hash
	@returns whether the key matches
*/
func VerifyKeyHash(key SymmetricKey, salt string, storedHash string) bool {
	return hmac.Equal([]byte(HashKey(key, salt)), []byte(storedHash))
}

// NewSalt generate a random per-user salt
func NewSalt() string {
	return rand.Text()
}
