package encryption

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/alwitt/halcyon/result"
	"golang.org/x/crypto/chacha20poly1305"
)

// EnvelopeVersion leading byte of every cipher text envelope
const EnvelopeVersion byte = 0x01

// MaxNameCiphertextLen longest accepted cipher text for short name-like fields
const MaxNameCiphertextLen = 256

// envelopeOverhead version + nonce + AEAD tag
const envelopeOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

/*
Encrypt encrypt plain text with XChaCha20-Poly1305 under a random nonce.

The result is URL safe base64 of `version || nonce || sealed box`. The empty string
produces a real envelope as well.

	@param plainText string - the plain text
	@param key SymmetricKey - the user key
	@returns the cipher text
*/
func Encrypt(plainText string, key SymmetricKey) string {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		// Key length is fixed by the type
		panic(err)
	}

	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	_, _ = rand.Read(nonce)

	envelope := make([]byte, 0, envelopeOverhead+len(plainText))
	envelope = append(envelope, EnvelopeVersion)
	envelope = append(envelope, nonce...)
	envelope = aead.Seal(envelope, nonce, []byte(plainText), []byte{EnvelopeVersion})
	return base64.RawURLEncoding.EncodeToString(envelope)
}

/*
Decrypt decrypt a cipher text produced by Encrypt.

The empty cipher text decrypts to the empty string. Every other failure, be it
malformed input or the wrong key, is reported as the same decryption error.

	@param cipherText string - the cipher text
	@param key SymmetricKey - the user key
	@returns the plain text
*/
func Decrypt(cipherText string, key SymmetricKey) result.Result[string] {
	if cipherText == "" {
		return result.Ok("")
	}

	envelope, err := base64.RawURLEncoding.DecodeString(cipherText)
	if err != nil || len(envelope) < envelopeOverhead || envelope[0] != EnvelopeVersion {
		return result.Err[string](result.Decryption())
	}

	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return result.Err[string](result.Decryption())
	}

	nonce := envelope[1 : 1+chacha20poly1305.NonceSizeX]
	plainText, err := aead.Open(nil, nonce, envelope[1+chacha20poly1305.NonceSizeX:], envelope[:1])
	if err != nil {
		return result.Err[string](result.Decryption())
	}
	return result.Ok(string(plainText))
}

/*
EncryptName encrypt a short name-like field, enforcing MaxNameCiphertextLen

	@param plainText string - the plain text
	@param key SymmetricKey - the user key
	@returns the cipher text, or a validation error when too long
*/
func EncryptName(plainText string, key SymmetricKey) result.Result[string] {
	encrypted := Encrypt(plainText, key)
	if len(encrypted) > MaxNameCiphertextLen {
		return result.Err[string](result.Validation("Name too long"))
	}
	return result.Ok(encrypted)
}
