package encryption_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/alwitt/halcyon/encryption"
	"github.com/alwitt/halcyon/result"
	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/chacha20poly1305"
)

func TestCipherRoundTrip(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	key := encryption.DeriveKey(uuid.NewString())

	for _, plainText := range []string{
		"", "hello", "multi\nline\tentry", "ünïcödé ✓ 日本語", strings.Repeat("x", 64*1024),
	} {
		cipherText := encryption.Encrypt(plainText, key)
		assert.NotEmpty(cipherText)
		if plainText != "" {
			assert.NotContains(cipherText, plainText)
		}

		decrypted := encryption.Decrypt(cipherText, key)
		assert.True(decrypted.IsOk())
		assert.Equal(plainText, decrypted.Val())
	}

	// Same plain text twice yields different cipher texts
	first := encryption.Encrypt("hello", key)
	second := encryption.Encrypt("hello", key)
	assert.NotEqual(first, second)
}

func TestCipherWrongKey(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	key1 := encryption.DeriveKey("password123")
	key2 := encryption.DeriveKey("newpass1234")

	for _, plainText := range []string{"", "hello", uuid.NewString()} {
		decrypted := encryption.Decrypt(encryption.Encrypt(plainText, key1), key2)
		assert.False(decrypted.IsOk())
		assert.Equal("", decrypted.Val())
		assert.Equal(result.KindDecryption, decrypted.Error().Kind)
		assert.Equal(result.DecryptionFailedMsg, decrypted.Error().Message)
	}
}

func TestCipherCorruptInput(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	key := encryption.DeriveKey("password123")
	valid := encryption.Encrypt("hello", key)
	raw, err := base64.RawURLEncoding.DecodeString(valid)
	assert.Nil(err)

	flipped := append([]byte{}, raw...)
	flipped[len(flipped)-1] ^= 0x01

	wrongVersion := append([]byte{}, raw...)
	wrongVersion[0] = 0x7f

	for _, bad := range []string{
		"this is not a valid ciphertext",
		valid[:len(valid)-4],
		valid[:10],
		base64.RawURLEncoding.EncodeToString(flipped),
		base64.RawURLEncoding.EncodeToString(wrongVersion),
		"====",
	} {
		decrypted := encryption.Decrypt(bad, key)
		assert.False(decrypted.IsOk(), bad)
		assert.Equal(result.KindDecryption, decrypted.Error().Kind)
	}

	// Empty cipher text means the field was never set
	empty := encryption.Decrypt("", key)
	assert.True(empty.IsOk())
	assert.Equal("", empty.Val())
}

func TestCipherEnvelopeLayout(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	key := encryption.DeriveKey("password123")
	raw, err := base64.RawURLEncoding.DecodeString(encryption.Encrypt("hello", key))
	assert.Nil(err)

	// version || nonce || sealed box, with the version byte as additional data
	assert.Len(raw, 1+chacha20poly1305.NonceSizeX+len("hello")+chacha20poly1305.Overhead)
	assert.Equal(encryption.EnvelopeVersion, raw[0])

	aead, err := chacha20poly1305.NewX(key[:])
	assert.Nil(err)
	nonce := raw[1 : 1+chacha20poly1305.NonceSizeX]
	sealed := raw[1+chacha20poly1305.NonceSizeX:]
	plainText, err := aead.Open(nil, nonce, sealed, []byte{encryption.EnvelopeVersion})
	assert.Nil(err)
	assert.Equal("hello", string(plainText))
	_, err = aead.Open(nil, nonce, sealed, nil)
	assert.Error(err)
}

func TestEncryptNameLimit(t *testing.T) {
	assert := assert.New(t)
	log.SetLevel(log.DebugLevel)

	key := encryption.DeriveKey("password123")

	short := encryption.EncryptName("groceries", key)
	assert.True(short.IsOk())
	assert.LessOrEqual(len(short.Val()), encryption.MaxNameCiphertextLen)

	long := encryption.EncryptName(strings.Repeat("a", encryption.MaxNameCiphertextLen), key)
	assert.False(long.IsOk())
	assert.Equal(result.KindValidation, long.Error().Kind)
	assert.Equal("Name too long", long.Error().Message)
}
