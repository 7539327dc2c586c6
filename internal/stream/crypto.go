// Package stream models the playable streams a resolver produces and the
// player APIs that describe them.
package stream

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// Keys of the Flash players whose APIs return encrypted payloads.
const (
	// NGRTMPKey decrypts the legacy player API RTMP descriptions
	NGRTMPKey = "hjsadf89hk123ghk"
	// NGHDSKey decrypts the legacy player API HDS descriptions
	NGHDSKey = "C6F258503B21E30A"
	// MediaURLKey decrypts media URLs of the 2014 player API
	MediaURLKey = "yjuap4n5ok9wzg43"
)

var (
	// ErrKeySize is returned for keys that are not one AES block long
	ErrKeySize = errors.New("decryption key must be 16 bytes")
	// ErrShortPayload is returned when the payload cannot even hold the IV
	ErrShortPayload = errors.New("encrypted payload is shorter than the IV")
)

// Decrypt decodes a base64 payload whose first block is the IV and
// decrypts the rest with AES in CFB mode using 128-bit segments.
func Decrypt(payload string, key []byte) ([]byte, error) {
	if len(key) != aes.BlockSize {
		return nil, ErrKeySize
	}

	data, err := base64.StdEncoding.DecodeString(stripSpace(payload))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 payload: %w", err)
	}
	if len(data) < aes.BlockSize {
		return nil, ErrShortPayload
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	iv, ciphertext := data[:aes.BlockSize], data[aes.BlockSize:]
	plaintext := make([]byte, len(ciphertext))
	// CFB is a stream mode, a trailing partial segment decrypts without padding.
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(plaintext, ciphertext)

	return plaintext, nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
