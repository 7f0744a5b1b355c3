// Package cachekey canonicalizes speech text and derives content-addressed cache keys.
package cachekey

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// version is mixed into every key so a future change of the encoding cannot
// collide with keys already stored.
const version = "voice-v1"

// Normalize returns the canonical form of text used for hashing: NFC composed,
// control characters removed, trimmed, internal whitespace collapsed to single
// spaces and lower-cased. Punctuation is kept as is.
func Normalize(text string) string {
	text = norm.NFC.String(text)

	var b strings.Builder
	b.Grow(len(text))
	pendingSpace := false
	for _, r := range text {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0
		case unicode.IsControl(r) || r == unicode.ReplacementChar:
			continue
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteString(strings.ToLower(string(r)))
		}
	}
	return b.String()
}

// Derive builds the cache key for an already normalized text and the voice
// parameters. Each field is length-prefixed so no combination of field values
// can produce the same byte stream as another.
func Derive(normalizedText, voice, model, language string) string {
	h := sha256.New()
	var lenBuf [8]byte
	for _, field := range []string{version, normalizedText, voice, model, language} {
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(field)))
		h.Write(lenBuf[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// For normalizes text and derives its key in one step, returning both.
func For(text, voice, model, language string) (normalized, key string) {
	normalized = Normalize(text)
	return normalized, Derive(normalized, voice, model, language)
}
