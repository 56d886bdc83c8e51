package codec

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ErrUnsupportedEncoding is returned for unknown store encodings or charsets.
var ErrUnsupportedEncoding = errors.New("codec: unsupported encoding")

// armor turns JSON text into the stored form: charset bytes, then store encoding.
func armor(text []byte, enc Encoding) (string, error) {
	cs, err := charset(enc.Parse)
	if err != nil {
		return "", err
	}
	b, err := cs.NewEncoder().Bytes(text)
	if err != nil {
		return "", fmt.Errorf("codec: %s encode: %w", enc.Parse, err)
	}
	switch normalize(enc.Store) {
	case "base64":
		return base64.StdEncoding.EncodeToString(b), nil
	case "base64url":
		return base64.RawURLEncoding.EncodeToString(b), nil
	case "hex":
		return hex.EncodeToString(b), nil
	case "utf8":
		return string(b), nil
	}
	return "", fmt.Errorf("%w: store %q", ErrUnsupportedEncoding, enc.Store)
}

// unarmor reverses armor.
func unarmor(saved string, enc Encoding) ([]byte, error) {
	var (
		b   []byte
		err error
	)
	switch normalize(enc.Store) {
	case "base64":
		b, err = base64.StdEncoding.DecodeString(saved)
	case "base64url":
		b, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(saved, "="))
	case "hex":
		b, err = hex.DecodeString(saved)
	case "utf8":
		b = []byte(saved)
	default:
		return nil, fmt.Errorf("%w: store %q", ErrUnsupportedEncoding, enc.Store)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, enc.Store, err)
	}
	cs, err := charset(enc.Parse)
	if err != nil {
		return nil, err
	}
	text, err := cs.NewDecoder().Bytes(b)
	if err != nil {
		return nil, fmt.Errorf("codec: %s decode: %w", enc.Parse, err)
	}
	return text, nil
}

func charset(name string) (encoding.Encoding, error) {
	switch normalize(name) {
	case "utf8":
		return unicode.UTF8, nil
	case "latin1", "binary", "iso88591":
		return charmap.ISO8859_1, nil
	case "utf16le", "ucs2":
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM), nil
	}
	return nil, fmt.Errorf("%w: charset %q", ErrUnsupportedEncoding, name)
}

func normalize(name string) string {
	return strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(name))
}
