package utils

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

var ErrNotDataURL = errors.New("not a base64 data URL")

// DecodeDataURL decodes "data:<mime>;base64,<payload>" and returns the bytes
// together with the mime type.
func DecodeDataURL(s string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return nil, "", ErrNotDataURL
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", ErrNotDataURL
	}
	mime, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return nil, "", ErrNotDataURL
	}

	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(payload))
	if err != nil {
		return nil, "", fmt.Errorf("decode data URL: %w", err)
	}
	return data, mime, nil
}

// EncodeDataURL is the inverse of DecodeDataURL.
func EncodeDataURL(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}
