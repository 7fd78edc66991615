package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

const GlobalKeyPrefix = "sleuth"

// Attr is one prepended key attribute: an instance field that takes part in
// the cache key of a wrapped method.
type Attr struct {
	Name  string
	Value any
}

// GenerateKey builds a cache key for a call to service.method. Attributes are
// rendered in the given order; call arguments are JSON encoded and hashed so
// long prompts keep keys short.
func GenerateKey(service, method string, attrs []Attr, args ...any) (string, error) {
	parts := []string{GlobalKeyPrefix, service, method}

	if len(attrs) > 0 {
		rendered := make([]string, len(attrs))
		for i, attr := range attrs {
			rendered[i] = fmt.Sprintf("%s=%v", attr.Name, attr.Value)
		}
		parts = append(parts, strings.Join(rendered, "_"))
	}

	payload, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("encode cache key arguments: %w", err)
	}
	sum := sha256.Sum256(payload)
	parts = append(parts, hex.EncodeToString(sum[:]))

	return strings.Join(parts, ":"), nil
}
