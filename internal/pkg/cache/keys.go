package cache

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// KeyBuilder builds deterministic cache keys from ordered components.
type KeyBuilder struct {
	prefix     string
	components []any
}

func NewKeyBuilder(prefix string) *KeyBuilder {
	return &KeyBuilder{prefix: prefix, components: make([]any, 0, 8)}
}

// Add appends a named component. Order matters; callers must add components
// in a fixed order so equal requests hash to equal keys.
func (b *KeyBuilder) Add(name string, value any) *KeyBuilder {
	b.components = append(b.components, map[string]any{name: value})
	return b
}

// Build returns "<prefix>:<md5 of components>".
func (b *KeyBuilder) Build() (string, error) {
	payload, err := json.Marshal(b.components)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cache key components: %w", err)
	}
	hash := md5.Sum(payload)
	return b.prefix + ":" + hex.EncodeToString(hash[:]), nil
}
