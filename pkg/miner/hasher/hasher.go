// Package hasher provides the digest primitives the search engine can run:
// Keccak-256 (the default, also implemented by the OpenCL kernel), double
// SHA-256 and SHA3-256. Every hasher is stateless and safe for concurrent
// use.
package hasher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Amr-9/NonceHunter/pkg/miner"
)

// Algorithm names accepted by ByName.
const (
	Keccak256Name = "keccak256"
	SHA256dName   = "sha256d"
	SHA3Name      = "sha3-256"
)

var registry = map[string]func() miner.Hasher{
	Keccak256Name: func() miner.Hasher { return NewKeccak256() },
	SHA256dName:   func() miner.Hasher { return NewSHA256d() },
	SHA3Name:      func() miner.Hasher { return NewSHA3() },
}

// ByName returns the hasher registered under name (case-insensitive).
func ByName(name string) (miner.Hasher, error) {
	build, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: unknown algorithm %q (have %s)", miner.ErrMissingHasher, name, strings.Join(Names(), ", "))
	}
	return build(), nil
}

// Names lists the registered algorithm names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default returns the hasher used when none is configured.
func Default() miner.Hasher {
	return NewKeccak256()
}
