package passgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
)

// ListSource is an in-memory WordSource backed by a fixed word list.
type ListSource []string

var _ WordSource = ListSource(nil)

// Words picks n distinct words from the list, uniformly at random.
func (l ListSource) Words(_ context.Context, n int) ([]string, error) {
	if n > len(l) {
		return nil, fmt.Errorf("passgen: list has %d words, need %d", len(l), n)
	}
	out := make([]string, 0, n)
	seen := make(map[int]bool, n)
	for len(out) < n {
		i, err := rand.Int(rand.Reader, big.NewInt(int64(len(l))))
		if err != nil {
			return nil, fmt.Errorf("passgen: rand: %w", err)
		}
		idx := int(i.Int64())
		if seen[idx] {
			continue
		}
		seen[idx] = true
		out = append(out, l[idx])
	}
	return out, nil
}
