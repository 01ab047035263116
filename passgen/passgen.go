// Package passgen generates human-readable passwords composed of dictionary
// words, digits, and separator characters, e.g. "17Horse!marble+BALLOON42".
//
// The word list is an external collaborator behind the WordSource interface
// (a database table, an embedded list, a file). All randomness comes from
// crypto/rand; passwords must not be predictable from a seeded PRNG.
package passgen

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// DefaultSpecials is the separator alphabet used when Options.Specials is
// empty.
const DefaultSpecials = "!@$%^&*-_+=:|~?/.;"

var ErrTooFewWords = errors.New("passgen: at least 2 words required")

// WordSource supplies dictionary words. Words must return n distinct words;
// fewer than n available is an error.
type WordSource interface {
	Words(ctx context.Context, n int) ([]string, error)
}

// Options tune the generator. The zero value is ready to use.
type Options struct {
	Specials string // separator alphabet; "" => DefaultSpecials
}

type Generator struct {
	src      WordSource
	specials string
}

func New(src WordSource, opts Options) (*Generator, error) {
	if src == nil {
		return nil, errors.New("passgen: word source is required")
	}
	specials := opts.Specials
	if specials == "" {
		specials = DefaultSpecials
	}
	return &Generator{src: src, specials: specials}, nil
}

// Generate produces a password of the form
//
//	<digits> <word> <sep> <word> <sep> ... <word> <digits>
//
// with `words` dictionary words, each randomly capitalized, lowercased, or
// uppercased, joined by distinct separator characters and framed by two
// distinct numbers in [1,98]. words < 2 is rejected.
func (g *Generator) Generate(ctx context.Context, words int) (string, error) {
	if words < 2 {
		return "", ErrTooFewWords
	}
	if words-1 > len(g.specials) {
		return "", fmt.Errorf("passgen: %d separators needed but alphabet has %d", words-1, len(g.specials))
	}

	nums, err := sampleInts(2, 98)
	if err != nil {
		return "", err
	}
	seps, err := sampleRunes(g.specials, words-1)
	if err != nil {
		return "", err
	}
	selected, err := g.src.Words(ctx, words)
	if err != nil {
		return "", fmt.Errorf("passgen: word source: %w", err)
	}
	if len(selected) < words {
		return "", fmt.Errorf("passgen: word source returned %d of %d words", len(selected), words)
	}

	var b strings.Builder
	b.WriteString(strconv.Itoa(nums[0]))
	for i := 0; i < words-1; i++ {
		w, err := transformWord(selected[i])
		if err != nil {
			return "", err
		}
		b.WriteString(w)
		b.WriteRune(seps[i])
	}
	last, err := transformWord(selected[words-1])
	if err != nil {
		return "", err
	}
	b.WriteString(last)
	b.WriteString(strconv.Itoa(nums[1]))
	return b.String(), nil
}

// transformWord randomly capitalizes, lowercases, or uppercases a word.
func transformWord(word string) (string, error) {
	n, err := randInt(3)
	if err != nil {
		return "", err
	}
	switch n {
	case 0:
		return capitalize(word), nil
	case 1:
		return strings.ToLower(word), nil
	default:
		return strings.ToUpper(word), nil
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return strings.ToUpper(string(r)) + strings.ToLower(s[size:])
}

// sampleInts returns n distinct ints in [1, max].
func sampleInts(n, max int) ([]int, error) {
	out := make([]int, 0, n)
	seen := make(map[int]bool, n)
	for len(out) < n {
		r, err := randInt(max)
		if err != nil {
			return nil, err
		}
		v := r + 1
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out, nil
}

// sampleRunes returns n distinct runes drawn from alphabet.
func sampleRunes(alphabet string, n int) ([]rune, error) {
	runes := []rune(alphabet)
	out := make([]rune, 0, n)
	seen := make(map[rune]bool, n)
	for len(out) < n {
		i, err := randInt(len(runes))
		if err != nil {
			return nil, err
		}
		r := runes[i]
		if seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out, nil
}

func randInt(max int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, fmt.Errorf("passgen: rand: %w", err)
	}
	return int(v.Int64()), nil
}
