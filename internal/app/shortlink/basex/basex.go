// Package basex converts non-negative integers to tokens over an arbitrary symbol pool
// and back.
//
// A token is the base-N representation of a value, most-significant symbol first, where
// N is the size of the pool and pool position i stands for digit i. Value 0 is the single
// symbol at position 0; there is no padding. For a fixed pool the mapping is a bijection
// between uint64 and canonical tokens, so changing a pool already in production use
// invalidates every token issued under it.
package basex

import (
	"errors"
	"math"
	"math/bits"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	// ErrInvalidAlphabet reports a pool with fewer than two symbols or with duplicates.
	ErrInvalidAlphabet = errors.New("basex: invalid alphabet")
	// ErrInvalidInput reports a negative value passed to Encode.
	ErrInvalidInput = errors.New("basex: invalid input")
	// ErrInvalidToken reports an empty token or a symbol that is not in the pool.
	ErrInvalidToken = errors.New("basex: invalid token")
	// ErrOverflow reports a value that does not fit the target integer type.
	ErrOverflow = errors.New("basex: overflow")
)

// Integer is the set of identifier types Encode accepts.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// maxDigits is the longest token any pool can produce for a uint64 (radix 2).
const maxDigits = 64

// Encode returns the shortest token representing value in base p.Len().
func Encode[T Integer](value T, p *Pool) (string, error) {
	if !p.valid() {
		return "", ErrInvalidAlphabet
	}
	if value < 0 {
		return "", ErrInvalidInput
	}
	return encode(uint64(value), p), nil
}

func encode(n uint64, p *Pool) string {
	if n == 0 {
		return string(p.symbols[0])
	}
	radix := uint64(len(p.symbols))

	// 从尾部往前填，省掉最后的 reverse。
	var buf [maxDigits]rune
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = p.symbols[n%radix]
		n /= radix
	}
	return string(buf[i:])
}

// Decode returns the value token represents under p.
//
// Every symbol must belong to p; no trimming or case folding is applied. Decode fails
// with ErrOverflow instead of wrapping when the value exceeds math.MaxUint64.
func Decode(token string, p *Pool) (uint64, error) {
	if !p.valid() {
		return 0, ErrInvalidAlphabet
	}
	if token == "" {
		return 0, ErrInvalidToken
	}
	radix := uint64(len(p.symbols))

	var acc uint64
	for i := 0; i < len(token); {
		r, size := utf8.DecodeRuneInString(token[i:])
		if r == utf8.RuneError && size <= 1 {
			return 0, &SymbolError{Offset: i, Symbol: r}
		}
		pos, ok := p.position(r)
		if !ok {
			return 0, &SymbolError{Offset: i, Symbol: r}
		}

		hi, lo := bits.Mul64(acc, radix)
		if hi != 0 {
			return 0, ErrOverflow
		}
		sum, carry := bits.Add64(lo, pos, 0)
		if carry != 0 {
			return 0, ErrOverflow
		}
		acc = sum
		i += size
	}
	return acc, nil
}

// DecodeInt64 is Decode for signed 64-bit record identifiers.
func DecodeInt64(token string, p *Pool) (int64, error) {
	v, err := Decode(token, p)
	if err != nil {
		return 0, err
	}
	if v > math.MaxInt64 {
		return 0, ErrOverflow
	}
	return int64(v), nil
}

// Canonical reports whether token is exactly what Encode would produce for its value,
// that is, it decodes and carries no leading zero symbol.
func Canonical(token string, p *Pool) bool {
	if _, err := Decode(token, p); err != nil {
		return false
	}
	first, size := utf8.DecodeRuneInString(token)
	return first != p.symbols[0] || size == len(token)
}

// ParseValue parses a decimal identifier such as a command line argument.
func ParseValue(s string) (uint64, error) {
	if strings.HasPrefix(s, "-") {
		return 0, ErrInvalidInput
	}
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		if errors.Is(err, strconv.ErrRange) {
			return 0, ErrOverflow
		}
		return 0, ErrInvalidInput
	}
	return v, nil
}

// IsMalformed reports whether err means a token cannot name any record under the
// configured pool. Callers should treat such errors as "not found".
func IsMalformed(err error) bool {
	return errors.Is(err, ErrInvalidToken) ||
		errors.Is(err, ErrInvalidAlphabet) ||
		errors.Is(err, ErrOverflow)
}
