package basex

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Symbol sets used to build deployment pools.
const (
	// AlphaNumeric 是原始服务使用的符号集：ascii_letters + digits。
	AlphaNumeric = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Ambiguous lists symbols that are easy to confuse when a token is read aloud or typed
	// from a screen: 0/O and 1/I/l.
	Ambiguous = "0O1Il"
)

// Pool is an ordered set of unique symbols defining a base-N numeral system.
// A *Pool is immutable once built and may be shared by any number of goroutines.
type Pool struct {
	symbols []rune
	index   map[rune]uint64
	ascii   [utf8.RuneSelf]uint32 // position+1 of ASCII symbols, 0 when absent
	text    string
}

// NewPool validates symbols and returns the pool they define.
//
// symbols must be valid UTF-8, contain at least two symbols and no duplicates.
func NewPool(symbols string) (*Pool, error) {
	if !utf8.ValidString(symbols) {
		return nil, fmt.Errorf("%w: not valid utf-8", ErrInvalidAlphabet)
	}
	p := &Pool{
		symbols: make([]rune, 0, len(symbols)),
		index:   make(map[rune]uint64, len(symbols)),
		text:    symbols,
	}
	for _, r := range symbols {
		if _, dup := p.index[r]; dup {
			return nil, fmt.Errorf("%w: duplicate symbol %q", ErrInvalidAlphabet, r)
		}
		pos := uint64(len(p.symbols))
		p.index[r] = pos
		p.symbols = append(p.symbols, r)
		if r < utf8.RuneSelf {
			p.ascii[r] = uint32(pos) + 1 // 码点总数不到 2^21，pos+1 不会溢出
		}
	}
	if len(p.symbols) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 symbols, got %d", ErrInvalidAlphabet, len(p.symbols))
	}
	return p, nil
}

// MustPool is like NewPool but panics on error. Use it for package-level constants only.
func MustPool(symbols string) *Pool {
	p, err := NewPool(symbols)
	if err != nil {
		panic("basex: " + err.Error())
	}
	return p
}

// BuildPool removes every symbol of exclude from base, keeping the order of base, and
// validates the result.
//
// 这一步是“配置”而不是编解码的一部分：codec 本身不关心哪些字符容易混淆。
func BuildPool(base, exclude string) (*Pool, error) {
	if exclude == "" {
		return NewPool(base)
	}
	var b strings.Builder
	b.Grow(len(base))
	for _, r := range base {
		if strings.ContainsRune(exclude, r) {
			continue
		}
		b.WriteRune(r)
	}
	return NewPool(b.String())
}

// Len returns the radix of the pool.
func (p *Pool) Len() int {
	return len(p.symbols)
}

// String returns the symbols of the pool in order.
func (p *Pool) String() string {
	return p.text
}

// Symbol returns the symbol at position i.
func (p *Pool) Symbol(i int) rune {
	return p.symbols[i]
}

// position returns the digit value of r, or false when r is not in the pool.
func (p *Pool) position(r rune) (uint64, bool) {
	if r >= 0 && r < utf8.RuneSelf {
		v := p.ascii[r]
		return uint64(v - 1), v != 0
	}
	pos, ok := p.index[r]
	return pos, ok
}

func (p *Pool) valid() bool {
	return p != nil && len(p.symbols) >= 2
}
