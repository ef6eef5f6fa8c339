package basex

import "fmt"

// SymbolError describes a token symbol that is not part of the pool, or a byte sequence
// that is not valid UTF-8. It matches ErrInvalidToken under errors.Is.
type SymbolError struct {
	Offset int  // byte offset in the token
	Symbol rune // utf8.RuneError for invalid encodings
}

func (e *SymbolError) Error() string {
	return fmt.Sprintf("%s: unknown symbol %q at offset %d", ErrInvalidToken, e.Symbol, e.Offset)
}

func (e *SymbolError) Unwrap() error {
	return ErrInvalidToken
}
