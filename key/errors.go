package key

import (
	"errors"
	"fmt"
)

var ErrKeyWrongLength = errors.New("key has wrong length")

// ErrInvalidKey returns an error reporting the byte length a key should have had.
func ErrInvalidKey(l int) error {
	return fmt.Errorf("invalid key: should be %d bytes long: %w", l, ErrKeyWrongLength)
}
