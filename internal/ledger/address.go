package ledger

import (
	"bytes"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// AddressLength is the size of an address in bytes.
const AddressLength = 32

// ErrInvalidAddress is returned when text does not decode to a 32-byte address.
var ErrInvalidAddress = errors.New("invalid address")

// Address identifies an account, a program, or a wallet.
type Address [AddressLength]byte

// ParseAddress decodes a base58 address.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw, err := base58.Decode(s)
	if err != nil {
		return a, fmt.Errorf("%w: %q: %v", ErrInvalidAddress, s, err)
	}
	if len(raw) != AddressLength {
		return a, fmt.Errorf("%w: %q decodes to %d bytes", ErrInvalidAddress, s, len(raw))
	}
	copy(a[:], raw)
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error.
// Use only for compile-time constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromBytes copies b into an Address. b must be exactly 32 bytes.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != AddressLength {
		return a, fmt.Errorf("%w: got %d bytes", ErrInvalidAddress, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// String returns the base58 form.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	b := make([]byte, AddressLength)
	copy(b, a[:])
	return b
}

// IsZero reports whether a is the all-zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Equal reports whether a and b are the same address.
func (a Address) Equal(b Address) bool {
	return bytes.Equal(a[:], b[:])
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// IsOnCurve reports whether the address is a valid ed25519 point, i.e.
// whether a private key for it can exist. Program-derived addresses are
// always off the curve.
func (a Address) IsOnCurve() bool {
	_, err := new(edwards25519.Point).SetBytes(a[:])
	return err == nil
}
