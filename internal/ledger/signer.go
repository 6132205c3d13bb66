package ledger

import (
	"errors"
	"fmt"
)

// ErrNotSigner is returned when an identity cannot act as a signer, or when
// a required signature is missing.
var ErrNotSigner = errors.New("missing required signature")

// Signer is an identity that has authorised the current operation.
//
// Signers cannot be built from an Address alone: a wallet signer must be an
// on-curve address (the host has verified its signature), and a derived
// signer can only be produced from the seeds that derive it. Signers are
// credentials for the lifetime of one operation and are never persisted.
type Signer interface {
	// Address returns the identity the signer speaks for.
	Address() Address

	sealed()
}

type walletSigner struct {
	addr Address
}

func (s walletSigner) Address() Address { return s.addr }
func (walletSigner) sealed()            {}
func (s walletSigner) String() string   { return "wallet:" + s.addr.String() }

// WalletSigner returns a signer for an externally held key. The host is
// responsible for having verified the signature. Off-curve addresses have
// no private key and are refused.
func WalletSigner(addr Address) (Signer, error) {
	if !addr.IsOnCurve() {
		return nil, fmt.Errorf("%w: %s has no private key", ErrNotSigner, addr)
	}
	return walletSigner{addr: addr}, nil
}

type derivedSigner struct {
	addr    Address
	program Address
}

func (s derivedSigner) Address() Address { return s.addr }
func (derivedSigner) sealed()            {}
func (s derivedSigner) String() string   { return "derived:" + s.addr.String() }

// DerivedSigner reconstructs the signing authority of a program-derived
// address from its seeds and bump.
func DerivedSigner(programID Address, seeds [][]byte, bump uint8) (Signer, error) {
	withBump := append(append([][]byte{}, seeds...), []byte{bump})
	addr, err := CreateProgramAddress(withBump, programID)
	if err != nil {
		return nil, fmt.Errorf("derive signer: %w", err)
	}
	return derivedSigner{addr: addr, program: programID}, nil
}

// RequireSigner checks that s speaks for want.
func RequireSigner(s Signer, want Address) error {
	if s == nil {
		return fmt.Errorf("%w: %s", ErrNotSigner, want)
	}
	if s.Address() != want {
		return fmt.Errorf("%w: want %s, got %s", ErrNotSigner, want, s.Address())
	}
	return nil
}
