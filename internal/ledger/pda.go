package ledger

import (
	"crypto/sha256"
	"errors"
	"fmt"
)

// Derivation limits.
const (
	// MaxSeeds is the maximum number of seeds, including the bump seed.
	MaxSeeds = 16

	// MaxSeedLength is the maximum length of a single seed in bytes.
	MaxSeedLength = 32

	pdaMarker = "ProgramDerivedAddress"
)

var (
	// ErrMaxSeedLength is returned when a seed exceeds MaxSeedLength or
	// more than MaxSeeds seeds are supplied.
	ErrMaxSeedLength = errors.New("max seed length exceeded")

	// ErrInvalidSeeds is returned when the seeds hash onto the ed25519 curve
	// and therefore cannot form a program-derived address.
	ErrInvalidSeeds = errors.New("provided seeds do not result in a valid address")

	// ErrNoViableBump is returned when no bump in [0,255] yields an
	// off-curve address.
	ErrNoViableBump = errors.New("unable to find a viable program address bump seed")
)

// CreateProgramAddress derives the address for seeds under programID.
// Format: SHA256(seed_1 || ... || seed_n || programID || "ProgramDerivedAddress")
// The result must lie off the ed25519 curve.
func CreateProgramAddress(seeds [][]byte, programID Address) (Address, error) {
	if len(seeds) > MaxSeeds {
		return Address{}, fmt.Errorf("%w: %d seeds", ErrMaxSeedLength, len(seeds))
	}
	h := sha256.New()
	for i, seed := range seeds {
		if len(seed) > MaxSeedLength {
			return Address{}, fmt.Errorf("%w: seed %d is %d bytes", ErrMaxSeedLength, i, len(seed))
		}
		h.Write(seed)
	}
	h.Write(programID[:])
	h.Write([]byte(pdaMarker))

	var addr Address
	copy(addr[:], h.Sum(nil))
	if addr.IsOnCurve() {
		return Address{}, ErrInvalidSeeds
	}
	return addr, nil
}

// FindProgramAddress searches bump seeds from 255 down to 0 and returns the
// first off-curve address together with its bump.
func FindProgramAddress(seeds [][]byte, programID Address) (Address, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return Address{}, 0, fmt.Errorf("%w: %d seeds leaves no room for bump", ErrMaxSeedLength, len(seeds))
	}
	withBump := make([][]byte, len(seeds)+1)
	copy(withBump, seeds)

	for bump := 255; bump >= 0; bump-- {
		withBump[len(seeds)] = []byte{byte(bump)}
		addr, err := CreateProgramAddress(withBump, programID)
		if err == nil {
			return addr, uint8(bump), nil
		}
		if !errors.Is(err, ErrInvalidSeeds) {
			return Address{}, 0, err
		}
	}
	return Address{}, 0, ErrNoViableBump
}

// VerifyProgramAddress re-derives the address for seeds and bump and checks
// that it equals want.
func VerifyProgramAddress(want Address, seeds [][]byte, bump uint8, programID Address) error {
	withBump := append(append([][]byte{}, seeds...), []byte{bump})
	got, err := CreateProgramAddress(withBump, programID)
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%w: derived %s, have %s", ErrSeedsMismatch, got, want)
	}
	return nil
}

// ErrSeedsMismatch is returned by VerifyProgramAddress when the derived
// address differs from the one supplied.
var ErrSeedsMismatch = errors.New("seeds constraint violated")
