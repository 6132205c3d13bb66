package testutil

import (
	"crypto/ed25519"
	"crypto/sha256"
	"fmt"

	"github.com/roach88/vesting/internal/ledger"
)

// Identity returns a deterministic on-curve wallet address for name.
// The same name always yields the same address.
func Identity(name string) ledger.Address {
	seed := sha256.Sum256([]byte(name))
	pub := ed25519.NewKeyFromSeed(seed[:]).Public().(ed25519.PublicKey)
	addr, err := ledger.AddressFromBytes(pub)
	if err != nil {
		panic(fmt.Sprintf("testutil: identity %q: %v", name, err))
	}
	return addr
}

// Signer returns a wallet signer for Identity(name).
func Signer(name string) ledger.Signer {
	s, err := ledger.WalletSigner(Identity(name))
	if err != nil {
		panic(fmt.Sprintf("testutil: signer %q: %v", name, err))
	}
	return s
}
