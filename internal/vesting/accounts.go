package vesting

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"github.com/roach88/vesting/internal/ledger"
)

// Account kinds stored by this program.
const (
	KindRegistry = "vesting/registry"
	KindGrant    = "vesting/grant"
)

// MaxOrganizationNameLen bounds the stored organization name in bytes.
const MaxOrganizationNameLen = 50

// Fixed record sizes including the 8-byte discriminator.
const (
	RegistrySpace = 8 + 32 + 32 + 32 + (4 + MaxOrganizationNameLen) + 1 + 1
	GrantSpace    = 8 + 32 + 8 + 8 + 8 + 32 + 8 + 8 + 1
)

var (
	registryDiscriminator = discriminator("VestingAccount")
	grantDiscriminator    = discriminator("EmployeeAccount")
)

// discriminator returns the first 8 bytes of SHA256("account:<name>").
func discriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("account:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// RegistryEntry is an organization's vesting configuration.
type RegistryEntry struct {
	// Owner may create grants under this registry.
	Owner ledger.Address `json:"owner"`

	// Asset is the mint held in custody.
	Asset ledger.Address `json:"asset"`

	// CustodyAccount holds the pooled, unvested tokens.
	CustodyAccount ledger.Address `json:"custody_account"`

	// OrganizationName seeds the registry and custody addresses.
	OrganizationName string `json:"organization_name"`

	// CustodyBump and Bump are the derivation salts for the custody
	// authority and the registry itself.
	CustodyBump uint8 `json:"custody_bump"`
	Bump        uint8 `json:"bump"`
}

// GrantEntry is one beneficiary's schedule and claim history.
type GrantEntry struct {
	Beneficiary    ledger.Address `json:"beneficiary"`
	StartTime      int64          `json:"start_time"`
	EndTime        int64          `json:"end_time"`
	CliffTime      int64          `json:"cliff_time"`
	Registry       ledger.Address `json:"registry"`
	TotalAmount    uint64         `json:"total_amount"`
	TotalWithdrawn uint64         `json:"total_withdrawn"`
	Bump           uint8          `json:"bump"`
}

// MarshalBinary encodes the registry in its fixed-size account layout:
// discriminator | owner | asset | custody | u32 name_len | name (padded) | custody_bump | bump
func (r RegistryEntry) MarshalBinary() ([]byte, error) {
	if len(r.OrganizationName) > MaxOrganizationNameLen {
		return nil, fmt.Errorf("organization name is %d bytes, max %d", len(r.OrganizationName), MaxOrganizationNameLen)
	}
	b := make([]byte, RegistrySpace)
	copy(b[0:8], registryDiscriminator[:])
	copy(b[8:40], r.Owner[:])
	copy(b[40:72], r.Asset[:])
	copy(b[72:104], r.CustodyAccount[:])
	binary.LittleEndian.PutUint32(b[104:108], uint32(len(r.OrganizationName)))
	copy(b[108:108+MaxOrganizationNameLen], r.OrganizationName)
	b[RegistrySpace-2] = r.CustodyBump
	b[RegistrySpace-1] = r.Bump
	return b, nil
}

// UnmarshalBinary decodes a registry account.
func (r *RegistryEntry) UnmarshalBinary(b []byte) error {
	if len(b) != RegistrySpace {
		return fmt.Errorf("registry: %d bytes, want %d", len(b), RegistrySpace)
	}
	if [8]byte(b[0:8]) != registryDiscriminator {
		return fmt.Errorf("registry: discriminator mismatch")
	}
	n := binary.LittleEndian.Uint32(b[104:108])
	if n > MaxOrganizationNameLen {
		return fmt.Errorf("registry: name length %d exceeds %d", n, MaxOrganizationNameLen)
	}
	copy(r.Owner[:], b[8:40])
	copy(r.Asset[:], b[40:72])
	copy(r.CustodyAccount[:], b[72:104])
	r.OrganizationName = string(b[108 : 108+n])
	r.CustodyBump = b[RegistrySpace-2]
	r.Bump = b[RegistrySpace-1]
	return nil
}

// MarshalBinary encodes the grant in its fixed-size account layout:
// discriminator | beneficiary | start i64 | end i64 | cliff i64 | registry | total u64 | withdrawn u64 | bump
func (g GrantEntry) MarshalBinary() ([]byte, error) {
	b := make([]byte, GrantSpace)
	copy(b[0:8], grantDiscriminator[:])
	copy(b[8:40], g.Beneficiary[:])
	binary.LittleEndian.PutUint64(b[40:48], uint64(g.StartTime))
	binary.LittleEndian.PutUint64(b[48:56], uint64(g.EndTime))
	binary.LittleEndian.PutUint64(b[56:64], uint64(g.CliffTime))
	copy(b[64:96], g.Registry[:])
	binary.LittleEndian.PutUint64(b[96:104], g.TotalAmount)
	binary.LittleEndian.PutUint64(b[104:112], g.TotalWithdrawn)
	b[112] = g.Bump
	return b, nil
}

// UnmarshalBinary decodes a grant account.
func (g *GrantEntry) UnmarshalBinary(b []byte) error {
	if len(b) != GrantSpace {
		return fmt.Errorf("grant: %d bytes, want %d", len(b), GrantSpace)
	}
	if [8]byte(b[0:8]) != grantDiscriminator {
		return fmt.Errorf("grant: discriminator mismatch")
	}
	copy(g.Beneficiary[:], b[8:40])
	g.StartTime = int64(binary.LittleEndian.Uint64(b[40:48]))
	g.EndTime = int64(binary.LittleEndian.Uint64(b[48:56]))
	g.CliffTime = int64(binary.LittleEndian.Uint64(b[56:64]))
	copy(g.Registry[:], b[64:96])
	g.TotalAmount = binary.LittleEndian.Uint64(b[96:104])
	g.TotalWithdrawn = binary.LittleEndian.Uint64(b[104:112])
	g.Bump = b[112]
	return nil
}
