// Package token implements the token-transfer program the vesting program
// relies on: mints with fixed decimals, token accounts with an owning
// authority, minting, checked transfers, and associated token accounts.
//
// Account data layouts:
//
//	Mint (46 bytes):    authority_option u32 | authority [32] | supply u64 | decimals u8 | initialized u8
//	Account (72 bytes): mint [32] | owner [32] | amount u64
//
// All integers are little-endian.
package token
