package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// DomainOperation is the domain prefix for operation digests.
// The version suffix leaves room for algorithm migration.
const DomainOperation = "vesting/operation/v1"

// Outcome values recorded on an Operation.
const (
	OutcomeOK      = "ok"
	OutcomeUnknown = "ERROR"
)

// Operation is one journaled unit of work.
type Operation struct {
	// ID is a UUIDv7, unique per operation.
	ID string

	// Seq is assigned by the host when the operation is journaled.
	Seq int64

	// Name is the program instruction (e.g. "claim_tokens").
	Name string

	// Signer is the identity that authorised the operation.
	Signer Address

	// Args are the instruction arguments.
	Args Object

	// Time is the trusted wall-clock reading (unix seconds) the operation ran at.
	Time int64

	// Outcome is OutcomeOK or the error code that aborted the operation.
	Outcome string
}

// NewOperation creates an operation with a fresh time-ordered ID.
func NewOperation(name string, signer Address, now int64, args Object) *Operation {
	if args == nil {
		args = Object{}
	}
	return &Operation{
		ID:     uuid.Must(uuid.NewV7()).String(),
		Name:   name,
		Signer: signer,
		Args:   args,
		Time:   now,
	}
}

// Digest computes the content digest of the operation.
// Format: hex(SHA256(domain || 0x00 || canonical_json))
// Seq is excluded so the digest is stable before the host assigns it.
func (op *Operation) Digest() (string, error) {
	obj := Object{
		"id":      String(op.ID),
		"name":    String(op.Name),
		"signer":  String(op.Signer.String()),
		"args":    op.Args,
		"time":    Int(op.Time),
		"outcome": String(op.Outcome),
	}
	canonical, err := marshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("operation digest: %w", err)
	}
	return hashWithDomain(DomainOperation, canonical), nil
}

// hashWithDomain computes SHA-256 with domain separation.
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Coded is implemented by errors that carry a stable code.
type Coded interface {
	ErrorCode() string
}

// OutcomeOf maps an operation error to the outcome recorded in the journal.
func OutcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var c Coded
	if errors.As(err, &c) {
		return c.ErrorCode()
	}
	return OutcomeUnknown
}
