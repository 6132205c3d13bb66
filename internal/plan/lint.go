package plan

import (
	"fmt"

	"github.com/roach88/vesting/internal/ledger"
	"github.com/roach88/vesting/internal/vesting"
)

// Finding codes. Errors (E2xx) make a plan unusable; warnings (W2xx) are
// advisory and never block Apply.
const (
	ErrInvalidAddress      = "E201" // address is not valid base58 of 32 bytes
	ErrOrganizationTooLong = "E202" // organization name cannot seed a registry

	WarnCliffOutsideSchedule = "W201" // cliff before start or after end
	WarnEmptySchedule        = "W202" // start >= end; claims fail or vest at once
	WarnOverFunded           = "W203" // grants exceed custody funding
	WarnDuplicateBeneficiary = "W204" // second grant for a beneficiary will fail
	WarnZeroAmount           = "W205" // grant can never be claimed
)

// Finding is one lint result.
type Finding struct {
	Code    string `json:"code"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// IsError reports whether the finding makes the plan unusable.
func (f Finding) IsError() bool {
	return f.Code[0] == 'E'
}

func (f Finding) String() string {
	return fmt.Sprintf("[%s] %s: %s", f.Code, f.Field, f.Message)
}

// Lint checks p and returns all findings (does not fail-fast).
func Lint(p *Plan) []Finding {
	var findings []Finding
	add := func(code, field, format string, args ...any) {
		findings = append(findings, Finding{Code: code, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if _, _, err := vesting.RegistryAddress(vesting.DefaultProgramID, p.Organization); err != nil {
		add(ErrOrganizationTooLong, "organization", "%q cannot be used: %v", p.Organization, err)
	}
	if _, err := ledger.ParseAddress(p.Mint); err != nil {
		add(ErrInvalidAddress, "mint", "%v", err)
	}
	if _, err := ledger.ParseAddress(p.Owner); err != nil {
		add(ErrInvalidAddress, "owner", "%v", err)
	}

	seen := make(map[string]int, len(p.Grants))
	for i, g := range p.Grants {
		field := fmt.Sprintf("grants[%d]", i)
		if _, err := ledger.ParseAddress(g.Beneficiary); err != nil {
			add(ErrInvalidAddress, field+".beneficiary", "%v", err)
		}
		if first, ok := seen[g.Beneficiary]; ok {
			add(WarnDuplicateBeneficiary, field+".beneficiary", "already granted in grants[%d]", first)
		} else {
			seen[g.Beneficiary] = i
		}
		if g.Start >= g.End {
			add(WarnEmptySchedule, field, "start %d is not before end %d", g.Start, g.End)
		}
		if g.Cliff < g.Start || g.Cliff > g.End {
			add(WarnCliffOutsideSchedule, field+".cliff", "cliff %d outside [%d, %d]", g.Cliff, g.Start, g.End)
		}
		if g.Amount == 0 {
			add(WarnZeroAmount, field+".amount", "amount is zero")
		}
	}

	if p.Funding > 0 {
		total, overflow := p.Total()
		if overflow || total > p.Funding {
			add(WarnOverFunded, "funding", "grants total %s exceeds funding %d", totalString(total, overflow), p.Funding)
		}
	}
	return findings
}

func totalString(total uint64, overflow bool) string {
	if overflow {
		return "more than 2^64-1"
	}
	return fmt.Sprintf("%d", total)
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.IsError() {
			return true
		}
	}
	return false
}
