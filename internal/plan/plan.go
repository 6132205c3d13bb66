package plan

import (
	_ "embed"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/vesting/internal/ledger"
)

//go:embed schema.cue
var schemaCUE string

// Plan is a decoded grant plan.
type Plan struct {
	Organization string  `json:"organization"`
	Mint         string  `json:"mint"`
	Owner        string  `json:"owner"`
	Funding      uint64  `json:"funding"`
	Grants       []Grant `json:"grants"`
}

// Grant is one planned beneficiary grant.
type Grant struct {
	Beneficiary string `json:"beneficiary"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	Cliff       int64  `json:"cliff"`
	Amount      uint64 `json:"amount"`
}

// LoadError is a plan that failed to parse or unify with the schema.
type LoadError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// LoadFile reads and parses the plan at path.
func LoadFile(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return Parse(path, data)
}

// Parse unifies src with the plan schema and decodes it. filename is used
// in error positions only.
func Parse(filename string, src []byte) (*Plan, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("plan schema: %w", err)
	}

	file := ctx.CompileBytes(src, cue.Filename(filename))
	if err := file.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	v := schema.Unify(file).LookupPath(cue.ParsePath("plan"))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var p Plan
	if err := v.Decode(&p); err != nil {
		return nil, formatCUEError(err)
	}
	return &p, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	// Return first error with position info
	first := errs[0]
	var field string
	if path := first.Path(); len(path) > 0 {
		field = path[len(path)-1]
	} else {
		field = "cue"
	}
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &LoadError{Field: field, Message: first.Error(), Pos: positions[0]}
	}
	return &LoadError{Field: field, Message: first.Error()}
}

// Addresses holds the parsed identities of a plan.
type Addresses struct {
	Mint          ledger.Address
	Owner         ledger.Address
	Beneficiaries []ledger.Address
}

// Resolve parses every address in p.
func (p *Plan) Resolve() (Addresses, error) {
	var a Addresses
	var err error
	if a.Mint, err = ledger.ParseAddress(p.Mint); err != nil {
		return a, fmt.Errorf("mint: %w", err)
	}
	if a.Owner, err = ledger.ParseAddress(p.Owner); err != nil {
		return a, fmt.Errorf("owner: %w", err)
	}
	a.Beneficiaries = make([]ledger.Address, len(p.Grants))
	for i, g := range p.Grants {
		if a.Beneficiaries[i], err = ledger.ParseAddress(g.Beneficiary); err != nil {
			return a, fmt.Errorf("grants[%d].beneficiary: %w", i, err)
		}
	}
	return a, nil
}

// Total returns the sum of grant amounts and whether it overflowed.
func (p *Plan) Total() (uint64, bool) {
	var total uint64
	for _, g := range p.Grants {
		next := total + g.Amount
		if next < total {
			return 0, true
		}
		total = next
	}
	return total, false
}
