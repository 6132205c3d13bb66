package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Invocation names understood by the harness.
const (
	InvokeCreateMint     = "create_mint"
	InvokeMintTo         = "mint_to"
	InvokeFund           = "fund"
	InvokeCreateRegistry = "create_registry"
	InvokeCreateGrant    = "create_grant"
	InvokeClaim          = "claim"
	InvokeStatus         = "status"
)

// Assertion type constants.
const (
	AssertTraceCount = "trace_count"
	AssertTraceOrder = "trace_order"
	AssertBalance    = "balance"
	AssertCustody    = "custody"
	AssertWithdrawn  = "withdrawn"
)

// Scenario is one end-to-end vesting run.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Setup steps establish the mint, registry, funding and grants.
	// Any setup failure aborts the run.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow steps are executed and checked against their expect clause.
	Flow []Step `yaml:"flow"`

	// Assertions validate the trace and the final balances.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one invocation at an optional point in time.
type Step struct {
	// At sets the clock before the step runs. The clock keeps its
	// previous value when omitted; it starts at 0.
	At *int64 `yaml:"at,omitempty"`

	Invoke string `yaml:"invoke"`
	Args   Args   `yaml:"args"`

	// Expect is checked for flow steps. Nil means outcome "ok".
	Expect *Expect `yaml:"expect,omitempty"`
}

// Args are the inputs of a step. Which fields apply depends on Invoke.
// Signer, Mint, Owner and Beneficiary are participant names.
type Args struct {
	Signer       string `yaml:"signer,omitempty"`
	Organization string `yaml:"organization,omitempty"`
	Mint         string `yaml:"mint,omitempty"`
	Owner        string `yaml:"owner,omitempty"`
	Beneficiary  string `yaml:"beneficiary,omitempty"`
	Decimals     uint8  `yaml:"decimals,omitempty"`
	Amount       uint64 `yaml:"amount,omitempty"`
	Start        int64  `yaml:"start,omitempty"`
	End          int64  `yaml:"end,omitempty"`

	// Cliff defaults to Start.
	Cliff *int64 `yaml:"cliff,omitempty"`
}

// Expect is the expected result of a flow step. Only the fields that are
// set are compared.
type Expect struct {
	// Outcome is "ok" or an error code such as NOTHING_TO_CLAIM.
	Outcome string `yaml:"outcome"`

	// Amount is the claimed amount (claim) or the resulting balance
	// (mint_to, fund).
	Amount *uint64 `yaml:"amount,omitempty"`

	Vested    *uint64 `yaml:"vested,omitempty"`
	Claimable *uint64 `yaml:"claimable,omitempty"`
	Withdrawn *uint64 `yaml:"withdrawn,omitempty"`
}

// Assertion validates the trace or final state.
type Assertion struct {
	Type string `yaml:"type"`

	// Invoke and Outcome select trace events (trace_count).
	Invoke  string `yaml:"invoke,omitempty"`
	Outcome string `yaml:"outcome,omitempty"`
	Count   int    `yaml:"count,omitempty"`

	// Invokes is the expected relative order (trace_order).
	Invokes []string `yaml:"invokes,omitempty"`

	// Owner, Mint, Organization and Beneficiary locate an account
	// (balance, custody, withdrawn).
	Owner        string `yaml:"owner,omitempty"`
	Mint         string `yaml:"mint,omitempty"`
	Organization string `yaml:"organization,omitempty"`
	Beneficiary  string `yaml:"beneficiary,omitempty"`

	Expect uint64 `yaml:"expect,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.Description == "" {
		return errors.New("description is required")
	}
	if len(s.Flow) == 0 {
		return errors.New("flow list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, a := range s.Assertions {
		if err := validateAssertion(a); err != nil {
			return fmt.Errorf("assertions[%d]: %w", i, err)
		}
	}
	return nil
}

func validateStep(step Step) error {
	a := step.Args
	var missing []string
	need := func(field, value string) {
		if value == "" {
			missing = append(missing, field)
		}
	}

	switch step.Invoke {
	case InvokeCreateMint:
		need("signer", a.Signer)
		need("mint", a.Mint)
	case InvokeMintTo:
		need("signer", a.Signer)
		need("mint", a.Mint)
		need("owner", a.Owner)
	case InvokeFund:
		need("signer", a.Signer)
		need("organization", a.Organization)
	case InvokeCreateRegistry:
		need("signer", a.Signer)
		need("mint", a.Mint)
	case InvokeCreateGrant:
		need("signer", a.Signer)
		need("beneficiary", a.Beneficiary)
	case InvokeClaim:
		need("signer", a.Signer)
	case InvokeStatus:
		need("beneficiary", a.Beneficiary)
	case "":
		return errors.New("invoke is required")
	default:
		return fmt.Errorf("unknown invoke %q", step.Invoke)
	}

	if len(missing) > 0 {
		return fmt.Errorf("%s: missing args %v", step.Invoke, missing)
	}
	return nil
}

func validateAssertion(a Assertion) error {
	switch a.Type {
	case AssertTraceCount:
		if a.Invoke == "" {
			return errors.New("trace_count requires invoke")
		}
	case AssertTraceOrder:
		if len(a.Invokes) < 2 {
			return errors.New("trace_order requires at least two invokes")
		}
	case AssertBalance:
		if a.Owner == "" || a.Mint == "" {
			return errors.New("balance requires owner and mint")
		}
	case AssertCustody:
	case AssertWithdrawn:
		if a.Beneficiary == "" {
			return errors.New("withdrawn requires beneficiary")
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}
