package harness

import "github.com/roach88/vesting/internal/ledger"

// TraceEvent is one executed step.
type TraceEvent struct {
	Seq     int64  `json:"seq"`
	At      int64  `json:"at"`
	Invoke  string `json:"invoke"`
	Signer  string `json:"signer,omitempty"`
	Outcome string `json:"outcome"`

	Amount    *uint64 `json:"amount,omitempty"`
	Vested    *uint64 `json:"vested,omitempty"`
	Claimable *uint64 `json:"claimable,omitempty"`
	Withdrawn *uint64 `json:"withdrawn,omitempty"`
}

// object converts the event for canonical serialization.
func (e TraceEvent) object() ledger.Object {
	obj := ledger.Object{
		"seq":     ledger.Int(e.Seq),
		"at":      ledger.Int(e.At),
		"invoke":  ledger.String(e.Invoke),
		"outcome": ledger.String(e.Outcome),
	}
	if e.Signer != "" {
		obj["signer"] = ledger.String(e.Signer)
	}
	for key, v := range map[string]*uint64{
		"amount":    e.Amount,
		"vested":    e.Vested,
		"claimable": e.Claimable,
		"withdrawn": e.Withdrawn,
	} {
		if v != nil {
			obj[key] = ledger.Uint(*v)
		}
	}
	return obj
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if every expect clause and assertion held.
	Pass bool `json:"pass"`

	// Trace contains all executed steps in order, setup included.
	Trace []TraceEvent `json:"trace"`

	// Errors contains one message per failed expectation.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addEvent(ev TraceEvent) {
	ev.Seq = int64(len(r.Trace) + 1)
	r.Trace = append(r.Trace, ev)
}
