package store

import (
	"fmt"

	"github.com/roach88/vesting/internal/ledger"
)

// marshalArgs converts operation args to canonical JSON TEXT for storage.
// Uses RFC 8785 canonical JSON so the stored text is what the digest covers.
func marshalArgs(args ledger.Object) (string, error) {
	if args == nil {
		args = ledger.Object{}
	}
	data, err := ledger.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// unmarshalArgs parses canonical JSON TEXT back into operation args.
// Large integers are kept exact.
func unmarshalArgs(data string) (ledger.Object, error) {
	if data == "" || data == "{}" {
		return ledger.Object{}, nil
	}
	obj, err := ledger.ParseObject([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return obj, nil
}
