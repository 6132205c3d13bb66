package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonicalSortsKeys(t *testing.T) {
	got, err := MarshalCanonical(Object{
		"zebra": String("z"),
		"apple": Uint(18446744073709551615),
		"mango": Int(-5),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"apple":18446744073709551615,"mango":-5,"zebra":"z"}`, string(got))
}

func TestMarshalCanonicalNoHTMLEscape(t *testing.T) {
	got, err := MarshalCanonical("a<b>&c")
	require.NoError(t, err)
	assert.Equal(t, `"a<b>&c"`, string(got))
}

func TestMarshalCanonicalLineSeparators(t *testing.T) {
	got, err := MarshalCanonical("x\u2028y\u2029z")
	require.NoError(t, err)
	assert.Equal(t, "\"x\u2028y\u2029z\"", string(got))

	// An escaped backslash followed by the text u2028 stays escaped.
	got, err = MarshalCanonical(`\u2028`)
	require.NoError(t, err)
	assert.Equal(t, `"\\u2028"`, string(got))
}

func TestMarshalCanonicalNFC(t *testing.T) {
	decomposed := "e\u0301"
	got, err := MarshalCanonical(decomposed)
	require.NoError(t, err)
	assert.Equal(t, "\"\u00e9\"", string(got))
}

func TestMarshalCanonicalUTF16KeyOrder(t *testing.T) {
	// U+1F600 encodes as surrogates 0xD83D..., which sorts before U+FF61 in
	// UTF-16 but after it in UTF-8.
	got, err := MarshalCanonical(map[string]any{
		"\uFF61":     "a",
		"\U0001F600": "b",
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"\U0001F600\":\"b\",\"\uFF61\":\"a\"}", string(got))
}

func TestMarshalCanonicalRejectsFloatAndNull(t *testing.T) {
	_, err := MarshalCanonical(map[string]any{"f": 1.5})
	require.Error(t, err)

	_, err = MarshalCanonical(map[string]any{"n": nil})
	require.Error(t, err)
}

type codedErr string

func (c codedErr) Error() string     { return string(c) }
func (c codedErr) ErrorCode() string { return string(c) }

func TestOperationDigestStable(t *testing.T) {
	op := &Operation{
		ID:      "0190b6a4-0000-7000-8000-000000000000",
		Name:    "claim_tokens",
		Signer:  walletAddress(t, "alice"),
		Args:    Object{"organization_name": String("acme")},
		Time:    250,
		Outcome: OutcomeOK,
	}

	d1, err := op.Digest()
	require.NoError(t, err)
	op.Seq = 99
	d2, err := op.Digest()
	require.NoError(t, err)
	assert.Equal(t, d1, d2, "seq is not part of the digest")
	assert.Len(t, d1, 64)

	op.Outcome = "NOTHING_TO_CLAIM"
	d3, err := op.Digest()
	require.NoError(t, err)
	assert.NotEqual(t, d1, d3)
}

func TestNewOperationUUIDv7(t *testing.T) {
	a := NewOperation("create_vesting_account", Address{}, 0, nil)
	b := NewOperation("create_vesting_account", Address{}, 0, nil)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, byte('7'), a.ID[14], "version nibble")
	assert.NotNil(t, a.Args)
}

func TestOutcomeOf(t *testing.T) {
	assert.Equal(t, OutcomeOK, OutcomeOf(nil))
	assert.Equal(t, "NOTHING_TO_CLAIM", OutcomeOf(fmt.Errorf("claim: %w", codedErr("NOTHING_TO_CLAIM"))))
	assert.Equal(t, OutcomeUnknown, OutcomeOf(errors.New("disk full")))
}

func TestParseObjectRoundTripsCanonicalBytes(t *testing.T) {
	in := Object{
		"amount":   Uint(18446744073709551615),
		"start":    Int(-5),
		"org":      String("acme"),
		"flags":    Array{Bool(true), Int(1)},
		"metadata": Object{"k": String("v")},
	}
	data, err := MarshalCanonical(in)
	require.NoError(t, err)

	out, err := ParseObject(data)
	require.NoError(t, err)
	assert.Equal(t, Uint(18446744073709551615), out["amount"])
	assert.Equal(t, Int(-5), out["start"])

	again, err := MarshalCanonical(out)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestParseObjectRejectsFloats(t *testing.T) {
	_, err := ParseObject([]byte(`{"x": 1.5}`))
	assert.Error(t, err)

	_, err = ParseObject([]byte(`[1]`))
	assert.Error(t, err)
}
