package cryptocondition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	helloFulfillment = "cf:0:aGVsbG8"
	helloCondition   = "cc:0:3:LPJNul-wow4m6DsqxbninhsWHlwfp0JecwQzYpOLmCQ:5"
)

func TestGenerateCondition(t *testing.T) {
	got, err := GenerateCondition(helloFulfillment)
	require.NoError(t, err)
	assert.Equal(t, helloCondition, got)
}

func TestParseConditionRoundTrip(t *testing.T) {
	cond, err := ParseCondition(helloCondition)
	require.NoError(t, err)
	assert.Equal(t, TypePreimageSha256, cond.Type)
	assert.Equal(t, uint32(0x3), cond.Bitmask)
	assert.Equal(t, 5, cond.MaxFulfillmentLength)
	assert.Equal(t, helloCondition, cond.URI())
}

func TestParseFulfillmentRoundTrip(t *testing.T) {
	f, err := ParseFulfillment(helloFulfillment)
	require.NoError(t, err)
	assert.Equal(t, TypePreimageSha256, f.Type)
	assert.Equal(t, []byte("hello"), f.Payload)
	assert.Equal(t, helloFulfillment, f.URI())
}

func TestParseConditionErrors(t *testing.T) {
	cases := []struct {
		name string
		uri  string
		want error
	}{
		{"wrong prefix", "cf:0:3:AAAA:5", ErrParse},
		{"missing parts", "cc:0:3:AAAA", ErrParse},
		{"bad type", "cc:zz:3:AAAA:5", ErrParse},
		{"bad bitmask", "cc:0:zz:AAAA:5", ErrParse},
		{"bad fingerprint encoding", "cc:0:3:!!!:5", ErrParse},
		{"bad max length", "cc:0:3:AAAA:x", ErrParse},
		{"negative max length", "cc:0:3:AAAA:-1", ErrParse},
		{"unknown type", "cc:7:3:AAAA:5", ErrUnsupportedType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseCondition(tc.uri)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestParseFulfillmentErrors(t *testing.T) {
	cases := []struct {
		name string
		uri  string
		want error
	}{
		{"wrong prefix", "cc:0:aGVsbG8", ErrParse},
		{"missing parts", "cf:0", ErrParse},
		{"bad type", "cf:zz:aGVsbG8", ErrParse},
		{"bad payload encoding", "cf:0:!!!", ErrParse},
		{"unknown type", "cf:7:aGVsbG8", ErrUnsupportedType},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseFulfillment(tc.uri)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestVerify(t *testing.T) {
	v := NewVerifier()
	assert.NoError(t, v.Verify(helloCondition, helloFulfillment))
}

func TestVerifyWrongPreimage(t *testing.T) {
	v := NewVerifier()
	// "hellp" has the right length but the wrong hash.
	err := v.Verify(helloCondition, "cf:0:aGVsbHA")
	assert.ErrorIs(t, err, ErrUnmetCondition)
}

func TestVerifyPayloadTooLong(t *testing.T) {
	cond, err := GenerateCondition(helloFulfillment)
	require.NoError(t, err)

	// A condition committing to a shorter max length rejects the original
	// payload.
	parsed, err := ParseCondition(cond)
	require.NoError(t, err)
	parsed.MaxFulfillmentLength = 4

	v := NewVerifier()
	err = v.Verify(parsed.URI(), helloFulfillment)
	assert.ErrorIs(t, err, ErrUnmetCondition)
}

func TestVerifyMalformedInputs(t *testing.T) {
	v := NewVerifier()
	assert.ErrorIs(t, v.Verify("not-a-condition", helloFulfillment), ErrParse)
	assert.ErrorIs(t, v.Verify(helloCondition, "not-a-fulfillment"), ErrParse)
}
