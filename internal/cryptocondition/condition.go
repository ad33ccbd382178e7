// Package cryptocondition implements the crypto-condition URI formats used to
// gate conditional transfers:
//
//	condition:   cc:<typeHex>:<bitmaskHex>:<base64url-fingerprint>:<maxFulfillmentLength>
//	fulfillment: cf:<typeHex>:<base64url-payload>
//
// Only type 0 (hash preimage, SHA-256) is supported. Both formats must be
// preserved bit-exact for interoperability, so conditions are compared by
// their canonical URI strings.
package cryptocondition

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	conditionPrefix   = "cc"
	fulfillmentPrefix = "cf"

	// TypePreimageSha256 is the only registered condition type.
	TypePreimageSha256 uint16 = 0

	preimageBitmask uint32 = 0x3
)

var (
	// ErrParse marks a malformed condition or fulfillment URI.
	ErrParse = errors.New("crypto-condition parse error")

	// ErrUnsupportedType marks a type id with no registered decoder.
	ErrUnsupportedType = errors.New("unsupported crypto-condition type")

	// ErrUnmetCondition is returned when a fulfillment does not satisfy the
	// condition it was submitted against.
	ErrUnmetCondition = errors.New("fulfillment does not match condition")
)

// Condition is the parsed commitment side of the handshake.
type Condition struct {
	Type                 uint16
	Bitmask              uint32
	Fingerprint          []byte
	MaxFulfillmentLength int
}

// Fulfillment is the parsed proof side of the handshake.
type Fulfillment struct {
	Type    uint16
	Payload []byte
}

// conditionDerivers maps a type id to the function deriving the canonical
// condition from a fulfillment payload. Adding a condition type means adding
// an entry here, not a new type hierarchy.
var conditionDerivers = map[uint16]func(payload []byte) Condition{
	TypePreimageSha256: func(payload []byte) Condition {
		sum := sha256.Sum256(payload)
		return Condition{
			Type:                 TypePreimageSha256,
			Bitmask:              preimageBitmask,
			Fingerprint:          sum[:],
			MaxFulfillmentLength: len(payload),
		}
	},
}

// ParseCondition parses a cc: URI.
func ParseCondition(uri string) (*Condition, error) {
	parts := strings.Split(uri, ":")
	if len(parts) != 5 || parts[0] != conditionPrefix {
		return nil, fmt.Errorf("%w: invalid condition %q", ErrParse, uri)
	}
	typeID, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: bad type field in %q", ErrParse, uri)
	}
	bitmask, err := strconv.ParseUint(parts[2], 16, 32)
	if err != nil {
		return nil, fmt.Errorf("%w: bad bitmask field in %q", ErrParse, uri)
	}
	fingerprint, err := base64.RawURLEncoding.DecodeString(parts[3])
	if err != nil {
		return nil, fmt.Errorf("%w: bad fingerprint encoding in %q", ErrParse, uri)
	}
	maxLen, err := strconv.Atoi(parts[4])
	if err != nil || maxLen < 0 {
		return nil, fmt.Errorf("%w: bad max fulfillment length in %q", ErrParse, uri)
	}
	c := &Condition{
		Type:                 uint16(typeID),
		Bitmask:              uint32(bitmask),
		Fingerprint:          fingerprint,
		MaxFulfillmentLength: maxLen,
	}
	if _, ok := conditionDerivers[c.Type]; !ok {
		return nil, fmt.Errorf("%w: type %d", ErrUnsupportedType, c.Type)
	}
	return c, nil
}

// ParseFulfillment parses a cf: URI.
func ParseFulfillment(uri string) (*Fulfillment, error) {
	parts := strings.Split(uri, ":")
	if len(parts) != 3 || parts[0] != fulfillmentPrefix {
		return nil, fmt.Errorf("%w: invalid fulfillment %q", ErrParse, uri)
	}
	typeID, err := strconv.ParseUint(parts[1], 16, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: bad type field in %q", ErrParse, uri)
	}
	payload, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: bad payload encoding in %q", ErrParse, uri)
	}
	f := &Fulfillment{Type: uint16(typeID), Payload: payload}
	if _, ok := conditionDerivers[f.Type]; !ok {
		return nil, fmt.Errorf("%w: type %d", ErrUnsupportedType, f.Type)
	}
	return f, nil
}

// URI renders the canonical condition string.
func (c Condition) URI() string {
	return fmt.Sprintf("%s:%x:%x:%s:%d",
		conditionPrefix, c.Type, c.Bitmask,
		base64.RawURLEncoding.EncodeToString(c.Fingerprint),
		c.MaxFulfillmentLength)
}

// URI renders the canonical fulfillment string.
func (f Fulfillment) URI() string {
	return fmt.Sprintf("%s:%x:%s",
		fulfillmentPrefix, f.Type,
		base64.RawURLEncoding.EncodeToString(f.Payload))
}

// Condition derives the canonical condition committed to by this fulfillment.
func (f Fulfillment) Condition() Condition {
	return conditionDerivers[f.Type](f.Payload)
}

// GenerateCondition derives the condition URI for a fulfillment URI.
func GenerateCondition(fulfillmentURI string) (string, error) {
	f, err := ParseFulfillment(fulfillmentURI)
	if err != nil {
		return "", err
	}
	return f.Condition().URI(), nil
}

// Verifier validates fulfillments against recorded conditions.
type Verifier struct{}

// NewVerifier returns the hash-preimage verifier.
func NewVerifier() Verifier { return Verifier{} }

// Verify checks that the fulfillment satisfies the condition. The derived
// condition must reproduce the recorded URI bit-exact and the payload must
// respect the committed maximum length.
func (Verifier) Verify(conditionURI, fulfillmentURI string) error {
	cond, err := ParseCondition(conditionURI)
	if err != nil {
		return err
	}
	f, err := ParseFulfillment(fulfillmentURI)
	if err != nil {
		return err
	}
	if f.Type != cond.Type {
		return fmt.Errorf("%w: fulfillment type %d does not match condition type %d", ErrUnmetCondition, f.Type, cond.Type)
	}
	if len(f.Payload) > cond.MaxFulfillmentLength {
		return fmt.Errorf("%w: fulfillment exceeds committed length", ErrUnmetCondition)
	}
	derived := f.Condition()
	derived.MaxFulfillmentLength = cond.MaxFulfillmentLength
	if derived.URI() != cond.URI() {
		return fmt.Errorf("%w", ErrUnmetCondition)
	}
	return nil
}
