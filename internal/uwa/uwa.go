// Package uwa builds Universal Wallet Address labels for identities.
//
// A UWA is a short display label derived from a rolling hash of the
// identity's type, name, email and selected components, followed by four
// digits of the creation timestamp. It is illustrative only: the hash is not
// cryptographic, collisions are easy to produce and the label must not be
// used for authentication, authorisation or as a unique key.
package uwa

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
)

const (
	baseLength   = 6
	suffixLength = 4
	padChar      = "0"
)

// Address is a generated label split into its deterministic base and the
// timestamp suffix.
type Address struct {
	Base   string `json:"base"`
	Suffix string `json:"suffix"`
}

// String returns the full label
func (a Address) String() string {
	return a.Base + a.Suffix
}

// Input is the identity data fed into the hash
type Input struct {
	IdentityType string   `json:"identity_type" binding:"required"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Components   []string `json:"components"`
}

// Composite joins the hashed fields in their fixed order
func (in Input) Composite() string {
	return in.IdentityType + in.Name + in.Email + strings.Join(in.Components, "|")
}

// Hash runs the rolling hash over the UTF-16 code units of s. Shifts and
// XORs wrap at 32 bits while the index term is added at full width, so the
// result can leave the int32 range on the final step.
func Hash(s string) int64 {
	var code int64
	for i, unit := range utf16.Encode([]rune(s)) {
		mixed := int32(code)<<3 ^ int32(unit)
		code = int64(mixed) + int64(i)*7
	}
	return code
}

// BaseCode is the deterministic six character part of the address
func BaseCode(in Input) string {
	h := Hash(in.Composite())
	if h < 0 {
		h = -h
	}

	base := strconv.FormatInt(h, 36)
	if len(base) > baseLength {
		base = base[:baseLength]
	}
	if len(base) < baseLength {
		base += strings.Repeat(padChar, baseLength-len(base))
	}
	return base
}

// Suffix returns the last four digits of the Unix millisecond timestamp
func Suffix(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > suffixLength {
		ms = ms[len(ms)-suffixLength:]
	}
	return ms
}

// Generate builds the address for an identity at the given time
func Generate(in Input, now time.Time) Address {
	return Address{
		Base:   BaseCode(in),
		Suffix: Suffix(now),
	}
}

// Parse splits a label back into base and suffix. It only checks the shape.
func Parse(label string) (Address, bool) {
	if len(label) != baseLength+suffixLength {
		return Address{}, false
	}
	return Address{Base: label[:baseLength], Suffix: label[baseLength:]}, true
}
