// AngelaMos | 2026
// claim.go

package auth

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/zacanbrcom/auditorium-booking/internal/core"
)

var (
	ErrMissingClaim = fmt.Errorf(
		"missing or malformed authorization header: %w",
		core.ErrInvalidInput,
	)
	ErrBadEncoding = fmt.Errorf(
		"identity claim is not valid base64: %w",
		core.ErrUnprocessable,
	)
	ErrBadStructure = fmt.Errorf(
		"identity claim is not a valid {name, email} object: %w",
		core.ErrUnprocessable,
	)
)

var claimValidator = core.NewValidator()

// ExtractClaim returns the payload of an Authorization header of the form
// "<scheme> <payload>". The scheme is not interpreted.
func ExtractClaim(header string) (string, error) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 {
		return "", ErrMissingClaim
	}

	payload := strings.TrimSpace(parts[1])
	if payload == "" {
		return "", ErrMissingClaim
	}

	return payload, nil
}

// DecodeClaim parses an Authorization header value into a Claim. The
// payload must be standard padded base64 of a JSON object.
func DecodeClaim(header string) (Claim, error) {
	payload, err := ExtractClaim(header)
	if err != nil {
		return Claim{}, err
	}

	raw, err := base64.StdEncoding.Strict().DecodeString(payload)
	if err != nil {
		return Claim{}, fmt.Errorf("%w: %w", ErrBadEncoding, err)
	}

	var claim Claim
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&claim); err != nil {
		return Claim{}, fmt.Errorf("%w: %w", ErrBadStructure, err)
	}
	if dec.More() {
		return Claim{}, fmt.Errorf("%w: trailing data", ErrBadStructure)
	}

	if err := claimValidator.Struct(claim); err != nil {
		return Claim{}, fmt.Errorf(
			"%w: %s",
			ErrBadStructure,
			core.FormatValidationError(err),
		)
	}

	return claim, nil
}

// EncodeClaim builds the header value a client sends for claim.
func EncodeClaim(scheme string, claim Claim) (string, error) {
	raw, err := json.Marshal(claim)
	if err != nil {
		return "", fmt.Errorf("encode claim: %w", err)
	}
	return scheme + " " + base64.StdEncoding.EncodeToString(raw), nil
}
