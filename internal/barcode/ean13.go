// Package barcode generates and validates the EAN-13 codes assigned to
// catalog products. Codes are composed of a fixed 9-digit company prefix,
// a 3-digit sequence, and the EAN-13 check digit.
package barcode

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/boombuler/barcode/ean"
)

// DefaultPrefix is the GS1 company prefix assigned to the product line.
const DefaultPrefix = "789846581"

const (
	payloadLen  = 12
	codeLen     = 13
	maxSequence = 999

	// The 3-digit sequence lives at positions [9:12] of a full barcode.
	seqStart = 9
	seqEnd   = 12
)

var (
	// ErrInvalidPayload is returned when input to the check digit
	// calculation is not exactly 12 ASCII digits.
	ErrInvalidPayload = errors.New("payload must be exactly 12 digits")

	// ErrSequenceExhausted is returned once the 3-digit sequence space
	// for the prefix is used up. 1000 codes per prefix is a hard ceiling.
	ErrSequenceExhausted = errors.New("barcode sequence exhausted for prefix")
)

// CheckDigit computes the EAN-13 check digit for a 12-digit payload.
// Digits at even 0-based positions weigh 1, odd positions weigh 3.
func CheckDigit(payload string) (byte, error) {
	if len(payload) != payloadLen {
		return 0, fmt.Errorf("%w: got %d characters", ErrInvalidPayload, len(payload))
	}

	sum := 0
	for i := 0; i < payloadLen; i++ {
		c := payload[i]
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: non-digit at position %d", ErrInvalidPayload, i)
		}
		digit := int(c - '0')
		if i%2 == 0 {
			sum += digit
		} else {
			sum += digit * 3
		}
	}

	check := (10 - (sum % 10)) % 10
	return byte('0' + check), nil
}

// NextSequence derives the next sequence number from the most recently
// assigned barcode. An empty lastBarcode starts the sequence at 1. The
// sequence is read from the fixed substring of the last code; anything
// unparseable there counts as 0, and a last code too short to carry a
// sequence restarts at 1.
func NextSequence(lastBarcode string) (int, error) {
	if lastBarcode == "" || len(lastBarcode) < payloadLen {
		return 1, nil
	}

	current, err := strconv.Atoi(lastBarcode[seqStart:seqEnd])
	if err != nil {
		current = 0
	}

	next := current + 1
	if next > maxSequence {
		return 0, ErrSequenceExhausted
	}
	return next, nil
}

// Generate composes the next barcode from the given prefix and the most
// recently assigned barcode. It is pure: sequencing state is derived from
// lastBarcode, never stored.
func Generate(lastBarcode, prefix string) (string, error) {
	seq, err := NextSequence(lastBarcode)
	if err != nil {
		return "", err
	}

	payload := fmt.Sprintf("%s%03d", prefix, seq)
	check, err := CheckDigit(payload)
	if err != nil {
		return "", fmt.Errorf("invalid prefix %q: %w", prefix, err)
	}

	return payload + string(check), nil
}

// Validate reports whether code is a well-formed EAN-13 barcode. The
// checksum is verified twice: by the local weighted sum and by the ean
// encoder, which refuses payloads whose check digit does not match.
func Validate(code string) error {
	if len(code) != codeLen {
		return fmt.Errorf("barcode must be %d digits, got %d", codeLen, len(code))
	}

	check, err := CheckDigit(code[:payloadLen])
	if err != nil {
		return err
	}
	if code[payloadLen] != check {
		return fmt.Errorf("check digit mismatch: want %c, got %c", check, code[payloadLen])
	}

	if _, err := ean.Encode(code); err != nil {
		return fmt.Errorf("ean encoder rejected barcode: %w", err)
	}
	return nil
}
