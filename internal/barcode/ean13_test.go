package barcode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestCheckDigit(t *testing.T) {
	tests := []struct {
		payload string
		want    byte
	}{
		{"789846581001", '1'},
		{"789846581002", '8'},
		{"000000000000", '0'},
		{"111111111111", '6'},
		{"400638133393", '1'},
	}

	for _, tt := range tests {
		got, err := CheckDigit(tt.payload)
		require.NoError(t, err, "payload %s", tt.payload)
		assert.Equal(t, string(tt.want), string(got), "payload %s", tt.payload)
	}
}

func TestCheckDigitRejectsBadInput(t *testing.T) {
	for _, payload := range []string{
		"",
		"12345678901",   // 11 digits
		"1234567890123", // 13 digits
		"12345678901a",  // non-digit
		"12345678901 ",  // trailing space
		"-2345678901m2", // sign and letter
	} {
		_, err := CheckDigit(payload)
		assert.ErrorIs(t, err, ErrInvalidPayload, "payload %q", payload)
	}
}

// Appending the check digit must always yield a string whose weighted
// (1,3,1,3...) digit sum is divisible by 10.
func TestCheckDigitProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		digits := rapid.SliceOfN(rapid.IntRange(0, 9), 12, 12).Draw(t, "digits")

		payload := make([]byte, 12)
		for i, d := range digits {
			payload[i] = byte('0' + d)
		}

		check, err := CheckDigit(string(payload))
		if err != nil {
			t.Fatalf("CheckDigit(%s): %v", payload, err)
		}

		full := string(payload) + string(check)
		sum := 0
		for i := 0; i < len(full); i++ {
			d := int(full[i] - '0')
			if i%2 == 0 {
				sum += d
			} else {
				sum += d * 3
			}
		}
		if sum%10 != 0 {
			t.Fatalf("weighted sum of %s is %d, not divisible by 10", full, sum)
		}
	})
}

func TestNextSequence(t *testing.T) {
	tests := []struct {
		name string
		last string
		want int
	}{
		{"no prior barcode", "", 1},
		{"first follow-up", "7898465810011", 2},
		{"mid range", "7898465810424", 43},
		{"short barcode restarts", "78984", 1},
		{"garbage sequence counts as zero", "789846581xyz4", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NextSequence(tt.last)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextSequenceExhausted(t *testing.T) {
	_, err := NextSequence("7898465819991")
	assert.ErrorIs(t, err, ErrSequenceExhausted)
}

func TestGenerateFirstBarcode(t *testing.T) {
	got, err := Generate("", DefaultPrefix)
	require.NoError(t, err)
	assert.Equal(t, "7898465810011", got)
}

func TestGenerateRoundTrip(t *testing.T) {
	last := ""
	for i := 0; i < 50; i++ {
		code, err := Generate(last, DefaultPrefix)
		require.NoError(t, err)
		require.Len(t, code, 13)

		check, err := CheckDigit(code[:12])
		require.NoError(t, err)
		assert.Equal(t, string(check), string(code[12]))

		require.NoError(t, Validate(code))
		last = code
	}
}

func TestGenerateMonotonic(t *testing.T) {
	a, err := Generate("", DefaultPrefix)
	require.NoError(t, err)
	b, err := Generate(a, DefaultPrefix)
	require.NoError(t, err)

	assert.Equal(t, "001", a[9:12])
	assert.Equal(t, "002", b[9:12])
}

func TestGenerateExhausted(t *testing.T) {
	last, err := Generate("7898465819984", DefaultPrefix) // sequence 998 -> 999
	require.NoError(t, err)
	assert.Equal(t, "999", last[9:12])

	_, err = Generate(last, DefaultPrefix)
	assert.ErrorIs(t, err, ErrSequenceExhausted)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("7898465810011"))
	assert.Error(t, Validate("7898465810019"))  // wrong check digit
	assert.Error(t, Validate("789846581001"))   // too short
	assert.Error(t, Validate("789846581001x9")) // non-digit
}
