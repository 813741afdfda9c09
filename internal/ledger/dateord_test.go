package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOrdOf_BothEncodings(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"31/12/2023", 20231231},
		{"5/1/2024", 20240105},
		{"05-01-2024", 20240105},
		{"2024-01-05", 20240105},
		{"2024/01/05", 20240105},
	}
	for _, tc := range cases {
		got, ok := DateOrdOf(tc.in)
		require.True(t, ok, "DateOrdOf(%q) should parse", tc.in)
		assert.Equal(t, tc.want, got, "DateOrdOf(%q)", tc.in)
	}
}

func TestDateOrdOf_Rejects(t *testing.T) {
	for _, in := range []string{
		"",
		"not a date",
		"31/13/2023", // month 13
		"30/02/2024", // february 30th
		"2024-02-30",
		"31/12/23", // two-digit year
	} {
		_, ok := DateOrdOf(in)
		assert.False(t, ok, "DateOrdOf(%q) should reject", in)
	}
}

func TestDateOrd_SortsChronologically(t *testing.T) {
	a := DateOrd(time.Date(2023, 12, 31, 0, 0, 0, 0, time.UTC))
	b := DateOrd(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Less(t, a, b)
}

func TestFormatBR(t *testing.T) {
	assert.Equal(t, "05/01/2024", FormatBR("2024-01-05"))
	assert.Equal(t, "05/01/2024", FormatBR("5/1/2024"))
	// Unparseable input passes through unchanged.
	assert.Equal(t, "garbage", FormatBR("garbage"))
}

func TestOrdToBR(t *testing.T) {
	assert.Equal(t, "31/12/2023", OrdToBR(20231231))
	assert.Equal(t, "05/01/2024", OrdToBR(20240105))
}

func TestParseDate(t *testing.T) {
	got, err := ParseDate("29/02/2024")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), got)

	// 2023 is not a leap year.
	_, err = ParseDate("29/02/2023")
	assert.Error(t, err)
}
