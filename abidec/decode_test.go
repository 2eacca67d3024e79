package abidec

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func packClaim(t *testing.T, code string, amount *big.Int) string {
	t.Helper()
	raw, err := claimArgs.Pack(code, amount)
	require.NoError(t, err)
	return "0x" + hex.EncodeToString(raw)
}

func packString(t *testing.T, s string) string {
	t.Helper()
	raw, err := stringArgs.Pack(s)
	require.NoError(t, err)
	return "0x" + hex.EncodeToString(raw)
}

func word(n uint64) string {
	return fmt.Sprintf("%064x", n)
}

func TestDecodeClaimRoundTrip(t *testing.T) {
	bigAmount, ok := new(big.Int).SetString("10000000000000000000000000000", 10)
	require.True(t, ok)

	cases := []struct {
		name   string
		code   string
		amount *big.Int
	}{
		{"short code", "A", big.NewInt(1)},
		{"typical code", "ABC123", big.NewInt(1000)},
		{"dashed code", "GAME-X1", big.NewInt(0)},
		{"max length", strings.Repeat("Q", 100), bigAmount},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			claim := DecodeClaim(packClaim(t, c.code, c.amount))
			require.NotNil(t, claim)
			require.Equal(t, c.code, claim.Code)
			require.Equal(t, c.amount.String(), claim.Amount.String())
		})
	}
}

func TestDecodeClaimRejects(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"prefix only", "0x"},
		{"below minimum head", "0x" + strings.Repeat("ab", 95)},
		{"odd length", "0x" + strings.Repeat("a", 191)},
		{"not hex", "0x" + strings.Repeat("zz", 96)},
		{"zero length word", "0x" + word(0x40) + word(5) + word(0)},
		{"oversize length word", packClaim(t, strings.Repeat("Q", 101), big.NewInt(5))},
		{"oversize length truncated body", "0x" + word(0x40) + word(5) + word(101) + word(0)},
		{"offset beyond payload", "0x" + word(1 << 20) + word(5) + word(6)},
		{"null before first byte", packClaim(t, "\x00AB", big.NewInt(5))},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Nil(t, DecodeClaim(c.data))
		})
	}
}

func TestDecodeClaimNulTruncation(t *testing.T) {
	claim := DecodeClaim(packClaim(t, "AB\x00CD", big.NewInt(42)))
	require.NotNil(t, claim)
	require.Equal(t, "AB", claim.Code)
	require.Equal(t, "42", claim.Amount.String())
}

func TestDecodeClaimIdempotent(t *testing.T) {
	data := packClaim(t, "ABC123", big.NewInt(1000))
	first := DecodeClaim(data)
	second := DecodeClaim(data)
	require.NotNil(t, first)
	require.NotNil(t, second)
	require.Equal(t, first.Code, second.Code)
	require.Equal(t, first.Amount.String(), second.Amount.String())
}

func TestDecodeClaimWithoutPrefix(t *testing.T) {
	data := strings.TrimPrefix(packClaim(t, "ABC123", big.NewInt(7)), "0x")
	claim := DecodeClaim(data)
	require.NotNil(t, claim)
	require.Equal(t, "ABC123", claim.Code)
}

func TestDecodeString(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		require.Equal(t, "ABC123", DecodeString(packString(t, "ABC123")))
	})
	t.Run("null truncation", func(t *testing.T) {
		require.Equal(t, "XY", DecodeString(packString(t, "XY\x00Z")))
	})
	t.Run("rejects short payload", func(t *testing.T) {
		require.Empty(t, DecodeString("0x"+word(0x20)))
	})
	t.Run("rejects zero length", func(t *testing.T) {
		require.Empty(t, DecodeString("0x"+word(0x20)+word(0)))
	})
	t.Run("rejects oversize length", func(t *testing.T) {
		require.Empty(t, DecodeString(packString(t, strings.Repeat("Q", 101))))
	})
	t.Run("rejects garbage", func(t *testing.T) {
		require.Empty(t, DecodeString("nonsense"))
	})
}

func TestScanWords(t *testing.T) {
	t.Run("finds canonical string body", func(t *testing.T) {
		require.Equal(t, "ABC123", ScanWords(packString(t, "ABC123")))
	})
	t.Run("skips implausible words", func(t *testing.T) {
		data := "0x" + strings.Repeat("ff", 32) + word(6) + hex.EncodeToString([]byte("ABC123"))
		require.Equal(t, "ABC123", ScanWords(data))
	})
	t.Run("rejects non-printable body", func(t *testing.T) {
		data := "0x" + word(3) + hex.EncodeToString([]byte{0x01, 0x02, 0x03}) + strings.Repeat("00", 29)
		require.Empty(t, ScanWords(data))
	})
	t.Run("nothing plausible", func(t *testing.T) {
		require.Empty(t, ScanWords("0x"+word(0)+word(200)))
	})
	t.Run("not hex", func(t *testing.T) {
		require.Empty(t, ScanWords("xx"))
	})
}
