package decode

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/holiman/uint256"
)

// maxUint256 is the canonical "unlimited approval" sentinel value: the
// bitwise NOT of zero over one 256-bit EVM word. Built via uint256.Int (the
// same fixed-width type go-ethereum's EVM uses for stack words, and the
// same NOT-of-zero idiom the EVM's NOT opcode implements) rather than a
// shifted big.Int, so the sentinel can never silently widen past one word.
var maxUint256 = new(uint256.Int).Not(new(uint256.Int)).ToBig()

var pow10 [77]*big.Int

func init() {
	ten := big.NewInt(10)
	p := big.NewInt(1)
	for i := range pow10 {
		pow10[i] = new(big.Int).Set(p)
		p = new(big.Int).Mul(p, ten)
	}
}

func powerOfTen(decimals uint8) *big.Int {
	if int(decimals) < len(pow10) {
		return pow10[decimals]
	}
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
}

// FormatAmount renders raw (a token's smallest-unit integer amount) as a
// human string: thousands-separated integer part, up to four fractional
// digits with trailing zeros stripped. A nonzero amount that rounds to
// 0.0000 at four digits renders as "<0.0001"; MAX_UINT256 renders as
// "Unlimited".
func FormatAmount(raw *big.Int, decimals uint8) string {
	if raw == nil {
		return "0"
	}
	if raw.Cmp(maxUint256) == 0 {
		return "Unlimited"
	}
	if raw.Sign() == 0 {
		return "0"
	}

	neg := raw.Sign() < 0
	abs := new(big.Int).Abs(raw)

	divisor := powerOfTen(decimals)
	intPart := new(big.Int).Div(abs, divisor)
	rem := new(big.Int).Mod(abs, divisor)

	fracScaled := new(big.Int).Mul(rem, big.NewInt(10000))
	fracScaled.Div(fracScaled, divisor)
	frac := fracScaled.Int64()

	if intPart.Sign() == 0 && frac == 0 {
		return "<0.0001"
	}

	out := groupThousands(intPart.String())
	if frac != 0 {
		fracStr := strings.TrimRight(fmt.Sprintf("%04d", frac), "0")
		out = out + "." + fracStr
	}
	if neg {
		out = "-" + out
	}
	return out
}

// groupThousands inserts a comma every three digits from the right of a
// non-negative base-10 integer string.
func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(s[:lead])
	for i := lead; i < len(s); i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
