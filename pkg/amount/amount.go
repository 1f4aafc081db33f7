// Package amount holds token amounts as unsigned 256-bit integers in the
// token's base unit (18 decimals for the marketplace token).
package amount

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// Decimals is the fixed-point precision of the marketplace token.
const Decimals = 18

// BpsDenominator is the denominator for basis-point rates.
const BpsDenominator = 10_000

var (
	ErrInvalid  = errors.New("invalid amount")
	ErrOverflow = errors.New("amount overflows 256 bits")
)

// Amount is an immutable token amount in base units.
type Amount struct {
	v uint256.Int
}

// Zero is the zero amount.
var Zero = Amount{}

// New returns an amount of n base units.
func New(n uint64) Amount {
	var a Amount
	a.v.SetUint64(n)
	return a
}

// Parse reads a base-10 integer string of base units.
func Parse(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("%w: empty", ErrInvalid)
	}
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q: %v", ErrInvalid, s, err)
	}
	return Amount{v: *v}, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromBig converts a non-negative big.Int.
func FromBig(b *big.Int) (Amount, error) {
	if b == nil {
		return Zero, nil
	}
	if b.Sign() < 0 {
		return Zero, fmt.Errorf("%w: negative", ErrInvalid)
	}
	v, overflow := uint256.FromBig(b)
	if overflow {
		return Zero, ErrOverflow
	}
	return Amount{v: *v}, nil
}

// Units scales whole tokens to base units, so Units(1) is 10^18.
func Units(whole uint64) Amount {
	var a Amount
	scale := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(Decimals))
	a.v.Mul(uint256.NewInt(whole), scale)
	return a
}

func (a Amount) IsZero() bool { return a.v.IsZero() }

// Cmp returns -1, 0 or +1.
func (a Amount) Cmp(b Amount) int { return a.v.Cmp(&b.v) }

func (a Amount) LessThan(b Amount) bool { return a.v.Lt(&b.v) }

func (a Amount) Equal(b Amount) bool { return a.v.Eq(&b.v) }

// Add returns a+b. It fails on overflow.
func (a Amount) Add(b Amount) (Amount, error) {
	var z Amount
	if _, overflow := z.v.AddOverflow(&a.v, &b.v); overflow {
		return Zero, ErrOverflow
	}
	return z, nil
}

// Sub returns a-b. It fails when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	var z Amount
	if _, underflow := z.v.SubOverflow(&a.v, &b.v); underflow {
		return Zero, fmt.Errorf("%w: %s - %s underflows", ErrInvalid, a, b)
	}
	return z, nil
}

// MulBps returns floor(a * bps / 10_000). The intermediate product is 512-bit
// so the result never overflows for bps <= 10_000.
func (a Amount) MulBps(bps uint64) Amount {
	var z Amount
	z.v.MulDivOverflow(&a.v, uint256.NewInt(bps), uint256.NewInt(BpsDenominator))
	return z
}

// Big returns a copy as a big.Int.
func (a Amount) Big() *big.Int { return a.v.ToBig() }

// Bytes32 returns the big-endian ABI word.
func (a Amount) Bytes32() [32]byte { return a.v.Bytes32() }

// String renders base units in decimal.
func (a Amount) String() string { return a.v.Dec() }

// Format renders the amount in whole tokens, e.g. "1.5" for 1.5e18 base units.
func (a Amount) Format() string {
	return decimal.NewFromBigInt(a.Big(), -Decimals).String()
}

// MarshalJSON encodes as a decimal string, since amounts exceed float64 precision.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal string or a bare integer.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*a = Zero
		return nil
	}
	var s string
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = raw
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// MarshalDynamoDBAttributeValue stores the amount as a string attribute.
// DynamoDB numbers carry 38 significant digits, fewer than a uint256 needs.
func (a Amount) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberS{Value: a.String()}, nil
}

func (a *Amount) UnmarshalDynamoDBAttributeValue(av types.AttributeValue) error {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		parsed, err := Parse(v.Value)
		if err != nil {
			return err
		}
		*a = parsed
	case *types.AttributeValueMemberN:
		parsed, err := Parse(v.Value)
		if err != nil {
			return err
		}
		*a = parsed
	case *types.AttributeValueMemberNULL:
		*a = Zero
	default:
		return fmt.Errorf("%w: unsupported attribute type %T", ErrInvalid, av)
	}
	return nil
}
