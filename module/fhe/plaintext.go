package fhe

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
)

// Kind is the encrypted integer type a plaintext is encrypted as.
type Kind uint8

const (
	KindUint8 Kind = iota + 1
	KindUint64
	KindUint256
)

// Bits returns the bit width of the encrypted type.
func (k Kind) Bits() int {
	switch k {
	case KindUint8:
		return 8
	case KindUint64:
		return 64
	case KindUint256:
		return 256
	default:
		return 0
	}
}

func (k Kind) String() string {
	switch k {
	case KindUint8:
		return "euint8"
	case KindUint64:
		return "euint64"
	case KindUint256:
		return "euint256"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	if k.Bits() == 0 {
		return nil, fmt.Errorf("unknown plaintext kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	for _, candidate := range []Kind{KindUint8, KindUint64, KindUint256} {
		if candidate.String() == string(text) {
			*k = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown plaintext kind %q", string(text))
}

// Plaintext is a value to encrypt. The value is not range checked against the
// kind here; the relayer rejects values that do not fit.
type Plaintext struct {
	Kind  Kind
	Value *uint256.Int
}

func Uint8(v uint8) Plaintext {
	return Plaintext{Kind: KindUint8, Value: uint256.NewInt(uint64(v))}
}

func Uint64(v uint64) Plaintext {
	return Plaintext{Kind: KindUint64, Value: uint256.NewInt(v)}
}

func Uint256(v *uint256.Int) Plaintext {
	value := new(uint256.Int)
	if v != nil {
		value.Set(v)
	}
	return Plaintext{Kind: KindUint256, Value: value}
}

// Bytes32 packs a fixed length byte string big-endian into a 256-bit value.
func Bytes32(b [32]byte) Plaintext {
	return Plaintext{Kind: KindUint256, Value: new(uint256.Int).SetBytes32(b[:])}
}

// FromBig creates a plaintext of the given kind. It fails only if the value
// is negative or exceeds 256 bits.
func FromBig(kind Kind, v *big.Int) (Plaintext, error) {
	if v == nil || v.Sign() < 0 {
		return Plaintext{}, fmt.Errorf("plaintext must be a non-negative integer: %w", ErrInvalidInput)
	}
	value, overflow := uint256.FromBig(v)
	if overflow {
		return Plaintext{}, fmt.Errorf("plaintext exceeds 256 bits: %w", ErrInvalidInput)
	}
	return Plaintext{Kind: kind, Value: value}, nil
}

// Fits returns true if the value fits into the bit width of its kind.
func (p Plaintext) Fits() bool {
	bits := p.Kind.Bits()
	return bits > 0 && p.Value != nil && p.Value.BitLen() <= bits
}

// Big returns the value as a big integer.
func (p Plaintext) Big() *big.Int {
	if p.Value == nil {
		return new(big.Int)
	}
	return p.Value.ToBig()
}
