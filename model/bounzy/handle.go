package bounzy

import (
	"encoding/hex"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// HandleLength is the size of a ciphertext handle in bytes.
const HandleLength = 32

// Handle is an opaque on-chain reference to an encrypted value. It has no
// meaning without the matching input proof or a public decryption.
type Handle [HandleLength]byte

// ZeroHandle is returned by the contract for ciphertexts that were never assigned.
var ZeroHandle Handle

func HexToHandle(s string) (Handle, error) {
	var h Handle
	raw, err := hexutil.Decode(s)
	if err != nil {
		return h, fmt.Errorf("could not decode handle: %w", err)
	}
	if len(raw) != HandleLength {
		return h, fmt.Errorf("invalid handle length (expected %d, got %d)", HandleLength, len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func (h Handle) IsZero() bool {
	return h == ZeroHandle
}

func (h Handle) Hex() string {
	return hexutil.Encode(h[:])
}

func (h Handle) String() string {
	return h.Hex()
}

// TerminalString returns a shortened form for log output.
func (h Handle) TerminalString() string {
	return hex.EncodeToString(h[:4])
}

func (h Handle) MarshalText() ([]byte, error) {
	return []byte(h.Hex()), nil
}

func (h *Handle) UnmarshalText(text []byte) error {
	parsed, err := HexToHandle(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
