package consensus

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"slices"
	"strings"
)

const AddressSize = 20

// Address identifies a participant. The protocol treats it as opaque;
// bytewise ordering is used only where a deterministic tie-break is needed.
type Address [AddressSize]byte

func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

func (a Address) Compare(b Address) int {
	return bytes.Compare(a[:], b[:])
}

// AddressFromHex parses a 0x-prefixed or bare hex address.
func AddressFromHex(s string) (Address, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return Address{}, fmt.Errorf("decode address: %w", err)
	}
	if len(raw) != AddressSize {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize, len(raw))
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

// SortAddresses orders addresses bytewise in place.
func SortAddresses(addrs []Address) {
	slices.SortFunc(addrs, Address.Compare)
}
