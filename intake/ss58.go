package intake

import (
	"bytes"
	"errors"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Network prefixes of the supported chains.
const (
	MainnetPrefix byte = 22
	TestnetPrefix byte = 21
)

var ErrBadAddress = errors.New("mainnet address is invalid")

// ss58ChecksumPreimage is prepended before hashing per the SS58 spec.
var ss58ChecksumPreimage = []byte("SS58PRE")

// ValidateMainnetAddress checks a raw SS58 address: one network prefix
// byte, a 32 byte public key and a 2 byte blake2b checksum.
func ValidateMainnetAddress(raw []byte, networkPrefix byte) error {
	if len(raw) != MainnetAddressSize {
		return fmt.Errorf("%w: expected %d bytes, got %d", ErrBadAddress, MainnetAddressSize, len(raw))
	}
	if raw[0] != networkPrefix {
		return fmt.Errorf("%w: network prefix %d, expected %d", ErrBadAddress, raw[0], networkPrefix)
	}

	sum := ss58Checksum(raw[:MainnetAddressSize-2])
	if !bytes.Equal(sum, raw[MainnetAddressSize-2:]) {
		return fmt.Errorf("%w: checksum mismatch", ErrBadAddress)
	}
	return nil
}

// AddressBytes builds a raw SS58 address from a 32 byte public key.
func AddressBytes(pubKey []byte, networkPrefix byte) ([]byte, error) {
	if len(pubKey) != 32 {
		return nil, fmt.Errorf("%w: public key must be 32 bytes, got %d", ErrBadAddress, len(pubKey))
	}
	raw := make([]byte, 0, MainnetAddressSize)
	raw = append(raw, networkPrefix)
	raw = append(raw, pubKey...)
	return append(raw, ss58Checksum(raw)...), nil
}

func ss58Checksum(data []byte) []byte {
	sum := blake2b.Sum512(append(append([]byte{}, ss58ChecksumPreimage...), data...))
	return sum[:2]
}
