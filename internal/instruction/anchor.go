// internal/instruction/anchor.go
package instruction

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// AnchorDiscriminator is the 8-byte selector Anchor programs dispatch on:
// sha256("global:<name>")[:8].
func AnchorDiscriminator(name string) [8]byte {
	sum := sha256.Sum256([]byte("global:" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

// AnchorData encodes the discriminator of method followed by borsh-encoded args.
func AnchorData(method string, args ...interface{}) ([]byte, error) {
	disc := AnchorDiscriminator(method)
	buf := bytes.NewBuffer(disc[:])
	enc := bin.NewBorshEncoder(buf)
	for i, arg := range args {
		if err := enc.Encode(arg); err != nil {
			return nil, fmt.Errorf("encode argument %d of %s: %w", i, method, err)
		}
	}
	return buf.Bytes(), nil
}
