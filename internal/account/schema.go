// internal/account/schema.go
package account

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// DiscriminatorSize is the length of the type tag in front of program accounts.
const DiscriminatorSize = 8

var ErrSchemaMismatch = errors.New("account data does not match schema")

// Field is one fixed-size entry of an account layout.
type Field struct {
	Name string
	Size int
}

// Schema describes the byte layout of a program account.
type Schema struct {
	Name          string
	Discriminator [DiscriminatorSize]byte
	Layout        []Field
	// Owner, when set, must own the fetched account.
	Owner solana.PublicKey
	// AllowTrailing accepts accounts allocated larger than the layout.
	AllowTrailing bool
}

// AnchorSchema derives the discriminator the way Anchor does for #[account] types.
func AnchorSchema(name string, layout ...Field) Schema {
	h := sha256.Sum256([]byte("account:" + name))
	s := Schema{Name: name, Layout: layout}
	copy(s.Discriminator[:], h[:DiscriminatorSize])
	return s
}

// WithOwner returns a copy of s bound to owner.
func (s Schema) WithOwner(owner solana.PublicKey) Schema {
	s.Owner = owner
	return s
}

// CheckOwner fails when s is bound to an owner other than owner.
func (s Schema) CheckOwner(address, owner solana.PublicKey) error {
	if s.Owner.IsZero() || owner.Equals(s.Owner) {
		return nil
	}
	return fmt.Errorf("%w: %s account %s has incorrect owner: expected %s, got %s",
		ErrSchemaMismatch, s.Name, address, s.Owner, owner)
}

// Size is the discriminator plus every field.
func (s Schema) Size() int {
	n := DiscriminatorSize
	for _, f := range s.Layout {
		n += f.Size
	}
	return n
}
