// internal/account/decode.go
package account

import (
	"bytes"
	"context"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-counter/internal/blockchain"
)

// View is a decoded account. It is never partially filled.
type View[T any] struct {
	Address solana.PublicKey
	Schema  Schema
	Value   T
	Slot    uint64
	Raw     []byte
}

// Reader is the part of the ledger client needed to load accounts.
type Reader interface {
	GetAccount(ctx context.Context, address solana.PublicKey) (*blockchain.AccountData, error)
}

// Decode checks raw against schema and borsh-decodes the fields into T.
// T must consume exactly the bytes the layout declares.
func Decode[T any](schema Schema, raw []byte) (*View[T], error) {
	size := schema.Size()
	switch {
	case len(raw) < size:
		return nil, fmt.Errorf("%w: %s needs %d bytes, got %d", ErrSchemaMismatch, schema.Name, size, len(raw))
	case len(raw) > size && !schema.AllowTrailing:
		return nil, fmt.Errorf("%w: %s expects %d bytes, got %d", ErrSchemaMismatch, schema.Name, size, len(raw))
	case !bytes.Equal(raw[:DiscriminatorSize], schema.Discriminator[:]):
		return nil, fmt.Errorf("%w: %s discriminator %x, got %x",
			ErrSchemaMismatch, schema.Name, schema.Discriminator, raw[:DiscriminatorSize])
	}

	var value T
	dec := bin.NewBorshDecoder(raw[DiscriminatorSize:size])
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSchemaMismatch, schema.Name, err)
	}
	if rest := dec.Remaining(); rest != 0 {
		return nil, fmt.Errorf("%w: %s layout left %d bytes undecoded", ErrSchemaMismatch, schema.Name, rest)
	}

	return &View[T]{
		Schema: schema,
		Value:  value,
		Raw:    append([]byte(nil), raw...),
	}, nil
}

// Fetch loads address and decodes it. blockchain.ErrAccountNotFound passes through.
func Fetch[T any](ctx context.Context, reader Reader, address solana.PublicKey, schema Schema) (*View[T], error) {
	acc, err := reader.GetAccount(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s account: %w", schema.Name, err)
	}
	if err := schema.CheckOwner(address, acc.Owner); err != nil {
		return nil, err
	}

	view, err := Decode[T](schema, acc.Data)
	if err != nil {
		return nil, err
	}
	view.Address = address
	view.Slot = acc.Slot
	return view, nil
}
