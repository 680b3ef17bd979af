package transaction

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-counter/internal/instruction"
)

func TestSignProducesVerifiableSignatures(t *testing.T) {
	payer := newKey(t)
	counter := newKey(t)
	env, err := Assemble(counterCall(payer.PublicKey(), solana.Meta(counter.PublicKey()).WRITE().SIGNER()),
		payer.PublicKey(), testRef())
	require.NoError(t, err)

	signed, err := Sign(env, NewKeypairSigner(counter), NewKeypairSigner(payer))
	require.NoError(t, err)

	msg, err := env.Message()
	require.NoError(t, err)
	sigs := signed.Signatures()
	require.Len(t, sigs, 2)
	assert.True(t, sigs[payer.PublicKey()].Verify(payer.PublicKey(), msg))
	assert.True(t, sigs[counter.PublicKey()].Verify(counter.PublicKey(), msg))

	tx := signed.Transaction()
	require.Len(t, tx.Signatures, 2)
	assert.Equal(t, signed.Signature(), tx.Signatures[0], "payer signs first")
	_, err = tx.MarshalBinary()
	assert.NoError(t, err)
}

func TestSignMissingSigner(t *testing.T) {
	payer := newKey(t)
	counter := newKey(t)
	env, err := Assemble(counterCall(payer.PublicKey(), solana.Meta(counter.PublicKey()).SIGNER()),
		payer.PublicKey(), testRef())
	require.NoError(t, err)

	signed, err := Sign(env, NewKeypairSigner(payer))
	assert.Nil(t, signed)
	assert.ErrorIs(t, err, ErrMissingSigner)

	var missing *MissingSignerError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, []solana.PublicKey{counter.PublicKey()}, missing.Missing)
	assert.Contains(t, err.Error(), counter.PublicKey().String())
}

func TestSignIgnoresExtraSigners(t *testing.T) {
	payer := newKey(t)
	env, err := Assemble(counterCall(payer.PublicKey()), payer.PublicKey(), testRef())
	require.NoError(t, err)

	signed, err := Sign(env, NewKeypairSigner(newKey(t)), NewKeypairSigner(payer), nil)
	require.NoError(t, err)
	assert.Len(t, signed.Signatures(), 1)
}

// Sign must succeed exactly when every required identity has a signer, for any
// mix of account roles.
func TestSignSucceedsIffAllRequiredSignersPresent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	pool := make([]solana.PrivateKey, 6)
	for i := range pool {
		pool[i] = newKey(t)
	}

	for round := 0; round < 100; round++ {
		payer := pool[rng.Intn(len(pool))]

		var ixs []instruction.Descriptor
		for n := 1 + rng.Intn(3); n > 0; n-- {
			var metas []*solana.AccountMeta
			for _, k := range pool {
				if rng.Intn(2) == 0 {
					continue
				}
				meta := solana.Meta(k.PublicKey())
				if rng.Intn(2) == 0 {
					meta = meta.SIGNER()
				}
				if rng.Intn(2) == 0 {
					meta = meta.WRITE()
				}
				metas = append(metas, meta)
			}
			ixs = append(ixs, instruction.New(counterProgram, metas, []byte{byte(round)}))
		}

		env, err := Assemble(ixs, payer.PublicKey(), testRef())
		require.NoError(t, err)

		required := map[solana.PublicKey]bool{}
		for _, k := range env.RequiredSigners() {
			required[k] = true
		}

		var supplied []Signer
		complete := true
		for _, k := range pool {
			if rng.Intn(3) == 0 {
				if required[k.PublicKey()] {
					complete = false
				}
				continue
			}
			supplied = append(supplied, NewKeypairSigner(k))
		}

		signed, err := Sign(env, supplied...)
		if complete {
			require.NoError(t, err, "round %d", round)
			require.Len(t, signed.Signatures(), len(required))
		} else {
			require.ErrorIs(t, err, ErrMissingSigner, "round %d", round)
		}
	}
}

type badSigner struct {
	key solana.PrivateKey
}

func (b badSigner) PublicKey() solana.PublicKey { return b.key.PublicKey() }

func (b badSigner) Sign([]byte) (solana.Signature, error) { return solana.Signature{1}, nil }

func TestSignRejectsInvalidSignature(t *testing.T) {
	payer := newKey(t)
	env, err := Assemble(counterCall(payer.PublicKey()), payer.PublicKey(), testRef())
	require.NoError(t, err)

	_, err = Sign(env, badSigner{key: payer})
	assert.ErrorContains(t, err, "invalid signature")
}
