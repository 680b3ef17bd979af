// internal/transaction/signer.go
package transaction

import (
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Signer produces signatures for one identity.
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(message []byte) (solana.Signature, error)
}

// KeypairSigner signs with an in-memory private key.
type KeypairSigner struct {
	key solana.PrivateKey
}

func NewKeypairSigner(key solana.PrivateKey) KeypairSigner {
	return KeypairSigner{key: key}
}

func (s KeypairSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

func (s KeypairSigner) Sign(message []byte) (solana.Signature, error) {
	return s.key.Sign(message)
}

// MissingSignerError lists required identities no signer was supplied for.
type MissingSignerError struct {
	Missing []solana.PublicKey
}

func (e *MissingSignerError) Error() string {
	keys := make([]string, len(e.Missing))
	for i, k := range e.Missing {
		keys[i] = k.String()
	}
	return fmt.Sprintf("%s: %s", ErrMissingSigner, strings.Join(keys, ", "))
}

func (e *MissingSignerError) Is(target error) bool {
	return target == ErrMissingSigner
}

// SignedEnvelope pairs an envelope with a signature per required signer.
type SignedEnvelope struct {
	envelope   *Envelope
	signatures map[solana.PublicKey]solana.Signature
	tx         *solana.Transaction
}

// Sign signs env with signers. Every required signer must be present; extra
// signers are ignored.
func Sign(env *Envelope, signers ...Signer) (*SignedEnvelope, error) {
	byKey := make(map[solana.PublicKey]Signer, len(signers))
	for _, s := range signers {
		if s == nil {
			continue
		}
		byKey[s.PublicKey()] = s
	}

	var missing []solana.PublicKey
	for _, key := range env.signers {
		if _, ok := byKey[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingSignerError{Missing: missing}
	}

	msg, err := env.Message()
	if err != nil {
		return nil, fmt.Errorf("serialize message: %w", err)
	}

	// Signature order follows the compiled account keys.
	n := int(env.tx.Message.Header.NumRequiredSignatures)
	if n > len(env.tx.Message.AccountKeys) {
		return nil, fmt.Errorf("message declares %d signers but has %d keys", n, len(env.tx.Message.AccountKeys))
	}
	sigs := make([]solana.Signature, n)
	byIdentity := make(map[solana.PublicKey]solana.Signature, n)
	for i, key := range env.tx.Message.AccountKeys[:n] {
		signer, ok := byKey[key]
		if !ok {
			return nil, &MissingSignerError{Missing: []solana.PublicKey{key}}
		}
		sig, err := signer.Sign(msg)
		if err != nil {
			return nil, fmt.Errorf("sign with %s: %w", key, err)
		}
		if !sig.Verify(key, msg) {
			return nil, fmt.Errorf("signer %s produced an invalid signature", key)
		}
		sigs[i] = sig
		byIdentity[key] = sig
	}

	return &SignedEnvelope{
		envelope:   env,
		signatures: byIdentity,
		tx: &solana.Transaction{
			Signatures: sigs,
			Message:    env.tx.Message,
		},
	}, nil
}

func (s *SignedEnvelope) Envelope() *Envelope {
	return s.envelope
}

// Signature is the fee payer's signature, which identifies the transaction.
func (s *SignedEnvelope) Signature() solana.Signature {
	return s.signatures[s.envelope.payer]
}

func (s *SignedEnvelope) Signatures() map[solana.PublicKey]solana.Signature {
	out := make(map[solana.PublicKey]solana.Signature, len(s.signatures))
	for k, v := range s.signatures {
		out[k] = v
	}
	return out
}

// Transaction returns the wire-ready transaction.
func (s *SignedEnvelope) Transaction() *solana.Transaction {
	return s.tx
}
