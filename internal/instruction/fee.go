// internal/instruction/fee.go
package instruction

// LamportsPerSignature is the base fee charged per transaction signature.
const LamportsPerSignature = 5000

// EstimateFee returns the lamports a transaction with the given signature count
// and compute budget is expected to cost.
func EstimateFee(signatures int, budget *ComputeBudget) uint64 {
	fee := uint64(signatures) * LamportsPerSignature
	if budget == nil || budget.UnitPriceMicroLamports == 0 {
		return fee
	}
	micro := uint64(budget.UnitLimit) * budget.UnitPriceMicroLamports
	return fee + (micro+999_999)/1_000_000
}
