package loyalty

import "math/big"

// RewardThreshold is the balance at which an account qualifies for the
// exclusive reward tier.
const RewardThreshold = 1000

const (
	// RewardGrantedMessage is broadcast when an account meets the threshold.
	RewardGrantedMessage = "Access to exclusive party granted!"
	// RewardDefaultMessage is broadcast below the threshold. The wording is
	// historical: the operation never actually credits tokens.
	RewardDefaultMessage = "Received additional tokens!"
)

// maxBalance caps balances at a 256-bit word (2^256 - 1). Crediting past it
// fails with ErrOverflow.
var maxBalance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
