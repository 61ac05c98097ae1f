package events

import (
	"encoding/hex"
	"math/big"

	"loyaltychain/core/types"
	"loyaltychain/crypto"
)

const (
	// TypeLoyaltyPointsUpdated is emitted whenever an authorized caller
	// credits loyalty points to an account.
	TypeLoyaltyPointsUpdated = "loyalty.points.updated"
	// TypeNFTMinted is emitted when a membership token is minted for an
	// account.
	TypeNFTMinted = "loyalty.nft.minted"
	// TypeRewardAction is emitted when the owner evaluates an account
	// against the reward threshold.
	TypeRewardAction = "loyalty.reward.action"
)

// LoyaltyPointsUpdated captures a balance credit and the resulting balance.
type LoyaltyPointsUpdated struct {
	Account    [20]byte
	NewBalance *big.Int
}

// EventType implements the Event interface.
func (LoyaltyPointsUpdated) EventType() string { return TypeLoyaltyPointsUpdated }

// Event converts the credit details to the generic event payload.
func (e LoyaltyPointsUpdated) Event() *types.Event {
	balance := big.NewInt(0)
	if e.NewBalance != nil {
		balance = new(big.Int).Set(e.NewBalance)
	}
	return &types.Event{
		Type: TypeLoyaltyPointsUpdated,
		Attributes: map[string]string{
			"account":    crypto.MustNewAddress(crypto.LoyaltyPrefix, e.Account[:]).String(),
			"newBalance": balance.String(),
		},
	}
}

// NFTMinted captures a freshly minted token and its recipient.
type NFTMinted struct {
	Account [20]byte
	TokenID [32]byte
}

// EventType implements the Event interface.
func (NFTMinted) EventType() string { return TypeNFTMinted }

// Event converts the mint details to the generic event payload.
func (e NFTMinted) Event() *types.Event {
	return &types.Event{
		Type: TypeNFTMinted,
		Attributes: map[string]string{
			"account": crypto.MustNewAddress(crypto.LoyaltyPrefix, e.Account[:]).String(),
			"tokenId": "0x" + hex.EncodeToString(e.TokenID[:]),
		},
	}
}

// RewardAction captures the reward decision broadcast for an account.
type RewardAction struct {
	Account [20]byte
	Message string
}

// EventType implements the Event interface.
func (RewardAction) EventType() string { return TypeRewardAction }

// Event converts the reward decision to the generic event payload.
func (e RewardAction) Event() *types.Event {
	return &types.Event{
		Type: TypeRewardAction,
		Attributes: map[string]string{
			"account": crypto.MustNewAddress(crypto.LoyaltyPrefix, e.Account[:]).String(),
			"message": e.Message,
		},
	}
}
