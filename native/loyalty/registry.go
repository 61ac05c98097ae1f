package loyalty

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"loyaltychain/core/events"
	"loyaltychain/native/nft"
)

type registryState interface {
	Owner() ([20]byte, bool, error)
	SetOwner(addr [20]byte) error
	LoyaltyPoints(addr [20]byte) (*big.Int, error)
	SetLoyaltyPoints(addr [20]byte, amount *big.Int) error
	AuthorizedCaller(addr [20]byte) (bool, error)
	SetAuthorizedCaller(addr [20]byte, status bool) error
	SetCollection(name, symbol string) error
}

// Registry tracks per-account loyalty balances, gates balance credits behind
// an authorization set, and mints one membership token per qualifying
// account. Every operation checks its guards before performing its single
// state write, so a failed invocation leaves state untouched.
type Registry struct {
	st         registryState
	collection *nft.Collection
	emitter    events.Emitter
}

// NewRegistry creates a registry backed by the provided state manager and
// token collection.
func NewRegistry(st registryState, collection *nft.Collection) *Registry {
	return &Registry{st: st, collection: collection, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// Initialize records the deploying identity as the registry owner, marks it
// as an authorized caller and stores the collection metadata. It may be
// called exactly once for the registry's lifetime.
func (r *Registry) Initialize(owner [20]byte, name, symbol string) error {
	_, exists, err := r.st.Owner()
	if err != nil {
		return err
	}
	if exists {
		return ErrAlreadyInitialized
	}
	if err := r.st.SetCollection(name, symbol); err != nil {
		return fmt.Errorf("initialize collection: %w", err)
	}
	if err := r.st.SetOwner(owner); err != nil {
		return err
	}
	return r.st.SetAuthorizedCaller(owner, true)
}

// Mint derives a token id from the target's current balance and mints a
// token owned by the target. Only the owner may mint. Minting the same
// account twice without an intervening credit derives the same id and fails
// with ErrDuplicateToken.
func (r *Registry) Mint(caller, target [20]byte) (nft.TokenID, error) {
	var zero nft.TokenID
	if err := r.requireOwner(caller); err != nil {
		return zero, err
	}
	balance, err := r.st.LoyaltyPoints(target)
	if err != nil {
		return zero, err
	}
	id := DeriveTokenID(target, balance)
	if err := r.collection.Mint(target, id); err != nil {
		if errors.Is(err, nft.ErrTokenExists) {
			return zero, ErrDuplicateToken
		}
		return zero, err
	}
	r.emit(events.NFTMinted{Account: target, TokenID: id})
	return id, nil
}

// RewardAction evaluates the target's balance against RewardThreshold and
// broadcasts the matching reward message. Only the owner may invoke it. It
// reads and notifies; the balance is never mutated here.
func (r *Registry) RewardAction(caller, target [20]byte) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	balance, err := r.st.LoyaltyPoints(target)
	if err != nil {
		return err
	}
	message := RewardDefaultMessage
	if balance.Cmp(big.NewInt(RewardThreshold)) >= 0 {
		message = RewardGrantedMessage
	}
	r.emit(events.RewardAction{Account: target, Message: message})
	return nil
}

// UpdateLoyaltyPoints credits points to the target's balance. The caller must
// be present in the authorization set. Balances only ever grow; a credit that
// would exceed the representable range fails with ErrOverflow.
func (r *Registry) UpdateLoyaltyPoints(caller, target [20]byte, points *big.Int) error {
	authorized, err := r.st.AuthorizedCaller(caller)
	if err != nil {
		return err
	}
	if !authorized {
		return ErrNotAuthorized
	}
	if points == nil || points.Sign() < 0 {
		return ErrInvalidAmount
	}
	balance, err := r.st.LoyaltyPoints(target)
	if err != nil {
		return err
	}
	newBalance := new(big.Int).Add(balance, points)
	if newBalance.Cmp(maxBalance) > 0 {
		return ErrOverflow
	}
	if err := r.st.SetLoyaltyPoints(target, newBalance); err != nil {
		return err
	}
	r.emit(events.LoyaltyPointsUpdated{Account: target, NewBalance: newBalance})
	return nil
}

// SetAuthorizedCaller grants or revokes the permission to credit loyalty
// points. Only the owner may modify the authorization set. The operation is
// idempotent and emits no event.
func (r *Registry) SetAuthorizedCaller(caller, account [20]byte, status bool) error {
	if err := r.requireOwner(caller); err != nil {
		return err
	}
	return r.st.SetAuthorizedCaller(account, status)
}

// LoyaltyPoints returns the target's balance, zero for unknown accounts.
func (r *Registry) LoyaltyPoints(account [20]byte) (*big.Int, error) {
	return r.st.LoyaltyPoints(account)
}

// AuthorizedCaller reports whether the account may credit points, false for
// unknown accounts.
func (r *Registry) AuthorizedCaller(account [20]byte) (bool, error) {
	return r.st.AuthorizedCaller(account)
}

// Owner returns the registry owner.
func (r *Registry) Owner() ([20]byte, error) {
	owner, exists, err := r.st.Owner()
	if err != nil {
		return [20]byte{}, err
	}
	if !exists {
		return [20]byte{}, ErrNotInitialized
	}
	return owner, nil
}

func (r *Registry) requireOwner(caller [20]byte) error {
	owner, exists, err := r.st.Owner()
	if err != nil {
		return err
	}
	if !exists {
		return ErrNotInitialized
	}
	if caller != owner {
		return ErrNotOwner
	}
	return nil
}

func (r *Registry) emit(event events.Event) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(event)
}

// DeriveTokenID computes keccak256(account || balance) where the balance is
// left-padded to 32 bytes. The id is therefore stable for a given
// (account, balance) pair: it changes only when the balance changes between
// mints.
func DeriveTokenID(account [20]byte, balance *big.Int) nft.TokenID {
	if balance == nil {
		balance = big.NewInt(0)
	}
	preimage := make([]byte, 0, 52)
	preimage = append(preimage, account[:]...)
	preimage = append(preimage, common.LeftPadBytes(balance.Bytes(), 32)...)
	var id nft.TokenID
	copy(id[:], ethcrypto.Keccak256(preimage))
	return id
}
