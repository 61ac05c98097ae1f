package state

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/rlp"

	"loyaltychain/storage"
)

// Manager provides typed access to the registry's durable state. Keys are
// hashed with keccak256 before hitting the underlying store and values are
// RLP encoded, so any storage.Database backend yields the same layout.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// collectionMetadata describes the token collection the registry mints into.
type collectionMetadata struct {
	Name   string
	Symbol string
}

func (m *Manager) get(key []byte) ([]byte, bool, error) {
	ok, err := m.db.Has(key)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	data, err := m.db.Get(key)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (m *Manager) put(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.db.Put(key, encoded)
}

// SetCollection stores the collection name and symbol. Both are required.
func (m *Manager) SetCollection(name, symbol string) error {
	trimmedName := strings.TrimSpace(name)
	trimmedSymbol := strings.TrimSpace(symbol)
	if trimmedName == "" {
		return fmt.Errorf("collection name must not be empty")
	}
	if trimmedSymbol == "" {
		return fmt.Errorf("collection symbol must not be empty")
	}
	meta := &collectionMetadata{Name: trimmedName, Symbol: trimmedSymbol}
	return m.put(collectionKey, meta)
}

// Collection retrieves the collection name and symbol. The boolean reports
// whether the metadata has been initialised.
func (m *Manager) Collection() (string, string, bool, error) {
	data, ok, err := m.get(collectionKey)
	if err != nil || !ok {
		return "", "", false, err
	}
	meta := new(collectionMetadata)
	if err := rlp.DecodeBytes(data, meta); err != nil {
		return "", "", false, err
	}
	return meta.Name, meta.Symbol, true, nil
}

// SetOwner records the registry owner. Enforcing write-once semantics is the
// registry's job; the manager only persists.
func (m *Manager) SetOwner(addr [20]byte) error {
	return m.put(ownerKey, addr[:])
}

// Owner retrieves the registry owner. The boolean reports whether an owner
// has been recorded.
func (m *Manager) Owner() ([20]byte, bool, error) {
	var out [20]byte
	data, ok, err := m.get(ownerKey)
	if err != nil || !ok {
		return out, false, err
	}
	var raw []byte
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return out, false, err
	}
	if len(raw) != len(out) {
		return out, false, fmt.Errorf("owner record must be %d bytes, got %d", len(out), len(raw))
	}
	copy(out[:], raw)
	return out, true, nil
}

// SetLoyaltyPoints stores an account's loyalty balance.
func (m *Manager) SetLoyaltyPoints(addr [20]byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative balance not allowed")
	}
	return m.put(pointsKey(addr), amount)
}

// LoyaltyPoints retrieves an account's loyalty balance, defaulting to zero
// for accounts that never accrued points.
func (m *Manager) LoyaltyPoints(addr [20]byte) (*big.Int, error) {
	data, ok, err := m.get(pointsKey(addr))
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	amount := new(big.Int)
	if err := rlp.DecodeBytes(data, amount); err != nil {
		return nil, err
	}
	return amount, nil
}

// SetAuthorizedCaller stores the authorization flag for an account.
func (m *Manager) SetAuthorizedCaller(addr [20]byte, status bool) error {
	return m.put(authorizedKey(addr), status)
}

// AuthorizedCaller reports whether the account may credit loyalty points.
// Accounts without a stored flag default to false.
func (m *Manager) AuthorizedCaller(addr [20]byte) (bool, error) {
	data, ok, err := m.get(authorizedKey(addr))
	if err != nil || !ok {
		return false, err
	}
	var status bool
	if err := rlp.DecodeBytes(data, &status); err != nil {
		return false, err
	}
	return status, nil
}

// TokenOwner retrieves the owner of a token. The boolean reports whether the
// token has been minted.
func (m *Manager) TokenOwner(id [32]byte) ([20]byte, bool, error) {
	var out [20]byte
	data, ok, err := m.get(tokenOwnerKey(id))
	if err != nil || !ok {
		return out, false, err
	}
	var raw []byte
	if err := rlp.DecodeBytes(data, &raw); err != nil {
		return out, false, err
	}
	if len(raw) != len(out) {
		return out, false, fmt.Errorf("token owner record must be %d bytes, got %d", len(out), len(raw))
	}
	copy(out[:], raw)
	return out, true, nil
}

// PutToken records the owner of a freshly minted token and indexes it under
// the holder. Duplicate-id rejection is enforced by the collection before the
// write reaches the manager.
func (m *Manager) PutToken(id [32]byte, owner [20]byte) error {
	if err := m.put(tokenOwnerKey(id), owner[:]); err != nil {
		return err
	}
	return m.appendHolderToken(owner, id)
}

func (m *Manager) appendHolderToken(owner [20]byte, id [32]byte) error {
	list, err := m.holderTokenList(owner)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, id[:]) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), id[:]...))
	return m.put(holderKey(owner), list)
}

func (m *Manager) holderTokenList(owner [20]byte) ([][]byte, error) {
	data, ok, err := m.get(holderKey(owner))
	if err != nil || !ok {
		return nil, err
	}
	var list [][]byte
	if err := rlp.DecodeBytes(data, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// HolderTokens returns all token ids held by the provided account in
// deterministic order.
func (m *Manager) HolderTokens(owner [20]byte) ([][32]byte, error) {
	raw, err := m.holderTokenList(owner)
	if err != nil {
		return nil, err
	}
	ids := make([][32]byte, 0, len(raw))
	for _, b := range raw {
		var id [32]byte
		copy(id[:], b)
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return bytes.Compare(ids[i][:], ids[j][:]) < 0
	})
	return ids, nil
}
