package nft

// TokenID uniquely identifies a minted token within the collection.
type TokenID [32]byte

type collectionState interface {
	TokenOwner(id [32]byte) ([20]byte, bool, error)
	PutToken(id [32]byte, owner [20]byte) error
	HolderTokens(owner [20]byte) ([][32]byte, error)
	Collection() (string, string, bool, error)
}

// Collection is the token-ownership primitive: it creates tokens at most once
// per identifier and answers owner-of and balance-of queries. Tokens are
// never burned or transferred by the registry, so no such operations exist.
type Collection struct {
	st collectionState
}

// NewCollection creates a collection backed by the provided state manager.
func NewCollection(st collectionState) *Collection {
	return &Collection{st: st}
}

// Mint creates a token with the provided identifier owned by the target
// account. It fails with ErrTokenExists when the identifier is already taken;
// a minted token is permanently bound to its identifier.
func (c *Collection) Mint(to [20]byte, id TokenID) error {
	if to == ([20]byte{}) {
		return ErrZeroAddress
	}
	_, exists, err := c.st.TokenOwner(id)
	if err != nil {
		return err
	}
	if exists {
		return ErrTokenExists
	}
	return c.st.PutToken(id, to)
}

// OwnerOf returns the account owning the provided token.
func (c *Collection) OwnerOf(id TokenID) ([20]byte, error) {
	owner, exists, err := c.st.TokenOwner(id)
	if err != nil {
		return [20]byte{}, err
	}
	if !exists {
		return [20]byte{}, ErrTokenNotFound
	}
	return owner, nil
}

// BalanceOf returns the number of tokens held by the provided account.
func (c *Collection) BalanceOf(owner [20]byte) (int, error) {
	ids, err := c.st.HolderTokens(owner)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// Tokens returns the token ids held by the provided account in deterministic
// order.
func (c *Collection) Tokens(owner [20]byte) ([]TokenID, error) {
	raw, err := c.st.HolderTokens(owner)
	if err != nil {
		return nil, err
	}
	ids := make([]TokenID, 0, len(raw))
	for _, id := range raw {
		ids = append(ids, TokenID(id))
	}
	return ids, nil
}

// Metadata returns the collection name and symbol. The boolean reports
// whether the collection has been initialised.
func (c *Collection) Metadata() (name, symbol string, ok bool, err error) {
	return c.st.Collection()
}
