package state

import ethcrypto "github.com/ethereum/go-ethereum/crypto"

var (
	collectionKey    = ethcrypto.Keccak256([]byte("loyalty:collection"))
	ownerKey         = ethcrypto.Keccak256([]byte("loyalty:owner"))
	pointsPrefix     = []byte("loyalty:points:")
	authorizedPrefix = []byte("loyalty:authorized:")
	tokenOwnerPrefix = []byte("nft:owner:")
	holderPrefix     = []byte("nft:tokens:")
)

func pointsKey(addr [20]byte) []byte {
	return prefixedKey(pointsPrefix, addr[:])
}

func authorizedKey(addr [20]byte) []byte {
	return prefixedKey(authorizedPrefix, addr[:])
}

func tokenOwnerKey(id [32]byte) []byte {
	return prefixedKey(tokenOwnerPrefix, id[:])
}

func holderKey(addr [20]byte) []byte {
	return prefixedKey(holderPrefix, addr[:])
}

func prefixedKey(prefix, suffix []byte) []byte {
	buf := make([]byte, len(prefix)+len(suffix))
	copy(buf, prefix)
	copy(buf[len(prefix):], suffix)
	return ethcrypto.Keccak256(buf)
}
