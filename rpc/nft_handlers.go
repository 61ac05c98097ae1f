package rpc

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"loyaltychain/crypto"
	"loyaltychain/native/nft"
)

type tokenParams struct {
	TokenID string `json:"tokenId"`
}

type tokenResult struct {
	TokenID string `json:"tokenId"`
	Owner   string `json:"owner"`
}

func (s *Server) handleNFTOwnerOf(w http.ResponseWriter, req *RPCRequest) {
	var params tokenParams
	if !s.decodeParams(w, req, &params) {
		return
	}
	id, err := parseTokenID(params.TokenID)
	if err != nil {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid tokenId", err.Error())
		return
	}
	owner, err := s.collection.OwnerOf(id)
	if err != nil {
		s.metrics.RecordRPCFailure(req.Method)
		if errors.Is(err, nft.ErrTokenNotFound) {
			writeError(w, http.StatusNotFound, req.ID, codeInvalidParams, "token not found", params.TokenID)
			return
		}
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to read token", err.Error())
		return
	}
	writeResult(w, req.ID, tokenResult{
		TokenID: formatTokenID(id),
		Owner:   crypto.MustNewAddress(crypto.LoyaltyPrefix, owner[:]).String(),
	})
}

func (s *Server) handleNFTBalanceOf(w http.ResponseWriter, req *RPCRequest) {
	var params accountParams
	if !s.decodeParams(w, req, &params) {
		return
	}
	account, ok := s.decodeAddressParam(w, req, params.Account, "account")
	if !ok {
		return
	}
	count, err := s.collection.BalanceOf(account)
	if err != nil {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to read balance", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"account": params.Account,
		"balance": count,
	})
}

func (s *Server) handleNFTListTokens(w http.ResponseWriter, req *RPCRequest) {
	var params accountParams
	if !s.decodeParams(w, req, &params) {
		return
	}
	account, ok := s.decodeAddressParam(w, req, params.Account, "account")
	if !ok {
		return
	}
	ids, err := s.collection.Tokens(account)
	if err != nil {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to list tokens", err.Error())
		return
	}
	formatted := make([]string, 0, len(ids))
	for _, id := range ids {
		formatted = append(formatted, formatTokenID(id))
	}
	writeResult(w, req.ID, formatted)
}

func (s *Server) handleNFTMetadata(w http.ResponseWriter, req *RPCRequest) {
	name, symbol, ok, err := s.collection.Metadata()
	if err != nil {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to read metadata", err.Error())
		return
	}
	if !ok {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusNotFound, req.ID, codeInvalidParams, "collection not initialized", nil)
		return
	}
	writeResult(w, req.ID, map[string]string{
		"name":   name,
		"symbol": symbol,
	})
}

func parseTokenID(id string) (nft.TokenID, error) {
	var out nft.TokenID
	cleaned := strings.TrimPrefix(strings.TrimSpace(id), "0x")
	raw, err := hex.DecodeString(cleaned)
	if err != nil {
		return out, err
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("tokenId must be %d bytes", len(out))
	}
	copy(out[:], raw)
	return out, nil
}

func formatTokenID(id nft.TokenID) string {
	return "0x" + hex.EncodeToString(id[:])
}
