package rpc

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strings"

	"loyaltychain/crypto"
	"loyaltychain/native/loyalty"
)

type updatePointsParams struct {
	Caller  string `json:"caller"`
	Account string `json:"account"`
	Points  string `json:"points"`
}

type mintParams struct {
	Caller  string `json:"caller"`
	Account string `json:"account"`
}

type rewardActionParams struct {
	Caller  string `json:"caller"`
	Account string `json:"account"`
}

type setAuthorizedCallerParams struct {
	Caller  string `json:"caller"`
	Account string `json:"account"`
	Status  bool   `json:"status"`
}

type accountParams struct {
	Account string `json:"account"`
}

func (s *Server) handleLoyaltyUpdatePoints(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params updatePointsParams
	if !s.decodeParams(w, req, &params) {
		return
	}
	caller, ok := s.decodeAddressParam(w, req, params.Caller, "caller")
	if !ok {
		return
	}
	account, ok := s.decodeAddressParam(w, req, params.Account, "account")
	if !ok {
		return
	}
	points, ok := new(big.Int).SetString(strings.TrimSpace(params.Points), 10)
	if !ok {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "points must be a base-10 integer", params.Points)
		return
	}
	if err := s.registry.UpdateLoyaltyPoints(caller, account, points); err != nil {
		s.writeRegistryError(w, req, err)
		return
	}
	s.metrics.RecordPointsCredited()
	balance, err := s.registry.LoyaltyPoints(account)
	if err != nil {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to read balance", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]string{
		"account":    params.Account,
		"newBalance": balance.String(),
	})
}

func (s *Server) handleLoyaltyMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params mintParams
	if !s.decodeParams(w, req, &params) {
		return
	}
	caller, ok := s.decodeAddressParam(w, req, params.Caller, "caller")
	if !ok {
		return
	}
	account, ok := s.decodeAddressParam(w, req, params.Account, "account")
	if !ok {
		return
	}
	id, err := s.registry.Mint(caller, account)
	if err != nil {
		s.writeRegistryError(w, req, err)
		return
	}
	s.metrics.RecordTokenMinted()
	writeResult(w, req.ID, map[string]string{
		"account": params.Account,
		"tokenId": formatTokenID(id),
	})
}

func (s *Server) handleLoyaltyRewardAction(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params rewardActionParams
	if !s.decodeParams(w, req, &params) {
		return
	}
	caller, ok := s.decodeAddressParam(w, req, params.Caller, "caller")
	if !ok {
		return
	}
	account, ok := s.decodeAddressParam(w, req, params.Account, "account")
	if !ok {
		return
	}
	if err := s.registry.RewardAction(caller, account); err != nil {
		s.writeRegistryError(w, req, err)
		return
	}
	balance, err := s.registry.LoyaltyPoints(account)
	if err != nil {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to read balance", err.Error())
		return
	}
	tier := "default"
	if balance.Cmp(big.NewInt(loyalty.RewardThreshold)) >= 0 {
		tier = "exclusive"
	}
	s.metrics.RecordRewardAction(tier)
	writeResult(w, req.ID, "ok")
}

func (s *Server) handleLoyaltySetAuthorizedCaller(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params setAuthorizedCallerParams
	if !s.decodeParams(w, req, &params) {
		return
	}
	caller, ok := s.decodeAddressParam(w, req, params.Caller, "caller")
	if !ok {
		return
	}
	account, ok := s.decodeAddressParam(w, req, params.Account, "account")
	if !ok {
		return
	}
	if err := s.registry.SetAuthorizedCaller(caller, account, params.Status); err != nil {
		s.writeRegistryError(w, req, err)
		return
	}
	writeResult(w, req.ID, "ok")
}

func (s *Server) handleLoyaltyGetPoints(w http.ResponseWriter, req *RPCRequest) {
	var params accountParams
	if !s.decodeParams(w, req, &params) {
		return
	}
	account, ok := s.decodeAddressParam(w, req, params.Account, "account")
	if !ok {
		return
	}
	balance, err := s.registry.LoyaltyPoints(account)
	if err != nil {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to read balance", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]string{
		"account": params.Account,
		"balance": balance.String(),
	})
}

func (s *Server) handleLoyaltyGetAuthorizedCaller(w http.ResponseWriter, req *RPCRequest) {
	var params accountParams
	if !s.decodeParams(w, req, &params) {
		return
	}
	account, ok := s.decodeAddressParam(w, req, params.Account, "account")
	if !ok {
		return
	}
	authorized, err := s.registry.AuthorizedCaller(account)
	if err != nil {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, "failed to read authorization", err.Error())
		return
	}
	writeResult(w, req.ID, map[string]interface{}{
		"account":    params.Account,
		"authorized": authorized,
	})
}

func (s *Server) handleLoyaltyGetOwner(w http.ResponseWriter, req *RPCRequest) {
	owner, err := s.registry.Owner()
	if err != nil {
		s.writeRegistryError(w, req, err)
		return
	}
	writeResult(w, req.ID, crypto.MustNewAddress(crypto.LoyaltyPrefix, owner[:]).String())
}

func (s *Server) handleLoyaltyListEvents(w http.ResponseWriter, req *RPCRequest) {
	writeResult(w, req.ID, s.log.Entries())
}

func (s *Server) decodeParams(w http.ResponseWriter, req *RPCRequest, out interface{}) bool {
	if len(req.Params) != 1 {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "exactly one parameter object expected", nil)
		return false
	}
	if err := json.Unmarshal(req.Params[0], out); err != nil {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid parameter object", err.Error())
		return false
	}
	return true
}

func (s *Server) decodeAddressParam(w http.ResponseWriter, req *RPCRequest, raw, field string) ([20]byte, bool) {
	addr, err := decodeBech32(raw)
	if err != nil {
		s.metrics.RecordRPCFailure(req.Method)
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, "invalid "+field+" address", err.Error())
		return [20]byte{}, false
	}
	return addr, true
}

func (s *Server) writeRegistryError(w http.ResponseWriter, req *RPCRequest, err error) {
	s.metrics.RecordRPCFailure(req.Method)
	switch {
	case errors.Is(err, loyalty.ErrNotOwner), errors.Is(err, loyalty.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, req.ID, codeUnauthorized, err.Error(), nil)
	case errors.Is(err, loyalty.ErrDuplicateToken):
		writeError(w, http.StatusConflict, req.ID, codeDuplicateToken, err.Error(), nil)
	case errors.Is(err, loyalty.ErrOverflow):
		writeError(w, http.StatusBadRequest, req.ID, codeOverflow, err.Error(), nil)
	case errors.Is(err, loyalty.ErrInvalidAmount), errors.Is(err, loyalty.ErrNotInitialized), errors.Is(err, loyalty.ErrAlreadyInitialized):
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidParams, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, req.ID, codeServerError, err.Error(), nil)
	}
}

func decodeBech32(addr string) ([20]byte, error) {
	var zero [20]byte
	decoded, err := crypto.DecodeAddress(strings.TrimSpace(addr))
	if err != nil {
		return zero, err
	}
	copy(zero[:], decoded.Bytes())
	return zero, nil
}
