package rpc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"loyaltychain/core/events"
	"loyaltychain/core/state"
	"loyaltychain/crypto"
	"loyaltychain/native/loyalty"
	"loyaltychain/native/nft"
	"loyaltychain/storage"
)

type testEnv struct {
	server *Server
	owner  string
	token  string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	token := "test-token"
	if err := os.Setenv(rpcTokenEnv, token); err != nil {
		t.Fatalf("set env: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Unsetenv(rpcTokenEnv)
	})
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	manager := state.NewManager(db)
	collection := nft.NewCollection(manager)
	registry := loyalty.NewRegistry(manager, collection)

	ownerKey, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate owner key: %v", err)
	}
	var ownerAddr [20]byte
	copy(ownerAddr[:], ownerKey.PubKey().Address().Bytes())
	if err := registry.Initialize(ownerAddr, "Loyalty Membership", "LOYM"); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	log := events.NewLog()
	registry.SetEmitter(log)
	server := NewServer(registry, collection, log)
	return &testEnv{server: server, owner: ownerKey.PubKey().Address().String(), token: token}
}

func (env *testEnv) newRequest() *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Bearer "+env.token)
	return req
}

func marshalParam(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal param: %v", err)
	}
	return raw
}

func decodeRPCResponse(t *testing.T, rec *httptest.ResponseRecorder) (json.RawMessage, *RPCError) {
	t.Helper()
	var resp struct {
		Result json.RawMessage `json:"result"`
		Error  *RPCError       `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Result, resp.Error
}

func newAccountAddress(t *testing.T) string {
	t.Helper()
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return key.PubKey().Address().String()
}

func TestHandleUpdatePointsSuccess(t *testing.T) {
	env := newTestEnv(t)
	user := newAccountAddress(t)

	req := &RPCRequest{ID: 1, Params: []json.RawMessage{marshalParam(t, map[string]string{
		"caller":  env.owner,
		"account": user,
		"points":  "250",
	})}}
	recorder := httptest.NewRecorder()
	env.server.handleLoyaltyUpdatePoints(recorder, env.newRequest(), req)

	result, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr != nil {
		t.Fatalf("unexpected rpc error: %+v", rpcErr)
	}
	var payload map[string]string
	if err := json.Unmarshal(result, &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if payload["newBalance"] != "250" {
		t.Fatalf("unexpected balance %q", payload["newBalance"])
	}
}

func TestHandleUpdatePointsUnauthorizedCaller(t *testing.T) {
	env := newTestEnv(t)
	outsider := newAccountAddress(t)
	user := newAccountAddress(t)

	req := &RPCRequest{ID: 1, Params: []json.RawMessage{marshalParam(t, map[string]string{
		"caller":  outsider,
		"account": user,
		"points":  "10",
	})}}
	recorder := httptest.NewRecorder()
	env.server.handleLoyaltyUpdatePoints(recorder, env.newRequest(), req)

	_, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr == nil || rpcErr.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized error, got %+v", rpcErr)
	}
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", recorder.Code)
	}
}

func TestHandleUpdatePointsRequiresBearerToken(t *testing.T) {
	env := newTestEnv(t)
	req := &RPCRequest{ID: 1, Params: []json.RawMessage{marshalParam(t, map[string]string{
		"caller":  env.owner,
		"account": env.owner,
		"points":  "10",
	})}}
	recorder := httptest.NewRecorder()
	bare := httptest.NewRequest(http.MethodPost, "/", nil)
	env.server.handleLoyaltyUpdatePoints(recorder, bare, req)

	_, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr == nil || rpcErr.Code != codeUnauthorized {
		t.Fatalf("expected auth error, got %+v", rpcErr)
	}
}

func TestHandleUpdatePointsRejectsMalformedPoints(t *testing.T) {
	env := newTestEnv(t)
	req := &RPCRequest{ID: 1, Params: []json.RawMessage{marshalParam(t, map[string]string{
		"caller":  env.owner,
		"account": env.owner,
		"points":  "not-a-number",
	})}}
	recorder := httptest.NewRecorder()
	env.server.handleLoyaltyUpdatePoints(recorder, env.newRequest(), req)

	_, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr == nil || rpcErr.Code != codeInvalidParams {
		t.Fatalf("expected invalid params error, got %+v", rpcErr)
	}
}

func TestHandleMintAndDuplicate(t *testing.T) {
	env := newTestEnv(t)
	user := newAccountAddress(t)

	mint := func() (*httptest.ResponseRecorder, *RPCError, map[string]string) {
		req := &RPCRequest{ID: 1, Params: []json.RawMessage{marshalParam(t, map[string]string{
			"caller":  env.owner,
			"account": user,
		})}}
		recorder := httptest.NewRecorder()
		env.server.handleLoyaltyMint(recorder, env.newRequest(), req)
		result, rpcErr := decodeRPCResponse(t, recorder)
		var payload map[string]string
		if rpcErr == nil {
			if err := json.Unmarshal(result, &payload); err != nil {
				t.Fatalf("decode result: %v", err)
			}
		}
		return recorder, rpcErr, payload
	}

	_, rpcErr, payload := mint()
	if rpcErr != nil {
		t.Fatalf("first mint failed: %+v", rpcErr)
	}
	if len(payload["tokenId"]) != 66 {
		t.Fatalf("unexpected token id %q", payload["tokenId"])
	}

	recorder, rpcErr, _ := mint()
	if rpcErr == nil || rpcErr.Code != codeDuplicateToken {
		t.Fatalf("expected duplicate token error, got %+v", rpcErr)
	}
	if recorder.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", recorder.Code)
	}
}

func TestHandleMintNonOwner(t *testing.T) {
	env := newTestEnv(t)
	outsider := newAccountAddress(t)

	req := &RPCRequest{ID: 1, Params: []json.RawMessage{marshalParam(t, map[string]string{
		"caller":  outsider,
		"account": outsider,
	})}}
	recorder := httptest.NewRecorder()
	env.server.handleLoyaltyMint(recorder, env.newRequest(), req)

	_, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr == nil || rpcErr.Code != codeUnauthorized {
		t.Fatalf("expected unauthorized error, got %+v", rpcErr)
	}
}

func TestHandleGetPointsDefaultsToZero(t *testing.T) {
	env := newTestEnv(t)
	user := newAccountAddress(t)

	req := &RPCRequest{ID: 1, Params: []json.RawMessage{marshalParam(t, map[string]string{
		"account": user,
	})}}
	recorder := httptest.NewRecorder()
	env.server.handleLoyaltyGetPoints(recorder, req)

	result, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr != nil {
		t.Fatalf("unexpected rpc error: %+v", rpcErr)
	}
	var payload map[string]string
	if err := json.Unmarshal(result, &payload); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if payload["balance"] != "0" {
		t.Fatalf("unexpected balance %q", payload["balance"])
	}
}

func TestHandleGetOwner(t *testing.T) {
	env := newTestEnv(t)

	req := &RPCRequest{ID: 1}
	recorder := httptest.NewRecorder()
	env.server.handleLoyaltyGetOwner(recorder, req)

	result, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr != nil {
		t.Fatalf("unexpected rpc error: %+v", rpcErr)
	}
	var owner string
	if err := json.Unmarshal(result, &owner); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if owner != env.owner {
		t.Fatalf("unexpected owner %q, want %q", owner, env.owner)
	}
}

func TestHandleSetAuthorizedCallerThenCredit(t *testing.T) {
	env := newTestEnv(t)
	delegate := newAccountAddress(t)
	user := newAccountAddress(t)

	grantReq := &RPCRequest{ID: 1, Params: []json.RawMessage{marshalParam(t, map[string]interface{}{
		"caller":  env.owner,
		"account": delegate,
		"status":  true,
	})}}
	recorder := httptest.NewRecorder()
	env.server.handleLoyaltySetAuthorizedCaller(recorder, env.newRequest(), grantReq)
	if _, rpcErr := decodeRPCResponse(t, recorder); rpcErr != nil {
		t.Fatalf("grant failed: %+v", rpcErr)
	}

	creditReq := &RPCRequest{ID: 2, Params: []json.RawMessage{marshalParam(t, map[string]string{
		"caller":  delegate,
		"account": user,
		"points":  "42",
	})}}
	recorder = httptest.NewRecorder()
	env.server.handleLoyaltyUpdatePoints(recorder, env.newRequest(), creditReq)
	if _, rpcErr := decodeRPCResponse(t, recorder); rpcErr != nil {
		t.Fatalf("credit by delegate failed: %+v", rpcErr)
	}
}

func TestHandleRewardActionAndEventLog(t *testing.T) {
	env := newTestEnv(t)
	user := newAccountAddress(t)

	creditReq := &RPCRequest{ID: 1, Params: []json.RawMessage{marshalParam(t, map[string]string{
		"caller":  env.owner,
		"account": user,
		"points":  "1000",
	})}}
	recorder := httptest.NewRecorder()
	env.server.handleLoyaltyUpdatePoints(recorder, env.newRequest(), creditReq)
	if _, rpcErr := decodeRPCResponse(t, recorder); rpcErr != nil {
		t.Fatalf("credit failed: %+v", rpcErr)
	}

	rewardReq := &RPCRequest{ID: 2, Params: []json.RawMessage{marshalParam(t, map[string]string{
		"caller":  env.owner,
		"account": user,
	})}}
	recorder = httptest.NewRecorder()
	env.server.handleLoyaltyRewardAction(recorder, env.newRequest(), rewardReq)
	if _, rpcErr := decodeRPCResponse(t, recorder); rpcErr != nil {
		t.Fatalf("reward action failed: %+v", rpcErr)
	}

	listReq := &RPCRequest{ID: 3}
	recorder = httptest.NewRecorder()
	env.server.handleLoyaltyListEvents(recorder, listReq)
	result, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr != nil {
		t.Fatalf("list events failed: %+v", rpcErr)
	}
	var entries []struct {
		Type       string            `json:"type"`
		Attributes map[string]string `json:"attributes"`
	}
	if err := json.Unmarshal(result, &entries); err != nil {
		t.Fatalf("decode entries: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected two events, got %d", len(entries))
	}
	if entries[1].Attributes["message"] != loyalty.RewardGrantedMessage {
		t.Fatalf("unexpected reward message %q", entries[1].Attributes["message"])
	}
}

func TestHandleNFTOwnerOfRoundtrip(t *testing.T) {
	env := newTestEnv(t)
	user := newAccountAddress(t)

	mintReq := &RPCRequest{ID: 1, Params: []json.RawMessage{marshalParam(t, map[string]string{
		"caller":  env.owner,
		"account": user,
	})}}
	recorder := httptest.NewRecorder()
	env.server.handleLoyaltyMint(recorder, env.newRequest(), mintReq)
	result, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr != nil {
		t.Fatalf("mint failed: %+v", rpcErr)
	}
	var minted map[string]string
	if err := json.Unmarshal(result, &minted); err != nil {
		t.Fatalf("decode mint result: %v", err)
	}

	ownerReq := &RPCRequest{ID: 2, Params: []json.RawMessage{marshalParam(t, map[string]string{
		"tokenId": minted["tokenId"],
	})}}
	recorder = httptest.NewRecorder()
	env.server.handleNFTOwnerOf(recorder, ownerReq)
	result, rpcErr = decodeRPCResponse(t, recorder)
	if rpcErr != nil {
		t.Fatalf("ownerOf failed: %+v", rpcErr)
	}
	var token tokenResult
	if err := json.Unmarshal(result, &token); err != nil {
		t.Fatalf("decode token result: %v", err)
	}
	if token.Owner != user {
		t.Fatalf("unexpected token owner %q, want %q", token.Owner, user)
	}
}

func TestHandleUnknownMethod(t *testing.T) {
	env := newTestEnv(t)
	body := `{"jsonrpc":"2.0","id":1,"method":"loyalty_unknown","params":[]}`
	recorder := httptest.NewRecorder()
	httpReq := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	env.server.handle(recorder, httpReq)

	_, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr == nil || rpcErr.Code != codeMethodNotFound {
		t.Fatalf("expected method not found, got %+v", rpcErr)
	}
}

func TestHandleRejectsEmptyBody(t *testing.T) {
	env := newTestEnv(t)
	recorder := httptest.NewRecorder()
	httpReq := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("  "))
	env.server.handle(recorder, httpReq)

	_, rpcErr := decodeRPCResponse(t, recorder)
	if rpcErr == nil || rpcErr.Code != codeInvalidRequest {
		t.Fatalf("expected invalid request, got %+v", rpcErr)
	}
}
