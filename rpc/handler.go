package rpc

import (
	"encoding/json"
	"fmt"

	"github.com/euphoria-gg/betledger/core"
	"github.com/euphoria-gg/betledger/engine"
	"github.com/euphoria-gg/betledger/indexer"
)

// Handler holds all dependencies needed to serve RPC methods.
type Handler struct {
	engine  *engine.Engine
	indexer *indexer.Indexer
}

// NewHandler creates an RPC Handler. idx may be nil if bet indexing is
// disabled; the bet query methods then return an error.
func NewHandler(eng *engine.Engine, idx *indexer.Indexer) *Handler {
	return &Handler{engine: eng, indexer: idx}
}

// Dispatch routes an RPC request to the correct method.
func (h *Handler) Dispatch(req Request) Response {
	switch req.Method {
	case "sendCall":
		return h.sendCall(req)

	case "getMatchData":
		return h.getMatchData(req)

	case "getBalance":
		return h.getBalance(req)

	case "getCommissionBalance":
		return h.getCommissionBalance(req)

	case "getMerkleRoot":
		return h.getMerkleRoot(req)

	case "hashBet":
		return h.hashBet(req)

	case "isPaused":
		return h.isPaused(req)

	case "getNonce":
		return h.getNonce(req)

	case "getBetsByBettor":
		return h.getBetsByBettor(req)

	case "getBet":
		return h.getBet(req)

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method))
	}
}

// sendCall submits a signed call for execution. The call's ID is recomputed
// server-side, so a client cannot spoof it.
func (h *Handler) sendCall(req Request) Response {
	var call core.Call
	if err := json.Unmarshal(req.Params, &call); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	call.ID = call.Hash()
	if err := h.engine.Execute(&call); err != nil {
		return errResponse(req.ID, CodeCallFailed, err.Error())
	}
	return okResponse(req.ID, map[string]any{"call_id": call.ID})
}

func (h *Handler) getMatchData(req Request) Response {
	var params struct {
		TypeID uint64 `json:"type_id"`
		ID     uint64 `json:"id"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	m, err := h.engine.MatchData(params.TypeID, params.ID)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, m)
}

func (h *Handler) getBalance(req Request) Response {
	var params struct {
		Account string `json:"account"`
		Token   string `json:"token"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Account == "" || params.Token == "" {
		return errResponse(req.ID, CodeInvalidParams, "account and token are required")
	}
	bal, err := h.engine.Balance(params.Account, params.Token)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{
		"account": params.Account,
		"token":   params.Token,
		"balance": bal,
	})
}

func (h *Handler) getCommissionBalance(req Request) Response {
	var params struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Token == "" {
		return errResponse(req.ID, CodeInvalidParams, "token is required")
	}
	bal, err := h.engine.CommissionBalance(params.Token)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"token": params.Token, "balance": bal})
}

func (h *Handler) getMerkleRoot(req Request) Response {
	root, err := h.engine.MerkleRoot()
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"root": root})
}

// hashBet lets clients precompute a bet's identity before submitting it, and
// check it against the replay guard.
func (h *Handler) hashBet(req Request) Response {
	var params struct {
		Bet core.Bet `json:"bet"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	hash := params.Bet.Hash()
	seen, err := h.engine.BetSeen(hash)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"hash": hash, "seen": seen})
}

func (h *Handler) isPaused(req Request) Response {
	paused, err := h.engine.Paused()
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"paused": paused})
}

func (h *Handler) getNonce(req Request) Response {
	var params struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Address == "" {
		return errResponse(req.ID, CodeInvalidParams, "address is required")
	}
	nonce, err := h.engine.AccountNonce(params.Address)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"address": params.Address, "nonce": nonce})
}

func (h *Handler) getBetsByBettor(req Request) Response {
	if h.indexer == nil {
		return errResponse(req.ID, CodeInternalError, "bet index disabled")
	}
	var params struct {
		Bettor string `json:"bettor"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Bettor == "" {
		return errResponse(req.ID, CodeInvalidParams, "bettor is required")
	}
	hashes, err := h.indexer.GetBetsByBettor(params.Bettor)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, map[string]any{"bettor": params.Bettor, "bets": hashes})
}

func (h *Handler) getBet(req Request) Response {
	if h.indexer == nil {
		return errResponse(req.ID, CodeInternalError, "bet index disabled")
	}
	var params struct {
		Hash string `json:"hash"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	}
	if params.Hash == "" {
		return errResponse(req.ID, CodeInvalidParams, "hash is required")
	}
	bet, err := h.indexer.GetBet(params.Hash)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, err.Error())
	}
	return okResponse(req.ID, bet)
}
