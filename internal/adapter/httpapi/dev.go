package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/example/nft-listing-service/internal/adapter/events"
	"github.com/example/nft-listing-service/internal/adapter/ledger"
	"github.com/example/nft-listing-service/internal/adapter/registry"
	"github.com/example/nft-listing-service/internal/domain"
)

type devHandlers struct {
	registry *registry.MemoryRegistry
	ledger   *ledger.MemoryLedger
}

type assetRequest struct {
	CollectionID string           `json:"collection_id"`
	TokenID      string           `json:"token_id"`
	Owner        domain.AccountID `json:"owner"`
}

type approvalRequest struct {
	CollectionID string           `json:"collection_id"`
	TokenID      string           `json:"token_id"`
	Owner        domain.AccountID `json:"owner"`
	Operator     domain.AccountID `json:"operator"`
	// All включает оператора на все токены владельца; CollectionID/TokenID тогда не нужны.
	All bool `json:"all"`
}

type balanceRequest struct {
	Account domain.AccountID `json:"account"`
	Amount  uint64           `json:"amount"`
}

func (d devHandlers) handleSetOwner(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Owner == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	key := domain.AssetKey{CollectionID: req.CollectionID, TokenID: req.TokenID}
	if key.Validate() != nil {
		http.Error(w, "invalid asset", http.StatusBadRequest)
		return
	}
	d.registry.SetOwner(key, req.Owner)
	w.WriteHeader(http.StatusNoContent)
}

func (d devHandlers) handleApprove(w http.ResponseWriter, r *http.Request) {
	var req approvalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Owner == "" || req.Operator == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if req.All {
		d.registry.SetApprovalForAll(req.Owner, req.Operator, true)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	key := domain.AssetKey{CollectionID: req.CollectionID, TokenID: req.TokenID}
	if err := d.registry.Approve(req.Owner, key, req.Operator); err != nil {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (d devHandlers) handleCredit(w http.ResponseWriter, r *http.Request) {
	var req balanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Account == "" {
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if err := d.ledger.Credit(req.Account, req.Amount); err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	writeJSON(w, http.StatusOK, map[string]uint64{"balance": d.ledger.BalanceOf(req.Account)})
}

type devEvents struct {
	recorder *events.Recorder
}

func (d devEvents) handleSince(w http.ResponseWriter, r *http.Request) {
	var since uint64
	if raw := r.URL.Query().Get("since"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "invalid since", http.StatusBadRequest)
			return
		}
		since = v
	}
	out := d.recorder.Since(since)
	if out == nil {
		out = []domain.Event{}
	}
	writeJSON(w, http.StatusOK, out)
}
