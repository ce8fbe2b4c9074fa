package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/example/nft-listing-service/internal/adapter/events"
	"github.com/example/nft-listing-service/internal/adapter/ledger"
	"github.com/example/nft-listing-service/internal/adapter/registry"
	"github.com/example/nft-listing-service/internal/domain"
	"github.com/example/nft-listing-service/internal/usecase"
)

// AccountHeader несёт идентичность вызывающего; аутентификация: забота шлюза перед сервисом.
const AccountHeader = "X-Account-ID"

type Server struct {
	Router *mux.Router
	Market *usecase.Market
	UCGet  usecase.GetListing
	Logger zerolog.Logger
}

type Option func(*Server)

// WithMetricsHandler публикует /metrics.
func WithMetricsHandler() Option {
	return func(s *Server) {
		s.Router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	}
}

// WithDevSeeding включает ручки наполнения in-memory реестра и леджера.
func WithDevSeeding(reg *registry.MemoryRegistry, led *ledger.MemoryLedger) Option {
	return func(s *Server) {
		d := devHandlers{registry: reg, ledger: led}
		api := s.Router.PathPrefix("/api/dev").Subrouter()
		api.HandleFunc("/assets", d.handleSetOwner).Methods(http.MethodPost)
		api.HandleFunc("/approvals", d.handleApprove).Methods(http.MethodPost)
		api.HandleFunc("/balances", d.handleCredit).Methods(http.MethodPost)
	}
}

// WithDevEvents отдаёт журнал уведомлений движка: GET /api/dev/events?since=N.
func WithDevEvents(rec *events.Recorder) Option {
	return func(s *Server) {
		s.Router.HandleFunc("/api/dev/events", devEvents{recorder: rec}.handleSince).Methods(http.MethodGet)
	}
}

func NewServer(m *usecase.Market, uc usecase.GetListing, logger zerolog.Logger, opts ...Option) *Server {
	s := &Server{Router: mux.NewRouter(), Market: m, UCGet: uc, Logger: logger}
	s.Router.HandleFunc("/api/listings", s.handleList).Methods(http.MethodGet)
	s.Router.HandleFunc("/api/listings/{collection}/{token}", s.handleGet).Methods(http.MethodGet)
	s.Router.HandleFunc("/api/listings/{collection}/{token}/listed", s.handleCheck).Methods(http.MethodGet)
	s.Router.HandleFunc("/api/listings/{collection}/{token}", s.handleListItem).Methods(http.MethodPost)
	s.Router.HandleFunc("/api/listings/{collection}/{token}", s.handleUpdate).Methods(http.MethodPut)
	s.Router.HandleFunc("/api/listings/{collection}/{token}", s.handleCancel).Methods(http.MethodDelete)
	s.Router.HandleFunc("/api/listings/{collection}/{token}/purchase", s.handlePurchase).Methods(http.MethodPost)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type listingResponse struct {
	CollectionID string           `json:"collection_id"`
	TokenID      string           `json:"token_id"`
	Seller       domain.AccountID `json:"seller"`
	Price        uint64           `json:"price"`
}

type errorResponse struct {
	Error        string `json:"error"`
	Code         string `json:"code,omitempty"`
	CollectionID string `json:"collection_id,omitempty"`
	TokenID      string `json:"token_id,omitempty"`
}

type priceRequest struct {
	Price *uint64 `json:"price"`
}

type purchaseRequest struct {
	Payment *uint64 `json:"payment"`
}

func assetKey(r *http.Request) domain.AssetKey {
	v := mux.Vars(r)
	return domain.AssetKey{CollectionID: v["collection"], TokenID: v["token"]}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) caller(w http.ResponseWriter, r *http.Request) (domain.AccountID, bool) {
	acct := r.Header.Get(AccountHeader)
	if acct == "" {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "missing " + AccountHeader})
		return "", false
	}
	return domain.AccountID(acct), true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotListed):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotOwner), errors.Is(err, domain.ErrNotSeller), errors.Is(err, domain.ErrNotApproved):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrAlreadyListed), errors.Is(err, domain.ErrReentrant):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientPayment), errors.Is(err, domain.ErrInvalidPrice):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrCollaboratorFailure):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, key domain.AssetKey, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error(), Code: domain.Code(err), CollectionID: key.CollectionID, TokenID: key.TokenID}
	if status == http.StatusInternalServerError {
		s.Logger.Error().Err(err).Msg("request failed")
		resp.Error = "internal error"
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items := s.Market.Listings(domain.ListingFilter{
		Seller:       domain.AccountID(q.Get("seller")),
		CollectionID: q.Get("collection"),
	})
	out := make([]listingResponse, 0, len(items))
	for _, it := range items {
		out = append(out, listingResponse{CollectionID: it.CollectionID, TokenID: it.TokenID, Seller: it.Seller, Price: it.Price})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	key := assetKey(r)
	l, ok := s.UCGet.Execute(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not listed", Code: domain.Code(domain.ErrNotListed),
			CollectionID: key.CollectionID, TokenID: key.TokenID})
		return
	}
	writeJSON(w, http.StatusOK, listingResponse{CollectionID: key.CollectionID, TokenID: key.TokenID, Seller: l.Seller, Price: l.Price})
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"listed": s.Market.CheckListed(assetKey(r))})
}

func (s *Server) decodePrice(w http.ResponseWriter, r *http.Request, key domain.AssetKey) (uint64, bool) {
	var req priceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Price == nil {
		s.writeError(w, key, domain.ErrValidation)
		return 0, false
	}
	return *req.Price, true
}

func (s *Server) handleListItem(w http.ResponseWriter, r *http.Request) {
	key := assetKey(r)
	acct, ok := s.caller(w, r)
	if !ok {
		return
	}
	price, ok := s.decodePrice(w, r, key)
	if !ok {
		return
	}
	if err := s.Market.ListItem(r.Context(), acct, key, price); err != nil {
		s.writeError(w, key, err)
		return
	}
	writeJSON(w, http.StatusCreated, listingResponse{CollectionID: key.CollectionID, TokenID: key.TokenID, Seller: acct, Price: price})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	key := assetKey(r)
	acct, ok := s.caller(w, r)
	if !ok {
		return
	}
	price, ok := s.decodePrice(w, r, key)
	if !ok {
		return
	}
	if err := s.Market.UpdateListing(r.Context(), acct, key, price); err != nil {
		s.writeError(w, key, err)
		return
	}
	writeJSON(w, http.StatusOK, listingResponse{CollectionID: key.CollectionID, TokenID: key.TokenID, Seller: acct, Price: price})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	key := assetKey(r)
	acct, ok := s.caller(w, r)
	if !ok {
		return
	}
	if err := s.Market.CancelListing(r.Context(), acct, key); err != nil {
		s.writeError(w, key, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePurchase(w http.ResponseWriter, r *http.Request) {
	key := assetKey(r)
	acct, ok := s.caller(w, r)
	if !ok {
		return
	}
	var req purchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Payment == nil {
		s.writeError(w, key, domain.ErrValidation)
		return
	}
	if err := s.Market.Purchase(r.Context(), acct, key, *req.Payment); err != nil {
		s.writeError(w, key, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"collection_id": key.CollectionID,
		"token_id":      key.TokenID,
		"buyer":         acct,
	})
}
