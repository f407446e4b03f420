package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/dreamware/catalogd/internal/api"
	"github.com/dreamware/catalogd/internal/auth"
	"github.com/dreamware/catalogd/internal/catalog"
	"github.com/dreamware/catalogd/internal/coordinator"
	"github.com/dreamware/catalogd/internal/service"
	"github.com/dreamware/catalogd/internal/shardmap"
	"github.com/dreamware/catalogd/internal/storage"
)

type server struct {
	log      *zap.Logger
	svc      *service.Service
	registry *coordinator.ShardRegistry
	provider *auth.StaticProvider
}

func newServer(log *zap.Logger, svc *service.Service, registry *coordinator.ShardRegistry, provider *auth.StaticProvider) *server {
	return &server{
		log:      log,
		svc:      svc,
		registry: registry,
		provider: provider,
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/session", s.handleSession)
	mux.HandleFunc("/products", s.handleProducts)
	mux.HandleFunc("/products/", s.handleProduct)
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/shards", s.handleShards)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

// handleSession signs the server session in or out. Subscriptions for
// all shards start on sign-in and are torn down together on sign-out.
func (s *server) handleSession(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req api.SignInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.CallerID == "" || req.Role == "" {
			http.Error(w, "missing caller_id/role", http.StatusBadRequest)
			return
		}
		s.provider.Set(auth.Identity{CallerID: req.CallerID, Label: req.Label, Role: req.Role})
	case http.MethodDelete:
		s.provider.SignOut()
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := s.svc.RefreshIdentity(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleProducts serves the aggregated view and creates records.
func (s *server) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		view, _ := s.svc.Snapshot()
		writeJSON(w, api.ViewResponse{
			Products: view.Products,
			Filtered: view.Filtered,
			Term:     s.svc.SearchTerm(),
		})
	case http.MethodPost:
		var req api.CreateProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		p, err := s.svc.AddProduct(r.Context(), req.Product)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSONStatus(w, http.StatusCreated, api.ProductResponse{Product: p})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleProduct routes point operations: /products/{id},
// /products/{id}/owner and /products/{id}/shard.
func (s *server) handleProduct(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/products/")
	id, sub, _ := strings.Cut(rest, "/")
	if id == "" {
		http.Error(w, "product id required", http.StatusBadRequest)
		return
	}

	switch {
	case sub == "owner" && r.Method == http.MethodPost:
		var req api.ReassignOwnerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		newOwner := catalog.Caller{ID: req.OwnerID, Label: req.OwnerLabel}
		if err := s.svc.ReassignOwner(r.Context(), id, req.ShardID, newOwner); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case sub == "shard" && r.Method == http.MethodGet:
		shardID, err := s.svc.ResolveShard(r.Context(), id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, struct {
			ShardID string `json:"shard_id"`
		}{ShardID: shardID})

	case sub == "" && r.Method == http.MethodPatch:
		var req api.UpdateProductRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := s.svc.UpdateProduct(r.Context(), id, req.ShardID, req.Patch); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case sub == "" && r.Method == http.MethodDelete:
		shardID := r.URL.Query().Get("shard")
		if shardID == "" {
			http.Error(w, "shard query parameter required", http.StatusBadRequest)
			return
		}
		if err := s.svc.DeleteProduct(r.Context(), id, shardID); err != nil {
			s.writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleSearch sets the search term; the refiltered view arrives on
// the aggregate stream and is visible on the next GET /products.
func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Term string `json:"term"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json", http.StatusBadRequest)
		return
	}
	s.svc.Search(req.Term)
	w.WriteHeader(http.StatusNoContent)
}

// handleShards returns shard metadata for monitoring.
func (s *server) handleShards(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, struct {
		Shards any `json:"shards"`
	}{Shards: s.registry.Infos()})
}

// writeError maps the error taxonomy onto HTTP status codes and always
// includes the kind in the body.
func (s *server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case catalog.ErrUnauthorized.Has(err):
		status = http.StatusForbidden
	case catalog.ErrDuplicateCode.Has(err):
		status = http.StatusConflict
	case catalog.ErrShardUnavailable.Has(err):
		status = http.StatusServiceUnavailable
	case catalog.ErrInvalidProduct.Has(err):
		status = http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, shardmap.ErrNotFound):
		status = http.StatusNotFound
	case catalog.ErrPartialCommit.Has(err):
		// Data write landed; map write didn't. Still an error for the caller.
		status = http.StatusInternalServerError
	}

	s.log.Warn("request failed", zap.Int("status", status), zap.Error(err))
	writeJSONStatus(w, status, api.ErrorResponse{Kind: api.ErrorKind(err), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
