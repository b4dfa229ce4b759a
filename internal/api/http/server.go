// Package httpapi exposes the offer and transaction engines over HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	appOffer "github.com/creditojus/creditojus/internal/application/offer"
	appTransaction "github.com/creditojus/creditojus/internal/application/transaction"
	"github.com/creditojus/creditojus/internal/apperr"
	"github.com/creditojus/creditojus/internal/infrastructure/filestore"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	offerSvc       *appOffer.Service
	transactionSvc *appTransaction.Service
	verifier       TokenVerifier
	files          *filestore.Store
	logger         zerolog.Logger
}

func NewServer(
	offerSvc *appOffer.Service,
	transactionSvc *appTransaction.Service,
	verifier TokenVerifier,
	files *filestore.Store,
	logger zerolog.Logger,
) *Server {
	return &Server{
		offerSvc:       offerSvc,
		transactionSvc: transactionSvc,
		verifier:       verifier,
		files:          files,
		logger:         logger.With().Str("component", "http").Logger(),
	}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(s.tracingMiddleware)
	r.Use(metricsMiddleware)

	r.Get("/health", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Route("/ofertas", func(r chi.Router) {
			r.Post("/", s.createOffer)
			r.Get("/recebidas", s.listReceivedOffers)
			r.Get("/enviadas", s.listSentOffers)
			r.Get("/{offerId}", s.getOffer)
			r.Post("/{offerId}/aceitar", s.acceptOffer)
			r.Post("/{offerId}/rejeitar", s.rejectOffer)
			r.Post("/{offerId}/cancelar", s.cancelOffer)
			r.Post("/{offerId}/contraproposta", s.counterOffer)
			r.Post("/{offerId}/responder-contraproposta", s.respondToCounter)
		})

		r.Route("/transacoes", func(r chi.Router) {
			r.Post("/", s.startTransaction)
			r.Get("/", s.listTransactions)
			r.Get("/{transactionId}", s.getTransaction)
			r.Post("/{transactionId}/contrato", s.submitContract)
			r.Post("/{transactionId}/pagamento", s.registerPayment)
			r.Post("/{transactionId}/confirmar", s.confirmReceipt)
			r.Post("/{transactionId}/cancelar", s.cancelTransaction)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

// Helpers

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error": message,
	})
}

func statusForKind(k apperr.Kind) int {
	switch k {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindInvalidState, apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		s.logger.Error().Err(err).Msg("request failed")
	}
	respondError(w, statusForKind(kind), apperr.MessageOf(err))
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseLimitOffset(r *http.Request, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	offset := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil {
			limit = l
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil {
			offset = o
		}
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
