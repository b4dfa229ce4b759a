package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	appOffer "github.com/creditojus/creditojus/internal/application/offer"
	"github.com/creditojus/creditojus/internal/domain/offer"
	"github.com/creditojus/creditojus/internal/infrastructure/metrics"
)

type offerCreateRequest struct {
	ProcessID    uuid.UUID  `json:"processId"`
	AmountCents  int64      `json:"amountCents"`
	Message      string     `json:"message,omitempty"`
	SpecialTerms string     `json:"specialTerms,omitempty"`
	ValidUntil   *time.Time `json:"validUntil,omitempty"`
}

type offerNoteRequest struct {
	Note string `json:"note,omitempty"`
}

type offerReasonRequest struct {
	Reason string `json:"reason,omitempty"`
}

type counterOfferRequest struct {
	AmountCents  int64      `json:"amountCents"`
	Message      string     `json:"message,omitempty"`
	SpecialTerms string     `json:"specialTerms,omitempty"`
	ValidUntil   *time.Time `json:"validUntil,omitempty"`
}

type respondCounterRequest struct {
	Acao         string `json:"acao"`
	AmountCents  int64  `json:"amountCents,omitempty"`
	Message      string `json:"message,omitempty"`
	SpecialTerms string `json:"specialTerms,omitempty"`
}

func (s *Server) createOffer(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	var req offerCreateRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in := appOffer.CreateInput{
		ProcessID:    req.ProcessID,
		AmountCents:  req.AmountCents,
		Message:      req.Message,
		SpecialTerms: req.SpecialTerms,
	}
	if req.ValidUntil != nil {
		in.ValidUntil = *req.ValidUntil
	}
	o, err := s.offerSvc.Create(r.Context(), p, in)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	metrics.OffersCreated.Inc()
	respondJSON(w, http.StatusCreated, map[string]any{
		"offer":   o,
		"message": "offer created successfully",
	})
}

func (s *Server) offerFilterFromQuery(r *http.Request) (offer.Filter, error) {
	var filter offer.Filter
	if v := r.URL.Query().Get("status"); v != "" {
		status := offer.Status(v)
		filter.Status = &status
	}
	if v := r.URL.Query().Get("processId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return filter, err
		}
		filter.ProcessID = &id
	}
	return filter, nil
}

func (s *Server) listReceivedOffers(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	filter, err := s.offerFilterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid processId filter")
		return
	}
	limit, offset := parseLimitOffset(r, 20, 100)
	offers, err := s.offerSvc.ListReceived(r.Context(), p, filter, limit, offset)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	if offers == nil {
		offers = []*offer.Offer{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"offers": offers})
}

func (s *Server) listSentOffers(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	filter, err := s.offerFilterFromQuery(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid processId filter")
		return
	}
	limit, offset := parseLimitOffset(r, 20, 100)
	offers, err := s.offerSvc.ListSent(r.Context(), p, filter, limit, offset)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	if offers == nil {
		offers = []*offer.Offer{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"offers": offers})
}

func (s *Server) getOffer(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	offerID, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid offer id")
		return
	}
	o, err := s.offerSvc.Get(r.Context(), p, offerID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"offer": o})
}

func (s *Server) acceptOffer(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	offerID, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid offer id")
		return
	}
	var req offerNoteRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	o, err := s.offerSvc.Accept(r.Context(), p, offerID, req.Note)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	metrics.OffersAccepted.Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"offer":   o,
		"message": "offer accepted successfully",
	})
}

func (s *Server) rejectOffer(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	offerID, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid offer id")
		return
	}
	var req offerReasonRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	o, err := s.offerSvc.Reject(r.Context(), p, offerID, req.Reason)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"offer":   o,
		"message": "offer rejected",
	})
}

func (s *Server) cancelOffer(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	offerID, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid offer id")
		return
	}
	var req offerReasonRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	o, err := s.offerSvc.Cancel(r.Context(), p, offerID, req.Reason)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"offer":   o,
		"message": "offer cancelled",
	})
}

func (s *Server) counterOffer(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	offerID, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid offer id")
		return
	}
	var req counterOfferRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	in := appOffer.CounterInput{
		AmountCents:  req.AmountCents,
		Message:      req.Message,
		SpecialTerms: req.SpecialTerms,
	}
	if req.ValidUntil != nil {
		in.ValidUntil = *req.ValidUntil
	}
	o, err := s.offerSvc.CounterOffer(r.Context(), p, offerID, in)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"offer":   o,
		"message": "counter-offer sent",
	})
}

func (s *Server) respondToCounter(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	offerID, err := parseUUIDParam(r, "offerId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid offer id")
		return
	}
	var req respondCounterRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	o, err := s.offerSvc.RespondToCounter(r.Context(), p, offerID, appOffer.CounterAction(req.Acao), appOffer.CounterInput{
		AmountCents:  req.AmountCents,
		Message:      req.Message,
		SpecialTerms: req.SpecialTerms,
	})
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"offer":   o,
		"message": "counter-offer answered",
	})
}
