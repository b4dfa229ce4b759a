package httpapi

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/creditojus/creditojus/internal/domain/transaction"
	"github.com/creditojus/creditojus/internal/infrastructure/filestore"
	"github.com/creditojus/creditojus/internal/infrastructure/metrics"
)

const (
	maxContractDocuments = 5
	maxUploadBytes       = 32 << 20
)

type startTransactionRequest struct {
	OfferID uuid.UUID `json:"offerId"`
}

type registerPaymentRequest struct {
	Proof string `json:"proof"`
	Note  string `json:"note,omitempty"`
}

type confirmReceiptRequest struct {
	Note string `json:"note,omitempty"`
}

type cancelTransactionRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) startTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	var req startTransactionRequest
	if err := decodeBody(r, &req); err != nil || req.OfferID == uuid.Nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := s.transactionSvc.Start(r.Context(), p, req.OfferID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	metrics.TransactionsStarted.Inc()
	respondJSON(w, http.StatusCreated, map[string]any{
		"transaction": t,
		"message":     "transaction started successfully",
	})
}

func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	var status *transaction.Status
	if v := r.URL.Query().Get("status"); v != "" {
		st := transaction.Status(v)
		status = &st
	}
	limit, offset := parseLimitOffset(r, 20, 100)
	list, err := s.transactionSvc.List(r.Context(), p, status, limit, offset)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	if list == nil {
		list = []*transaction.Transaction{}
	}
	respondJSON(w, http.StatusOK, map[string]any{"transactions": list})
}

func (s *Server) getTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	transactionID, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	t, err := s.transactionSvc.Get(r.Context(), p, transactionID)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"transaction": t})
}

func (s *Server) submitContract(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	transactionID, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	headers := r.MultipartForm.File["documentos"]
	if len(headers) == 0 {
		respondError(w, http.StatusBadRequest, "at least one document is required")
		return
	}
	if len(headers) > maxContractDocuments {
		respondError(w, http.StatusBadRequest, "too many documents")
		return
	}

	var docs []transaction.Document
	var saved []filestore.File
	discard := func() {
		for _, f := range saved {
			if err := s.files.Delete(f.Path); err != nil {
				s.logger.Warn().Err(err).Str("path", f.Path).Msg("failed to discard upload")
			}
		}
	}
	for _, fh := range headers {
		src, err := fh.Open()
		if err != nil {
			discard()
			respondError(w, http.StatusBadRequest, "unreadable document")
			return
		}
		stored, err := s.files.Save(filestore.KindTransactions, fh.Filename, fh.Header.Get("Content-Type"), src)
		src.Close()
		if err != nil {
			discard()
			s.logger.Error().Err(err).Msg("failed to store document")
			respondError(w, http.StatusInternalServerError, "failed to store document")
			return
		}
		saved = append(saved, stored)
		docs = append(docs, transaction.Document{
			Name:     stored.Name,
			MimeType: stored.MimeType,
			Path:     stored.Path,
			Size:     stored.Size,
		})
	}

	t, err := s.transactionSvc.SubmitContract(r.Context(), p, transactionID, docs)
	if err != nil {
		discard()
		s.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transaction": t,
		"message":     "contract documents submitted",
	})
}

func (s *Server) registerPayment(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	transactionID, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	var req registerPaymentRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := s.transactionSvc.RegisterPayment(r.Context(), p, transactionID, req.Proof, req.Note)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"transaction": t,
		"message":     "payment registered",
	})
}

func (s *Server) confirmReceipt(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	transactionID, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	var req confirmReceiptRequest
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	t, err := s.transactionSvc.ConfirmReceipt(r.Context(), p, transactionID, req.Note)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	metrics.TransactionsCompleted.Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"transaction": t,
		"message":     "transaction completed",
	})
}

func (s *Server) cancelTransaction(w http.ResponseWriter, r *http.Request) {
	p, ok := principalFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing auth")
		return
	}
	transactionID, err := parseUUIDParam(r, "transactionId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}
	var req cancelTransactionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := s.transactionSvc.Cancel(r.Context(), p, transactionID, req.Reason)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	metrics.TransactionsCancelled.Inc()
	respondJSON(w, http.StatusOK, map[string]any{
		"transaction": t,
		"message":     "transaction cancelled",
	})
}
