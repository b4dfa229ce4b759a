// Package transaction implements the settlement lifecycle engine:
// converting an accepted offer into a transaction and driving it through
// contract, payment and completion, cascading status onto the
// originating offer and process.
package transaction

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/creditojus/creditojus/internal/apperr"
	"github.com/creditojus/creditojus/internal/domain/event"
	"github.com/creditojus/creditojus/internal/domain/offer"
	"github.com/creditojus/creditojus/internal/domain/transaction"
	"github.com/creditojus/creditojus/internal/domain/user"
	"github.com/creditojus/creditojus/internal/store"
)

// Service is the transaction lifecycle engine.
type Service struct {
	store  store.Store
	events event.Publisher
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a transaction service.
func NewService(st store.Store, events event.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		events: events,
		logger: logger.With().Str("service", "transaction").Logger(),
		now:    time.Now,
	}
}

func (s *Service) publish(ctx context.Context, ev event.Event) {
	ev.OccurredAt = s.now()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("failed to publish event")
	}
}

func getTransaction(ctx context.Context, st store.Store, transactionID uuid.UUID) (*transaction.Transaction, error) {
	t, err := st.Transactions().GetByID(ctx, transactionID)
	if err != nil {
		return nil, apperr.Internal("load transaction", err)
	}
	if t == nil {
		return nil, apperr.NotFound("transaction not found")
	}
	return t, nil
}

// counterparty is the user notified about an action: the other side of
// the transaction from the acting principal.
func counterparty(t *transaction.Transaction, actor uuid.UUID) uuid.UUID {
	if actor == t.SellerID {
		return t.BuyerID
	}
	return t.SellerID
}

// Start converts an accepted offer into a transaction. The commission is
// fixed at creation. The offer and its process move to inTransaction in
// the same unit of work.
func (s *Service) Start(ctx context.Context, principal user.Principal, offerID uuid.UUID) (*transaction.Transaction, error) {
	var created *transaction.Transaction
	err := s.store.InTx(ctx, func(tx store.Store) error {
		o, err := tx.Offers().GetByID(ctx, offerID)
		if err != nil {
			return apperr.Internal("load offer", err)
		}
		if o == nil {
			return apperr.NotFound("offer not found")
		}
		if principal.UserID != o.SellerID && principal.UserID != o.BuyerID {
			return apperr.Forbidden("caller is not a party to this offer")
		}
		existing, err := tx.Transactions().GetByOfferID(ctx, offerID)
		if err != nil {
			return apperr.Internal("check existing transaction", err)
		}
		if existing != nil {
			return apperr.Conflict("a transaction already exists for this offer")
		}
		if o.Status != offer.StatusAccepted {
			return apperr.InvalidStatef("offer must be accepted to start a transaction (status %s)", o.Status)
		}

		proc, err := tx.Processes().GetForUpdate(ctx, o.ProcessID)
		if err != nil {
			return apperr.Internal("load process", err)
		}
		if proc == nil {
			return apperr.NotFound("process not found")
		}

		now := s.now()
		created = transaction.New(o.OfferID, o.ProcessID, o.SellerID, o.BuyerID, o.AmountCents, now)
		if err := tx.Transactions().Create(ctx, created); err != nil {
			return apperr.Internal("create transaction", err)
		}
		if err := o.StartTransaction(now); err != nil {
			return apperr.InvalidStatef("offer cannot enter a transaction in status %s", o.Status)
		}
		if err := proc.StartTransaction(now); err != nil {
			return apperr.InvalidStatef("process cannot enter a transaction in status %s", proc.Status)
		}
		if err := tx.Offers().Update(ctx, o); err != nil {
			return apperr.Internal("update offer", err)
		}
		if err := tx.Processes().Update(ctx, proc); err != nil {
			return apperr.Internal("update process", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("transactionId", created.TransactionID.String()).
		Str("offerId", offerID.String()).
		Int64("amountCents", created.AmountCents).
		Int64("commissionCents", created.CommissionCents).
		Msg("transaction started")
	tid := created.TransactionID
	s.publish(ctx, event.Event{
		Type:          event.TypeTransactionStarted,
		ProcessID:     created.ProcessID,
		TransactionID: &tid,
		RecipientID:   counterparty(created, principal.UserID),
		AmountCents:   created.AmountCents,
	})
	return created, nil
}

// SubmitContract appends contract documents from one party and advances
// the contract sub-state. The caller is responsible for discarding the
// stored blobs when an error is returned.
func (s *Service) SubmitContract(ctx context.Context, principal user.Principal, transactionID uuid.UUID, docs []transaction.Document) (*transaction.Transaction, error) {
	if len(docs) == 0 {
		return nil, apperr.Validation("at least one document is required")
	}
	t, err := getTransaction(ctx, s.store, transactionID)
	if err != nil {
		return nil, err
	}
	if !t.IsParty(principal.UserID) {
		return nil, apperr.Forbidden("caller is not a party to this transaction")
	}
	if err := t.SubmitDocuments(docs, t.PartyOf(principal.UserID), s.now()); err != nil {
		return nil, apperr.InvalidStatef("transaction does not accept documents in status %s", t.Status)
	}
	if err := s.store.Transactions().Update(ctx, t); err != nil {
		return nil, apperr.Internal("update transaction", err)
	}

	s.logger.Info().
		Str("transactionId", t.TransactionID.String()).
		Int("documents", len(docs)).
		Str("status", string(t.Status)).
		Msg("contract documents submitted")
	tid := t.TransactionID
	s.publish(ctx, event.Event{
		Type:          event.TypeContractSubmitted,
		ProcessID:     t.ProcessID,
		TransactionID: &tid,
		RecipientID:   counterparty(t, principal.UserID),
	})
	return t, nil
}

// RegisterPayment records the buyer's payment proof.
func (s *Service) RegisterPayment(ctx context.Context, principal user.Principal, transactionID uuid.UUID, proof, note string) (*transaction.Transaction, error) {
	if proof == "" {
		return nil, apperr.Validation("payment proof is required")
	}
	t, err := getTransaction(ctx, s.store, transactionID)
	if err != nil {
		return nil, err
	}
	if principal.UserID != t.BuyerID {
		return nil, apperr.Forbidden("only the buyer can register a payment")
	}
	if err := t.RegisterPayment(proof, note, s.now()); err != nil {
		return nil, apperr.InvalidStatef("payment cannot be registered in status %s", t.Status)
	}
	if err := s.store.Transactions().Update(ctx, t); err != nil {
		return nil, apperr.Internal("update transaction", err)
	}

	s.logger.Info().Str("transactionId", t.TransactionID.String()).Msg("payment registered")
	tid := t.TransactionID
	s.publish(ctx, event.Event{
		Type:          event.TypePaymentRegistered,
		ProcessID:     t.ProcessID,
		TransactionID: &tid,
		RecipientID:   t.SellerID,
	})
	return t, nil
}

// ConfirmReceipt records the seller confirming payment and settles the
// whole chain: the transaction completes, the offer completes, and the
// process is sold, atomically.
func (s *Service) ConfirmReceipt(ctx context.Context, principal user.Principal, transactionID uuid.UUID, note string) (*transaction.Transaction, error) {
	var completed *transaction.Transaction
	err := s.store.InTx(ctx, func(tx store.Store) error {
		t, err := getTransaction(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if principal.UserID != t.SellerID {
			return apperr.Forbidden("only the seller can confirm receipt")
		}
		now := s.now()
		if err := t.Complete(note, now); err != nil {
			return apperr.InvalidStatef("receipt cannot be confirmed in status %s", t.Status)
		}

		o, err := tx.Offers().GetByID(ctx, t.OfferID)
		if err != nil {
			return apperr.Internal("load offer", err)
		}
		if o == nil {
			return apperr.NotFound("offer not found")
		}
		if err := o.CompleteFromTransaction(now); err != nil {
			return apperr.InvalidStatef("offer cannot complete in status %s", o.Status)
		}

		proc, err := tx.Processes().GetForUpdate(ctx, t.ProcessID)
		if err != nil {
			return apperr.Internal("load process", err)
		}
		if proc == nil {
			return apperr.NotFound("process not found")
		}
		if err := proc.CompleteSale(now); err != nil {
			return apperr.InvalidStatef("process cannot be sold in status %s", proc.Status)
		}

		if err := tx.Transactions().Update(ctx, t); err != nil {
			return apperr.Internal("update transaction", err)
		}
		if err := tx.Offers().Update(ctx, o); err != nil {
			return apperr.Internal("update offer", err)
		}
		if err := tx.Processes().Update(ctx, proc); err != nil {
			return apperr.Internal("update process", err)
		}
		completed = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("transactionId", completed.TransactionID.String()).Msg("transaction completed")
	tid := completed.TransactionID
	s.publish(ctx, event.Event{
		Type:          event.TypeTransactionCompleted,
		ProcessID:     completed.ProcessID,
		TransactionID: &tid,
		RecipientID:   completed.BuyerID,
		AmountCents:   completed.AmountCents,
	})
	return completed, nil
}

// Cancel aborts the settlement: the transaction and offer are cancelled
// and the process returns to the marketplace with its accepted-offer
// reference cleared, atomically.
func (s *Service) Cancel(ctx context.Context, principal user.Principal, transactionID uuid.UUID, reason string) (*transaction.Transaction, error) {
	if reason == "" {
		return nil, apperr.Validation("cancellation reason is required")
	}
	var cancelled *transaction.Transaction
	err := s.store.InTx(ctx, func(tx store.Store) error {
		t, err := getTransaction(ctx, tx, transactionID)
		if err != nil {
			return err
		}
		if !t.IsParty(principal.UserID) {
			return apperr.Forbidden("caller is not a party to this transaction")
		}
		now := s.now()
		if err := t.Cancel(reason, t.PartyOf(principal.UserID), now); err != nil {
			return apperr.InvalidStatef("transaction cannot be cancelled in status %s", t.Status)
		}

		o, err := tx.Offers().GetByID(ctx, t.OfferID)
		if err != nil {
			return apperr.Internal("load offer", err)
		}
		if o == nil {
			return apperr.NotFound("offer not found")
		}
		if err := o.CancelFromTransaction(now); err != nil {
			return apperr.InvalidStatef("offer cannot be cancelled in status %s", o.Status)
		}

		proc, err := tx.Processes().GetForUpdate(ctx, t.ProcessID)
		if err != nil {
			return apperr.Internal("load process", err)
		}
		if proc == nil {
			return apperr.NotFound("process not found")
		}
		if err := proc.ReturnToMarket(now); err != nil {
			return apperr.InvalidStatef("process cannot return to the market in status %s", proc.Status)
		}

		if err := tx.Transactions().Update(ctx, t); err != nil {
			return apperr.Internal("update transaction", err)
		}
		if err := tx.Offers().Update(ctx, o); err != nil {
			return apperr.Internal("update offer", err)
		}
		if err := tx.Processes().Update(ctx, proc); err != nil {
			return apperr.Internal("update process", err)
		}
		cancelled = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("transactionId", cancelled.TransactionID.String()).
		Str("cancelledBy", string(cancelled.CancelledBy)).
		Msg("transaction cancelled")
	tid := cancelled.TransactionID
	s.publish(ctx, event.Event{
		Type:          event.TypeTransactionCancelled,
		ProcessID:     cancelled.ProcessID,
		TransactionID: &tid,
		RecipientID:   counterparty(cancelled, principal.UserID),
	})
	return cancelled, nil
}

// List returns the caller's transactions, newest first.
func (s *Service) List(ctx context.Context, principal user.Principal, status *transaction.Status, limit, offset int) ([]*transaction.Transaction, error) {
	list, err := s.store.Transactions().ListByParty(ctx, principal.UserID, status, limit, offset)
	if err != nil {
		return nil, apperr.Internal("list transactions", err)
	}
	return list, nil
}

// Get returns one transaction to its seller, its buyer, or an admin.
func (s *Service) Get(ctx context.Context, principal user.Principal, transactionID uuid.UUID) (*transaction.Transaction, error) {
	t, err := getTransaction(ctx, s.store, transactionID)
	if err != nil {
		return nil, err
	}
	if !t.IsParty(principal.UserID) && !principal.IsAdmin() {
		return nil, apperr.Forbidden("caller is not a party to this transaction")
	}
	return t, nil
}
