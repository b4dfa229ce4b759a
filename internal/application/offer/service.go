// Package offer implements the offer lifecycle engine: creation,
// negotiation, acceptance and the cascades those transitions apply to
// the owning process and sibling offers.
package offer

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/creditojus/creditojus/internal/apperr"
	"github.com/creditojus/creditojus/internal/domain/event"
	"github.com/creditojus/creditojus/internal/domain/offer"
	"github.com/creditojus/creditojus/internal/domain/process"
	"github.com/creditojus/creditojus/internal/domain/user"
	"github.com/creditojus/creditojus/internal/store"
)

// CounterAction is the buyer's answer to a seller counter-offer. The
// values are part of the route contract.
type CounterAction string

const (
	CounterActionAccept  CounterAction = "aceitar"
	CounterActionRefuse  CounterAction = "recusar"
	CounterActionCounter CounterAction = "contrapropor"
)

// CreateInput carries the fields of a new offer.
type CreateInput struct {
	ProcessID    uuid.UUID
	AmountCents  int64
	Message      string
	SpecialTerms string
	ValidUntil   time.Time
}

// CounterInput carries the replacement terms of a counter-offer.
type CounterInput struct {
	AmountCents  int64
	Message      string
	SpecialTerms string
	ValidUntil   time.Time
}

// Service is the offer lifecycle engine.
type Service struct {
	store  store.Store
	events event.Publisher
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates an offer service.
func NewService(st store.Store, events event.Publisher, logger zerolog.Logger) *Service {
	return &Service{
		store:  st,
		events: events,
		logger: logger.With().Str("service", "offer").Logger(),
		now:    time.Now,
	}
}

func (s *Service) publish(ctx context.Context, ev event.Event) {
	ev.OccurredAt = s.now()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("failed to publish event")
	}
}

func getOffer(ctx context.Context, st store.Store, offerID uuid.UUID) (*offer.Offer, error) {
	o, err := st.Offers().GetByID(ctx, offerID)
	if err != nil {
		return nil, apperr.Internal("load offer", err)
	}
	if o == nil {
		return nil, apperr.NotFound("offer not found")
	}
	return o, nil
}

func getProcessForUpdate(ctx context.Context, st store.Store, processID uuid.UUID) (*process.Process, error) {
	p, err := st.Processes().GetForUpdate(ctx, processID)
	if err != nil {
		return nil, apperr.Internal("load process", err)
	}
	if p == nil {
		return nil, apperr.NotFound("process not found")
	}
	return p, nil
}

// Create inserts a buyer's initial bid on an active process.
func (s *Service) Create(ctx context.Context, principal user.Principal, in CreateInput) (*offer.Offer, error) {
	if principal.Role != user.RoleBuyer {
		return nil, apperr.Forbidden("only buyers can create offers")
	}
	if in.AmountCents <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}

	var created *offer.Offer
	err := s.store.InTx(ctx, func(tx store.Store) error {
		proc, err := getProcessForUpdate(ctx, tx, in.ProcessID)
		if err != nil {
			return err
		}
		if proc.Status != process.StatusActive {
			return apperr.InvalidStatef("process does not accept offers in status %s", proc.Status)
		}
		exists, err := tx.Offers().ExistsActiveForBuyer(ctx, in.ProcessID, principal.UserID)
		if err != nil {
			return apperr.Internal("check existing offers", err)
		}
		if exists {
			return apperr.Conflict("buyer already has an active offer on this process")
		}

		now := s.now()
		created = offer.New(in.ProcessID, proc.SellerID, principal.UserID, in.AmountCents, in.Message, in.SpecialTerms, in.ValidUntil, now)
		if err := tx.Offers().Create(ctx, created); err != nil {
			return apperr.Internal("create offer", err)
		}
		if !proc.HasOffers {
			proc.HasOffers = true
			proc.UpdatedAt = now
			if err := tx.Processes().Update(ctx, proc); err != nil {
				return apperr.Internal("update process", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("offerId", created.OfferID.String()).
		Str("processId", in.ProcessID.String()).
		Int64("amountCents", in.AmountCents).
		Msg("offer created")
	oid := created.OfferID
	s.publish(ctx, event.Event{
		Type:        event.TypeOfferCreated,
		ProcessID:   created.ProcessID,
		OfferID:     &oid,
		RecipientID: created.SellerID,
		AmountCents: created.AmountCents,
	})
	return created, nil
}

// ListReceived returns offers where the caller is the seller.
func (s *Service) ListReceived(ctx context.Context, principal user.Principal, filter offer.Filter, limit, offset int) ([]*offer.Offer, error) {
	if principal.Role != user.RoleSeller {
		return nil, apperr.Forbidden("only sellers can list received offers")
	}
	offers, err := s.store.Offers().ListBySeller(ctx, principal.UserID, filter, limit, offset)
	if err != nil {
		return nil, apperr.Internal("list offers", err)
	}
	return offers, nil
}

// ListSent returns offers where the caller is the buyer.
func (s *Service) ListSent(ctx context.Context, principal user.Principal, filter offer.Filter, limit, offset int) ([]*offer.Offer, error) {
	if principal.Role != user.RoleBuyer {
		return nil, apperr.Forbidden("only buyers can list sent offers")
	}
	offers, err := s.store.Offers().ListByBuyer(ctx, principal.UserID, filter, limit, offset)
	if err != nil {
		return nil, apperr.Internal("list offers", err)
	}
	return offers, nil
}

// Get returns one offer to its seller, its buyer, or an admin.
func (s *Service) Get(ctx context.Context, principal user.Principal, offerID uuid.UUID) (*offer.Offer, error) {
	o, err := getOffer(ctx, s.store, offerID)
	if err != nil {
		return nil, err
	}
	if principal.UserID != o.SellerID && principal.UserID != o.BuyerID && !principal.IsAdmin() {
		return nil, apperr.Forbidden("caller is not a party to this offer")
	}
	return o, nil
}

// Accept marks the offer accepted and cascades: the process moves to
// offerAccepted with a back-reference to this offer, and every other
// active offer on the process is rejected automatically. All effects
// commit together.
func (s *Service) Accept(ctx context.Context, principal user.Principal, offerID uuid.UUID, note string) (*offer.Offer, error) {
	var accepted *offer.Offer
	var rejectedSiblings []*offer.Offer

	err := s.store.InTx(ctx, func(tx store.Store) error {
		o, err := getOffer(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if principal.UserID != o.SellerID {
			return apperr.Forbidden("only the offer's seller can accept it")
		}
		now := s.now()
		if err := o.Accept(now, note); err != nil {
			return apperr.InvalidStatef("offer cannot be accepted in status %s", o.Status)
		}

		proc, err := getProcessForUpdate(ctx, tx, o.ProcessID)
		if err != nil {
			return err
		}
		if err := proc.AcceptOffer(o.OfferID, now); err != nil {
			return apperr.InvalidStatef("process cannot accept an offer in status %s", proc.Status)
		}

		siblings, err := tx.Offers().ListActiveByProcess(ctx, o.ProcessID)
		if err != nil {
			return apperr.Internal("list sibling offers", err)
		}
		for _, sib := range siblings {
			if sib.OfferID == o.OfferID {
				continue
			}
			if err := sib.RejectAuto(now); err != nil {
				return apperr.Internal("reject sibling offer", err)
			}
			if err := tx.Offers().Update(ctx, sib); err != nil {
				return apperr.Internal("update sibling offer", err)
			}
			rejectedSiblings = append(rejectedSiblings, sib)
		}

		if err := tx.Offers().Update(ctx, o); err != nil {
			return apperr.Internal("update offer", err)
		}
		if err := tx.Processes().Update(ctx, proc); err != nil {
			return apperr.Internal("update process", err)
		}
		accepted = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("offerId", accepted.OfferID.String()).
		Int("rejectedSiblings", len(rejectedSiblings)).
		Msg("offer accepted")
	oid := accepted.OfferID
	s.publish(ctx, event.Event{
		Type:        event.TypeOfferAccepted,
		ProcessID:   accepted.ProcessID,
		OfferID:     &oid,
		RecipientID: accepted.BuyerID,
		AmountCents: accepted.AmountCents,
	})
	for _, sib := range rejectedSiblings {
		sid := sib.OfferID
		s.publish(ctx, event.Event{
			Type:        event.TypeOfferRejected,
			ProcessID:   sib.ProcessID,
			OfferID:     &sid,
			RecipientID: sib.BuyerID,
		})
	}
	return accepted, nil
}

// recomputeHasOffers clears Process.HasOffers when the last active offer
// on the process has just left the active set.
func (s *Service) recomputeHasOffers(ctx context.Context, tx store.Store, processID uuid.UUID) error {
	count, err := tx.Offers().CountActiveByProcess(ctx, processID)
	if err != nil {
		return apperr.Internal("count active offers", err)
	}
	if count > 0 {
		return nil
	}
	proc, err := getProcessForUpdate(ctx, tx, processID)
	if err != nil {
		return err
	}
	if proc.HasOffers {
		proc.HasOffers = false
		proc.UpdatedAt = s.now()
		if err := tx.Processes().Update(ctx, proc); err != nil {
			return apperr.Internal("update process", err)
		}
	}
	return nil
}

// Reject marks the offer rejected by the seller.
func (s *Service) Reject(ctx context.Context, principal user.Principal, offerID uuid.UUID, reason string) (*offer.Offer, error) {
	var rejected *offer.Offer
	err := s.store.InTx(ctx, func(tx store.Store) error {
		o, err := getOffer(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if principal.UserID != o.SellerID {
			return apperr.Forbidden("only the offer's seller can reject it")
		}
		if err := o.Reject(s.now(), reason); err != nil {
			return apperr.InvalidStatef("offer cannot be rejected in status %s", o.Status)
		}
		if err := tx.Offers().Update(ctx, o); err != nil {
			return apperr.Internal("update offer", err)
		}
		rejected = o
		return s.recomputeHasOffers(ctx, tx, o.ProcessID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("offerId", rejected.OfferID.String()).Msg("offer rejected")
	oid := rejected.OfferID
	s.publish(ctx, event.Event{
		Type:        event.TypeOfferRejected,
		ProcessID:   rejected.ProcessID,
		OfferID:     &oid,
		RecipientID: rejected.BuyerID,
	})
	return rejected, nil
}

// Cancel marks the offer cancelled by the buyer.
func (s *Service) Cancel(ctx context.Context, principal user.Principal, offerID uuid.UUID, reason string) (*offer.Offer, error) {
	var cancelled *offer.Offer
	err := s.store.InTx(ctx, func(tx store.Store) error {
		o, err := getOffer(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if principal.UserID != o.BuyerID {
			return apperr.Forbidden("only the offer's buyer can cancel it")
		}
		if err := o.Cancel(s.now(), reason); err != nil {
			return apperr.InvalidStatef("offer cannot be cancelled in status %s", o.Status)
		}
		if err := tx.Offers().Update(ctx, o); err != nil {
			return apperr.Internal("update offer", err)
		}
		cancelled = o
		return s.recomputeHasOffers(ctx, tx, o.ProcessID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Str("offerId", cancelled.OfferID.String()).Msg("offer cancelled")
	oid := cancelled.OfferID
	s.publish(ctx, event.Event{
		Type:        event.TypeOfferCancelled,
		ProcessID:   cancelled.ProcessID,
		OfferID:     &oid,
		RecipientID: cancelled.SellerID,
	})
	return cancelled, nil
}

// CounterOffer replaces the terms with the seller's counter-proposal and
// moves the offer into negotiation.
func (s *Service) CounterOffer(ctx context.Context, principal user.Principal, offerID uuid.UUID, in CounterInput) (*offer.Offer, error) {
	if in.AmountCents <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}
	o, err := getOffer(ctx, s.store, offerID)
	if err != nil {
		return nil, err
	}
	if principal.UserID != o.SellerID {
		return nil, apperr.Forbidden("only the offer's seller can counter it")
	}
	if err := o.CounterBySeller(s.now(), in.AmountCents, in.Message, in.SpecialTerms, in.ValidUntil); err != nil {
		return nil, apperr.InvalidStatef("offer cannot be countered in status %s", o.Status)
	}
	if err := s.store.Offers().Update(ctx, o); err != nil {
		return nil, apperr.Internal("update offer", err)
	}

	s.logger.Info().
		Str("offerId", o.OfferID.String()).
		Int64("amountCents", in.AmountCents).
		Msg("counter-offer sent")
	oid := o.OfferID
	s.publish(ctx, event.Event{
		Type:        event.TypeCounterOfferMade,
		ProcessID:   o.ProcessID,
		OfferID:     &oid,
		RecipientID: o.BuyerID,
		AmountCents: o.AmountCents,
	})
	return o, nil
}

// RespondToCounter applies the buyer's answer to a seller counter-offer.
func (s *Service) RespondToCounter(ctx context.Context, principal user.Principal, offerID uuid.UUID, action CounterAction, in CounterInput) (*offer.Offer, error) {
	switch action {
	case CounterActionAccept, CounterActionRefuse, CounterActionCounter:
	default:
		return nil, apperr.Validation("invalid action, expected aceitar, recusar or contrapropor")
	}
	if action == CounterActionCounter && in.AmountCents <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}

	var answered *offer.Offer
	err := s.store.InTx(ctx, func(tx store.Store) error {
		o, err := getOffer(ctx, tx, offerID)
		if err != nil {
			return err
		}
		if principal.UserID != o.BuyerID {
			return apperr.Forbidden("only the offer's buyer can respond to a counter-offer")
		}
		now := s.now()

		var terr error
		switch action {
		case CounterActionAccept:
			terr = o.AcceptCounter(now)
		case CounterActionRefuse:
			terr = o.RefuseCounter(now)
		case CounterActionCounter:
			terr = o.CounterByBuyer(now, in.AmountCents, in.Message, in.SpecialTerms)
		}
		if terr != nil {
			if errors.Is(terr, offer.ErrInvalidTransition) {
				return apperr.InvalidStatef("offer is not negotiating (status %s)", o.Status)
			}
			return apperr.Internal("respond to counter-offer", terr)
		}
		if err := tx.Offers().Update(ctx, o); err != nil {
			return apperr.Internal("update offer", err)
		}
		answered = o
		if action == CounterActionRefuse {
			return s.recomputeHasOffers(ctx, tx, o.ProcessID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("offerId", answered.OfferID.String()).
		Str("action", string(action)).
		Msg("counter-offer answered")
	oid := answered.OfferID
	s.publish(ctx, event.Event{
		Type:        event.TypeCounterOfferAnswered,
		ProcessID:   answered.ProcessID,
		OfferID:     &oid,
		RecipientID: answered.SellerID,
		AmountCents: answered.AmountCents,
	})
	return answered, nil
}
