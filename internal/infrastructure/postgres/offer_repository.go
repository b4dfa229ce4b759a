package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/creditojus/creditojus/internal/domain/offer"
)

// OfferRepository implements offer.Repository.
type OfferRepository struct {
	q Querier
}

const offerColumns = `id, offer_id, process_id, seller_id, buyer_id, amount_cents, message, special_terms, status, valid_until, status_history, negotiation_history, created_at, updated_at`

const activeOfferStatuses = `('pending','negotiating')`

func (r *OfferRepository) Create(ctx context.Context, o *offer.Offer) error {
	statusHistory, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return err
	}
	negotiationHistory, err := json.Marshal(o.NegotiationHistory)
	if err != nil {
		return err
	}
	row := r.q.QueryRow(ctx, `
		INSERT INTO offers (offer_id, process_id, seller_id, buyer_id, amount_cents, message, special_terms, status, valid_until, status_history, negotiation_history, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id
	`, o.OfferID, o.ProcessID, o.SellerID, o.BuyerID, o.AmountCents, o.Message, o.SpecialTerms, o.Status, o.ValidUntil, statusHistory, negotiationHistory, o.CreatedAt, o.UpdatedAt)
	return row.Scan(&o.ID)
}

func scanOffer(row pgx.Row) (*offer.Offer, error) {
	var o offer.Offer
	var statusHistory, negotiationHistory []byte
	if err := row.Scan(&o.ID, &o.OfferID, &o.ProcessID, &o.SellerID, &o.BuyerID, &o.AmountCents, &o.Message, &o.SpecialTerms, &o.Status, &o.ValidUntil, &statusHistory, &negotiationHistory, &o.CreatedAt, &o.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(statusHistory) > 0 {
		if err := json.Unmarshal(statusHistory, &o.StatusHistory); err != nil {
			return nil, err
		}
	}
	if len(negotiationHistory) > 0 {
		if err := json.Unmarshal(negotiationHistory, &o.NegotiationHistory); err != nil {
			return nil, err
		}
	}
	return &o, nil
}

func (r *OfferRepository) GetByID(ctx context.Context, offerID uuid.UUID) (*offer.Offer, error) {
	return scanOffer(r.q.QueryRow(ctx, `
		SELECT `+offerColumns+` FROM offers WHERE offer_id=$1
	`, offerID))
}

func (r *OfferRepository) listByParty(ctx context.Context, column string, partyID uuid.UUID, filter offer.Filter, limit, offset int) ([]*offer.Offer, error) {
	query := `SELECT ` + offerColumns + ` FROM offers WHERE ` + column + `=$1`
	args := []any{partyID}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += ` AND status=$` + itoa(len(args))
	}
	if filter.ProcessID != nil {
		args = append(args, *filter.ProcessID)
		query += ` AND process_id=$` + itoa(len(args))
	}
	query += ` ORDER BY created_at DESC LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOffers(rows)
}

func collectOffers(rows pgx.Rows) ([]*offer.Offer, error) {
	var offers []*offer.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func (r *OfferRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID, filter offer.Filter, limit, offset int) ([]*offer.Offer, error) {
	return r.listByParty(ctx, "seller_id", sellerID, filter, limit, offset)
}

func (r *OfferRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, filter offer.Filter, limit, offset int) ([]*offer.Offer, error) {
	return r.listByParty(ctx, "buyer_id", buyerID, filter, limit, offset)
}

func (r *OfferRepository) ListActiveByProcess(ctx context.Context, processID uuid.UUID) ([]*offer.Offer, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+offerColumns+` FROM offers
		WHERE process_id=$1 AND status IN `+activeOfferStatuses+`
		ORDER BY created_at DESC
	`, processID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOffers(rows)
}

func (r *OfferRepository) CountActiveByProcess(ctx context.Context, processID uuid.UUID) (int, error) {
	var count int
	err := r.q.QueryRow(ctx, `
		SELECT COUNT(*) FROM offers WHERE process_id=$1 AND status IN `+activeOfferStatuses+`
	`, processID).Scan(&count)
	return count, err
}

func (r *OfferRepository) ExistsActiveForBuyer(ctx context.Context, processID, buyerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM offers WHERE process_id=$1 AND buyer_id=$2 AND status IN `+activeOfferStatuses+`
		)
	`, processID, buyerID).Scan(&exists)
	return exists, err
}

func (r *OfferRepository) Update(ctx context.Context, o *offer.Offer) error {
	statusHistory, err := json.Marshal(o.StatusHistory)
	if err != nil {
		return err
	}
	negotiationHistory, err := json.Marshal(o.NegotiationHistory)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		UPDATE offers SET amount_cents=$1, message=$2, special_terms=$3, status=$4, valid_until=$5, status_history=$6, negotiation_history=$7, updated_at=$8
		WHERE offer_id=$9
	`, o.AmountCents, o.Message, o.SpecialTerms, o.Status, o.ValidUntil, statusHistory, negotiationHistory, o.UpdatedAt, o.OfferID)
	return err
}
