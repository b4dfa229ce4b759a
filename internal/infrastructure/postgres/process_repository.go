package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/creditojus/creditojus/internal/domain/process"
)

// ProcessRepository implements process.Repository.
type ProcessRepository struct {
	q Querier
}

const processColumns = `id, process_id, seller_id, status, estimated_cents, has_offers, accepted_offer_id, status_history, created_at, updated_at`

func (r *ProcessRepository) Create(ctx context.Context, p *process.Process) error {
	history, err := json.Marshal(p.StatusHistory)
	if err != nil {
		return err
	}
	row := r.q.QueryRow(ctx, `
		INSERT INTO processes (process_id, seller_id, status, estimated_cents, has_offers, accepted_offer_id, status_history, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`, p.ProcessID, p.SellerID, p.Status, p.EstimatedCents, p.HasOffers, p.AcceptedOfferID, history, p.CreatedAt, p.UpdatedAt)
	return row.Scan(&p.ID)
}

func scanProcess(row pgx.Row) (*process.Process, error) {
	var p process.Process
	var history []byte
	if err := row.Scan(&p.ID, &p.ProcessID, &p.SellerID, &p.Status, &p.EstimatedCents, &p.HasOffers, &p.AcceptedOfferID, &history, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &p.StatusHistory); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func (r *ProcessRepository) GetByID(ctx context.Context, processID uuid.UUID) (*process.Process, error) {
	return scanProcess(r.q.QueryRow(ctx, `
		SELECT `+processColumns+` FROM processes WHERE process_id=$1
	`, processID))
}

func (r *ProcessRepository) GetForUpdate(ctx context.Context, processID uuid.UUID) (*process.Process, error) {
	return scanProcess(r.q.QueryRow(ctx, `
		SELECT `+processColumns+` FROM processes WHERE process_id=$1 FOR UPDATE
	`, processID))
}

func (r *ProcessRepository) Update(ctx context.Context, p *process.Process) error {
	history, err := json.Marshal(p.StatusHistory)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		UPDATE processes SET status=$1, estimated_cents=$2, has_offers=$3, accepted_offer_id=$4, status_history=$5, updated_at=$6
		WHERE process_id=$7
	`, p.Status, p.EstimatedCents, p.HasOffers, p.AcceptedOfferID, history, p.UpdatedAt, p.ProcessID)
	return err
}
