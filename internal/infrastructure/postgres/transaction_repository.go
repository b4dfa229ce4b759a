package postgres

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/creditojus/creditojus/internal/domain/transaction"
)

// TransactionRepository implements transaction.Repository.
type TransactionRepository struct {
	q Querier
}

const transactionColumns = `id, transaction_id, offer_id, process_id, seller_id, buyer_id, amount_cents, commission_cents, net_amount_cents, status, status_history, documents, payment_proof, payment_note, payment_date, completion_date, cancellation_date, cancellation_reason, cancelled_by, created_at, updated_at`

func (r *TransactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	history, err := json.Marshal(t.StatusHistory)
	if err != nil {
		return err
	}
	documents, err := json.Marshal(t.Documents)
	if err != nil {
		return err
	}
	row := r.q.QueryRow(ctx, `
		INSERT INTO transactions (transaction_id, offer_id, process_id, seller_id, buyer_id, amount_cents, commission_cents, net_amount_cents, status, status_history, documents, payment_proof, payment_note, payment_date, completion_date, cancellation_date, cancellation_reason, cancelled_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20)
		RETURNING id
	`, t.TransactionID, t.OfferID, t.ProcessID, t.SellerID, t.BuyerID, t.AmountCents, t.CommissionCents, t.NetAmountCents, t.Status, history, documents, t.PaymentProof, t.PaymentNote, t.PaymentDate, t.CompletionDate, t.CancellationDate, t.CancellationReason, t.CancelledBy, t.CreatedAt, t.UpdatedAt)
	return row.Scan(&t.ID)
}

func scanTransaction(row pgx.Row) (*transaction.Transaction, error) {
	var t transaction.Transaction
	var history, documents []byte
	if err := row.Scan(&t.ID, &t.TransactionID, &t.OfferID, &t.ProcessID, &t.SellerID, &t.BuyerID, &t.AmountCents, &t.CommissionCents, &t.NetAmountCents, &t.Status, &history, &documents, &t.PaymentProof, &t.PaymentNote, &t.PaymentDate, &t.CompletionDate, &t.CancellationDate, &t.CancellationReason, &t.CancelledBy, &t.CreatedAt, &t.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	if len(history) > 0 {
		if err := json.Unmarshal(history, &t.StatusHistory); err != nil {
			return nil, err
		}
	}
	if len(documents) > 0 {
		if err := json.Unmarshal(documents, &t.Documents); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, transactionID uuid.UUID) (*transaction.Transaction, error) {
	return scanTransaction(r.q.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE transaction_id=$1
	`, transactionID))
}

func (r *TransactionRepository) GetByOfferID(ctx context.Context, offerID uuid.UUID) (*transaction.Transaction, error) {
	return scanTransaction(r.q.QueryRow(ctx, `
		SELECT `+transactionColumns+` FROM transactions WHERE offer_id=$1
	`, offerID))
}

func (r *TransactionRepository) ListByParty(ctx context.Context, userID uuid.UUID, status *transaction.Status, limit, offset int) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE (seller_id=$1 OR buyer_id=$1)`
	args := []any{userID}
	if status != nil {
		args = append(args, *status)
		query += ` AND status=$` + itoa(len(args))
	}
	query += ` ORDER BY created_at DESC LIMIT $` + itoa(len(args)+1) + ` OFFSET $` + itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*transaction.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func (r *TransactionRepository) Update(ctx context.Context, t *transaction.Transaction) error {
	history, err := json.Marshal(t.StatusHistory)
	if err != nil {
		return err
	}
	documents, err := json.Marshal(t.Documents)
	if err != nil {
		return err
	}
	_, err = r.q.Exec(ctx, `
		UPDATE transactions SET status=$1, status_history=$2, documents=$3, payment_proof=$4, payment_note=$5, payment_date=$6, completion_date=$7, cancellation_date=$8, cancellation_reason=$9, cancelled_by=$10, updated_at=$11
		WHERE transaction_id=$12
	`, t.Status, history, documents, t.PaymentProof, t.PaymentNote, t.PaymentDate, t.CompletionDate, t.CancellationDate, t.CancellationReason, t.CancelledBy, t.UpdatedAt, t.TransactionID)
	return err
}
