package transaction

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransaction(t *testing.T) *Transaction {
	t.Helper()
	return New(uuid.New(), uuid.New(), uuid.New(), uuid.New(), 100_000_00, time.Now())
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"started to contractSent", StatusStarted, StatusContractSent, true},
		{"started to cancelled", StatusStarted, StatusCancelled, true},
		{"contractSent to contractSigned", StatusContractSent, StatusContractSigned, true},
		{"contractSigned to awaitingPayment", StatusContractSigned, StatusAwaitingPayment, true},
		{"contractSigned to paymentRegistered", StatusContractSigned, StatusPaymentRegistered, true},
		{"awaitingPayment to paymentRegistered", StatusAwaitingPayment, StatusPaymentRegistered, true},
		{"paymentRegistered to completed", StatusPaymentRegistered, StatusCompleted, true},
		{"paymentRegistered cannot cancel", StatusPaymentRegistered, StatusCancelled, false},
		{"started cannot skip to signed", StatusStarted, StatusContractSigned, false},
		{"completed is terminal", StatusCompleted, StatusCancelled, false},
		{"cancelled is terminal", StatusCancelled, StatusStarted, false},
		{"refunded has no exits", StatusRefunded, StatusStarted, false},
		{"nothing reaches refunded", StatusAwaitingPayment, StatusRefunded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{Status: tt.from}
			assert.Equal(t, tt.allowed, tx.CanTransitionTo(tt.to))
		})
	}
}

func TestNewCommission(t *testing.T) {
	tx := New(uuid.New(), uuid.New(), uuid.New(), uuid.New(), 100_000_00, time.Now())

	assert.Equal(t, int64(5_000_00), tx.CommissionCents)
	assert.Equal(t, int64(95_000_00), tx.NetAmountCents)
	assert.Equal(t, StatusStarted, tx.Status)
	require.Len(t, tx.StatusHistory, 1)
}

func TestCommissionInvariantAfterCancel(t *testing.T) {
	tx := newTestTransaction(t)
	require.NoError(t, tx.Cancel("buyer withdrew", PartyBuyer, time.Now()))

	assert.Equal(t, int64(5_000_00), tx.CommissionCents)
	assert.Equal(t, int64(95_000_00), tx.NetAmountCents)
}

func TestSubmitDocumentsAdvancesContract(t *testing.T) {
	tx := newTestTransaction(t)
	now := time.Now()
	doc := func(name string) []Document {
		return []Document{{Name: name, MimeType: "application/pdf", Path: "/tmp/" + name, Size: 1024}}
	}

	// first seller submission moves started to contractSent
	require.NoError(t, tx.SubmitDocuments(doc("contract-v1.pdf"), PartySeller, now))
	assert.Equal(t, StatusContractSent, tx.Status)

	// second seller submission does not advance
	require.NoError(t, tx.SubmitDocuments(doc("contract-v2.pdf"), PartySeller, now))
	assert.Equal(t, StatusContractSent, tx.Status)

	// buyer submission completes the pair
	require.NoError(t, tx.SubmitDocuments(doc("signed.pdf"), PartyBuyer, now))
	assert.Equal(t, StatusContractSigned, tx.Status)
	assert.Len(t, tx.Documents, 3)

	// further submissions never regress the state
	require.NoError(t, tx.SubmitDocuments(doc("addendum.pdf"), PartyBuyer, now))
	assert.Equal(t, StatusContractSigned, tx.Status)
}

func TestSubmitDocumentsTagsSubmitter(t *testing.T) {
	tx := newTestTransaction(t)
	now := time.Now()
	require.NoError(t, tx.SubmitDocuments([]Document{{Name: "c.pdf"}}, PartyBuyer, now))

	require.Len(t, tx.Documents, 1)
	assert.Equal(t, PartyBuyer, tx.Documents[0].SubmittedBy)
	assert.Equal(t, now, tx.Documents[0].UploadedAt)
}

func TestSubmitDocumentsRejectedWhenTerminal(t *testing.T) {
	tx := newTestTransaction(t)
	require.NoError(t, tx.Cancel("no longer interested", PartyBuyer, time.Now()))
	err := tx.SubmitDocuments([]Document{{Name: "late.pdf"}}, PartySeller, time.Now())
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRegisterPayment(t *testing.T) {
	tx := newTestTransaction(t)
	now := time.Now()
	require.NoError(t, tx.SubmitDocuments([]Document{{Name: "a.pdf"}}, PartySeller, now))
	require.NoError(t, tx.SubmitDocuments([]Document{{Name: "b.pdf"}}, PartyBuyer, now))
	require.Equal(t, StatusContractSigned, tx.Status)

	require.NoError(t, tx.RegisterPayment("receipt-123", "wire transfer", now))
	assert.Equal(t, StatusPaymentRegistered, tx.Status)
	assert.Equal(t, "receipt-123", tx.PaymentProof)
	require.NotNil(t, tx.PaymentDate)

	// cannot pay twice
	assert.ErrorIs(t, tx.RegisterPayment("receipt-456", "", now), ErrInvalidTransition)
}

func TestRegisterPaymentRequiresSignedContract(t *testing.T) {
	tx := newTestTransaction(t)
	assert.ErrorIs(t, tx.RegisterPayment("receipt", "", time.Now()), ErrInvalidTransition)
}

func TestComplete(t *testing.T) {
	tx := newTestTransaction(t)
	now := time.Now()
	tx.Status = StatusPaymentRegistered

	require.NoError(t, tx.Complete("", now))
	assert.Equal(t, StatusCompleted, tx.Status)
	require.NotNil(t, tx.CompletionDate)
	last := tx.StatusHistory[len(tx.StatusHistory)-1]
	assert.Equal(t, "payment receipt confirmed by the seller", last.Note)
}

func TestCancelRecordsReasonAndParty(t *testing.T) {
	tx := newTestTransaction(t)
	now := time.Now()

	require.NoError(t, tx.Cancel("seller backed out", PartySeller, now))
	assert.Equal(t, StatusCancelled, tx.Status)
	assert.Equal(t, "seller backed out", tx.CancellationReason)
	assert.Equal(t, PartySeller, tx.CancelledBy)
	require.NotNil(t, tx.CancellationDate)
}

func TestPartyOf(t *testing.T) {
	tx := newTestTransaction(t)
	assert.Equal(t, PartySeller, tx.PartyOf(tx.SellerID))
	assert.Equal(t, PartyBuyer, tx.PartyOf(tx.BuyerID))
	assert.Equal(t, PartySystem, tx.PartyOf(uuid.New()))
	assert.True(t, tx.IsParty(tx.BuyerID))
	assert.False(t, tx.IsParty(uuid.New()))
}
