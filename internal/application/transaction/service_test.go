package transaction

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/creditojus/creditojus/internal/apperr"
	"github.com/creditojus/creditojus/internal/domain/event/mocks"
	"github.com/creditojus/creditojus/internal/domain/offer"
	"github.com/creditojus/creditojus/internal/domain/process"
	"github.com/creditojus/creditojus/internal/domain/transaction"
	"github.com/creditojus/creditojus/internal/domain/user"
	"github.com/creditojus/creditojus/internal/infrastructure/memstore"
)

type fixture struct {
	svc    *Service
	st     *memstore.Store
	seller user.Principal
	buyer  user.Principal
	proc   *process.Process
	offer  *offer.Offer
}

// newFixture seeds an accepted offer on an offerAccepted process, the
// entry state for the transaction engine.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	st := memstore.New()

	sel := user.Principal{UserID: uuid.New(), Role: user.RoleSeller}
	buy := user.Principal{UserID: uuid.New(), Role: user.RoleBuyer}

	o := offer.New(uuid.New(), sel.UserID, buy.UserID, 100_000_00, "", "", time.Time{}, time.Now())
	o.Status = offer.StatusAccepted
	require.NoError(t, st.Offers().Create(ctx, o))

	oid := o.OfferID
	p := &process.Process{
		ProcessID:       o.ProcessID,
		SellerID:        sel.UserID,
		Status:          process.StatusOfferAccepted,
		AcceptedOfferID: &oid,
		CreatedAt:       time.Now(),
	}
	require.NoError(t, st.Processes().Create(ctx, p))

	return &fixture{
		svc:    NewService(st, pub, zerolog.Nop()),
		st:     st,
		seller: sel,
		buyer:  buy,
		proc:   p,
		offer:  o,
	}
}

func (f *fixture) start(t *testing.T) *transaction.Transaction {
	t.Helper()
	tx, err := f.svc.Start(context.Background(), f.buyer, f.offer.OfferID)
	require.NoError(t, err)
	return tx
}

func pdf(name string) []transaction.Document {
	return []transaction.Document{{Name: name, MimeType: "application/pdf", Path: "/uploads/transacoes/" + name, Size: 2048}}
}

func TestStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx := f.start(t)
	assert.Equal(t, transaction.StatusStarted, tx.Status)
	assert.Equal(t, int64(100_000_00), tx.AmountCents)
	assert.Equal(t, int64(5_000_00), tx.CommissionCents)
	assert.Equal(t, int64(95_000_00), tx.NetAmountCents)

	gotOffer, err := f.st.Offers().GetByID(ctx, f.offer.OfferID)
	require.NoError(t, err)
	assert.Equal(t, offer.StatusInTransaction, gotOffer.Status)

	gotProc, err := f.st.Processes().GetByID(ctx, f.proc.ProcessID)
	require.NoError(t, err)
	assert.Equal(t, process.StatusInTransaction, gotProc.Status)
}

func TestStartRequiresAcceptedOffer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending := offer.New(uuid.New(), f.seller.UserID, f.buyer.UserID, 1000, "", "", time.Time{}, time.Now())
	require.NoError(t, f.st.Offers().Create(ctx, pending))

	_, err := f.svc.Start(ctx, f.buyer, pending.OfferID)
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestStartDuplicate(t *testing.T) {
	f := newFixture(t)
	f.start(t)

	_, err := f.svc.Start(context.Background(), f.seller, f.offer.OfferID)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestStartForbiddenForOutsider(t *testing.T) {
	f := newFixture(t)
	outsider := user.Principal{UserID: uuid.New(), Role: user.RoleBuyer}
	_, err := f.svc.Start(context.Background(), outsider, f.offer.OfferID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.svc.Start(context.Background(), f.buyer, uuid.New())
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestContractDualSubmission(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.start(t)

	got, err := f.svc.SubmitContract(ctx, f.seller, tx.TransactionID, pdf("draft.pdf"))
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusContractSent, got.Status)

	got, err = f.svc.SubmitContract(ctx, f.seller, tx.TransactionID, pdf("draft-v2.pdf"))
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusContractSent, got.Status)

	got, err = f.svc.SubmitContract(ctx, f.buyer, tx.TransactionID, pdf("signed.pdf"))
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusContractSigned, got.Status)
	assert.Len(t, got.Documents, 3)
}

func TestSubmitContractValidations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.start(t)

	_, err := f.svc.SubmitContract(ctx, f.seller, tx.TransactionID, nil)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	outsider := user.Principal{UserID: uuid.New(), Role: user.RoleSeller}
	_, err = f.svc.SubmitContract(ctx, outsider, tx.TransactionID, pdf("x.pdf"))
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.svc.SubmitContract(ctx, f.seller, uuid.New(), pdf("x.pdf"))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestRegisterPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.start(t)

	_, err := f.svc.SubmitContract(ctx, f.seller, tx.TransactionID, pdf("a.pdf"))
	require.NoError(t, err)
	_, err = f.svc.SubmitContract(ctx, f.buyer, tx.TransactionID, pdf("b.pdf"))
	require.NoError(t, err)

	_, err = f.svc.RegisterPayment(ctx, f.buyer, tx.TransactionID, "", "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = f.svc.RegisterPayment(ctx, f.seller, tx.TransactionID, "receipt-1", "")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	got, err := f.svc.RegisterPayment(ctx, f.buyer, tx.TransactionID, "receipt-1", "wire")
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusPaymentRegistered, got.Status)
	assert.Equal(t, "receipt-1", got.PaymentProof)
}

func TestRegisterPaymentRequiresSignedContract(t *testing.T) {
	f := newFixture(t)
	tx := f.start(t)

	_, err := f.svc.RegisterPayment(context.Background(), f.buyer, tx.TransactionID, "receipt", "")
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestConfirmReceiptSettlesChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.start(t)
	_, err := f.svc.SubmitContract(ctx, f.seller, tx.TransactionID, pdf("a.pdf"))
	require.NoError(t, err)
	_, err = f.svc.SubmitContract(ctx, f.buyer, tx.TransactionID, pdf("b.pdf"))
	require.NoError(t, err)
	_, err = f.svc.RegisterPayment(ctx, f.buyer, tx.TransactionID, "receipt", "")
	require.NoError(t, err)

	_, err = f.svc.ConfirmReceipt(ctx, f.buyer, tx.TransactionID, "")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	got, err := f.svc.ConfirmReceipt(ctx, f.seller, tx.TransactionID, "")
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletionDate)

	gotOffer, err := f.st.Offers().GetByID(ctx, f.offer.OfferID)
	require.NoError(t, err)
	assert.Equal(t, offer.StatusCompleted, gotOffer.Status)

	gotProc, err := f.st.Processes().GetByID(ctx, f.proc.ProcessID)
	require.NoError(t, err)
	assert.Equal(t, process.StatusSold, gotProc.Status)
}

func TestConfirmReceiptRequiresPayment(t *testing.T) {
	f := newFixture(t)
	tx := f.start(t)

	_, err := f.svc.ConfirmReceipt(context.Background(), f.seller, tx.TransactionID, "")
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestCancelRevertsProcess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.start(t)

	_, err := f.svc.Cancel(ctx, f.buyer, tx.TransactionID, "")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	got, err := f.svc.Cancel(ctx, f.buyer, tx.TransactionID, "test")
	require.NoError(t, err)
	assert.Equal(t, transaction.StatusCancelled, got.Status)
	assert.Equal(t, "test", got.CancellationReason)
	assert.Equal(t, transaction.PartyBuyer, got.CancelledBy)
	assert.Equal(t, int64(5_000_00), got.CommissionCents)

	gotOffer, err := f.st.Offers().GetByID(ctx, f.offer.OfferID)
	require.NoError(t, err)
	assert.Equal(t, offer.StatusCancelled, gotOffer.Status)

	gotProc, err := f.st.Processes().GetByID(ctx, f.proc.ProcessID)
	require.NoError(t, err)
	assert.Equal(t, process.StatusActive, gotProc.Status)
	assert.Nil(t, gotProc.AcceptedOfferID)
}

func TestCancelAfterPaymentRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.start(t)
	_, err := f.svc.SubmitContract(ctx, f.seller, tx.TransactionID, pdf("a.pdf"))
	require.NoError(t, err)
	_, err = f.svc.SubmitContract(ctx, f.buyer, tx.TransactionID, pdf("b.pdf"))
	require.NoError(t, err)
	_, err = f.svc.RegisterPayment(ctx, f.buyer, tx.TransactionID, "receipt", "")
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.seller, tx.TransactionID, "changed my mind")
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(err))
}

func TestListAndGet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.start(t)

	list, err := f.svc.List(ctx, f.seller, nil, 20, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = f.svc.List(ctx, f.buyer, nil, 20, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	started := transaction.StatusStarted
	list, err = f.svc.List(ctx, f.buyer, &started, 20, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	outsider := user.Principal{UserID: uuid.New(), Role: user.RoleBuyer}
	list, err = f.svc.List(ctx, outsider, nil, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, list)

	_, err = f.svc.Get(ctx, outsider, tx.TransactionID)
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = f.svc.Get(ctx, user.Principal{UserID: uuid.New(), Role: user.RoleAdmin}, tx.TransactionID)
	assert.NoError(t, err)
}

func TestHistoryGrowsPerTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tx := f.start(t)
	require.Len(t, tx.StatusHistory, 1)

	got, err := f.svc.SubmitContract(ctx, f.seller, tx.TransactionID, pdf("a.pdf"))
	require.NoError(t, err)
	assert.Len(t, got.StatusHistory, 2)

	got, err = f.svc.SubmitContract(ctx, f.buyer, tx.TransactionID, pdf("b.pdf"))
	require.NoError(t, err)
	assert.Len(t, got.StatusHistory, 3)

	got, err = f.svc.RegisterPayment(ctx, f.buyer, tx.TransactionID, "receipt", "")
	require.NoError(t, err)
	assert.Len(t, got.StatusHistory, 4)

	got, err = f.svc.ConfirmReceipt(ctx, f.seller, tx.TransactionID, "")
	require.NoError(t, err)
	assert.Len(t, got.StatusHistory, 5)
	assert.Equal(t, transaction.StatusStarted, got.StatusHistory[0].Status)
	assert.Equal(t, transaction.StatusCompleted, got.StatusHistory[4].Status)
}
