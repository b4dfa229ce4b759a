package offer

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOffer(t *testing.T, status Status) *Offer {
	t.Helper()
	now := time.Now().Add(-time.Hour)
	o := New(uuid.New(), uuid.New(), uuid.New(), 100_000_00, "initial message", "", time.Time{}, now)
	o.Status = status
	return o
}

func TestCanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		to      Status
		allowed bool
	}{
		{"pending to accepted", StatusPending, StatusAccepted, true},
		{"pending to rejected", StatusPending, StatusRejected, true},
		{"pending to negotiating", StatusPending, StatusNegotiating, true},
		{"pending to cancelled", StatusPending, StatusCancelled, true},
		{"negotiating to pending", StatusNegotiating, StatusPending, true},
		{"negotiating to accepted", StatusNegotiating, StatusAccepted, true},
		{"negotiating stays negotiating", StatusNegotiating, StatusNegotiating, true},
		{"accepted to inTransaction", StatusAccepted, StatusInTransaction, true},
		{"accepted cannot revert", StatusAccepted, StatusPending, false},
		{"inTransaction to completed", StatusInTransaction, StatusCompleted, true},
		{"inTransaction to cancelled", StatusInTransaction, StatusCancelled, true},
		{"rejected is terminal", StatusRejected, StatusPending, false},
		{"cancelled is terminal", StatusCancelled, StatusPending, false},
		{"completed is terminal", StatusCompleted, StatusInTransaction, false},
		{"pending cannot enter transaction", StatusPending, StatusInTransaction, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Offer{Status: tt.from}
			assert.Equal(t, tt.allowed, o.CanTransitionTo(tt.to))
		})
	}
}

func TestNewDefaults(t *testing.T) {
	now := time.Now()
	o := New(uuid.New(), uuid.New(), uuid.New(), 5000, "", "", time.Time{}, now)

	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, now.Add(DefaultValidity), o.ValidUntil)
	require.Len(t, o.StatusHistory, 1)
	assert.Equal(t, StatusPending, o.StatusHistory[0].Status)
	assert.Empty(t, o.NegotiationHistory)
	assert.NotEqual(t, uuid.Nil, o.OfferID)
}

func TestAcceptDefaultNote(t *testing.T) {
	o := newTestOffer(t, StatusPending)
	now := time.Now()

	require.NoError(t, o.Accept(now, ""))
	assert.Equal(t, StatusAccepted, o.Status)
	last := o.StatusHistory[len(o.StatusHistory)-1]
	assert.Equal(t, "offer accepted by the seller", last.Note)
}

func TestRejectAuto(t *testing.T) {
	o := newTestOffer(t, StatusNegotiating)
	require.NoError(t, o.RejectAuto(time.Now()))
	assert.Equal(t, StatusRejected, o.Status)
	last := o.StatusHistory[len(o.StatusHistory)-1]
	assert.Equal(t, NoteAutoRejected, last.Note)
}

func TestCounterBySellerSnapshotsPriorTerms(t *testing.T) {
	created := time.Now().Add(-time.Hour)
	o := New(uuid.New(), uuid.New(), uuid.New(), 80_000_00, "first bid", "cash", time.Time{}, created)
	now := time.Now()

	require.NoError(t, o.CounterBySeller(now, 95_000_00, "meet in the middle", "", time.Time{}))

	assert.Equal(t, StatusNegotiating, o.Status)
	assert.Equal(t, int64(95_000_00), o.AmountCents)
	assert.Equal(t, "meet in the middle", o.Message)
	assert.Equal(t, "", o.SpecialTerms)

	require.Len(t, o.NegotiationHistory, 2)
	prior := o.NegotiationHistory[0]
	assert.Equal(t, NegotiationOffer, prior.Kind)
	assert.Equal(t, int64(80_000_00), prior.AmountCents)
	assert.Equal(t, "first bid", prior.Message)
	assert.Equal(t, "cash", prior.SpecialTerms)
	assert.Equal(t, created, prior.Timestamp)

	latest := o.NegotiationHistory[1]
	assert.Equal(t, NegotiationCounterOffer, latest.Kind)
	assert.Equal(t, int64(95_000_00), latest.AmountCents)
	assert.Equal(t, now, latest.Timestamp)
}

func TestCounterByBuyerKeepsNegotiating(t *testing.T) {
	o := newTestOffer(t, StatusPending)
	now := time.Now()
	require.NoError(t, o.CounterBySeller(now, 90_000_00, "", "", time.Time{}))

	later := now.Add(time.Minute)
	require.NoError(t, o.CounterByBuyer(later, 85_000_00, "final", ""))

	assert.Equal(t, StatusNegotiating, o.Status)
	assert.Equal(t, int64(85_000_00), o.AmountCents)

	require.Len(t, o.NegotiationHistory, 4)
	// snapshot of the seller's counter, tagged as buyer-preceding
	snap := o.NegotiationHistory[2]
	assert.Equal(t, NegotiationCounterOffer, snap.Kind)
	assert.Equal(t, int64(90_000_00), snap.AmountCents)
	assert.Equal(t, now, snap.Timestamp)
}

func TestCounterByBuyerRequiresNegotiation(t *testing.T) {
	o := newTestOffer(t, StatusPending)
	assert.ErrorIs(t, o.CounterByBuyer(time.Now(), 1000, "", ""), ErrInvalidTransition)
}

func TestAcceptCounterReturnsToPending(t *testing.T) {
	o := newTestOffer(t, StatusNegotiating)
	now := time.Now()

	require.NoError(t, o.AcceptCounter(now))
	assert.Equal(t, StatusPending, o.Status)
	last := o.NegotiationHistory[len(o.NegotiationHistory)-1]
	assert.Equal(t, NegotiationAcceptance, last.Kind)
}

func TestRefuseCounterCancels(t *testing.T) {
	o := newTestOffer(t, StatusNegotiating)
	require.NoError(t, o.RefuseCounter(time.Now()))
	assert.Equal(t, StatusCancelled, o.Status)
	last := o.NegotiationHistory[len(o.NegotiationHistory)-1]
	assert.Equal(t, NegotiationRefusal, last.Kind)
}

func TestAcceptCounterRequiresNegotiation(t *testing.T) {
	o := newTestOffer(t, StatusAccepted)
	assert.ErrorIs(t, o.AcceptCounter(time.Now()), ErrInvalidTransition)
	assert.ErrorIs(t, o.RefuseCounter(time.Now()), ErrInvalidTransition)
}

func TestHistoryAppendOnly(t *testing.T) {
	o := newTestOffer(t, StatusPending)
	now := time.Now()

	lengths := []int{len(o.StatusHistory)}
	require.NoError(t, o.CounterBySeller(now, 90_000_00, "", "", time.Time{}))
	lengths = append(lengths, len(o.StatusHistory))
	require.NoError(t, o.AcceptCounter(now.Add(time.Minute)))
	lengths = append(lengths, len(o.StatusHistory))
	require.NoError(t, o.Accept(now.Add(2*time.Minute), ""))
	lengths = append(lengths, len(o.StatusHistory))

	for i := 1; i < len(lengths); i++ {
		assert.Equal(t, lengths[i-1]+1, lengths[i])
	}
	assert.Equal(t, StatusPending, o.StatusHistory[0].Status)
}

func TestExpired(t *testing.T) {
	now := time.Now()
	o := New(uuid.New(), uuid.New(), uuid.New(), 1000, "", "", time.Time{}, now)
	assert.False(t, o.Expired(now.Add(6*24*time.Hour)))
	assert.True(t, o.Expired(now.Add(8*24*time.Hour)))
}

func TestActive(t *testing.T) {
	assert.True(t, (&Offer{Status: StatusPending}).Active())
	assert.True(t, (&Offer{Status: StatusNegotiating}).Active())
	assert.False(t, (&Offer{Status: StatusAccepted}).Active())
	assert.False(t, (&Offer{Status: StatusRejected}).Active())
}
