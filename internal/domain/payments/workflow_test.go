package payments_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/payments"
	"github.com/ellavondegurechaff/kinobot/internal/domain/payments/mock"
	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
	"github.com/ellavondegurechaff/kinobot/internal/gateways/memory"
	"go.uber.org/mock/gomock"
)

const (
	reviewerID = "900"
	day        = 24 * time.Hour
)

var t0 = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

func seed(t *testing.T, store *memory.Store, account subscription.Account) {
	t.Helper()
	if _, err := store.Create(context.Background(), &account); err != nil {
		t.Fatalf("seed %s: %v", account.ID, err)
	}
}

func newWorkflow(t *testing.T, store *memory.Store) (*payments.Workflow, *mock.MockNotifier) {
	t.Helper()
	notifier := mock.NewMockNotifier(gomock.NewController(t))
	w, err := payments.NewWorkflow(store, payments.NewReviewers(reviewerID), notifier, subscription.DefaultGrant)
	if err != nil {
		t.Fatal(err)
	}
	return w, notifier
}

func endOf(t *testing.T, store *memory.Store, id string) time.Time {
	t.Helper()
	a, err := store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	return a.EndOrZero()
}

func TestNewWorkflowRejectsNonPositiveGrant(t *testing.T) {
	_, err := payments.NewWorkflow(memory.New(), payments.NewReviewers(), nil, 0)
	if !errors.Is(err, subscription.ErrNonPositiveGrant) {
		t.Errorf("NewWorkflow() error = %v, want ErrNonPositiveGrant", err)
	}
}

func TestWorkflow_ApproveExtendsWindow(t *testing.T) {
	tests := []struct {
		name    string
		account subscription.Account
		wantEnd time.Time
	}{
		{
			name: "Running window stacks on its end",
			account: subscription.Account{
				ID:              "A",
				Status:          subscription.StatusActive,
				SubscriptionEnd: ptr(t0.Add(30 * day)),
			},
			wantEnd: t0.Add(60 * day),
		},
		{
			name: "Lapsed window restarts from now",
			account: subscription.Account{
				ID:              "B",
				Status:          subscription.StatusExpired,
				SubscriptionEnd: ptr(t0.Add(-1 * day)),
			},
			wantEnd: t0.Add(30 * day),
		},
		{
			name:    "Never subscribed",
			account: subscription.Account{ID: "C", Status: subscription.StatusExpired},
			wantEnd: t0.Add(30 * day),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			seed(t, store, tt.account)
			w, notifier := newWorkflow(t, store)

			notifier.EXPECT().NotifyReviewerOfClaim(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
			notifier.EXPECT().NotifyApproved(gomock.Any(), tt.account.ID, tt.wantEnd).Return(nil)

			sub, err := w.SubmitClaim(context.Background(), tt.account.ID, "receipt-1", t0.Add(-time.Minute))
			if err != nil {
				t.Fatalf("SubmitClaim() error = %v", err)
			}

			decision, err := w.ApproveClaim(context.Background(), sub.Claim.ID, reviewerID, t0)
			if err != nil {
				t.Fatalf("ApproveClaim() error = %v", err)
			}
			if !decision.NewEnd().Equal(tt.wantEnd) {
				t.Errorf("ApproveClaim() new end = %v, want %v", decision.NewEnd(), tt.wantEnd)
			}
			if decision.Account.Status != subscription.StatusActive {
				t.Errorf("ApproveClaim() status = %v, want active", decision.Account.Status)
			}
			if got := endOf(t, store, tt.account.ID); !got.Equal(tt.wantEnd) {
				t.Errorf("stored end = %v, want %v", got, tt.wantEnd)
			}

			claim, err := store.GetClaim(context.Background(), sub.Claim.ID)
			if err != nil {
				t.Fatal(err)
			}
			if claim.Status != payments.ClaimApproved || claim.ReviewerID != reviewerID {
				t.Errorf("stored claim = %+v, want approved by %s", claim, reviewerID)
			}
		})
	}
}

func TestWorkflow_SubmitDuplicatePending(t *testing.T) {
	store := memory.New()
	seed(t, store, subscription.Account{ID: "1", Status: subscription.StatusExpired})
	w, notifier := newWorkflow(t, store)

	notifier.EXPECT().NotifyReviewerOfClaim(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)

	first, err := w.SubmitClaim(context.Background(), "1", "receipt-1", t0)
	if err != nil {
		t.Fatal(err)
	}
	if first.Claim.Status != payments.ClaimPending {
		t.Errorf("first claim status = %v, want pending", first.Claim.Status)
	}

	_, err = w.SubmitClaim(context.Background(), "1", "receipt-2", t0.Add(time.Minute))
	if !errors.Is(err, payments.ErrDuplicatePendingClaim) {
		t.Fatalf("second SubmitClaim() error = %v, want ErrDuplicatePendingClaim", err)
	}

	pending, err := store.ListPending(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].EvidenceRef != "receipt-1" {
		t.Errorf("pending claims = %+v, want only receipt-1", pending)
	}
}

func TestWorkflow_SubmitAfterDecisionIsAllowed(t *testing.T) {
	store := memory.New()
	seed(t, store, subscription.Account{ID: "1", Status: subscription.StatusExpired})
	w, notifier := newWorkflow(t, store)

	notifier.EXPECT().NotifyReviewerOfClaim(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	notifier.EXPECT().NotifyRejected(gomock.Any(), "1", "blurry").Return(nil)

	first, err := w.SubmitClaim(context.Background(), "1", "receipt-1", t0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.RejectClaim(context.Background(), first.Claim.ID, reviewerID, "blurry", t0); err != nil {
		t.Fatal(err)
	}
	if _, err := w.SubmitClaim(context.Background(), "1", "receipt-2", t0.Add(time.Hour)); err != nil {
		t.Errorf("SubmitClaim() after rejection error = %v", err)
	}
}

func TestWorkflow_SubmitValidation(t *testing.T) {
	store := memory.New()
	w, _ := newWorkflow(t, store)

	if _, err := w.SubmitClaim(context.Background(), "1", "  ", t0); !errors.Is(err, payments.ErrMissingEvidence) {
		t.Errorf("SubmitClaim() empty evidence error = %v, want ErrMissingEvidence", err)
	}
	if _, err := w.SubmitClaim(context.Background(), "ghost", "receipt", t0); !errors.Is(err, payments.ErrAccountNotFound) {
		t.Errorf("SubmitClaim() unknown account error = %v, want ErrAccountNotFound", err)
	}
}

func TestWorkflow_ApproveTwiceIsNoOp(t *testing.T) {
	store := memory.New()
	seed(t, store, subscription.Account{ID: "1", Status: subscription.StatusExpired})
	w, notifier := newWorkflow(t, store)

	notifier.EXPECT().NotifyReviewerOfClaim(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	notifier.EXPECT().NotifyApproved(gomock.Any(), "1", t0.Add(30*day)).Return(nil).Times(1)

	sub, err := w.SubmitClaim(context.Background(), "1", "receipt-1", t0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.ApproveClaim(context.Background(), sub.Claim.ID, reviewerID, t0); err != nil {
		t.Fatal(err)
	}

	_, err = w.ApproveClaim(context.Background(), sub.Claim.ID, reviewerID, t0.Add(time.Minute))
	if !errors.Is(err, payments.ErrClaimNotFound) {
		t.Fatalf("second ApproveClaim() error = %v, want ErrClaimNotFound", err)
	}
	if got := endOf(t, store, "1"); !got.Equal(t0.Add(30 * day)) {
		t.Errorf("end after second approval = %v, want %v", got, t0.Add(30*day))
	}
}

func TestWorkflow_ConcurrentApprovalsGrantOnce(t *testing.T) {
	store := memory.New()
	seed(t, store, subscription.Account{ID: "1", Status: subscription.StatusExpired})
	w, notifier := newWorkflow(t, store)

	notifier.EXPECT().NotifyReviewerOfClaim(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	notifier.EXPECT().NotifyApproved(gomock.Any(), "1", gomock.Any()).Return(nil).Times(1)

	sub, err := w.SubmitClaim(context.Background(), "1", "receipt-1", t0)
	if err != nil {
		t.Fatal(err)
	}

	const clicks = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		notFound  int
	)
	for i := 0; i < clicks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.ApproveClaim(context.Background(), sub.Claim.ID, reviewerID, t0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, payments.ErrClaimNotFound):
				notFound++
			default:
				t.Errorf("ApproveClaim() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || notFound != clicks-1 {
		t.Errorf("successes = %d, not found = %d, want 1 and %d", successes, notFound, clicks-1)
	}
	if got := endOf(t, store, "1"); !got.Equal(t0.Add(30 * day)) {
		t.Errorf("end = %v, want a single grant to %v", got, t0.Add(30*day))
	}
}

func TestWorkflow_ConcurrentSubmitsOpenOneClaim(t *testing.T) {
	store := memory.New()
	seed(t, store, subscription.Account{ID: "1", Status: subscription.StatusExpired})
	w, notifier := newWorkflow(t, store)

	notifier.EXPECT().NotifyReviewerOfClaim(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(1)

	const uploads = 10
	var (
		wg         sync.WaitGroup
		mu         sync.Mutex
		successes  int
		duplicates int
	)
	for i := 0; i < uploads; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.SubmitClaim(context.Background(), "1", fmt.Sprintf("receipt-%d", i), t0)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, payments.ErrDuplicatePendingClaim):
				duplicates++
			default:
				t.Errorf("SubmitClaim() unexpected error = %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 || duplicates != uploads-1 {
		t.Errorf("successes = %d, duplicates = %d, want 1 and %d", successes, duplicates, uploads-1)
	}
	pending, err := store.ListPending(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 {
		t.Errorf("pending claims = %d, want 1", len(pending))
	}
	has, err := w.HasPending(context.Background(), "1")
	if err != nil || !has {
		t.Errorf("HasPending() = %v, %v, want true", has, err)
	}
}

func TestWorkflow_PaymentScenarios(t *testing.T) {
	type payment struct {
		at      time.Time
		wantEnd time.Time
	}
	tests := []struct {
		name     string
		account  subscription.Account
		payments []payment
	}{
		{
			name:    "Renewal ten days in stacks onto the running window",
			account: subscription.Account{ID: "A", Status: subscription.StatusExpired},
			payments: []payment{
				{at: t0, wantEnd: t0.Add(30 * day)},
				{at: t0.Add(10 * day), wantEnd: t0.Add(60 * day)},
			},
		},
		{
			name: "Lapsed window restarts from approval time",
			account: subscription.Account{
				ID:              "B",
				Status:          subscription.StatusExpired,
				SubscriptionEnd: ptr(t0.Add(-5 * day)),
			},
			payments: []payment{
				{at: t0, wantEnd: t0.Add(30 * day)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			seed(t, store, tt.account)
			w, notifier := newWorkflow(t, store)

			for _, p := range tt.payments {
				notifier.EXPECT().NotifyReviewerOfClaim(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
				notifier.EXPECT().NotifyApproved(gomock.Any(), tt.account.ID, p.wantEnd).Return(nil)

				sub, err := w.SubmitClaim(context.Background(), tt.account.ID, "receipt", p.at)
				if err != nil {
					t.Fatal(err)
				}
				d, err := w.ApproveClaim(context.Background(), sub.Claim.ID, reviewerID, p.at)
				if err != nil {
					t.Fatal(err)
				}
				if !d.NewEnd().Equal(p.wantEnd) {
					t.Errorf("approval at %v: new end = %v, want %v", p.at, d.NewEnd(), p.wantEnd)
				}
				if got := endOf(t, store, tt.account.ID); !got.Equal(p.wantEnd) {
					t.Errorf("stored end = %v, want %v", got, p.wantEnd)
				}
			}

			a, err := store.GetByID(context.Background(), tt.account.ID)
			if err != nil {
				t.Fatal(err)
			}
			last := tt.payments[len(tt.payments)-1]
			if !subscription.CanAccess(*a, last.at) {
				t.Errorf("account %s denied right after approval", tt.account.ID)
			}
			if subscription.CanAccess(*a, last.wantEnd) {
				t.Errorf("account %s still allowed at its end %v", tt.account.ID, last.wantEnd)
			}
		})
	}
}

func TestWorkflow_Unauthorized(t *testing.T) {
	store := memory.New()
	seed(t, store, subscription.Account{ID: "1", Status: subscription.StatusExpired})
	w, notifier := newWorkflow(t, store)

	notifier.EXPECT().NotifyReviewerOfClaim(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	sub, err := w.SubmitClaim(context.Background(), "1", "receipt-1", t0)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		call func() error
	}{
		{"Approve", func() error {
			_, err := w.ApproveClaim(context.Background(), sub.Claim.ID, "1", t0)
			return err
		}},
		{"Reject", func() error {
			_, err := w.RejectClaim(context.Background(), sub.Claim.ID, "", "", t0)
			return err
		}},
		{"Approve missing claim", func() error {
			_, err := w.ApproveClaim(context.Background(), 9999, "intruder", t0)
			return err
		}},
		{"Pending", func() error {
			_, err := w.Pending(context.Background(), "1", 10)
			return err
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, payments.ErrUnauthorized) {
				t.Errorf("error = %v, want ErrUnauthorized", err)
			}
		})
	}

	claim, err := store.GetClaim(context.Background(), sub.Claim.ID)
	if err != nil {
		t.Fatal(err)
	}
	if claim.Status != payments.ClaimPending {
		t.Errorf("claim status = %v, want pending", claim.Status)
	}
}

func TestWorkflow_RejectKeepsWindow(t *testing.T) {
	store := memory.New()
	end := t0.Add(5 * day)
	seed(t, store, subscription.Account{ID: "1", Status: subscription.StatusActive, SubscriptionEnd: &end})
	w, notifier := newWorkflow(t, store)

	notifier.EXPECT().NotifyReviewerOfClaim(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	notifier.EXPECT().NotifyRejected(gomock.Any(), "1", "wrong amount").Return(nil)

	sub, err := w.SubmitClaim(context.Background(), "1", "receipt-1", t0)
	if err != nil {
		t.Fatal(err)
	}
	decision, err := w.RejectClaim(context.Background(), sub.Claim.ID, reviewerID, "wrong amount", t0)
	if err != nil {
		t.Fatal(err)
	}
	if decision.Claim.Status != payments.ClaimRejected {
		t.Errorf("claim status = %v, want rejected", decision.Claim.Status)
	}
	if got := endOf(t, store, "1"); !got.Equal(end) {
		t.Errorf("end = %v, want unchanged %v", got, end)
	}

	if _, err := w.ApproveClaim(context.Background(), sub.Claim.ID, reviewerID, t0); !errors.Is(err, payments.ErrClaimNotFound) {
		t.Errorf("ApproveClaim() after reject error = %v, want ErrClaimNotFound", err)
	}
}

func TestWorkflow_DeliveryFailureKeepsGrant(t *testing.T) {
	store := memory.New()
	seed(t, store, subscription.Account{ID: "1", Status: subscription.StatusExpired})
	w, notifier := newWorkflow(t, store)

	notifier.EXPECT().NotifyReviewerOfClaim(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("reviewer dm closed"))
	notifier.EXPECT().NotifyApproved(gomock.Any(), "1", gomock.Any()).Return(errors.New("user blocked bot"))

	sub, err := w.SubmitClaim(context.Background(), "1", "receipt-1", t0)
	if err != nil {
		t.Fatalf("SubmitClaim() error = %v", err)
	}
	if !errors.Is(sub.DeliveryErr, payments.ErrNotificationDeliveryFailed) {
		t.Errorf("submission delivery error = %v, want ErrNotificationDeliveryFailed", sub.DeliveryErr)
	}

	decision, err := w.ApproveClaim(context.Background(), sub.Claim.ID, reviewerID, t0)
	if err != nil {
		t.Fatalf("ApproveClaim() error = %v", err)
	}
	if !errors.Is(decision.DeliveryErr, payments.ErrNotificationDeliveryFailed) {
		t.Errorf("decision delivery error = %v, want ErrNotificationDeliveryFailed", decision.DeliveryErr)
	}
	if got := endOf(t, store, "1"); !got.Equal(t0.Add(30 * day)) {
		t.Errorf("end = %v, want grant kept despite delivery failure", got)
	}
}

func TestReviewers(t *testing.T) {
	r := payments.NewReviewers("100", " 200 ", "")
	tests := []struct {
		id   string
		want bool
	}{
		{"100", true},
		{"200", true},
		{"", false},
		{"1000", false},
		{"10", false},
	}
	for _, tt := range tests {
		if got := r.IsReviewer(tt.id); got != tt.want {
			t.Errorf("IsReviewer(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}

func ptr(t time.Time) *time.Time { return &t }
