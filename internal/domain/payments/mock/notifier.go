package mock

import (
	context "context"
	reflect "reflect"
	time "time"

	payments "github.com/ellavondegurechaff/kinobot/internal/domain/payments"
	subscription "github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
	gomock "go.uber.org/mock/gomock"
)

// MockNotifier is a mock of Notifier interface.
type MockNotifier struct {
	ctrl     *gomock.Controller
	recorder *MockNotifierMockRecorder
	isgomock struct{}
}

// MockNotifierMockRecorder is the mock recorder for MockNotifier.
type MockNotifierMockRecorder struct {
	mock *MockNotifier
}

// NewMockNotifier creates a new mock instance.
func NewMockNotifier(ctrl *gomock.Controller) *MockNotifier {
	mock := &MockNotifier{ctrl: ctrl}
	mock.recorder = &MockNotifierMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockNotifier) EXPECT() *MockNotifierMockRecorder {
	return m.recorder
}

// NotifyApproved mocks base method.
func (m *MockNotifier) NotifyApproved(ctx context.Context, accountID string, newEnd time.Time) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "NotifyApproved", ctx, accountID, newEnd)
	ret0, _ := ret[0].(error)
	return ret0
}

// NotifyApproved indicates an expected call of NotifyApproved.
func (mr *MockNotifierMockRecorder) NotifyApproved(ctx, accountID, newEnd any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "NotifyApproved", reflect.TypeOf((*MockNotifier)(nil).NotifyApproved), ctx, accountID, newEnd)
}

// NotifyRejected mocks base method.
func (m *MockNotifier) NotifyRejected(ctx context.Context, accountID, note string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "NotifyRejected", ctx, accountID, note)
	ret0, _ := ret[0].(error)
	return ret0
}

// NotifyRejected indicates an expected call of NotifyRejected.
func (mr *MockNotifierMockRecorder) NotifyRejected(ctx, accountID, note any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "NotifyRejected", reflect.TypeOf((*MockNotifier)(nil).NotifyRejected), ctx, accountID, note)
}

// NotifyReviewerOfClaim mocks base method.
func (m *MockNotifier) NotifyReviewerOfClaim(ctx context.Context, claim payments.Claim, account subscription.Account) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "NotifyReviewerOfClaim", ctx, claim, account)
	ret0, _ := ret[0].(error)
	return ret0
}

// NotifyReviewerOfClaim indicates an expected call of NotifyReviewerOfClaim.
func (mr *MockNotifierMockRecorder) NotifyReviewerOfClaim(ctx, claim, account any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "NotifyReviewerOfClaim", reflect.TypeOf((*MockNotifier)(nil).NotifyReviewerOfClaim), ctx, claim, account)
}
