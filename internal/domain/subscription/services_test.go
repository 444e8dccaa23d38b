package subscription_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription/mock"
	"go.uber.org/mock/gomock"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestService_Register(t *testing.T) {
	end := now.Add(48 * time.Hour)
	existing := &subscription.Account{ID: "42", Status: subscription.StatusActive, SubscriptionEnd: &end}

	tests := []struct {
		name        string
		setup       func(repo *mock.MockRepository)
		wantCreated bool
		wantStatus  subscription.Status
		wantErr     bool
	}{
		{
			name: "New account starts expired",
			setup: func(repo *mock.MockRepository) {
				repo.EXPECT().
					Create(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, a *subscription.Account) (bool, error) {
						if a.Status != subscription.StatusExpired || a.SubscriptionEnd != nil {
							t.Errorf("unexpected new account %+v", a)
						}
						return true, nil
					})
			},
			wantCreated: true,
			wantStatus:  subscription.StatusExpired,
		},
		{
			name: "Existing account is kept",
			setup: func(repo *mock.MockRepository) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(false, nil)
				repo.EXPECT().GetByID(gomock.Any(), "42").Return(existing, nil)
			},
			wantStatus: subscription.StatusActive,
		},
		{
			name: "Store failure",
			setup: func(repo *mock.MockRepository) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Return(false, errors.New("boom"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mock.NewMockRepository(gomock.NewController(t))
			tt.setup(repo)
			s := subscription.NewService(repo)

			got, created, err := s.Register(context.Background(), "42", "Ali", "ali", now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Service.Register() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if created != tt.wantCreated {
				t.Errorf("Service.Register() created = %v, want %v", created, tt.wantCreated)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Service.Register() status = %v, want %v", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestService_CheckReadsEveryTime(t *testing.T) {
	end := now.Add(time.Hour)
	repo := mock.NewMockRepository(gomock.NewController(t))
	gomock.InOrder(
		repo.EXPECT().GetByID(gomock.Any(), "7").
			Return(&subscription.Account{ID: "7", Status: subscription.StatusActive, SubscriptionEnd: &end}, nil),
		repo.EXPECT().GetByID(gomock.Any(), "7").
			Return(&subscription.Account{ID: "7", Status: subscription.StatusExpired, SubscriptionEnd: &end}, nil),
	)
	s := subscription.NewService(repo)

	first, err := s.Check(context.Background(), "7", now)
	if err != nil {
		t.Fatal(err)
	}
	if !first.Allowed {
		t.Errorf("first check denied, want allowed")
	}

	second, err := s.Check(context.Background(), "7", now)
	if err != nil {
		t.Fatal(err)
	}
	if second.Allowed {
		t.Errorf("second check allowed after demotion")
	}
}

func TestService_CheckMissingAccount(t *testing.T) {
	repo := mock.NewMockRepository(gomock.NewController(t))
	repo.EXPECT().GetByID(gomock.Any(), "404").Return(nil, subscription.ErrAccountNotFound)

	_, err := subscription.NewService(repo).Check(context.Background(), "404", now)
	if !errors.Is(err, subscription.ErrAccountNotFound) {
		t.Errorf("Service.Check() error = %v, want ErrAccountNotFound", err)
	}
}
