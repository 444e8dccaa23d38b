package telegram

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ellavondegurechaff/kinobot/internal/domain/catalog"
	"github.com/ellavondegurechaff/kinobot/internal/domain/payments"
	"github.com/ellavondegurechaff/kinobot/internal/domain/subscription"
	"github.com/ellavondegurechaff/kinobot/internal/gateways/memory"
	"github.com/ellavondegurechaff/kinobot/internal/gateways/telegrambot"
	"github.com/ellavondegurechaff/kinobot/kinobot/services"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userID     int64 = 555
	reviewerID int64 = 10
)

type fakeAPI struct {
	mu   sync.Mutex
	sent []tgbotapi.Chattable
}

func (f *fakeAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: len(f.sent)}, nil
}

func (f *fakeAPI) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	if _, err := f.Send(c); err != nil {
		return nil, err
	}
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeAPI) drain() []tgbotapi.Chattable {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sent
	f.sent = nil
	return out
}

// textsTo returns the plain text messages sent to chatID.
func textsTo(sent []tgbotapi.Chattable, chatID int64) []string {
	var out []string
	for _, c := range sent {
		if m, ok := c.(tgbotapi.MessageConfig); ok && m.ChatID == chatID {
			out = append(out, m.Text)
		}
	}
	return out
}

type catalogStub struct{}

var movie = &catalog.Item{ID: 1, Title: "O'tkan kunlar", Year: 1969, Code: "12", FileRef: "BAACAgIAAxkBAAIB"}

func (catalogStub) GetByID(context.Context, int64) (*catalog.Item, error) { return movie, nil }
func (catalogStub) GetByCode(_ context.Context, code string) (*catalog.Item, error) {
	if code == movie.Code {
		return movie, nil
	}
	return nil, catalog.ErrItemNotFound
}
func (catalogStub) SearchByTitle(context.Context, string, int) ([]*catalog.Item, error) {
	return nil, nil
}
func (catalogStub) ListTitles(context.Context) ([]catalog.Title, error) { return nil, nil }
func (catalogStub) Upsert(context.Context, []*catalog.Item) (int, error) { return 0, nil }

func newBot(t *testing.T, now time.Time) (*Bot, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{}
	store := memory.New()
	receipts := services.NewReceipts(nil)
	notifier := telegrambot.NewNotifier(api, []string{"10"}, receipts)

	workflow, err := payments.NewWorkflow(store, payments.NewReviewers("10"), notifier, subscription.DefaultGrant)
	require.NoError(t, err)
	cat, err := catalog.NewService(catalogStub{}, 8)
	require.NoError(t, err)
	accounts := subscription.NewService(store)

	return &Bot{
		API:       api,
		Accounts:  accounts,
		Workflow:  workflow,
		Library:   services.NewLibrary(accounts, cat),
		Receipts:  receipts,
		GrantDays: 30,
		Now:       func() time.Time { return now },
	}, api
}

func message(from int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		From: &tgbotapi.User{ID: from, FirstName: "Jasur"},
		Chat: &tgbotapi.Chat{ID: from, Type: "private"},
		Text: text,
	}}
}

func TestBot_PaymentFlow(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	b, api := newBot(t, now)
	ctx := context.Background()

	b.HandleUpdate(ctx, message(userID, "/start"))
	assert.Contains(t, textsTo(api.drain(), userID)[0], "No subscription yet")

	b.HandleUpdate(ctx, message(userID, "12"))
	assert.Contains(t, textsTo(api.drain(), userID)[0], "active subscription")

	receipt := message(userID, "")
	receipt.Message.Photo = []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}}
	b.HandleUpdate(ctx, receipt)

	sent := api.drain()
	assert.Contains(t, textsTo(sent, userID)[0], "Claim #1")
	var forwarded *tgbotapi.PhotoConfig
	for _, c := range sent {
		if p, ok := c.(tgbotapi.PhotoConfig); ok {
			forwarded = &p
		}
	}
	require.NotNil(t, forwarded)
	assert.Equal(t, reviewerID, forwarded.ChatID)
	assert.Equal(t, tgbotapi.FileID("large"), forwarded.File)

	resolved := 0
	b.FileURL = func(string) (string, error) {
		resolved++
		return "", nil
	}
	b.HandleUpdate(ctx, receipt)
	b.HandleUpdate(ctx, receipt)
	dup := textsTo(api.drain(), userID)
	require.Len(t, dup, 2)
	assert.Contains(t, dup[0], "already have a payment under review")
	assert.Zero(t, resolved, "receipt files resolved for a duplicate submission")
	b.FileURL = nil

	callback := tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb1",
		From:    &tgbotapi.User{ID: reviewerID},
		Data:    telegrambot.CallbackApprove + "1",
		Message: &tgbotapi.Message{MessageID: 7, Chat: &tgbotapi.Chat{ID: reviewerID, Type: "private"}},
	}}
	b.HandleUpdate(ctx, callback)

	sent = api.drain()
	assert.Contains(t, textsTo(sent, userID)[0], "31.08.2026 09:00 UTC")
	assert.Contains(t, textsTo(sent, reviewerID)[0], "approved")
	var cleared bool
	for _, c := range sent {
		if _, ok := c.(tgbotapi.EditMessageReplyMarkupConfig); ok {
			cleared = true
		}
	}
	assert.True(t, cleared)

	b.HandleUpdate(ctx, callback)
	assert.Contains(t, textsTo(api.drain(), reviewerID)[0], "already processed")

	b.HandleUpdate(ctx, message(userID, "12"))
	sent = api.drain()
	require.Len(t, sent, 1)
	video, ok := sent[0].(tgbotapi.VideoConfig)
	require.True(t, ok)
	assert.Equal(t, tgbotapi.FileID(movie.FileRef), video.File)
	assert.True(t, strings.HasPrefix(video.Caption, "O'tkan kunlar (1969)"))
}

func TestBot_ReviewerCommands(t *testing.T) {
	now := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	b, api := newBot(t, now)
	ctx := context.Background()

	b.HandleUpdate(ctx, message(userID, "/pending"))
	assert.Contains(t, textsTo(api.drain(), userID)[0], "Only reviewers")

	doc := message(userID, "")
	doc.Message.Document = &tgbotapi.Document{FileID: "doc1", FileName: "check.pdf", MimeType: "application/pdf"}
	b.HandleUpdate(ctx, doc)
	api.drain()

	b.HandleUpdate(ctx, message(reviewerID, "/pending"))
	pending := textsTo(api.drain(), reviewerID)
	require.Len(t, pending, 1)
	assert.Contains(t, pending[0], "tg:doc1")

	b.HandleUpdate(ctx, message(reviewerID, "/reject 1 amount does not match"))
	sent := api.drain()
	assert.Contains(t, textsTo(sent, userID)[0], "Reason: amount does not match")
	assert.Contains(t, textsTo(sent, reviewerID)[0], "rejected")

	b.HandleUpdate(ctx, message(reviewerID, "/approve x"))
	assert.Equal(t, []string{"Invalid claim number"}, textsTo(api.drain(), reviewerID))
}

func TestBot_RunStopsOnCancel(t *testing.T) {
	b, api := newBot(t, time.Now())
	updates := make(chan tgbotapi.Update, 1)
	updates <- message(userID, "/status")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx, updates)
		close(done)
	}()

	require.Eventually(t, func() bool {
		api.mu.Lock()
		defer api.mu.Unlock()
		return len(api.sent) > 0
	}, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
