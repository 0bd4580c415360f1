package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"coinwatch/internal/telegram"
)

type fakeAPI struct {
	mu      sync.Mutex
	batches [][]telegram.Update
	failN   int
	offsets []int64
	sent    []telegram.SendMessageRequest
	drained chan struct{}
}

func (f *fakeAPI) GetUpdates(ctx context.Context, offset int64, _ int) ([]telegram.Update, error) {
	f.mu.Lock()
	f.offsets = append(f.offsets, offset)
	if f.failN > 0 {
		f.failN--
		f.mu.Unlock()
		return nil, errors.New("bad gateway")
	}
	if len(f.batches) > 0 {
		b := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return b, nil
	}
	f.mu.Unlock()
	select {
	case f.drained <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeAPI) SendMessage(_ context.Context, msg telegram.SendMessageRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func runPoller(t *testing.T, api *fakeAPI, svc Service) {
	t.Helper()

	p := NewPoller(api, NewHandler(svc, quietLogger()), quietLogger(), PollerConfig{
		MaxConcurrency: 2,
		RetryDelay:     time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	select {
	case <-api.drained:
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not drain updates")
	}
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPoller_RepliesToCommands(t *testing.T) {
	t.Parallel()

	// Arrange
	api := &fakeAPI{
		drained: make(chan struct{}, 1),
		batches: [][]telegram.Update{{
			{UpdateID: 10, Message: &telegram.Message{
				MessageID: 1, Chat: telegram.Chat{ID: 100}, Text: "/get btc",
				From: &telegram.User{ID: 7, Username: "ann"},
			}},
			{UpdateID: 11, Message: &telegram.Message{
				MessageID: 2, Chat: telegram.Chat{ID: 100}, Text: "just chatting",
			}},
			{UpdateID: 12},
		}},
	}
	svc := &fakeService{coinOut: "<pre>btc</pre>"}

	// Act
	runPoller(t, api, svc)

	// Assert
	require.Equal(t, []int64{0, 13}, api.offsets)
	require.Equal(t, []telegram.SendMessageRequest{{
		ChatID:           100,
		Text:             "<pre>btc</pre>",
		ParseMode:        telegram.ParseModeHTML,
		ReplyToMessageID: 1,
	}}, api.sent)
}

func TestPoller_PlainReplyHasNoParseMode(t *testing.T) {
	t.Parallel()

	// Arrange
	api := &fakeAPI{
		drained: make(chan struct{}, 1),
		batches: [][]telegram.Update{{
			{UpdateID: 1, Message: &telegram.Message{
				MessageID: 5, Chat: telegram.Chat{ID: 9}, Text: "/watchlist",
			}},
		}},
	}

	// Act
	runPoller(t, api, &fakeService{})

	// Assert
	require.Len(t, api.sent, 1)
	require.Equal(t, msgNoUsername, api.sent[0].Text)
	require.Empty(t, api.sent[0].ParseMode)
}

func TestPoller_RetriesAfterPollError(t *testing.T) {
	t.Parallel()

	// Arrange
	api := &fakeAPI{
		drained: make(chan struct{}, 1),
		failN:   2,
		batches: [][]telegram.Update{{
			{UpdateID: 3, Message: &telegram.Message{
				MessageID: 1, Chat: telegram.Chat{ID: 1}, Text: "/help",
			}},
		}},
	}

	// Act
	runPoller(t, api, &fakeService{})

	// Assert
	require.Equal(t, []int64{0, 0, 0, 4}, api.offsets)
	require.Len(t, api.sent, 1)
	require.Equal(t, helpText, api.sent[0].Text)
}
