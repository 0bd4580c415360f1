package bot

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"coinwatch/internal/telegram"
)

// API is the part of the Telegram client the poller uses.
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]telegram.Update, error)
	SendMessage(ctx context.Context, msg telegram.SendMessageRequest) error
}

type PollerConfig struct {
	PollTimeoutSec int
	MaxConcurrency int
	// CommandTimeout bounds one command from dispatch to reply.
	CommandTimeout time.Duration
	// RetryDelay is the pause after a failed getUpdates call.
	RetryDelay time.Duration
}

// Poller long-polls Telegram and runs commands concurrently.
type Poller struct {
	api API
	h   *Handler
	log *slog.Logger
	cfg PollerConfig
}

func NewPoller(api API, h *Handler, log *slog.Logger, cfg PollerConfig) *Poller {
	if log == nil {
		log = slog.Default()
	}
	if cfg.MaxConcurrency <= 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = time.Minute
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 3 * time.Second
	}
	return &Poller{api: api, h: h, log: log, cfg: cfg}
}

// Run polls until ctx is canceled, then waits for in-flight commands.
func (p *Poller) Run(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(p.cfg.MaxConcurrency)
	defer g.Wait()

	var offset int64
	for {
		if ctx.Err() != nil {
			return nil
		}
		updates, err := p.api.GetUpdates(ctx, offset, p.cfg.PollTimeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.log.Warn("getUpdates failed", slog.Any("error", err), slog.Duration("retry_in", p.cfg.RetryDelay))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.cfg.RetryDelay):
			}
			continue
		}
		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			msg := u.Message
			if msg == nil {
				continue
			}
			cmd, args, ok := ParseCommand(msg.Text)
			if !ok {
				continue
			}
			req := Request{Command: cmd, Args: args}
			if msg.From != nil {
				req.User = msg.From.Username
				req.UserID = msg.From.ID
				req.FirstName = msg.From.FirstName
			}
			// Commands outlive a canceled poll loop; a late reply is harmless.
			cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.CommandTimeout)
			g.Go(func() error {
				defer cancel()
				p.process(cctx, msg, req)
				return nil
			})
		}
	}
}

func (p *Poller) process(ctx context.Context, msg *telegram.Message, req Request) {
	start := time.Now()
	reply := p.h.Handle(ctx, req)

	out := telegram.SendMessageRequest{
		ChatID:           msg.Chat.ID,
		Text:             reply.Text,
		ReplyToMessageID: msg.MessageID,
	}
	if reply.HTML {
		out.ParseMode = telegram.ParseModeHTML
	}
	if err := p.api.SendMessage(ctx, out); err != nil {
		p.log.Warn("sendMessage failed", slog.String("command", req.Command), slog.Int64("chat_id", msg.Chat.ID), slog.Any("error", err))
		return
	}
	p.log.Debug("command handled",
		slog.String("command", req.Command),
		slog.String("user", req.User),
		slog.Duration("took", time.Since(start)),
	)
}
