// Package bot maps chat commands onto the price and watchlist operations.
package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"coinwatch/internal/aggregate"
	"coinwatch/internal/coin"
	"coinwatch/internal/provider"
)

// Service is what the commands need from the aggregation layer.
type Service interface {
	Coin(ctx context.Context, symbol coin.Symbol) (string, error)
	Top(ctx context.Context) (string, error)
	Watchlist(ctx context.Context, user string) (string, error)
	AddCoin(ctx context.Context, user string, symbol coin.Symbol) error
	RemoveCoin(ctx context.Context, user string, symbol coin.Symbol) (bool, error)
}

// Request is one parsed command from a chat.
type Request struct {
	Command string
	Args    []string
	// User is the caller's chat username and keys the watchlist.
	User      string
	UserID    int64
	FirstName string
}

// Reply is the text to send back. HTML replies use Telegram's HTML mode.
type Reply struct {
	Text string
	HTML bool
}

// UsageError is a caller-correctable mistake such as a missing argument.
type UsageError struct {
	Usage string
}

func (e *UsageError) Error() string { return "Usage: " + e.Usage }

var errNoUsername = errors.New("caller has no username")

const (
	msgNoUsername  = "You need a username to use this command."
	msgNoWatchlist = "You don't have a watchlist. Use /addcoin to start one."
	msgUpstream    = "The price service is unavailable right now. Please try again later."
	msgInternal    = "Something went wrong. Please try again later."
	msgUnknownCmd  = "Unknown command. Use /help to see what I can do."

	helpText = `Available commands:
/get <COIN TOKEN> - current price and 24h change of a coin
/gettop - prices of high market cap coins
/addcoin <COIN TOKEN> - add a coin to your watchlist
/removecoin <COIN TOKEN> - remove a coin from your watchlist
/watchlist - prices of the coins on your watchlist
/help - show this message`
)

// ParseCommand splits "/get@SomeBot btc" into ("get", ["btc"]). ok is false
// when text is not a command.
func ParseCommand(text string) (cmd string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	cmd = strings.TrimPrefix(fields[0], "/")
	if at := strings.IndexByte(cmd, '@'); at >= 0 {
		cmd = cmd[:at]
	}
	if cmd == "" {
		return "", nil, false
	}
	return strings.ToLower(cmd), fields[1:], true
}

type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

// Handle runs a command and always produces a user-facing reply.
func (h *Handler) Handle(ctx context.Context, req Request) Reply {
	reply, err := h.run(ctx, req)
	if err != nil {
		return h.errorReply(req, err)
	}
	return reply
}

func (h *Handler) run(ctx context.Context, req Request) (Reply, error) {
	switch req.Command {
	case "start":
		name := req.FirstName
		if name == "" {
			name = req.User
		}
		return Reply{
			Text: fmt.Sprintf(`Hi <a href="tg://user?id=%d">%s</a>! Use /help to see what I can do.`, req.UserID, html.EscapeString(name)),
			HTML: true,
		}, nil

	case "help":
		return Reply{Text: helpText}, nil

	case "get":
		sym, err := symbolArg(req, "/get <COIN TOKEN>")
		if err != nil {
			return Reply{}, err
		}
		out, err := h.svc.Coin(ctx, sym)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: out, HTML: true}, nil

	case "gettop":
		out, err := h.svc.Top(ctx)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: out, HTML: true}, nil

	case "addcoin":
		sym, err := symbolArg(req, "/addcoin <COIN TOKEN>")
		if err != nil {
			return Reply{}, err
		}
		if req.User == "" {
			return Reply{}, errNoUsername
		}
		if err := h.svc.AddCoin(ctx, req.User, sym); err != nil {
			return Reply{}, err
		}
		return Reply{Text: fmt.Sprintf("%s added to watchlist.", sym)}, nil

	case "removecoin":
		sym, err := symbolArg(req, "/removecoin <COIN TOKEN>")
		if err != nil {
			return Reply{}, err
		}
		if req.User == "" {
			return Reply{}, errNoUsername
		}
		removed, err := h.svc.RemoveCoin(ctx, req.User, sym)
		if err != nil {
			return Reply{}, err
		}
		if !removed {
			return Reply{Text: fmt.Sprintf("You do not have %s in your watchlist.", sym)}, nil
		}
		return Reply{Text: fmt.Sprintf("%s removed from watchlist.", sym)}, nil

	case "watchlist":
		if req.User == "" {
			return Reply{}, errNoUsername
		}
		out, err := h.svc.Watchlist(ctx, req.User)
		if err != nil {
			return Reply{}, err
		}
		return Reply{Text: out, HTML: true}, nil
	}
	return Reply{Text: msgUnknownCmd}, nil
}

func symbolArg(req Request, usage string) (coin.Symbol, error) {
	if len(req.Args) == 0 {
		return "", &UsageError{Usage: usage}
	}
	return coin.Parse(req.Args[0])
}

func firstArg(req Request) string {
	if len(req.Args) == 0 {
		return ""
	}
	return req.Args[0]
}

func (h *Handler) errorReply(req Request, err error) Reply {
	var usage *UsageError
	var se *provider.SymbolError
	switch {
	case errors.As(err, &usage):
		return Reply{Text: usage.Error()}
	case errors.Is(err, errNoUsername):
		return Reply{Text: msgNoUsername}
	case errors.Is(err, coin.ErrInvalidSymbol):
		return Reply{Text: fmt.Sprintf("%s is not a valid coin token.", firstArg(req))}
	case errors.Is(err, aggregate.ErrNoWatchlist):
		return Reply{Text: msgNoWatchlist}
	case errors.Is(err, provider.ErrUnknownSymbol) && errors.As(err, &se):
		return Reply{Text: fmt.Sprintf("%s not found.", se.Symbol)}
	case errors.Is(err, aggregate.ErrDivisionUndefined) && errors.As(err, &se):
		return Reply{Text: fmt.Sprintf("Cannot compute the 24h change of %s: its current price is zero.", se.Symbol)}
	case errors.Is(err, provider.ErrUpstreamUnavailable):
		h.log.Warn("price source unavailable", slog.String("command", req.Command), slog.Any("error", err))
		return Reply{Text: msgUpstream}
	}
	h.log.Error("command failed", slog.String("command", req.Command), slog.String("user", req.User), slog.Any("error", err))
	return Reply{Text: msgInternal}
}
