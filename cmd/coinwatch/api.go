package main

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"coinwatch/internal/aggregate"
	"coinwatch/internal/coin"
	"coinwatch/internal/provider"
)

const maxSymbols = 100

// reporter is the part of aggregate.Service the HTTP API serves.
type reporter interface {
	Currency() string
	Rows(ctx context.Context, symbols []coin.Symbol) ([]aggregate.Row, error)
	TopRows(ctx context.Context) ([]aggregate.Row, error)
}

type rowJSON struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	ChangePercent decimal.Decimal `json:"change_percent"`
}

type rowsResponse struct {
	Currency string    `json:"currency"`
	Rows     []rowJSON `json:"rows"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type api struct {
	svc     reporter
	log     *slog.Logger
	timeout time.Duration
}

func (a *api) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /api/prices", a.handlePrices)
	mux.HandleFunc("GET /api/top", a.handleTop)
	return withRequestID(a.log, withJSONHeaders(withGzip(recoverPanic(a.log, mux))))
}

func (a *api) handlePrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("symbols")
	if strings.TrimSpace(q) == "" {
		writeError(w, http.StatusBadRequest, "missing symbols query param")
		return
	}
	raw := splitCSV(q)
	if len(raw) > maxSymbols {
		writeError(w, http.StatusBadRequest, "too many symbols")
		return
	}
	symbols, err := coin.ParseAll(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := a.bound(r.Context())
	defer cancel()
	rows, err := a.svc.Rows(ctx, symbols)
	a.writeRows(w, r, rows, err)
}

func (a *api) handleTop(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := a.bound(r.Context())
	defer cancel()
	rows, err := a.svc.TopRows(ctx)
	a.writeRows(w, r, rows, err)
}

func (a *api) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.timeout)
}

func (a *api) writeRows(w http.ResponseWriter, r *http.Request, rows []aggregate.Row, err error) {
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			a.log.Warn("price request failed",
				slog.String("path", r.URL.Path),
				slog.String("request_id", w.Header().Get("X-Request-ID")),
				slog.Any("error", err),
			)
		}
		writeError(w, status, err.Error())
		return
	}
	resp := rowsResponse{Currency: a.svc.Currency(), Rows: make([]rowJSON, 0, len(rows))}
	for _, row := range rows {
		resp.Rows = append(resp.Rows, rowJSON{
			Symbol:        string(row.Symbol),
			Price:         row.Price,
			ChangePercent: row.Change.Round(2),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, coin.ErrInvalidSymbol), errors.Is(err, aggregate.ErrEmptyRequest):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrUnknownSymbol):
		return http.StatusNotFound
	case errors.Is(err, aggregate.ErrDivisionUndefined):
		return http.StatusUnprocessableEntity
	case errors.Is(err, provider.ErrUpstreamUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// withRequestID tags every response with X-Request-ID, keeping a caller
// supplied value when present.
func withRequestID(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug("http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("request_id", id),
			slog.Duration("took", time.Since(start)),
		)
	})
}

func withJSONHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// withGzip compresses the response when the client accepts gzip.
func withGzip(next http.Handler) http.Handler {
	var gzPool = sync.Pool{New: func() any {
		w, _ := gzip.NewWriterLevel(io.Discard, gzip.BestSpeed)
		return w
	}}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next.ServeHTTP(w, r)
			return
		}
		gz := gzPool.Get().(*gzip.Writer)
		gz.Reset(w)
		defer func() {
			_ = gz.Close()
			gz.Reset(io.Discard)
			gzPool.Put(gz)
		}()
		w.Header().Set("Content-Encoding", "gzip")
		w.Header().Add("Vary", "Accept-Encoding")
		next.ServeHTTP(gzipResponseWriter{ResponseWriter: w, Writer: gz}, r)
	})
}

type gzipResponseWriter struct {
	http.ResponseWriter
	Writer io.Writer
}

func (g gzipResponseWriter) Write(b []byte) (int, error) {
	return g.Writer.Write(b)
}

func recoverPanic(log *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Error("handler panic", slog.String("path", r.URL.Path), slog.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
