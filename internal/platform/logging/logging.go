package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/MrKriegler/policy-admin/internal/core"
)

// New builds the process logger. Production writes JSON at info, everything
// else writes text at debug. A non-empty level overrides the default.
func New(env, level string) *slog.Logger {
	return slog.New(NewHandler(os.Stdout, env, level)).With("service", "policy-admin")
}

func NewHandler(w io.Writer, env, level string) slog.Handler {
	var handler slog.Handler

	switch env {
	case "prod", "production":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     parseLevel(level, slog.LevelInfo),
			AddSource: true,
		})
	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     parseLevel(level, slog.LevelDebug),
			AddSource: true,
		})
	}

	return ActorHandler{Handler: handler}
}

func parseLevel(s string, fallback slog.Level) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return fallback
	}
	return lvl
}

// ActorHandler stamps records logged with a context on behalf of an
// authenticated caller with tenant_id and user_id.
type ActorHandler struct {
	slog.Handler
}

func (h ActorHandler) Handle(ctx context.Context, r slog.Record) error {
	if a := core.ActorFromContext(ctx); a.TenantID != "" || a.UserID != "" {
		r.AddAttrs(slog.String("actor_tenant_id", a.TenantID), slog.String("user_id", a.UserID))
	}
	return h.Handler.Handle(ctx, r)
}

func (h ActorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return ActorHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h ActorHandler) WithGroup(name string) slog.Handler {
	return ActorHandler{Handler: h.Handler.WithGroup(name)}
}
