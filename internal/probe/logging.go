package probe

import (
	"context"
	"log/slog"

	"github.com/alechenninger/keymint/internal/service"
	"github.com/alechenninger/keymint/internal/store"
)

// loggingObserver logs key lifecycle events using structured logging with
// slog. It records identifiers and metadata only, never key material.
type loggingObserver struct {
	logger *slog.Logger
}

// NewLoggingObserver creates an observer that logs lifecycle events
func NewLoggingObserver(logger *slog.Logger) service.Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggingObserver{
		logger: logger,
	}
}

func (o *loggingObserver) KeyIssued(ctx context.Context, rec *store.KeyRecord) {
	o.logger.LogAttrs(ctx, slog.LevelInfo, "Key issued", recordAttrs(rec)...)
}

func (o *loggingObserver) KeyRotated(ctx context.Context, rec *store.KeyRecord, deactivated int) {
	attrs := append(recordAttrs(rec), slog.Int("deactivated_previous", deactivated))
	o.logger.LogAttrs(ctx, slog.LevelInfo, "Key rotated", attrs...)
}

func (o *loggingObserver) KeyDisabled(ctx context.Context, tenantID string, keyID int64) {
	o.logger.LogAttrs(ctx, slog.LevelInfo, "Key disabled",
		slog.String("tenant_id", tenantID),
		slog.Int64("key_id", keyID),
	)
}

func recordAttrs(rec *store.KeyRecord) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tenant_id", rec.TenantID),
		slog.Int64("key_id", rec.KeyID),
		slog.String("algorithm", rec.Algorithm),
		slog.Time("expires_at", rec.ExpiresAt),
	}
	if rec.KeySize != 0 {
		attrs = append(attrs, slog.Int("key_size", rec.KeySize))
	}
	if rec.Curve != "" {
		attrs = append(attrs, slog.String("curve", rec.Curve))
	}
	return attrs
}
