package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"NewsDigest/internal/domain"
	"NewsDigest/internal/ports"
)

// Channel pairs a notifier with the name it is configured under.
type Channel struct {
	Name     string
	Notifier ports.Notifier
}

// Fanout delivers each digest to every channel. Delivery succeeds only when
// all channels accept it, so a partial failure is retried on every channel.
type Fanout struct {
	channels []Channel
	logger   *slog.Logger
}

var _ ports.Notifier = (*Fanout)(nil)

// NewFanout combines channels in the given order.
func NewFanout(log *slog.Logger, channels ...Channel) *Fanout {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Fanout{channels: channels, logger: log}
}

// Deliver tries every channel and joins the failures.
func (f *Fanout) Deliver(ctx context.Context, d domain.Digest) error {
	if len(f.channels) == 0 {
		return &domain.DeliveryError{Err: errors.New("no notification channels")}
	}

	var errs []error
	for _, ch := range f.channels {
		if err := ch.Notifier.Deliver(ctx, d); err != nil {
			f.logger.Error("channel delivery failed", "channel", ch.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", ch.Name, err))
			continue
		}
		f.logger.Info("channel delivered", "channel", ch.Name, "records", len(d.Records))
	}

	if len(errs) > 0 {
		return &domain.DeliveryError{Err: errors.Join(errs...)}
	}
	return nil
}
