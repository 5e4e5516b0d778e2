package command

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/utafrali/reviews/internal/domain"
	"github.com/utafrali/reviews/internal/idempotency"
	"github.com/utafrali/reviews/pkg/logger"
)

// idempotencyScope keys records per user so two callers cannot collide on
// the same client token.
func idempotencyScope(cmd CreateReview) string {
	return cmd.UserID + ":" + cmd.IdempotencyKey
}

// Idempotency returns the review recorded for a command's idempotency key
// without calling next. Otherwise it calls next and records the key on
// success. Concurrent commands with the same key share a single call to next.
// Commands without a key pass straight through.
//
// The shared call runs on the context of the caller that started it. A waiting
// caller stops waiting when its own context ends, and retries when the shared
// call failed only because the caller that started it went away.
//
// A failed lookup is treated as "not seen" and a failed record is logged; the
// store never fails a command.
func Idempotency(store idempotency.Store, fallback *slog.Logger) Middleware[CreateReview, *domain.Review] {
	var group singleflight.Group

	return func(next HandlerFunc[CreateReview, *domain.Review]) HandlerFunc[CreateReview, *domain.Review] {
		return func(ctx context.Context, cmd CreateReview) (*domain.Review, error) {
			if cmd.IdempotencyKey == "" {
				return next(ctx, cmd)
			}
			key := idempotencyScope(cmd)
			l := logger.For(ctx, fallback)

			run := func() (any, error) {
				prior, found, err := store.Get(ctx, key)
				if err != nil {
					l.WarnContext(ctx, "idempotency lookup failed, processing command",
						slog.String("idempotency_key", cmd.IdempotencyKey),
						slog.String("error", err.Error()),
					)
				}
				if found {
					idempotentReplays.Inc()
					l.InfoContext(ctx, "idempotent replay",
						slog.String("idempotency_key", cmd.IdempotencyKey),
						slog.Int64("review_id", prior.ID),
					)
					return prior, nil
				}

				review, err := next(ctx, cmd)
				if err != nil {
					return nil, err
				}
				if err := store.Put(context.WithoutCancel(ctx), key, review); err != nil {
					l.ErrorContext(ctx, "failed to record idempotency key",
						slog.String("idempotency_key", cmd.IdempotencyKey),
						slog.Int64("review_id", review.ID),
						slog.String("error", err.Error()),
					)
				}
				return review, nil
			}

			for {
				ch := group.DoChan(key, run)
				var res singleflight.Result
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case res = <-ch:
				}

				if res.Err != nil {
					if res.Shared && ctx.Err() == nil && isContextError(res.Err) {
						l.DebugContext(ctx, "shared idempotent call abandoned by its starter, retrying",
							slog.String("idempotency_key", cmd.IdempotencyKey),
						)
						continue
					}
					return nil, res.Err
				}
				if res.Shared {
					idempotentReplays.Inc()
				}

				review := *res.Val.(*domain.Review)
				return &review, nil
			}
		}
	}
}

func isContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
