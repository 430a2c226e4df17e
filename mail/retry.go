package mail

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/warp/payslip-engine/payroll"
)

// RetryPolicy bounds retries of one message.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: 500 * time.Millisecond, MaxInterval: 5 * time.Second}
}

// RetryingSender retries transient failures of the wrapped Sender.
// Exhausted retries and permanent failures become *payroll.DeliveryError.
type RetryingSender struct {
	next   Sender
	policy RetryPolicy
	logger *slog.Logger
}

func NewRetryingSender(next Sender, policy RetryPolicy, logger *slog.Logger) *RetryingSender {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingSender{next: next, policy: policy, logger: logger}
}

func (r *RetryingSender) backOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	if r.policy.InitialInterval > 0 {
		exp.InitialInterval = r.policy.InitialInterval
	}
	if r.policy.MaxInterval > 0 {
		exp.MaxInterval = r.policy.MaxInterval
	}
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(r.policy.MaxAttempts-1)), ctx)
}

func (r *RetryingSender) Send(ctx context.Context, msg Message) error {
	attempts := 0
	permanent := false
	op := func() error {
		attempts++
		err := r.next.Send(ctx, msg)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		if IsPermanent(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		r.logger.WarnContext(ctx, "mail send failed, retrying",
			"to", msg.Recipient(), "attempt", attempts, "wait", wait, "error", err)
	}

	err := backoff.RetryNotify(op, r.backOff(ctx), notify)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &payroll.DeliveryError{Recipient: msg.Recipient(), Attempts: attempts, Permanent: permanent, Err: err}
}

var _ Sender = (*RetryingSender)(nil)
