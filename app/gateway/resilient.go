package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
	"github.com/vibast-solutions/ms-go-payment-processing/app/metrics"
)

type ResilienceConfig struct {
	CallTimeout          time.Duration
	BreakerMaxFailures   uint32
	BreakerOpenTimeout   time.Duration
	// ReversalRetries applies to void and cancel only. Authorize, purchase and
	// capture are never retried: a lost response may still have moved money.
	ReversalRetries      uint64
	RetryInitialInterval time.Duration
}

// Resilient wraps a gateway with a per-call timeout, a circuit breaker that trips on
// connection failures, retries for reversals and request metrics.
type Resilient struct {
	next    Gateway
	cfg     ResilienceConfig
	breaker *gobreaker.CircuitBreaker
	logger  logrus.FieldLogger
}

func NewResilient(next Gateway, cfg ResilienceConfig, logger logrus.FieldLogger) *Resilient {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 30 * time.Second
	}
	if cfg.BreakerMaxFailures == 0 {
		cfg.BreakerMaxFailures = 5
	}
	if cfg.BreakerOpenTimeout <= 0 {
		cfg.BreakerOpenTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	r := &Resilient{next: next, cfg: cfg, logger: logger}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        next.Code(),
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerMaxFailures
		},
		IsSuccessful: func(err error) bool {
			return !IsConnectionError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			r.logger.WithField("gateway", name).
				WithField("from", from.String()).
				WithField("to", to.String()).
				Warn("gateway_breaker_state_changed")
		},
	})
	return r
}

func (r *Resilient) Code() string {
	return r.next.Code()
}

func (r *Resilient) Authorize(ctx context.Context, amountCents int64, source *entity.PaymentSource, opts Options) (*Response, error) {
	return r.call(ctx, ActionAuthorize, false, func(ctx context.Context) (*Response, error) {
		return r.next.Authorize(ctx, amountCents, source, opts)
	})
}

func (r *Resilient) Purchase(ctx context.Context, amountCents int64, source *entity.PaymentSource, opts Options) (*Response, error) {
	return r.call(ctx, ActionPurchase, false, func(ctx context.Context) (*Response, error) {
		return r.next.Purchase(ctx, amountCents, source, opts)
	})
}

func (r *Resilient) Capture(ctx context.Context, amountCents int64, authorization string, opts Options) (*Response, error) {
	return r.call(ctx, ActionCapture, false, func(ctx context.Context) (*Response, error) {
		return r.next.Capture(ctx, amountCents, authorization, opts)
	})
}

func (r *Resilient) Void(ctx context.Context, authorization string, source *entity.PaymentSource, opts Options) (*Response, error) {
	return r.call(ctx, ActionVoid, true, func(ctx context.Context) (*Response, error) {
		return r.next.Void(ctx, authorization, source, opts)
	})
}

func (r *Resilient) Cancel(ctx context.Context, authorization string) (*Response, error) {
	return r.call(ctx, ActionCancel, true, func(ctx context.Context) (*Response, error) {
		return r.next.Cancel(ctx, authorization)
	})
}

func (r *Resilient) SupportsSource(source *entity.PaymentSource) bool {
	return r.next.SupportsSource(source)
}

func (r *Resilient) SourceRequired() bool {
	return r.next.SourceRequired()
}

func (r *Resilient) PaymentProfilesSupported() bool {
	return r.next.PaymentProfilesSupported()
}

func (r *Resilient) BreakerState() gobreaker.State {
	return r.breaker.State()
}

func (r *Resilient) call(ctx context.Context, action string, retry bool, fn func(ctx context.Context) (*Response, error)) (*Response, error) {
	if !retry || r.cfg.ReversalRetries == 0 {
		return r.attempt(ctx, action, fn)
	}

	exp := backoff.NewExponentialBackOff()
	if r.cfg.RetryInitialInterval > 0 {
		exp.InitialInterval = r.cfg.RetryInitialInterval
	}

	var resp *Response
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, r.cfg.ReversalRetries), ctx)
	err := backoff.Retry(func() error {
		var err error
		resp, err = r.attempt(ctx, action, fn)
		if err == nil {
			return nil
		}
		if IsConnectionError(err) && !errors.Is(err, gobreaker.ErrOpenState) {
			r.logger.WithError(err).WithField("gateway", r.next.Code()).WithField("action", action).Warn("gateway_retrying")
			return err
		}
		return backoff.Permanent(err)
	}, policy)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *Resilient) attempt(ctx context.Context, action string, fn func(ctx context.Context) (*Response, error)) (*Response, error) {
	start := time.Now()
	out, err := r.breaker.Execute(func() (interface{}, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		defer cancel()
		return fn(callCtx)
	})
	latency := time.Since(start)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = &ConnectionError{Gateway: r.next.Code(), Action: action, Err: err}
	} else if errors.Is(err, context.DeadlineExceeded) && !IsConnectionError(err) {
		err = &ConnectionError{Gateway: r.next.Code(), Action: action, Err: err}
	}

	if err != nil {
		outcome := metrics.OutcomeError
		if IsConnectionError(err) {
			outcome = metrics.OutcomeConnection
		}
		metrics.ObserveGatewayRequest(r.next.Code(), action, outcome, latency)
		return nil, err
	}

	resp, _ := out.(*Response)
	if resp == nil {
		metrics.ObserveGatewayRequest(r.next.Code(), action, metrics.OutcomeError, latency)
		return nil, errors.New("gateway returned no response")
	}
	outcome := metrics.OutcomeSuccess
	if !resp.Success {
		outcome = metrics.OutcomeDeclined
	}
	metrics.ObserveGatewayRequest(r.next.Code(), action, outcome, latency)
	return resp, nil
}

func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}
