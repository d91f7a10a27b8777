package service

import (
	"errors"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
)

var (
	ErrInvalidRequest       = errors.New("invalid request")
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
	ErrOrderNotFound        = errors.New("order not found")
	ErrGatewayUnsupported   = errors.New("gateway is not supported")
	ErrPaymentLocked        = errors.New("payment is locked by another operation")

	ErrPrecondition      = errors.New("payment precondition failed")
	ErrGatewayDecline    = errors.New("gateway declined the request")
	ErrGatewayConnection = errors.New("gateway connection failed")
	ErrInvalidTransition = entity.ErrInvalidTransition
)

const (
	msgMethodNotSupported   = "payment method not supported"
	msgProcessingFailed     = "payment processing failed"
	msgUnableToConnect      = "unable to connect to gateway"
	msgPaymentMethodMissing = "payment has no payment method"
)

type ErrorKind int

const (
	KindPrecondition ErrorKind = iota + 1
	KindGatewayDecline
	KindGatewayConnection
	KindInvalidTransition
)

func (k ErrorKind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindGatewayDecline:
		return "gateway_decline"
	case KindGatewayConnection:
		return "gateway_connection"
	case KindInvalidTransition:
		return "invalid_transition"
	default:
		return "unknown"
	}
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindPrecondition:
		return ErrPrecondition
	case KindGatewayDecline:
		return ErrGatewayDecline
	case KindGatewayConnection:
		return ErrGatewayConnection
	case KindInvalidTransition:
		return ErrInvalidTransition
	default:
		return nil
	}
}

// PaymentError is returned by every processing operation that did not succeed.
// errors.Is matches it against the sentinel of its Kind.
type PaymentError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		return sentinel.Error()
	}
	return "payment error"
}

func (e *PaymentError) Unwrap() error {
	return e.Err
}

func (e *PaymentError) Is(target error) bool {
	sentinel := e.Kind.sentinel()
	return sentinel != nil && target == sentinel
}

func preconditionError(message string) error {
	return &PaymentError{Kind: KindPrecondition, Message: message}
}

func transitionError(err error) error {
	var paymentErr *PaymentError
	if errors.As(err, &paymentErr) {
		return err
	}
	return &PaymentError{Kind: KindInvalidTransition, Message: err.Error(), Err: err}
}

func keepFirstErr(current, next error) error {
	if current != nil {
		return current
	}
	return next
}
