package grpc

import (
	"context"
	"errors"

	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
	"github.com/vibast-solutions/ms-go-payment-processing/app/mapper"
	"github.com/vibast-solutions/ms-go-payment-processing/app/service"
	"github.com/vibast-solutions/ms-go-payment-processing/app/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type HealthRequest struct{}

type Server struct {
	paymentService *service.PaymentService
}

func NewServer(paymentService *service.PaymentService) *Server {
	return &Server{paymentService: paymentService}
}

func (s *Server) Health(_ context.Context, _ *HealthRequest) (*types.HealthResponse, error) {
	return &types.HealthResponse{Status: "ok"}, nil
}

func (s *Server) CreatePayment(ctx context.Context, req *types.CreatePaymentRequest) (*types.PaymentEnvelopeResponse, error) {
	l := loggerWithContext(ctx)
	if err := req.Validate(); err != nil {
		l.WithError(err).Debug("Create payment validation failed")
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.paymentService.CreatePayment(ctx, req)
	if err != nil {
		return nil, s.statusError(ctx, "Create payment failed", err)
	}

	return &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToProto(item)}, nil
}

func (s *Server) GetPayment(ctx context.Context, req *types.PaymentIDRequest) (*types.PaymentEnvelopeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.paymentService.GetPayment(ctx, req.GetId())
	if err != nil {
		return nil, s.statusError(ctx, "Get payment failed", err)
	}

	return &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToProto(item)}, nil
}

func (s *Server) GetPaymentByNumber(ctx context.Context, req *types.PaymentNumberRequest) (*types.PaymentEnvelopeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.paymentService.GetPaymentByNumber(ctx, req.GetNumber())
	if err != nil {
		return nil, s.statusError(ctx, "Get payment by number failed", err)
	}

	return &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToProto(item)}, nil
}

func (s *Server) ListPayments(ctx context.Context, req *types.ListPaymentsRequest) (*types.ListPaymentsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	items, err := s.paymentService.ListPayments(ctx, req)
	if err != nil {
		return nil, s.statusError(ctx, "List payments failed", err)
	}

	return &types.ListPaymentsResponse{Payments: mapper.PaymentsToProto(items)}, nil
}

func (s *Server) ListLogEntries(ctx context.Context, req *types.PaymentIDRequest) (*types.ListLogEntriesResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	items, err := s.paymentService.ListLogEntries(ctx, req.GetId())
	if err != nil {
		return nil, s.statusError(ctx, "List log entries failed", err)
	}

	return &types.ListLogEntriesResponse{LogEntries: mapper.LogEntriesToProto(items)}, nil
}

func (s *Server) ListCaptureEvents(ctx context.Context, req *types.PaymentIDRequest) (*types.ListCaptureEventsResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	payment, err := s.paymentService.GetPayment(ctx, req.GetId())
	if err != nil {
		return nil, s.statusError(ctx, "List capture events failed", err)
	}
	items, err := s.paymentService.ListCaptureEvents(ctx, req.GetId())
	if err != nil {
		return nil, s.statusError(ctx, "List capture events failed", err)
	}

	return &types.ListCaptureEventsResponse{
		CaptureEvents:  mapper.CaptureEventsToProto(items, payment.Currency),
		CapturedAmount: mapper.CapturedAmount(items, payment.Currency),
	}, nil
}

func (s *Server) ProcessPayment(ctx context.Context, req *types.PaymentIDRequest) (*types.PaymentEnvelopeResponse, error) {
	return s.runAction(ctx, req, "Process payment failed", s.paymentService.Process)
}

func (s *Server) AuthorizePayment(ctx context.Context, req *types.PaymentIDRequest) (*types.PaymentEnvelopeResponse, error) {
	return s.runAction(ctx, req, "Authorize payment failed", s.paymentService.Authorize)
}

func (s *Server) PurchasePayment(ctx context.Context, req *types.PaymentIDRequest) (*types.PaymentEnvelopeResponse, error) {
	return s.runAction(ctx, req, "Purchase payment failed", s.paymentService.Purchase)
}

func (s *Server) VoidPayment(ctx context.Context, req *types.PaymentIDRequest) (*types.PaymentEnvelopeResponse, error) {
	return s.runAction(ctx, req, "Void payment failed", s.paymentService.Void)
}

func (s *Server) CancelPayment(ctx context.Context, req *types.PaymentIDRequest) (*types.PaymentEnvelopeResponse, error) {
	return s.runAction(ctx, req, "Cancel payment failed", s.paymentService.Cancel)
}

func (s *Server) CapturePayment(ctx context.Context, req *types.CapturePaymentRequest) (*types.PaymentEnvelopeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := s.paymentService.Capture(ctx, req.GetId(), req.GetAmountCents())
	if err != nil {
		return nil, s.statusError(ctx, "Capture payment failed", err)
	}

	return &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToProto(item)}, nil
}

func (s *Server) runAction(
	ctx context.Context,
	req *types.PaymentIDRequest,
	failure string,
	action func(context.Context, uint64) (*entity.Payment, error),
) (*types.PaymentEnvelopeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	item, err := action(ctx, req.GetId())
	if err != nil {
		return nil, s.statusError(ctx, failure, err)
	}

	return &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToProto(item)}, nil
}

func (s *Server) statusError(ctx context.Context, failure string, err error) error {
	l := loggerWithContext(ctx)

	var paymentErr *service.PaymentError
	if errors.As(err, &paymentErr) {
		l.WithError(err).WithField("kind", paymentErr.Kind.String()).Info(failure)
		return status.Error(paymentErrorCode(paymentErr.Kind), paymentErr.Error())
	}

	switch {
	case errors.Is(err, service.ErrPaymentNotFound):
		return status.Error(codes.NotFound, "payment not found")
	case errors.Is(err, service.ErrOrderNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrGatewayUnsupported):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrPaymentAlreadyExists):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, service.ErrPaymentLocked):
		return status.Error(codes.Aborted, err.Error())
	default:
		l.WithError(err).Error(failure)
		return status.Error(codes.Internal, "internal server error")
	}
}

func paymentErrorCode(kind service.ErrorKind) codes.Code {
	switch kind {
	case service.KindPrecondition, service.KindInvalidTransition:
		return codes.FailedPrecondition
	case service.KindGatewayDecline:
		return codes.Aborted
	case service.KindGatewayConnection:
		return codes.Unavailable
	default:
		return codes.Internal
	}
}
