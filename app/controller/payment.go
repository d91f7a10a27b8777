package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-payment-processing/app/entity"
	"github.com/vibast-solutions/ms-go-payment-processing/app/factory"
	"github.com/vibast-solutions/ms-go-payment-processing/app/mapper"
	"github.com/vibast-solutions/ms-go-payment-processing/app/service"
	"github.com/vibast-solutions/ms-go-payment-processing/app/types"
)

type PaymentController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("payments-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

func (c *PaymentController) CreatePayment(ctx echo.Context) error {
	req, err := types.NewCreatePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.CreatePayment(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, "Create payment failed", err)
	}

	return ctx.JSON(http.StatusCreated, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToProto(item)})
}

func (c *PaymentController) GetPayment(ctx echo.Context) error {
	req, err := types.NewPaymentIDRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.GetPayment(ctx.Request().Context(), req.GetId())
	if err != nil {
		return c.writeServiceError(ctx, "Get payment failed", err)
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToProto(item)})
}

func (c *PaymentController) GetPaymentByNumber(ctx echo.Context) error {
	req, err := types.NewPaymentNumberRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.GetPaymentByNumber(ctx.Request().Context(), req.GetNumber())
	if err != nil {
		return c.writeServiceError(ctx, "Get payment by number failed", err)
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToProto(item)})
}

func (c *PaymentController) ListPayments(ctx echo.Context) error {
	req, err := types.NewListPaymentsRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.paymentService.ListPayments(ctx.Request().Context(), req)
	if err != nil {
		return c.writeServiceError(ctx, "List payments failed", err)
	}

	return ctx.JSON(http.StatusOK, &types.ListPaymentsResponse{Payments: mapper.PaymentsToProto(items)})
}

func (c *PaymentController) ListLogEntries(ctx echo.Context) error {
	req, err := types.NewPaymentIDRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	items, err := c.paymentService.ListLogEntries(ctx.Request().Context(), req.GetId())
	if err != nil {
		return c.writeServiceError(ctx, "List log entries failed", err)
	}

	return ctx.JSON(http.StatusOK, &types.ListLogEntriesResponse{LogEntries: mapper.LogEntriesToProto(items)})
}

func (c *PaymentController) ListCaptureEvents(ctx echo.Context) error {
	req, err := types.NewPaymentIDRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	reqCtx := ctx.Request().Context()
	payment, err := c.paymentService.GetPayment(reqCtx, req.GetId())
	if err != nil {
		return c.writeServiceError(ctx, "List capture events failed", err)
	}
	items, err := c.paymentService.ListCaptureEvents(reqCtx, req.GetId())
	if err != nil {
		return c.writeServiceError(ctx, "List capture events failed", err)
	}

	return ctx.JSON(http.StatusOK, &types.ListCaptureEventsResponse{
		CaptureEvents:  mapper.CaptureEventsToProto(items, payment.Currency),
		CapturedAmount: mapper.CapturedAmount(items, payment.Currency),
	})
}

func (c *PaymentController) ProcessPayment(ctx echo.Context) error {
	return c.runAction(ctx, "Process payment failed", c.paymentService.Process)
}

func (c *PaymentController) AuthorizePayment(ctx echo.Context) error {
	return c.runAction(ctx, "Authorize payment failed", c.paymentService.Authorize)
}

func (c *PaymentController) PurchasePayment(ctx echo.Context) error {
	return c.runAction(ctx, "Purchase payment failed", c.paymentService.Purchase)
}

func (c *PaymentController) VoidPayment(ctx echo.Context) error {
	return c.runAction(ctx, "Void payment failed", c.paymentService.Void)
}

func (c *PaymentController) CancelPayment(ctx echo.Context) error {
	return c.runAction(ctx, "Cancel payment failed", c.paymentService.Cancel)
}

func (c *PaymentController) CapturePayment(ctx echo.Context) error {
	req, err := types.NewCapturePaymentRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := c.paymentService.Capture(ctx.Request().Context(), req.GetId(), req.GetAmountCents())
	if err != nil {
		return c.writeServiceError(ctx, "Capture payment failed", err)
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToProto(item)})
}

func (c *PaymentController) runAction(
	ctx echo.Context,
	failure string,
	action func(context.Context, uint64) (*entity.Payment, error),
) error {
	req, err := types.NewPaymentIDRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	item, err := action(ctx.Request().Context(), req.GetId())
	if err != nil {
		return c.writeServiceError(ctx, failure, err)
	}

	return ctx.JSON(http.StatusOK, &types.PaymentEnvelopeResponse{Payment: mapper.PaymentToProto(item)})
}

func (c *PaymentController) writeServiceError(ctx echo.Context, failure string, err error) error {
	l := factory.LoggerWithContext(c.logger, ctx)

	var paymentErr *service.PaymentError
	if errors.As(err, &paymentErr) {
		l.WithError(err).WithField("kind", paymentErr.Kind.String()).Info(failure)
		return ctx.JSON(paymentErrorStatus(paymentErr.Kind), &types.ErrorResponse{
			Error: paymentErr.Error(),
			Kind:  paymentErr.Kind.String(),
		})
	}

	switch {
	case errors.Is(err, service.ErrPaymentNotFound):
		return c.writeError(ctx, http.StatusNotFound, "payment not found")
	case errors.Is(err, service.ErrOrderNotFound):
		return c.writeError(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrGatewayUnsupported):
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrPaymentAlreadyExists), errors.Is(err, service.ErrPaymentLocked):
		return c.writeError(ctx, http.StatusConflict, err.Error())
	default:
		l.WithError(err).Error(failure)
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}
}

func paymentErrorStatus(kind service.ErrorKind) int {
	switch kind {
	case service.KindPrecondition:
		return http.StatusUnprocessableEntity
	case service.KindGatewayDecline:
		return http.StatusPaymentRequired
	case service.KindGatewayConnection:
		return http.StatusBadGateway
	case service.KindInvalidTransition:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
