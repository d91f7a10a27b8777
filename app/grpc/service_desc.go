package grpc

import (
	"context"
	"encoding/json"

	"github.com/vibast-solutions/ms-go-payment-processing/app/types"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service. Every method takes and returns a
// google.protobuf.Struct holding the same JSON document the HTTP API uses.
const ServiceName = "payments.PaymentProcessingService"

func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

type PaymentProcessingServer interface {
	Health(context.Context, *HealthRequest) (*types.HealthResponse, error)
	CreatePayment(context.Context, *types.CreatePaymentRequest) (*types.PaymentEnvelopeResponse, error)
	GetPayment(context.Context, *types.PaymentIDRequest) (*types.PaymentEnvelopeResponse, error)
	GetPaymentByNumber(context.Context, *types.PaymentNumberRequest) (*types.PaymentEnvelopeResponse, error)
	ListPayments(context.Context, *types.ListPaymentsRequest) (*types.ListPaymentsResponse, error)
	ListLogEntries(context.Context, *types.PaymentIDRequest) (*types.ListLogEntriesResponse, error)
	ListCaptureEvents(context.Context, *types.PaymentIDRequest) (*types.ListCaptureEventsResponse, error)
	ProcessPayment(context.Context, *types.PaymentIDRequest) (*types.PaymentEnvelopeResponse, error)
	AuthorizePayment(context.Context, *types.PaymentIDRequest) (*types.PaymentEnvelopeResponse, error)
	PurchasePayment(context.Context, *types.PaymentIDRequest) (*types.PaymentEnvelopeResponse, error)
	CapturePayment(context.Context, *types.CapturePaymentRequest) (*types.PaymentEnvelopeResponse, error)
	VoidPayment(context.Context, *types.PaymentIDRequest) (*types.PaymentEnvelopeResponse, error)
	CancelPayment(context.Context, *types.PaymentIDRequest) (*types.PaymentEnvelopeResponse, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PaymentProcessingServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Health", Handler: unaryHandler("Health", (*Server).Health)},
		{MethodName: "CreatePayment", Handler: unaryHandler("CreatePayment", (*Server).CreatePayment)},
		{MethodName: "GetPayment", Handler: unaryHandler("GetPayment", (*Server).GetPayment)},
		{MethodName: "GetPaymentByNumber", Handler: unaryHandler("GetPaymentByNumber", (*Server).GetPaymentByNumber)},
		{MethodName: "ListPayments", Handler: unaryHandler("ListPayments", (*Server).ListPayments)},
		{MethodName: "ListLogEntries", Handler: unaryHandler("ListLogEntries", (*Server).ListLogEntries)},
		{MethodName: "ListCaptureEvents", Handler: unaryHandler("ListCaptureEvents", (*Server).ListCaptureEvents)},
		{MethodName: "ProcessPayment", Handler: unaryHandler("ProcessPayment", (*Server).ProcessPayment)},
		{MethodName: "AuthorizePayment", Handler: unaryHandler("AuthorizePayment", (*Server).AuthorizePayment)},
		{MethodName: "PurchasePayment", Handler: unaryHandler("PurchasePayment", (*Server).PurchasePayment)},
		{MethodName: "CapturePayment", Handler: unaryHandler("CapturePayment", (*Server).CapturePayment)},
		{MethodName: "VoidPayment", Handler: unaryHandler("VoidPayment", (*Server).VoidPayment)},
		{MethodName: "CancelPayment", Handler: unaryHandler("CancelPayment", (*Server).CancelPayment)},
	},
	Streams: []grpc.StreamDesc{},
}

var _ PaymentProcessingServer = (*Server)(nil)

func RegisterServer(registrar grpc.ServiceRegistrar, srv *Server) {
	registrar.RegisterService(&ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(*Server, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}

		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			payload, ok := req.(*structpb.Struct)
			if !ok {
				return nil, status.Error(codes.InvalidArgument, "invalid request payload")
			}
			typed := new(Req)
			if err := fromStruct(payload, typed); err != nil {
				return nil, status.Error(codes.InvalidArgument, "invalid request payload")
			}
			resp, err := call(srv.(*Server), ctx, typed)
			if err != nil {
				return nil, err
			}
			return toStruct(resp)
		}

		if interceptor == nil {
			return handler(ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(method)}
		return interceptor(ctx, in, info, handler)
	}
}

func fromStruct(in *structpb.Struct, out interface{}) error {
	raw, err := json.Marshal(in.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func toStruct(in interface{}) (*structpb.Struct, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	out, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, status.Error(codes.Internal, "internal server error")
	}
	return out, nil
}

// NewRequest encodes a request message for clients of ServiceDesc.
func NewRequest(req interface{}) (*structpb.Struct, error) {
	if req == nil {
		return &structpb.Struct{}, nil
	}
	return toStruct(req)
}

// DecodeResponse decodes a ServiceDesc response into one of the types messages.
func DecodeResponse(resp *structpb.Struct, out interface{}) error {
	return fromStruct(resp, out)
}
