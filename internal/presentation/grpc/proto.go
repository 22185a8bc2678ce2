package grpc

// proto.go describes credit.v1.CreditService by hand. Messages are the
// application DTOs carried over the JSON codec registered in json_codec.go.

import (
	"context"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/jmaisinchop/app-renattos/internal/application/dto"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "credit.v1.CreditService"

// FullMethod returns the gRPC full method name of a CreditService method.
func FullMethod(method string) string {
	return "/" + ServiceName + "/" + method
}

// ListRateFactorsRequest has no fields; the whole table is returned.
type ListRateFactorsRequest struct{}

// CreditServiceServer is the server API for CreditService.
type CreditServiceServer interface {
	RegisterSale(context.Context, *dto.RegisterSaleRequest) (*dto.SaleResponse, error)
	GetSale(context.Context, *dto.SaleRequest) (*dto.SaleResponse, error)
	ListActiveCredits(context.Context, *dto.ListActiveCreditsRequest) (*dto.ListActiveCreditsResponse, error)
	GetSaleBalance(context.Context, *dto.SaleRequest) (*dto.SaleBalanceResponse, error)
	QuotePayment(context.Context, *dto.QuotePaymentRequest) (*dto.PaymentQuoteResponse, error)
	PostPayment(context.Context, *dto.PostPaymentRequest) (*dto.PostPaymentResponse, error)
	ReprintReceipt(context.Context, *dto.ReprintReceiptRequest) (*dto.ReceiptResponse, error)
	ListPaymentHistory(context.Context, *dto.SaleRequest) (*dto.PaymentHistoryResponse, error)
	ListRateFactors(context.Context, *ListRateFactorsRequest) (*dto.ListRateFactorsResponse, error)
	SaveRateFactor(context.Context, *dto.SaveRateFactorRequest) (*dto.RateFactorResponse, error)
	DeleteRateFactor(context.Context, *dto.DeleteRateFactorRequest) (*dto.DeleteRateFactorResponse, error)
	mustEmbedUnimplementedCreditServiceServer()
}

// UnimplementedCreditServiceServer provides forward-compatible default implementations.
type UnimplementedCreditServiceServer struct{}

func (UnimplementedCreditServiceServer) RegisterSale(context.Context, *dto.RegisterSaleRequest) (*dto.SaleResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RegisterSale not implemented")
}
func (UnimplementedCreditServiceServer) GetSale(context.Context, *dto.SaleRequest) (*dto.SaleResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSale not implemented")
}
func (UnimplementedCreditServiceServer) ListActiveCredits(context.Context, *dto.ListActiveCreditsRequest) (*dto.ListActiveCreditsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListActiveCredits not implemented")
}
func (UnimplementedCreditServiceServer) GetSaleBalance(context.Context, *dto.SaleRequest) (*dto.SaleBalanceResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSaleBalance not implemented")
}
func (UnimplementedCreditServiceServer) QuotePayment(context.Context, *dto.QuotePaymentRequest) (*dto.PaymentQuoteResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method QuotePayment not implemented")
}
func (UnimplementedCreditServiceServer) PostPayment(context.Context, *dto.PostPaymentRequest) (*dto.PostPaymentResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method PostPayment not implemented")
}
func (UnimplementedCreditServiceServer) ReprintReceipt(context.Context, *dto.ReprintReceiptRequest) (*dto.ReceiptResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ReprintReceipt not implemented")
}
func (UnimplementedCreditServiceServer) ListPaymentHistory(context.Context, *dto.SaleRequest) (*dto.PaymentHistoryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListPaymentHistory not implemented")
}
func (UnimplementedCreditServiceServer) ListRateFactors(context.Context, *ListRateFactorsRequest) (*dto.ListRateFactorsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListRateFactors not implemented")
}
func (UnimplementedCreditServiceServer) SaveRateFactor(context.Context, *dto.SaveRateFactorRequest) (*dto.RateFactorResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SaveRateFactor not implemented")
}
func (UnimplementedCreditServiceServer) DeleteRateFactor(context.Context, *dto.DeleteRateFactorRequest) (*dto.DeleteRateFactorResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method DeleteRateFactor not implemented")
}
func (UnimplementedCreditServiceServer) mustEmbedUnimplementedCreditServiceServer() {}

// RegisterCreditServiceServer registers srv with the gRPC server.
func RegisterCreditServiceServer(s grpclib.ServiceRegistrar, srv CreditServiceServer) {
	s.RegisterService(&creditServiceDesc, srv)
}

var creditServiceDesc = grpclib.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CreditServiceServer)(nil),
	Methods: []grpclib.MethodDesc{
		{MethodName: "RegisterSale", Handler: unary("RegisterSale", CreditServiceServer.RegisterSale)},
		{MethodName: "GetSale", Handler: unary("GetSale", CreditServiceServer.GetSale)},
		{MethodName: "ListActiveCredits", Handler: unary("ListActiveCredits", CreditServiceServer.ListActiveCredits)},
		{MethodName: "GetSaleBalance", Handler: unary("GetSaleBalance", CreditServiceServer.GetSaleBalance)},
		{MethodName: "QuotePayment", Handler: unary("QuotePayment", CreditServiceServer.QuotePayment)},
		{MethodName: "PostPayment", Handler: unary("PostPayment", CreditServiceServer.PostPayment)},
		{MethodName: "ReprintReceipt", Handler: unary("ReprintReceipt", CreditServiceServer.ReprintReceipt)},
		{MethodName: "ListPaymentHistory", Handler: unary("ListPaymentHistory", CreditServiceServer.ListPaymentHistory)},
		{MethodName: "ListRateFactors", Handler: unary("ListRateFactors", CreditServiceServer.ListRateFactors)},
		{MethodName: "SaveRateFactor", Handler: unary("SaveRateFactor", CreditServiceServer.SaveRateFactor)},
		{MethodName: "DeleteRateFactor", Handler: unary("DeleteRateFactor", CreditServiceServer.DeleteRateFactor)},
	},
	Streams:  []grpclib.StreamDesc{},
	Metadata: "credit/v1/credit.proto",
}

// methodHandler matches grpc.MethodDesc.Handler.
type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error)

// unary builds the method handler that decodes Req, runs the interceptor
// chain and dispatches to call.
func unary[Req, Resp any](method string, call func(CreditServiceServer, context.Context, *Req) (*Resp, error)) methodHandler {
	fullMethod := FullMethod(method)
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpclib.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CreditServiceServer), ctx, in)
		}
		info := &grpclib.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(CreditServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}
