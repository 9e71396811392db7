package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "bililogin.v1.LoginFlow"

const (
	MethodStartLogin         = "/" + ServiceName + "/StartLogin"
	MethodSubmitVerification = "/" + ServiceName + "/SubmitVerification"
	MethodResetFlow          = "/" + ServiceName + "/ResetFlow"
	MethodListAttempts       = "/" + ServiceName + "/ListAttempts"
)

// LoginFlowServer is the local login surface. Messages are generic structs
// so no generated code is needed.
type LoginFlowServer interface {
	StartLogin(context.Context, *structpb.Struct) (*structpb.Struct, error)
	SubmitVerification(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ResetFlow(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListAttempts(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

var LoginFlowServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LoginFlowServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "StartLogin",
			Handler:    startLoginHandler,
		},
		{
			MethodName: "SubmitVerification",
			Handler:    submitVerificationHandler,
		},
		{
			MethodName: "ResetFlow",
			Handler:    resetFlowHandler,
		},
		{
			MethodName: "ListAttempts",
			Handler:    listAttemptsHandler,
		},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterLoginFlowServer(s grpc.ServiceRegistrar, srv LoginFlowServer) {
	s.RegisterService(&LoginFlowServiceDesc, srv)
}

func startLoginHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LoginFlowServer).StartLogin(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: MethodStartLogin,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LoginFlowServer).StartLogin(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func submitVerificationHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LoginFlowServer).SubmitVerification(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: MethodSubmitVerification,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LoginFlowServer).SubmitVerification(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func resetFlowHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LoginFlowServer).ResetFlow(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: MethodResetFlow,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LoginFlowServer).ResetFlow(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func listAttemptsHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LoginFlowServer).ListAttempts(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: MethodListAttempts,
	}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LoginFlowServer).ListAttempts(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

// LoginFlowClient calls the surface over any client connection.
type LoginFlowClient struct {
	cc grpc.ClientConnInterface
}

func NewLoginFlowClient(cc grpc.ClientConnInterface) *LoginFlowClient {
	return &LoginFlowClient{cc: cc}
}

func (c *LoginFlowClient) StartLogin(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodStartLogin, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LoginFlowClient) SubmitVerification(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodSubmitVerification, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LoginFlowClient) ResetFlow(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodResetFlow, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *LoginFlowClient) ListAttempts(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodListAttempts, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
