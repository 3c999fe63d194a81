// Package grpcapi serves the chat service over gRPC.
//
// The service is declared by hand instead of generated from a .proto file:
//
//	package ragsample;
//	service RagSample {
//	  rpc Ask(google.protobuf.StringValue) returns (google.protobuf.StringValue);
//	}
package grpcapi

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "ragsample.RagSample"

// AskMethod is the full method name of Ask.
const AskMethod = "/" + ServiceName + "/Ask"

// RagSampleServer is the server API of the RagSample service.
type RagSampleServer interface {
	Ask(ctx context.Context, question *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
}

// ServiceDesc describes the RagSample service for grpc.Server.RegisterService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RagSampleServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Ask", Handler: askHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ragsample.proto",
}

// RegisterRagSampleServer registers srv on s.
func RegisterRagSampleServer(s grpc.ServiceRegistrar, srv RagSampleServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func askHandler(
	srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(wrapperspb.StringValue)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(RagSampleServer).Ask(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: AskMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(RagSampleServer).Ask(ctx, req.(*wrapperspb.StringValue))
	}
	return interceptor(ctx, in, info, handler)
}

// Client calls a remote RagSample service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Ask sends a question and returns the answer text.
func (c *Client) Ask(ctx context.Context, question string, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, AskMethod, wrapperspb.String(question), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}
