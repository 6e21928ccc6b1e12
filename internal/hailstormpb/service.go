package hailstormpb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// HailstormServiceClient is the client-side stub a dialed *grpc.ClientConn
// satisfies via NewHailstormServiceClient.
type HailstormServiceClient interface {
	Join(ctx context.Context, opts ...grpc.CallOption) (HailstormService_JoinClient, error)
}

type hailstormServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewHailstormServiceClient(cc grpc.ClientConnInterface) HailstormServiceClient {
	return &hailstormServiceClient{cc: cc}
}

func (c *hailstormServiceClient) Join(ctx context.Context, opts ...grpc.CallOption) (HailstormService_JoinClient, error) {
	stream, err := c.cc.NewStream(ctx, &hailstormServiceDesc.Streams[0], "/hailstorm.HailstormService/Join", opts...)
	if err != nil {
		return nil, err
	}
	return &hailstormServiceJoinClient{stream}, nil
}

// HailstormService_JoinClient is the agent's view of the Join stream: it
// sends AgentMessages and receives ControllerCommands.
type HailstormService_JoinClient interface {
	Send(*AgentMessage) error
	Recv() (*ControllerCommand, error)
	grpc.ClientStream
}

type hailstormServiceJoinClient struct {
	grpc.ClientStream
}

func (x *hailstormServiceJoinClient) Send(m *AgentMessage) error {
	return x.ClientStream.SendMsg(m)
}

func (x *hailstormServiceJoinClient) Recv() (*ControllerCommand, error) {
	m := new(ControllerCommand)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// HailstormServiceServer is the controller-side implementation of the Join
// RPC; a server registers one with RegisterHailstormServiceServer.
type HailstormServiceServer interface {
	Join(HailstormService_JoinServer) error
}

// UnimplementedHailstormServiceServer can be embedded to satisfy
// HailstormServiceServer for forward compatibility with future RPCs.
type UnimplementedHailstormServiceServer struct{}

func (UnimplementedHailstormServiceServer) Join(HailstormService_JoinServer) error {
	return status.Errorf(codes.Unimplemented, "method Join not implemented")
}

// HailstormService_JoinServer is the controller's view of the Join stream:
// it receives AgentMessages and sends ControllerCommands.
type HailstormService_JoinServer interface {
	Send(*ControllerCommand) error
	Recv() (*AgentMessage, error)
	grpc.ServerStream
}

type hailstormServiceJoinServer struct {
	grpc.ServerStream
}

func (x *hailstormServiceJoinServer) Send(m *ControllerCommand) error {
	return x.ServerStream.SendMsg(m)
}

func (x *hailstormServiceJoinServer) Recv() (*AgentMessage, error) {
	m := new(AgentMessage)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func RegisterHailstormServiceServer(s grpc.ServiceRegistrar, srv HailstormServiceServer) {
	s.RegisterService(&hailstormServiceDesc, srv)
}

func _HailstormService_Join_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(HailstormServiceServer).Join(&hailstormServiceJoinServer{stream})
}

var hailstormServiceDesc = grpc.ServiceDesc{
	ServiceName: "hailstorm.HailstormService",
	HandlerType: (*HailstormServiceServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Join",
			Handler:       _HailstormService_Join_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "api/hailstorm.proto",
}
