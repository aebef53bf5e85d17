package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully-qualified gRPC service name.
const ServiceName = "televator.v1.Televator"

const (
	MethodRecordSample   = "/" + ServiceName + "/RecordSample"
	MethodMarkEnter      = "/" + ServiceName + "/MarkEnter"
	MethodMarkExit       = "/" + ServiceName + "/MarkExit"
	MethodGetSnapshot    = "/" + ServiceName + "/GetSnapshot"
	MethodListRides      = "/" + ServiceName + "/ListRides"
	MethodWatchSnapshots = "/" + ServiceName + "/WatchSnapshots"
)

// TelevatorServer is the server API. Messages are protobuf well-known types; the
// field layout of each Struct is documented on the conversion helpers.
type TelevatorServer interface {
	RecordSample(context.Context, *structpb.Struct) (*structpb.Struct, error)
	MarkEnter(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	MarkExit(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetSnapshot(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListRides(context.Context, *structpb.Struct) (*structpb.Struct, error)
	WatchSnapshots(*emptypb.Empty, SnapshotStream) error
}

// SnapshotStream is the server side of WatchSnapshots.
type SnapshotStream interface {
	Send(*structpb.Struct) error
	grpc.ServerStream
}

type snapshotStream struct {
	grpc.ServerStream
}

func (s *snapshotStream) Send(m *structpb.Struct) error {
	return s.ServerStream.SendMsg(m)
}

// RegisterTelevatorServer registers srv on s.
func RegisterTelevatorServer(s grpc.ServiceRegistrar, srv TelevatorServer) {
	s.RegisterService(&televatorServiceDesc, srv)
}

var televatorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*TelevatorServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "RecordSample",
			Handler: unaryHandler(MethodRecordSample, newStruct, func(s TelevatorServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.RecordSample(ctx, in)
			}),
		},
		{
			MethodName: "MarkEnter",
			Handler: unaryHandler(MethodMarkEnter, newEmpty, func(s TelevatorServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
				return s.MarkEnter(ctx, in)
			}),
		},
		{
			MethodName: "MarkExit",
			Handler: unaryHandler(MethodMarkExit, newEmpty, func(s TelevatorServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
				return s.MarkExit(ctx, in)
			}),
		},
		{
			MethodName: "GetSnapshot",
			Handler: unaryHandler(MethodGetSnapshot, newEmpty, func(s TelevatorServer, ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error) {
				return s.GetSnapshot(ctx, in)
			}),
		},
		{
			MethodName: "ListRides",
			Handler: unaryHandler(MethodListRides, newStruct, func(s TelevatorServer, ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
				return s.ListRides(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchSnapshots",
			Handler:       watchSnapshotsHandler,
			ServerStreams: true,
		},
	},
	Metadata: "televator/v1/televator.proto",
}

func newStruct() *structpb.Struct { return &structpb.Struct{} }

func newEmpty() *emptypb.Empty { return &emptypb.Empty{} }

func unaryHandler[T proto.Message](
	method string,
	newReq func() T,
	call func(TelevatorServer, context.Context, T) (*structpb.Struct, error),
) func(any, context.Context, func(any) error, grpc.UnaryServerInterceptor) (any, error) {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TelevatorServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TelevatorServer), ctx, req.(T))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchSnapshotsHandler(srv any, stream grpc.ServerStream) error {
	in := new(emptypb.Empty)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(TelevatorServer).WatchSnapshots(in, &snapshotStream{stream})
}
