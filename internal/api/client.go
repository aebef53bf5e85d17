package api

import (
	"context"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/televator/internal/models"
)

// Client is a thin caller for the Televator service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an established connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// RecordSample pushes one sample onto the service queue.
func (c *Client) RecordSample(ctx context.Context, sample models.Sample, opts ...grpc.CallOption) error {
	in, err := SampleToProto(sample)
	if err != nil {
		return err
	}
	return c.cc.Invoke(ctx, MethodRecordSample, in, new(structpb.Struct), opts...)
}

// MarkEnter opens a ride.
func (c *Client) MarkEnter(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.unary(ctx, MethodMarkEnter, opts...)
}

// MarkExit closes the open ride.
func (c *Client) MarkExit(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.unary(ctx, MethodMarkExit, opts...)
}

// GetSnapshot fetches the current state.
func (c *Client) GetSnapshot(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.unary(ctx, MethodGetSnapshot, opts...)
}

// ListRides fetches up to limit persisted rides.
func (c *Client) ListRides(ctx context.Context, limit int, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(map[string]any{"limit": limit})
	if err != nil {
		return nil, err
	}
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, MethodListRides, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// WatchSnapshots calls fn for each streamed snapshot until the stream ends, ctx is
// cancelled or fn returns an error.
func (c *Client) WatchSnapshots(ctx context.Context, fn func(*structpb.Struct) error, opts ...grpc.CallOption) error {
	desc := &televatorServiceDesc.Streams[0]
	stream, err := c.cc.NewStream(ctx, desc, MethodWatchSnapshots, opts...)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}
	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
}

func (c *Client) unary(ctx context.Context, method string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
