package services

import (
	"context"
	"errors"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/televator/internal/api"
	"github.com/miradorstack/televator/internal/models"
	"github.com/miradorstack/televator/internal/utils"
)

// Monitor is the sample consumer and session front-end the service drives.
type Monitor interface {
	Submit(ctx context.Context, sample models.Sample) error
	MarkEnter() models.Snapshot
	MarkExit(ctx context.Context) (models.Snapshot, error)
	Snapshot() models.Snapshot
	Subscribe(buffer int) (<-chan models.Snapshot, func())
}

// RideLister reads persisted rides.
type RideLister interface {
	ListRides(ctx context.Context, limit int) ([]models.Ride, error)
}

const defaultRideLimit = 20

// TelevatorService implements the gRPC Televator service.
type TelevatorService struct {
	logger  *slog.Logger
	monitor Monitor
	rides   RideLister
}

// NewTelevatorService constructs the service facade; rides may be nil.
func NewTelevatorService(logger *slog.Logger, monitor Monitor, rides RideLister) *TelevatorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelevatorService{logger: logger, monitor: monitor, rides: rides}
}

// RecordSample queues an externally measured sample. Ordering problems surface in
// the consumer log, not here, because the queue is drained asynchronously.
func (s *TelevatorService) RecordSample(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.monitor == nil {
		return nil, status.Error(codes.FailedPrecondition, "monitor not configured")
	}
	sample, err := api.FromProtoSample(req)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err := s.monitor.Submit(ctx, sample); err != nil {
		return nil, status.FromContextError(err).Err()
	}
	return structpb.NewStruct(map[string]any{
		"accepted": true,
		"sequence": float64(sample.Sequence),
	})
}

// MarkEnter opens a ride at the newest sample.
func (s *TelevatorService) MarkEnter(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.monitor == nil {
		return nil, status.Error(codes.FailedPrecondition, "monitor not configured")
	}
	snap := s.monitor.MarkEnter()
	s.logger.Debug("MarkEnter called", slog.Bool("ready", snap.Ready))
	return s.encode(snap)
}

// MarkExit closes the open ride and returns the snapshot carrying its estimate.
func (s *TelevatorService) MarkExit(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.monitor == nil {
		return nil, status.Error(codes.FailedPrecondition, "monitor not configured")
	}
	snap, err := s.monitor.MarkExit(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.encode(snap)
}

// GetSnapshot returns the current state.
func (s *TelevatorService) GetSnapshot(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	if s.monitor == nil {
		return nil, status.Error(codes.FailedPrecondition, "monitor not configured")
	}
	return s.encode(s.monitor.Snapshot())
}

// ListRides returns persisted rides, newest first.
func (s *TelevatorService) ListRides(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if s.rides == nil {
		return nil, status.Error(codes.FailedPrecondition, "ride store not configured")
	}
	limit, err := api.FromProtoLimit(req, defaultRideLimit)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	rides, err := s.rides.ListRides(ctx, limit)
	if err != nil {
		s.logger.Error("list rides failed", slog.Any("error", err))
		return nil, status.Error(codes.Internal, "failed to list rides")
	}
	out, err := api.ToProtoRides(rides)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// WatchSnapshots streams the current snapshot and every later one until the client
// goes away or the tracker shuts down.
func (s *TelevatorService) WatchSnapshots(_ *emptypb.Empty, stream api.SnapshotStream) error {
	if s.monitor == nil {
		return status.Error(codes.FailedPrecondition, "monitor not configured")
	}
	updates, cancel := s.monitor.Subscribe(16)
	defer cancel()

	if err := s.send(stream, s.monitor.Snapshot()); err != nil {
		return err
	}
	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			if err := s.send(stream, snap); err != nil {
				return err
			}
		}
	}
}

func (s *TelevatorService) send(stream api.SnapshotStream, snap models.Snapshot) error {
	msg, err := api.ToProtoSnapshot(snap)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return stream.Send(msg)
}

func (s *TelevatorService) encode(snap models.Snapshot) (*structpb.Struct, error) {
	out, err := api.ToProtoSnapshot(snap)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, utils.ErrOrdering):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, utils.ErrInvalidConfig), errors.Is(err, utils.ErrInvalidSample), errors.Is(err, utils.ErrOutOfOrder):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, utils.ErrInsufficientHistory):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
