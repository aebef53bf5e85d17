package services

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/televator/internal/models"
	"github.com/miradorstack/televator/internal/utils"
)

type monitorStub struct {
	submitted []models.Sample
	exitErr   error
	snap      models.Snapshot
}

func (m *monitorStub) Submit(_ context.Context, sample models.Sample) error {
	m.submitted = append(m.submitted, sample)
	return nil
}

func (m *monitorStub) MarkEnter() models.Snapshot { return m.snap }

func (m *monitorStub) MarkExit(context.Context) (models.Snapshot, error) {
	return m.snap, m.exitErr
}

func (m *monitorStub) Snapshot() models.Snapshot { return m.snap }

func (m *monitorStub) Subscribe(int) (<-chan models.Snapshot, func()) {
	ch := make(chan models.Snapshot)
	close(ch)
	return ch, func() {}
}

type rideListerStub struct {
	limit int
	rides []models.Ride
	err   error
}

func (r *rideListerStub) ListRides(_ context.Context, limit int) ([]models.Ride, error) {
	r.limit = limit
	return r.rides, r.err
}

func TestRecordSampleQueues(t *testing.T) {
	monitor := &monitorStub{}
	service := NewTelevatorService(nil, monitor, nil)

	req, _ := structpb.NewStruct(map[string]any{"sequence": 7, "latency": 0.031})
	resp, err := service.RecordSample(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.GetFields()["accepted"].GetBoolValue() {
		t.Fatalf("expected accepted response, got %v", resp)
	}
	if len(monitor.submitted) != 1 || monitor.submitted[0].Sequence != 7 {
		t.Fatalf("unexpected submissions: %+v", monitor.submitted)
	}
}

func TestRecordSampleInvalid(t *testing.T) {
	service := NewTelevatorService(nil, &monitorStub{}, nil)

	req, _ := structpb.NewStruct(map[string]any{"sequence": 1, "latency": -2})
	_, err := service.RecordSample(context.Background(), req)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument, got %v", err)
	}

	req, _ = structpb.NewStruct(map[string]any{"latency": 0.1})
	_, err = service.RecordSample(context.Background(), req)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("expected invalid argument for missing sequence, got %v", err)
	}
}

func TestMarkExitOrderingError(t *testing.T) {
	monitor := &monitorStub{exitErr: utils.NewAppError("session.MarkExit", "no open enter", utils.ErrOrdering)}
	service := NewTelevatorService(nil, monitor, nil)

	_, err := service.MarkExit(context.Background(), &emptypb.Empty{})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %v", err)
	}
}

func TestMarkExitReturnsRide(t *testing.T) {
	enter, exit := 2, 5
	monitor := &monitorStub{snap: models.Snapshot{
		Ready:   true,
		Session: models.Session{Enter: &enter, Exit: &exit},
		LastRide: &models.Ride{
			ID: 4, Enter: 2, Exit: 5, EstimatedDuration: 12, Floors: 3,
		},
	}}
	service := NewTelevatorService(nil, monitor, nil)

	resp, err := service.MarkExit(context.Background(), &emptypb.Empty{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ride := resp.GetFields()["lastRide"].GetStructValue().GetFields()
	if ride["floors"].GetNumberValue() != 3 || ride["id"].GetNumberValue() != 4 {
		t.Fatalf("unexpected ride payload: %v", ride)
	}
	session := resp.GetFields()["session"].GetStructValue().GetFields()
	if session["open"].GetBoolValue() {
		t.Fatalf("closed session reported open")
	}
}

func TestListRides(t *testing.T) {
	lister := &rideListerStub{rides: []models.Ride{{ID: 2, Floors: 1}, {ID: 1, Floors: 4}}}
	service := NewTelevatorService(nil, &monitorStub{}, lister)

	resp, err := service.ListRides(context.Background(), &structpb.Struct{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lister.limit != defaultRideLimit {
		t.Fatalf("expected default limit, got %d", lister.limit)
	}
	if n := len(resp.GetFields()["rides"].GetListValue().GetValues()); n != 2 {
		t.Fatalf("expected 2 rides, got %d", n)
	}
}

func TestListRidesWithoutStore(t *testing.T) {
	service := NewTelevatorService(nil, &monitorStub{}, nil)
	_, err := service.ListRides(context.Background(), nil)
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition, got %v", err)
	}
}

func TestListRidesStoreError(t *testing.T) {
	service := NewTelevatorService(nil, &monitorStub{}, &rideListerStub{err: errors.New("boom")})
	_, err := service.ListRides(context.Background(), nil)
	if status.Code(err) != codes.Internal {
		t.Fatalf("expected internal, got %v", err)
	}
}
