package services

import (
	"context"
	"net"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/televator/internal/api"
	"github.com/miradorstack/televator/internal/config"
	"github.com/miradorstack/televator/internal/detector"
	"github.com/miradorstack/televator/internal/models"
	"github.com/miradorstack/televator/internal/monitor"
	"github.com/miradorstack/televator/internal/session"
	"github.com/miradorstack/televator/internal/store"
)

func startTestServer(t *testing.T) (*api.Client, *monitor.Monitor) {
	t.Helper()

	tracker, err := session.NewTracker(nil, session.Config{
		Detector:     detector.Config{Lag: 2, Threshold: 4, Influence: 0},
		PingInterval: 1.0,
	})
	if err != nil {
		t.Fatalf("tracker: %v", err)
	}
	rides, err := store.Open(filepath.Join(t.TempDir(), "rides.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	mon := monitor.New(nil, tracker, rides, monitor.Options{QueueSize: 16, PadLatency: 5})

	ctx, cancel := context.WithCancel(context.Background())
	go mon.Run(ctx)

	lis := bufconn.Listen(1 << 20)
	server := api.NewServerWithListener(config.ServerConfig{}, lis, NewTelevatorService(nil, mon, rides))
	go server.Start()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	t.Cleanup(func() {
		conn.Close()
		tracker.Close()
		shutdownCtx, stop := context.WithTimeout(context.Background(), time.Second)
		defer stop()
		server.Shutdown(shutdownCtx)
		cancel()
		rides.Close()
	})
	return api.NewClient(conn), mon
}

func waitForSamples(t *testing.T, client *api.Client, n int) *structpb.Struct {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap, err := client.GetSnapshot(context.Background())
		if err != nil {
			t.Fatalf("get snapshot: %v", err)
		}
		if int(snap.GetFields()["samples"].GetNumberValue()) >= n {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d samples", n)
	return nil
}

func TestRideOverGRPC(t *testing.T) {
	client, _ := startTestServer(t)
	ctx := context.Background()

	latencies := []float64{1, 1, 1, 1, 1, 5, 5, 1}
	seq := uint64(0)
	for ; seq < 5; seq++ {
		if err := client.RecordSample(ctx, models.Sample{Sequence: seq, Latency: latencies[seq]}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	waitForSamples(t, client, 5)

	if _, err := client.MarkEnter(ctx); err != nil {
		t.Fatalf("enter: %v", err)
	}
	for ; seq < uint64(len(latencies)); seq++ {
		if err := client.RecordSample(ctx, models.Sample{Sequence: seq, Latency: latencies[seq]}); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	waitForSamples(t, client, len(latencies))

	resp, err := client.MarkExit(ctx)
	if err != nil {
		t.Fatalf("exit: %v", err)
	}
	ride := resp.GetFields()["lastRide"].GetStructValue().GetFields()
	if got := ride["estimatedDuration"].GetNumberValue(); got != 12 {
		t.Fatalf("expected estimated duration 12, got %v", got)
	}
	if got := ride["floors"].GetNumberValue(); got != 3 {
		t.Fatalf("expected 3 floors, got %v", got)
	}

	listed, err := client.ListRides(ctx, 5)
	if err != nil {
		t.Fatalf("list rides: %v", err)
	}
	if n := len(listed.GetFields()["rides"].GetListValue().GetValues()); n != 1 {
		t.Fatalf("expected 1 persisted ride, got %d", n)
	}

	_, err = client.MarkExit(ctx)
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("expected failed precondition on second exit, got %v", err)
	}
}

func TestWatchSnapshotsOverGRPC(t *testing.T) {
	client, _ := startTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	received := make(chan *structpb.Struct, 8)
	go func() {
		_ = client.WatchSnapshots(ctx, func(msg *structpb.Struct) error {
			received <- msg
			return nil
		})
	}()

	// The first message is the current state.
	select {
	case <-received:
	case <-ctx.Done():
		t.Fatal("no initial snapshot")
	}

	if err := client.RecordSample(ctx, models.Sample{Sequence: 0, Latency: 0.02}); err != nil {
		t.Fatalf("record: %v", err)
	}
	select {
	case msg := <-received:
		if msg.GetFields()["samples"].GetNumberValue() != 1 {
			t.Fatalf("unexpected snapshot: %v", msg)
		}
	case <-ctx.Done():
		t.Fatal("no streamed snapshot")
	}
}
