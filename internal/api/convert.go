package api

import (
	"fmt"
	"math"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/televator/internal/models"
)

// HistoryTail bounds how many classified samples a snapshot message carries.
const HistoryTail = 300

// SnapshotView flattens a snapshot into plain values shared by the gRPC and
// websocket encodings. Only the newest tail samples of history are included;
// historyLength carries the full count.
func SnapshotView(s models.Snapshot, tail int) map[string]any {
	history := s.History
	if tail > 0 && len(history) > tail {
		history = history[len(history)-tail:]
	}
	samples := make([]any, 0, len(history))
	for _, c := range history {
		samples = append(samples, map[string]any{
			"index":    c.Index,
			"latency":  c.Latency,
			"signal":   int(c.Signal),
			"mean":     c.Mean,
			"stdDev":   c.StdDev,
			"filtered": c.Filtered,
		})
	}

	session := map[string]any{"open": s.Session.Open()}
	if s.Session.Enter != nil {
		session["enter"] = *s.Session.Enter
	}
	if s.Session.Exit != nil {
		session["exit"] = *s.Session.Exit
	}

	view := map[string]any{
		"samples":        s.Samples,
		"ready":          s.Ready,
		"warmupProgress": s.WarmupProgress,
		"maxLatency":     s.MaxLatency,
		"historyLength":  len(s.History),
		"history":        samples,
		"session":        session,
	}
	if s.LastRide != nil {
		view["lastRide"] = RideView(*s.LastRide)
	}
	return view
}

// RideView flattens a ride.
func RideView(r models.Ride) map[string]any {
	view := map[string]any{
		"enter":             r.Enter,
		"exit":              r.Exit,
		"observedLatency":   r.ObservedLatency,
		"expectedLatency":   r.ExpectedLatency,
		"estimatedDuration": r.EstimatedDuration,
		"floors":            r.Floors,
	}
	if r.ID != 0 {
		view["id"] = float64(r.ID)
	}
	if !r.CompletedAt.IsZero() {
		view["completedAt"] = r.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	return view
}

// ToProtoSnapshot encodes a snapshot as a Struct.
func ToProtoSnapshot(s models.Snapshot) (*structpb.Struct, error) {
	out, err := structpb.NewStruct(SnapshotView(s, HistoryTail))
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return out, nil
}

// ToProtoRides encodes rides as {"rides": [...]}.
func ToProtoRides(rides []models.Ride) (*structpb.Struct, error) {
	list := make([]any, 0, len(rides))
	for _, r := range rides {
		list = append(list, RideView(r))
	}
	out, err := structpb.NewStruct(map[string]any{"rides": list})
	if err != nil {
		return nil, fmt.Errorf("encode rides: %w", err)
	}
	return out, nil
}

// SampleToProto encodes {"sequence": n, "latency": seconds}.
func SampleToProto(s models.Sample) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]any{
		"sequence": float64(s.Sequence),
		"latency":  s.Latency,
	})
}

// FromProtoSample decodes a sample Struct. Sequence must be a non-negative integer
// and latency a non-negative finite number of seconds.
func FromProtoSample(in *structpb.Struct) (models.Sample, error) {
	if in == nil {
		return models.Sample{}, fmt.Errorf("request is nil")
	}
	seq, err := numberField(in, "sequence")
	if err != nil {
		return models.Sample{}, err
	}
	if seq < 0 || seq != math.Trunc(seq) || seq > 1<<53 {
		return models.Sample{}, fmt.Errorf("sequence must be a non-negative integer, got %v", seq)
	}
	latency, err := numberField(in, "latency")
	if err != nil {
		return models.Sample{}, err
	}
	if latency < 0 || math.IsNaN(latency) || math.IsInf(latency, 0) {
		return models.Sample{}, fmt.Errorf("latency must be a non-negative number, got %v", latency)
	}
	return models.Sample{Sequence: uint64(seq), Latency: latency}, nil
}

// FromProtoLimit reads an optional "limit" field, defaulting to def.
func FromProtoLimit(in *structpb.Struct, def int) (int, error) {
	if in == nil {
		return def, nil
	}
	if _, ok := in.GetFields()["limit"]; !ok {
		return def, nil
	}
	limit, err := numberField(in, "limit")
	if err != nil {
		return 0, err
	}
	if limit < 0 || limit != math.Trunc(limit) {
		return 0, fmt.Errorf("limit must be a non-negative integer, got %v", limit)
	}
	return int(limit), nil
}

func numberField(in *structpb.Struct, name string) (float64, error) {
	v, ok := in.GetFields()[name]
	if !ok {
		return 0, fmt.Errorf("%s is required", name)
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return n.NumberValue, nil
}
