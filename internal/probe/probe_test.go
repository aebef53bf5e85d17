package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/televator/internal/models"
)

func TestTCPProberReachesListener(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	go func() {
		for {
			conn, err := lis.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	rtt, err := NewTCPProber(lis.Addr().String(), time.Second).Probe(context.Background())
	require.NoError(t, err)
	assert.Greater(t, rtt, time.Duration(0))
}

func TestTCPProberFailsOnClosedPort(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := lis.Addr().String()
	lis.Close()

	_, err = NewTCPProber(addr, 200*time.Millisecond).Probe(context.Background())
	assert.Error(t, err)
}

func TestHTTPProber(t *testing.T) {
	var method atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method.Store(r.Method)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p, err := New("http", srv.URL, time.Second)
	require.NoError(t, err)
	_, err = p.Probe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.MethodHead, method.Load())
}

func TestNewRejectsUnknownKind(t *testing.T) {
	_, err := New("icmp", "1.1.1.1", time.Second)
	assert.Error(t, err)
}

type scriptedProber struct {
	calls atomic.Int64
}

func (p *scriptedProber) Probe(ctx context.Context) (time.Duration, error) {
	n := p.calls.Add(1)
	if n%3 == 0 {
		return 0, errors.New("unreachable")
	}
	return 20 * time.Millisecond, nil
}

func TestSchedulerNumbersSamplesDensely(t *testing.T) {
	sched := NewScheduler(nil, &scriptedProber{}, 2*time.Millisecond, 100*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []models.Sample
	errCh := make(chan error, 1)
	go func() {
		errCh <- sched.Run(ctx, func(_ context.Context, s models.Sample) error {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, s)
			if len(got) == 6 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(got), 6)
	failures := 0
	for i, s := range got {
		assert.Equal(t, uint64(i), s.Sequence)
		switch s.Latency {
		case 0.1:
			failures++
		case 0.02:
		default:
			t.Fatalf("unexpected latency %v", s.Latency)
		}
	}
	assert.GreaterOrEqual(t, failures, 1)
}
