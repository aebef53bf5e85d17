package session

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/miradorstack/televator/internal/models"
)

func TestBroadcasterDropsWhenFull(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(1)
	defer cancel()

	b.Publish(models.Snapshot{Samples: 1})
	b.Publish(models.Snapshot{Samples: 2})

	got := <-ch
	assert.Equal(t, 1, got.Samples)
	select {
	case extra := <-ch:
		t.Fatalf("unexpected snapshot %+v", extra)
	default:
	}
}

func TestBroadcasterCancelAndClose(t *testing.T) {
	b := NewBroadcaster()
	ch, cancel := b.Subscribe(1)
	assert.Equal(t, 1, b.Subscribers())

	cancel()
	cancel()
	_, ok := <-ch
	assert.False(t, ok)
	assert.Equal(t, 0, b.Subscribers())

	other, _ := b.Subscribe(1)
	b.Close()
	_, ok = <-other
	assert.False(t, ok)

	late, _ := b.Subscribe(1)
	_, ok = <-late
	assert.False(t, ok)
}
