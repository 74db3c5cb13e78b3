package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBusFanOutToAllObservers(t *testing.T) {
	b := New()
	o1 := b.Subscribe()
	o2 := b.Subscribe()
	defer b.Unsubscribe(o1)
	defer b.Unsubscribe(o2)

	b.Publish(Event{Kind: FrameSent, Seq: 1})

	for _, o := range []*Observer{o1, o2} {
		select {
		case ev := <-o.In:
			require.Equal(t, FrameSent, ev.Kind)
			require.Equal(t, uint32(1), ev.Seq)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestBusDropPolicyDiscardsOnFullBuffer(t *testing.T) {
	b := New()
	b.BufSize = 1
	b.Policy = PolicyDrop
	o := b.Subscribe()
	defer b.Unsubscribe(o)

	b.Publish(Event{Kind: AckSent, Seq: 0})
	b.Publish(Event{Kind: AckSent, Seq: 1}) // buffer full, dropped

	require.Equal(t, 1, len(o.In))
	select {
	case <-o.Closed:
		t.Fatal("drop policy must not close the observer")
	default:
	}
}

func TestBusKickPolicyClosesSlowObserver(t *testing.T) {
	b := New()
	b.BufSize = 1
	b.Policy = PolicyKick
	o := b.Subscribe()

	b.Publish(Event{Kind: ChunkDelivered, Seq: 0})
	b.Publish(Event{Kind: ChunkDelivered, Seq: 1}) // buffer full, kicked

	select {
	case <-o.Closed:
	case <-time.After(time.Second):
		t.Fatal("expected observer to be closed by kick policy")
	}
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	b := New()
	o := b.Subscribe()
	b.Unsubscribe(o)
	require.Equal(t, 0, b.Count())
	b.Publish(Event{Kind: SessionDone})
	require.Empty(t, o.In)
}
