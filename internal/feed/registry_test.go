package feed

import (
	"reflect"
	"testing"

	"github.com/openvortex/wire-data/internal/wire"
)

func TestRegistry_PutRemove(t *testing.T) {
	r := newRegistry()

	r.put(wire.ExchangeNSEEquity, 22, wire.ModeLTP)
	if r.size() != 1 {
		t.Fatalf("size = %d, want 1", r.size())
	}

	r.remove(wire.ExchangeNSEEquity, 22)
	if r.size() != 0 {
		t.Errorf("size after remove = %d, want 0", r.size())
	}
	if got := r.all(); len(got) != 0 {
		t.Errorf("all() = %v, want empty", got)
	}
}

func TestRegistry_LatestModeWins(t *testing.T) {
	r := newRegistry()

	r.put(wire.ExchangeNSEEquity, 22, wire.ModeLTP)
	r.put(wire.ExchangeNSEEquity, 22, wire.ModeFull)

	got := r.all()
	want := []Subscription{{Exchange: wire.ExchangeNSEEquity, Token: 22, Mode: wire.ModeFull}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("all() = %v, want %v", got, want)
	}
}

func TestRegistry_RemoveAbsentIsNoOp(t *testing.T) {
	r := newRegistry()
	r.remove(wire.ExchangeMCXFutures, 999)

	r.put(wire.ExchangeNSEFutures, 1, wire.ModeOHLCV)
	r.remove(wire.ExchangeNSEFutures, 2)
	if r.size() != 1 {
		t.Errorf("size = %d, want 1", r.size())
	}
}

func TestRegistry_AllSorted(t *testing.T) {
	r := newRegistry()
	r.put(wire.ExchangeNSEFutures, 500, wire.ModeFull)
	r.put(wire.ExchangeNSEEquity, 40, wire.ModeLTP)
	r.put(wire.ExchangeNSEEquity, 22, wire.ModeOHLCV)
	r.put(wire.ExchangeMCXFutures, 9, wire.ModeLTP)

	got := r.all()
	want := []Subscription{
		{Exchange: wire.ExchangeMCXFutures, Token: 9, Mode: wire.ModeLTP},
		{Exchange: wire.ExchangeNSEEquity, Token: 22, Mode: wire.ModeOHLCV},
		{Exchange: wire.ExchangeNSEEquity, Token: 40, Mode: wire.ModeLTP},
		{Exchange: wire.ExchangeNSEFutures, Token: 500, Mode: wire.ModeFull},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("all() = %v, want %v", got, want)
	}
}
