package wire

import (
	"encoding/binary"
	"math"
	"reflect"
	"testing"
)

// ltpVector is the 19-byte packet for NSE_EQ token 22 at 1700.5,
// built field by field to pin the wire layout.
func ltpVector() []byte {
	p := []byte("NSE_EQ\x00")
	p = binary.LittleEndian.AppendUint32(p, 22)
	p = binary.LittleEndian.AppendUint64(p, math.Float64bits(1700.5))
	return p
}

func TestDecodePacket_LTP(t *testing.T) {
	p := ltpVector()
	if len(p) != LTPPacketLength {
		t.Fatalf("vector length = %d, want %d", len(p), LTPPacketLength)
	}

	tick, ok := DecodePacket(p)
	if !ok {
		t.Fatal("DecodePacket returned ok=false")
	}

	want := Tick{
		Kind:           KindLTP,
		Exchange:       "NSE_EQ",
		Token:          22,
		LastTradePrice: 1700.5,
	}
	if tick != want {
		t.Errorf("tick = %+v, want %+v", tick, want)
	}
}

func TestDecodePacket_UnknownLengths(t *testing.T) {
	for _, n := range []int{0, 1, 18, 20, 58, 60, 100, 262, 264, 1000} {
		if _, ok := DecodePacket(make([]byte, n)); ok {
			t.Errorf("DecodePacket(%d bytes) ok = true, want false", n)
		}
	}
}

func TestDecodePacket_ExchangePaddingTrimmed(t *testing.T) {
	tick, ok := DecodePacket(append([]byte("MCX\x00\x00\x00\x00"), make([]byte, 12)...))
	if !ok {
		t.Fatal("DecodePacket returned ok=false")
	}
	if tick.Exchange != "MCX" {
		t.Errorf("Exchange = %q, want %q", tick.Exchange, "MCX")
	}
}

func TestSplitFrame_Heartbeat(t *testing.T) {
	for _, frame := range [][]byte{nil, {}, {0x01}} {
		if got := SplitFrame(frame); len(got) != 0 {
			t.Errorf("SplitFrame(%v) = %d packets, want 0", frame, len(got))
		}
	}
}

func TestSplitFrame_MultiPacket(t *testing.T) {
	a := []byte{0xAA}
	b := []byte{0xBB, 0xCC, 0xDD}
	c := ltpVector()
	frame := EncodeFrame(a, b, c)

	packets := SplitFrame(frame)
	if len(packets) != 3 {
		t.Fatalf("packet count = %d, want 3", len(packets))
	}
	for i, want := range [][]byte{a, b, c} {
		if !reflect.DeepEqual(packets[i], want) {
			t.Errorf("packet[%d] = %v, want %v", i, packets[i], want)
		}
	}
}

func TestSplitFrame_Truncated(t *testing.T) {
	frame := EncodeFrame([]byte{1, 2, 3}, []byte{4, 5, 6})
	// Cut into the second packet's body.
	packets := SplitFrame(frame[:len(frame)-2])
	if len(packets) != 1 {
		t.Fatalf("packet count = %d, want 1", len(packets))
	}
}

func TestDecodeFrame_SkipsUnknownPackets(t *testing.T) {
	frame := EncodeFrame(make([]byte, 7), ltpVector(), make([]byte, 33))
	ticks := DecodeFrame(frame)
	if len(ticks) != 1 {
		t.Fatalf("tick count = %d, want 1", len(ticks))
	}
	if ticks[0].Token != 22 {
		t.Errorf("Token = %d, want 22", ticks[0].Token)
	}
}

func sampleTicks() []Tick {
	full := Tick{
		Kind:              KindFull,
		Exchange:          "NSE_FO",
		Token:             53001,
		LastTradeTime:     1690000000,
		LastUpdateTime:    1690000001,
		LastTradePrice:    19754.25,
		LastTradeQuantity: 50,
		Volume:            123456,
		AverageTradePrice: 19750.1,
		TotalBuyQuantity:  987654321,
		TotalSellQuantity: 123456789,
		OpenInterest:      40200,
	}
	full.Open, full.High, full.Low, full.Close = 19700, 19800.5, 19650.75, 19710
	for i := 0; i < 5; i++ {
		full.Depth.Buy[i] = DepthLevel{Price: 19754 - float64(i), Quantity: int32(100 + i), Orders: int32(i + 1)}
		full.Depth.Sell[i] = DepthLevel{Price: 19755 + float64(i), Quantity: int32(200 + i), Orders: int32(i + 2)}
	}

	return []Tick{
		{
			Kind:           KindLTP,
			Exchange:       "NSE_EQ",
			Token:          22,
			LastTradePrice: 1700.5,
		},
		{
			Kind:           KindOHLCV,
			Exchange:       "NSE_CD",
			Token:          412,
			LastTradePrice: 83.1225,
			LastTradeTime:  1690001234,
			Open:           83.01,
			High:           83.2,
			Low:            82.9,
			Close:          83.05,
			Volume:         55000,
		},
		full,
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	wantLen := map[TickKind]int{
		KindLTP:   LTPPacketLength,
		KindOHLCV: OHLCVPacketLength,
		KindFull:  FullPacketLength,
	}

	for _, tick := range sampleTicks() {
		p, err := EncodePacket(tick)
		if err != nil {
			t.Fatalf("EncodePacket(%s) error = %v", tick.Kind, err)
		}
		if len(p) != wantLen[tick.Kind] {
			t.Fatalf("EncodePacket(%s) length = %d, want %d", tick.Kind, len(p), wantLen[tick.Kind])
		}

		decoded, ok := DecodePacket(p)
		if !ok {
			t.Fatalf("DecodePacket(%s) ok = false", tick.Kind)
		}
		if decoded != tick {
			t.Errorf("round trip %s:\n got %+v\nwant %+v", tick.Kind, decoded, tick)
		}
	}
}

func TestEncodePacket_Errors(t *testing.T) {
	if _, err := EncodePacket(Tick{Kind: KindLTP, Exchange: "TOO_LONG_EXCHANGE"}); err == nil {
		t.Error("EncodePacket with oversized exchange: error = nil, want error")
	}
	if _, err := EncodePacket(Tick{Kind: TickKind("bogus")}); err == nil {
		t.Error("EncodePacket with unknown kind: error = nil, want error")
	}
}
