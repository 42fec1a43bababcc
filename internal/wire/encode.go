package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeFrame assembles raw packets into a binary frame with the
// uint16 LE count and per-packet length prefixes.
func EncodeFrame(packets ...[]byte) []byte {
	size := 2
	for _, p := range packets {
		size += 2 + len(p)
	}

	frame := make([]byte, 0, size)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(len(packets)))
	for _, p := range packets {
		frame = binary.LittleEndian.AppendUint16(frame, uint16(len(p)))
		frame = append(frame, p...)
	}
	return frame
}

// EncodePacket encodes a tick back into its wire form. The inverse of
// DecodePacket for all three kinds.
func EncodePacket(t Tick) ([]byte, error) {
	if len(t.Exchange) > exchangeFieldLength {
		return nil, fmt.Errorf("exchange %q longer than %d bytes", t.Exchange, exchangeFieldLength)
	}

	switch t.Kind {
	case KindLTP:
		w := writer{buf: make([]byte, 0, LTPPacketLength)}
		w.exchange(t.Exchange)
		w.int32(t.Token)
		w.float64(t.LastTradePrice)
		return w.buf, nil

	case KindOHLCV:
		w := writer{buf: make([]byte, 0, OHLCVPacketLength)}
		w.exchange(t.Exchange)
		w.int32(t.Token)
		w.float64(t.LastTradePrice)
		w.int32(t.LastTradeTime)
		w.float64(t.Open)
		w.float64(t.High)
		w.float64(t.Low)
		w.float64(t.Close)
		w.int32(t.Volume)
		return w.buf, nil

	case KindFull:
		w := writer{buf: make([]byte, 0, FullPacketLength)}
		w.exchange(t.Exchange)
		w.int32(t.Token)
		w.int32(t.LastTradeTime)
		w.int32(t.LastUpdateTime)
		w.float64(t.LastTradePrice)
		w.int32(t.LastTradeQuantity)
		w.int32(t.Volume)
		w.float64(t.AverageTradePrice)
		w.int64(t.TotalBuyQuantity)
		w.int64(t.TotalSellQuantity)
		w.int32(t.OpenInterest)
		w.float64(t.Open)
		w.float64(t.High)
		w.float64(t.Low)
		w.float64(t.Close)

		levels := make([]DepthLevel, 0, 10)
		levels = append(levels, t.Depth.Buy[:]...)
		levels = append(levels, t.Depth.Sell[:]...)

		w.float64(levels[0].Price)
		for i, lvl := range levels {
			w.int32(lvl.Quantity)
			w.int32(lvl.Orders)
			if i < len(levels)-1 {
				w.float64(levels[i+1].Price)
			}
		}

		// Trailing pads.
		w.int32(0)
		w.int32(0)
		return w.buf, nil

	default:
		return nil, fmt.Errorf("unknown tick kind %q", t.Kind)
	}
}

type writer struct {
	buf []byte
}

func (w *writer) exchange(s string) {
	field := make([]byte, exchangeFieldLength)
	copy(field, s)
	w.buf = append(w.buf, field...)
}

func (w *writer) int32(v int32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, uint32(v))
}

func (w *writer) int64(v int64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, uint64(v))
}

func (w *writer) float64(v float64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, math.Float64bits(v))
}
