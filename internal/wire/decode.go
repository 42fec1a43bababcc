package wire

import (
	"encoding/binary"
	"math"
	"strings"
)

// SplitFrame splits a binary frame into its raw packets.
//
// The frame starts with a uint16 LE packet count; each packet is
// prefixed with its own uint16 LE length. Frames shorter than 2 bytes
// are heartbeats and yield no packets. Truncated frames yield the
// packets that fit.
func SplitFrame(frame []byte) [][]byte {
	if len(frame) < 2 {
		return nil
	}

	count := int(binary.LittleEndian.Uint16(frame[0:2]))
	packets := make([][]byte, 0, count)

	j := 2
	for i := 0; i < count; i++ {
		if j+2 > len(frame) {
			break
		}
		length := int(binary.LittleEndian.Uint16(frame[j : j+2]))
		if j+2+length > len(frame) {
			break
		}
		packets = append(packets, frame[j+2:j+2+length])
		j += 2 + length
	}

	return packets
}

// DecodeFrame splits a binary frame and decodes every recognized packet.
// Packets with an unknown byte length are skipped.
func DecodeFrame(frame []byte) []Tick {
	packets := SplitFrame(frame)
	if len(packets) == 0 {
		return nil
	}

	ticks := make([]Tick, 0, len(packets))
	for _, p := range packets {
		if t, ok := DecodePacket(p); ok {
			ticks = append(ticks, t)
		}
	}
	return ticks
}

// DecodePacket decodes a single packet, dispatching on len(p).
// Returns ok=false for any unrecognized length.
func DecodePacket(p []byte) (Tick, bool) {
	switch len(p) {
	case LTPPacketLength:
		return decodeLTP(p), true
	case OHLCVPacketLength:
		return decodeOHLCV(p), true
	case FullPacketLength:
		return decodeFull(p), true
	default:
		return Tick{}, false
	}
}

func decodeLTP(p []byte) Tick {
	r := reader{buf: p}
	return Tick{
		Kind:           KindLTP,
		Exchange:       r.exchange(),
		Token:          r.int32(),
		LastTradePrice: r.float64(),
	}
}

func decodeOHLCV(p []byte) Tick {
	r := reader{buf: p}
	return Tick{
		Kind:           KindOHLCV,
		Exchange:       r.exchange(),
		Token:          r.int32(),
		LastTradePrice: r.float64(),
		LastTradeTime:  r.int32(),
		Open:           r.float64(),
		High:           r.float64(),
		Low:            r.float64(),
		Close:          r.float64(),
		Volume:         r.int32(),
	}
}

func decodeFull(p []byte) Tick {
	r := reader{buf: p}
	t := Tick{
		Kind:              KindFull,
		Exchange:          r.exchange(),
		Token:             r.int32(),
		LastTradeTime:     r.int32(),
		LastUpdateTime:    r.int32(),
		LastTradePrice:    r.float64(),
		LastTradeQuantity: r.int32(),
		Volume:            r.int32(),
		AverageTradePrice: r.float64(),
		TotalBuyQuantity:  r.int64(),
		TotalSellQuantity: r.int64(),
		OpenInterest:      r.int32(),
	}
	t.Open = r.float64()
	t.High = r.float64()
	t.Low = r.float64()
	t.Close = r.float64()

	// 5 buy levels then 5 sell levels. The first price shares the
	// trailing double run with OHLC; after that each level is
	// price, quantity, orders with the next price interleaved.
	levels := make([]DepthLevel, 10)
	levels[0].Price = r.float64()
	for i := 0; i < 10; i++ {
		levels[i].Quantity = r.int32()
		levels[i].Orders = r.int32()
		if i < 9 {
			levels[i+1].Price = r.float64()
		}
	}
	copy(t.Depth.Buy[:], levels[:5])
	copy(t.Depth.Sell[:], levels[5:])

	// Two trailing int32 pads; nothing decoded from them.
	return t
}

// reader walks a packet sequentially. Bounds are guaranteed by the
// length dispatch in DecodePacket.
type reader struct {
	buf []byte
	off int
}

func (r *reader) exchange() string {
	s := string(r.buf[r.off : r.off+exchangeFieldLength])
	r.off += exchangeFieldLength
	return strings.TrimRight(s, "\x00")
}

func (r *reader) int32() int32 {
	v := int32(binary.LittleEndian.Uint32(r.buf[r.off : r.off+4]))
	r.off += 4
	return v
}

func (r *reader) int64() int64 {
	v := int64(binary.LittleEndian.Uint64(r.buf[r.off : r.off+8]))
	r.off += 8
	return v
}

func (r *reader) float64() float64 {
	v := math.Float64frombits(binary.LittleEndian.Uint64(r.buf[r.off : r.off+8]))
	r.off += 8
	return v
}
