package wire

import "encoding/json"

// Exchange identifiers (segment codes) accepted by the feed server.
const (
	ExchangeNSEEquity   = "NSE_EQ"
	ExchangeNSEFutures  = "NSE_FO"
	ExchangeNSECurrency = "NSE_CD"
	ExchangeMCXFutures  = "MCX_FO"
)

// Mode selects how much detail the server streams for an instrument.
type Mode string

const (
	// ModeLTP streams last traded price only (19-byte packets).
	ModeLTP Mode = "ltp"

	// ModeOHLCV adds last trade time, OHLC and volume (59-byte packets).
	ModeOHLCV Mode = "ohlcv"

	// ModeFull adds trade statistics and 5-level depth (263-byte packets).
	ModeFull Mode = "full"
)

// Packet byte lengths. The length is the sole shape discriminant on the wire.
const (
	LTPPacketLength   = 19
	OHLCVPacketLength = 59
	FullPacketLength  = 263

	exchangeFieldLength = 7
)

// TickKind identifies the decoded shape of a tick.
type TickKind string

const (
	KindLTP   TickKind = "ltp"
	KindOHLCV TickKind = "ohlcv"
	KindFull  TickKind = "full"
)

// DepthLevel is one price tier of the order book on one side.
type DepthLevel struct {
	Price    float64
	Quantity int32
	Orders   int32
}

// Depth is the 5-level order book carried by full-depth packets.
type Depth struct {
	Buy  [5]DepthLevel
	Sell [5]DepthLevel
}

// Tick is one decoded market-data record. Kind indicates which field
// groups are populated: Exchange, Token and LastTradePrice are always
// set; OHLCV fields from KindOHLCV up; the rest only for KindFull.
// Field widths mirror the wire layout exactly.
type Tick struct {
	Kind TickKind

	Exchange       string
	Token          int32
	LastTradePrice float64

	// OHLCV and full
	LastTradeTime int32
	Open          float64
	High          float64
	Low           float64
	Close         float64
	Volume        int32

	// Full only
	LastUpdateTime    int32
	LastTradeQuantity int32
	AverageTradePrice float64
	TotalBuyQuantity  int64
	TotalSellQuantity int64
	OpenInterest      int32
	Depth             Depth
}

// OrderUpdate is a JSON order event forwarded from a text frame.
// Data is passed through verbatim; no structure is imposed on it.
type OrderUpdate struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}
