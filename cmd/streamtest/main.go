// streamtest connects to the wire feed and streams decoded ticks to
// console. Usage:
//
//	go run ./cmd/streamtest --token $ACCESS_TOKEN --instrument NSE_EQ:22:full
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/openvortex/wire-data/internal/feed"
	"github.com/openvortex/wire-data/internal/wire"
)

type instrumentList []string

func (l *instrumentList) String() string { return strings.Join(*l, ",") }

func (l *instrumentList) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func main() {
	accessToken := flag.String("token", os.Getenv("VORTEX_ACCESS_TOKEN"), "feed access token")
	endpoint := flag.String("endpoint", feed.DefaultEndpoint, "feed WebSocket URL")
	verbose := flag.Bool("verbose", false, "print raw frames too")

	var instruments instrumentList
	flag.Var(&instruments, "instrument", "EXCHANGE:TOKEN:MODE, repeatable")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	if *accessToken == "" {
		logger.Error("access token required (--token or VORTEX_ACCESS_TOKEN)")
		os.Exit(1)
	}
	if len(instruments) == 0 {
		logger.Error("at least one --instrument required")
		os.Exit(1)
	}

	subs, err := parseInstruments(instruments)
	if err != nil {
		logger.Error("bad instrument", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal")
		cancel()
	}()

	cfg := feed.DefaultConfig(*accessToken)
	cfg.Endpoint = *endpoint

	listener := &printer{logger: logger, subs: subs, verbose: *verbose}
	session := feed.NewSession(cfg, listener, logger)

	if err := session.Connect(ctx, false); err != nil {
		logger.Error("connect failed", "error", err)
		os.Exit(1)
	}
}

// parseInstruments parses EXCHANGE:TOKEN:MODE triples.
func parseInstruments(raw []string) ([]feed.Subscription, error) {
	subs := make([]feed.Subscription, 0, len(raw))
	for _, r := range raw {
		parts := strings.Split(r, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("%q: want EXCHANGE:TOKEN:MODE", r)
		}
		token, err := strconv.ParseInt(parts[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%q: bad token: %w", r, err)
		}
		subs = append(subs, feed.Subscription{
			Exchange: parts[0],
			Token:    int32(token),
			Mode:     wire.Mode(parts[2]),
		})
	}
	return subs, nil
}

// printer subscribes on open and prints every tick as one JSON line.
type printer struct {
	feed.NopListener

	logger  *slog.Logger
	subs    []feed.Subscription
	verbose bool
}

func (p *printer) OnOpen(s *feed.Session) {
	for _, sub := range p.subs {
		if err := s.Subscribe(sub.Exchange, sub.Token, sub.Mode); err != nil {
			p.logger.Error("subscribe failed",
				"exchange", sub.Exchange,
				"token", sub.Token,
				"error", err,
			)
			return
		}
		p.logger.Info("subscribed", "exchange", sub.Exchange, "token", sub.Token, "mode", sub.Mode)
	}
}

func (p *printer) OnMessage(s *feed.Session, messageType int, payload []byte) {
	if p.verbose {
		p.logger.Debug("frame", "type", messageType, "bytes", len(payload))
	}
}

func (p *printer) OnTick(s *feed.Session, tick wire.Tick) {
	data, err := json.Marshal(tick)
	if err != nil {
		p.logger.Error("marshal tick", "error", err)
		return
	}
	fmt.Println(string(data))
}

func (p *printer) OnOrderUpdate(s *feed.Session, update wire.OrderUpdate) {
	data, _ := json.Marshal(update)
	fmt.Println(string(data))
}

func (p *printer) OnError(s *feed.Session, err error) {
	p.logger.Error("feed error", "error", err)
}

func (p *printer) OnReconnect(s *feed.Session, attempt int) {
	p.logger.Info("reconnecting", "attempt", attempt)
}

func (p *printer) OnNoReconnect(s *feed.Session) {
	p.logger.Error("retry budget exhausted")
}
