package config

import (
	"errors"
	"fmt"

	"github.com/openvortex/wire-data/internal/wire"
)

// Validate checks that all required fields are set and values are valid.
func (c *RecorderConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.Auth.AccessToken == "" {
		if c.Auth.APIKey == "" {
			return errors.New("auth.api_key is required when auth.access_token is not set")
		}
		if c.Auth.ClientCode == "" {
			return errors.New("auth.client_code is required when auth.access_token is not set")
		}
		if c.Auth.Password == "" {
			return errors.New("auth.password is required when auth.access_token is not set")
		}
	}

	if c.Feed.ReconnectMaxTries < 0 {
		return errors.New("feed.reconnect_max_tries must be >= 0")
	}

	if err := c.Database.Postgres.validate("database.postgres"); err != nil {
		return err
	}

	if c.Writer.BatchSize < 1 {
		return errors.New("writer.batch_size must be >= 1")
	}
	if c.Writer.BufferSize < 1 {
		return errors.New("writer.buffer_size must be >= 1")
	}

	if len(c.Instruments) == 0 {
		return errors.New("at least one instrument is required")
	}
	for i, inst := range c.Instruments {
		if err := inst.validate(fmt.Sprintf("instruments[%d]", i)); err != nil {
			return err
		}
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

func (inst *InstrumentConfig) validate(prefix string) error {
	switch inst.Exchange {
	case wire.ExchangeNSEEquity, wire.ExchangeNSEFutures, wire.ExchangeNSECurrency, wire.ExchangeMCXFutures:
	default:
		return fmt.Errorf("%s.exchange %q is not a known exchange", prefix, inst.Exchange)
	}
	if inst.Token <= 0 {
		return fmt.Errorf("%s.token must be > 0", prefix)
	}
	switch wire.Mode(inst.Mode) {
	case wire.ModeLTP, wire.ModeOHLCV, wire.ModeFull:
	default:
		return fmt.Errorf("%s.mode %q is not a known mode", prefix, inst.Mode)
	}
	return nil
}
