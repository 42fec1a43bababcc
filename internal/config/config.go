package config

import "time"

// RecorderConfig is the root configuration for a recorder instance.
type RecorderConfig struct {
	Instance    InstanceConfig     `yaml:"instance"`
	Auth        AuthConfig         `yaml:"auth"`
	Feed        FeedConfig         `yaml:"feed"`
	Database    DatabaseConfig     `yaml:"database"`
	Writer      WriterConfig       `yaml:"writer"`
	Instruments []InstrumentConfig `yaml:"instruments"`
}

// InstanceConfig identifies this recorder.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// AuthConfig holds the Vortex REST login settings. AccessToken, when
// set, skips the login call entirely.
type AuthConfig struct {
	RestURL       string `yaml:"rest_url"`
	APIKey        string `yaml:"api_key"`
	ApplicationID string `yaml:"application_id"`
	ClientCode    string `yaml:"client_code"`
	Password      string `yaml:"password"`
	TOTP          string `yaml:"totp"`
	AccessToken   string `yaml:"access_token"`
}

// FeedConfig holds feed session settings.
type FeedConfig struct {
	Endpoint           string        `yaml:"endpoint"`
	ReconnectMaxTries  int           `yaml:"reconnect_max_tries"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ConnectTimeout     time.Duration `yaml:"connect_timeout"`
	PingInterval       time.Duration `yaml:"ping_interval"`
}

// DatabaseConfig holds the Postgres connection for recorded ticks.
type DatabaseConfig struct {
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WriterConfig holds batch writer settings.
type WriterConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// InstrumentConfig is one instrument to subscribe on startup.
type InstrumentConfig struct {
	Exchange string `yaml:"exchange"`
	Token    int32  `yaml:"token"`
	Mode     string `yaml:"mode"`
}
