package app

import (
	"github.com/cohesivestack/valgo"
	"github.com/joshjon/kit/log"
	"github.com/joshjon/kit/valgoutil"

	"github.com/coro-sh/catalog/constants"
	"github.com/coro-sh/catalog/postgres"
)

const (
	defaultServerPort = 8181

	StorageDriverMemory   = "memory"
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

var (
	storageDrivers = []string{StorageDriverMemory, StorageDriverSQLite, StorageDriverPostgres}
	sslModes       = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}
)

// Config is the catalog server configuration.
type Config struct {
	Port        int           `yaml:"port" env:"PORT"` // default: 8181
	Logger      LoggerConfig  `yaml:"logger" envPrefix:"LOGGER_"`
	TLS         *TLSConfig    `yaml:"tls" envPrefix:"TLS_"`
	CorsOrigins []string      `yaml:"corsOrigins" env:"CORS_ORIGINS"`
	Storage     StorageConfig `yaml:"storage" envPrefix:"STORAGE_"`
	Events      *EventsConfig `yaml:"events,omitempty" envPrefix:"EVENTS_"`
}

func (c *Config) InitDefaults() {
	c.Port = defaultServerPort
	c.Logger.InitDefaults()
	c.Storage.InitDefaults()
}

func (c *Config) Validation() *valgo.Validation {
	v := valgo.New()
	v.Is(valgo.Int(c.Port, "port").GreaterOrEqualTo(0))
	v.In("logger", c.Logger.Validation())
	v.In("storage", c.Storage.Validation())

	for i, origin := range c.CorsOrigins {
		v.InRow("corsOrigins", i, valgo.Is(valgoutil.CORSValidator(origin, "origin")))
	}

	if c.TLS != nil {
		v.In("tls", c.TLS.Validation())
	}

	if c.Events != nil {
		v.In("events", c.Events.Validation())
	}

	return v
}

type LoggerConfig struct {
	Level      string `yaml:"level" env:"LEVEL"`           // default: info
	Structured bool   `yaml:"structured" env:"STRUCTURED"` // default: true
}

func (c *LoggerConfig) InitDefaults() {
	c.Structured = true
	c.Level = "info"
}

func (c *LoggerConfig) Validation() *valgo.Validation {
	return valgo.Is(valgo.String(c.Level, "level").Passing(func(_ string) bool {
		_, ok := log.ParseLevel(c.Level)
		return ok
	}, "Must be one of [debug, info, warn, error]"))
}

type TLSConfig struct {
	CertFile           string `yaml:"certFile" env:"CERT_FILE"`
	KeyFile            string `yaml:"keyFile" env:"KEY_FILE"`
	CACertFile         string `yaml:"caCertFile" env:"CA_CERT_FILE"`
	InsecureSkipVerify bool   `yaml:"insecureSkipVerify" env:"INSECURE_SKIP_VERIFY"` // client TLS only
}

func (c *TLSConfig) Validation() *valgo.Validation {
	return valgo.Is(
		valgo.String(c.CertFile, "certFile").Not().Blank(),
		valgo.String(c.KeyFile, "keyFile").Not().Blank(),
	)
}

// StorageConfig selects the namespace repository backend.
type StorageConfig struct {
	Driver   string          `yaml:"driver" env:"DRIVER"` // default: memory
	SQLite   SQLiteConfig    `yaml:"sqlite" envPrefix:"SQLITE_"`
	Postgres *PostgresConfig `yaml:"postgres,omitempty" envPrefix:"POSTGRES_"`
}

func (c *StorageConfig) InitDefaults() {
	c.Driver = StorageDriverMemory
}

func (c *StorageConfig) Validation() *valgo.Validation {
	v := valgo.Is(valgo.String(c.Driver, "driver").InSlice(storageDrivers))

	switch c.Driver {
	case StorageDriverSQLite:
		v.In("sqlite", c.SQLite.Validation())
	case StorageDriverPostgres:
		if c.Postgres == nil {
			v.Is(valgo.Bool(false, "postgres").True("Required when driver is postgres"))
			break
		}
		v.In("postgres", c.Postgres.Validation())
	}

	return v
}

type SQLiteConfig struct {
	// Dir is the directory of the database file. An in-memory database is
	// used when empty.
	Dir string `yaml:"dir" env:"DIR"`
}

func (c *SQLiteConfig) Validation() *valgo.Validation {
	return valgo.New()
}

type PostgresConfig struct {
	Database string `yaml:"database" env:"DATABASE"` // default: catalog
	HostPort string `yaml:"hostPort" env:"HOST_PORT"`
	User     string `yaml:"user" env:"USER"`
	Password string `yaml:"password" env:"PASSWORD"`
	SSLMode  string `yaml:"sslMode" env:"SSL_MODE"` // default: disable
	MaxConns int32  `yaml:"maxConns" env:"MAX_CONNS"`
}

func (c *PostgresConfig) Validation() *valgo.Validation {
	v := valgo.Is(
		valgoutil.HostPortValidator(c.HostPort, "hostPort"),
		valgo.String(c.User, "user").Not().Blank(),
		valgo.Int32(c.MaxConns, "maxConns").GreaterOrEqualTo(0),
	)
	if c.SSLMode != "" {
		v.Is(valgo.String(c.SSLMode, "sslMode").InSlice(sslModes))
	}
	return v
}

func (c *PostgresConfig) database() string {
	if c.Database == "" {
		return postgres.AppDBName
	}
	return c.Database
}

// EventsConfig enables publishing namespace change events to NATS. Either an
// external NatsURL or an embedded server must be configured.
type EventsConfig struct {
	NatsURL       string              `yaml:"natsURL" env:"NATS_URL"`
	SubjectPrefix string              `yaml:"subjectPrefix" env:"SUBJECT_PREFIX"` // default: catalog.events
	TLS           *TLSConfig          `yaml:"tls" envPrefix:"TLS_"`
	Embedded      *EmbeddedNATSConfig `yaml:"embedded,omitempty" envPrefix:"EMBEDDED_"`
	// MaxReconnects bounds reconnect attempts after a lost connection. -1
	// retries forever (default).
	MaxReconnects *int `yaml:"maxReconnects,omitempty" env:"MAX_RECONNECTS"`
}

func (c *EventsConfig) subjectPrefix() string {
	if c.SubjectPrefix == "" {
		return constants.DefaultEventSubjectPrefix
	}
	return c.SubjectPrefix
}

func (c *EventsConfig) Validation() *valgo.Validation {
	v := valgo.New()

	if c.Embedded == nil {
		v.Is(valgoutil.URLValidator(c.NatsURL, "natsURL"))
	} else {
		v.In("embedded", c.Embedded.Validation())
	}

	if c.TLS != nil {
		v.In("tls", c.TLS.Validation())
	}

	if c.MaxReconnects != nil {
		v.Is(valgo.Int(*c.MaxReconnects, "maxReconnects").GreaterOrEqualTo(-1))
	}

	return v
}

type EmbeddedNATSConfig struct {
	// HostPort exposes the embedded server to external subscribers. The
	// server is only reachable in process when empty.
	HostPort string     `yaml:"hostPort" env:"HOST_PORT"`
	TLS      *TLSConfig `yaml:"tls" envPrefix:"TLS_"`
}

func (c *EmbeddedNATSConfig) Validation() *valgo.Validation {
	v := valgo.New()
	if c.HostPort != "" {
		v.Is(valgoutil.HostPortValidator(c.HostPort, "hostPort"))
	}
	if c.TLS != nil {
		v.In("tls", c.TLS.Validation())
	}
	return v
}
