package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/bmakarand2009/studiomedia/internal/args"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig
	Backend  BackendConfig
	Cdn      CdnConfig
	Transfer TransferConfig
	Kv       KvConfig
	Journal  JournalConfig
}

type ServerConfig struct {
	Port           int
	Host           string
	AllowedOrigins []string
}

// BackendConfig describes the primary backend that negotiates transfers
// and owns the asset records. The bearer token is assumed to be issued
// elsewhere and handed to this process fully formed.
type BackendConfig struct {
	BaseUrl     string
	BearerToken string
	ProductId   string
	Timeout     time.Duration
}

type CdnConfig struct {
	UploadUrl    string
	CloudName    string
	UploadPreset string
	Folder       string
}

type TransferConfig struct {
	ChunkSize     int64
	RetryDelays   []time.Duration
	MaxConcurrent int
}

type KvMode string

const (
	KvModeInMemory KvMode = "memory"
	KvModeRedis    KvMode = "redis"
)

type KvConfig struct {
	Mode  KvMode
	Redis struct {
		Host     string
		Port     int
		Username string
		Password string
		Database int
	}
}

type JournalMode string

const (
	JournalModeInMemory JournalMode = "memory"
	JournalModePostgres JournalMode = "postgres"
)

type JournalConfig struct {
	Mode     JournalMode
	Postgres struct {
		Host     string
		Port     int
		Database string
		Username string
		Password string
		SslMode  string
	}
}

var C Config

var k = koanf.New(".")

func Init() {
	if args.ConfigFilePath() != "" {
		_, err := os.Stat(args.ConfigFilePath())
		if err != nil {
			panic(fmt.Errorf("failed to stat config file: %w", err))
		}

		err = k.Load(file.Provider(args.ConfigFilePath()), yaml.Parser())
		if err != nil {
			panic(fmt.Errorf("failed to load config file: %w", err))
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: "STUDIOMEDIA_",
		TransformFunc: func(k, v string) (string, any) {
			// Transform the key.
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "STUDIOMEDIA_")), "_", ".")

			if strings.Contains(v, " ") {
				return k, strings.Split(v, " ")
			}

			return k, v
		},
	}), nil)
	if err != nil {
		panic(fmt.Errorf("failed to load env provider: %w", err))
	}

	err = k.Unmarshal("", &C)
	if err != nil {
		panic(fmt.Errorf("failed to unmarshal config: %w", err))
	}

	setDefaultsOrPanic()
}

func setDefaultsOrPanic() {
	setServerDefaultsOrPanic()
	setBackendDefaultsOrPanic()
	setTransferDefaultsOrPanic()
	setKvDefaultsOrPanic()
	setJournalDefaultsOrPanic()
}

func setServerDefaultsOrPanic() {
	if C.Server.Host == "" {
		if args.IsProduction() {
			panic("Server.Host must be set in production.")
		}

		C.Server.Host = "localhost"
	}

	if C.Server.Port == 0 {
		C.Server.Port = 8080
	}
}

func setBackendDefaultsOrPanic() {
	if C.Backend.BaseUrl == "" {
		panic("Backend.BaseUrl must be set to the backend base url.")
	}

	if C.Backend.BearerToken == "" {
		panic("Backend.BearerToken must be set to the backend bearer credential.")
	}

	if C.Backend.Timeout == 0 {
		C.Backend.Timeout = 30 * time.Second
	}
}

func setTransferDefaultsOrPanic() {
	if C.Transfer.ChunkSize == 0 {
		C.Transfer.ChunkSize = 8 * 1024 * 1024
	}

	if len(C.Transfer.RetryDelays) == 0 {
		C.Transfer.RetryDelays = []time.Duration{
			0,
			3 * time.Second,
			5 * time.Second,
			10 * time.Second,
			20 * time.Second,
		}
	}

	if C.Transfer.MaxConcurrent < 0 {
		panic("Transfer.MaxConcurrent must not be negative.")
	}
}

func setKvDefaultsOrPanic() {
	if C.Kv.Mode == "" {
		if args.IsProduction() {
			panic("Kv.Mode must be set in production.")
		}

		C.Kv.Mode = KvModeInMemory
	}

	switch C.Kv.Mode {
	case KvModeInMemory:
		return

	case KvModeRedis:
		setKvRedisDefaultsOrPanic()

	default:
		panic(fmt.Errorf("unsupported kv mode: %s", C.Kv.Mode))
	}
}

func setKvRedisDefaultsOrPanic() {
	if C.Kv.Redis.Host == "" {
		if args.IsProduction() {
			panic("Kv.Redis.Host must be set in production.")
		}

		C.Kv.Redis.Host = "localhost"
	}

	if C.Kv.Redis.Port == 0 {
		C.Kv.Redis.Port = 6379
	}
}

func setJournalDefaultsOrPanic() {
	if C.Journal.Mode == "" {
		if args.IsProduction() {
			panic("Journal.Mode must be set in production.")
		}

		C.Journal.Mode = JournalModeInMemory
	}

	switch C.Journal.Mode {
	case JournalModeInMemory:
		return

	case JournalModePostgres:
		setJournalPostgresDefaultsOrPanic()

	default:
		panic(fmt.Errorf("unsupported journal mode: %s", C.Journal.Mode))
	}
}

func setJournalPostgresDefaultsOrPanic() {
	if C.Journal.Postgres.Host == "" {
		if args.IsProduction() {
			panic("Journal.Postgres.Host must be set in production.")
		}

		C.Journal.Postgres.Host = "localhost"
	}

	if C.Journal.Postgres.Port == 0 {
		C.Journal.Postgres.Port = 5432
	}

	if C.Journal.Postgres.Database == "" {
		panic("Journal.Postgres.Database must be set.")
	}

	if C.Journal.Postgres.SslMode == "" {
		C.Journal.Postgres.SslMode = "disable"
	}
}
