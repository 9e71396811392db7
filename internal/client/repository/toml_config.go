package repository

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	client "github.com/shanmiteko/bili-login/internal/client/domain"
)

const (
	permRepository = 0644
)

// TOMLConfigRepository reads the config file, reloading it when its
// modification time changes. A missing file yields the defaults.
type TOMLConfigRepository struct {
	FilePath string

	mu         sync.Mutex
	data       schema
	loaded     bool
	modifiedAt time.Time
}

func (r *TOMLConfigRepository) Get() (client.Config, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	modTime, exists, err := r.fileModTime()
	if err != nil {
		return client.Config{}, err
	}
	if !exists {
		return client.DefaultConfig(), nil
	}
	// modifiedAt only advances on a successful load.
	if !r.loaded || !r.modifiedAt.Equal(modTime) {
		if err := r.load(); err != nil {
			return client.Config{}, err
		}
		r.modifiedAt = modTime
	}
	return r.data.toDomain(), nil
}

func (r *TOMLConfigRepository) Save(cfg client.Config) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := schema{}
	data.fromDomain(cfg)
	if err := validateSchema(data); err != nil {
		return err
	}
	r.data = data
	return r.save()
}

type duration struct {
	value time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.value = v
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.value.String()), nil
}

type passportTable struct {
	BaseURL   string   `toml:"base_url" validate:"required,url"`
	UserAgent string   `toml:"user_agent" validate:"required"`
	Timeout   duration `toml:"timeout"`
	Keep      bool     `toml:"keep"`
}

type serverTable struct {
	RPCAddress  string `toml:"rpc_address" validate:"required,hostname_port"`
	HTTPAddress string `toml:"http_address" validate:"required,hostname_port"`
}

type journalTable struct {
	DSN        string `toml:"dsn" validate:"required"`
	MaxEntries int    `toml:"max_entries" validate:"gte=1"`
}

type logTable struct {
	Level string `toml:"level" validate:"oneof=trace debug info warn error disabled"`
}

type schema struct {
	Passport passportTable `toml:"passport"`
	Server   serverTable   `toml:"server"`
	Journal  journalTable  `toml:"journal"`
	Log      logTable      `toml:"log"`
}

func (s *schema) toDomain() client.Config {
	return client.Config{
		Passport: client.PassportConfig{
			BaseURL:   s.Passport.BaseURL,
			UserAgent: s.Passport.UserAgent,
			Timeout:   s.Passport.Timeout.value,
			Keep:      s.Passport.Keep,
		},
		Server: client.ServerConfig{
			RPCAddress:  s.Server.RPCAddress,
			HTTPAddress: s.Server.HTTPAddress,
		},
		Journal: client.JournalConfig{
			DSN:        s.Journal.DSN,
			MaxEntries: s.Journal.MaxEntries,
		},
		LogLevel: s.Log.Level,
	}
}

func (s *schema) fromDomain(cfg client.Config) {
	s.Passport = passportTable{
		BaseURL:   cfg.Passport.BaseURL,
		UserAgent: cfg.Passport.UserAgent,
		Timeout:   duration{value: cfg.Passport.Timeout},
		Keep:      cfg.Passport.Keep,
	}
	s.Server = serverTable{
		RPCAddress:  cfg.Server.RPCAddress,
		HTTPAddress: cfg.Server.HTTPAddress,
	}
	s.Journal = journalTable{
		DSN:        cfg.Journal.DSN,
		MaxEntries: cfg.Journal.MaxEntries,
	}
	s.Log = logTable{Level: cfg.LogLevel}
}

var configValidator = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
	})
	return v
}

func validateSchema(s schema) error {
	if err := configValidator.Struct(s); err != nil {
		return fmt.Errorf("failed to validate config: %w", err)
	}
	return nil
}

func (r *TOMLConfigRepository) fileModTime() (time.Time, bool, error) {
	info, err := os.Stat(r.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to read file timestamp: %w", err)
	}
	return info.ModTime(), true, nil
}

// load decodes over the defaults so a partial file only overrides what it
// names. ${VAR} references are expanded from the environment first.
func (r *TOMLConfigRepository) load() error {
	content, err := os.ReadFile(r.FilePath)
	if err != nil {
		return fmt.Errorf("failed to load repository: %w", err)
	}

	data := schema{}
	data.fromDomain(client.DefaultConfig())
	if _, err := toml.Decode(os.ExpandEnv(string(content)), &data); err != nil {
		return fmt.Errorf("failed to load repository: %w", err)
	}
	if err := validateSchema(data); err != nil {
		return err
	}
	r.data = data
	r.loaded = true
	return nil
}

func (r *TOMLConfigRepository) save() error {
	file, err := os.OpenFile(r.FilePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, permRepository)
	if err != nil {
		return fmt.Errorf("failed to save repository: %w", err)
	}
	defer file.Close()
	enc := toml.NewEncoder(file)
	enc.Indent = ""
	return enc.Encode(r.data)
}
