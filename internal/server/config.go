package server

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/holdemtable/internal/game"
)

// ServerConfig represents the complete server configuration
type ServerConfig struct {
	Server *ServerSettings `hcl:"server,block"`
	Tables []TableSpec     `hcl:"table,block"`
}

// ServerSettings contains server-level configuration
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`

	// SnapshotStore is one of memory, file or redis.
	SnapshotStore string `hcl:"snapshot_store,optional"`
	SnapshotDir   string `hcl:"snapshot_dir,optional"`
	RedisAddr     string `hcl:"redis_addr,optional"`
	RedisPassword string `hcl:"redis_password,optional"`
	RedisDB       int    `hcl:"redis_db,optional"`

	// HistoryDB is a sqlite path. Empty keeps history in memory.
	HistoryDB string `hcl:"history_db,optional"`
	NATSURL   string `hcl:"nats_url,optional"`

	// Websocket actions per second and burst, per connection.
	ActionRate  float64 `hcl:"action_rate,optional"`
	ActionBurst int     `hcl:"action_burst,optional"`
}

// TableSpec defines a table. It is used both for HCL table blocks and for
// the create-table HTTP request.
type TableSpec struct {
	Name           string      `hcl:"name,label" json:"id"`
	MaxSeats       int         `hcl:"max_seats,optional" json:"max_seats,omitempty"`
	MinBuyIn       int         `hcl:"min_buy_in,optional" json:"min_buy_in,omitempty"`
	MaxBuyIn       int         `hcl:"max_buy_in,optional" json:"max_buy_in,omitempty"`
	ReservationTTL string      `hcl:"reservation_ttl,optional" json:"reservation_ttl,omitempty"`
	SmallBlind     int         `hcl:"small_blind,optional" json:"small_blind,omitempty"`
	BigBlind       int         `hcl:"big_blind,optional" json:"big_blind,omitempty"`
	Ante           int         `hcl:"ante,optional" json:"ante,omitempty"`
	StartLevel     int         `hcl:"start_level,optional" json:"start_level,omitempty"`
	Levels         []LevelSpec `hcl:"level,block" json:"levels,omitempty"`
}

// LevelSpec is one blind level of a schedule.
type LevelSpec struct {
	SmallBlind int    `hcl:"small_blind" json:"small_blind"`
	BigBlind   int    `hcl:"big_blind" json:"big_blind"`
	Ante       int    `hcl:"ante,optional" json:"ante,omitempty"`
	Duration   string `hcl:"duration,optional" json:"duration,omitempty"`
}

const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// DefaultServerSettings returns the settings used when no server block is given.
func DefaultServerSettings() *ServerSettings {
	return &ServerSettings{
		Address:       "localhost",
		Port:          8080,
		LogLevel:      "info",
		SnapshotStore: StoreMemory,
		SnapshotDir:   "snapshots",
		RedisAddr:     "localhost:6379",
		ActionRate:    10,
		ActionBurst:   20,
	}
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() *ServerConfig {
	cfg := &ServerConfig{
		Server: DefaultServerSettings(),
		Tables: []TableSpec{{Name: "main"}},
	}
	cfg.applyDefaults()
	return cfg
}

// LoadServerConfig loads server configuration from an HCL file. A missing
// file yields the defaults.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	src, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return ParseServerConfig(src, filename)
}

// ParseServerConfig decodes HCL source and applies defaults.
func ParseServerConfig(src []byte, filename string) (*ServerConfig, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	config.applyDefaults()
	return &config, nil
}

func (c *ServerConfig) applyDefaults() {
	def := DefaultServerSettings()
	if c.Server == nil {
		c.Server = def
	}
	s := c.Server
	if s.Address == "" {
		s.Address = def.Address
	}
	if s.Port == 0 {
		s.Port = def.Port
	}
	if s.LogLevel == "" {
		s.LogLevel = def.LogLevel
	}
	if s.SnapshotStore == "" {
		s.SnapshotStore = def.SnapshotStore
	}
	if s.SnapshotDir == "" {
		s.SnapshotDir = def.SnapshotDir
	}
	if s.RedisAddr == "" {
		s.RedisAddr = def.RedisAddr
	}
	if s.ActionRate == 0 {
		s.ActionRate = def.ActionRate
	}
	if s.ActionBurst == 0 {
		s.ActionBurst = def.ActionBurst
	}

	for i := range c.Tables {
		c.Tables[i].applyDefaults()
	}
}

func (t *TableSpec) applyDefaults() {
	def := game.DefaultTableConfig()
	if t.MaxSeats == 0 {
		t.MaxSeats = def.MaxSeats
	}
	if t.SmallBlind == 0 && t.BigBlind == 0 && len(t.Levels) == 0 {
		t.SmallBlind, t.BigBlind = def.Blinds[0].SmallBlind, def.Blinds[0].BigBlind
	}
	big := t.BigBlind
	if len(t.Levels) > 0 {
		big = t.Levels[0].BigBlind
	}
	if t.MinBuyIn == 0 {
		t.MinBuyIn = big * 20 // 20 big blinds minimum
	}
	if t.MaxBuyIn == 0 {
		t.MaxBuyIn = big * 200 // 200 big blinds maximum
	}
	if t.ReservationTTL == "" {
		t.ReservationTTL = def.ReservationTTL.String()
	}
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	switch c.Server.SnapshotStore {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unknown snapshot store %q", c.Server.SnapshotStore)
	}
	if c.Server.ActionRate < 0 || c.Server.ActionBurst < 0 {
		return fmt.Errorf("action rate and burst cannot be negative")
	}

	seen := make(map[string]bool)
	for _, table := range c.Tables {
		if table.Name == "" {
			return fmt.Errorf("table name is required")
		}
		if seen[table.Name] {
			return fmt.Errorf("table %s: defined more than once", table.Name)
		}
		seen[table.Name] = true
		if _, err := table.GameConfig(); err != nil {
			return fmt.Errorf("table %s: %w", table.Name, err)
		}
	}
	return nil
}

// GetServerAddress returns the full server address
func (c *ServerConfig) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}

// GameConfig converts the spec into a validated table config.
func (t TableSpec) GameConfig() (game.TableConfig, error) {
	ttl, err := time.ParseDuration(t.ReservationTTL)
	if err != nil {
		return game.TableConfig{}, fmt.Errorf("invalid reservation_ttl: %w", err)
	}

	var levels []game.BlindLevel
	if len(t.Levels) == 0 {
		levels = []game.BlindLevel{{Level: 1, SmallBlind: t.SmallBlind, BigBlind: t.BigBlind, Ante: t.Ante}}
	}
	for i, l := range t.Levels {
		var d time.Duration
		if l.Duration != "" {
			if d, err = time.ParseDuration(l.Duration); err != nil {
				return game.TableConfig{}, fmt.Errorf("level %d: invalid duration: %w", i+1, err)
			}
		}
		levels = append(levels, game.BlindLevel{
			Level:      i + 1,
			SmallBlind: l.SmallBlind,
			BigBlind:   l.BigBlind,
			Ante:       l.Ante,
			Duration:   d,
		})
	}

	cfg := game.TableConfig{
		MaxSeats:       t.MaxSeats,
		MinBuyIn:       t.MinBuyIn,
		MaxBuyIn:       t.MaxBuyIn,
		ReservationTTL: ttl,
		Blinds:         levels,
		StartLevel:     t.StartLevel,
	}
	if err := cfg.Validate(); err != nil {
		return game.TableConfig{}, err
	}
	if _, err := game.NewBlindSchedule(levels, t.StartLevel, nil); err != nil {
		return game.TableConfig{}, err
	}
	return cfg, nil
}
