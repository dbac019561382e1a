// Package config assembles the meta service's (and the reference
// storage/client binaries') configuration once at startup from
// defaults, an optional .env file, and the environment, using Viper the
// way the teacher's config package does. Nothing here re-reads the
// environment after load: the resulting struct is handed to every
// component as an immutable value, per spec.md §9's note against
// cyclic config/state references.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/distrofs/meta/pkg/env"
)

// Meta holds the meta service's configuration (spec.md §6.4).
type Meta struct {
	NodeID                    string        `mapstructure:"meta_node_id"`
	Role                      string        `mapstructure:"meta_role"`
	ReplicationFactor         int           `mapstructure:"replication_factor"`
	StorageNodes              []string      `mapstructure:"-"`
	DataDir                   string        `mapstructure:"data_dir"`
	MetadataFile              string        `mapstructure:"metadata_file"`
	HeartbeatTimeout          time.Duration `mapstructure:"-"`
	EnableStorageHealthcheck  bool          `mapstructure:"enable_storage_healthcheck"`
	StoragePort               int           `mapstructure:"storage_port"`
	StorageHealthcheckTimeout time.Duration `mapstructure:"-"`
	ListenAddr                string        `mapstructure:"listen_addr"`
	LogLevel                  string        `mapstructure:"log_level"`
}

// MetadataPath is the absolute path to the catalog document.
func (m Meta) MetadataPath() string {
	return m.DataDir + "/" + m.MetadataFile
}

// LoadMeta loads the meta service's configuration from, in ascending
// priority: built-in defaults, an optional .env file, then the process
// environment. envPrefix-less keys are used, matching spec.md's bare
// environment variable names.
func LoadMeta() (Meta, error) {
	env.LoadEnv()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("meta_node_id", "meta-01")
	v.SetDefault("meta_role", "leader")
	v.SetDefault("replication_factor", 1)
	v.SetDefault("storage_nodes", "storage-01")
	v.SetDefault("data_dir", "/data")
	v.SetDefault("metadata_file", "metadata.json")
	v.SetDefault("heartbeat_timeout_sec", "9.0")
	v.SetDefault("enable_storage_healthcheck", "false")
	v.SetDefault("storage_port", 9009)
	v.SetDefault("storage_healthcheck_timeout_sec", "0.2")
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")

	mustBind(v, "META_NODE_ID", "meta_node_id")
	mustBind(v, "META_ROLE", "meta_role")
	mustBind(v, "REPLICATION_FACTOR", "replication_factor")
	mustBind(v, "STORAGE_NODES", "storage_nodes")
	mustBind(v, "DATA_DIR", "data_dir")
	mustBind(v, "METADATA_FILE", "metadata_file")
	mustBind(v, "HEARTBEAT_TIMEOUT_SEC", "heartbeat_timeout_sec")
	mustBind(v, "ENABLE_STORAGE_HEALTHCHECK", "enable_storage_healthcheck")
	mustBind(v, "STORAGE_PORT", "storage_port")
	mustBind(v, "STORAGE_HEALTHCHECK_TIMEOUT_SEC", "storage_healthcheck_timeout_sec")
	mustBind(v, "LISTEN_ADDR", "listen_addr")
	mustBind(v, "LOG_LEVEL", "log_level")

	var m Meta
	if err := v.Unmarshal(&m); err != nil {
		return Meta{}, fmt.Errorf("config: decoding meta config: %w", err)
	}

	m.StorageNodes = splitCSV(v.GetString("storage_nodes"))
	m.HeartbeatTimeout = durationFromSeconds(v.GetString("heartbeat_timeout_sec"), 9.0)
	m.StorageHealthcheckTimeout = durationFromSeconds(v.GetString("storage_healthcheck_timeout_sec"), 0.2)
	m.EnableStorageHealthcheck = parseBoolEnv(v.GetString("enable_storage_healthcheck"))

	return m, nil
}

// StorageNode holds the reference storage node's configuration.
// Unlike Meta, this has no analogue in spec.md §6.4 (the storage node
// is out of the core per spec.md §1) but follows the same
// defaults/env layering so cmd/storaged matches cmd/metad's ambient
// stack.
type StorageNode struct {
	NodeID            string        `mapstructure:"storage_node_id"`
	ListenAddr        string        `mapstructure:"storage_listen_addr"`
	DataDir           string        `mapstructure:"storage_data_dir"`
	MetaAddr          string        `mapstructure:"meta_addr"`
	HeartbeatInterval time.Duration `mapstructure:"-"`
	LogLevel          string        `mapstructure:"log_level"`
}

// LoadStorageNode loads cmd/storaged's configuration.
func LoadStorageNode() (StorageNode, error) {
	env.LoadEnv()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("storage_node_id", "storage-01")
	v.SetDefault("storage_listen_addr", ":9009")
	v.SetDefault("storage_data_dir", "/data/storage")
	v.SetDefault("meta_addr", "http://localhost:8080")
	v.SetDefault("heartbeat_interval_sec", "3.0")
	v.SetDefault("log_level", "info")

	mustBind(v, "STORAGE_NODE_ID", "storage_node_id")
	mustBind(v, "STORAGE_LISTEN_ADDR", "storage_listen_addr")
	mustBind(v, "STORAGE_DATA_DIR", "storage_data_dir")
	mustBind(v, "META_ADDR", "meta_addr")
	mustBind(v, "HEARTBEAT_INTERVAL_SEC", "heartbeat_interval_sec")
	mustBind(v, "LOG_LEVEL", "log_level")

	var s StorageNode
	if err := v.Unmarshal(&s); err != nil {
		return StorageNode{}, fmt.Errorf("config: decoding storage node config: %w", err)
	}
	s.HeartbeatInterval = durationFromSeconds(v.GetString("heartbeat_interval_sec"), 3.0)

	return s, nil
}

// Client holds the reference client CLI's configuration.
type Client struct {
	MetaAddr  string `mapstructure:"meta_addr"`
	ChunkSize int64  `mapstructure:"-"`
}

// LoadClient loads cmd/client's configuration.
func LoadClient() (Client, error) {
	env.LoadEnv()

	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("meta_addr", "http://localhost:8080")

	mustBind(v, "META_ADDR", "meta_addr")

	var c Client
	if err := v.Unmarshal(&c); err != nil {
		return Client{}, fmt.Errorf("config: decoding client config: %w", err)
	}
	return c, nil
}

func mustBind(v *viper.Viper, env, key string) {
	_ = v.BindEnv(key, env)
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func durationFromSeconds(raw string, fallback float64) time.Duration {
	seconds := fallback
	if parsed, err := parseFloat(raw); err == nil {
		seconds = parsed
	}
	return time.Duration(seconds * float64(time.Second))
}

func parseFloat(raw string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(raw), "%g", &f)
	return f, err
}

// parseBoolEnv treats exactly {1,true,yes,on} (case-insensitive) as
// true, matching spec.md's explicit resolution of the two conflicting
// boolean-parsing quirks observed across the original implementation's
// snapshots (one treated "no" as true, another treated "on" as true).
func parseBoolEnv(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
