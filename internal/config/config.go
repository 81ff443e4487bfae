// Package config implements the bridge's persisted configuration file
// (C11 — Configuration Projection) and its derived, immutable Snapshot.
//
// The on-disk format is TOML (github.com/BurntSushi/toml), matching the
// human-editable "table format" called for in spec §6 — and the original
// Python implementation's tomlkit-based config.toml. Top-level sections are
// general, broker, miniserver, topics, processing, udp, debug, matching
// spec §6 exactly; missing sections keep the values from Defaults() below.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// General holds process-wide, non-domain settings.
type General struct {
	LogLevel  string `toml:"log_level"`
	BaseTopic string `toml:"base_topic"`
	CacheSize int    `toml:"cache_size"`
}

// Broker is the MQTT broker connection the bridge subscribes through.
type Broker struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	User     string `toml:"user"`
	Password string `toml:"password"`
	ClientID string `toml:"client_id"`
}

// Miniserver is the Loxone-style controller the bridge forwards to.
type Miniserver struct {
	Host                   string `toml:"host"`
	Port                   int    `toml:"port"`
	User                   string `toml:"user"`
	Password               string `toml:"password"`
	MaxParallelConnections int    `toml:"max_parallel_connections"`
	UseWebsocket           bool   `toml:"use_websocket"`
	MockHost               string `toml:"mock_host"`
	EnableMock             bool   `toml:"enable_mock"`
	SyncWithMiniserver     bool   `toml:"sync_with_miniserver"`
	// ResyncCron is an enrichment beyond spec.md: an optional cron
	// expression (robfig/cron syntax) for a periodic whitelist resync
	// safety net, on top of the on-demand/startup-event triggers C9
	// already requires. Empty means "no periodic resync", the default
	// and the original's only behavior.
	ResyncCron string `toml:"resync_cron"`
}

// Topics controls subscriptions and the three gates of the ingress pipeline.
type Topics struct {
	Subscriptions       []string `toml:"subscriptions"`
	SubscriptionFilters []string `toml:"subscription_filters"`
	// TopicWhitelist is persisted as an array and deduplicated on load
	// (spec §6); Snapshot turns it into a set for O(1) membership checks.
	TopicWhitelist []string `toml:"topic_whitelist"`
	DoNotForward   []string `toml:"do_not_forward"`
}

// Processing controls the payload expansion step (C2).
type Processing struct {
	ExpandJSON bool `toml:"expand_json"`
}

// UDP controls the inbound UDP listener (C8).
type UDP struct {
	Port int `toml:"port"`
}

// Debug controls the optional echo publishes of C6/C7.
type Debug struct {
	PublishProcessedTopics bool `toml:"publish_processed_topics"`
	PublishForwardedTopics bool `toml:"publish_forwarded_topics"`
}

// File is the complete on-disk configuration shape.
type File struct {
	General    General    `toml:"general"`
	Broker     Broker     `toml:"broker"`
	Miniserver Miniserver `toml:"miniserver"`
	Topics     Topics     `toml:"topics"`
	Processing Processing `toml:"processing"`
	UDP        UDP        `toml:"udp"`
	Debug      Debug      `toml:"debug"`
}

// Defaults returns a File populated with the spec's stated defaults:
// cache_size positive, base_topic ending in "/", max_parallel_connections 5.
func Defaults() File {
	return File{
		General: General{
			LogLevel:  "INFO",
			BaseTopic: "loxrelay/",
			CacheSize: 100000,
		},
		Broker: Broker{
			Host:     "localhost",
			Port:     1883,
			ClientID: "loxrelay",
		},
		Miniserver: Miniserver{
			Host:                   "127.0.0.1",
			Port:                   80,
			MaxParallelConnections: 5,
			UseWebsocket:           true,
			SyncWithMiniserver:     true,
		},
		Processing: Processing{
			ExpandJSON: true,
		},
		UDP: UDP{
			Port: 11884,
		},
	}
}

// Load reads and parses path. A missing file yields Defaults(), matching
// the original's "config file not found, creating default" behavior.
func Load(path string) (File, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Defaults(), nil
	}
	f := Defaults()
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return File{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	f.Topics.TopicWhitelist = dedup(f.Topics.TopicWhitelist)
	if f.General.BaseTopic != "" && f.General.BaseTopic[len(f.General.BaseTopic)-1] != '/' {
		f.General.BaseTopic += "/"
	}
	return f, nil
}

// Save persists f to path using write-temp-then-rename, so readers never
// observe a partially written file (spec §4.11/§6).
func Save(path string, f File) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: mkdir %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.toml.tmp")
	if err != nil {
		return fmt.Errorf("config: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once renamed

	enc := toml.NewEncoder(tmp)
	if err := enc.Encode(f); err != nil {
		tmp.Close()
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("config: rename into place: %w", err)
	}
	return nil
}

func dedup(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// Redacted returns a copy of f with broker and miniserver credentials
// cleared, for publishing on the config/get control-plane subtopic (spec §4.10).
func Redacted(f File) File {
	out := f
	out.Broker.User = ""
	out.Broker.Password = ""
	out.Miniserver.User = ""
	out.Miniserver.Password = ""
	return out
}
