// Package config handles configuration persistence for Logix PLC connections.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigListenerID is a unique identifier for a config change listener.
type ConfigListenerID string

// Config holds the complete application configuration: a namespace and a
// set of Logix PLC endpoints.
type Config struct {
	Namespace string      `yaml:"namespace"` // instance namespace, informational only
	PLCs      []PLCConfig `yaml:"plcs"`

	dataMu sync.Mutex `yaml:"-"`

	changeListeners map[ConfigListenerID]func() `yaml:"-"`
	listenersMu     sync.RWMutex                `yaml:"-"`
	listenerCounter uint64                      `yaml:"-"`
}

// ForwardOpenIdentity holds the originator identity fields the connection
// manager places in a Forward Open request (spec §6: cid, csn, vid, vsn).
type ForwardOpenIdentity struct {
	ConnectionID   uint32 `yaml:"connection_id,omitempty"`   // originator connection id (cid)
	SerialNumber   uint16 `yaml:"serial_number,omitempty"`   // connection serial number (csn)
	VendorID       uint16 `yaml:"vendor_id,omitempty"`       // originator vendor id (vid)
	OriginatorSerial uint32 `yaml:"originator_serial,omitempty"` // originator device serial number (vsn)
}

// PLCConfig stores configuration for a single Logix PLC connection.
type PLCConfig struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	Slot    byte   `yaml:"slot"`
	Enabled bool   `yaml:"enabled"`

	Port            uint16        `yaml:"port,omitempty"`             // default 0xAF12
	Timeout         time.Duration `yaml:"timeout,omitempty"`          // socket read timeout, default 10s
	ProtocolVersion uint16        `yaml:"protocol_version,omitempty"` // encapsulation version, default 1
	Backplane       byte          `yaml:"backplane,omitempty"`        // route path backplane number, default 1
	RPI             time.Duration `yaml:"rpi,omitempty"`              // requested packet interval, default 5000ms
	Context         string        `yaml:"context,omitempty"`          // 8-byte encapsulation context echo, default "_ethlogix_"

	ForwardOpen ForwardOpenIdentity `yaml:"forward_open,omitempty"`

	RoutePath []byte         `yaml:"route_path,omitempty"` // explicit route path, overrides Slot when set
	Tags      []TagSelection `yaml:"tags,omitempty"`
}

// WithDefaults returns a copy of p with zero-valued fields replaced by
// protocol defaults from spec §6.
func (p PLCConfig) WithDefaults() PLCConfig {
	if p.Port == 0 {
		p.Port = 0xAF12
	}
	if p.Timeout == 0 {
		p.Timeout = 10 * time.Second
	}
	if p.ProtocolVersion == 0 {
		p.ProtocolVersion = 1
	}
	if p.Backplane == 0 {
		p.Backplane = 1
	}
	if p.RPI == 0 {
		p.RPI = 5000 * time.Millisecond
	}
	if p.Context == "" {
		p.Context = "_ethlogix_"
	}
	return p
}

// TagSelection represents a tag of interest for republishing or monitoring.
type TagSelection struct {
	Name          string   `yaml:"name"`
	Alias         string   `yaml:"alias,omitempty"`
	DataType      string   `yaml:"data_type,omitempty"`
	Enabled       bool     `yaml:"enabled"`
	Writable      bool     `yaml:"writable,omitempty"`
	IgnoreChanges []string `yaml:"ignore_changes,omitempty"`
}

// ShouldIgnoreMember returns true if the given member name is in the ignore list.
func (t *TagSelection) ShouldIgnoreMember(memberName string) bool {
	for _, ignored := range t.IgnoreChanges {
		if ignored == memberName {
			return true
		}
	}
	return false
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		PLCs: []PLCConfig{},
	}
}

// DefaultPath returns the default configuration file path (~/.ethlogix/config.yaml).
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".ethlogix", "config.yaml")
}

// Load reads configuration from a YAML file. If the file does not exist,
// defaults are returned without error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// AddOnChangeListener registers a callback invoked when the config is saved.
func (c *Config) AddOnChangeListener(cb func()) ConfigListenerID {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()

	if c.changeListeners == nil {
		c.changeListeners = make(map[ConfigListenerID]func())
	}

	id := ConfigListenerID(fmt.Sprintf("listener-%d", atomic.AddUint64(&c.listenerCounter, 1)))
	c.changeListeners[id] = cb
	return id
}

// RemoveOnChangeListener removes a previously registered listener.
func (c *Config) RemoveOnChangeListener(id ConfigListenerID) {
	c.listenersMu.Lock()
	defer c.listenersMu.Unlock()
	delete(c.changeListeners, id)
}

func (c *Config) notifyChangeListeners() {
	c.listenersMu.RLock()
	listeners := make([]func(), 0, len(c.changeListeners))
	for _, cb := range c.changeListeners {
		listeners = append(listeners, cb)
	}
	c.listenersMu.RUnlock()

	for _, cb := range listeners {
		go cb()
	}
}

// Lock acquires the config data mutex for exclusive access.
func (c *Config) Lock() { c.dataMu.Lock() }

// Unlock releases the config data mutex without saving.
func (c *Config) Unlock() { c.dataMu.Unlock() }

// Save acquires the lock, marshals, writes, and notifies.
func (c *Config) Save(path string) error {
	c.dataMu.Lock()
	return c.saveLocked(path)
}

// UnlockAndSave marshals, releases the lock, writes, and notifies.
// The caller must already hold the lock via Lock().
func (c *Config) UnlockAndSave(path string) error {
	return c.saveLocked(path)
}

func (c *Config) saveLocked(path string) error {
	data, err := yaml.Marshal(c)
	c.dataMu.Unlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	c.notifyChangeListeners()
	return nil
}

// FindPLC returns the PLC config with the given name, or nil if not found.
func (c *Config) FindPLC(name string) *PLCConfig {
	for i := range c.PLCs {
		if c.PLCs[i].Name == name {
			return &c.PLCs[i]
		}
	}
	return nil
}

// AddPLC adds a new PLC configuration.
func (c *Config) AddPLC(plc PLCConfig) {
	c.PLCs = append(c.PLCs, plc)
}

// RemovePLC removes a PLC by name.
func (c *Config) RemovePLC(name string) bool {
	for i, plc := range c.PLCs {
		if plc.Name == name {
			c.PLCs = append(c.PLCs[:i], c.PLCs[i+1:]...)
			return true
		}
	}
	return false
}

// UpdatePLC updates an existing PLC configuration.
func (c *Config) UpdatePLC(name string, updated PLCConfig) bool {
	for i, plc := range c.PLCs {
		if plc.Name == name {
			c.PLCs[i] = updated
			return true
		}
	}
	return false
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Namespace != "" && !IsValidNamespace(c.Namespace) {
		return fmt.Errorf("invalid namespace: must contain only alphanumeric characters, hyphens, underscores, and periods")
	}
	for i := range c.PLCs {
		if c.PLCs[i].Address == "" {
			return fmt.Errorf("plc %q: address is required", c.PLCs[i].Name)
		}
	}
	return nil
}

// IsValidNamespace returns true if the namespace is valid.
func IsValidNamespace(ns string) bool {
	if ns == "" {
		return false
	}
	for _, r := range ns {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' || r == '.') {
			return false
		}
	}
	return true
}
