package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.PLCs == nil {
		t.Error("expected non-nil PLCs slice")
	}
	if len(cfg.PLCs) != 0 {
		t.Error("expected empty PLCs slice")
	}
}

func TestPLCConfigWithDefaults(t *testing.T) {
	p := PLCConfig{Name: "Line1", Address: "192.168.1.10"}.WithDefaults()

	if p.Port != 0xAF12 {
		t.Errorf("expected default port 0xAF12, got 0x%04X", p.Port)
	}
	if p.Timeout != 10*time.Second {
		t.Errorf("expected default timeout 10s, got %v", p.Timeout)
	}
	if p.ProtocolVersion != 1 {
		t.Errorf("expected default protocol version 1, got %d", p.ProtocolVersion)
	}
	if p.Backplane != 1 {
		t.Errorf("expected default backplane 1, got %d", p.Backplane)
	}
	if p.RPI != 5000*time.Millisecond {
		t.Errorf("expected default RPI 5000ms, got %v", p.RPI)
	}
	if p.Context != "_ethlogix_" {
		t.Errorf("expected default context, got %q", p.Context)
	}
}

func TestPLCConfigWithDefaultsPreservesOverrides(t *testing.T) {
	p := PLCConfig{
		Name:      "Line1",
		Address:   "192.168.1.10",
		Port:      44819,
		Backplane: 2,
	}.WithDefaults()

	if p.Port != 44819 {
		t.Errorf("expected overridden port preserved, got %d", p.Port)
	}
	if p.Backplane != 2 {
		t.Errorf("expected overridden backplane preserved, got %d", p.Backplane)
	}
	if p.Timeout != 10*time.Second {
		t.Errorf("expected default timeout to still apply, got %v", p.Timeout)
	}
}

func TestLoadAndSave(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("returns default for nonexistent file", func(t *testing.T) {
		cfg, err := Load(filepath.Join(tmpDir, "nonexistent.yaml"))
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if len(cfg.PLCs) != 0 {
			t.Error("expected empty default config")
		}
	})

	t.Run("save and load roundtrip", func(t *testing.T) {
		path := filepath.Join(tmpDir, "test.yaml")

		cfg := &Config{
			Namespace: "line1",
			PLCs: []PLCConfig{
				{
					Name:    "TestPLC",
					Address: "192.168.1.100",
					Slot:    0,
					Enabled: true,
					ForwardOpen: ForwardOpenIdentity{
						VendorID:         0x1337,
						OriginatorSerial: 42,
					},
				},
			},
		}

		if err := cfg.Save(path); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded, err := Load(path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}

		if loaded.Namespace != "line1" {
			t.Errorf("expected namespace preserved, got %q", loaded.Namespace)
		}
		if len(loaded.PLCs) != 1 || loaded.PLCs[0].Name != "TestPLC" {
			t.Fatal("PLC config not preserved")
		}
		if loaded.PLCs[0].ForwardOpen.VendorID != 0x1337 {
			t.Errorf("expected forward-open vendor id preserved, got 0x%04X", loaded.PLCs[0].ForwardOpen.VendorID)
		}
	})

	t.Run("creates directory if needed", func(t *testing.T) {
		path := filepath.Join(tmpDir, "subdir", "nested", "config.yaml")
		cfg := DefaultConfig()

		if err := cfg.Save(path); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			t.Error("config file was not created")
		}
	})

	t.Run("returns error for invalid yaml", func(t *testing.T) {
		path := filepath.Join(tmpDir, "invalid.yaml")
		os.WriteFile(path, []byte("invalid: yaml: content: ["), 0644)

		_, err := Load(path)
		if err == nil {
			t.Error("expected error for invalid YAML")
		}
	})
}

func TestPLCOperations(t *testing.T) {
	cfg := DefaultConfig()

	cfg.AddPLC(PLCConfig{Name: "Line1", Address: "10.0.0.1"})
	cfg.AddPLC(PLCConfig{Name: "Line2", Address: "10.0.0.2"})

	if p := cfg.FindPLC("Line1"); p == nil || p.Address != "10.0.0.1" {
		t.Error("FindPLC did not return expected config")
	}
	if cfg.FindPLC("Missing") != nil {
		t.Error("FindPLC should return nil for missing name")
	}

	if !cfg.UpdatePLC("Line1", PLCConfig{Name: "Line1", Address: "10.0.0.99"}) {
		t.Error("UpdatePLC should succeed for existing name")
	}
	if p := cfg.FindPLC("Line1"); p == nil || p.Address != "10.0.0.99" {
		t.Error("UpdatePLC did not update address")
	}

	if !cfg.RemovePLC("Line2") {
		t.Error("RemovePLC should succeed for existing name")
	}
	if cfg.FindPLC("Line2") != nil {
		t.Error("RemovePLC did not remove entry")
	}
	if cfg.RemovePLC("Line2") {
		t.Error("RemovePLC should fail for already-removed name")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Namespace = "valid-ns_1.test"
	cfg.AddPLC(PLCConfig{Name: "Line1", Address: "10.0.0.1"})

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}

	cfg.Namespace = "bad namespace!"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid namespace")
	}

	cfg.Namespace = ""
	cfg.PLCs[0].Address = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing PLC address")
	}
}

func TestIsValidNamespace(t *testing.T) {
	tests := []struct {
		ns    string
		valid bool
	}{
		{"", false},
		{"abc", true},
		{"abc-123_def.ghi", true},
		{"has space", false},
		{"has/slash", false},
	}
	for _, tt := range tests {
		if got := IsValidNamespace(tt.ns); got != tt.valid {
			t.Errorf("IsValidNamespace(%q) = %v, want %v", tt.ns, got, tt.valid)
		}
	}
}

func TestDefaultPath(t *testing.T) {
	path := DefaultPath()
	if path == "" {
		t.Error("expected non-empty default path")
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("expected config.yaml basename, got %q", filepath.Base(path))
	}
}

func TestOnChangeListener(t *testing.T) {
	cfg := DefaultConfig()
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "listener.yaml")

	done := make(chan struct{}, 1)
	id := cfg.AddOnChangeListener(func() { done <- struct{}{} })

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("change listener was not invoked")
	}

	cfg.RemoveOnChangeListener(id)
}
