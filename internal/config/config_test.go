package config

import (
	"testing"
)

func TestGetDefaults(t *testing.T) {
	config := GetDefaults()

	if err := validateConfig(config); err != nil {
		t.Fatalf("Default configuration must be valid: %v", err)
	}

	if config.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", config.Server.Port)
	}
	if config.Model.TagFormat != "BIOES" {
		t.Errorf("Expected default tag format BIOES, got %q", config.Model.TagFormat)
	}
	if len(config.Model.Labels) == 0 {
		t.Error("Default config must carry a label set")
	}
}

func TestValidateConfig(t *testing.T) {
	t.Run("InvalidPort", func(t *testing.T) {
		config := GetDefaults()
		config.Server.Port = 0
		if err := validateConfig(config); err == nil {
			t.Error("Port 0 must be rejected")
		}
	})

	t.Run("InvalidTagFormat", func(t *testing.T) {
		config := GetDefaults()
		config.Model.TagFormat = "IOB1"
		if err := validateConfig(config); err == nil {
			t.Error("Unknown tag format must be rejected")
		}
	})

	t.Run("NoModelSource", func(t *testing.T) {
		config := GetDefaults()
		config.Model.Path = ""
		config.Model.Labels = nil
		if err := validateConfig(config); err == nil {
			t.Error("Config without model path or labels must be rejected")
		}
	})

	t.Run("SavedModelNeedsNoLabels", func(t *testing.T) {
		config := GetDefaults()
		config.Model.Path = "models/ner.json"
		config.Model.Labels = nil
		if err := validateConfig(config); err != nil {
			t.Errorf("Saved model path should satisfy validation: %v", err)
		}
	})

	t.Run("InvalidLogLevel", func(t *testing.T) {
		config := GetDefaults()
		config.Logging.Level = "verbose"
		if err := validateConfig(config); err == nil {
			t.Error("Unknown log level must be rejected")
		}
	})

	t.Run("InvalidLogFormat", func(t *testing.T) {
		config := GetDefaults()
		config.Logging.Format = "xml"
		if err := validateConfig(config); err == nil {
			t.Error("Unknown log format must be rejected")
		}
	})
}
