package config_test

import (
	"testing"

	"ceres/config"
)

// Functions

// TestLoadConfig executes a black-box test on the
// implemented functionalities to load a TOML config file.
func TestLoadConfig(t *testing.T) {

	// Try to load a broken config file. This should fail.
	_, err := config.LoadConfig("broken-config.toml")
	if err == nil {
		t.Fatal("[config.TestLoadConfig] Expected fail while loading broken-config.toml but received 'nil' error.")
	}

	// Now load a valid config.
	conf, err := config.LoadConfig("config.toml")
	if err != nil {
		t.Fatalf("[config.TestLoadConfig] Expected success while loading config.toml but received: '%s'\n", err.Error())
	}

	// Check for test success.
	if conf.IMAP.Name != "Ceres" {
		t.Fatalf("[config.TestLoadConfig] Expected '%s' but received '%s'\n", "Ceres", conf.IMAP.Name)
	}

	if conf.IMAP.HierarchySeparator != "." {
		t.Fatalf("[config.TestLoadConfig] Expected '%s' but received '%s'\n", ".", conf.IMAP.HierarchySeparator)
	}

	if conf.Distributor.AuthAdapter != "AuthFile" {
		t.Fatalf("[config.TestLoadConfig] Expected '%s' but received '%s'\n", "AuthFile", conf.Distributor.AuthAdapter)
	}

	if conf.Distributor.MaxLineLength != 2048 {
		t.Fatalf("[config.TestLoadConfig] Expected '%d' but received '%d'\n", 2048, conf.Distributor.MaxLineLength)
	}
}

// TestLoadConfigMissingSection checks that selecting an
// authentication adapter without its matching section in
// the config file is reported as an error.
func TestLoadConfigMissingSection(t *testing.T) {

	_, err := config.LoadConfig("missing-adapter-config.toml")
	if err == nil {
		t.Fatal("[config.TestLoadConfigMissingSection] Expected fail while loading missing-adapter-config.toml but received 'nil' error.")
	}
}
