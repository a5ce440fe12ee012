package config

import (
	"fmt"

	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Structs

// Config holds all information parsed from
// supplied config file.
type Config struct {
	IMAP        IMAP
	Distributor Distributor
	Mailbox     Mailbox
}

// IMAP is the IMAP server related part
// of the TOML config file.
type IMAP struct {
	Name               string
	Greeting           string
	HierarchySeparator string
}

// Distributor describes the configuration of the
// client-facing part of the server: the listener,
// the authentication adapter, and line limits.
type Distributor struct {
	ListenMailAddr string
	PrometheusAddr string
	MaxLineLength  int
	AuthAdapter    string
	AuthFile       *AuthFile
	AuthSQLite     *AuthSQLite
	AuthPostgres   *AuthPostgres
}

// Mailbox configures the filesystem store that
// holds the per-user mailbox folders.
type Mailbox struct {
	Root string
}

// AuthPostgres defines parameters for connecting
// to a Postgres database for authenticating users.
type AuthPostgres struct {
	IP       string
	Port     uint16
	Database string
	User     string
	Password string
	UseTLS   bool
}

// AuthFile provides information on authenticating
// users against a designated authorization text file.
type AuthFile struct {
	File      string
	Separator string
}

// AuthSQLite provides the location of the SQLite
// database file storing user credential records.
type AuthSQLite struct {
	File string
}

// Functions

// LoadConfig takes in the path to the main config
// file in TOML syntax and places the values from
// the file in the corresponding struct.
func LoadConfig(configFile string) (*Config, error) {

	conf := new(Config)

	// Parse values from TOML file into struct.
	_, err := toml.DecodeFile(configFile, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to read in TOML config file at '%s' with: %v", configFile, err)
	}

	if conf.IMAP.Name == "" {
		conf.IMAP.Name = "Ceres"
	}

	if conf.IMAP.Greeting == "" {
		conf.IMAP.Greeting = fmt.Sprintf("%s ready.", conf.IMAP.Name)
	}

	if conf.IMAP.HierarchySeparator == "" {
		conf.IMAP.HierarchySeparator = "."
	}

	if conf.Distributor.ListenMailAddr == "" {
		return nil, fmt.Errorf("config misses a listen address for the IMAP service")
	}

	if conf.Distributor.MaxLineLength == 0 {
		conf.Distributor.MaxLineLength = 4096
	}

	if conf.Distributor.AuthAdapter == "" {
		conf.Distributor.AuthAdapter = "AuthSQLite"
	}

	switch conf.Distributor.AuthAdapter {

	case "AuthFile":
		if conf.Distributor.AuthFile == nil {
			return nil, fmt.Errorf("adapter AuthFile was selected but config misses a [Distributor.AuthFile] section")
		}

	case "AuthSQLite":
		if conf.Distributor.AuthSQLite == nil {
			return nil, fmt.Errorf("adapter AuthSQLite was selected but config misses a [Distributor.AuthSQLite] section")
		}

	case "AuthPostgres":
		if conf.Distributor.AuthPostgres == nil {
			return nil, fmt.Errorf("adapter AuthPostgres was selected but config misses a [Distributor.AuthPostgres] section")
		}

	default:
		return nil, fmt.Errorf("config contains unknown authentication adapter '%s'", conf.Distributor.AuthAdapter)
	}

	if conf.Mailbox.Root == "" {
		return nil, fmt.Errorf("config misses a root directory for the mailbox store")
	}

	// Prefix each relative path in config with the
	// absolute path of the current working directory.

	// Mailbox.Root
	if filepath.IsAbs(conf.Mailbox.Root) != true {

		conf.Mailbox.Root, err = filepath.Abs(conf.Mailbox.Root)
		if err != nil {
			return nil, fmt.Errorf("could not get absolute path of mailbox root: %v", err)
		}
	}

	// Distributor.AuthFile.File
	if (conf.Distributor.AuthFile != nil) && (filepath.IsAbs(conf.Distributor.AuthFile.File) != true) {

		conf.Distributor.AuthFile.File, err = filepath.Abs(conf.Distributor.AuthFile.File)
		if err != nil {
			return nil, fmt.Errorf("could not get absolute path of auth file: %v", err)
		}
	}

	// Distributor.AuthSQLite.File
	if (conf.Distributor.AuthSQLite != nil) && (filepath.IsAbs(conf.Distributor.AuthSQLite.File) != true) {

		conf.Distributor.AuthSQLite.File, err = filepath.Abs(conf.Distributor.AuthSQLite.File)
		if err != nil {
			return nil, fmt.Errorf("could not get absolute path of auth database: %v", err)
		}
	}

	return conf, nil
}
