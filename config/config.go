/*
Package config implements TOML config file handling for stringforge.

Normally it will be used by simply passing a config file name to the Load function to obtain a
Config struct. Values from the file can be overridden with STRINGFORGE_* environment variables.
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/petert82/stringforge/stringtable"
)

const (
	DbDriverSqlite3    = "sqlite3"
	DbDriverPostgresql = "postgres"
)

// Config represents the parsed configuration for stringforge.
type Config struct {
	DB          DbConfig          `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	StringTable StringTableConfig `toml:"stringtable"`
	Validation  ValidationConfig  `toml:"validation"`
}

// valid checks if the Config is valid in its current state.
func (c *Config) valid() error {
	if c.DB.Driver != DbDriverSqlite3 && c.DB.Driver != DbDriverPostgresql {
		drivers := []string{DbDriverPostgresql, DbDriverSqlite3}
		return fmt.Errorf("config: invalid database.driver value. (Must be one of: '%v')", strings.Join(drivers, ", "))
	}
	if c.DB.Driver == DbDriverSqlite3 && len(c.DB.File) == 0 {
		return errors.New("config: missing database.file value")
	}
	if c.DB.Driver == DbDriverPostgresql {
		if len(c.DB.Host) == 0 {
			return errors.New("config: missing database.host value")
		}
		if len(c.DB.Name) == 0 {
			return errors.New("config: missing database.name value")
		}
		if len(c.DB.User) == 0 {
			return errors.New("config: missing database.user value")
		}
		if c.DB.Port < 0 {
			return errors.New("config: invalid database.port value")
		}
	}
	if c.Server.Port < 0 {
		return errors.New("config: server.port is invalid")
	}
	if len(c.StringTable.ImportPath) == 0 {
		return errors.New("config: missing stringtable.import_path value")
	}
	if len(c.StringTable.ExportPath) == 0 {
		return errors.New("config: missing stringtable.export_path value")
	}
	if _, err := os.Stat(filepath.FromSlash(c.StringTable.ImportPath)); os.IsNotExist(err) {
		return errors.New("config: stringtable.import_path does not exist")
	}
	if _, err := c.Validation.Languages(); err != nil {
		return fmt.Errorf("config: validation.required_languages: %w", err)
	}
	return nil
}

// DbConfig contains Database connection configuration.
type DbConfig struct {
	// One of the DbDriver* constants
	Driver string `env:"STRINGFORGE_DB_DRIVER"`
	// When driver is sqlite3, this is the path to the database file
	File     string `env:"STRINGFORGE_DB_FILE"`
	Host     string `env:"STRINGFORGE_DB_HOST"`
	Port     int    `env:"STRINGFORGE_DB_PORT"`
	Name     string `env:"STRINGFORGE_DB_NAME"`
	User     string `env:"STRINGFORGE_DB_USER"`
	Password string `env:"STRINGFORGE_DB_PASSWORD"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	// Port that the server should run on.
	Port int `env:"STRINGFORGE_SERVER_PORT"`
}

// StringTableConfig contains string table import/export configuration.
type StringTableConfig struct {
	// Path to import string tables from
	ImportPath string `toml:"import_path" env:"STRINGFORGE_IMPORT_PATH"`
	// Path to export string tables to
	ExportPath string `toml:"export_path" env:"STRINGFORGE_EXPORT_PATH"`
	// Collect every stringtable.xml below ImportPath instead of the .xml
	// files directly inside it
	Recursive bool `toml:"recursive" env:"STRINGFORGE_RECURSIVE"`
}

// ValidationConfig controls which checks run beyond duplicate key IDs.
type ValidationConfig struct {
	// Languages every key must have text for
	RequiredLanguages []string `toml:"required_languages" env:"STRINGFORGE_REQUIRED_LANGUAGES" envSeparator:","`
}

// Languages resolves RequiredLanguages.
func (v ValidationConfig) Languages() ([]stringtable.Language, error) {
	langs := make([]stringtable.Language, 0, len(v.RequiredLanguages))
	for _, name := range v.RequiredLanguages {
		l, err := stringtable.ParseLanguage(name)
		if err != nil {
			return nil, err
		}
		langs = append(langs, l)
	}
	return langs, nil
}

// Gets a connection string for this config.
func (d *DbConfig) ConnectionString() string {
	cStr := ""
	switch d.Driver {
	case DbDriverPostgresql:
		cStr = fmt.Sprintf("postgres://%v:%v@%v:%v/%v?sslmode=disable", d.User, d.Password, d.Host, d.Port, d.Name)
	case DbDriverSqlite3:
		cStr = d.File
	}
	return cStr
}

// Default returns a Config holding the default values.
func Default() Config {
	return Config{
		DB: DbConfig{
			Driver: DbDriverSqlite3,
			File:   filepath.FromSlash("./stringtables.db"),
			Port:   5432, // Postgres default port
		},
		Server: ServerConfig{
			Port: 8181,
		},
		StringTable: StringTableConfig{
			ImportPath: filepath.FromSlash("./stringtables"),
			ExportPath: filepath.FromSlash("./stringtables-out"),
		},
	}
}

// Loads config from a TOML file, applies environment overrides and checks its validity.
func Load(file string) (Config, error) {
	conf := Default()
	_, err := toml.DecodeFile(file, &conf)
	if err != nil {
		return conf, err
	}

	if err = env.Parse(&conf); err != nil {
		return conf, fmt.Errorf("config: parse env: %w", err)
	}

	if err = conf.valid(); err != nil {
		return conf, err
	}

	return conf, nil
}
