package models

import (
	"errors"
	"strings"
)

// DefaultMySQLPort is used when a connection config leaves the port empty.
const DefaultMySQLPort = "3306"

// ErrInvalidConfig is returned when a required connection field is missing.
var ErrInvalidConfig = errors.New("host, user and database are required")

// ConnConfig holds the connection parameters of the relational mirror.
// The password is kept in clear text wherever the config is stored.
type ConnConfig struct {
	Host     string `json:"host"`
	Port     string `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	Database string `json:"database"`
}

// Validate checks that host, user and database are set.
func (c ConnConfig) Validate() error {
	if strings.TrimSpace(c.Host) == "" ||
		strings.TrimSpace(c.User) == "" ||
		strings.TrimSpace(c.Database) == "" {
		return ErrInvalidConfig
	}
	return nil
}

// WithDefaults returns a copy with trimmed fields and the default port filled in.
func (c ConnConfig) WithDefaults() ConnConfig {
	c.Host = strings.TrimSpace(c.Host)
	c.Port = strings.TrimSpace(c.Port)
	c.User = strings.TrimSpace(c.User)
	c.Database = strings.TrimSpace(c.Database)
	if c.Port == "" {
		c.Port = DefaultMySQLPort
	}
	return c
}
