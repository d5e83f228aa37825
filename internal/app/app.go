package app

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// DefaultRelayURL is where a locally started relay listens.
	DefaultRelayURL = "http://127.0.0.1:8080"
	// DefaultRoutingTag is used when no --tag is given.
	DefaultRoutingTag = "prism"
	// DefaultTimeout bounds each relay round trip.
	DefaultTimeout = 10 * time.Second
)

// DefaultHome returns ~/.prism.
func DefaultHome() (string, error) {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ".prism"), nil
}

// withDefaults fills unset fields of cfg.
func (cfg Config) withDefaults() (Config, error) {
	if cfg.Home == "" {
		home, err := DefaultHome()
		if err != nil {
			return cfg, err
		}
		cfg.Home = home
	}
	if cfg.RelayURL == "" {
		cfg.RelayURL = DefaultRelayURL
	}
	if cfg.RoutingTag == "" {
		cfg.RoutingTag = DefaultRoutingTag
	}
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: DefaultTimeout}
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	return cfg, nil
}
