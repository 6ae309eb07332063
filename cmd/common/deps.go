// Package common builds the shared dependencies every subcommand needs.
package common

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/jonesrussell/liharvest/internal/config"
	"github.com/jonesrussell/liharvest/internal/logger"
	"github.com/jonesrussell/liharvest/internal/session"
	"github.com/jonesrussell/liharvest/internal/store"
)

// Deps are the dependencies shared by every command.
type Deps struct {
	Config *config.Config
	Logger logger.Interface
	Store  *store.Store
}

// Build materializes configuration, logging and storage from the global
// viper state. Callers own closing the returned deps.
func Build() (*Deps, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Encoding:    cfg.Log.Encoding,
		Development: cfg.Log.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	return &Deps{Config: cfg, Logger: log, Store: st}, nil
}

// Close releases everything Build opened.
func (d *Deps) Close() error {
	if d.Store != nil {
		return d.Store.Close()
	}
	return nil
}

// Session builds the authenticated session from the configured cookies.
func (d *Deps) Session() (*session.Session, error) {
	if err := d.Config.ValidateSession(); err != nil {
		return nil, err
	}
	sess := session.FromCookieHeader(d.Config.Session.Cookies)
	if !sess.Valid() {
		return nil, fmt.Errorf("cookies do not contain a usable csrf token")
	}
	return sess, nil
}
