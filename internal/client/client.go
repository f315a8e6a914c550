package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/TheMichaelB/schoolctl/internal/config"
	"github.com/TheMichaelB/schoolctl/internal/events"
	"github.com/TheMichaelB/schoolctl/internal/services/attachments"
	"github.com/TheMichaelB/schoolctl/internal/services/records"
	"github.com/TheMichaelB/schoolctl/internal/session"
	"github.com/TheMichaelB/schoolctl/internal/transport"
)

// Client provides the high-level API for schoolctl operations.
type Client struct {
	Records *records.Service

	config    *config.Config
	logger    *events.Logger
	transport transport.Transport
	sessions  session.Store
}

// New creates a client from config.
func New(cfg *config.Config, logger *events.Logger) (*Client, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	tr := transport.New(&cfg.API, logger)

	sessions, err := newSessionStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	if token, err := loadToken(cfg.API.TokenFile); err == nil && token != "" {
		tr.SetToken(token)
	}

	return &Client{
		Records:   records.NewService(tr, logger),
		config:    cfg,
		logger:    logger,
		transport: tr,
		sessions:  sessions,
	}, nil
}

// Editor opens or resumes the attachment editing session for a record.
func (c *Client) Editor(ctx context.Context, recordID string) (*attachments.Controller, error) {
	return attachments.Open(ctx, recordID, c.transport, c.sessions, c.logger)
}

// StagedRecords lists record IDs with a persisted staged session.
func (c *Client) StagedRecords() ([]string, error) {
	return c.sessions.List()
}

// SetToken stores the bearer token for API calls and persists it.
func (c *Client) SetToken(token string) error {
	c.transport.SetToken(token)
	return saveToken(c.config.API.TokenFile, token)
}

// Token returns the active bearer token.
func (c *Client) Token() string {
	return c.transport.GetToken()
}

// Close releases transport and store resources.
func (c *Client) Close() error {
	if err := c.sessions.Close(); err != nil {
		return err
	}
	return c.transport.Close()
}

func newSessionStore(cfg *config.Config, logger *events.Logger) (session.Store, error) {
	switch cfg.Storage.SessionBackend {
	case "sqlite":
		return session.NewSQLiteStore(filepath.Join(cfg.Storage.SessionDir, "sessions.db"), logger)
	default:
		return session.NewJSONStore(cfg.Storage.SessionDir, logger)
	}
}

type tokenFile struct {
	Token string `json:"token"`
}

func loadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return "", fmt.Errorf("parse token file: %w", err)
	}
	return tf.Token, nil
}

func saveToken(path string, token string) error {
	data, err := json.Marshal(tokenFile{Token: token})
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create token directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}
