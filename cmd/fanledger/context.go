package main

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/joseph-ayodele/fan-ledger/internal/common"
	"github.com/joseph-ayodele/fan-ledger/internal/daemon"
)

type commandContext struct {
	configFlag *string

	appOnce sync.Once
	app     *daemon.App
	appErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

// ensureApp loads configuration and opens the store once per invocation.
func (c *commandContext) ensureApp(ctx context.Context) (*daemon.App, error) {
	c.appOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		if path == "" {
			path = os.Getenv("FANLEDGER_CONFIG")
		}
		cfg, err := common.LoadConfig(path)
		if err != nil {
			c.appErr = err
			return
		}
		logger := common.NewLogger(cfg.Logging, os.Stderr)
		c.app, c.appErr = daemon.New(ctx, cfg, logger)
	})
	return c.app, c.appErr
}

func (c *commandContext) close() error {
	if c.app == nil {
		return nil
	}
	err := c.app.Close()
	c.app = nil
	return err
}
