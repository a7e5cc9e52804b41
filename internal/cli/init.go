package cli

import (
	"errors"
	"os"
)

type InitCmd struct{}

// Run creates the store and writes a default config file when none exists.
func (c *InitCmd) Run(ctx *Context) error {
	if err := ctx.Store.Init(); err != nil {
		return err
	}

	if path := ctx.Config.Path(); path != "" {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			if err := ctx.Config.Save(path); err != nil {
				return err
			}
			ctx.printf("Wrote default config to: %s\n", path)
		}
	}

	ctx.printf("Initialized %s storage at: %s\n", ctx.Store.Backend(), ctx.Store.GetConfigPath())
	return nil
}

type MigrateCmd struct{}

// Run applies any pending schema migrations.
func (c *MigrateCmd) Run(ctx *Context) error {
	if err := ctx.Store.Init(); err != nil {
		return err
	}
	ctx.println("✓ Storage schema is up to date")
	return nil
}
