package main

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-deck/pkg/deck"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *deck.Config
	configPath string
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
	}
}

func (c *commandContext) ensureConfig() (*deck.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, err := deck.LoadConfig(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.verbose != nil && *c.verbose {
			cfg.Logging.Level = "debug"
		}
		deck.SetGlobalConfig(cfg)
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *deck.Config {
	cfg, err := c.ensureConfig()
	if err != nil || cfg == nil {
		return deck.DefaultConfig()
	}
	return cfg
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// describeError names the failing fragment and the failure kind when known
func describeError(err error) string {
	var fe *deck.FragmentError
	if errors.As(err, &fe) && fe.Kind != nil && fe.Cause != nil {
		return fmt.Sprintf("error: %v [%v]", err, fe.Kind)
	}
	return fmt.Sprintf("error: %v", err)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
