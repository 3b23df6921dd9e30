package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hupe1980/activityagent/api"
	"github.com/hupe1980/activityagent/reply"
)

var replyCmd = &cobra.Command{
	Use:   "reply [instruction]",
	Short: "Generate one reply and print it as JSON",
	Long: `Generate one reply and print the agent result as JSON.

Without an instruction the default one is used:
  "` + reply.DefaultInstruction + `"`,
	RunE: runReply,
}

func runReply(cmd *cobra.Command, args []string) error {
	cfg := globalConfig
	logger := newLogger(cfg, os.Stderr)

	instruction := strings.Join(args, " ")
	if instruction != "" {
		if err := api.ValidateInput(instruction, cfg.MaxInputLength); err != nil {
			return err
		}
	}

	generator, err := newGenerator(cfg, logger)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
		defer cancel()
	}

	result, err := generator.Generate(ctx, instruction)
	if err != nil {
		var rerr *reply.Error
		if errors.As(err, &rerr) {
			return fmt.Errorf("%s: %w", rerr.Kind, rerr.Err)
		}
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
