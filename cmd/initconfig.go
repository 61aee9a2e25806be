package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/michaelpento.lv/tradesim/config"
	"github.com/michaelpento.lv/tradesim/utils"
)

var initConfigOpts struct {
	out   string
	force bool
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config",
	Short: "Write the default configuration to a YAML file",
	Run: func(cmd *cobra.Command, args []string) {
		log := utils.GetLogger()

		if err := writeDefaultConfig(initConfigOpts.out, initConfigOpts.force); err != nil {
			log.Fatal("Failed to write configuration", zap.Error(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", initConfigOpts.out)
	},
}

// writeDefaultConfig saves DefaultConfig to path, refusing to replace an existing
// file unless force is set
func writeDefaultConfig(path string, force bool) error {
	if path == "" {
		return errors.New("output path must be specified")
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s already exists, use --force to overwrite", path)
		}
	}
	return config.SaveConfig(config.DefaultConfig(), path)
}

func init() {
	rootCmd.AddCommand(initConfigCmd)
	f := initConfigCmd.Flags()
	f.StringVar(&initConfigOpts.out, "out", "tradesim.yaml", "file to write")
	f.BoolVar(&initConfigOpts.force, "force", false, "overwrite an existing file")
}
