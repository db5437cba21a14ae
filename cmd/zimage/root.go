package cmd

import (
	"fmt"
	"os"
	"strings"

	run "github.com/zimage-studio/zimage-server/cmd/zimage/run"
	"github.com/zimage-studio/zimage-server/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const zimagePrefix = "ZIMAGE"

var Cmd = &cobra.Command{
	Use:   "zimage",
	Short: "Z-Image server CLI",
	Long:  "A text-to-image generation server that fronts a Z-Image inference worker",

	// Runs before this command and any subcommands
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		viper.SetEnvPrefix(zimagePrefix)
		viper.SetEnvKeyReplacer(strings.NewReplacer(
			`-`, `_`,
			`.`, `_`,
		))
		viper.AutomaticEnv()

		if err := viper.BindPFlags(cmd.Flags()); err != nil {
			return err
		}

		if err := viper.BindPFlags(cmd.PersistentFlags()); err != nil {
			return err
		}

		if err := config.LoadEnvAndConfigFiles(); err != nil {
			return err
		}

		return nil
	},
}

func Execute() {
	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	pflags := Cmd.PersistentFlags()

	pflags.String("zimage-home", "", "Path to the zimage home directory")
	pflags.String("config-file", "", "Path to the config file")
	pflags.String("env-file", "", "Path to the env file")

	viper.BindPFlag("zimage_home", pflags.Lookup("zimage-home"))
	viper.BindPFlag("config_file", pflags.Lookup("config-file"))
	viper.BindPFlag("env_file", pflags.Lookup("env-file"))

	Cmd.AddCommand(run.Cmd)
	Cmd.CompletionOptions.HiddenDefaultCmd = true
}
