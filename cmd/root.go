package cmd

import (
	"errors"
	"io/fs"
	"log"

	"github.com/josephlewis42/flowsh/core/config"
	"github.com/spf13/cobra"
)

var cfgPath string

// loadConfig reads the configuration directory. Without an explicit --config
// a missing configuration falls back to the built-in defaults.
func loadConfig() (*config.Configuration, error) {
	configuration, err := config.Load(cfgPath)

	if errors.Is(err, fs.ErrNotExist) {
		if !rootCmd.PersistentFlags().Changed("config") {
			return config.Default(), nil
		}
		log.Println("Couldn't load config: did you run init?")
	}

	return configuration, err
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "flowsh",
	Short: "A shell with block-structured flow control",
	Long: `flowsh runs commands with if, while, for and function blocks that can
span several lines of input, interactively, from scripts or over SSH.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.CheckErr(rootCmd.Execute())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "config path")
}
