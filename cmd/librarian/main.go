// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the librarian CLI.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the librarian CLI.
var rootCmd = &cobra.Command{
	Use:   "librarian",
	Short: "Search the scripture and pravachan archive",
	Long: `librarian searches an archive of shastras, pravachans and notes through
its search backend and presents every result in one canonical shape: title,
author, reference, subject and a playable media link, whatever table the
record came from.

Subcommands search the archive, chat with the guide, normalize raw records,
manage the recent-search history and serve the same session model to a
browser front end over HTTP.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envFile, _ := cmd.Flags().GetString("env-file")
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./librarian.yaml or ~/.config/librarian/librarian.yaml)")
	rootCmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().String("backend", "", "search backend base URL (default http://127.0.0.1:5000)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress progress and warnings on stderr")

	_ = viper.BindPFlag("backend.base_url", rootCmd.PersistentFlags().Lookup("backend"))
}

func initConfig() {
	setDefaults(viper.GetViper())

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("librarian")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "librarian"))
		}
	}

	viper.SetEnvPrefix("LIBRARIAN")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && !quiet() {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
