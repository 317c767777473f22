// Package commands implements the amftpd CLI's subcommands.
package commands

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information, injected by main from ldflags.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "amftpd",
	Short: "amFTPd - a scene-style FTP/FTPS daemon",
	Long: `amFTPd is a scene-style FTP/FTPS daemon: sections, ratio/credit
accounting, dupe detection, pre/release registries, nuke/unnuke, and
FXP, built for private community distribution rather than general
file sharing.

Use "amftpd [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and parses the
// command line. Called once by main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/amftpd/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(groupCmd)
}

// GetConfigFile returns the config file path from the global --config flag.
func GetConfigFile() string {
	return cfgFile
}

// Exit prints an error to stderr and exits with status 1.
func Exit(format string, args ...any) {
	rootCmd.PrintErrf(format+"\n", args...)
	os.Exit(1)
}
