package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m4mm0n/amFTPd-sub003/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample amftpd configuration file.

By default, the configuration file is created at
$XDG_CONFIG_HOME/amftpd/config.yaml. Use --config to specify a custom
path.

Examples:
  # Initialize with default location
  amftpd init

  # Initialize with custom path
  amftpd init --config /etc/amftpd/config.yaml

  # Force overwrite an existing config file
  amftpd init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	path := GetConfigFile()
	if path == "" {
		path = config.DefaultConfigPath()
	}

	if !initForce {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	cfg := config.DefaultConfig()
	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", path)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Edit the configuration file: set vfs.mounts, tls, and identity.users")
	fmt.Printf("  2. Create the first siteop account: amftpd user add <name> --group <group> --admin --config %s\n", path)
	fmt.Printf("  3. Start the server: amftpd start --config %s\n", path)

	return nil
}
