package commands

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/m4mm0n/amFTPd-sub003/internal/bytesize"
	"github.com/m4mm0n/amFTPd-sub003/internal/config"
	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user accounts",
}

var (
	userAddGroup    string
	userAddHome     string
	userAddAdmin    bool
	userAddCredits  string
	userAddUpRate   string
	userAddDownRate string
)

var userAddCmd = &cobra.Command{
	Use:   "add <username>",
	Short: "Add a new user account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserAdd,
}

var userDeleteCmd = &cobra.Command{
	Use:   "delete <username>",
	Short: "Delete a user account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserDelete,
}

var userListCmd = &cobra.Command{
	Use:   "list",
	Short: "List user accounts",
	Args:  cobra.NoArgs,
	RunE:  runUserList,
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Change a user's password",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserPasswd,
}

var userEnableCmd = &cobra.Command{
	Use:   "enable <username>",
	Short: "Enable a disabled user account",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserSetEnabled(true),
}

var userDisableCmd = &cobra.Command{
	Use:   "disable <username>",
	Short: "Disable a user account without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE:  runUserSetEnabled(false),
}

func init() {
	userAddCmd.Flags().StringVar(&userAddGroup, "group", "", "Primary group (required)")
	userAddCmd.Flags().StringVar(&userAddHome, "home", "", "Home directory within the virtual filesystem")
	userAddCmd.Flags().BoolVar(&userAddAdmin, "admin", false, "Grant the admin capability (siteop)")
	userAddCmd.Flags().StringVar(&userAddCredits, "credits", "0", "Initial credit balance (e.g. 5Gi, 500Mi)")
	userAddCmd.Flags().StringVar(&userAddUpRate, "max-upload-rate", "", "Per-session upload rate cap (e.g. 2Mi)")
	userAddCmd.Flags().StringVar(&userAddDownRate, "max-download-rate", "", "Per-session download rate cap (e.g. 5Mi)")

	userCmd.AddCommand(userAddCmd)
	userCmd.AddCommand(userDeleteCmd)
	userCmd.AddCommand(userListCmd)
	userCmd.AddCommand(userPasswdCmd)
	userCmd.AddCommand(userEnableCmd)
	userCmd.AddCommand(userDisableCmd)
}

func runUserAdd(cmd *cobra.Command, args []string) error {
	username := args[0]
	if userAddGroup == "" {
		return fmt.Errorf("--group is required")
	}

	cfg, path, err := loadConfigForEdit()
	if err != nil {
		return err
	}

	for _, u := range cfg.Identity.Users {
		if strings.EqualFold(u.Username, username) {
			return fmt.Errorf("user %q already exists", username)
		}
	}

	password, err := promptPassword("New password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	salt, hash, err := identity.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	credits, err := bytesize.ParseByteSize(userAddCredits)
	if err != nil {
		return fmt.Errorf("invalid --credits: %w", err)
	}

	var upRate, downRate bytesize.ByteSize
	if userAddUpRate != "" {
		if upRate, err = bytesize.ParseByteSize(userAddUpRate); err != nil {
			return fmt.Errorf("invalid --max-upload-rate: %w", err)
		}
	}
	if userAddDownRate != "" {
		if downRate, err = bytesize.ParseByteSize(userAddDownRate); err != nil {
			return fmt.Errorf("invalid --max-download-rate: %w", err)
		}
	}

	capabilities := map[identity.Capability]bool{
		identity.CapUpload:   true,
		identity.CapDownload: true,
	}
	if userAddAdmin {
		capabilities[identity.CapAdmin] = true
	}

	user := identity.User{
		Username:            username,
		PasswordHash:        hash,
		PasswordSalt:        salt,
		HomeDir:             userAddHome,
		PrimaryGroup:        userAddGroup,
		Capabilities:        capabilities,
		CreditsKiB:          int64(credits.Uint64() / 1024),
		MaxUploadRateKiBs:   int64(upRate.Uint64() / 1024),
		MaxDownloadRateKiBs: int64(downRate.Uint64() / 1024),
		Enabled:             true,
		CreatedAt:           time.Now(),
	}

	cfg.Identity.Users = append(cfg.Identity.Users, user)

	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("User %q created\n", username)
	return nil
}

func runUserDelete(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, path, err := loadConfigForEdit()
	if err != nil {
		return err
	}

	idx := -1
	for i, u := range cfg.Identity.Users {
		if strings.EqualFold(u.Username, username) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("user %q not found", username)
	}

	cfg.Identity.Users = append(cfg.Identity.Users[:idx], cfg.Identity.Users[idx+1:]...)

	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("User %q deleted\n", username)
	return nil
}

func runUserList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	users := make([]identity.User, len(cfg.Identity.Users))
	copy(users, cfg.Identity.Users)
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })

	if len(users) == 0 {
		fmt.Println("No users configured")
		return nil
	}

	fmt.Printf("%-20s %-15s %-10s %12s %s\n", "USERNAME", "GROUP", "ENABLED", "CREDITS", "CAPABILITIES")
	for _, u := range users {
		caps := make([]string, 0, len(u.Capabilities))
		for c, on := range u.Capabilities {
			if on {
				caps = append(caps, string(c))
			}
		}
		sort.Strings(caps)
		fmt.Printf("%-20s %-15s %-10t %12d %s\n", u.Username, u.PrimaryGroup, u.Enabled, u.CreditsKiB, strings.Join(caps, ","))
	}
	return nil
}

func runUserPasswd(cmd *cobra.Command, args []string) error {
	username := args[0]

	cfg, path, err := loadConfigForEdit()
	if err != nil {
		return err
	}

	idx := -1
	for i, u := range cfg.Identity.Users {
		if strings.EqualFold(u.Username, username) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("user %q not found", username)
	}

	password, err := promptPassword("New password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	salt, hash, err := identity.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	cfg.Identity.Users[idx].PasswordSalt = salt
	cfg.Identity.Users[idx].PasswordHash = hash

	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("Password updated for %q\n", username)
	return nil
}

func runUserSetEnabled(enabled bool) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		username := args[0]

		cfg, path, err := loadConfigForEdit()
		if err != nil {
			return err
		}

		idx := -1
		for i, u := range cfg.Identity.Users {
			if strings.EqualFold(u.Username, username) {
				idx = i
				break
			}
		}
		if idx == -1 {
			return fmt.Errorf("user %q not found", username)
		}

		cfg.Identity.Users[idx].Enabled = enabled

		if err := config.Save(cfg, path); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}

		state := "disabled"
		if enabled {
			state = "enabled"
		}
		fmt.Printf("User %q %s\n", username, state)
		return nil
	}
}

// loadConfigForEdit loads the configuration destined for mutation and
// returns the path it should be saved back to.
func loadConfigForEdit() (*config.Config, string, error) {
	path := GetConfigFile()
	if path == "" {
		path = config.DefaultConfigPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, path, nil
}

// promptPassword reads a password from the terminal without echoing it,
// falling back to a plain line read when stdin isn't a terminal (piped
// input, e.g. in scripted account provisioning).
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)

	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(password), nil
	}

	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(password), nil
}
