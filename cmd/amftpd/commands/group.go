package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/m4mm0n/amFTPd-sub003/internal/config"
	"github.com/m4mm0n/amFTPd-sub003/pkg/identity"
)

var groupCmd = &cobra.Command{
	Use:   "group",
	Short: "Manage groups",
}

var (
	groupAddDescription string
	groupAddOverride    []string
)

var groupAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a new group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupAdd,
}

var groupDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a group",
	Args:  cobra.ExactArgs(1),
	RunE:  runGroupDelete,
}

var groupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups",
	Args:  cobra.NoArgs,
	RunE:  runGroupList,
}

func init() {
	groupAddCmd.Flags().StringVar(&groupAddDescription, "description", "", "Group description")
	groupAddCmd.Flags().StringSliceVar(&groupAddOverride, "override", nil,
		`Per-section credit multiplier override, repeatable: SECTION=UPLOAD:DOWNLOAD (e.g. --override MP3=0.5:2)`)

	groupCmd.AddCommand(groupAddCmd)
	groupCmd.AddCommand(groupDeleteCmd)
	groupCmd.AddCommand(groupListCmd)
}

func runGroupAdd(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, path, err := loadConfigForEdit()
	if err != nil {
		return err
	}

	for _, g := range cfg.Identity.Groups {
		if strings.EqualFold(g.Name, name) {
			return fmt.Errorf("group %q already exists", name)
		}
	}

	overrides, err := parseSectionOverrides(groupAddOverride)
	if err != nil {
		return err
	}

	group := identity.Group{
		Name:             name,
		Description:      groupAddDescription,
		SectionOverrides: overrides,
	}

	cfg.Identity.Groups = append(cfg.Identity.Groups, group)

	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("Group %q created\n", name)
	return nil
}

func runGroupDelete(cmd *cobra.Command, args []string) error {
	name := args[0]

	cfg, path, err := loadConfigForEdit()
	if err != nil {
		return err
	}

	idx := -1
	for i, g := range cfg.Identity.Groups {
		if strings.EqualFold(g.Name, name) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("group %q not found", name)
	}

	for _, u := range cfg.Identity.Users {
		if strings.EqualFold(u.PrimaryGroup, name) {
			return fmt.Errorf("group %q is the primary group of user %q, reassign before deleting", name, u.Username)
		}
	}

	cfg.Identity.Groups = append(cfg.Identity.Groups[:idx], cfg.Identity.Groups[idx+1:]...)

	if err := config.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	fmt.Printf("Group %q deleted\n", name)
	return nil
}

func runGroupList(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	groups := make([]identity.Group, len(cfg.Identity.Groups))
	copy(groups, cfg.Identity.Groups)
	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })

	if len(groups) == 0 {
		fmt.Println("No groups configured")
		return nil
	}

	fmt.Printf("%-20s %-30s %s\n", "NAME", "DESCRIPTION", "SECTION OVERRIDES")
	for _, g := range groups {
		overrides := make([]string, 0, len(g.SectionOverrides))
		for section, o := range g.SectionOverrides {
			overrides = append(overrides, fmt.Sprintf("%s=%.2f:%.2f", section, o.UploadMultiplier, o.DownloadMultiplier))
		}
		sort.Strings(overrides)
		fmt.Printf("%-20s %-30s %s\n", g.Name, g.Description, strings.Join(overrides, ","))
	}
	return nil
}

// parseSectionOverrides parses repeated SECTION=UPLOAD:DOWNLOAD flags into
// a per-section credit multiplier map.
func parseSectionOverrides(raw []string) (map[string]identity.SectionOverride, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	overrides := make(map[string]identity.SectionOverride, len(raw))
	for _, entry := range raw {
		section, ratios, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --override %q, expected SECTION=UPLOAD:DOWNLOAD", entry)
		}
		upStr, downStr, ok := strings.Cut(ratios, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --override %q, expected SECTION=UPLOAD:DOWNLOAD", entry)
		}
		up, err := strconv.ParseFloat(upStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid upload multiplier in --override %q: %w", entry, err)
		}
		down, err := strconv.ParseFloat(downStr, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid download multiplier in --override %q: %w", entry, err)
		}
		overrides[section] = identity.SectionOverride{UploadMultiplier: up, DownloadMultiplier: down}
	}
	return overrides, nil
}
