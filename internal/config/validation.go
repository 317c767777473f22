package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate runs struct-tag validation over cfg and cross-checks the
// handful of invariants validator's tag language can't express (mount
// uniqueness, unique section/group/user names, and users' primary and
// secondary groups naming configured groups).
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return err
	}
	if err := validateMounts(cfg.VFS.Mounts); err != nil {
		return err
	}
	if err := validateIdentity(&cfg.Identity); err != nil {
		return err
	}
	return nil
}

func validateMounts(mounts []MountConfig) error {
	seen := make(map[string]struct{}, len(mounts))
	for _, m := range mounts {
		if _, dup := seen[m.VirtualRoot]; dup {
			return fmt.Errorf("config: duplicate vfs mount virtual_root %q", m.VirtualRoot)
		}
		seen[m.VirtualRoot] = struct{}{}
	}
	return nil
}

func validateIdentity(cfg *IdentityConfig) error {
	sections := make(map[string]struct{}, len(cfg.Sections))
	for _, s := range cfg.Sections {
		if _, dup := sections[s.Name]; dup {
			return fmt.Errorf("config: duplicate identity.sections name %q", s.Name)
		}
		sections[s.Name] = struct{}{}
	}
	groups := make(map[string]struct{}, len(cfg.Groups))
	for _, g := range cfg.Groups {
		if _, dup := groups[g.Name]; dup {
			return fmt.Errorf("config: duplicate identity.groups name %q", g.Name)
		}
		groups[g.Name] = struct{}{}
	}
	users := make(map[string]struct{}, len(cfg.Users))
	for _, u := range cfg.Users {
		if u.Username == "" {
			return fmt.Errorf("config: identity.users entry missing username")
		}
		if _, dup := users[u.Username]; dup {
			return fmt.Errorf("config: duplicate identity.users username %q", u.Username)
		}
		users[u.Username] = struct{}{}
		if u.PrimaryGroup != "" {
			if _, ok := groups[u.PrimaryGroup]; !ok {
				return fmt.Errorf("config: user %q references unknown primary group %q", u.Username, u.PrimaryGroup)
			}
		}
		for _, sg := range u.SecondaryGroups {
			if _, ok := groups[sg]; !ok {
				return fmt.Errorf("config: user %q references unknown secondary group %q", u.Username, sg)
			}
		}
	}
	return nil
}
