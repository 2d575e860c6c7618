package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/osaurus-ai/osaurus/internal/buildinfo"
	"github.com/osaurus-ai/osaurus/internal/config"
	"github.com/osaurus-ai/osaurus/internal/installer"
)

// buildInstaller wires a Store/RegistryClient/Verifier/Installer from the
// same Config the server uses, so the CLI and the running gateway always
// agree on where plugins live (spec §4.E is contract-only to the CLI per
// spec.md §1: "The CLI is a thin client of the HTTP and plugin-store
// contracts specified here").
func buildInstaller(cfg config.Config, logger *slog.Logger) *installer.Installer {
	specsDir := filepath.Join(filepath.Dir(cfg.Tools.Root), "PluginSpecs")
	store := installer.NewStore(cfg.Tools.Root, logger)
	reg := installer.NewRegistryClient(cfg.Tools.IndexURL, specsDir, logger)
	verifier := installer.NewVerifier()
	ins := installer.New(store, reg, verifier, buildinfo.HostVersion(), logger)
	ins.TrustedKeys = cfg.Tools.TrustedKeys
	return ins
}

func buildPluginsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Manage installed external tool plugins",
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file (optional)")

	cmd.AddCommand(
		buildPluginsInstallCmd(&configPath),
		buildPluginsUpgradeCmd(&configPath),
		buildPluginsRollbackCmd(&configPath),
		buildPluginsUninstallCmd(&configPath),
		buildPluginsListCmd(&configPath),
		buildPluginsVerifyCmd(&configPath),
	)
	return cmd
}

func loadCfgAndInstaller(configPath string) (config.Config, *installer.Installer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger := slog.Default().With("component", "cmd.plugins")
	return cfg, buildInstaller(cfg, logger), nil
}

func buildPluginsInstallCmd(configPath *string) *cobra.Command {
	var version string
	cmd := &cobra.Command{
		Use:   "install <plugin_id>",
		Short: "Resolve, download, verify, and install a plugin version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ins, err := loadCfgAndInstaller(*configPath)
			if err != nil {
				return err
			}
			receipt, err := ins.Install(cmd.Context(), args[0], version)
			if err != nil {
				return err
			}
			fmt.Printf("installed %s@%s (sha256 %s)\n", receipt.PluginID, receipt.Version, receipt.DylibSHA256)
			return nil
		},
	}
	cmd.Flags().StringVar(&version, "version", "", "Exact version to install (default: highest compatible)")
	return cmd
}

func buildPluginsUpgradeCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upgrade [plugin_id]",
		Short: "Upgrade one plugin, or every installed plugin if no id is given",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ins, err := loadCfgAndInstaller(*configPath)
			if err != nil {
				return err
			}
			var pluginID string
			if len(args) == 1 {
				pluginID = args[0]
			}
			receipts, err := ins.Upgrade(cmd.Context(), pluginID)
			if err != nil {
				return err
			}
			for _, r := range receipts {
				fmt.Printf("upgraded %s to %s\n", r.PluginID, r.Version)
			}
			return nil
		},
	}
	return cmd
}

func buildPluginsRollbackCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <plugin_id>",
		Short: "Point current at the next-most-recent installed version",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ins, err := loadCfgAndInstaller(*configPath)
			if err != nil {
				return err
			}
			receipt, err := ins.Rollback(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("rolled back %s to %s\n", receipt.PluginID, receipt.Version)
			return nil
		},
	}
}

func buildPluginsUninstallCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <plugin_id|dir|path>",
		Short: "Remove an installed plugin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ins, err := loadCfgAndInstaller(*configPath)
			if err != nil {
				return err
			}
			if err := ins.Uninstall(args[0]); err != nil {
				return err
			}
			fmt.Printf("uninstalled %s\n", args[0])
			return nil
		},
	}
}

func buildPluginsListCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List installed plugins and their current version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store := installer.NewStore(cfg.Tools.Root, slog.Default())
			for _, pluginID := range store.ListPlugins() {
				versions := store.InstalledVersions(pluginID)
				current, _ := store.Current(pluginID)
				vs := make([]string, 0, len(versions))
				for _, v := range versions {
					vs = append(vs, v.String())
				}
				fmt.Printf("%s  current=%s  installed=%v\n", pluginID, current, vs)
			}
			return nil
		},
	}
}

func buildPluginsVerifyCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Recompute checksums for every installed plugin version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, ins, err := loadCfgAndInstaller(*configPath)
			if err != nil {
				return err
			}
			results := ins.Verify()
			failed := false
			for _, r := range results {
				status := "OK"
				if !r.OK {
					status = "FAIL"
					failed = true
				}
				if r.Error != nil {
					fmt.Printf("%s@%s: %s (%v)\n", r.PluginID, r.Version, status, r.Error)
				} else {
					fmt.Printf("%s@%s: %s\n", r.PluginID, r.Version, status)
				}
			}
			if failed {
				os.Exit(1)
			}
			return nil
		},
	}
}
