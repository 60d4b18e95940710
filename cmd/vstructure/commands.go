package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vstructure/vstructure/pkg/comparator"
	"github.com/vstructure/vstructure/pkg/config"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List validation rules",
	Long:  `List the registered validation rules and whether each is enabled by default.`,
	RunE:  runRules,
}

var versionsCmd = &cobra.Command{
	Use:   "versions",
	Short: "List metadata snapshot versions for an instance",
	RunE:  runVersions,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long:  `Print the merged configuration (defaults, config files, environment) as YAML.`,
	RunE:  runConfig,
}

func init() {
	versionsCmd.Flags().StringVarP(&instanceID, "instance", "i", "", "Instance to list versions for (required)")
	versionsCmd.MarkFlagRequired("instance")
}

func runRules(cmd *cobra.Command, args []string) error {
	registry := comparator.NewRegistry()

	fmt.Printf("%-20s %-8s %-8s %s\n", "Rule", "Scope", "Enabled", "Description")
	fmt.Printf("%-20s %-8s %-8s %s\n",
		strings.Repeat("-", 20), strings.Repeat("-", 8), strings.Repeat("-", 8), strings.Repeat("-", 40))
	for _, info := range registry.List() {
		enabled := "no"
		if info.Enabled {
			enabled = "yes"
		}
		fmt.Printf("%-20s %-8s %-8s %s\n", info.RuleID, info.Scope, enabled, info.Description)
	}

	return nil
}

func runVersions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open metadata store: %w", err)
	}

	versions, err := store.Versions(ctx, instanceID)
	if err != nil {
		return fmt.Errorf("failed to list versions: %w", err)
	}

	if len(versions) == 0 {
		fmt.Printf("No metadata snapshots found for instance %s.\n", instanceID)
		return nil
	}

	fmt.Printf("Metadata versions for %s:\n", instanceID)
	for i, v := range versions {
		marker := " "
		if i == len(versions)-1 {
			marker = "*" // latest
		}
		fmt.Printf("  %s %s\n", marker, v)
	}

	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	mgr := config.NewManager()
	if err := mgr.Load(); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if verbose {
		fmt.Println("Search paths:")
		for _, p := range mgr.GetPaths() {
			fmt.Printf("  - %s\n", p)
		}
		fmt.Println()
	}

	out, err := yaml.Marshal(mgr.Get())
	if err != nil {
		return err
	}
	fmt.Print(string(out))

	return nil
}
