package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/muurk/tagreg"
	"github.com/muurk/tagreg/internal/config"
	"github.com/muurk/tagreg/internal/gen"
)

// Command flags
var (
	storePath    string
	keyingScheme string
	outputFormat string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Store file path (overrides tagreg.yaml)")
	rootCmd.PersistentFlags().StringVar(&keyingScheme, "keying", "", "Type keying scheme: qualified or bare (overrides tagreg.yaml)")

	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(typeCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(generateCmd)
}

// openRegistry builds a Registry from tagreg.yaml (discovered upward
// from the working directory) with flag overrides applied.
func openRegistry() (*tagreg.Registry, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	cfg, err := config.LoadFromDir(cwd)
	if err != nil {
		return nil, err
	}

	path := cfg.Store
	if storePath != "" {
		path = storePath
	}
	keying := tagreg.Keying(cfg.Keying)
	if keyingScheme != "" {
		keying = tagreg.Keying(keyingScheme)
	}

	return tagreg.New(tagreg.Options{Path: path, Keying: keying})
}

var tagCmd = &cobra.Command{
	Use:   "tag STRING",
	Short: "Resolve a custom tag",
	Long: `Resolve the stable UUID for an arbitrary tag string.

The first resolution of a string mints a new UUID and records it in the
store; every later resolution prints the same value.`,
	Example: `  # Resolve (minting on first use) a tag
  tagreg tag "checkout.completed"

  # Use in a shell build step
  ID=$(tagreg tag "checkout.completed")`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		id, err := reg.ResolveTag(args[0])
		if err != nil {
			return err
		}
		fmt.Println(id.String())
		return nil
	},
}

var typeCmd = &cobra.Command{
	Use:   "type NAME",
	Short: "Resolve a type tag",
	Long: `Resolve the stable UUID for a type name.

Under qualified keying (the default) NAME should be the fully qualified
form, e.g. "example.com/geo.Point". Under bare keying it is the plain
type name — note that distinct types sharing a bare name receive the
same identifier.`,
	Example: `  tagreg type "example.com/geo.Point"

  # Legacy bare-name store
  tagreg type --keying bare "Point"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		id, err := reg.ResolveTypeName(args[0])
		if err != nil {
			return err
		}
		fmt.Println(id.String())
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all recorded tags",
	Long:  `Print every key-to-UUID entry in the store, both namespaces.`,
	Example: `  tagreg list

  # JSON output for scripting
  tagreg list --format json`,
	RunE: runList,
}

func init() {
	listCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format (table, json)")
}

func runList(cmd *cobra.Command, args []string) error {
	reg, err := openRegistry()
	if err != nil {
		return err
	}
	snap, err := reg.Load()
	if err != nil {
		return err
	}

	switch outputFormat {
	case "json":
		out := map[string]any{
			"keying":      string(snap.Keying),
			"custom_tags": stringify(snap.CustomTags),
			"type_tags":   stringify(snap.TypeTags),
		}
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(data))
	case "table":
		if snap.Len() == 0 {
			fmt.Println("Store is empty.")
			return nil
		}
		printSection("custom tags", snap.CustomTags)
		printSection("type tags", snap.TypeTags)
	default:
		return fmt.Errorf("unknown format %q (expected table or json)", outputFormat)
	}
	return nil
}

func stringify(m map[string]uuid.UUID) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v.String()
	}
	return out
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check store integrity",
	Long: `Parse the store and report problems.

Checks that the file parses, and that no UUID is recorded under more
than one key. Exits non-zero when a problem is found, so it can gate CI.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		snap, err := reg.Load()
		if err != nil {
			return err
		}

		fmt.Printf("Store:   %s\n", reg.StorePath())
		fmt.Printf("Keying:  %s\n", snap.Keying)
		fmt.Printf("Entries: %d custom, %d type\n", len(snap.CustomTags), len(snap.TypeTags))

		problems := 0
		for _, entry := range snap.InvalidKeys() {
			fmt.Printf("malformed key: %s\n", entry)
			problems++
		}
		for id, keys := range snap.DuplicateIDs() {
			fmt.Printf("duplicate identifier %s shared by:\n", id)
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Printf("  %s\n", k)
			}
			problems++
		}
		if problems == 0 {
			fmt.Println("OK")
			return nil
		}
		return fmt.Errorf("store has %d problem(s)", problems)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty store",
	Long: `Create an empty store file stamped with the configured keying scheme.

Fails if the store already exists. Initialization is optional — the
store is also created automatically on the first resolution.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := openRegistry()
		if err != nil {
			return err
		}
		if err := reg.Init(); err != nil {
			return err
		}
		fmt.Printf("Created %s (keying: %s)\n", reg.StorePath(), reg.Keying())
		return nil
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate [DIR]",
	Short: "Generate type tag constants for a package",
	Long: `Scan a package directory for type declarations annotated with the
//tagreg:type directive, resolve a stable UUID for each, and write a
tags_gen.go file declaring one uuid variable per annotated type.

Intended to run under go:generate:

	//go:generate tagreg generate .`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		reg, err := openRegistry()
		if err != nil {
			return err
		}
		res, err := gen.Run(reg, dir)
		if err != nil {
			return err
		}
		if len(res.Types) == 0 {
			fmt.Printf("No annotated types in %s; nothing generated.\n", dir)
			return nil
		}
		fmt.Printf("Wrote %s (%d type(s))\n", res.OutputPath, len(res.Types))
		return nil
	},
}

func printSection(title string, entries map[string]uuid.UUID) {
	if len(entries) == 0 {
		return
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("%s:\n", title)
	for _, k := range keys {
		fmt.Printf("  %-50s %s\n", k, entries[k].String())
	}
	fmt.Println()
}
