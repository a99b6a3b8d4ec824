package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"chanfinder/pkg/catalog"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var (
	addContent string
	addLinks   []string
	exportPath string
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect and edit the response catalog",
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored responses",
	Run: func(cmd *cobra.Command, args []string) {
		withCatalog(func(ctx context.Context, store *catalog.Store) error {
			cat, err := store.Load(ctx)
			if err != nil {
				return err
			}
			fmt.Println(catalogTable(cat))
			return nil
		})
	},
}

var catalogAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or replace a response",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := catalog.NormalizeName(strings.Join(args, " "))
		links, err := parseLinkFlags(addLinks)
		if err != nil {
			fmt.Println(err)
			return
		}
		if strings.TrimSpace(addContent) == "" {
			fmt.Println("--content is required")
			return
		}

		withCatalog(func(ctx context.Context, store *catalog.Store) error {
			if err := store.Upsert(ctx, name, catalog.NewDefinition(addContent, links)); err != nil {
				return err
			}
			fmt.Printf("saved %q\n", name)
			return nil
		})
	},
}

var catalogRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a response",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		name := catalog.NormalizeName(strings.Join(args, " "))

		withCatalog(func(ctx context.Context, store *catalog.Store) error {
			removed, err := store.Remove(ctx, name)
			if err != nil {
				return err
			}
			if !removed {
				fmt.Printf("no response named %q\n", name)
				return nil
			}
			fmt.Printf("removed %q\n", name)
			return nil
		})
	},
}

var catalogSeedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert builtin responses that are missing",
	Run: func(cmd *cobra.Command, args []string) {
		withCatalog(func(ctx context.Context, store *catalog.Store) error {
			added, err := seedCatalog(ctx, store)
			if err != nil {
				return err
			}
			slices.Sort(added)
			fmt.Printf("added %d builtin responses\n", len(added))
			for _, name := range added {
				fmt.Println("  " + name)
			}
			return nil
		})
	},
}

var catalogImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Upsert every response from a YAML file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Printf("failed to read %s: %v\n", args[0], err)
			return
		}
		imported, err := catalog.ParseYAML(data)
		if err != nil {
			fmt.Println(err)
			return
		}

		withCatalog(func(ctx context.Context, store *catalog.Store) error {
			count, err := importCatalog(ctx, store, imported)
			fmt.Printf("imported %d responses\n", count)
			return err
		})
	},
}

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the catalog as JSON",
	Run: func(cmd *cobra.Command, args []string) {
		withCatalog(func(ctx context.Context, store *catalog.Store) error {
			cat, err := store.Load(ctx)
			if err != nil {
				return err
			}
			data, err := catalog.Encode(cat)
			if err != nil {
				return err
			}
			if exportPath == "" || exportPath == "-" {
				_, err = os.Stdout.Write(data)
				return err
			}
			return os.WriteFile(exportPath, data, 0o644)
		})
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogListCmd, catalogAddCmd, catalogRemoveCmd, catalogSeedCmd, catalogImportCmd, catalogExportCmd)

	catalogAddCmd.Flags().StringVarP(&addContent, "content", "c", "", "response text; several lines turn into buttons")
	catalogAddCmd.Flags().StringArrayVarP(&addLinks, "link", "l", nil, "button link as label=url (repeatable)")
	catalogExportCmd.Flags().StringVarP(&exportPath, "output", "o", "-", "output file, - for stdout")
}

// withCatalog opens the configured store without seeding and runs fn.
func withCatalog(fn func(ctx context.Context, store *catalog.Store) error) {
	rt, err := loadRuntime("cmd.catalog")
	if err != nil {
		fmt.Println(err)
		return
	}

	store, err := catalog.Open(rt.cfg.Catalog.Backend, rt.catalogPath(), rt.log)
	if err != nil {
		fmt.Printf("failed to open catalog: %v\n", err)
		return
	}
	defer func() { _ = store.Close() }()

	if err := fn(context.Background(), store); err != nil {
		fmt.Printf("catalog %s: %v\n", rt.catalogPath(), err)
	}
}

func parseLinkFlags(values []string) (catalog.Links, error) {
	var links catalog.Links
	for _, value := range values {
		label, url, ok := strings.Cut(value, "=")
		label, url = strings.TrimSpace(label), strings.TrimSpace(url)
		if !ok || label == "" || url == "" {
			return nil, fmt.Errorf("link %q must look like label=url", value)
		}
		links = append(links, catalog.Link{Label: label, URL: url})
	}
	return links, nil
}

func importCatalog(ctx context.Context, store *catalog.Store, imported catalog.Catalog) (int, error) {
	names := make([]string, 0, len(imported))
	for name := range imported {
		names = append(names, name)
	}
	slices.Sort(names)

	count := 0
	for _, name := range names {
		if err := store.Upsert(ctx, name, imported[name]); err != nil {
			return count, fmt.Errorf("import %q: %w", name, err)
		}
		count++
	}
	return count, nil
}

func catalogTable(cat catalog.Catalog) string {
	names := make([]string, 0, len(cat))
	for name := range cat {
		names = append(names, name)
	}
	slices.Sort(names)

	rows := make([][]string, 0, len(names))
	for _, name := range names {
		def := cat[name]
		rows = append(rows, []string{name, firstLine(def.Content), strconv.FormatBool(def.UsesButtons), strconv.Itoa(len(def.ButtonLinks))})
	}

	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers("NAME", "CONTENT", "BUTTONS", "LINKS").
		Rows(rows...).
		String()
}

func firstLine(content string) string {
	line, rest, _ := strings.Cut(strings.TrimSpace(content), "\n")
	if rest != "" {
		line += " …"
	}
	if len([]rune(line)) > 48 {
		line = string([]rune(line)[:47]) + "…"
	}
	return line
}
