package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/sardine-ai/dmx-artnet-checker/settings"
	"github.com/sardine-ai/dmx-artnet-checker/source"
	"github.com/spf13/cobra"
)

var configsCmd = &cobra.Command{
	Use:   "configs",
	Short: "Manage configuration files",
	Long:  "List, inspect, switch and create configuration files under the settings root",
}

var configsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List known configurations",
	Args:  cobra.NoArgs,
	RunE:  runConfigsList,
}

var configsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active configuration merged over the defaults",
	Args:  cobra.NoArgs,
	RunE:  runConfigsShow,
}

var configsUseCmd = &cobra.Command{
	Use:   "use FILE",
	Short: "Make FILE (relative to the settings root) the active configuration",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigsUse,
}

var configsSaveAsCmd = &cobra.Command{
	Use:   "save-as NAME",
	Short: "Copy the active configuration to config/NAME.yaml",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigsSaveAs,
}

var configsOverwriteCmd = &cobra.Command{
	Use:   "overwrite",
	Short: "Rewrite the active file from the merged configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigsOverwrite,
}

var configsImportCmd = &cobra.Command{
	Use:   "import NAME",
	Short: "Fetch a configuration from a file, URL, git repository or bucket",
	Example: `  dmx-artnet-checker configs import club --type fs --path ./club.toml
  dmx-artnet-checker configs import stage --type git --url https://example.com/rigs.git --path stage.yaml
  dmx-artnet-checker configs import arena --type s3 --bucket rigs --object arena.json --region eu-west-1`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigsImport,
}

var (
	configsFormat      string
	configsDisplayName string
	configsDescription string
	importSpec         source.Spec
)

func init() {
	configsShowCmd.Flags().StringVar(&configsFormat, "format", "yaml", "output format: yaml, toml or json")

	for _, c := range []*cobra.Command{configsSaveAsCmd, configsImportCmd} {
		c.Flags().StringVar(&configsDisplayName, "display-name", "", "name shown in the registry (defaults to NAME)")
		c.Flags().StringVar(&configsDescription, "description", "", "description stored in the registry")
	}

	flags := configsImportCmd.Flags()
	flags.StringVar(&importSpec.Type, "type", "fs", "source type: fs, http, git, s3 or gcs")
	flags.StringVar(&importSpec.Path, "path", "", "file path, or path inside a git repository")
	flags.StringVar(&importSpec.URL, "url", "", "http or git URL")
	flags.StringVar(&importSpec.Branch, "branch", "", "git branch")
	flags.StringVar(&importSpec.Username, "username", "", "git username")
	flags.StringVar(&importSpec.Password, "password", "", "git password or token")
	flags.StringVar(&importSpec.Bucket, "bucket", "", "s3 or gcs bucket")
	flags.StringVar(&importSpec.Object, "object", "", "s3 key or gcs object")
	flags.StringVar(&importSpec.Region, "region", "", "s3 region")
	flags.StringVar(&importSpec.APIKey, "source-api-key", "", "X-API-Key sent to an http source")

	configsCmd.AddCommand(configsListCmd)
	configsCmd.AddCommand(configsShowCmd)
	configsCmd.AddCommand(configsUseCmd)
	configsCmd.AddCommand(configsSaveAsCmd)
	configsCmd.AddCommand(configsOverwriteCmd)
	configsCmd.AddCommand(configsImportCmd)
}

func runConfigsList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	registry := store.Registry()
	current := registry.Load()
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("==> configurations (%d)", len(current.AvailableConfigs))))
	fmt.Fprintln(out)

	registered := map[string]bool{}
	rows := [][]string{}
	for _, entry := range current.AvailableConfigs {
		registered[entry.File] = true
		rows = append(rows, configRow(registry, entry.File == current.ActiveFile(), entry.Name, entry.File, entry.Description))
	}
	for _, file := range registry.ListConfigFiles() {
		if !registered[file] {
			rows = append(rows, configRow(registry, file == current.ActiveFile(), "", file, dimStyle.Render("not registered")))
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().
					Foreground(lipgloss.Color("86")).
					Bold(true).
					Align(lipgloss.Center)
			}
			return lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		}).
		Headers("", "name", "file", "description", "size", "modified").
		Rows(rows...)

	fmt.Fprintln(out, t)
	return nil
}

func configRow(registry *settings.Registry, active bool, name, file, description string) []string {
	marker := ""
	if active {
		marker = successStyle.Render("*")
	}
	size, modified := "missing", ""
	if info, err := os.Stat(registry.Resolve(file)); err == nil {
		size = humanize.Bytes(uint64(info.Size()))
		modified = humanize.Time(info.ModTime())
	}
	return []string{marker, name, file, description, size, modified}
}

func runConfigsShow(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	codec := settings.CodecFor("config." + configsFormat)
	if !settings.IsConfigFile("config." + configsFormat) {
		return fmt.Errorf("unsupported format %q", configsFormat)
	}
	data, err := codec.Encode(store.Load())
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("# "+store.ActiveFile()))
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func runConfigsUse(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	if _, err := store.SwitchActiveFile(args[0]); err != nil {
		return err
	}
	printSuccess(cmd, "[success] active configuration is now %s", store.ActiveFile())
	printField(cmd, "channels", store.ChannelCount())
	return nil
}

func runConfigsSaveAs(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	file, _, err := store.SaveAs(args[0], configsDisplayName, configsDescription)
	if err != nil {
		return err
	}
	printSuccess(cmd, "[success] saved %s", file)
	return nil
}

func runConfigsOverwrite(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	if err := store.OverwriteActive(); err != nil {
		return err
	}
	printSuccess(cmd, "[success] rewrote %s", store.ActiveFile())
	return nil
}

func runConfigsImport(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	repo, err := source.New(importSpec)
	if err != nil {
		return err
	}
	file, doc, err := store.Import(cmd.Context(), repo, args[0], configsDisplayName, configsDescription)
	if err != nil {
		return err
	}
	cfg, err := doc.Config()
	if err != nil {
		return err
	}
	printSuccess(cmd, "[success] imported %s", file)
	printField(cmd, "source", repo.GetName())
	printField(cmd, "channels", cfg.ChannelCount())
	return nil
}
