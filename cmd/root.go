// Package cmd implements the dmx-artnet-checker command line.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sardine-ai/dmx-artnet-checker/settings"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("213"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("15")).
			Bold(true)
)

var rootCmd = &cobra.Command{
	Use:   "dmx-artnet-checker",
	Short: "Send DMX values over Art-Net and manage lighting configurations",
	Long: titleStyle.Render("dmx-artnet-checker") + "\n\n" +
		"Runs an HTTP API that forwards DMX channel values to Art-Net nodes and\n" +
		"manages the layered configuration files it starts from.",
	Example: `  # serve the API on :3001 and reload when files change
  dmx-artnet-checker serve --watch

  # list and switch configurations
  dmx-artnet-checker configs list
  dmx-artnet-checker configs use config/stage.yaml

  # drive a running server
  dmx-artnet-checker artnet connect --ip 192.168.1.255
  dmx-artnet-checker artnet channel 1 255`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: applyLogLevel,
}

// Execute runs the command line and reports a failure on stderr.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("[error] %v", err)))
	}
	return err
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("settings-root", settings.DefaultRoot, "directory holding settings.yaml and config/")
	flags.String("log-level", "", "log level (overrides the logging section)")
	flags.String("server", "http://localhost:3001", "server URL used by artnet commands")
	flags.String("api-key", "", "X-API-KEY sent to the server")
	for _, name := range []string{"settings-root", "log-level", "server", "api-key"} {
		cobra.CheckErr(viper.BindPFlag(name, flags.Lookup(name)))
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configsCmd)
	rootCmd.AddCommand(artnetCmd)
}

// initConfig lets every flag be set from a DMX_* environment variable.
func initConfig() {
	viper.SetEnvPrefix("DMX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func applyLogLevel(cmd *cobra.Command, args []string) error {
	level := viper.GetString("log-level")
	if level == "" {
		return nil
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	logrus.SetLevel(parsed)
	return nil
}

func openStore() (*settings.Store, error) {
	registry, err := settings.NewRegistry(viper.GetString("settings-root"))
	if err != nil {
		return nil, err
	}
	return settings.NewStore(registry), nil
}

func printSuccess(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf(format, args...)))
}

func printField(cmd *cobra.Command, label string, value interface{}) {
	fmt.Fprintf(cmd.OutOrStdout(), "  %s %s\n", labelStyle.Render(label+":"), valueStyle.Render(fmt.Sprint(value)))
}
