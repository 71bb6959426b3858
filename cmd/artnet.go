package cmd

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/sardine-ai/dmx-artnet-checker/artnet"
	"github.com/sardine-ai/dmx-artnet-checker/client"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var artnetCmd = &cobra.Command{
	Use:   "artnet",
	Short: "Drive the Art-Net session of a running server",
}

var artnetStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the Art-Net session",
	Args:  cobra.NoArgs,
	RunE:  runArtnetStatus,
}

var artnetConnectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Open an Art-Net session; omitted flags keep the server's endpoint",
	Args:  cobra.NoArgs,
	RunE:  runArtnetConnect,
}

var artnetDisconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Close the Art-Net session",
	Args:  cobra.NoArgs,
	RunE:  runArtnetDisconnect,
}

var artnetChannelCmd = &cobra.Command{
	Use:   "channel CHANNEL VALUE",
	Short: "Set one channel (1-512) to VALUE (0-255)",
	Args:  cobra.ExactArgs(2),
	RunE:  runArtnetChannel,
}

var artnetSendCmd = &cobra.Command{
	Use:   "send VALUE...",
	Short: "Send VALUEs to channels 1..n",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runArtnetSend,
}

var (
	artnetIP       string
	artnetPort     int
	artnetUniverse int
)

func init() {
	artnetConnectCmd.Flags().StringVar(&artnetIP, "ip", "", "node or broadcast address")
	artnetConnectCmd.Flags().IntVar(&artnetPort, "port", 0, "UDP port")
	for _, c := range []*cobra.Command{artnetConnectCmd, artnetChannelCmd, artnetSendCmd} {
		c.Flags().IntVar(&artnetUniverse, "universe", 0, "15-bit port address")
	}

	artnetCmd.AddCommand(artnetStatusCmd)
	artnetCmd.AddCommand(artnetConnectCmd)
	artnetCmd.AddCommand(artnetDisconnectCmd)
	artnetCmd.AddCommand(artnetChannelCmd)
	artnetCmd.AddCommand(artnetSendCmd)
}

func newClient(cmd *cobra.Command) *client.Client {
	return client.NewClient(cmd.Context(), viper.GetString("server"), viper.GetString("api-key"), 0)
}

// universeFlag returns nil unless --universe was given.
func universeFlag(cmd *cobra.Command) *int {
	if !cmd.Flags().Changed("universe") {
		return nil
	}
	u := artnetUniverse
	return &u
}

func printStatus(cmd *cobra.Command, status artnet.Status) {
	state := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render("disconnected")
	if status.Connected {
		state = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("connected")
	}
	fmt.Fprintln(cmd.OutOrStdout(), titleStyle.Render("==> art-net"))
	printField(cmd, "state", state)
	printField(cmd, "address", status.Address)
	printField(cmd, "port", status.Port)
	printField(cmd, "universe", status.Universe)
}

func runArtnetStatus(cmd *cobra.Command, args []string) error {
	c := newClient(cmd)
	defer c.Close()
	status, err := c.Status(cmd.Context())
	if err != nil {
		return err
	}
	printStatus(cmd, status)
	return nil
}

func runArtnetConnect(cmd *cobra.Command, args []string) error {
	c := newClient(cmd)
	defer c.Close()
	status, err := c.Connect(cmd.Context(), artnetIP, artnetPort, universeFlag(cmd))
	if err != nil {
		return err
	}
	printStatus(cmd, status)
	return nil
}

func runArtnetDisconnect(cmd *cobra.Command, args []string) error {
	c := newClient(cmd)
	defer c.Close()
	if err := c.Disconnect(cmd.Context()); err != nil {
		return err
	}
	printSuccess(cmd, "[success] disconnected")
	return nil
}

func runArtnetChannel(cmd *cobra.Command, args []string) error {
	channel, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid channel %q", args[0])
	}
	value, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid value %q", args[1])
	}
	c := newClient(cmd)
	defer c.Close()
	if err := c.SetChannel(cmd.Context(), universeFlag(cmd), channel-1, value); err != nil {
		return err
	}
	printSuccess(cmd, "[success] channel %d set to %d", channel, value)
	return nil
}

func runArtnetSend(cmd *cobra.Command, args []string) error {
	values := make([]int, len(args))
	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid value %q", arg)
		}
		values[i] = v
	}
	c := newClient(cmd)
	defer c.Close()
	if err := c.Send(cmd.Context(), universeFlag(cmd), values); err != nil {
		return err
	}
	printSuccess(cmd, "[success] sent %d channels", len(values))
	return nil
}
