package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/talgya/radiowar/internal/client"
)

// Version is injected via ldflags at build time.
var Version = "dev"

// cli carries settings shared by every subcommand.
type cli struct {
	v       *viper.Viper
	cfgFile string
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}

	root := &cobra.Command{
		Use:   "radioctl",
		Short: "Observe and drive a radiowar server",
		Long: `radioctl talks to the radiowar HTTP API. Reads are public; station
captures, treaties and resets need the admin key.

Settings come from flags, RADIOCTL_* environment variables, or
~/.radioctl.yaml (api_url, admin_key).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.initConfig()
		},
	}

	root.PersistentFlags().StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.radioctl.yaml)")
	root.PersistentFlags().String("api-url", "http://localhost:8080", "radiowar API base URL")
	root.PersistentFlags().String("admin-key", "", "admin bearer token")
	root.PersistentFlags().Bool("json", false, "print raw JSON")
	_ = c.v.BindPFlag("api_url", root.PersistentFlags().Lookup("api-url"))
	_ = c.v.BindPFlag("admin_key", root.PersistentFlags().Lookup("admin-key"))
	_ = c.v.BindPFlag("json", root.PersistentFlags().Lookup("json"))

	root.AddCommand(
		c.statusCmd(),
		c.stationsCmd(),
		c.examineCmd(),
		c.factionsCmd(),
		c.alliancesCmd(),
		c.eventsCmd(),
		c.summaryCmd(),
		c.roundsCmd(),
		c.captureCmd(),
		c.treatyCmd(),
		c.resetCmd(),
		c.joinCmd(),
		c.leaveCmd(),
		c.pauseCmd(true),
		c.pauseCmd(false),
		versionCmd(),
	)
	return root
}

// initConfig reads the config file and environment.
func (c *cli) initConfig() error {
	if c.cfgFile != "" {
		c.v.SetConfigFile(c.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			c.v.AddConfigPath(home)
		}
		c.v.SetConfigName(".radioctl")
		c.v.SetConfigType("yaml")
	}

	c.v.SetEnvPrefix("RADIOCTL")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func (c *cli) client() *client.Client {
	return client.New(strings.TrimRight(c.v.GetString("api_url"), "/"), c.v.GetString("admin_key"))
}

// print writes v as indented JSON when --json is set, otherwise calls human.
func (c *cli) print(w io.Writer, v any, human func(io.Writer)) error {
	if c.v.GetBool("json") || human == nil {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	human(w)
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the radioctl version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "radioctl %s\n", Version)
		},
	}
}
