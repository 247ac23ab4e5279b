package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/chittyos/registry-sync/pkg/client"
)

var (
	cfgFile      string
	outputFormat string
	registryURL  string
	apiClient    *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "registry-sync",
	Short: "Sync Cloudflare resources into the ChittyOS registry",
	Long: `registry-sync discovers Cloudflare resources (domains, workers, pages,
R2 buckets, KV namespaces, durable objects) and mirrors them into the
resource registry, either as one-shot full syncs or as a long-running
webhook listener reacting to change events.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Only the resource commands talk to the registry directly; the
		// rest either run the sync pipeline from env config or read
		// local state.
		if cmd.Parent() != nil && cmd.Parent().Name() == "resource" {
			return initClient()
		}
		return nil
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.registry-sync/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&registryURL, "registry", "", "registry URL (overrides config)")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("registry_url", rootCmd.PersistentFlags().Lookup("registry"))

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newSyncCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newResourceCmd())
	rootCmd.AddCommand(newSnapshotCmd())
	rootCmd.AddCommand(newVersionCmd())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return
		}
		configDir := home + "/.registry-sync"
		_ = os.MkdirAll(configDir, 0700)
		viper.AddConfigPath(configDir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("REGISTRY_SYNC")
	viper.AutomaticEnv()

	viper.SetDefault("registry_url", "https://chitty.cc/registry")
	viper.SetDefault("output", "table")

	_ = viper.ReadInConfig()
}

func initClient() error {
	url := viper.GetString("registry_url")
	if registryURL != "" {
		url = registryURL
	}
	apiKey := viper.GetString("api_key")
	if apiKey == "" {
		apiKey = os.Getenv("REGISTRY_API_KEY")
	}

	apiClient = client.NewClient(client.Config{
		BaseURL: url,
		APIKey:  apiKey,
	})
	return nil
}

func getOutputFormat() string {
	if outputFormat != "" && outputFormat != "table" {
		return outputFormat
	}
	return viper.GetString("output")
}
