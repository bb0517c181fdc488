package kv

import (
	"github.com/spf13/cobra"

	"github.com/rkv-io/rkv/cmd/util"
	"github.com/rkv-io/rkv/rpc/client"
)

var (
	rpcClient *client.Client

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:               "kv",
		Short:             "Perform key-value store operations",
		PersistentPreRunE: setupKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitClientConfig)

	// Add common client flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(replCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the client connection
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()

	connector, err := util.GetClientConnector()
	if err != nil {
		return err
	}

	rpcClient, err = client.Connect(*config, connector)
	return err
}
