// Command marketctl is a command line client of the marketplace JSON-RPC server.
package main

import (
	"fmt"
	"marketplace/rpc"
	"os"
	"path/filepath"

	"github.com/gagliardetto/solana-go"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	serverURL   string
	keypairPath string
)

func defaultKeypair() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "id.json"
	}
	return filepath.Join(home, ".config", "marketctl", "id.json")
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "marketctl",
		Short:         "Marketplace client",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&serverURL, "url", "u", "http://127.0.0.1:8899", "JSON-RPC server url")
	root.PersistentFlags().StringVarP(&keypairPath, "keypair", "k", defaultKeypair(), "signer keypair file")

	root.AddCommand(
		keygenCmd(),
		addressCmd(),
		airdropCmd(),
		balanceCmd(),
		tokenBalanceCmd(),
		mintCollectionCmd(),
		mintNftCmd(),
		listCmd(),
		buyCmd(),
		withdrawCmd(),
		metadataCmd(),
		listingCmd(),
		listingsCmd(),
		activityCmd(),
		statsCmd(),
	)

	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func client() *rpc.Client {
	return rpc.NewClient(serverURL)
}

func signer() (solana.PrivateKey, error) {
	k, err := solana.PrivateKeyFromSolanaKeygenFile(keypairPath)
	if err != nil {
		return nil, fmt.Errorf("load keypair %s: %w", keypairPath, err)
	}
	return k, nil
}

// writeKeypair stores k in the solana-keygen JSON array format.
func writeKeypair(path string, k solana.PrivateKey) error {
	ints := make([]int, len(k))
	for i, b := range k {
		ints[i] = int(b)
	}

	data, err := json.Marshal(ints)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// addressArg returns args[i] as a key, or the keypair's public key when absent.
func addressArg(args []string, i int) (solana.PublicKey, error) {
	if len(args) > i {
		return solana.PublicKeyFromBase58(args[i])
	}

	k, err := signer()
	if err != nil {
		return solana.PublicKey{}, err
	}
	return k.PublicKey(), nil
}

func optionalKey(s string) (*solana.PublicKey, error) {
	if s == "" {
		return nil, nil
	}

	k, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
