package main

import (
	"fmt"
	"marketplace/asset"
	"marketplace/util"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"
)

func keygenCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new keypair file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := solana.PrivateKeyFromSolanaKeygenFile(keypairPath); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to overwrite", keypairPath)
			}

			k, err := solana.NewRandomPrivateKey()
			if err != nil {
				return err
			}

			if err := writeKeypair(keypairPath, k); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\npubkey: %s\n", keypairPath, k.PublicKey())
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing keypair file")
	return cmd
}

func addressCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "address",
		Short: "Print the public key of the keypair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := addressArg(args, 0)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), addr)
			return nil
		},
	}
}

func airdropCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "airdrop <SOL> [address]",
		Short: "Request SOL from the faucet",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			lamports, ok := util.SOLToLamports(args[0])
			if !ok {
				return fmt.Errorf("invalid amount %q", args[0])
			}

			addr, err := addressArg(args, 1)
			if err != nil {
				return err
			}

			r, err := client().Airdrop(addr, lamports)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s SOL\n", r.SOL)
			return nil
		},
	}
}

func balanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [address]",
		Short: "Show the SOL balance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := addressArg(args, 0)
			if err != nil {
				return err
			}

			r, err := client().GetBalance(addr)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s SOL\n", r.SOL)
			return nil
		},
	}
}

func tokenBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token-balance <mint> [owner]",
		Short: "Show the units of a mint held by owner",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return err
			}

			owner, err := addressArg(args, 1)
			if err != nil {
				return err
			}

			n, err := client().GetTokenBalance(owner, mint)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

// mintFlags holds the flags shared by the mint commands.
type mintFlags struct {
	name, symbol, uri string
}

func (f *mintFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.name, "name", "", "asset name")
	cmd.Flags().StringVar(&f.symbol, "symbol", "", "asset symbol")
	cmd.Flags().StringVar(&f.uri, "uri", "", "off-chain metadata uri")
	_ = cmd.MarkFlagRequired("name")
}

func (f *mintFlags) data() asset.Data {
	return asset.Data{Name: f.name, Symbol: f.symbol, URI: f.uri}
}

func mintCollectionCmd() *cobra.Command {
	var f mintFlags

	cmd := &cobra.Command{
		Use:   "mint-collection",
		Short: "Create a collection asset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payer, err := signer()
			if err != nil {
				return err
			}

			mint, err := solana.NewRandomPrivateKey()
			if err != nil {
				return err
			}

			r, err := client().MintCollection(payer, mint, f.data())
			if err != nil {
				return err
			}
			return printJSON(cmd, r)
		},
	}

	f.register(cmd)
	return cmd
}

func mintNftCmd() *cobra.Command {
	var (
		f          mintFlags
		collection string
	)

	cmd := &cobra.Command{
		Use:   "mint-nft",
		Short: "Create an asset belonging to a collection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			coll, err := solana.PublicKeyFromBase58(collection)
			if err != nil {
				return fmt.Errorf("invalid collection: %w", err)
			}

			payer, err := signer()
			if err != nil {
				return err
			}

			mint, err := solana.NewRandomPrivateKey()
			if err != nil {
				return err
			}

			r, err := client().MintNft(payer, mint, f.data(), coll)
			if err != nil {
				return err
			}
			return printJSON(cmd, r)
		},
	}

	f.register(cmd)
	cmd.Flags().StringVar(&collection, "collection", "", "collection mint")
	_ = cmd.MarkFlagRequired("collection")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list <mint> <price SOL>",
		Short: "Offer an asset for sale",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return err
			}

			price, ok := util.SOLToLamports(args[1])
			if !ok {
				return fmt.Errorf("invalid price %q", args[1])
			}

			seller, err := signer()
			if err != nil {
				return err
			}

			r, err := client().List(seller, mint, price)
			if err != nil {
				return err
			}
			return printJSON(cmd, r)
		},
	}
}

func buyCmd() *cobra.Command {
	var seller, custody, maxPrice string

	cmd := &cobra.Command{
		Use:   "buy <mint>",
		Short: "Buy a listed asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return err
			}

			sellerKey, err := optionalKey(seller)
			if err != nil {
				return fmt.Errorf("invalid seller: %w", err)
			}
			custodyKey, err := optionalKey(custody)
			if err != nil {
				return fmt.Errorf("invalid custody: %w", err)
			}

			buyer, err := signer()
			if err != nil {
				return err
			}

			limit, err := priceLimit(mint, maxPrice)
			if err != nil {
				return err
			}

			r, err := client().Buy(buyer, mint, limit, sellerKey, custodyKey)
			if err != nil {
				return err
			}
			return printJSON(cmd, r)
		},
	}

	cmd.Flags().StringVar(&seller, "seller", "", "expected seller")
	cmd.Flags().StringVar(&custody, "custody", "", "expected custody token account")
	cmd.Flags().StringVar(&maxPrice, "max-price", "", "most SOL to pay, defaults to the current listing price")
	return cmd
}

// priceLimit parses the --max-price flag, or quotes the listing when unset.
func priceLimit(mint solana.PublicKey, maxPrice string) (uint64, error) {
	if maxPrice != "" {
		limit, ok := util.SOLToLamports(maxPrice)
		if !ok {
			return 0, fmt.Errorf("invalid max price %q", maxPrice)
		}
		return limit, nil
	}

	l, err := client().GetListing(mint)
	if err != nil {
		return 0, err
	}
	return l.Price, nil
}

func withdrawCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw <mint>",
		Short: "Cancel a listing and take the asset back",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return err
			}

			seller, err := signer()
			if err != nil {
				return err
			}

			r, err := client().Withdraw(seller, mint)
			if err != nil {
				return err
			}
			return printJSON(cmd, r)
		},
	}
}

func metadataCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metadata <mint>",
		Short: "Show asset metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return err
			}

			md, err := client().GetMetadata(mint)
			if err != nil {
				return err
			}
			return printJSON(cmd, md)
		},
	}
}

func listingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listing <mint>",
		Short: "Show the listing of an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mint, err := solana.PublicKeyFromBase58(args[0])
			if err != nil {
				return err
			}

			l, err := client().GetListing(mint)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "mint:    %s\nseller:  %s\nprice:   %s SOL\ncustody: %s\n",
				l.Mint, l.Seller, util.LamportsToSOL(l.Price), l.Custody)
			return nil
		},
	}
}

func listingsCmd() *cobra.Command {
	var (
		after string
		limit uint
	)

	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Page through active listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			afterKey, err := optionalKey(after)
			if err != nil {
				return fmt.Errorf("invalid cursor: %w", err)
			}

			page, err := client().GetListings(afterKey, limit)
			if err != nil {
				return err
			}

			for _, l := range page {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s SOL  seller %s\n", l.Mint, util.LamportsToSOL(l.Price), l.Seller)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&after, "after", "", "return listings after this mint")
	cmd.Flags().UintVar(&limit, "limit", 20, "page size")
	return cmd
}

func activityCmd() *cobra.Command {
	var (
		mint  string
		limit uint
	)

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent marketplace activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mintKey, err := optionalKey(mint)
			if err != nil {
				return fmt.Errorf("invalid mint: %w", err)
			}

			acts, err := client().GetActivity(mintKey, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd, acts)
		},
	}

	cmd.Flags().StringVar(&mint, "mint", "", "only show activity of this mint")
	cmd.Flags().UintVar(&limit, "limit", 20, "number of records")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show activity counts and sales volume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := client().GetStats()
			if err != nil {
				return err
			}

			for kind, n := range s.Counts {
				fmt.Fprintf(cmd.OutOrStdout(), "%-16s %d\n", kind, n)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "volume           %s SOL\n", util.LamportsToSOL(s.Volume))
			return nil
		},
	}
}
