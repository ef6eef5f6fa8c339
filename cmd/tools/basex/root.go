package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"urlshortener.local/internal/app/shortlink/basex"
)

type options struct {
	alphabet string
	exclude  string
	format   string
}

func (o *options) pool() (*basex.Pool, error) {
	return basex.BuildPool(o.alphabet, o.exclude)
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "basex",
		Short: "Inspect short URL tokens offline",
		Long: `basex converts record ids to short URL tokens and back, using the same symbol
pool as the api server. Pass the server's ALPHABET and ALPHABET_EXCLUDE values
via --alphabet and --exclude when they differ from the defaults.

Examples:
  basex encode 1 61 3844
  basex decode b 9a
  basex --exclude "" pool`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.alphabet, "alphabet", basex.AlphaNumeric, "Symbol pool in digit order")
	root.PersistentFlags().StringVar(&opts.exclude, "exclude", basex.Ambiguous, "Symbols removed from the pool")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "text", "Output format: text|json")

	root.AddCommand(newEncodeCmd(opts), newDecodeCmd(opts), newPoolCmd(opts))
	return root
}

type result struct {
	ID    uint64 `json:"id"`
	Token string `json:"token"`
}

func newEncodeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "encode <id>...",
		Short: "Print the token of each id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.pool()
			if err != nil {
				return err
			}
			results := make([]result, 0, len(args))
			for _, arg := range args {
				id, err := basex.ParseValue(arg)
				if err != nil {
					return fmt.Errorf("id %q: %w", arg, err)
				}
				token, err := basex.Encode(id, p)
				if err != nil {
					return err
				}
				results = append(results, result{ID: id, Token: token})
			}
			return printResults(cmd.OutOrStdout(), opts.format, results)
		},
	}
}

func newDecodeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <token>...",
		Short: "Print the id each token names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.pool()
			if err != nil {
				return err
			}
			results := make([]result, 0, len(args))
			for _, token := range args {
				id, err := basex.Decode(token, p)
				if err != nil {
					return fmt.Errorf("token %q: %w", token, err)
				}
				if !basex.Canonical(token, p) {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: %q has leading %q symbols; the server answers 404 for it\n", token, string(p.Symbol(0)))
				}
				results = append(results, result{ID: id, Token: token})
			}
			return printResults(cmd.OutOrStdout(), opts.format, results)
		},
	}
}

func newPoolCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pool",
		Short: "Print the effective symbol pool and its radix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.pool()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if opts.format == "json" {
				return json.NewEncoder(out).Encode(map[string]any{"symbols": p.String(), "radix": p.Len()})
			}
			_, err = fmt.Fprintf(out, "%s\t%d\n", p, p.Len())
			return err
		},
	}
}

func printResults(w io.Writer, format string, results []result) error {
	switch format {
	case "json":
		return json.NewEncoder(w).Encode(results)
	case "text":
		for _, r := range results {
			if _, err := fmt.Fprintf(w, "%d\t%s\n", r.ID, r.Token); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
}
