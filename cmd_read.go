package main

import (
	"fmt"

	"github.com/evict/passfs/passarg"
	"github.com/spf13/cobra"
)

func (a *app) newReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read SPEC...",
		Short: "Read one passphrase per argument and print them, one per line",
		Long: `read resolves each argument in order with a single reader, so that
"passfs read file:p.txt file:p.txt" prints the first two lines of p.txt.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			r := passarg.NewReader(
				passarg.WithLogger(a.log),
				passarg.WithStdin(cmd.InOrStdin()),
			)
			defer func() {
				if cerr := r.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}()

			for i, arg := range args {
				src, err := passarg.Parse(arg)
				if err != nil {
					return fmt.Errorf("argument %d: %w", i+1, err)
				}
				pass, err := r.Resolve(src)
				if err != nil {
					return fmt.Errorf("argument %d (%s): %w", i+1, redact(src), err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), pass)
			}
			return nil
		},
	}
}
