package main

import (
	"fmt"

	"github.com/evict/passfs/passarg"
	"github.com/spf13/cobra"
)

func (a *app) newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse SPEC...",
		Short: "Validate passphrase arguments without reading them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for i, arg := range args {
				src, err := passarg.Parse(arg)
				if err != nil {
					return fmt.Errorf("argument %d: %w", i+1, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", src.Kind, redact(src))
			}
			return nil
		},
	}
}

// redact formats src with the literal password of pass: arguments hidden.
func redact(src passarg.Source) string {
	if src.Kind == passarg.KindPass {
		return "pass:********"
	}
	return src.String()
}
