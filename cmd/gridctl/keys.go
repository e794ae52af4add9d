package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"gridlink.unit/gridlink/internal/identity"
)

func (a *app) genkeyCommand() *cobra.Command {
	var out string
	var force bool
	cmd := &cobra.Command{
		Use:   "genkey",
		Short: "Generate a new 2048-bit RSA unit key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			if out == "" {
				out = cfg.KeyFile
			}
			if _, err := os.Stat(out); err == nil && !force {
				return fmt.Errorf("%s already exists, use --force to replace it", out)
			} else if err != nil && !errors.Is(err, os.ErrNotExist) {
				return err
			}

			key, err := identity.Generate(nil)
			if err != nil {
				return err
			}
			keys, err := identity.FromPEM(key.PrivateKeyPEM, identity.WithTextForm(cfg.TextForm()))
			if err != nil {
				return err
			}
			if err := identity.WritePrivateKey(out, key.PrivateKeyPEM); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\nidentity %s\n", out, keys.Identity(cfg.Name))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Where to write the key (defaults to key_file)")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing key")
	return cmd
}

func (a *app) identityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "identity",
		Short: "Print the unit identity and public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]string{
				"name":        c.Name(),
				"identity":    c.Identity(),
				"fingerprint": c.Fingerprint(),
				"public_key":  c.PublicKeyPEM(),
			})
		},
	}
}

func (a *app) verifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <payload> <signature>",
		Short: "Check a base64 signature against this unit's key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.config()
			if err != nil {
				return err
			}
			keys, err := identity.Load(cfg.KeyFile, identity.WithTextForm(cfg.TextForm()))
			if err != nil {
				return fmt.Errorf("load key %s: %w", cfg.KeyFile, err)
			}
			if err := keys.Verify([]byte(args[0]), args[1]); err != nil {
				return fmt.Errorf("signature does not verify: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
