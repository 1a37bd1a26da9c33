package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	secretfuse "github.com/evict/passfs/fuse"
	"github.com/evict/passfs/passarg"
	"github.com/evict/passfs/secretmanager"
	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
	"github.com/spf13/cobra"
)

const defaultTokenArg = "env:OP_SERVICE_ACCOUNT_TOKEN"

type mountOptions struct {
	configPath string
	mountPoint string
	maxReads   int32
	debug      bool
	opAccount  string
	opToken    *passarg.Arg
}

func (a *app) newMountCmd() *cobra.Command {
	opts := &mountOptions{opToken: passarg.NewArg(defaultTokenArg)}

	cmd := &cobra.Command{
		Use:   "mount",
		Short: "Expose configured secrets as read-limited files on a FUSE mount",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runMount(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", a.env.Config, "Path to secrets configuration file")
	f.StringVar(&opts.mountPoint, "mount", a.env.MountPoint, "Mount point for secrets filesystem")
	f.Int32Var(&opts.maxReads, "max-reads", 0, "Maximum number of reads per secret (0 = unlimited)")
	f.BoolVar(&opts.debug, "debug", false, "Enable FUSE debug logging")
	f.StringVar(&opts.opAccount, "op-account", a.env.OPAccount, "1Password account for desktop app integration")
	f.Var(opts.opToken, "op-token", "Passphrase argument for the 1Password service account token")

	return cmd
}

func (a *app) runMount(cmd *cobra.Command, opts *mountOptions) error {
	cfgPath, err := resolveConfigPath(opts.configPath)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config from %s: %w", cfgPath, err)
	}

	account := opts.opAccount
	if account == "" {
		account = cfg.OnePassword.Account
	}
	token := opts.opToken.Source()
	if !cmd.Flags().Changed("op-token") && cfg.OnePassword.Token != "" {
		if token, err = passarg.Parse(cfg.OnePassword.Token); err != nil {
			return fmt.Errorf("onepassword.token: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pm := secretmanager.NewPassargManager(passarg.WithLogger(a.log))
	manager, err := secretmanager.Connect(ctx, pm, cfg.references(), secretmanager.OnePasswordAuth{
		Account: account,
		Token:   token,
		Version: version,
	})
	if err != nil {
		_ = pm.Close()
		return err
	}
	defer manager.Close()

	secrets := cfg.secretConfigs(opts.maxReads)
	root := secretfuse.NewSecretRoot(manager, secrets, opts.maxReads, a.log)
	if err := root.Prepare(ctx); err != nil {
		return err
	}

	if err := os.MkdirAll(opts.mountPoint, 0755); err != nil {
		return fmt.Errorf("creating mount point: %w", err)
	}

	zero := time.Duration(0)
	fsOpts := &fs.Options{
		MountOptions: fuse.MountOptions{
			Name:        "passfs",
			DirectMount: true,
			Debug:       opts.debug,
		},
		// Disable caching so read limits see every open
		AttrTimeout:     &zero,
		EntryTimeout:    &zero,
		NegativeTimeout: &zero,
	}

	server, err := fs.Mount(opts.mountPoint, root, fsOpts)
	if err != nil {
		return fmt.Errorf("mount failed: %w", err)
	}

	a.log.Info().Str("mount", opts.mountPoint).Str("provider", manager.Name()).Int("secrets", len(secrets)).Msg("secrets mounted")
	for _, s := range secrets {
		ev := a.log.Info().Str("reference", redactReference(s.Reference)).Bool("refresh", s.Refresh)
		if s.MaxReads > 0 {
			ev = ev.Int32("max_reads", s.MaxReads)
		}
		ev.Msg("configured secret")
	}

	symlinks, err := root.CreateSymlinks(opts.mountPoint)
	removeSymlinks := func() {
		for _, link := range symlinks {
			if err := os.Remove(link); err != nil {
				a.log.Warn().Err(err).Str("symlink", link).Msg("failed to remove symlink")
			}
		}
	}
	if err != nil {
		removeSymlinks()
		_ = server.Unmount()
		return fmt.Errorf("creating symlinks: %w", err)
	}
	for _, link := range symlinks {
		a.log.Info().Str("symlink", link).Msg("symlink created")
	}

	go func() {
		<-ctx.Done()
		a.log.Info().Msg("unmounting")

		removeSymlinks()

		// Try graceful unmount with timeout
		done := make(chan error, 1)
		go func() {
			done <- server.Unmount()
		}()

		select {
		case err := <-done:
			if err != nil {
				a.log.Error().Err(err).Msg("unmount failed")
			}
		case <-time.After(3 * time.Second):
			a.log.Warn().Str("mount", opts.mountPoint).
				Msg("unmount timed out: filesystem is busy, close any files or terminals using the mount and try again")
		}
	}()

	server.Wait()
	return nil
}

// redactReference hides literal passwords before a reference is logged.
func redactReference(ref string) string {
	if secretmanager.IsOnePasswordReference(ref) {
		return ref
	}
	src, err := passarg.Parse(ref)
	if err != nil {
		return "<invalid>"
	}
	return redact(src)
}
