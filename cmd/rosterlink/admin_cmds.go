package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehr/rosterlink/internal/domain/roster"
)

func keyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the encryption key",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Create the encryption key file",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			if err := a.vault.GenerateKey(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Key written to %s. Keep a copy: files sealed with it cannot be read without it.\n", a.vault.KeyPath())
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "rotate",
		Short: "Replace the key and re-seal every encrypted working file",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			res, err := a.vault.RotateKey(a.workingFiles())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Key rotated. Re-sealed %d file(s), skipped %d.\n", len(res.Rotated), len(res.Skipped))
			return nil
		}),
	})

	return cmd
}

// fileArg returns the single optional file argument, defaulting to the
// matched partition.
func (a *app) fileArg(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return a.repo.Path(roster.PartitionMatched)
}

func encryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt [file]",
		Short: "Encrypt a file in place (default: the combined data)",
		Args:  cobra.MaximumNArgs(1),
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			path := a.fileArg(args)
			if err := a.vault.EncryptFile(path); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Encrypted %s\n", path)
			return nil
		}),
	}
}

func decryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt [file]",
		Short: "Decrypt a file in place (default: the combined data)",
		Args:  cobra.MaximumNArgs(1),
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			a.skipCheckpoint = true
			path := a.fileArg(args)
			if err := a.vault.DecryptFile(path); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Decrypted %s\n", path)
			return nil
		}),
	}
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage case-worker accounts",
	}

	addCmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			svc, repo, err := a.accounts(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			u, err := svc.Register(ctx, args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Created user %s\n", u.Username)
			return nil
		}),
	}
	addCmd.Flags().String("password", "", "Account password")
	cmd.AddCommand(addCmd)

	loginCmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Check a username and password",
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			password, _ := cmd.Flags().GetString("password")
			svc, repo, err := a.accounts(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			u, err := svc.Authenticate(ctx, args[0], password)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Welcome, %s\n", u.Username)
			return nil
		}),
	}
	loginCmd.Flags().String("password", "", "Account password")
	cmd.AddCommand(loginCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			svc, repo, err := a.accounts(ctx)
			if err != nil {
				return err
			}
			defer repo.Close()

			users, err := svc.List(ctx)
			if err != nil {
				return err
			}
			tw := newTable(a.out, "ID", "Username", "Created")
			for _, u := range users {
				tw.Append([]string{fmt.Sprint(u.ID), u.Username, u.CreatedAt.Local().Format(time.DateTime)})
			}
			tw.Render()
			return nil
		}),
	})

	return cmd
}
