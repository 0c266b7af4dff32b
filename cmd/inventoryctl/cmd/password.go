package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/upb/catalog-inventory/internal/auth"
	"golang.org/x/crypto/bcrypt"
)

func newHashPasswordCmd() *cobra.Command {
	var (
		password string
		stdin    bool
		cost     int
	)

	cmd := &cobra.Command{
		Use:   "hash-password",
		Short: "Print the bcrypt hash of a password",
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := resolvePassword(cmd.InOrStdin(), password, stdin)
			if err != nil {
				return err
			}

			hash, err := auth.HashPassword(pw, cost)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password to hash (use --stdin to avoid shell history)")
	cmd.Flags().BoolVar(&stdin, "stdin", false, "Read the password from stdin")
	cmd.Flags().IntVar(&cost, "cost", bcrypt.DefaultCost, "bcrypt cost")
	return cmd
}

// resolvePassword returns the flag value, or the first line of in when
// fromStdin is set
func resolvePassword(in io.Reader, flagValue string, fromStdin bool) (string, error) {
	password := flagValue
	if fromStdin {
		scanner := bufio.NewScanner(in)
		if scanner.Scan() {
			password = strings.TrimRight(scanner.Text(), "\r")
		}
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
	}

	if password == "" {
		return "", fmt.Errorf("password is required (use --password or --stdin)")
	}
	return password, nil
}
