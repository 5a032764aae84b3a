package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/MrEthical07/panelGate/password"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Hash a password read from stdin with argon2id",
		Long: `Read one password line from stdin and print its argon2id PHC string.
Used to seed users for the demo auth API.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHashPassword(cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
}

func runHashPassword(in io.Reader, out io.Writer) error {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return errors.Wrap(err, "error reading password")
	}
	pw := strings.TrimRight(line, "\r\n")

	hasher, err := password.NewHasher(password.DefaultConfig())
	if err != nil {
		return errors.Wrap(err, "error configuring hasher")
	}
	encoded, err := hasher.Hash(pw)
	if err != nil {
		return errors.Wrap(err, "error hashing password")
	}
	fmt.Fprintln(out, encoded)
	return nil
}
