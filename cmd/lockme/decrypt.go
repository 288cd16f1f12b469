package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var decryptCmd = &cobra.Command{
	Use:   "decrypt <file.lockme>...",
	Short: "Decrypt .lockme containers",
	Long: `Decrypt restores the original file from each container, written
under its original filename in --out-dir. A wrong passphrase and a
corrupted container are deliberately indistinguishable.`,
	Example: `  lockme decrypt report.pdf.lockme
  lockme decrypt sealed/*.lockme --out-dir ./restored`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDecrypt,
}

var (
	decryptOutDir     string
	decryptPassphrase string
)

func init() {
	rootCmd.AddCommand(decryptCmd)

	decryptCmd.Flags().StringVarP(&decryptOutDir, "out-dir", "o", "",
		"Output directory (default: current directory)")
	decryptCmd.Flags().StringVarP(&decryptPassphrase, "passphrase", "p", "",
		"Passphrase (will prompt if not provided)")
}

func runDecrypt(cmd *cobra.Command, args []string) error {
	passphrase := decryptPassphrase
	if passphrase == "" {
		var err error
		passphrase, err = promptPassphrase("Enter passphrase: ")
		if err != nil {
			return fmt.Errorf("read passphrase: %w", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	eventsCh, err := app.DecryptFiles(ctx, args, decryptOutDir, passphrase)
	if err != nil {
		return err
	}

	return consumeBatch(eventsCh)
}
