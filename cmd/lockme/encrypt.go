package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/lockme-app/lockme/internal/batch"
	"github.com/lockme-app/lockme/internal/strength"
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt <file>...",
	Short: "Encrypt files into .lockme containers",
	Long: `Encrypt turns each file into a passphrase-protected .lockme
container next to it or in --out-dir. Files are processed
independently: one unreadable file never aborts the rest.

There is no passphrase recovery. A lost passphrase means the
container contents are gone.`,
	Example: `  lockme encrypt report.pdf
  lockme encrypt *.jpg --out-dir ./sealed`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEncrypt,
}

var (
	encryptOutDir     string
	encryptPassphrase string
)

func init() {
	rootCmd.AddCommand(encryptCmd)

	encryptCmd.Flags().StringVarP(&encryptOutDir, "out-dir", "o", "",
		"Output directory (default: alongside sources)")
	encryptCmd.Flags().StringVarP(&encryptPassphrase, "passphrase", "p", "",
		"Passphrase (will prompt if not provided)")
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	passphrase := encryptPassphrase
	if passphrase == "" {
		var err error
		passphrase, err = promptPassphraseConfirm()
		if err != nil {
			return fmt.Errorf("read passphrase: %w", err)
		}
	}

	// Strength advice is informational only; encryption proceeds
	// regardless.
	if advice, ok := app.Advise(passphrase); ok {
		if advice.Score <= strength.ScoreWeak && !jsonOutput {
			printWarning("Passphrase strength: %s", advice.Label)
			if advice.Warning != "" {
				printWarning("  %s", advice.Warning)
			}
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	eventsCh, err := app.EncryptFiles(ctx, args, encryptOutDir, passphrase)
	if err != nil {
		return err
	}

	return consumeBatch(eventsCh)
}

// signalContext returns a context cancelled by Ctrl-C. Cancellation
// is cooperative: in-flight items stop at their next chunk boundary.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		printWarning("\nInterrupted, cancelling...")
		cancel()
	}()

	return ctx, cancel
}

// consumeBatch drains the event stream and prints the outcome of
// every item. Returns an error if any item failed.
func consumeBatch(eventsCh <-chan batch.Event) error {
	var succeeded, failed, cancelled int
	var jsonEvents []map[string]interface{}

	for event := range eventsCh {
		if jsonOutput {
			if event.Terminal() {
				entry := map[string]interface{}{
					"item_id":   event.ItemID,
					"type":      string(event.Type),
					"timestamp": event.Timestamp,
				}
				if event.OutputPath != "" {
					entry["output"] = event.OutputPath
				}
				if event.Err != nil {
					entry["error"] = event.Err.Error()
					entry["code"] = event.ErrCode
				}
				jsonEvents = append(jsonEvents, entry)
			}
		}

		switch event.Type {
		case batch.EventItemSucceeded:
			succeeded++
			if !jsonOutput {
				printSuccess("✓ %s -> %s", event.ItemID, event.OutputPath)
			}

		case batch.EventItemFailed:
			failed++
			if !jsonOutput {
				printError("✗ %s: %v", event.ItemID, event.Err)
			}

		case batch.EventItemCancelled:
			cancelled++
			if !jsonOutput {
				printWarning("- %s: cancelled", event.ItemID)
			}
		}
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"succeeded": succeeded,
			"failed":    failed,
			"cancelled": cancelled,
			"items":     jsonEvents,
		})
	} else {
		printInfo("Done: %d succeeded, %d failed, %d cancelled",
			succeeded, failed, cancelled)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d items failed", failed, succeeded+failed+cancelled)
	}
	return nil
}
