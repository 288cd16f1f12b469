package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lockme-app/lockme/internal/container"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file.lockme>",
	Short: "Show container metadata without decrypting",
	Long: `Inspect prints a container's public header: format version, key
derivation parameters, original filename and size, and chunk layout.
No passphrase is needed; nothing is decrypted.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open container: %w", err)
	}
	defer f.Close()

	header, _, err := container.ReadHeader(f)
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"version":        header.Version,
			"kdf_algorithm":  "argon2id",
			"kdf_time_cost":  header.KDF.TimeCost,
			"kdf_memory_kib": header.KDF.MemoryKiB,
			"kdf_threads":    header.KDF.Threads,
			"original_name":  header.OriginalName,
			"original_size":  header.OriginalSize,
			"chunk_size":     header.ChunkSize,
			"chunks":         header.Chunks(),
		})
		return nil
	}

	fmt.Printf("Container:      %s\n", args[0])
	fmt.Printf("Format version: %d\n", header.Version)
	fmt.Printf("KDF:            argon2id (t=%d, m=%d KiB, p=%d)\n",
		header.KDF.TimeCost, header.KDF.MemoryKiB, header.KDF.Threads)
	fmt.Printf("Original name:  %s\n", header.OriginalName)
	fmt.Printf("Original size:  %s (%d bytes)\n",
		formatBytes(header.OriginalSize), header.OriginalSize)
	fmt.Printf("Chunk size:     %s\n", formatBytes(uint64(header.ChunkSize)))
	fmt.Printf("Chunks:         %d\n", header.Chunks())

	return nil
}
