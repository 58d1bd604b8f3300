package commands

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newExportCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export-report <file> <out.json>",
		Short: "Analyze an export and write the full report to a JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := opts.toolkit()
			if err != nil {
				return err
			}
			defer tk.logger.Sync() //nolint:errcheck

			report, err := tk.analyzeFile(args[0])
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := writeJSON(&buf, report); err != nil {
				return err
			}
			if err := writeFileAtomic(args[1], buf.Bytes()); err != nil {
				return err
			}
			tk.logger.Info("report written", zap.String("out", args[1]))
			fmt.Fprintln(cmd.OutOrStdout(), args[1])
			return nil
		},
	}
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}
