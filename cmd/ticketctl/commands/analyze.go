package commands

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/ticket-analytics/internal/analytics"
	"github.com/spec-kit/ticket-analytics/internal/domain"
	"github.com/spec-kit/ticket-analytics/internal/ingest"
)

// FileReport is the analysis of one export.
type FileReport struct {
	File     string           `json:"file"`
	Checksum string           `json:"checksum"`
	Report   analytics.Report `json:"report"`
}

func newAnalyzeCommand(opts *options) *cobra.Command {
	parallel := 4
	cmd := &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Analyze one or more exports and print the reports as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := opts.toolkit()
			if err != nil {
				return err
			}
			defer tk.logger.Sync() //nolint:errcheck

			reports, err := tk.analyzeAll(cmd.Context(), args, parallel)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), reports)
		},
	}
	cmd.Flags().IntVarP(&parallel, "parallel", "p", parallel, "exports analyzed concurrently")
	return cmd
}

// analyzeAll analyzes files concurrently. Results keep the order of files. The first failure
// cancels the remaining work.
func (tk *toolkit) analyzeAll(ctx context.Context, files []string, parallel int) ([]FileReport, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	reports := make([]FileReport, len(files))
	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			report, err := tk.analyzeFile(file)
			if err != nil {
				return err
			}
			reports[i] = *report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (tk *toolkit) analyzeFile(file string) (*FileReport, error) {
	start := time.Now()
	raw, rs, err := tk.load(file)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(raw)
	report := tk.engine.Report(rs)
	tk.logger.Debug("analyzed export",
		zap.String("file", file),
		zap.String("encoding", rs.Encoding()),
		zap.Int("tickets", rs.Len()),
		zap.Duration("elapsed", time.Since(start)))
	return &FileReport{File: file, Checksum: hex.EncodeToString(sum[:]), Report: report}, nil
}

func (tk *toolkit) load(file string) ([]byte, *domain.RecordSet, error) {
	raw, err := os.ReadFile(file)
	if err != nil {
		reason := ingest.ReasonUnreadableEncoding
		if errors.Is(err, fs.ErrNotExist) {
			reason = ingest.ReasonFileMissing
		}
		return nil, nil, &ingest.IngestionError{Path: file, Reason: reason, Err: err}
	}
	rs, err := tk.normalizer.Ingest(raw, file, tk.encoding)
	if err != nil {
		tk.logger.Warn("ingestion failed", zap.String("file", file), zap.Error(err))
		return nil, nil, err
	}
	for _, w := range rs.Warnings() {
		tk.logger.Debug("ingestion warning", zap.String("file", file), zap.String("warning", w))
	}
	return raw, rs, nil
}
