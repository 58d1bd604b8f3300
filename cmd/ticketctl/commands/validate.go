package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-analytics/internal/analytics"
	"github.com/spec-kit/ticket-analytics/internal/domain"
)

// ValidationResult reports how an export maps onto the canonical schema.
type ValidationResult struct {
	File           string                        `json:"file"`
	Encoding       string                        `json:"encoding"`
	Rows           int                           `json:"rows"`
	Columns        map[string]string             `json:"columns"`
	MissingColumns []domain.MissingColumnWarning `json:"missing_columns"`
	Findings       map[string]analytics.Finding  `json:"findings"`
	Warnings       []string                      `json:"warnings"`
}

func newValidateCommand(opts *options) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Report column resolution, coercion warnings and data-quality findings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tk, err := opts.toolkit()
			if err != nil {
				return err
			}
			defer tk.logger.Sync() //nolint:errcheck

			result, err := tk.validate(args[0])
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if strict {
				return strictCheck(result)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "fail when a required column is missing")
	return cmd
}

func (tk *toolkit) validate(file string) (*ValidationResult, error) {
	_, rs, err := tk.load(file)
	if err != nil {
		return nil, err
	}
	result := &ValidationResult{
		File:           file,
		Encoding:       rs.Encoding(),
		Rows:           rs.Len(),
		Columns:        rs.Columns(),
		MissingColumns: rs.MissingColumns(),
		Findings:       tk.engine.Validate(rs),
		Warnings:       rs.Warnings(),
	}
	if result.MissingColumns == nil {
		result.MissingColumns = []domain.MissingColumnWarning{}
	}
	if result.Warnings == nil {
		result.Warnings = []string{}
	}
	return result, nil
}

func strictCheck(result *ValidationResult) error {
	var missing []string
	for _, m := range result.MissingColumns {
		if m.Required {
			missing = append(missing, m.Field)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing required columns: %s", result.File, strings.Join(missing, ", "))
	}
	return nil
}
