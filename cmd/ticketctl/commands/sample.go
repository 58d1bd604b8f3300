package commands

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-analytics/internal/domain"
	"github.com/spec-kit/ticket-analytics/internal/ingest"
)

const sampleLayout = "2006-01-02 15:04"

var (
	sampleTechnicians = []string{"Ana Pérez", "Luis Gómez", "SANTIAGO HURTADO", "José Núñez", ""}
	sampleRequesters  = []string{"Dr. García", "Enfermería", "Urgencias", "Quirófano", "RRHH"}
	sampleCategories  = []string{"Hardware > Impresora", "Hardware > Computador", "Software > Aplicación", "Red > Conectividad", "Accesos", ""}
	samplePriorities  = []string{"Muy alta", "Alta", "Mediana", "Baja"}
	sampleOpen        = []string{"Nuevo", "En curso (asignada)", "En espera"}
	sampleResolved    = []string{"Resueltas", "Cerrado"}
	sampleTiers       = map[string]string{"Muy alta": "INC_ALTO", "Alta": "INC_ALTO", "Mediana": "INC_MEDIO", "Baja": "INC_BAJO"}
)

func newSampleCommand() *cobra.Command {
	var (
		rows  int
		seed  uint64
		start string
	)
	cmd := &cobra.Command{
		Use:   "generate-sample <out.csv>",
		Short: "Write a synthetic semicolon-delimited GLPI export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if rows < 0 {
				return fmt.Errorf("--rows must not be negative")
			}
			from, err := time.Parse(sampleLayout, start)
			if err != nil {
				return fmt.Errorf("--start must look like %q: %w", sampleLayout, err)
			}
			data, err := generateSample(rows, seed, from)
			if err != nil {
				return err
			}
			if err := writeFileAtomic(args[0], data); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), args[0])
			return nil
		},
	}
	cmd.Flags().IntVarP(&rows, "rows", "n", 50, "tickets to generate")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "random seed; the same seed gives the same file")
	cmd.Flags().StringVar(&start, "start", "2025-05-01 08:00", "opening date of the first ticket")
	return cmd
}

// sampleHeader is the first alias of every canonical field, i.e. the GLPI Spanish labels.
func sampleHeader() []string {
	aliases := ingest.DefaultAliases()
	header := make([]string, 0, len(domain.CanonicalFields))
	for _, field := range domain.CanonicalFields {
		header = append(header, aliases[field][0])
	}
	return header
}

func generateSample(rows int, seed uint64, from time.Time) ([]byte, error) {
	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
	pick := func(values []string) string { return values[rng.IntN(len(values))] }

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	if err := w.Write(sampleHeader()); err != nil {
		return nil, err
	}

	opened := from
	for i := 1; i <= rows; i++ {
		opened = opened.Add(time.Duration(1+rng.IntN(8)) * time.Hour)
		incident := rng.IntN(3) < 2
		ticketType := "Requerimiento"
		if incident {
			ticketType = "Incidencia"
		}
		category := pick(sampleCategories)
		priority := pick(samplePriorities)
		resolved := rng.IntN(4) < 3

		status, closed, breached, rating := pick(sampleOpen), "", "", ""
		if resolved {
			status = pick(sampleResolved)
			hours := 1 + rng.IntN(96)
			closed = opened.Add(time.Duration(hours) * time.Hour).Format(sampleLayout)
			breached = "No"
			if hours > 48 {
				breached = "Si"
			}
			if rng.IntN(2) == 0 {
				rating = strconv.Itoa(1 + rng.IntN(5))
			}
		}
		tier := ""
		if incident {
			tier = sampleTiers[priority]
		}
		assets := ""
		if strings.HasPrefix(category, "Hardware") && rng.IntN(3) > 0 {
			assets = fmt.Sprintf("EQ-%04d", rng.IntN(10000))
		}

		record := []string{
			strconv.Itoa(i),
			fmt.Sprintf("Ticket de prueba %d", i),
			ticketType,
			category,
			priority,
			status,
			opened.Format(sampleLayout),
			closed,
			breached,
			tier,
			pick(sampleTechnicians),
			pick(sampleRequesters),
			assets,
			rating,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
