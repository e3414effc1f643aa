package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/energia/energia-dashboard/internal/broker"
	"github.com/energia/energia-dashboard/internal/config"
	"github.com/energia/energia-dashboard/internal/report"
)

func newReportCmd(connect connectFunc) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print fleet totals and the allocation of every matriz",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := load(cmd, connect)
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(r)
			}
			return printReport(cmd.OutOrStdout(), r)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full report as JSON")
	return cmd
}

func printReport(w io.Writer, r *report.Report) error {
	fmt.Fprintf(w, "Geração total:     %s kW\n", report.FormatKw(r.Totals.Generated))
	fmt.Fprintf(w, "Consumo total:     %s kW\n", report.FormatKw(r.Totals.Consumed))
	fmt.Fprintf(w, "Distribuído:       %s kW\n\n", report.FormatKw(r.Totals.Distributed))

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "Matriz", "Geração (kW)", "Uso próprio", "Filiais", "Disponível", "Participação")
	for _, s := range r.Generators {
		t.Row(
			strconv.FormatInt(s.Generator.ID, 10),
			s.Generator.Name,
			report.FormatKw(s.Generator.GeneratedKw.Float()),
			report.FormatPercent(s.OwnUsePercent),
			fmt.Sprintf("%d (%s)", s.DependentCount, report.FormatPercent(s.DependentPercent)),
			report.FormatPercent(s.AvailablePercent),
			report.FormatPercent(s.ShareOfTotal),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func newExportCmd(connect connectFunc) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the distribution report as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := load(cmd, connect)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				return report.WriteCSV(cmd.OutOrStdout(), *r)
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := report.WriteCSV(f, *r); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "wrote %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", report.Filename, `destination file, "-" for stdout`)
	return cmd
}

func newCheckCmd(connect connectFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "List matrizes whose own use plus filial shares exceed 100%",
		Long:  "check exits with status 1 when any matriz is over-allocated, so it can gate scripts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			r, err := load(cmd, connect)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(r.OverAllocated) == 0 {
				fmt.Fprintf(w, "ok: %d matrizes within capacity\n", len(r.Generators))
				return nil
			}
			for _, c := range r.OverAllocated {
				fmt.Fprintf(w, "matriz %d %q: uso próprio %s + filiais %s (disponível %s)\n",
					c.GeneratorID, c.GeneratorName,
					report.FormatPercent(c.OwnUsePercent),
					report.FormatPercent(c.DependentPercent),
					report.FormatPercent(c.AvailablePercent))
			}
			return errOverAllocated
		},
	}
}

// snapshot is the message the dashboard publishes when a report is archived.
type snapshot struct {
	RunID string `json:"run_id"`
	report.Report
}

func newWatchCmd() *cobra.Command {
	var brokerURL, topic string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow distribution snapshots published by the dashboard over MQTT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			w := cmd.OutOrStdout()
			return broker.Subscribe(ctx, brokerURL, config.MQTTClientID()+"-watch", topic, func(payload []byte) {
				if err := printSnapshot(w, payload); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "skipping message: %v\n", err)
				}
			})
		},
	}
	cmd.Flags().StringVar(&brokerURL, "broker", config.MQTTBroker(), "MQTT broker URL (MQTT_BROKER)")
	cmd.Flags().StringVar(&topic, "topic", config.MQTTTopic(), "distribution topic (MQTT_TOPIC)")
	return cmd
}

func printSnapshot(w io.Writer, payload []byte) error {
	var s snapshot
	if err := json.Unmarshal(payload, &s); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	_, err := fmt.Fprintf(w, "%s run %s: gerado %s kW, distribuído %s kW, %d acima de 100%%\n",
		s.GeneratedAt.Format("2006-01-02 15:04:05"), s.RunID,
		report.FormatKw(s.Totals.Generated),
		report.FormatKw(s.Totals.Distributed),
		len(s.OverAllocated))
	return err
}
