package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-scraper/internal/export"
	"github.com/sells-group/lead-scraper/internal/model"
)

var (
	scrapeJob    string
	scrapeOut    string
	scrapeFormat string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one scraping job from a YAML file and write the results",
	Example: `  lead-scraper scrape --job job.yaml --out leads.csv
  lead-scraper scrape --job job.yaml --out leads.dat --format json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := loadJob(scrapeJob)
		if err != nil {
			return err
		}
		format, err := outputFormat(scrapeOut, scrapeFormat)
		if err != nil {
			return err
		}
		if spec.BackendToken == "" {
			if err := cfg.Validate("scrape"); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env := initApp(cfg)
		defer env.Close(cfg.Server.ShutdownTimeout())

		return runScrape(ctx, env, spec, scrapeOut, format)
	},
}

// loadJob reads a job specification. Missing fields take the defaults of
// the job kind, and a missing max_records means 100.
func loadJob(path string) (model.JobSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.JobSpec{}, eris.Wrapf(err, "scrape: read job %s", path)
	}
	var spec model.JobSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return model.JobSpec{}, eris.Wrapf(err, "scrape: parse job %s", path)
	}

	if spec.Kind == "" {
		switch {
		case spec.Contacts != nil && spec.Places != nil:
			spec.Kind = model.JobKindCombined
		case spec.Places != nil:
			spec.Kind = model.JobKindPlaces
		default:
			spec.Kind = model.JobKindContacts
		}
	}
	if len(spec.Fields) == 0 {
		if spec.Kind == model.JobKindPlaces {
			spec.Fields = append([]model.Field(nil), model.DefaultPlacesFields...)
		} else {
			spec.Fields = append([]model.Field(nil), model.DefaultContactFields...)
		}
	}
	if spec.MaxRecords == 0 {
		spec.MaxRecords = 100
	}
	return spec, nil
}

// outputFormat picks the explicit format, or infers it from the file
// extension.
func outputFormat(out, explicit string) (export.Format, error) {
	if explicit != "" {
		return export.ParseFormat(explicit)
	}
	ext := strings.TrimPrefix(filepath.Ext(out), ".")
	if ext == "" {
		return export.FormatCSV, nil
	}
	return export.ParseFormat(ext)
}

func runScrape(ctx context.Context, env *appEnv, spec model.JobSpec, out string, format export.Format) error {
	t, err := env.Orchestrator.Submit(ctx, spec)
	if err != nil {
		return eris.Wrap(err, "scrape: submit")
	}
	log := zap.L().With(zap.String("task_id", t.ID))
	log.Info("job started", zap.String("kind", string(spec.Kind)), zap.String("message", t.Message))

	t, err = env.Orchestrator.Wait(ctx, t.ID)
	if err != nil {
		return err
	}
	if t.Status == model.TaskStatusFailed {
		return eris.Errorf("scrape: job failed: %s", t.Message)
	}
	log.Info("job finished", zap.Int("records", t.TotalCount), zap.String("message", t.Message))

	f, err := os.Create(out)
	if err != nil {
		return eris.Wrapf(err, "scrape: create %s", out)
	}
	if err := export.Write(f, format, t.Fields, t.Records); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "scrape: close %s", out)
	}
	log.Info("results written", zap.String("path", out), zap.String("format", string(format)))
	return nil
}

func init() {
	scrapeCmd.Flags().StringVar(&scrapeJob, "job", "", "path to the job YAML file")
	scrapeCmd.Flags().StringVar(&scrapeOut, "out", "leads.csv", "output file")
	scrapeCmd.Flags().StringVar(&scrapeFormat, "format", "", "output format: csv, json or xlsx (default from --out extension)")
	_ = scrapeCmd.MarkFlagRequired("job")
	rootCmd.AddCommand(scrapeCmd)
}
