package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"liteconvert/contracts"
	"liteconvert/files_manager"
	"liteconvert/settings"
	"liteconvert/worker"
)

func main() {
	st := settings.Load()

	outputDir := flag.String("output", st.LastOutputDir, "Output directory for converted files")
	modeLabel := flag.String("mode", st.LastMode, `Conversion mode, e.g. "HEIC → JPG" or "PDF → PNG"`)
	pattern := flag.String("pattern", st.NamingPattern, "Naming pattern ({name} {ext} {mode} {index} {page})")
	policyLabel := flag.String("policy", st.OverwritePolicy, "Collision policy: Skip, Auto-rename or Overwrite")
	quality := flag.Int("quality", st.Quality, "JPEG quality (1-100)")
	dpi := flag.Int("dpi", st.DPI, "Rasterization DPI for PDF → image modes")
	pageRange := flag.String("pages", st.PageRange, `Page range for PDF → image modes, e.g. "1-3,5"`)
	pageSizeLabel := flag.String("page-size", st.PageSize, "PDF page size: Auto, A4 or Letter")
	fitLabel := flag.String("fit", st.FitMode, "Image placement on fixed pages: Fit or Fill")
	margins := flag.Int("margins", st.MarginsMM, "Page margins in mm for image → PDF modes")
	keepOrientation := flag.Bool("exif-orientation", st.PreserveOrientation, "Apply EXIF orientation to pixel data")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(zerolog.InfoLevel).
		With().Timestamp().Logger()
	if *verbose {
		logger = logger.Level(zerolog.DebugLevel)
	}

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: liteconvert [flags] <files or directories>")
		flag.PrintDefaults()
		os.Exit(2)
	}
	if *outputDir == "" {
		logger.Fatal().Msg("output directory required (-output)")
	}

	mode, err := contracts.ParseMode(*modeLabel)
	if err != nil {
		logger.Fatal().Err(err).Msg("bad mode")
	}
	policy, err := contracts.ParseCollisionPolicy(*policyLabel)
	if err != nil {
		logger.Fatal().Err(err).Msg("bad collision policy")
	}
	pageSize, err := contracts.ParsePageSize(*pageSizeLabel)
	if err != nil {
		logger.Fatal().Err(err).Msg("bad page size")
	}
	fit, err := contracts.ParseFitMode(*fitLabel)
	if err != nil {
		logger.Fatal().Err(err).Msg("bad fit mode")
	}

	inputs, err := collectInputs(flag.Args())
	if err != nil {
		logger.Fatal().Err(err).Msg("collecting inputs")
	}
	if len(inputs) == 0 {
		logger.Fatal().Msg("no supported input files found")
	}

	// Configuration errors abort before any job starts.
	if err := files_manager.EnsureWritableDir(*outputDir); err != nil {
		logger.Fatal().Err(err).Msg("output directory not usable")
	}

	jobs := make([]contracts.JobSpec, 0, len(inputs))
	for _, input := range inputs {
		jobs = append(jobs, contracts.JobSpec{
			InputPath:           input,
			Mode:                mode,
			OutputDir:           *outputDir,
			NamingPattern:       *pattern,
			Policy:              policy,
			PreserveOrientation: *keepOrientation,
			Quality:             *quality,
			DPI:                 *dpi,
			PageRange:           *pageRange,
			PageSize:            pageSize,
			Fit:                 fit,
			MarginsMM:           *margins,
		})
	}

	w := worker.New(jobs, worker.WithLogger(logger))
	go w.Run()

	summary := drainEvents(w, jobs, logger)

	st.LastOutputDir = *outputDir
	st.LastMode = mode.Label()
	st.NamingPattern = *pattern
	st.OverwritePolicy = policy.String()
	st.Quality = *quality
	st.DPI = *dpi
	st.PageRange = *pageRange
	st.PageSize = pageSize.String()
	st.FitMode = fit.String()
	st.MarginsMM = *margins
	st.PreserveOrientation = *keepOrientation
	if err := st.Save(); err != nil {
		logger.Debug().Err(err).Msg("settings not saved")
	}

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func collectInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			found, err := files_manager.ScanDir(arg)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, found...)
			continue
		}
		if files_manager.IsSupported(arg) {
			inputs = append(inputs, arg)
		}
	}
	return files_manager.Dedupe(inputs), nil
}

func drainEvents(w *worker.Worker, jobs []contracts.JobSpec, logger zerolog.Logger) contracts.WorkerSummary {
	var summary contracts.WorkerSummary
	for ev := range w.Events() {
		switch e := ev.(type) {
		case worker.Status:
			logger.Info().Msg(e.Text)
		case worker.ItemProgress:
			logger.Debug().Int("job", e.Index).Float64("progress", e.Fraction).Send()
		case worker.TotalProgress:
			logger.Debug().Float64("total_progress", e.Fraction).Send()
		case worker.ItemDone:
			name := filepath.Base(jobs[e.Index].InputPath)
			if e.Result.Success {
				fmt.Printf("OK      %-40s -> %d file(s)\n", name, len(e.Result.Outputs))
			} else {
				fmt.Printf("FAILED  %-40s\n", name)
				for _, msg := range e.Result.Errors {
					fmt.Printf("        %s\n", msg)
				}
			}
		case worker.ItemError:
			fmt.Printf("ERROR   %-40s %s\n", filepath.Base(jobs[e.Index].InputPath), e.Message)
		case worker.Done:
			summary = e.Summary
			fmt.Printf("\n%d total, %d converted, %d failed in %s\n",
				summary.Total, summary.OK, summary.Failed, summary.Elapsed.Round(time.Millisecond))
		}
	}
	return summary
}
