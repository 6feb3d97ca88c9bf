package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jonathan/cv-tailor/internal/artifact"
	"github.com/jonathan/cv-tailor/internal/config"
	"github.com/jonathan/cv-tailor/internal/fetch"
	"github.com/jonathan/cv-tailor/internal/pipeline"
	"github.com/jonathan/cv-tailor/internal/workflows"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Run the full tailoring pipeline end-to-end",
	Long: `Runs the complete pipeline: CV structuring -> validation -> job analysis ->
company research -> voice extraction -> skill gap -> matching -> bullet
rewriting -> resume generation -> cover letter -> cold email -> company briefing.

Outputs are written as separate files into the output directory.`,
	RunE: runPipelineCmd,
}

var (
	runResume     string
	runJob        string
	runJobURL     string
	runCompany    string
	runCompanyURL string
	runOutDir     string
	runUseBrowser bool
)

func init() {
	runCommand.Flags().StringVarP(&runResume, "resume", "r", "", "Path to resume text file (required)")
	runCommand.Flags().StringVarP(&runJob, "job", "j", "", "Path to job posting text file (mutually exclusive with --job-url)")
	runCommand.Flags().StringVar(&runJobURL, "job-url", "", "URL to fetch job posting from (mutually exclusive with --job)")
	runCommand.Flags().StringVarP(&runCompany, "company", "c", "", "Company name (optional, enables research)")
	runCommand.Flags().StringVar(&runCompanyURL, "company-url", "", "Company website URL (optional)")
	runCommand.Flags().StringVarP(&runOutDir, "out", "o", "out", "Output directory")
	runCommand.Flags().BoolVar(&runUseBrowser, "use-browser", true, "Use headless browser for JavaScript-rendered job pages")

	_ = runCommand.MarkFlagRequired("resume")
	rootCmd.AddCommand(runCommand)
}

func runPipelineCmd(_ *cobra.Command, _ []string) error {
	ctx := context.Background()

	if (runJob == "") == (runJobURL == "") {
		return fmt.Errorf("exactly one of --job or --job-url is required")
	}

	settings, err := config.Load()
	if err != nil {
		return err
	}

	resumeText, err := os.ReadFile(runResume)
	if err != nil {
		return fmt.Errorf("failed to read resume file: %w", err)
	}

	var jobText string
	if runJob != "" {
		data, err := os.ReadFile(runJob)
		if err != nil {
			return fmt.Errorf("failed to read job file: %w", err)
		}
		jobText = string(data)
	} else {
		opts := fetch.DefaultOptions()
		opts.UseBrowser = runUseBrowser
		fmt.Printf("Fetching job posting from %s\n", runJobURL)
		jobText, err = fetch.JobText(ctx, runJobURL, opts)
		if err != nil {
			return fmt.Errorf("failed to fetch job posting: %w", err)
		}
	}

	seed := artifact.Artifact{
		"raw_resume_text": string(resumeText),
		"job_text":        jobText,
	}
	if runCompany != "" {
		seed["company_name"] = runCompany
	}
	if runCompanyURL != "" {
		seed["company_url"] = runCompanyURL
	}

	deps := buildDeps(settings)
	stages := workflows.SingleShot(deps)

	fmt.Printf("Running %d stages...\n", len(stages))
	run := pipeline.Execute(ctx, stages, seed)

	for _, res := range run.Results {
		marker := "ok"
		if res.Err != nil {
			marker = "FAILED"
		} else if res.Repaired {
			marker = "ok (repaired)"
		}
		fmt.Printf("  %-24s %s\n", res.Stage, marker)
	}
	for _, warning := range run.Warnings() {
		fmt.Printf("  warning: %s\n", warning)
	}

	if run.Status == pipeline.StatusAborted {
		return fmt.Errorf("pipeline aborted at %s: %w", run.FailedStage, run.Err)
	}

	return writeOutputs(runOutDir, run.Final)
}

// writeOutputs writes each final deliverable to its own file.
func writeOutputs(dir string, final artifact.Artifact) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	files := map[string]string{
		"resume.md":           final.String("resume_markdown"),
		"cover_letter.txt":    textOf(final, "cover_letter"),
		"cold_email.txt":      textOf(final, "cold_email"),
		"company_summary.txt": textOf(final, "company_summary"),
	}
	for name, content := range files {
		if content == "" {
			continue
		}
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Printf("Wrote %s\n", path)
	}

	if data, err := final.JSON(); err == nil {
		path := filepath.Join(dir, "artifact.json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}

func textOf(final artifact.Artifact, field string) string {
	content, _ := final.Map(field)["content"].(string)
	return content
}
