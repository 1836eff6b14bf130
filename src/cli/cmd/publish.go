package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"gitlab.prplanit.com/precisionplanit/slipway/src/config"
	"gitlab.prplanit.com/precisionplanit/slipway/src/docker"
	"gitlab.prplanit.com/precisionplanit/slipway/src/gitver"
	"gitlab.prplanit.com/precisionplanit/slipway/src/output"
	"gitlab.prplanit.com/precisionplanit/slipway/src/publish"
	"gitlab.prplanit.com/precisionplanit/slipway/src/storage"
	"golang.org/x/sync/semaphore"
)

var (
	pubParallelism     int64
	pubPreRelease      bool
	pubRegistry        string
	pubSpecCacheBucket string
	pubMetadataBucket  string
	pubPlatforms       []string
	pubJSON            bool
	pubDryRun          bool
)

var publishCmd = &cobra.Command{
	Use:   "publish [connector-dir...]",
	Short: "Publish connector images, specs, and metadata",
	Long: `Publish one or more connectors: validate metadata, gate on registry
state, build platform variants, upload the spec to the spec cache, push the
image, and refresh the metadata store.

Republishing an already-published version is cheap and safe: the pipeline
skips straight to the metadata refresh.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().Int64Var(&pubParallelism, "parallelism", 0, "concurrent connector publishes (default from config)")
	publishCmd.Flags().BoolVar(&pubPreRelease, "pre-release", false, "suppress the floating latest tag")
	publishCmd.Flags().StringVar(&pubRegistry, "registry", "", "override registry host")
	publishCmd.Flags().StringVar(&pubSpecCacheBucket, "spec-cache-bucket", "", "override spec cache bucket")
	publishCmd.Flags().StringVar(&pubMetadataBucket, "metadata-bucket", "", "override metadata service bucket")
	publishCmd.Flags().StringSliceVar(&pubPlatforms, "platform", nil, "override build platforms")
	publishCmd.Flags().BoolVar(&pubJSON, "json", false, "emit reports as JSON")
	publishCmd.Flags().BoolVar(&pubDryRun, "dry-run", false, "validate and gate only; no build, upload, or push")

	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	dirs := args
	if len(dirs) == 0 {
		dirs = []string{"."}
	}

	registry := cfg.Registry
	if pubRegistry != "" {
		registry = pubRegistry
	}
	specCacheBucket := cfg.SpecCacheBucket
	if pubSpecCacheBucket != "" {
		specCacheBucket = pubSpecCacheBucket
	}
	metadataBucket := cfg.MetadataBucket
	if pubMetadataBucket != "" {
		metadataBucket = pubMetadataBucket
	}
	if specCacheBucket == "" || metadataBucket == "" {
		return fmt.Errorf("spec cache and metadata buckets must be configured")
	}
	platforms := cfg.Platforms
	if len(pubPlatforms) > 0 {
		platforms = pubPlatforms
	}
	parallelism := cfg.Parallelism
	if pubParallelism > 0 {
		parallelism = pubParallelism
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cli := docker.NewCLI(verbose)
	deps := publish.Deps{
		Inspector: cli,
		Backend:   docker.NewBuildx(cli),
		Uploader:  storage.NewGSUtil(cfg.CredentialsEnv),
	}

	var revision string
	if info, err := gitver.Detect("."); err == nil {
		revision = info.String()
	}

	sem := semaphore.NewWeighted(parallelism)
	color := output.UseColor()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		reports []*publish.Report
		failed  bool
	)

	for _, dir := range dirs {
		pctx, err := connectorContext(dir, registry, specCacheBucket, metadataBucket, platforms)
		if err != nil {
			return err
		}

		wg.Add(1)
		go func(pctx *publish.ConnectorContext) {
			defer wg.Done()
			report, err := publish.Run(ctx, pctx, deps, sem)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed = true
				fmt.Fprintf(os.Stderr, "publish %s: %v\n", pctx.ConnectorName, err)
				return
			}
			reports = append(reports, report)
			if report.Failed() {
				failed = true
			}
		}(pctx)
	}
	wg.Wait()

	for _, report := range reports {
		if pubJSON {
			if err := output.RenderReportJSON(os.Stdout, report); err != nil {
				return err
			}
			continue
		}
		output.RenderReport(os.Stdout, report, revision, color)
	}

	if failed {
		return fmt.Errorf("one or more connector publishes failed")
	}
	return nil
}

// connectorContext assembles the per-invocation publish context from the
// connector directory's metadata.yaml and the effective configuration.
func connectorContext(dir, registry, specCacheBucket, metadataBucket string, platforms []string) (*publish.ConnectorContext, error) {
	metadataPath := filepath.Join(dir, "metadata.yaml")
	md, err := config.LoadMetadata(metadataPath)
	if err != nil {
		return nil, fmt.Errorf("connector %s: %w", dir, err)
	}

	return &publish.ConnectorContext{
		ConnectorName:   md.Name,
		ConnectorDir:    dir,
		Registry:        registry,
		ImageRepo:       md.DockerRepository,
		ImageTag:        md.DockerImageTag,
		PreRelease:      pubPreRelease || md.IsPreRelease(),
		DryRun:          pubDryRun,
		Platforms:       platforms,
		MetadataPath:    metadataPath,
		Metadata:        md,
		SpecCacheBucket: specCacheBucket,
		MetadataBucket:  metadataBucket,
	}, nil
}
