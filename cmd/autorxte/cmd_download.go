package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"autorxte/internal/acquire"
	"autorxte/internal/archive"
	"autorxte/internal/format"
	"autorxte/internal/logging"
	"autorxte/internal/region"
	"autorxte/internal/store"
)

var downloadFlags struct {
	source      string
	catalog     string
	radius      float64
	outputDir   string
	minExposure float64
	startDate   string
	endDate     string
	topN        int
	bottomN     int
	obsIDs      []string
	overwrite   bool
	bucket      string
	region      string
	workers     int
}

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Search the archive catalog and download observations",
	Long: "Download queries the observation catalog for a source, narrows the\nresult with exposure/date/obsid criteria, picks the fastest archive\nregion, and fetches every observation with a resumable worker pool.",
	RunE: runDownload,
}

func init() {
	f := downloadCmd.Flags()
	f.StringVar(&downloadFlags.source, "source", "", "Source name or coordinates")
	f.StringVar(&downloadFlags.catalog, "catalog", "", "Catalog to search (default from config)")
	f.Float64Var(&downloadFlags.radius, "radius", 0, "Search radius in arcminutes (default from config)")
	f.StringVar(&downloadFlags.outputDir, "output-dir", "", "Where the download directory is created")
	f.Float64Var(&downloadFlags.minExposure, "min-exposure", 0, "Keep observations with at least this exposure (seconds)")
	f.StringVar(&downloadFlags.startDate, "start-date", "", "Keep observations on or after this date (YYYY-MM-DD)")
	f.StringVar(&downloadFlags.endDate, "end-date", "", "Keep observations on or before this date (YYYY-MM-DD)")
	f.IntVar(&downloadFlags.topN, "top-n", 0, "Keep the N longest exposures")
	f.IntVar(&downloadFlags.bottomN, "bottom-n", 0, "Keep the N shortest exposures")
	f.StringSliceVar(&downloadFlags.obsIDs, "obsids", nil, "Download exactly these observation ids")
	f.BoolVar(&downloadFlags.overwrite, "overwrite", false, "Ignore the progress record and re-download")
	f.StringVar(&downloadFlags.bucket, "bucket", "", "Archive bucket (default from config)")
	f.StringVar(&downloadFlags.region, "region", "", "Archive region; skips probing (default: probe or persisted)")
	f.IntVar(&downloadFlags.workers, "workers", 0, "Download workers (0 = derived from batch shape)")
}

func runDownload(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := logging.New("cli")
	r := newResolver()

	source, err := r.String("Source name or coordinates", strFlag(downloadFlags.source), "", "")
	if err != nil {
		return err
	}
	if source == "" {
		return errors.New("a source name is required (--source)")
	}
	catalog, err := r.String("Catalog", strFlag(downloadFlags.catalog), "download.catalog", "xtemaster")
	if err != nil {
		return err
	}
	radius := downloadFlags.radius
	if radius <= 0 {
		radius, err = r.Float("Search radius (arcmin)", nil, "download.radius_arcmin", 5.0)
		if err != nil {
			return err
		}
	}
	outputDir, err := r.Path("Output directory", strFlag(downloadFlags.outputDir), "", ".")
	if err != nil {
		return err
	}

	cr, err := downloadCriteria()
	if err != nil {
		return err
	}

	bucket := downloadFlags.bucket
	if bucket == "" {
		bucket = appCfg.GetString("download.bucket", "nasa-heasarc")
	}
	endpoint, err := selectEndpoint(ctx, bucket)
	if err != nil {
		return err
	}

	client := archive.NewClient(archive.Config{
		CatalogURL: appCfg.GetString("download.catalog_url", ""),
		BucketURL:  endpoint.URL,
	})

	obs, err := client.SearchObservations(ctx, archive.SearchQuery{
		Source:  source,
		Catalog: catalog,
		Radius:  radius,
	})
	if err != nil {
		return err
	}
	obs = archive.Filter(obs, cr)
	if len(obs) == 0 {
		return fmt.Errorf("no observations of %q matched the criteria", source)
	}
	fmt.Fprintln(os.Stdout, format.ObservationTable(format.ASCII, obs))

	target := archive.DominantTarget(obs)
	downloadDir := filepath.Join(outputDir, "download_RXTE_"+sanitizeName(target))
	if err := os.MkdirAll(downloadDir, 0755); err != nil {
		return fmt.Errorf("create download dir: %w", err)
	}
	recordPath := filepath.Join(downloadDir, fmt.Sprintf("downloaded_RXTE_%s.json", sanitizeName(target)))
	if downloadFlags.overwrite {
		if err := os.Remove(recordPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	// List every observation's manifest up front so the worker count
	// can be derived from the whole batch.
	var items []*acquire.Item
	for _, o := range obs {
		prefix := archive.ObservationPrefix(o.Cycle, o.ObsID)
		objects, err := client.ListObjects(ctx, prefix)
		if err != nil {
			return fmt.Errorf("list %s: %w", o.ObsID, err)
		}
		if len(objects) == 0 {
			logger.Warn("no archive files for observation", "obsid", o.ObsID, "prefix", prefix)
			continue
		}
		for _, obj := range objects {
			rel := strings.TrimPrefix(strings.TrimPrefix(obj.Key, prefix), "/")
			items = append(items, &acquire.Item{
				Key:      obj.Key,
				Dest:     filepath.Join(downloadDir, o.ObsID, filepath.FromSlash(rel)),
				Size:     obj.Size,
				Checksum: obj.Checksum,
			})
		}
	}
	if len(items) == 0 {
		return fmt.Errorf("the archive holds no files for the selected observations")
	}

	st, storeErr := openStore()
	var batchID int64
	if storeErr != nil {
		logger.Warn("run history unavailable", "error", storeErr)
	} else {
		defer st.Close()
		batchID, _ = st.RecordBatch(&store.Batch{
			UUID:   uuid.NewString(),
			Source: target,
			Region: endpoint.Name,
			Items:  len(items),
		})
	}

	engine := &acquire.Engine{Fetcher: client, RecordPath: recordPath}
	res, runErr := engine.Run(ctx, items, downloadFlags.workers)
	if res != nil {
		if storeErr == nil && batchID != 0 {
			if err := st.FinishBatch(batchID, len(res.Completed), len(res.Failed), res.Bytes); err != nil {
				logger.Warn("batch not recorded", "error", err)
			}
		}
		fmt.Fprintln(os.Stdout, format.AcquisitionTable(format.ASCII, res))
	}
	if runErr != nil {
		return runErr
	}
	if !res.AllComplete() {
		return fmt.Errorf("%d file(s) failed to download; rerun to retry", len(res.Failed))
	}
	return nil
}

// downloadCriteria parses the narrowing flags into archive criteria.
func downloadCriteria() (archive.Criteria, error) {
	cr := archive.Criteria{
		MinExposure: downloadFlags.minExposure,
		TopN:        downloadFlags.topN,
		BottomN:     downloadFlags.bottomN,
		ObsIDs:      downloadFlags.obsIDs,
	}
	if downloadFlags.startDate != "" {
		t, err := time.Parse("2006-01-02", downloadFlags.startDate)
		if err != nil {
			return cr, fmt.Errorf("parse --start-date: %w", err)
		}
		cr.StartDate = t
	}
	if downloadFlags.endDate != "" {
		t, err := time.Parse("2006-01-02", downloadFlags.endDate)
		if err != nil {
			return cr, fmt.Errorf("parse --end-date: %w", err)
		}
		// Inclusive end date: keep the whole day.
		cr.EndDate = t.Add(24*time.Hour - time.Nanosecond)
	}
	return cr, nil
}

// selectEndpoint resolves the bucket endpoint: explicit flag first,
// then the persisted-or-probed fastest region, then the configured
// default when probing is impossible.
func selectEndpoint(ctx context.Context, bucket string) (region.Endpoint, error) {
	logger := logging.New("cli")

	if downloadFlags.region != "" {
		return region.Endpoint{
			Name: downloadFlags.region,
			URL:  region.EndpointURL(bucket, downloadFlags.region),
		}, nil
	}

	prefPath, err := region.DefaultPreferencePath()
	if err != nil {
		return region.Endpoint{}, err
	}
	sel := &region.Selector{PrefPath: prefPath}
	ep, err := sel.Select(ctx, region.DefaultCandidates(bucket))
	if err == nil {
		return ep, nil
	}
	if errors.Is(err, region.ErrRegionUnavailable) {
		// Probes can fail on restrictive networks even though plain
		// fetches work; fall back rather than give up.
		name := appCfg.GetString("download.region", region.DefaultRegion)
		logger.Warn("region probing failed, using configured default", "region", name)
		return region.Endpoint{Name: name, URL: region.EndpointURL(bucket, name)}, nil
	}
	return region.Endpoint{}, err
}

// sanitizeName makes a catalog target name safe as a directory name.
func sanitizeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '+' || r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}
