// Command seek resolves one object for the configured observer, prints its
// equatorial and horizontal coordinates and optionally moves the mount.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/star/starseeker/internal/catalog"
	"github.com/star/starseeker/internal/config"
	"github.com/star/starseeker/internal/ephemeris"
	"github.com/star/starseeker/internal/httputil"
	"github.com/star/starseeker/internal/logging"
	"github.com/star/starseeker/internal/pointing"
	"github.com/star/starseeker/internal/resolver"
	"github.com/star/starseeker/internal/sky"
	"github.com/star/starseeker/internal/tle"
	"github.com/star/starseeker/internal/transmit"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "seek:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("seek", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("STARSEEKER_CONFIG"), "path to YAML config file")
	name := fs.String("name", "", "object name, e.g. Mars, Sirius, HIP 32349, ISS (ZARYA)")
	category := fs.String("category", "", "star, planet, moon or satellite")
	lat := fs.Float64("lat", 0, "observer latitude in degrees (overrides config)")
	lon := fs.Float64("lon", 0, "observer longitude in degrees east (overrides config)")
	height := fs.Float64("height", 0, "observer height in metres (overrides config)")
	at := fs.String("time", "", "instant as RFC 3339; default now")
	send := fs.Bool("transmit", false, "send the mount angles to the sink")
	sinkURL := fs.String("sink", "", "sink base URL (overrides config)")
	verbose := fs.Bool("v", false, "log at debug level")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "lat":
			cfg.Observer.LatDeg = *lat
		case "lon":
			cfg.Observer.LonDeg = *lon
		case "height":
			cfg.Observer.HeightM = *height
		case "sink":
			cfg.Transmit.BaseURL = *sinkURL
		}
	})

	c, err := sky.ParseCategory(*category)
	if err != nil {
		return err
	}
	if *name == "" {
		return fmt.Errorf("%w: -name is required", sky.ErrMalformedRequest)
	}
	instant := time.Now().UTC()
	if *at != "" {
		instant, err = time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("%w: -time: %v", sky.ErrConversionInputInvalid, err)
		}
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger, closer := logging.NewWithWriter(logging.Config{Level: level, Format: "tint"}, os.Stderr)
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Only star lookups need the catalog, which may mean a first-time download.
	var stars resolver.StarCatalog
	if c == sky.CategoryStar {
		loader := catalog.NewLoader(cfg.Catalog.Path, logger)
		if cfg.Catalog.Path == "" && cfg.Catalog.URL != "" {
			d := catalog.NewDownloader(cfg.Catalog.URL, cfg.Catalog.CacheDir, cfg.Catalog.Timeout(), logger).
				WithRetry(httputil.DefaultRetryConfig().Attempts(cfg.Catalog.Retries + 1))
			loader = catalog.NewLoader("", logger, catalog.WithDownloader(d))
		}
		cat, err := loader.LoadContext(ctx)
		if err != nil {
			return err
		}
		stars = cat
	}
	fetcher := tle.NewFetcher(tle.GroupURL(cfg.Satellites.SourceURL, cfg.Satellites.Group), logger, cfg.Satellites.ExtraURLs...)
	sats := tle.NewGroupSource(fetcher, tle.NewStore(), logger)
	res := resolver.New(ephemeris.NewAnalytic(), stars, sats, cfg.Observer, logger,
		resolver.WithSatelliteTimeout(cfg.Satellites.Timeout()))

	law := cfg.Mount.Law()
	if cfg.Mount.CalibrationFile != "" {
		if law, err = config.LoadCalibration(cfg.Mount.CalibrationFile, law); err != nil {
			return err
		}
	}
	conv, err := pointing.NewConverter(law)
	if err != nil {
		return err
	}

	opts := []pointing.ServiceOption{pointing.WithClock(func() time.Time { return instant })}
	if *send {
		if cfg.Transmit.BaseURL == "" {
			return fmt.Errorf("-transmit needs a sink URL (-sink or transmit.base_url)")
		}
		sink, err := transmit.NewClient(cfg.Transmit.BaseURL, logger,
			transmit.WithTimeout(time.Duration(cfg.Transmit.TimeoutSeconds)*time.Second),
			transmit.WithRetries(cfg.Transmit.Retries))
		if err != nil {
			return err
		}
		opts = append(opts, pointing.WithTransmitter(sink))
	}
	svc := pointing.NewService(res, conv, cfg.Observer, logger, opts...)

	result, err := svc.Point(ctx, sky.Request{Name: *name, Category: c}, pointing.Options{Transmit: *send, Source: "cli"})
	if err != nil {
		return err
	}
	return printResult(out, result)
}

func printResult(w io.Writer, r pointing.Result) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "object\t%s (%s)\n", r.Request.Name, r.Request.Category)
	fmt.Fprintf(tw, "instant\t%s\n", r.Instant.Format(time.RFC3339))
	fmt.Fprintf(tw, "observer\t%.6f, %.6f, %.0f m\n", r.Observer.LatDeg, r.Observer.LonDeg, r.Observer.HeightM)
	fmt.Fprintf(tw, "ra\t%.6f h (%s)\n", r.Equatorial.RAHours, hms(r.Equatorial.RAHours))
	fmt.Fprintf(tw, "dec\t%.6f°\n", r.Equatorial.DecDeg)
	fmt.Fprintf(tw, "azimuth\t%.4f°\n", r.Raw.AzimuthDeg)
	fmt.Fprintf(tw, "altitude\t%.4f°\n", r.Raw.AltitudeDeg)
	fmt.Fprintf(tw, "mount\taz %.4f°, alt %.4f°\n", r.Mount.AzimuthDeg, r.Mount.AltitudeDeg)
	if r.BelowHorizon {
		fmt.Fprintln(tw, "note\tbelow the horizon")
	}
	if r.Transmitted {
		fmt.Fprintf(tw, "sink\tHTTP %d\n", r.SinkStatus)
	}
	return tw.Flush()
}

// hms formats decimal hours as 06h45m08.9s.
func hms(hours float64) string {
	total := hours * 3600
	h := int(total / 3600)
	m := int((total - float64(h)*3600) / 60)
	s := total - float64(h)*3600 - float64(m)*60
	return fmt.Sprintf("%02dh%02dm%04.1fs", h, m, s)
}
