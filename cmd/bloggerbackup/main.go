// Command bloggerbackup downloads every post of a Blogger blog through the
// Blogger v3 API and stores each one as a JSON file in a backup directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/WessleyAI/bloggerbackup/cmd/bloggerbackup/blogger"
	"github.com/WessleyAI/bloggerbackup/cmd/bloggerbackup/cli"
	"github.com/WessleyAI/bloggerbackup/cmd/bloggerbackup/store"
	"github.com/WessleyAI/bloggerbackup/pkg/fn"
	"github.com/WessleyAI/bloggerbackup/pkg/metrics"
	"github.com/WessleyAI/bloggerbackup/pkg/mid"
	"github.com/WessleyAI/bloggerbackup/pkg/natsutil"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, blogger.DefaultBaseURL)
	stop()
	if err != nil {
		e := exitError(err)
		fmt.Fprintln(os.Stderr, e.Message)
		os.Exit(e.Code)
	}
}

// run performs one backup. Help goes to stdout, logs to stderr. The returned
// error is turned into an exit code by exitError.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, apiBaseURL string) error {
	cfg, shouldExit, err := cli.Parse(args, stdout)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	log := newLogger(stderr, cfg.Verbose)
	if err := cfg.Validate(log); err != nil {
		return err
	}

	met := metrics.New()
	mSaved := met.Counter("bloggerbackup_posts_saved_total", "Posts written to the backup directory")
	mPublishErrors := met.Counter("bloggerbackup_nats_publish_errors_total", "Saved-post events that failed to publish")
	mLastRun := met.Gauge("bloggerbackup_last_run_timestamp", "Epoch of the last completed run")

	if cfg.MetricsPort > 0 {
		srv := serveMetrics(met, cfg.MetricsPort, log)
		defer srv.Close()
	}

	nc, err := natsutil.Connect(cfg.NATSURL)
	if err != nil {
		return err
	}
	if nc != nil {
		defer nc.Close()
		log.Infof("publishing saved posts to NATS subject %s", cfg.NATSSubject)
	}

	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	client := blogger.NewClient(blogger.Config{
		APIKey:    cfg.APIKey,
		BaseURL:   apiBaseURL,
		StartDate: cfg.StartDate,
		EndDate:   cfg.EndDate,
	}, httpClient, log, met)
	st := store.New(cfg.BackupDir, log)

	save := func(ctx context.Context, p blogger.Post) error {
		saved, err := st.Save(ctx, p)
		if err != nil {
			return err
		}
		mSaved.Inc()
		if nc != nil {
			if err := natsutil.Publish(ctx, nc, cfg.NATSSubject, saved); err != nil {
				mPublishErrors.Inc()
				log.WithError(err).Warn("nats publish failed")
			}
		}
		return nil
	}

	backup := fn.Then(
		fn.TracedStage("blogger.resolve", client.ResolveStage()),
		fn.TracedStage("blogger.fetch", client.FetchStage(save)),
	)
	sum, err := backup(ctx, cfg.Blog).Unwrap()
	if err != nil {
		return err
	}
	if nc != nil {
		if err := nc.Flush(); err != nil {
			log.WithError(err).Warn("nats flush failed")
		}
	}

	mLastRun.Set(time.Now().Unix())
	log.WithFields(logrus.Fields{
		"pages": sum.Pages,
		"posts": sum.Posts,
		"dir":   cfg.BackupDir,
	}).Info("backup complete")
	return nil
}

func newLogger(w io.Writer, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.SetLevel(logrus.InfoLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func serveMetrics(met *metrics.Registry, port int, log logrus.FieldLogger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", mid.Chain(met.Handler(),
		mid.Recover(log),
		mid.Logger(log),
		mid.GetOnly(),
		mid.OTel("bloggerbackup-metrics"),
	))
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Warnf("metrics server on port %d", port)
		}
	}()
	return srv
}

// exitError maps a run error to what the user sees and the exit code.
func exitError(err error) *cli.ExitError {
	var (
		exitErr  *cli.ExitError
		usageErr *cli.UsageError
		valErr   *cli.ValidationError
		apiErr   *blogger.APIError
	)
	switch {
	case errors.As(err, &exitErr):
		return exitErr
	case errors.As(err, &usageErr), errors.As(err, &valErr):
		return &cli.ExitError{Code: 1, Message: err.Error() + cli.UsageHint}
	case errors.Is(err, blogger.ErrBlogNotFound):
		return &cli.ExitError{Code: 1, Message: "Blog not found." + cli.UsageHint}
	case errors.As(err, &apiErr):
		return &cli.ExitError{Code: 1, Message: apiErr.Error()}
	default:
		return &cli.ExitError{Code: 1, Message: err.Error()}
	}
}
