package cli

import (
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// DefaultNATSSubject is the subject saved-post events are published on.
const DefaultNATSSubject = "bloggerbackup.posts.saved"

// Config is the run configuration. It is built once by Parse and not
// modified afterwards.
type Config struct {
	APIKey    string
	Blog      string
	BackupDir string
	// StartDate and EndDate are RFC 3339 strings. The Set fields record
	// whether the flag was given at all, so an empty value is still checked.
	StartDate    string
	EndDate      string
	StartDateSet bool
	EndDateSet   bool
	Verbose      bool

	// Timeout bounds each API request. Zero means no timeout.
	Timeout     time.Duration
	NATSURL     string
	NATSSubject string
	MetricsPort int
}

const longHelp = `Downloads every live post of a Blogger blog and stores each one as a JSON
file named after its publish date and title.

  --api-key <api key>             mandatory API key used to issue queries
  --blog <blog URL>               mandatory URL of the blog to operate on
  --backup-dir <backup directory> mandatory directory where to put the posts backup
  --start-date <date>             optional, date from which to begin fetching posts
                                  in RFC 3339 format: yyyy-MM-ddTHH:mm:ss+HH:mm
  --end-date <date>               optional, date where to stop fetching posts
                                  in RFC 3339 format: yyyy-MM-ddTHH:mm:ss+HH:mm
  --verbose                       optional, prints debug information while processing`

var mandatory = []string{"api-key", "backup-dir", "blog"}

// Parse reads args into a Config. It returns shouldExit=true when help was
// requested and has been written to out. Flags it does not know and stray
// arguments are ignored.
func Parse(args []string, out io.Writer) (*Config, bool, error) {
	var cfg Config
	ran := false

	cmd := &cobra.Command{
		Use:           "bloggerbackup --api-key <api key> --blog <blog URL> --backup-dir <backup directory>",
		Short:         "Back up the posts of a Blogger blog to local JSON files",
		Long:          longHelp,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(*cobra.Command, []string) error {
			ran = true
			return nil
		},
	}
	cmd.FParseErrWhitelist.UnknownFlags = true
	cmd.CompletionOptions.DisableDefaultCmd = true
	cmd.SetOut(out)
	cmd.SetErr(out)

	f := cmd.Flags()
	f.SortFlags = false
	f.StringVar(&cfg.APIKey, "api-key", "", "API key used to issue queries (required)")
	f.StringVar(&cfg.Blog, "blog", "", "URL of the blog to back up (required)")
	f.StringVar(&cfg.BackupDir, "backup-dir", "", "directory to write posts to, created if missing (required)")
	f.StringVar(&cfg.StartDate, "start-date", "", "only posts published at or after this RFC 3339 date")
	f.StringVar(&cfg.EndDate, "end-date", "", "only posts published before this RFC 3339 date")
	f.BoolVar(&cfg.Verbose, "verbose", false, "print debug information while processing")
	f.DurationVar(&cfg.Timeout, "timeout", 0, "per-request timeout (0 = none)")
	f.StringVar(&cfg.NATSURL, "nats", "", "NATS URL to announce saved posts on (empty = disabled)")
	f.StringVar(&cfg.NATSSubject, "nats-subject", DefaultNATSSubject, "NATS subject for saved-post events")
	f.IntVar(&cfg.MetricsPort, "metrics-port", 0, "port to serve /metrics on during the run (0 = disabled)")

	// --help wins wherever it appears, before any other flag is looked at.
	if wantsHelp(args) {
		args = []string{"--help"}
	}
	if args == nil {
		// cobra falls back to os.Args for a nil slice
		args = []string{}
	}
	cmd.SetArgs(args)

	if err := cmd.Execute(); err != nil {
		return nil, false, flagError(err)
	}
	if !ran {
		return nil, true, nil
	}

	for _, name := range mandatory {
		if !f.Changed(name) {
			return nil, false, &UsageError{Flag: "--" + name}
		}
	}
	cfg.StartDateSet = f.Changed("start-date")
	cfg.EndDateSet = f.Changed("end-date")
	return &cfg, false, nil
}

func wantsHelp(args []string) bool {
	for _, a := range args {
		if a == "--help" || a == "-h" {
			return true
		}
	}
	return false
}

const needsArgument = "flag needs an argument: "

func flagError(err error) error {
	msg := err.Error()
	if strings.HasPrefix(msg, needsArgument) {
		flag := strings.TrimPrefix(msg, needsArgument)
		// shorthand form is reported as "'x' in -x"
		if i := strings.LastIndex(flag, " in "); i != -1 {
			flag = flag[i+len(" in "):]
		}
		return &UsageError{Flag: flag, MissingValue: true}
	}
	return &UsageError{Err: err}
}
