package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"regexp"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yourusername/yle-dl-go/internal/app"
	"github.com/yourusername/yle-dl-go/internal/domain"
	"github.com/yourusername/yle-dl-go/internal/fetch"
	"github.com/yourusername/yle-dl-go/internal/infrastructure"
	"github.com/yourusername/yle-dl-go/pkg/logger"
)

// languageCode matches three letter subtitle language codes such as fin,
// swe or smi
var languageCode = regexp.MustCompile(`^[a-z]{3}$`)

// options holds the command line flags of one invocation
type options struct {
	output          string
	latestEpisode   bool
	showURL         bool
	showEpisodePage bool
	showTitle       bool
	vfat            bool
	sublang         string
	hardsubs        bool
	maxBitrate      string
	rtmpdump        string
	adobeHDS        string
	destDir         string
	protocol        string
	pipe            bool
	resume          bool
	verbose         bool
	configPath      string
}

func newRootCmd(result *domain.Result) *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "yle-dl [flags] URL [-- rtmpdump options]",
		Short: "yle-dl - Download videos from Yle servers",
		Long: `Download media files from Yle Areena, Elävä arkisto and yle.fi news pages.

Options after -- are passed to the external downloader.`,
		Version:       domain.Version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			positional, passthrough := splitPassthrough(args, cmd.ArgsLenAtDash())
			if len(positional) != 1 {
				return fmt.Errorf("expected exactly one URL, got %d", len(positional))
			}

			*result = run(cmd.Context(), opts, positional[0], passthrough, cmd.OutOrStdout())
			return nil
		},
	}

	bindFlags(cmd, opts)
	return cmd
}

// bindFlags registers the command line flags of cmd into opts
func bindFlags(cmd *cobra.Command, opts *options) {
	flags := cmd.Flags()
	flags.StringVarP(&opts.output, "output", "o", "", "Save stream to the named file, - writes to stdout")
	flags.BoolVar(&opts.latestEpisode, "latestepisode", false, "Download the latest episode")
	flags.BoolVar(&opts.showURL, "showurl", false, "Print URL, don't download")
	flags.BoolVar(&opts.showEpisodePage, "showepisodepage", false, "Print web page for each episode")
	flags.BoolVar(&opts.showTitle, "showtitle", false, "Print stream title, don't download")
	flags.BoolVar(&opts.vfat, "vfat", false, "Output Windows-compatible filenames")
	flags.StringVar(&opts.sublang, "sublang", "", "Download subtitles: fin, swe, smi, none or all")
	flags.BoolVar(&opts.hardsubs, "hardsubs", false, "Download stream with hard subs if available")
	flags.StringVar(&opts.maxBitrate, "maxbitrate", "", "Maximum bitrate stream to download: kbit/s, best or worst")
	flags.StringVar(&opts.rtmpdump, "rtmpdump", "", "Set path to rtmpdump binary")
	flags.StringVar(&opts.adobeHDS, "adobehds", "", "Set command for executing AdobeHDS.php script")
	flags.StringVar(&opts.destDir, "destdir", "", "Save files to this directory")
	flags.StringVar(&opts.protocol, "protocol", "", "Downloaders that are tried until one of them succeeds, comma separated")
	flags.BoolVar(&opts.pipe, "pipe", false, "Dump stream to stdout for piping to media player")
	flags.BoolVarP(&opts.resume, "resume", "e", false, "Resume a partial download")
	flags.BoolVarP(&opts.verbose, "verbose", "V", false, "Verbose output")
	flags.BoolVar(&opts.verbose, "debug", false, "Verbose output")
	flags.StringVar(&opts.configPath, "config", "", "Config file (default $HOME/.yle-dl/config.yaml)")
	_ = flags.MarkHidden("debug")
}

// splitPassthrough separates the URL arguments from the ones after --
func splitPassthrough(args []string, dash int) ([]string, []string) {
	if dash < 0 {
		return args, nil
	}
	return args[:dash], args[dash:]
}

func run(ctx context.Context, opts *options, pageURL string, passthrough []string, stdout io.Writer) domain.Result {
	config, err := app.LoadConfig(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return domain.ResultFailed
	}

	log, err := logger.NewCLI(opts.verbose || config.Logging.Level == "debug", config.Logging.OutputPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return domain.ResultFailed
	}
	defer log.Sync()

	applyOverrides(config, opts)
	req := buildRequest(config, opts, pageURL, passthrough, log)

	client := fetch.NewFetcher(fetch.Options{
		UserAgent:         config.HTTP.UserAgent,
		Timeout:           config.HTTP.Timeout,
		CacheTTL:          config.HTTP.CacheTTL,
		RequestsPerSecond: config.HTTP.RequestsPerSecond,
	}, log)

	var repo domain.DownloadRepository
	if config.History.Enabled {
		sqlite, err := infrastructure.NewSQLiteDownloadRepository(config.History.DatabasePath)
		if err != nil {
			log.Warn("Download history unavailable", zap.Error(err))
		} else {
			defer sqlite.Close()
			repo = sqlite
		}
	}

	var notifier app.Notifier
	if config.Notification.Enabled {
		notifier = infrastructure.NewNotificationService(&config.Notification, log)
	}

	downloadMgr := app.NewDownloadManager(config, client, repo, notifier, log)
	downloadMgr.SetOutput(stdout, afero.NewOsFs())
	return downloadMgr.Run(ctx, req)
}

// applyOverrides copies the flags that replace configuration values
func applyOverrides(config *domain.Config, opts *options) {
	if opts.vfat {
		config.Download.VFAT = true
	}
	if opts.destDir != "" {
		config.Download.DestDir = opts.destDir
	}
	if opts.rtmpdump != "" {
		config.Backends.RTMPDumpPath = opts.rtmpdump
	}
	if opts.adobeHDS != "" {
		config.Backends.AdobeHDSCommand = strings.Fields(opts.adobeHDS)
	}
	if opts.sublang != "" {
		config.Download.SubLang = opts.sublang
	}
	if opts.maxBitrate != "" {
		config.Download.MaxBitrate = opts.maxBitrate
	}
}

// buildRequest turns the flags into one download manager request
func buildRequest(config *domain.Config, opts *options, pageURL string, passthrough []string, log *zap.Logger) app.Request {
	req := app.Request{
		URL:       pageURL,
		Operation: operation(opts),
		Filters:   domain.DefaultStreamFilters(),
	}

	if validSubLang(config.Download.SubLang) {
		req.Filters.SubLang = config.Download.SubLang
	} else {
		log.Warn(fmt.Sprintf("Unknown subtitle language %s, using all", config.Download.SubLang))
	}
	req.Filters.HardSubs = opts.hardsubs
	req.Filters.LatestOnly = opts.latestEpisode

	if bitrate, err := domain.ParseBitrate(config.Download.MaxBitrate); err != nil {
		log.Warn(fmt.Sprintf("Invalid bitrate %s, downloading the best quality", config.Download.MaxBitrate))
	} else {
		req.Filters.MaxBitrate = bitrate
	}

	if opts.protocol != "" {
		req.Protocols = lo.Compact(lo.Map(strings.Split(opts.protocol, ","), func(p string, _ int) string {
			return strings.TrimSpace(p)
		}))
	}

	if opts.output != "" && opts.output != "-" {
		req.ExtraArgs = append(req.ExtraArgs, "-o", opts.output)
	}
	if opts.resume {
		req.ExtraArgs = append(req.ExtraArgs, "--resume")
	}
	req.ExtraArgs = append(req.ExtraArgs, passthrough...)

	return req
}

// validSubLang accepts all, none and language codes
func validSubLang(sublang string) bool {
	return sublang == domain.SubLangAll || sublang == domain.SubLangNone || languageCode.MatchString(sublang)
}

// operation picks what to do with the clips. Printing wins over
// downloading, and the episode page wins over the stream URL.
func operation(opts *options) domain.Operation {
	switch {
	case opts.showEpisodePage:
		return domain.OperationPrintPage
	case opts.showURL:
		return domain.OperationPrintURL
	case opts.showTitle:
		return domain.OperationPrintTitle
	case opts.pipe || opts.output == "-":
		return domain.OperationPipe
	default:
		return domain.OperationDownload
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	result := domain.ResultSuccess
	cmd := newRootCmd(&result)
	if os.Getenv("NO_COLOR") == "" {
		cc.Init(&cc.Config{
			RootCmd:       cmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		result = domain.ResultFailed
	}

	stop()
	os.Exit(int(result))
}
