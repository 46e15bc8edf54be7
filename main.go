// wikibind: compile Wikipedia articles into an EPUB, a merged PDF or
// Markdown for offline reading.
//
//	wikibind epub [flags] [urls.txt | URL | -]...
//	wikibind pdf [flags] [urls.txt | URL | -]...
//	wikibind markdown [flags] [urls.txt | URL | -]...
//	wikibind article [flags] <URL>
//
// With no inputs the URL list is read from wiki_articles.txt.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// cliFlags holds raw flag values; only flags the user set override the
// configuration.
type cliFlags struct {
	configPath   string
	output       string
	userAgent    string
	timeout      time.Duration
	delay        time.Duration
	proxy        string
	browserTLS   bool
	allowPrivate bool
	noRobots     bool
	silent       bool
	verbose      bool
	title        string
	author       string
	lang         string
	cover        bool
	renderer     string
	keepTemp     bool
	tempDir      string
}

// buildConfig layers defaults, the settings file and explicitly set flags.
func buildConfig(cmd *cobra.Command, f *cliFlags) (*Config, error) {
	cfg := defaultConfig()
	if f.configPath != "" {
		settings, err := loadSettings(f.configPath)
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", f.configPath, err)
		}
		settings.apply(cfg)
	}

	changed := func(name string) bool {
		fl := cmd.Flags().Lookup(name)
		return fl != nil && fl.Changed
	}
	if changed("output") {
		cfg.Output = f.output
	}
	if changed("user-agent") {
		cfg.UserAgent = f.userAgent
	}
	if changed("timeout") {
		cfg.FetchTimeout = f.timeout
	}
	if changed("delay") {
		cfg.Delay = f.delay
		cfg.PDFDelay = f.delay
	}
	if changed("proxy") {
		cfg.Proxy = f.proxy
	}
	if changed("browser-tls") {
		cfg.BrowserTLS = f.browserTLS
	}
	if changed("allow-private") {
		cfg.AllowPrivateNetworks = f.allowPrivate
	}
	if changed("no-robots") {
		cfg.RespectRobots = !f.noRobots
	}
	if changed("title") {
		cfg.Book.Title = f.title
	}
	if changed("author") {
		cfg.Book.Author = f.author
	}
	if changed("lang") {
		cfg.Book.Language = f.lang
	}
	if changed("cover") {
		cfg.Book.Cover = f.cover
	}
	if changed("renderer") {
		cfg.PDF.Renderer = f.renderer
	}
	if changed("keep-temp") {
		cfg.PDF.KeepTemp = f.keepTemp
	}
	if changed("temp-dir") {
		cfg.PDF.TempDir = f.tempDir
	}
	if f.verbose {
		cfg.LogLevel = "debug"
	}
	cfg.Silent = f.silent

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindPersistent registers the flags shared by every subcommand.
func (f *cliFlags) bindPersistent(pf *pflag.FlagSet) {
	pf.StringVar(&f.configPath, "config", "", "YAML settings file")
	pf.StringVarP(&f.output, "output", "o", "", "output file")
	pf.StringVar(&f.userAgent, "user-agent", defaultUA, "HTTP User-Agent header")
	pf.DurationVar(&f.timeout, "timeout", 30*time.Second, "article fetch timeout")
	pf.DurationVar(&f.delay, "delay", 1500*time.Millisecond, "pause between article requests")
	pf.StringVar(&f.proxy, "proxy", "", "HTTP proxy URL")
	pf.BoolVar(&f.browserTLS, "browser-tls", false, "use a browser TLS fingerprint for https")
	pf.BoolVar(&f.allowPrivate, "allow-private", false, "allow connections to private network addresses")
	pf.BoolVar(&f.noRobots, "no-robots", false, "do not consult robots.txt")
	pf.BoolVar(&f.silent, "silent", false, "suppress all output except errors")
	pf.BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&f.title, "title", "", "book title")
	pf.StringVar(&f.author, "author", "", "book author")
	pf.StringVar(&f.lang, "lang", "", "book language")
}

// newRootCmd wires the command tree to the given streams.
func newRootCmd(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	f := &cliFlags{}

	newRunner := func(cmd *cobra.Command, toStdout bool) (*runner, error) {
		cfg, err := buildConfig(cmd, f)
		if err != nil {
			return nil, err
		}
		progressOut := stdout
		if cfg.Silent || toStdout {
			progressOut = io.Discard
		}
		return &runner{
			cfg:         cfg,
			log:         newLogger(stderr, cfg),
			stdin:       stdin,
			stdout:      stdout,
			progressOut: progressOut,
		}, nil
	}

	root := &cobra.Command{
		Use:           "wikibind [inputs...]",
		Short:         "Compile Wikipedia articles into an EPUB, PDF or Markdown file",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)

	f.bindPersistent(root.PersistentFlags())

	runEPUB := func(cmd *cobra.Command, args []string) error {
		r, err := newRunner(cmd, false)
		if err != nil {
			return err
		}
		return r.runEPUB(cmd.Context(), args)
	}
	// With no subcommand the root builds an EPUB.
	root.Args = cobra.ArbitraryArgs
	root.RunE = runEPUB
	root.Flags().BoolVar(&f.cover, "cover", false, "generate a cover image")

	epubCmd := &cobra.Command{
		Use:   "epub [inputs...]",
		Short: "Build an EPUB with one chapter per article",
		RunE:  runEPUB,
	}
	epubCmd.Flags().BoolVar(&f.cover, "cover", false, "generate a cover image")

	pdfCmd := &cobra.Command{
		Use:   "pdf [inputs...]",
		Short: "Download each article as a PDF and merge them",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRunner(cmd, false)
			if err != nil {
				return err
			}
			return r.runPDF(cmd.Context(), args)
		},
	}
	pdfCmd.Flags().StringVar(&f.renderer, "renderer", rendererServer, "PDF renderer: server, chrome or local")
	pdfCmd.Flags().BoolVar(&f.keepTemp, "keep-temp", false, "keep intermediate PDFs and debug files")
	pdfCmd.Flags().StringVar(&f.tempDir, "temp-dir", "", "parent directory for intermediate files")

	markdownCmd := &cobra.Command{
		Use:   "markdown [inputs...]",
		Short: "Write the cleaned articles as one Markdown document",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRunner(cmd, false)
			if err != nil {
				return err
			}
			return r.runMarkdown(cmd.Context(), args)
		},
	}

	articleCmd := &cobra.Command{
		Use:   "article <url>",
		Short: "Clean a single article into a standalone HTML page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := newRunner(cmd, f.output == "")
			if err != nil {
				return err
			}
			return r.runArticle(cmd.Context(), args[0])
		},
	}

	root.AddCommand(epubCmd, pdfCmd, markdownCmd, articleCmd)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx)
	if err != nil {
		stderrLogger().Error(err)
	}
	stop()
	os.Exit(exitCode(err))
}
