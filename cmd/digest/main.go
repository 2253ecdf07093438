package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/go-pkgz/lgr"
	"github.com/jessevdk/go-flags"

	"github.com/umputun/forumdigest/pkg/config"
	"github.com/umputun/forumdigest/pkg/digest"
	"github.com/umputun/forumdigest/pkg/domain"
	"github.com/umputun/forumdigest/pkg/llm"
	"github.com/umputun/forumdigest/pkg/mailer"
	"github.com/umputun/forumdigest/pkg/pipeline"
	"github.com/umputun/forumdigest/pkg/reddit"
)

// Opts with all CLI options
type Opts struct {
	Profile string        `short:"p" long:"profile" env:"PROFILE" description:"digest profile file, built-in profile if empty"`
	Digests []string      `long:"digest" description:"run only digests with these names"`
	Workers int           `long:"workers" default:"1" description:"boards processed concurrently"`
	DryRun  string        `long:"dry-run" description:"write html digest to file instead of sending, - for stdout"`
	Timeout time.Duration `long:"timeout" default:"60s" description:"http timeout for reddit and llm calls"`

	Reddit struct {
		ClientID     string `long:"client-id" env:"CLIENT_ID" description:"reddit app client id"`
		ClientSecret string `long:"client-secret" env:"CLIENT_SECRET" description:"reddit app client secret"`
		UserAgent    string `long:"user-agent" env:"USER_AGENT" default:"ML_Digest_Bot/0.1" description:"user agent sent to reddit"`
		APIURL       string `long:"api-url" env:"API_URL" default:"https://oauth.reddit.com" description:"reddit oauth api url"`
		TokenURL     string `long:"token-url" env:"TOKEN_URL" default:"https://www.reddit.com/api/v1/access_token" description:"reddit token url"`
	} `group:"reddit" namespace:"reddit" env-namespace:"REDDIT"`

	LLM struct {
		APIKey         string  `long:"api-key" env:"API_KEY" description:"llm api key"`
		BaseURL        string  `long:"base-url" env:"BASE_URL" description:"openai-compatible api url"`
		Model          string  `long:"model" env:"MODEL" default:"deepseek-chat" description:"model name"`
		ResponseFormat string  `long:"response-format" env:"RESPONSE_FORMAT" default:"json_object" choice:"json_object" choice:"json_schema" description:"structured output mode"`
		Temperature    float64 `long:"temperature" env:"TEMPERATURE" description:"sampling temperature, 0 for the provider default"`
		MaxTokens      int     `long:"max-tokens" env:"MAX_TOKENS" description:"max tokens in the answer, 0 for the provider default"`
		SystemPrompt   string  `long:"system-prompt" env:"SYSTEM_PROMPT" description:"custom system prompt"`
	} `group:"llm" namespace:"llm" env-namespace:"LLM"`

	Email struct {
		User string `long:"user" env:"EMAIL_USER" description:"smtp user, also the sender address"`
		Pass string `long:"pass" env:"EMAIL_PASS" description:"smtp password"`
		To   string `long:"to" env:"RECEIVER_EMAIL" description:"digest recipient"`
		Host string `long:"host" env:"SMTP_HOST" default:"smtp.126.com" description:"smtp host"`
		Port int    `long:"port" env:"SMTP_PORT" default:"465" description:"smtp port"`
		TLS  string `long:"tls" env:"SMTP_TLS" default:"ssl" choice:"ssl" choice:"starttls" choice:"none" description:"smtp tls mode"`
	} `group:"email" namespace:"email"`

	// Common options
	Debug   bool `long:"dbg" env:"DEBUG" description:"debug mode"`
	Version bool `short:"V" long:"version" description:"show version info"`
	NoColor bool `long:"no-color" env:"NO_COLOR" description:"disable color output"`
}

var revision = "unknown"

func main() {
	var opts Opts
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if opts.Version {
		fmt.Printf("Version: %s\nGolang: %s\n", revision, runtime.Version())
		os.Exit(0)
	}

	if opts.NoColor {
		color.NoColor = true
	}
	setupLog(opts.Debug, opts.Reddit.ClientSecret, opts.LLM.APIKey, opts.Email.Pass)

	log.Printf("[INFO] starting forum digest version %s", revision)

	ctx, cancel := context.WithCancel(context.Background())

	// handle termination signals
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		log.Print("[INFO] termination signal received")
		cancel()
	}()

	err := run(ctx, opts)
	cancel()

	if err != nil {
		log.Printf("[ERROR] digest failed: %v", err)
		os.Exit(1)
	}
	log.Print("[INFO] done")
}

// run loads the profile and runs every selected digest in configured order, one email per digest
func run(ctx context.Context, opts Opts) error {
	cfg := config.Default()
	if opts.Profile != "" {
		var err error
		if cfg, err = config.Load(opts.Profile); err != nil {
			return fmt.Errorf("failed to load profile: %w", err)
		}
	}
	digests, err := cfg.Select(opts.Digests)
	if err != nil {
		return fmt.Errorf("failed to select digests: %w", err)
	}

	dispatcher, closeFn, err := makeDispatcher(opts)
	if err != nil {
		return fmt.Errorf("failed to make dispatcher: %w", err)
	}
	defer closeFn()

	redditClient := reddit.NewClient(reddit.Config{
		ClientID:     opts.Reddit.ClientID,
		ClientSecret: opts.Reddit.ClientSecret,
		UserAgent:    opts.Reddit.UserAgent,
		APIURL:       opts.Reddit.APIURL,
		TokenURL:     opts.Reddit.TokenURL,
		Timeout:      opts.Timeout,
	})
	scorer := llm.NewScorer(llm.Config{
		APIKey:         opts.LLM.APIKey,
		BaseURL:        opts.LLM.BaseURL,
		Model:          opts.LLM.Model,
		ResponseFormat: opts.LLM.ResponseFormat,
		Temperature:    opts.LLM.Temperature,
		MaxTokens:      opts.LLM.MaxTokens,
		SystemPrompt:   opts.LLM.SystemPrompt,
		Timeout:        opts.Timeout,
	})

	for _, d := range digests {
		p := pipeline.New(pipeline.Config{
			Fetcher:    redditClient.WithMaxContent(d.MaxContentChars),
			Scorer:     scorer.WithLanguage(d.SummaryLanguage),
			Renderer:   digest.New(d.Title, d.Subject),
			Dispatcher: dispatcher,
			Name:       d.Name,
			Boards:     boards(d),
			Window:     d.Window,
			MinUpvotes: d.MinUpvotes,
			Threshold:  d.ScoreThreshold,
			Recipient:  opts.Email.To,
			Workers:    opts.Workers,
		})
		res, err := p.Run(ctx)
		if err != nil {
			return fmt.Errorf("digest %s: %w", d.Name, err)
		}
		log.Printf("[INFO] digest %s: boards %d (failed %d), posts %d, skipped %d, evaluated %d (failed %d), kept %d, sent %v",
			d.Name, res.Boards, res.FailedFetch, res.Fetched, res.Skipped, res.Evaluated, res.FailedEval, res.Kept, res.Sent)
	}
	return nil
}

// makeDispatcher returns smtp dispatcher, or a file/stdout writer in dry-run mode
func makeDispatcher(opts Opts) (pipeline.Dispatcher, func(), error) {
	switch opts.DryRun {
	case "":
		smtp, err := mailer.NewSMTP(mailer.SMTPConfig{
			Host:     opts.Email.Host,
			Port:     opts.Email.Port,
			Username: opts.Email.User,
			Password: opts.Email.Pass,
			TLS:      opts.Email.TLS,
			Timeout:  opts.Timeout,
		})
		return smtp, func() {}, err
	case "-":
		return mailer.NewWriter(os.Stdout), func() {}, nil
	default:
		fh, err := os.Create(opts.DryRun) //nolint:gosec // path comes from CLI flag
		if err != nil {
			return nil, func() {}, fmt.Errorf("create %s: %w", opts.DryRun, err)
		}
		return mailer.NewWriter(fh), func() {
			if err := fh.Close(); err != nil {
				log.Printf("[WARN] failed to close %s: %v", opts.DryRun, err)
			}
		}, nil
	}
}

func boards(d config.Digest) []domain.Board {
	res := make([]domain.Board, len(d.Boards))
	for i, b := range d.Boards {
		res[i] = domain.Board{Name: b.Name, Limit: b.Limit}
	}
	return res
}

func setupLog(dbg bool, secs ...string) {
	logOpts := []lgr.Option{lgr.Msec, lgr.LevelBraces}
	if dbg {
		logOpts = []lgr.Option{lgr.Debug, lgr.Msec, lgr.LevelBraces, lgr.StackTraceOnError}
	}

	colorizer := lgr.Mapper{
		ErrorFunc:  func(s string) string { return color.New(color.FgHiRed).Sprint(s) },
		WarnFunc:   func(s string) string { return color.New(color.FgRed).Sprint(s) },
		InfoFunc:   func(s string) string { return color.New(color.FgYellow).Sprint(s) },
		DebugFunc:  func(s string) string { return color.New(color.FgWhite).Sprint(s) },
		CallerFunc: func(s string) string { return color.New(color.FgBlue).Sprint(s) },
		TimeFunc:   func(s string) string { return color.New(color.FgCyan).Sprint(s) },
	}
	logOpts = append(logOpts, lgr.Map(colorizer))

	// skip unset credentials
	var nonEmpty []string
	for _, s := range secs {
		if s != "" {
			nonEmpty = append(nonEmpty, s)
		}
	}
	if len(nonEmpty) > 0 {
		logOpts = append(logOpts, lgr.Secret(nonEmpty...))
	}
	lgr.SetupStdLogger(logOpts...)
	lgr.Setup(logOpts...)
}
