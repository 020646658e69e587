package cmds

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"go.senan.xyz/flagconf"
	"go.senan.xyz/sortify"
	"go.senan.xyz/sortify/analysis"
	"go.senan.xyz/sortify/genre"
	"go.senan.xyz/sortify/metadata"
	"go.senan.xyz/sortify/notifications"
	"go.senan.xyz/sortify/sortpath"
)

func Logging() (exit func()) {
	var logLevel slog.LevelVar
	flag.TextVar(&logLevel, "log-level", &logLevel, "set the logging level")

	h := &slogErrorHandler{
		Handler: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &logLevel}),
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(slog.LevelError)

	return func() {
		if h.hadSlogError.Load() {
			os.Exit(1)
		}
		os.Exit(0)
	}
}

type slogErrorHandler struct {
	slog.Handler
	hadSlogError atomic.Bool
}

func (n *slogErrorHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level == slog.LevelError {
		n.hadSlogError.Store(true)
	}
	return n.Handler.Handle(ctx, r)
}

func FlagParse() {
	userConfig, _ := os.UserConfigDir()
	defaultConfigPath := filepath.Join(userConfig, sortify.Name, "config")
	configPath := flag.String("config-path", defaultConfigPath, "path config file")

	printVersion := flag.Bool("version", false, "print the version")
	printConfig := flag.Bool("config", false, "print the parsed config")

	flag.Parse()
	flagconf.ReadEnvPrefix = func(_ *flag.FlagSet) string { return sortify.Name }
	flagconf.ParseEnv()
	flagconf.ParseConfig(*configPath)

	if *printVersion {
		fmt.Printf("%s %s\n", flag.CommandLine.Name(), sortify.Version)
		os.Exit(0)
	}
	if *printConfig {
		flag.VisitAll(func(f *flag.Flag) {
			fmt.Printf("%-16s %s\n", f.Name, f.Value)
		})
		os.Exit(0)
	}
}

type Config struct {
	Order         sortpath.Order
	TempoAnalysis bool
	TempoCommand  string
	KeyCommand    string
	AliasesPath   string
	ZeroTempo     sortpath.ZeroTempo
	ASCIIPaths    bool
	Notifications notifications.Notifications
}

func FlagConfig() *Config {
	cfg := Config{
		Order:         sortpath.Order{sortpath.Genre, sortpath.Artist},
		Notifications: notifications.Notifications{Title: sortify.Name},
	}

	flag.Var(&orderParser{&cfg.Order}, "sort", "comma separated folder levels, from artist, genre, tempo, key, alpha")
	flag.BoolVar(&cfg.TempoAnalysis, "tempo-analysis", false, "analyse tempo for files without a tempo tag")
	flag.StringVar(&cfg.TempoCommand, "tempo-command", "", "command which prints the tempo of <file>")
	flag.StringVar(&cfg.KeyCommand, "key-command", "", "command which prints the key of <file>")
	flag.StringVar(&cfg.AliasesPath, "genre-aliases", "", "yaml file of extra genre aliases, merged over the built in ones")
	flag.Var(&zeroTempoParser{&cfg.ZeroTempo}, "zero-tempo", "where a tempo of 0 goes, one of unknown, bucket")
	flag.BoolVar(&cfg.ASCIIPaths, "ascii-paths", false, "transliterate folder names to ascii")
	flag.Var(&notificationsParser{&cfg.Notifications}, "notification-uri", "add a shoutrrr notification uri for an event")

	return &cfg
}

// Aliases returns the built in genre aliases, with the user's merged over them if configured.
func (cfg *Config) Aliases() (genre.Aliases, error) {
	aliases := genre.Default()
	if cfg.AliasesPath == "" {
		return aliases, nil
	}
	user, err := genre.Load(cfg.AliasesPath)
	if err != nil {
		return genre.Aliases{}, fmt.Errorf("load genre aliases: %w", err)
	}
	return aliases.Merge(user), nil
}

// Analyzer returns nil if no analysis command is configured.
func (cfg *Config) Analyzer() (metadata.Analyzer, error) {
	if cfg.TempoCommand == "" && cfg.KeyCommand == "" {
		return nil, nil
	}
	sp, err := analysis.NewSubproc(cfg.TempoCommand, cfg.KeyCommand)
	if err != nil {
		return nil, err
	}
	return sp, nil
}

var _ flag.Value = (*orderParser)(nil)
var _ flag.Value = (*zeroTempoParser)(nil)
var _ flag.Value = (*notificationsParser)(nil)

type orderParser struct{ *sortpath.Order }

func (o *orderParser) Set(value string) error {
	order, err := sortpath.ParseOrder(value)
	if err != nil {
		return err
	}
	*o.Order = order
	return nil
}
func (o orderParser) String() string {
	if o.Order == nil {
		return ""
	}
	return o.Order.String()
}

type zeroTempoParser struct{ *sortpath.ZeroTempo }

func (z *zeroTempoParser) Set(value string) error {
	zt, err := sortpath.ParseZeroTempo(value)
	if err != nil {
		return err
	}
	*z.ZeroTempo = zt
	return nil
}
func (z zeroTempoParser) String() string {
	if z.ZeroTempo == nil {
		return ""
	}
	return z.ZeroTempo.String()
}

type notificationsParser struct{ *notifications.Notifications }

func (n *notificationsParser) Set(value string) error {
	eventsRaw, uri, ok := strings.Cut(value, " ")
	if !ok {
		return fmt.Errorf("invalid notification uri format. expected eg \"ev1,ev2 uri\"")
	}
	var lineErrs []error
	for _, ev := range strings.Split(eventsRaw, ",") {
		ev, uri = strings.TrimSpace(ev), strings.TrimSpace(uri)
		err := n.AddURI(notifications.Event(ev), uri)
		lineErrs = append(lineErrs, err)
	}
	return errors.Join(lineErrs...)
}
func (n notificationsParser) String() string {
	if n.Notifications == nil {
		return ""
	}
	var parts []string
	n.Notifications.IterMappings(func(e notifications.Event, uri string) {
		url, _ := url.Parse(uri)
		parts = append(parts, fmt.Sprintf("%s: %s://%s/...", e, url.Scheme, url.Host))
	})
	return strings.Join(parts, ", ")
}
