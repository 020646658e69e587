package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"go.senan.xyz/table/table"

	"go.senan.xyz/sortify"
	"go.senan.xyz/sortify/cmd/internal/cmds"
	"go.senan.xyz/sortify/diff"
	"go.senan.xyz/sortify/fileutil"
	"go.senan.xyz/sortify/genre"
	"go.senan.xyz/sortify/metadata"
	"go.senan.xyz/sortify/notifications"
	"go.senan.xyz/sortify/sortpath"
	"go.senan.xyz/sortify/stats"
	"go.senan.xyz/sortify/tags"
)

func init() {
	flag := flag.CommandLine
	flag.Usage = func() {
		fmt.Fprintf(flag.Output(), "Usage:\n")
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] sort <dir>\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] preview <dir>\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] undo <dir>\n", flag.Name())
		fmt.Fprintf(flag.Output(), "  $ %s [<options>] stats <dir>\n", flag.Name())
		fmt.Fprintf(flag.Output(), "\n")
		fmt.Fprintf(flag.Output(), "Options:\n")
		flag.PrintDefaults()
	}
}

var tg = tags.Store{}

func main() {
	defer cmds.Logging()()
	cfg := cmds.FlagConfig()
	showDiff := flag.Bool("diff", false, "show each destination as a diff against its source")
	cmds.FlagParse()

	command, dir := flag.Arg(0), flag.Arg(1)
	if dir == "" {
		flag.Usage()
		slog.Error("need a command and a dir")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg, command, dir, *showDiff); err != nil {
		slog.ErrorContext(ctx, "running", "command", command, "err", err)
		return
	}
}

func run(ctx context.Context, cfg *cmds.Config, command, dir string, showDiff bool) error {
	aliases, err := cfg.Aliases()
	if err != nil {
		return err
	}

	if command == "stats" {
		return printStats(ctx, cfg, aliases, dir)
	}

	analyzer, err := cfg.Analyzer()
	if err != nil {
		return err
	}
	e := sortify.New(sortify.Config{
		Tags:     tg,
		Analyzer: analyzer,
		Builder: sortpath.Builder{
			Aliases:   aliases,
			ZeroTempo: cfg.ZeroTempo,
			ASCII:     cfg.ASCIIPaths,
		},
	})

	var events <-chan sortify.Event
	switch command {
	case "sort", "preview":
		events, err = e.Sort(ctx, sortify.SortOptions{
			Root:          dir,
			Order:         cfg.Order,
			TempoAnalysis: cfg.TempoAnalysis,
			Preview:       command == "preview",
		})
	case "undo":
		events, err = e.Undo(ctx, dir)
	default:
		return fmt.Errorf("unknown command %q", command)
	}
	if err != nil {
		return err
	}

	root, _ := filepath.Abs(dir)
	for ev := range events {
		switch ev := ev.(type) {
		case sortify.ProgressEvent:
			printProgress(root, ev, showDiff)
		case sortify.CompletionEvent:
			fmt.Println(ev.Summary)
			notify(ctx, &cfg.Notifications, ev)
			if ev.Err != nil {
				return ev.Err
			}
		}
	}
	return nil
}

func printProgress(root string, ev sortify.ProgressEvent, showDiff bool) {
	if !showDiff || ev.Dest == "" {
		fmt.Printf("[%d/%d] %s\n", ev.Index, ev.Total, ev.Message)
		return
	}
	d := diff.Paths(root, ev.Path, ev.Dest)
	fmt.Printf("[%d/%d] %s %s\n", ev.Index, ev.Total, ev.Status, d.Pretty())
}

func notify(ctx context.Context, n *notifications.Notifications, ev sortify.CompletionEvent) {
	switch {
	case ev.Kind == sortify.KindPreview:
	case ev.Err != nil && !errors.Is(ev.Err, context.Canceled):
		n.Send(ctx, notifications.SortError, ev.Summary)
	case ev.Kind == sortify.KindUndo:
		n.Send(ctx, notifications.UndoComplete, ev.Summary)
	case ev.Kind == sortify.KindSort:
		n.Send(ctx, notifications.SortComplete, ev.Summary)
	}
}

func printStats(ctx context.Context, cfg *cmds.Config, aliases genre.Aliases, dir string) error {
	paths, err := fileutil.Scan(dir)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	r := &metadata.Resolver{Tags: tg}
	st, err := stats.Aggregate(ctx, r, stats.Options{Aliases: aliases, ZeroTempo: cfg.ZeroTempo}, paths)
	if err != nil {
		return err
	}

	t := table.NewStringWriter()
	fmt.Fprintf(t, "files\t%d\n", st.Files)
	fmt.Fprintf(t, "size\t%s\n", stats.FormatBytes(st.TotalBytes))
	for _, sec := range []struct {
		name   string
		counts map[string]int
	}{
		{"genre", st.Genres},
		{"artist", st.Artists},
		{"tempo", st.TempoRanges},
	} {
		for _, k := range stats.Keys(sec.counts) {
			fmt.Fprintf(t, "%s\t%s\t%d\n", sec.name, k, sec.counts[k])
		}
	}
	fmt.Print(strings.TrimRight(t.String(), "\n") + "\n")
	return nil
}
