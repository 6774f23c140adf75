// Command query asks the place collection a question from the terminal,
// optionally renaming a store first.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/WessleyAI/tourvec/engine/filter"
	"github.com/WessleyAI/tourvec/engine/search"
	"github.com/WessleyAI/tourvec/engine/semantic"
	"github.com/WessleyAI/tourvec/pkg/config"
	"github.com/WessleyAI/tourvec/pkg/embedding"
	"github.com/fatih/color"
)

var (
	envFile    = flag.String("env", ".env", "optional .env file")
	cities     = flag.String("cities", "", "comma-separated cities")
	categories = flag.String("categories", "", "comma-separated categories")
	from       = flag.String("from", "", "earliest creation date, YYYY-MM-DD")
	to         = flag.String("to", "", "latest creation date, YYYY-MM-DD")
	rename     = flag.String("rename", "", "OLD=NEW: set the display name of store OLD to NEW before querying")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: query [flags] question...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	question := strings.Join(flag.Args(), " ")

	cfg, err := config.Load(*envFile)
	if err != nil {
		fail(err)
	}
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.LogFormat = "text"
	}
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.LogLevel = slog.LevelWarn
	}
	logger := cfg.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, closeFn, err := open(ctx, cfg, logger)
	if err != nil {
		fail(err)
	}
	defer closeFn()

	names, err := ask(ctx, svc, question)
	if err != nil {
		fail(err)
	}
	printNames(os.Stdout, question, names)
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, color.New(color.FgRed, color.Bold).Sprint("error: ")+err.Error())
	os.Exit(1)
}

func open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*search.Service, func(), error) {
	backend, err := semantic.NewBackend(cfg.Store, cfg.BackendAddr(), cfg.Collection)
	if err != nil {
		return nil, nil, err
	}
	embed, err := embedding.New(ctx, cfg.Embedding)
	if err != nil {
		backend.Close()
		return nil, nil, err
	}
	closeFn := func() {
		embed.Close()
		backend.Close()
	}
	coll, err := semantic.Open(ctx, cfg.Collection, backend, embed, cfg.EmbedDims, logger)
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return search.New(coll, filter.NewBuilder(cfg.Location), search.Deps{Logger: logger}), closeFn, nil
}

// ask runs a search, or a rename followed by a search when -rename is set.
func ask(ctx context.Context, svc *search.Service, question string) ([]string, error) {
	if *rename != "" {
		oldName, newName, ok := strings.Cut(*rename, "=")
		if !ok || oldName == "" {
			return nil, fmt.Errorf("-rename wants OLD=NEW, got %q", *rename)
		}
		req := search.RenameRequest{
			Question:     question,
			StoreName:    oldName,
			NewStoreName: newName,
			Cities:       splitList(*cities),
			Categories:   splitList(*categories),
		}
		if err := req.Validate(); err != nil {
			return nil, err
		}
		return svc.RenameAndSearch(ctx, req)
	}

	req := search.SearchRequest{
		Question:   question,
		Cities:     splitList(*cities),
		Categories: splitList(*categories),
		StartDate:  *from,
		EndDate:    *to,
	}
	opts, err := req.Options()
	if err != nil {
		return nil, err
	}
	return svc.Search(ctx, question, opts)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printNames(w io.Writer, question string, names []string) {
	bold := color.New(color.FgCyan, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	fmt.Fprintf(w, "%s %s\n", bold("Q:"), question)
	if len(names) == 0 {
		fmt.Fprintln(w, dim("no relevant places"))
		return
	}
	green := color.New(color.FgGreen).SprintFunc()
	for i, n := range names {
		fmt.Fprintf(w, "%s %s\n", dim(fmt.Sprintf("%2d.", i+1)), green(n))
	}
}
