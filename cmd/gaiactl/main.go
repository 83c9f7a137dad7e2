package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/park285/gaia-game-search/internal/apiclient"
	"github.com/park285/gaia-game-search/internal/msgcat"
	"github.com/park285/gaia-game-search/internal/query"
	"github.com/park285/gaia-game-search/pkg/searchdto"
)

const usage = `usage: gaiactl [-api URL] <command> [args]

commands:
  ingest [-j N] <bundle.json>...   upload finished tables
  search [-limit N] [-offset N] <q>  run a search; q is SearchRequest JSON
  players [filter]                 list player names
  game <tableId>                   show one stored table`

func main() {
	log.SetFlags(0)
	apiURL := flag.String("api", envDefault("GAIA_API_URL", "http://localhost:8080"), "search API base URL")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Usage = func() { fmt.Fprintln(os.Stderr, usage) }
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	client := apiclient.NewClient(*apiURL)
	cat, err := msgcat.New(os.Getenv("GAIACTL_TEMPLATES"))
	if err != nil {
		log.Fatalf("templates: %v", err)
	}
	out := &printer{cat: cat}
	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	args := flag.Args()[1:]
	switch flag.Arg(0) {
	case "ingest":
		err = runIngest(ctx, client, out, args)
	case "search":
		err = runSearch(ctx, client, out, args)
	case "players":
		err = runPlayers(ctx, client, out, args)
	case "game":
		err = runGame(ctx, client, out, args)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", flag.Arg(0), err)
	}
}

func runIngest(ctx context.Context, client *apiclient.Client, out *printer, args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	workers := fs.Int("j", 4, "parallel uploads")
	_ = fs.Parse(args)
	if fs.NArg() == 0 {
		return errors.New("no bundle files given")
	}

	var created, duplicates atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(*workers, 1))
	for _, path := range fs.Args() {
		g.Go(func() error {
			b, err := readBundle(path)
			if err != nil {
				return err
			}
			game, err := client.Ingest(gctx, b)
			switch {
			case apiclient.IsCode(err, searchdto.ErrDuplicateGame):
				duplicates.Add(1)
				out.line("ingest.duplicate", map[string]any{"Path": path, "TableID": int64(b.TableID)})
				return nil
			case err != nil:
				return fmt.Errorf("%s: %w", path, err)
			}
			created.Add(1)
			out.line("ingest.stored", map[string]any{"Path": path, "TableID": game.TableID, "PlayerCount": game.PlayerCount})
			return nil
		})
	}
	err := g.Wait()
	out.line("ingest.total", map[string]any{"Created": created.Load(), "Duplicates": duplicates.Load()})
	return err
}

func readBundle(path string) (*searchdto.Bundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b searchdto.Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &b, nil
}

func runSearch(ctx context.Context, client *apiclient.Client, out *printer, args []string) error {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	limit := fs.Int("limit", 0, "page size")
	offset := fs.Int("offset", 0, "page offset")
	_ = fs.Parse(args)

	var req query.SearchRequest
	if q := strings.TrimSpace(strings.Join(fs.Args(), " ")); q != "" {
		if err := json.Unmarshal([]byte(q), &req); err != nil {
			return fmt.Errorf("parse request: %w", err)
		}
	}
	resp, err := client.Search(ctx, req, *limit, *offset)
	if err != nil {
		return err
	}
	out.line("search.summary", map[string]any{"Total": resp.Total, "Shown": len(resp.Games), "Offset": resp.Offset})
	for _, g := range resp.Games {
		minElo := 0
		if g.MinPlayerElo != nil {
			minElo = *g.MinPlayerElo
		}
		out.line("search.game", map[string]any{
			"TableID":      g.TableID,
			"PlayerCount":  g.PlayerCount,
			"WinnerName":   g.WinnerName,
			"MinPlayerElo": minElo,
		})
		for _, p := range g.Players {
			labels := make([]string, 0, len(p.Labels))
			for _, l := range p.Labels {
				labels = append(labels, l.Text)
			}
			out.line("search.player", map[string]any{
				"Name":       p.Name,
				"RaceName":   p.RaceName,
				"FinalScore": p.FinalScore,
				"Labels":     labels,
			})
		}
	}
	return nil
}

func runPlayers(ctx context.Context, client *apiclient.Client, out *printer, args []string) error {
	names, err := client.Players(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}
	for _, n := range names {
		fmt.Println(n)
	}
	return nil
}

func runGame(ctx context.Context, client *apiclient.Client, out *printer, args []string) error {
	if len(args) != 1 {
		return errors.New("expected exactly one table id")
	}
	tableID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("table id: %w", err)
	}
	g, err := client.Game(ctx, tableID)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(g)
}

func envDefault(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

// printer writes catalog messages to stdout, one per line. Output goes
// through a mutex since ingest workers print concurrently.
type printer struct {
	mu  sync.Mutex
	cat *msgcat.Catalog
}

func (p *printer) line(key string, data map[string]any) {
	text, err := p.cat.Render(key, data)
	if err != nil {
		text = fmt.Sprintf("%s %v (template error: %v)", key, data, err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Println(text)
}
