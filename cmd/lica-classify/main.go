package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/cognicore/lica/internal/logging"
	"github.com/cognicore/lica/pkg/lica"
	"github.com/cognicore/lica/pkg/lica/config"
	"github.com/cognicore/lica/pkg/lica/taxonomy"
)

func main() {
	var (
		rawURL   = flag.String("url", "", "Page URL")
		title    = flag.String("title", "", "Page title")
		dataDir  = flag.String("data", "", "Dataset directory (default: packaged data)")
		dbPath   = flag.String("db", "", "Dataset sqlite database (overrides -data)")
		explain  = flag.Bool("explain", false, "Print the decision trace")
		batch    = flag.String("batch", "", "JSONL file of {\"url\",\"title\"} lines, - for stdin")
		logLevel = flag.String("log-level", "warn", "Log level")
	)
	flag.Parse()

	log, err := logging.New(*logLevel, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if *batch == "" && *rawURL == "" && *title == "" {
		log.Fatal().Msg("--url, --title or --batch required")
	}

	ctx := context.Background()
	loader := config.Loader{DataDir: *dataDir, DatabasePath: *dbPath, CacheSize: 1024}

	c, err := loader.Load(ctx)
	if err != nil {
		log.Fatal().Err(err).Str("source", loader.Source()).Msg("failed to build classifier")
	}
	logIndex(log, c, loader.Source())

	if *batch != "" {
		in, closeIn, err := openBatch(*batch)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to open batch")
		}
		defer closeIn()

		runID := ulid.Make().String()
		n, err := runBatch(ctx, c, in, os.Stdout, runID)
		if err != nil {
			log.Fatal().Err(err).Str("run_id", runID).Msg("batch failed")
		}
		log.Info().Str("run_id", runID).Int("lines", n).Msg("batch complete")
		return
	}

	if err := classifyOne(os.Stdout, c, *rawURL, *title, *explain); err != nil {
		log.Fatal().Err(err).Msg("classification failed")
	}
}

func logIndex(log zerolog.Logger, c *lica.Classifier, source string) {
	st := c.Index().Stats()
	log.Debug().
		Str("source", source).
		Int("categories", st.Categories).
		Int("keywords", st.Keywords).
		Int("domain_rules", st.DomainRules).
		Int("host_rules", st.HostRules).
		Int("path_rules", st.PathRules).
		Strs("web_stoplist", c.Index().Web.All()).
		Msg("index built")
	for _, col := range c.Index().Collisions {
		log.Debug().
			Str("keyword", col.Keyword).
			Stringer("kept", col.Kept).
			Stringer("dropped", col.Dropped).
			Msg("keyword collision")
	}
}

func openBatch(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

func classifyOne(w io.Writer, c *lica.Classifier, rawURL, title string, explain bool) error {
	res, err := c.Explain(rawURL, title)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(res.Category); err != nil {
		return err
	}
	if !explain {
		return nil
	}

	fmt.Fprintf(w, "  step: %s\n", res.Step)
	if res.Components != nil {
		fmt.Fprintf(w, "  domain: %s (suffix %s)\n", res.Components.Domain, res.Components.Suffix)
		if res.Components.Subdomain != "" {
			fmt.Fprintf(w, "  subdomain: %s\n", res.Components.Subdomain)
		}
		if res.Components.Path != "" {
			fmt.Fprintf(w, "  path: %s\n", res.Components.Path)
		}
	}
	if res.StopToken != "" {
		fmt.Fprintf(w, "  stop token: %s\n", res.StopToken)
	}
	if len(res.Matched) > 0 {
		fmt.Fprintf(w, "  matched: %s\n", strings.Join(res.Matched, ", "))
	}
	for _, h := range res.Hits {
		fmt.Fprintf(w, "  %-40s %d\n", h.Category, h.Count)
	}
	return nil
}

type batchLine struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type batchResult struct {
	RunID    string                 `json:"run_id"`
	Line     int                    `json:"line"`
	URL      string                 `json:"url,omitempty"`
	Title    string                 `json:"title,omitempty"`
	Category *taxonomy.CategoryPair `json:"category,omitempty"`
	Step     lica.Step              `json:"step,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// runBatch classifies one JSON object per input line. Bad lines produce an
// error record rather than stopping the run.
func runBatch(ctx context.Context, c *lica.Classifier, r io.Reader, w io.Writer, runID string) (int, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)

	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return lineNo, err
		}
		text := strings.TrimSpace(scanner.Text())
		lineNo++
		if text == "" {
			continue
		}

		out := batchResult{RunID: runID, Line: lineNo}
		var in batchLine
		if err := json.Unmarshal([]byte(text), &in); err != nil {
			out.Error = fmt.Sprintf("decode: %v", err)
		} else {
			out.URL, out.Title = in.URL, in.Title
			res, err := c.Explain(in.URL, in.Title)
			if err != nil {
				out.Error = err.Error()
			} else {
				out.Category = &res.Category
				out.Step = res.Step
			}
		}

		if err := enc.Encode(out); err != nil {
			return lineNo, fmt.Errorf("write result: %w", err)
		}
	}

	return lineNo, scanner.Err()
}
