package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"

	"github.com/cognicore/lica/internal/logging"
	"github.com/cognicore/lica/pkg/lica"
	"github.com/cognicore/lica/pkg/lica/dataset"
	"github.com/cognicore/lica/pkg/lica/internalerr"
)

const coinweekURL = "http://www.coinweek.com/us-coins/the-marvelous-pogue-family-coin-collection-part-2-the-oliver-jung-1833-half-dime/"

func packaged(t *testing.T) *lica.Classifier {
	t.Helper()
	c, err := lica.Build(context.Background(), dataset.Embedded(), lica.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return c
}

func TestClassifyOne(t *testing.T) {
	var buf bytes.Buffer
	if err := classifyOne(&buf, packaged(t), "http://www.espn.com/", "", false); err != nil {
		t.Fatalf("classifyOne: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != `["sports","general"]` {
		t.Errorf("Output = %q", got)
	}
}

func TestClassifyOneKeepsAmpersand(t *testing.T) {
	var buf bytes.Buffer
	err := classifyOne(&buf, packaged(t), coinweekURL, "", false)
	if err != nil {
		t.Fatalf("classifyOne: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != `["hobbies & interests","coins"]` {
		t.Errorf("Output = %q", got)
	}
}

func TestRunBatchKeepsAmpersand(t *testing.T) {
	input := `{"url": "` + coinweekURL + `"}`

	var out bytes.Buffer
	if _, err := runBatch(context.Background(), packaged(t), strings.NewReader(input), &out, "run"); err != nil {
		t.Fatalf("runBatch: %v", err)
	}
	if !strings.Contains(out.String(), `"category":["hobbies & interests","coins"]`) {
		t.Errorf("Batch output escaped the category: %s", out.String())
	}
}

func TestLogIndexListsWebStoplist(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.NewTo(&buf, "debug", false)
	if err != nil {
		t.Fatal(err)
	}
	logIndex(log, packaged(t), "packaged")

	var entry struct {
		Message string   `json:"message"`
		Web     []string `json:"web_stoplist"`
	}
	line, _, _ := strings.Cut(buf.String(), "\n")
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("Decode log line: %v", err)
	}
	if entry.Message != "index built" || !slices.Contains(entry.Web, "login") {
		t.Errorf("Unexpected index log %+v", entry)
	}
}

func TestClassifyOneExplain(t *testing.T) {
	var buf bytes.Buffer
	if err := classifyOne(&buf, packaged(t), "", "pga birdie", true); err != nil {
		t.Fatalf("classifyOne: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`["sports","golf"]`, "step: keywords", "matched: pga, birdie"} {
		if !strings.Contains(out, want) {
			t.Errorf("Explain output missing %q:\n%s", want, out)
		}
	}
}

func TestClassifyOneNoInput(t *testing.T) {
	err := classifyOne(&bytes.Buffer{}, packaged(t), "", "", false)
	if !errors.Is(err, internalerr.ErrNoInput) {
		t.Errorf("Expected ErrNoInput, got %v", err)
	}
}

func TestRunBatch(t *testing.T) {
	input := strings.Join([]string{
		`{"url": "http://www.espn.com/nba", "title": ""}`,
		``,
		`{"title": "sommelier notes"}`,
		`not json`,
		`{"url": "localhost"}`,
	}, "\n")

	runID := ulid.Make().String()
	var out bytes.Buffer
	n, err := runBatch(context.Background(), packaged(t), strings.NewReader(input), &out, runID)
	if err != nil {
		t.Fatalf("runBatch: %v", err)
	}
	if n != 5 {
		t.Errorf("Lines = %d, want 5", n)
	}

	var results []batchResult
	dec := json.NewDecoder(&out)
	for dec.More() {
		var r batchResult
		if err := dec.Decode(&r); err != nil {
			t.Fatalf("Decode: %v", err)
		}
		results = append(results, r)
	}
	if len(results) != 4 {
		t.Fatalf("Expected 4 results, got %d", len(results))
	}

	for _, r := range results {
		if r.RunID != runID {
			t.Errorf("Result %d has run id %q", r.Line, r.RunID)
		}
	}
	if results[0].Category == nil || results[0].Category.Top != "sports" {
		t.Errorf("Line 1 = %+v", results[0])
	}
	if results[1].Line != 3 || results[1].Category == nil || results[1].Category.Sub != "wine" {
		t.Errorf("Line 3 = %+v", results[1])
	}
	if results[2].Error == "" || results[3].Error == "" {
		t.Errorf("Bad lines should carry errors: %+v %+v", results[2], results[3])
	}
}
