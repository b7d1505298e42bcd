package eutils

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"
)

func loadTestdata(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", filename))
	if err != nil {
		t.Fatalf("failed to load testdata/%s: %v", filename, err)
	}
	return data
}

func newTestClient(srvURL string, opts ...Option) *Client {
	base := []Option{WithBaseURL(srvURL), WithRateLimit(rate.Inf), WithRetry(3, 0)}
	c := NewClient(append(base, opts...)...)
	c.BatchDelay = 0
	return c
}

func TestSearch_Success(t *testing.T) {
	fixture := loadTestdata(t, "esearch_scapis.json")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/esearch.fcgi") {
			t.Errorf("expected esearch.fcgi, got %q", r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("db"); got != "pubmed" {
			t.Errorf("expected db=pubmed, got %q", got)
		}
		if got := q.Get("term"); got != DefaultQuery {
			t.Errorf("expected default query, got %q", got)
		}
		if got := q.Get("retmax"); got != "5000" {
			t.Errorf("expected retmax=5000, got %q", got)
		}
		if got := q.Get("retmode"); got != "json" {
			t.Errorf("expected retmode=json, got %q", got)
		}
		w.Write(fixture)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	result, err := c.Search(context.Background(), DefaultQuery, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Count != 3 {
		t.Errorf("expected count 3, got %d", result.Count)
	}
	want := []string{"38000001", "38000002", "38000003"}
	if len(result.IDs) != len(want) {
		t.Fatalf("expected %d IDs, got %d", len(want), len(result.IDs))
	}
	for i := range want {
		if result.IDs[i] != want[i] {
			t.Errorf("ID[%d]: expected %s, got %s", i, want[i], result.IDs[i])
		}
	}
	if result.QueryTranslation == "" {
		t.Error("expected query translation")
	}
}

func TestSearch_Empty(t *testing.T) {
	fixture := loadTestdata(t, "esearch_empty.json")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(fixture)
	}))
	defer srv.Close()

	result, err := newTestClient(srv.URL).Search(context.Background(), "nothing", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IDs == nil || len(result.IDs) != 0 {
		t.Errorf("expected empty non-nil IDs, got %#v", result.IDs)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	c := NewClient()
	if _, err := c.Search(context.Background(), "", 10); err == nil {
		t.Fatal("expected error for empty query")
	}
}

func TestSearch_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	if _, err := newTestClient(srv.URL).Search(context.Background(), "q", 10); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestParseArticles_Fixture(t *testing.T) {
	records, err := ParseArticles(loadTestdata(t, "efetch_batch.xml"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The third article has no Article element and is dropped.
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	a := records[0]
	if a.PMID != "38000001" {
		t.Errorf("expected PMID 38000001, got %q", a.PMID)
	}
	if a.Title != "Coronary atherosclerosis in the SCAPIS cohort." {
		t.Errorf("unexpected title %q", a.Title)
	}
	if a.Journal != "European heart journal" || a.JournalAbbrev != "Eur Heart J" {
		t.Errorf("unexpected journal %q / %q", a.Journal, a.JournalAbbrev)
	}
	if a.Year != "2023" {
		t.Errorf("expected year 2023, got %q", a.Year)
	}
	wantAbstract := "BACKGROUND: Silent coronary atherosclerosis is common. METHODS: We used CCTA in 25 182 participants."
	if a.Abstract != wantAbstract {
		t.Errorf("abstract mismatch:\n got %q\nwant %q", a.Abstract, wantAbstract)
	}
	if len(a.Authors) != 2 || a.Authors[0] != "Bergström G" || a.Authors[1] != "Persson M" {
		t.Errorf("unexpected authors %v", a.Authors)
	}
	if a.DOI != "10.1/x" {
		t.Errorf("expected DOI 10.1/x, got %q", a.DOI)
	}
	if len(a.Keywords) != 2 || a.Keywords[0] != "coronary computed tomography angiography" {
		t.Errorf("unexpected keywords %v", a.Keywords)
	}
	if len(a.MeSHTerms) != 2 || a.MeSHTerms[0] != "Coronary Artery Disease" {
		t.Errorf("unexpected MeSH terms %v", a.MeSHTerms)
	}
	if a.Source != "pubmed" {
		t.Errorf("expected source pubmed, got %q", a.Source)
	}

	b := records[1]
	if b.Year != "2019" {
		t.Errorf("expected MedlineDate fallback year 2019, got %q", b.Year)
	}
	if b.Abstract != "Lung function was measured in a population sample." {
		t.Errorf("unexpected unlabeled abstract %q", b.Abstract)
	}
	if b.DOI != "10.2/second" {
		t.Errorf("expected the last DOI to win, got %q", b.DOI)
	}
}

func TestParseArticles_ReferenceDOIIsLast(t *testing.T) {
	doc := `<PubmedArticleSet><PubmedArticle>
<MedlineCitation><PMID>1</PMID><Article><ArticleTitle>T</ArticleTitle></Article></MedlineCitation>
<PubmedData>
  <ArticleIdList><ArticleId IdType="doi">10.5/own</ArticleId></ArticleIdList>
  <ReferenceList><Reference><Citation>Ref</Citation>
    <ArticleIdList><ArticleId IdType="doi">10.5/cited</ArticleId></ArticleIdList>
  </Reference></ReferenceList>
</PubmedData>
</PubmedArticle></PubmedArticleSet>`

	records, err := ParseArticles([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].DOI != "10.5/cited" {
		t.Errorf("expected the last doi-typed id in the article, got %q", records[0].DOI)
	}
}

func TestParseArticles_YearEdgeCases(t *testing.T) {
	tests := []struct {
		name    string
		pubDate string
		want    string
	}{
		{"structured year", "<Year>2021</Year>", "2021"},
		{"medline range", "<MedlineDate>2020 Dec-2021 Jan</MedlineDate>", "2020"},
		{"no 20xx year", "<MedlineDate>1998 Spring</MedlineDate>", ""},
		{"missing", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `<PubmedArticleSet><PubmedArticle><MedlineCitation><PMID>1</PMID><Article>
<Journal><JournalIssue><PubDate>` + tt.pubDate + `</PubDate></JournalIssue></Journal>
<ArticleTitle>T</ArticleTitle></Article></MedlineCitation></PubmedArticle></PubmedArticleSet>`
			records, err := ParseArticles([]byte(doc))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if records[0].Year != tt.want {
				t.Errorf("expected year %q, got %q", tt.want, records[0].Year)
			}
		})
	}
}

func TestParseArticles_Malformed(t *testing.T) {
	if _, err := ParseArticles(loadTestdata(t, "efetch_malformed.xml")); err == nil {
		t.Fatal("expected error for malformed XML")
	}
}

func TestParseArticles_LogsDroppedArticle(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	records, err := parseArticles(loadTestdata(t, "efetch_batch.xml"), zap.New(core))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if n := logs.FilterMessage("failed to parse article").Len(); n != 1 {
		t.Errorf("expected 1 parse warning, got %d", n)
	}
}

func TestFetchDetails_Batches(t *testing.T) {
	fixture := loadTestdata(t, "efetch_batch.xml")
	var (
		mu      sync.Mutex
		batches []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("retmode"); got != "xml" {
			t.Errorf("expected retmode=xml, got %q", got)
		}
		mu.Lock()
		batches = append(batches, q.Get("id"))
		mu.Unlock()
		w.Write(fixture)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	c.BatchSize = 2

	ids := []string{"1", "2", "3", "4", "5"}
	records, err := c.FetchDetails(context.Background(), ids)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []string{"1,2", "3,4", "5"}
	if len(batches) != len(want) {
		t.Fatalf("expected %d batches, got %d (%v)", len(want), len(batches), batches)
	}
	for i := range want {
		if batches[i] != want[i] {
			t.Errorf("batch %d: expected ids %q, got %q", i, want[i], batches[i])
		}
	}
	// Every batch returns the two parseable fixture articles.
	if len(records) != 6 {
		t.Errorf("expected 6 records, got %d", len(records))
	}
}

func TestFetchDetails_SkipsFailedBatch(t *testing.T) {
	fixture := loadTestdata(t, "efetch_batch.xml")
	malformed := loadTestdata(t, "efetch_malformed.xml")
	var calls int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id") {
		case "1":
			w.WriteHeader(http.StatusInternalServerError)
			atomic.AddInt32(&calls, 1)
		case "2":
			w.Write(malformed)
		default:
			w.Write(fixture)
		}
	}))
	defer srv.Close()

	core, logs := observer.New(zapcore.WarnLevel)
	c := newTestClient(srv.URL, WithLogger(zap.New(core)))
	c.BatchSize = 1

	records, err := c.FetchDetails(context.Background(), []string{"1", "2", "3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected only the third batch's 2 records, got %d", len(records))
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("expected the failing batch to be retried 3 times, got %d", got)
	}
	if n := logs.FilterMessage("skipping batch").Len(); n != 2 {
		t.Errorf("expected 2 skipped batches logged, got %d", n)
	}
}

func TestFetchDetails_CanceledBetweenBatches(t *testing.T) {
	fixture := loadTestdata(t, "efetch_batch.xml")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	served := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(fixture)
		served <- struct{}{}
	}))
	defer srv.Close()

	go func() {
		<-served
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	c := newTestClient(srv.URL)
	c.BatchSize = 1
	c.BatchDelay = time.Hour

	records, err := c.FetchDetails(ctx, []string{"1", "2"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected records of the first batch, got %d", len(records))
	}
}

func TestFetchDetails_NoIDs(t *testing.T) {
	c := NewClient()
	records, err := c.FetchDetails(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}
