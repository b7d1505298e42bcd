package collector

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/time/rate"

	"github.com/henrybloomingdale/scapis-dashboard/internal/eutils"
	"github.com/henrybloomingdale/scapis-dashboard/internal/ncbi"
	"github.com/henrybloomingdale/scapis-dashboard/internal/pubs"
	"github.com/henrybloomingdale/scapis-dashboard/internal/scapis"
	"github.com/henrybloomingdale/scapis-dashboard/internal/topics"
)

func loadTestdata(t *testing.T, filename string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", filename))
	require.NoError(t, err, "failed to load testdata/%s", filename)
	return data
}

type fakePubMed struct {
	ids       []string
	searchErr error
	records   []pubs.Record
	fetchErr  error

	gotQuery  string
	gotRetMax int
	fetched   [][]string
}

func (f *fakePubMed) Search(ctx context.Context, query string, retMax int) (*eutils.SearchResult, error) {
	f.gotQuery, f.gotRetMax = query, retMax
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return &eutils.SearchResult{Count: len(f.ids), IDs: f.ids}, nil
}

func (f *fakePubMed) FetchDetails(ctx context.Context, pmids []string) ([]pubs.Record, error) {
	f.fetched = append(f.fetched, pmids)
	return f.records, f.fetchErr
}

type fakeSecondary []pubs.Record

func (f fakeSecondary) Fetch(ctx context.Context) []pubs.Record { return f }

func TestRun_PrimaryWinsOnDOI(t *testing.T) {
	pm := &fakePubMed{
		ids: []string{"38000001"},
		records: []pubs.Record{{
			PMID: "38000001", Title: "Coronary plaque in SCAPIS", DOI: "10.1/x",
			Abstract: "PubMed abstract.", Year: "2023", Source: pubs.SourcePubMed,
		}},
	}
	sec := fakeSecondary{{Title: "Coronary plaque (web)", DOI: "10.1/X", Abstract: "Website abstract.", Source: pubs.SourceSCAPIS}}

	doc, st, err := New(pm, WithSecondary(sec)).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, doc.Publications, 1)
	assert.Equal(t, "PubMed abstract.", doc.Publications[0].Abstract)
	assert.Equal(t, 0, st.Added)
	assert.Equal(t, 1, st.Total)
	assert.Equal(t, [][]string{{"38000001"}}, pm.fetched)
}

func TestRun_EmptySources(t *testing.T) {
	pm := &fakePubMed{}
	doc, st, err := New(pm, WithSecondary(fakeSecondary(nil))).Run(context.Background())
	require.NoError(t, err)

	assert.NotNil(t, doc.Publications)
	assert.Empty(t, doc.Publications)
	assert.Empty(t, pm.fetched, "no identifiers means no detail requests")
	assert.Equal(t, 0, st.Total)
}

func TestRun_SearchFailureIsAbsorbed(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	pm := &fakePubMed{searchErr: errors.New("after 3 attempts: server returned HTTP 503")}
	sec := fakeSecondary{{Title: "Only on the website", Year: "2022"}}

	doc, st, err := New(pm, WithSecondary(sec), WithLogger(zap.New(core))).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, doc.Publications, 1)
	assert.Equal(t, 1, st.Added)
	assert.Equal(t, []string{topics.Other}, doc.Publications[0].Topics)
	assert.Equal(t, 1, logs.FilterMessage("PubMed search failed").Len())
}

func TestRun_RunIDOnEveryLine(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	_, st, err := New(&fakePubMed{}, WithLogger(zap.New(core))).Run(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, st.RunID)
	require.NotZero(t, logs.Len())
	for _, entry := range logs.All() {
		assert.Equal(t, st.RunID, entry.ContextMap()["run_id"], "entry %q", entry.Message)
	}
}

func TestRun_Options(t *testing.T) {
	pm := &fakePubMed{}
	tbl := topics.MustTable([]topics.Rule{{Label: "Lungs", Keywords: []string{"lung"}}})
	sec := fakeSecondary{{Title: "Lung function"}, {Title: "Lung function, revisited"}}
	never := func(a, b string) bool { return false }

	doc, _, err := New(pm,
		WithQuery("SCAPIS[ti]", 10),
		WithClassifier(tbl),
		WithDuplicate(never),
		WithSecondary(sec),
	).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "SCAPIS[ti]", pm.gotQuery)
	assert.Equal(t, 10, pm.gotRetMax)
	require.Len(t, doc.Publications, 2)
	assert.Equal(t, []string{"Lungs"}, doc.Publications[0].Topics)
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pm := &fakePubMed{ids: []string{"1"}, fetchErr: context.Canceled}

	_, _, err := New(pm).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

// TestRun_EndToEnd drives the real clients against fixture servers.
func TestRun_EndToEnd(t *testing.T) {
	search := loadTestdata(t, "esearch_scapis.json")
	fetch := loadTestdata(t, "efetch_batch.xml")
	page := loadTestdata(t, "page_data_nodes.json")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/esearch.fcgi"):
			w.Write(search)
		case strings.HasSuffix(r.URL.Path, "/efetch.fcgi"):
			w.Write(fetch)
		case strings.HasSuffix(r.URL.Path, "/page-data.json"):
			w.Write(page)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	base := ncbi.NewBaseClient(
		ncbi.WithBaseURL(srv.URL+"/entrez/eutils"),
		ncbi.WithRateLimit(rate.Inf),
		ncbi.WithRetry(1, 0),
	)
	pm := eutils.NewClientWithBase(base)
	pm.BatchDelay = 0
	sec := scapis.NewClient(base, srv.URL+"/page-data/publications/page-data.json")

	doc, st, err := New(pm, WithSecondary(sec)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, st.IDs)
	assert.Equal(t, 2, st.PubMed)
	assert.Equal(t, 2, st.Secondary)
	assert.Equal(t, 1, st.Added)
	require.Len(t, doc.Publications, 3)

	var years []string
	for _, p := range doc.Publications {
		years = append(years, p.Year)
	}
	assert.Equal(t, []string{"2023", "2021", "2019"}, years)

	first := doc.Publications[0]
	assert.Equal(t, "10.1/x", first.DOI)
	assert.Equal(t, "BACKGROUND: Silent coronary atherosclerosis is common. METHODS: We used CCTA in 25 182 participants.", first.Abstract)
	assert.Equal(t, "Bergström G, Persson M", first.Authors)
	assert.Equal(t, 2, first.AuthorCount)
	assert.Equal(t, []string{"Cardiovascular", "Imaging"}, first.Topics)

	web := doc.Publications[1]
	assert.Equal(t, "Sleep apnea and arterial stiffness", web.Title)
	assert.Equal(t, "Lindberg E", web.FirstAuthor)
	assert.Equal(t, 0, web.AuthorCount)
	assert.Equal(t, []string{"Cardiovascular", "Risk Factors"}, web.Topics)
}
