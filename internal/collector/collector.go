// Package collector runs the fetch stage: search PubMed, fetch details,
// consult the secondary source, merge, classify and sort.
package collector

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/henrybloomingdale/scapis-dashboard/internal/dataset"
	"github.com/henrybloomingdale/scapis-dashboard/internal/eutils"
	"github.com/henrybloomingdale/scapis-dashboard/internal/pubs"
	"github.com/henrybloomingdale/scapis-dashboard/internal/topics"
)

// PubMed is the primary source.
type PubMed interface {
	Search(ctx context.Context, query string, retMax int) (*eutils.SearchResult, error)
	FetchDetails(ctx context.Context, pmids []string) ([]pubs.Record, error)
}

// Secondary is a best-effort source that reports failure as no records.
type Secondary interface {
	Fetch(ctx context.Context) []pubs.Record
}

// Stats describes one run.
type Stats struct {
	RunID       string
	SearchCount int // hits reported by ESearch
	IDs         int // identifiers returned
	PubMed      int // records parsed from PubMed
	Secondary   int // records read from the secondary source
	Added       int // secondary records not already known
	Total       int // unique records written
}

// Collector wires the sources together. Secondary may be nil.
type Collector struct {
	PubMed     PubMed
	Secondary  Secondary
	Classifier pubs.Classifier
	Duplicate  pubs.DuplicateFunc
	Query      string
	RetMax     int
	Logger     *zap.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithSecondary adds the secondary source.
func WithSecondary(s Secondary) Option {
	return func(c *Collector) { c.Secondary = s }
}

// WithClassifier replaces the default topic table.
func WithClassifier(cl pubs.Classifier) Option {
	return func(c *Collector) { c.Classifier = cl }
}

// WithDuplicate replaces the title-prefix duplicate heuristic.
func WithDuplicate(d pubs.DuplicateFunc) Option {
	return func(c *Collector) { c.Duplicate = d }
}

// WithQuery sets the ESearch term and the identifier bound.
func WithQuery(query string, retMax int) Option {
	return func(c *Collector) {
		if query != "" {
			c.Query = query
		}
		if retMax > 0 {
			c.RetMax = retMax
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.Logger = l
		}
	}
}

// New creates a Collector over the primary source.
func New(pm PubMed, opts ...Option) *Collector {
	c := &Collector{
		PubMed:     pm,
		Classifier: topics.Default,
		Duplicate:  pubs.SameTitlePrefix,
		Query:      eutils.DefaultQuery,
		RetMax:     eutils.DefaultRetMax,
		Logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes one collection. Source failures are logged and absorbed, so
// an unreachable PubMed still yields a (possibly empty) document. Only
// cancellation of ctx is returned as an error.
func (c *Collector) Run(ctx context.Context) (dataset.Document, Stats, error) {
	st := Stats{RunID: uuid.NewString()}
	log := c.Logger.With(zap.String("run_id", st.RunID))

	primary, err := c.fetchPrimary(ctx, log, &st)
	if err != nil {
		return dataset.Document{}, st, err
	}

	var secondary []pubs.Record
	if c.Secondary != nil {
		secondary = c.Secondary.Fetch(ctx)
		if err := ctx.Err(); err != nil {
			return dataset.Document{}, st, fmt.Errorf("secondary source: %w", err)
		}
	}
	st.Secondary = len(secondary)

	merged := pubs.Merge(primary, secondary, c.Duplicate)
	st.Added = merged.Added
	if merged.Added > 0 {
		log.Info("added publications from SCAPIS website not found in PubMed",
			zap.Int("added", merged.Added))
	}

	doc := dataset.Document{Publications: pubs.Build(merged.Records, c.Classifier)}
	st.Total = len(doc.Publications)
	log.Info("collection finished",
		zap.Int("pubmed", st.PubMed),
		zap.Int("secondary", st.Secondary),
		zap.Int("total", st.Total))
	return doc, st, nil
}

func (c *Collector) fetchPrimary(ctx context.Context, log *zap.Logger, st *Stats) ([]pubs.Record, error) {
	log.Info("searching PubMed", zap.String("query", c.Query))
	res, err := c.PubMed.Search(ctx, c.Query, c.RetMax)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("searching PubMed: %w", ctx.Err())
		}
		log.Warn("PubMed search failed", zap.Error(err))
		return nil, nil
	}
	st.SearchCount = res.Count
	st.IDs = len(res.IDs)
	log.Info("found PubMed IDs", zap.Int("ids", st.IDs), zap.Int("count", res.Count))

	if len(res.IDs) == 0 {
		return nil, nil
	}
	records, err := c.PubMed.FetchDetails(ctx, res.IDs)
	if err != nil {
		return nil, fmt.Errorf("fetching details: %w", err)
	}
	st.PubMed = len(records)
	log.Info("fetched PubMed publications", zap.Int("publications", st.PubMed))
	return records, nil
}
