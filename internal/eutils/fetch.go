package eutils

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/henrybloomingdale/scapis-dashboard/internal/ncbi"
	"github.com/henrybloomingdale/scapis-dashboard/internal/pubs"
)

// XML structures for parsing PubMed EFetch responses.

type pubmedArticle struct {
	Citation   *medlineCitation `xml:"MedlineCitation"`
	PubmedData pubmedData       `xml:"PubmedData"`
}

type medlineCitation struct {
	PMID            string             `xml:"PMID"`
	Article         *xmlArticle        `xml:"Article"`
	MeshHeadingList xmlMeshHeadingList `xml:"MeshHeadingList"`
	KeywordLists    []xmlKeywordList   `xml:"KeywordList"`
}

type xmlArticle struct {
	Journal      xmlJournal    `xml:"Journal"`
	ArticleTitle xmlText       `xml:"ArticleTitle"`
	Abstract     xmlAbstract   `xml:"Abstract"`
	AuthorList   xmlAuthorList `xml:"AuthorList"`
}

type xmlJournal struct {
	JournalIssue    xmlJournalIssue `xml:"JournalIssue"`
	Title           string          `xml:"Title"`
	ISOAbbreviation string          `xml:"ISOAbbreviation"`
}

type xmlJournalIssue struct {
	PubDate xmlPubDate `xml:"PubDate"`
}

type xmlPubDate struct {
	Year        string `xml:"Year"`
	MedlineDate string `xml:"MedlineDate"`
}

type xmlAbstract struct {
	AbstractTexts []xmlAbstractText `xml:"AbstractText"`
}

type xmlAbstractText struct {
	Label string
	Text  string
}

// UnmarshalXML keeps the Label attribute and flattens nested markup.
func (a *xmlAbstractText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, attr := range start.Attr {
		if attr.Name.Local == "Label" {
			a.Label = attr.Value
		}
	}
	var t xmlText
	if err := t.UnmarshalXML(d, start); err != nil {
		return err
	}
	a.Text = string(t)
	return nil
}

type xmlAuthorList struct {
	Authors []xmlAuthor `xml:"Author"`
}

type xmlAuthor struct {
	LastName string `xml:"LastName"`
	Initials string `xml:"Initials"`
}

type xmlMeshHeadingList struct {
	MeshHeadings []xmlMeshHeading `xml:"MeshHeading"`
}

type xmlMeshHeading struct {
	Descriptor string `xml:"DescriptorName"`
}

type xmlKeywordList struct {
	Keywords []xmlText `xml:"Keyword"`
}

type pubmedData struct {
	ArticleIDList xmlArticleIDList   `xml:"ArticleIdList"`
	ReferenceList []xmlReferenceList `xml:"ReferenceList"`
}

type xmlReferenceList struct {
	References []xmlReference `xml:"Reference"`
}

type xmlReference struct {
	ArticleIDList xmlArticleIDList `xml:"ArticleIdList"`
}

type xmlArticleIDList struct {
	ArticleIDs []xmlArticleID `xml:"ArticleId"`
}

type xmlArticleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

// xmlText collects all character data of an element, including text inside
// nested formatting tags such as <i> or <sup>.
type xmlText string

func (t *xmlText) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var b strings.Builder
	depth := 1
	for depth > 0 {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch v := tok.(type) {
		case xml.StartElement:
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			b.Write(v)
		}
	}
	*t = xmlText(b.String())
	return nil
}

var medlineYearRe = regexp.MustCompile(`20\d{2}`)

// errNoArticle marks a PubmedArticle without MedlineCitation/Article.
var errNoArticle = errors.New("article has no MedlineCitation/Article element")

// FetchDetails retrieves records for the given PMIDs in batches of
// BatchSize, waiting BatchDelay between consecutive requests. A batch that
// fails to download or parse is logged and skipped. The only error returned
// is context cancellation, alongside the records gathered so far.
func (c *Client) FetchDetails(ctx context.Context, pmids []string) ([]pubs.Record, error) {
	size := c.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	var records []pubs.Record
	total := len(pmids)
	for start := 0; start < total; start += size {
		if start > 0 {
			if err := ncbi.SleepWithContext(ctx, c.BatchDelay); err != nil {
				return records, err
			}
		}

		end := min(start+size, total)
		c.Logger.Info("fetching details",
			zap.Int("from", start+1),
			zap.Int("to", end),
			zap.Int("total", total))

		batch, err := c.Fetch(ctx, pmids[start:end])
		if err != nil {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			c.Logger.Warn("skipping batch",
				zap.Int("from", start+1),
				zap.Int("to", end),
				zap.Error(err))
			continue
		}
		records = append(records, batch...)
	}
	return records, nil
}

// Fetch retrieves and parses one EFetch batch.
func (c *Client) Fetch(ctx context.Context, pmids []string) ([]pubs.Record, error) {
	if len(pmids) == 0 {
		return nil, fmt.Errorf("at least one PMID is required")
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", strings.Join(pmids, ","))
	params.Set("retmode", "xml")

	body, err := c.DoGet(ctx, "efetch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("fetch request failed: %w", err)
	}

	return parseArticles(body, c.Logger)
}

// parseArticles decodes every PubmedArticle in data. Articles that cannot be
// converted are logged and dropped; malformed XML fails the whole batch.
func parseArticles(data []byte, log *zap.Logger) ([]pubs.Record, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var records []pubs.Record
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing PubMed XML: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "PubmedArticle" {
			continue
		}

		var pa pubmedArticle
		if err := dec.DecodeElement(&pa, &se); err != nil {
			return nil, fmt.Errorf("parsing PubMed XML: %w", err)
		}
		rec, err := convertArticle(pa)
		if err != nil {
			log.Warn("failed to parse article", zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// ParseArticles parses an EFetch XML document into records.
func ParseArticles(data []byte) ([]pubs.Record, error) {
	return parseArticles(data, zap.NewNop())
}

func convertArticle(pa pubmedArticle) (pubs.Record, error) {
	if pa.Citation == nil || pa.Citation.Article == nil {
		return pubs.Record{}, errNoArticle
	}
	mc := pa.Citation
	xa := mc.Article

	r := pubs.Record{
		PMID:          strings.TrimSpace(mc.PMID),
		Title:         string(xa.ArticleTitle),
		Journal:       xa.Journal.Title,
		JournalAbbrev: xa.Journal.ISOAbbreviation,
		Year:          pubYear(xa.Journal.JournalIssue.PubDate),
		Abstract:      joinAbstract(xa.Abstract.AbstractTexts),
		DOI:           lastDOI(pa.PubmedData),
		Source:        pubs.SourcePubMed,
	}

	for _, au := range xa.AuthorList.Authors {
		if au.LastName == "" {
			continue
		}
		r.Authors = append(r.Authors, strings.TrimSpace(au.LastName+" "+au.Initials))
	}

	for _, kl := range mc.KeywordLists {
		for _, kw := range kl.Keywords {
			if kw != "" {
				r.Keywords = append(r.Keywords, string(kw))
			}
		}
	}

	for _, mh := range mc.MeshHeadingList.MeshHeadings {
		if mh.Descriptor != "" {
			r.MeSHTerms = append(r.MeSHTerms, mh.Descriptor)
		}
	}

	return r, nil
}

// pubYear prefers the structured year and falls back to the first 20xx in
// the free-text MedlineDate ("2019 Nov-Dec").
func pubYear(d xmlPubDate) string {
	if d.Year != "" {
		return d.Year
	}
	return medlineYearRe.FindString(d.MedlineDate)
}

// joinAbstract joins non-empty sections with a space, prefixing "Label: ".
func joinAbstract(sections []xmlAbstractText) string {
	var parts []string
	for _, s := range sections {
		text := strings.TrimSpace(s.Text)
		if text == "" {
			continue
		}
		if s.Label != "" {
			text = s.Label + ": " + text
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, " ")
}

// lastDOI returns the last doi-typed ArticleId in document order, reference
// lists included.
func lastDOI(pd pubmedData) string {
	doi := ""
	pick := func(ids []xmlArticleID) {
		for _, id := range ids {
			if id.IDType == "doi" {
				doi = id.Value
			}
		}
	}
	pick(pd.ArticleIDList.ArticleIDs)
	for _, rl := range pd.ReferenceList {
		for _, ref := range rl.References {
			pick(ref.ArticleIDList.ArticleIDs)
		}
	}
	return doi
}
