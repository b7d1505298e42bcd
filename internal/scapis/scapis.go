// Package scapis reads the publication list published on the SCAPIS website.
//
// The site is a static build whose page-data JSON has no stable schema, so the
// record collection is located by probing the fields of result.data with a
// fixed list of shape detectors. The source is best effort: every failure is
// logged and reported as an empty result.
package scapis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/henrybloomingdale/scapis-dashboard/internal/ncbi"
	"github.com/henrybloomingdale/scapis-dashboard/internal/pubs"
)

// DefaultURL is the page-data document behind scapis.org/publications.
const DefaultURL = "https://www.scapis.org/page-data/publications/page-data.json"

// Client fetches the secondary publication list.
type Client struct {
	*ncbi.BaseClient

	URL string
}

// NewClient creates a client for url sharing base's retry loop and limits.
// An empty url selects DefaultURL.
func NewClient(base *ncbi.BaseClient, url string) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{BaseClient: base, URL: url}
}

// Fetch downloads and parses the page data. It never fails: network and
// structural problems are logged and yield no records.
func (c *Client) Fetch(ctx context.Context) []pubs.Record {
	c.Logger.Info("trying SCAPIS website", zap.String("url", c.URL))

	data := c.TryGet(ctx, c.URL)
	if data == nil {
		c.Logger.Info("SCAPIS page-data not accessible, skipping")
		return nil
	}

	records, shape, err := Parse(data)
	switch {
	case errors.Is(err, ErrNoShape):
		c.Logger.Info("no publication data found in page-data JSON")
		return nil
	case err != nil:
		c.Logger.Warn("failed to parse SCAPIS data", zap.Error(err))
		return nil
	}

	c.Logger.Info("found publications on SCAPIS website",
		zap.Int("count", len(records)),
		zap.String("shape", shape))
	return records
}

// ErrNoShape reports that no field of result.data looked like a record list.
var ErrNoShape = errors.New("no publication list in page data")

// detector recognizes one layout of the record collection. It reports
// ok=false when raw does not have that layout.
type detector struct {
	name  string
	match func(raw json.RawMessage) (items []map[string]any, ok bool, err error)
}

// detectors are tried in order against each field of result.data.
var detectors = []detector{
	{name: "nodes", match: matchNodes},
	{name: "edges", match: matchEdges},
	{name: "list", match: matchList},
}

// Parse extracts records from a page-data document. Fields of result.data
// are visited in document order and the first field matched by any detector
// supplies the records. It returns the detector name alongside the records.
func Parse(data []byte) ([]pubs.Record, string, error) {
	var page struct {
		Result struct {
			Data json.RawMessage `json:"data"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, "", fmt.Errorf("decoding page data: %w", err)
	}

	fields, err := orderedFields(page.Result.Data)
	if err != nil {
		return nil, "", err
	}

	for _, f := range fields {
		for _, d := range detectors {
			items, ok, err := d.match(f.value)
			if err != nil {
				return nil, "", fmt.Errorf("field %q (%s): %w", f.name, d.name, err)
			}
			if !ok {
				continue
			}
			if len(items) == 0 {
				return nil, d.name, ErrNoShape
			}
			return toRecords(items), d.name, nil
		}
	}
	return nil, "", ErrNoShape
}

type field struct {
	name  string
	value json.RawMessage
}

// orderedFields lists the members of a JSON object in document order.
// A missing or null object has no fields.
func orderedFields(raw json.RawMessage) ([]field, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading result.data: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("result.data is not an object")
	}

	var fields []field
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("reading result.data: %w", err)
		}
		name, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("reading result.data.%s: %w", name, err)
		}
		fields = append(fields, field{name: name, value: value})
	}
	return fields, nil
}

func matchNodes(raw json.RawMessage) ([]map[string]any, bool, error) {
	obj, ok := asObject(raw)
	if !ok {
		return nil, false, nil
	}
	nodes, ok := obj["nodes"]
	if !ok {
		return nil, false, nil
	}
	items, err := decodeItems(nodes)
	return items, true, err
}

func matchEdges(raw json.RawMessage) ([]map[string]any, bool, error) {
	obj, ok := asObject(raw)
	if !ok {
		return nil, false, nil
	}
	edgesRaw, ok := obj["edges"]
	if !ok {
		return nil, false, nil
	}
	var edges []struct {
		Node json.RawMessage `json:"node"`
	}
	if err := json.Unmarshal(edgesRaw, &edges); err != nil {
		return nil, true, fmt.Errorf("decoding edges: %w", err)
	}
	items := make([]map[string]any, 0, len(edges))
	for _, e := range edges {
		node := map[string]any{}
		if len(e.Node) > 0 && !bytes.Equal(e.Node, []byte("null")) {
			if err := unmarshalNumbers(e.Node, &node); err != nil {
				return nil, true, fmt.Errorf("decoding edge node: %w", err)
			}
		}
		items = append(items, node)
	}
	return items, true, nil
}

func matchList(raw json.RawMessage) ([]map[string]any, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false, nil
	}
	items, err := decodeItems(raw)
	return items, true, err
}

func asObject(raw json.RawMessage) (map[string]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, false
	}
	return obj, true
}

func decodeItems(raw json.RawMessage) ([]map[string]any, error) {
	var items []map[string]any
	if err := unmarshalNumbers(raw, &items); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return items, nil
}

// unmarshalNumbers decodes keeping numbers as json.Number so that a PMID
// such as 38000001 keeps its digits.
func unmarshalNumbers(raw json.RawMessage, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(v)
}

func toRecords(items []map[string]any) []pubs.Record {
	var records []pubs.Record
	for _, p := range items {
		r := pubs.Record{
			Title:       first(p, "title", "name"),
			Journal:     first(p, "journal", "publication"),
			Year:        str(p["year"]),
			FirstAuthor: first(p, "firstAuthor", "author"),
			DOI:         first(p, "doi", "link"),
			PMID:        str(p["pmid"]),
			Abstract:    str(p["abstract"]),
			Source:      pubs.SourceSCAPIS,
		}
		if r.Year == "" {
			r.Year = prefix(str(p["date"]), 4)
		}
		if r.Title == "" {
			continue
		}
		records = append(records, r)
	}
	return records
}

// first returns the first non-empty value among keys.
func first(p map[string]any, keys ...string) string {
	for _, k := range keys {
		if s := str(p[k]); s != "" {
			return s
		}
	}
	return ""
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
