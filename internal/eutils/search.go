package eutils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// DefaultQuery selects SCAPIS publications by study name or acronym.
const DefaultQuery = `("Swedish CArdioPulmonary bioImage Study" OR SCAPIS[Title/Abstract])`

// esearchResponse represents the raw JSON response from ESearch.
type esearchResponse struct {
	Result esearchResult `json:"esearchresult"`
}

type esearchResult struct {
	Count            string   `json:"count"`
	RetMax           string   `json:"retmax"`
	IDList           []string `json:"idlist"`
	QueryTranslation string   `json:"querytranslation"`
}

// Search performs a single ESearch query against PubMed returning at most
// retMax identifiers. There is no pagination beyond that one request.
func (c *Client) Search(ctx context.Context, query string, retMax int) (*SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if retMax <= 0 {
		retMax = DefaultRetMax
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", query)
	params.Set("retmode", "json")
	params.Set("retmax", strconv.Itoa(retMax))

	body, err := c.DoGet(ctx, "esearch.fcgi", params)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}

	var resp esearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	count, _ := strconv.Atoi(resp.Result.Count)
	ids := resp.Result.IDList
	if ids == nil {
		ids = []string{}
	}

	return &SearchResult{
		Count:            count,
		IDs:              ids,
		QueryTranslation: resp.Result.QueryTranslation,
	}, nil
}
