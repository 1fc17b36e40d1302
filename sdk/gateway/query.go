package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// Query builds a single table request. Builder methods mutate and return
// the same query; a query is used for one Execute call.
type Query struct {
	client *Client
	table  string

	method  string
	body    interface{}
	selects string
	filters url.Values
	order   string
	limit   int
	single  bool
}

func (c *Client) From(table string) *Query {
	return &Query{
		client:  c,
		table:   table,
		method:  http.MethodGet,
		filters: url.Values{},
	}
}

func (q *Query) Select(columns string) *Query {
	q.selects = columns
	return q
}

func (q *Query) Insert(body interface{}) *Query {
	q.method = http.MethodPost
	q.body = body
	return q
}

func (q *Query) Update(body interface{}) *Query {
	q.method = http.MethodPatch
	q.body = body
	return q
}

func (q *Query) Delete() *Query {
	q.method = http.MethodDelete
	return q
}

// Eq adds an equality filter, column=eq.value.
func (q *Query) Eq(column string, value interface{}) *Query {
	q.filters.Add(column, fmt.Sprintf("eq.%v", value))
	return q
}

func (q *Query) Order(column string, ascending bool) *Query {
	dir := "desc"
	if ascending {
		dir = "asc"
	}
	q.order = column + "." + dir
	return q
}

func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Single asks for exactly one row; the platform errors when the filter
// matches zero or several rows.
func (q *Query) Single() *Query {
	q.single = true
	return q
}

// Execute runs the query and unmarshals the response into dest when dest is
// non-nil.
func (q *Query) Execute(ctx context.Context, dest interface{}) error {
	params := url.Values{}
	if q.selects != "" {
		params.Set("select", q.selects)
	}
	for column, values := range q.filters {
		for _, v := range values {
			params.Add(column, v)
		}
	}
	if q.order != "" {
		params.Set("order", q.order)
	}
	if q.limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", q.limit))
	}

	endpoint := fmt.Sprintf("%s/rest/v1/%s", q.client.baseURL, q.table)
	if encoded := params.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var buf bytes.Buffer
	if q.body != nil {
		if err := json.NewEncoder(&buf).Encode(q.body); err != nil {
			return fmt.Errorf("encode body for %s: %w", q.table, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, q.method, endpoint, &buf)
	if err != nil {
		return err
	}
	q.client.setHeaders(req, "")
	if q.single {
		req.Header.Set("Accept", "application/vnd.pgrst.object+json")
	}
	if q.method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := q.client.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp.StatusCode, raw)
	}
	if dest == nil || len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
