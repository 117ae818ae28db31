package engine

import (
	"fmt"
	"sort"
	"strings"

	"tradebench/dataset"
	benchErrors "tradebench/errors"
)

// Query identifies one of the four canonical queries. Engines translate it
// into their own query language.
type Query int

const (
	// Contacts of the users living on a continent
	Q1 Query = iota + 1
	// Order lines of the orders with a given status
	Q2
	// Revenue of every merchant
	Q3
	// Average order line value of every user, ignoring one order status
	Q4
)

// Queries lists the canonical queries in execution order.
var Queries = []Query{Q1, Q2, Q3, Q4}

// Parameter names.
const (
	ParamContinent      = "continent"
	ParamStatus         = "status"
	ParamExcludedStatus = "excluded_status"
)

// Params holds named query parameters. Missing parameters take their default.
type Params map[string]string

var defaults = map[Query]Params{
	Q1: {ParamContinent: "North America"},
	Q2: {ParamStatus: dataset.StatusShipped},
	Q3: {},
	Q4: {ParamExcludedStatus: dataset.StatusPending},
}

func (q Query) String() string {
	if q.Valid() {
		return fmt.Sprintf("Q%d", int(q))
	}
	return fmt.Sprintf("Query(%d)", int(q))
}

// Valid reports whether q is one of the canonical queries.
func (q Query) Valid() bool {
	return q >= Q1 && q <= Q4
}

// Description is a one-line summary used in reports.
func (q Query) Description() string {
	switch q {
	case Q1:
		return "users by continent"
	case Q2:
		return "order lines by order status"
	case Q3:
		return "total revenue per merchant"
	case Q4:
		return "average order value per user"
	}
	return "unknown query"
}

// ParseQuery parses "Q1".."Q4" (case-insensitive).
func ParseQuery(s string) (Query, error) {
	for _, q := range Queries {
		if strings.EqualFold(s, q.String()) {
			return q, nil
		}
	}
	return 0, benchErrors.NewQueryError(benchErrors.CodeUnknownQuery, fmt.Sprintf("unknown query %q", s), nil)
}

// DefaultParams returns a copy of the default parameters of q.
func DefaultParams(q Query) Params {
	p := Params{}
	for k, v := range defaults[q] {
		p[k] = v
	}
	return p
}

// Bound is a validated set of query parameters.
type Bound struct {
	Continent      string
	Status         string
	ExcludedStatus string
}

// Bind validates params against q and fills in defaults. Parameters q does
// not take, empty values, and unknown order statuses are rejected.
func (q Query) Bind(params Params) (Bound, error) {
	if !q.Valid() {
		return Bound{}, benchErrors.NewQueryError(benchErrors.CodeUnknownQuery, fmt.Sprintf("unknown query %s", q), nil)
	}

	accepted := defaults[q]
	merged := DefaultParams(q)
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, ok := accepted[k]; !ok {
			return Bound{}, invalidParams(q, fmt.Sprintf("unexpected parameter %q", k))
		}
		if params[k] == "" {
			return Bound{}, invalidParams(q, fmt.Sprintf("parameter %q is empty", k))
		}
		merged[k] = params[k]
	}

	for _, k := range []string{ParamStatus, ParamExcludedStatus} {
		if v, ok := merged[k]; ok && !dataset.IsOrderStatus(v) {
			return Bound{}, invalidParams(q, fmt.Sprintf("%s %q is not an order status", k, v))
		}
	}

	return Bound{
		Continent:      merged[ParamContinent],
		Status:         merged[ParamStatus],
		ExcludedStatus: merged[ParamExcludedStatus],
	}, nil
}

func invalidParams(q Query, msg string) error {
	return benchErrors.NewQueryError(benchErrors.CodeInvalidParams, fmt.Sprintf("%s: %s", q, msg), nil).
		WithDetails(map[string]interface{}{"query": q.String()})
}
