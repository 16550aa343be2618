package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Snapshot is the ordered set of records produced by one fetch cycle.
// A newer snapshot replaces an older one; they are never merged.
type Snapshot []StockRecord

// Find returns the first record whose short name contains query.
func (s Snapshot) Find(query string) (StockRecord, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return StockRecord{}, false
	}
	for _, r := range s {
		if strings.Contains(r.ShortName, query) {
			return r, true
		}
	}
	return StockRecord{}, false
}

// Filter returns the records whose short name contains query, in order.
func (s Snapshot) Filter(query string) Snapshot {
	query = strings.TrimSpace(query)
	out := Snapshot{}
	for _, r := range s {
		if query == "" || strings.Contains(r.ShortName, query) {
			out = append(out, r)
		}
	}
	return out
}

// Outcome tells how a fetch cycle ended.
type Outcome int

const (
	// OutcomeSkipped means another fetch was in flight; no snapshot.
	OutcomeSkipped Outcome = iota
	// OutcomeLive means the snapshot was scraped from the exchange.
	OutcomeLive
	// OutcomeSynthetic means the fixed fallback snapshot was substituted.
	OutcomeSynthetic
)

func (o Outcome) String() string {
	switch o {
	case OutcomeLive:
		return "live"
	case OutcomeSynthetic:
		return "synthetic"
	default:
		return "skipped"
	}
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(b []byte) error {
	switch string(b) {
	case "live":
		*o = OutcomeLive
	case "synthetic":
		*o = OutcomeSynthetic
	case "skipped":
		*o = OutcomeSkipped
	default:
		return fmt.Errorf("unknown outcome %q", string(b))
	}
	return nil
}

// Result is what a fetch cycle hands back to its caller.
type Result struct {
	ID        string    `json:"id"`
	Outcome   Outcome   `json:"outcome"`
	Snapshot  Snapshot  `json:"stocks"`
	Reason    string    `json:"reason,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Skipped reports whether the cycle produced no snapshot at all.
func (r Result) Skipped() bool { return r.Outcome == OutcomeSkipped }

// Live reports whether the snapshot came from the exchange.
func (r Result) Live() bool { return r.Outcome == OutcomeLive }

// MarshalJSON keeps "stocks" an array even for an empty snapshot.
func (r Result) MarshalJSON() ([]byte, error) {
	type alias Result
	a := alias(r)
	if a.Snapshot == nil {
		a.Snapshot = Snapshot{}
	}
	return json.Marshal(struct {
		alias
		Count int `json:"count"`
	}{a, len(r.Snapshot)})
}
