package domain

// PlanKind describes how a query is split into upstream requests.
type PlanKind int

const (
	// PlanFeed is a single static summary feed download.
	PlanFeed PlanKind = iota + 1
	// PlanQuery is a single query-service request over the whole window.
	PlanQuery
	// PlanMonthly is one query-service request per calendar month.
	PlanMonthly
)

func (k PlanKind) String() string {
	switch k {
	case PlanFeed:
		return "feed"
	case PlanQuery:
		return "query"
	case PlanMonthly:
		return "monthly"
	default:
		return "unknown"
	}
}

// Request is one upstream download. Chunk is set only for monthly plans.
type Request struct {
	URL   string
	Label string
	Chunk *MonthChunk
}

// RequestPlan is the ordered list of downloads for a QuerySpec. Order is
// significant: files are merged in the same order to keep records chronological.
type RequestPlan struct {
	Kind     PlanKind
	Requests []Request
}

// URLs returns the request URLs in plan order.
func (p RequestPlan) URLs() []string {
	urls := make([]string, len(p.Requests))
	for i, r := range p.Requests {
		urls[i] = r.URL
	}
	return urls
}
