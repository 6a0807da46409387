package pagination

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/twitter-api-client/pkg/client"
	"github.com/Sternrassler/twitter-api-client/pkg/endpoints"
	"github.com/Sternrassler/twitter-api-client/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// DefaultWait is the pause between two page requests.
const DefaultWait = 5 * time.Second

// Cursor parameters.
const (
	ParamSinceID = "since_id"
	ParamMaxID   = "max_id"
)

var pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "twitter_pages_total",
	Help: "Total pages fetched by the pager, by resource",
}, []string{"resource"})

// RestFetcher performs one REST call that bypasses any response cache.
// *client.Client implements it.
type RestFetcher interface {
	FetchPage(ctx context.Context, resource string, params url.Values) (*client.RestResponse, error)
}

// Pager iterates over the pages of one REST resource.
type Pager struct {
	fetcher  RestFetcher
	resource string
	params   url.Values
	logger   zerolog.Logger
}

// NewPager creates a pager for resource. The resource must be a registered
// REST endpoint. params are copied; the caller may reuse them.
func NewPager(fetcher RestFetcher, resource string, params url.Values) (*Pager, error) {
	if fetcher == nil {
		return nil, fmt.Errorf("fetcher is required")
	}

	endpoint, ok := endpoints.Lookup(resource)
	if !ok {
		return nil, &client.UnknownEndpointError{Resource: resource}
	}
	if !endpoint.IsREST() {
		return nil, fmt.Errorf("cannot page %s: %w", resource, client.ErrNotREST)
	}

	return &Pager{
		fetcher:  fetcher,
		resource: resource,
		params:   cloneParams(params),
		logger:   logging.NewLogger(logging.ComponentPager).With().Str("resource", resource).Logger(),
	}, nil
}

// Resource returns the paged resource.
func (p *Pager) Resource() string {
	return p.resource
}

// Iterator starts a new walk from the pager's base parameters. wait is the
// pause after each page; newestFirst selects polling for newer items instead
// of walking back through older ones.
func (p *Pager) Iterator(wait time.Duration, newestFirst bool) *PageIterator {
	return &PageIterator{
		pager:       p,
		params:      cloneParams(p.params),
		wait:        wait,
		newestFirst: newestFirst,
		state:       stateFetching,
		sleep:       sleepContext,
	}
}

type pageState int

const (
	stateFetching pageState = iota
	stateEmitting
	stateDone
)

// PageIterator yields the items of successive pages. It implements
// client.Iterator. Next blocks while fetching a page and while sleeping
// between pages.
type PageIterator struct {
	pager       *Pager
	params      url.Values
	wait        time.Duration
	newestFirst bool

	state  pageState
	page   *client.RestIterator
	pages  int
	lastID int64
	seenID bool

	sleep func(ctx context.Context, d time.Duration) error
}

// Next implements client.Iterator. Any error ends the iteration.
func (it *PageIterator) Next(ctx context.Context) (client.Item, error) {
	for {
		switch it.state {
		case stateDone:
			return client.Item{}, client.Done

		case stateFetching:
			if err := it.fetch(ctx); err != nil {
				it.state = stateDone
				return client.Item{}, err
			}
			it.state = stateEmitting

		case stateEmitting:
			item, err := it.page.Next(ctx)
			if err == nil {
				if err := it.track(item); err != nil {
					it.state = stateDone
					return client.Item{}, err
				}
				return item, nil
			}
			if !errors.Is(err, client.Done) {
				it.state = stateDone
				return client.Item{}, err
			}

			if err := it.sleep(ctx, it.wait); err != nil {
				it.state = stateDone
				return client.Item{}, err
			}
			if !it.advance() {
				it.state = stateDone
				continue
			}
			it.state = stateFetching
		}
	}
}

// Pages returns the number of pages fetched so far.
func (it *PageIterator) Pages() int {
	return it.pages
}

// Params returns a copy of the parameters the next page will be requested with.
func (it *PageIterator) Params() url.Values {
	return cloneParams(it.params)
}

// Close implements client.Iterator. It stops the iteration.
func (it *PageIterator) Close() error {
	it.state = stateDone
	it.page = nil
	return nil
}

func (it *PageIterator) fetch(ctx context.Context) error {
	p := it.pager
	resp, err := p.fetcher.FetchPage(ctx, p.resource, it.params)
	if err != nil {
		return fmt.Errorf("fetch page %d of %s: %w", it.pages+1, p.resource, err)
	}

	page, err := resp.Iterator()
	if err != nil {
		return fmt.Errorf("page %d of %s: %w", it.pages+1, p.resource, err)
	}
	if it.newestFirst {
		page.Reverse()
	}

	it.page = page
	it.pages++
	it.seenID = false
	pagesTotal.WithLabelValues(p.resource).Inc()

	p.logger.Debug().
		Int("page", it.pages).
		Int("items", page.Len()).
		Int("status", resp.StatusCode).
		Str("since_id", it.params.Get(ParamSinceID)).
		Str("max_id", it.params.Get(ParamMaxID)).
		Msg("Fetched page")
	return nil
}

// track remembers the id of the latest item carrying one. Later items of a
// page overwrite earlier ones; a null id clears the cursor.
func (it *PageIterator) track(item client.Item) error {
	if !item.Has("id") {
		return nil
	}
	if item.Get("id").Type == gjson.Null {
		it.seenID = false
		return nil
	}
	id, ok := item.ID()
	if !ok {
		return fmt.Errorf("page %d of %s: item id %s is not an integer",
			it.pages, it.pager.resource, item.Get("id").Raw)
	}
	it.lastID = id
	it.seenID = true
	return nil
}

// advance sets the cursor for the next page. It reports false when the
// exhausted page carried no ids.
func (it *PageIterator) advance() bool {
	if !it.seenID {
		it.pager.logger.Debug().Int("pages", it.pages).Msg("Page without ids, pager done")
		return false
	}
	if it.newestFirst {
		it.params.Set(ParamSinceID, strconv.FormatInt(it.lastID, 10))
	} else {
		it.params.Set(ParamMaxID, strconv.FormatInt(it.lastID-1, 10))
	}
	return true
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func cloneParams(params url.Values) url.Values {
	out := make(url.Values, len(params))
	for k, vs := range params {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
