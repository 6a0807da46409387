// Package endpoints holds the static Twitter API v1.1 endpoint registry.
//
// Every resource the client can call is listed here with its HTTP method,
// the host subdomain that serves it and the API family it belongs to. REST
// resources are served by the "api" subdomain and return one JSON document;
// streaming resources are served by per-resource hosts and deliver
// newline-delimited JSON for as long as the connection stays open.
package endpoints

import (
	"fmt"
	"net/http"
	"sort"
)

// URL parts shared by all endpoints.
const (
	Protocol      = "https"
	Domain        = "twitter.com"
	Version       = "1.1"
	RESTSubdomain = "api"
)

// Family identifies the API style of an endpoint.
type Family string

const (
	// FamilyREST is a request/response endpoint returning one JSON document.
	FamilyREST Family = "rest"

	// FamilyStreaming is a long-lived endpoint delivering newline-delimited JSON.
	FamilyStreaming Family = "streaming"
)

// Endpoint describes one callable resource.
type Endpoint struct {
	// Resource is the path below the version prefix, without ".json"
	// (e.g. "statuses/user_timeline").
	Resource string

	// Method is the HTTP method for REST endpoints. Streaming endpoints pick
	// their method per call (GET without parameters, POST with).
	Method string

	// Subdomain is the host prefix serving the resource.
	Subdomain string

	Family Family
}

// IsREST reports whether the endpoint is a request/response endpoint.
func (e Endpoint) IsREST() bool {
	return e.Family == FamilyREST
}

// IsStreaming reports whether the endpoint is a streaming endpoint.
func (e Endpoint) IsStreaming() bool {
	return e.Family == FamilyStreaming
}

// URL builds the endpoint URL for the given scheme and domain.
func (e Endpoint) URL(scheme, domain, version string) string {
	return URL(scheme, e.Subdomain, domain, version, e.Resource)
}

// URL builds <scheme>://<subdomain>.<domain>/<version>/<resource>.json.
func URL(scheme, subdomain, domain, version, resource string) string {
	return fmt.Sprintf("%s://%s.%s/%s/%s.json", scheme, subdomain, domain, version, resource)
}

func rest(method string) Endpoint {
	return Endpoint{Method: method, Subdomain: RESTSubdomain, Family: FamilyREST}
}

func stream(subdomain string) Endpoint {
	return Endpoint{Subdomain: subdomain, Family: FamilyStreaming}
}

var restEndpoints = map[string]Endpoint{
	// Timelines
	"statuses/mentions_timeline": rest(http.MethodGet),
	"statuses/user_timeline":     rest(http.MethodGet),
	"statuses/home_timeline":     rest(http.MethodGet),
	"statuses/retweets_of_me":    rest(http.MethodGet),

	// Tweets
	"statuses/lookup":            rest(http.MethodGet),
	"statuses/retweeters/ids":    rest(http.MethodGet),
	"statuses/update":            rest(http.MethodPost),
	"statuses/update_with_media": rest(http.MethodPost),
	"statuses/oembed":            rest(http.MethodGet),

	// Search
	"search/tweets": rest(http.MethodGet),

	// Direct messages
	"direct_messages":         rest(http.MethodGet),
	"direct_messages/sent":    rest(http.MethodGet),
	"direct_messages/show":    rest(http.MethodGet),
	"direct_messages/destroy": rest(http.MethodPost),
	"direct_messages/new":     rest(http.MethodPost),

	// Friends and followers
	"friendships/no_retweets/ids": rest(http.MethodGet),
	"friends/ids":                 rest(http.MethodGet),
	"followers/ids":               rest(http.MethodGet),
	"friendships/lookup":          rest(http.MethodGet),
	"friendships/incoming":        rest(http.MethodGet),
	"friendships/outgoing":        rest(http.MethodGet),
	"friendships/create":          rest(http.MethodPost),
	"friendships/destroy":         rest(http.MethodPost),
	"friendships/update":          rest(http.MethodPost),
	"friendships/show":            rest(http.MethodGet),
	"friends/list":                rest(http.MethodGet),
	"followers/list":              rest(http.MethodGet),

	// Users
	"account/settings":           rest(http.MethodGet),
	"account/verify_credentials": rest(http.MethodGet),
	"account/update_profile":     rest(http.MethodPost),
	"blocks/list":                rest(http.MethodGet),
	"blocks/ids":                 rest(http.MethodGet),
	"blocks/create":              rest(http.MethodPost),
	"blocks/destroy":             rest(http.MethodPost),
	"users/lookup":               rest(http.MethodGet),
	"users/show":                 rest(http.MethodGet),
	"users/search":               rest(http.MethodGet),
	"users/contributees":         rest(http.MethodGet),
	"users/contributors":         rest(http.MethodGet),
	"users/profile_banner":       rest(http.MethodGet),

	// Suggested users
	"users/suggestions": rest(http.MethodGet),

	// Favorites
	"favorites/list":    rest(http.MethodGet),
	"favorites/destroy": rest(http.MethodPost),
	"favorites/create":  rest(http.MethodPost),

	// Lists
	"lists/list":                rest(http.MethodGet),
	"lists/statuses":            rest(http.MethodGet),
	"lists/members/destroy":     rest(http.MethodPost),
	"lists/memberships":         rest(http.MethodGet),
	"lists/subscribers":         rest(http.MethodGet),
	"lists/subscribers/create":  rest(http.MethodPost),
	"lists/subscribers/show":    rest(http.MethodGet),
	"lists/subscribers/destroy": rest(http.MethodPost),
	"lists/members/create_all":  rest(http.MethodPost),
	"lists/members/show":        rest(http.MethodGet),
	"lists/members":             rest(http.MethodGet),
	"lists/members/create":      rest(http.MethodPost),
	"lists/destroy":             rest(http.MethodPost),
	"lists/update":              rest(http.MethodPost),
	"lists/create":              rest(http.MethodPost),
	"lists/show":                rest(http.MethodGet),
	"lists/subscriptions":       rest(http.MethodGet),
	"lists/members/destroy_all": rest(http.MethodPost),
	"lists/ownerships":          rest(http.MethodGet),

	// Saved searches
	"saved_searches/list": rest(http.MethodGet),

	// Places and geo
	"geo/reverse_geocode": rest(http.MethodGet),
	"geo/search":          rest(http.MethodGet),
	"geo/similar_places":  rest(http.MethodGet),
	"geo/place":           rest(http.MethodPost),

	// Trends
	"trends/place":     rest(http.MethodGet),
	"trends/available": rest(http.MethodGet),
	"trends/closest":   rest(http.MethodGet),

	// Spam reporting
	"users/report_spam": rest(http.MethodPost),

	// Help
	"help/configuration":            rest(http.MethodGet),
	"help/languages":                rest(http.MethodGet),
	"help/privacy":                  rest(http.MethodGet),
	"help/tos":                      rest(http.MethodGet),
	"application/rate_limit_status": rest(http.MethodGet),
}

var streamingEndpoints = map[string]Endpoint{
	"statuses/filter":   stream("stream"),
	"statuses/firehose": stream("stream"),
	"statuses/sample":   stream("stream"),
	"site":              stream("sitestream"),
	"user":              stream("userstream"),
}

func init() {
	for name, e := range restEndpoints {
		e.Resource = name
		restEndpoints[name] = e
	}
	for name, e := range streamingEndpoints {
		e.Resource = name
		streamingEndpoints[name] = e
	}
}

// Lookup returns the endpoint registered for resource. REST endpoints take
// precedence over streaming ones; the two tables do not overlap.
func Lookup(resource string) (Endpoint, bool) {
	if e, ok := restEndpoints[resource]; ok {
		return e, true
	}
	if e, ok := streamingEndpoints[resource]; ok {
		return e, true
	}
	return Endpoint{}, false
}

// REST returns the sorted names of all REST resources.
func REST() []string {
	return names(restEndpoints)
}

// Streaming returns the sorted names of all streaming resources.
func Streaming() []string {
	return names(streamingEndpoints)
}

func names(m map[string]Endpoint) []string {
	out := make([]string, 0, len(m))
	for name := range m {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
