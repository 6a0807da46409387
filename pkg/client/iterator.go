package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"slices"

	"github.com/tidwall/gjson"
)

// Iterator yields the items of one response.
type Iterator interface {
	// Next returns the next item, or Done when there are none left.
	Next(ctx context.Context) (Item, error)

	// Close releases the underlying response.
	Close() error
}

// NewIterator returns the iterator matching the response variant.
func NewIterator(resp Response) (Iterator, error) {
	switch r := resp.(type) {
	case *RestResponse:
		it, err := r.Iterator()
		if err != nil {
			return nil, err
		}
		return it, nil
	case *StreamResponse:
		return r.Iterator(), nil
	default:
		return nil, fmt.Errorf("unsupported response type %T", resp)
	}
}

// All adapts it to a range-over-func sequence. The iterator is closed when
// the sequence ends or the loop breaks. An error is yielded once, last.
func All(ctx context.Context, it Iterator) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		defer it.Close()
		for {
			item, err := it.Next(ctx)
			if errors.Is(err, Done) {
				return
			}
			if err != nil {
				yield(Item{}, err)
				return
			}
			if !yield(item, nil) {
				return
			}
		}
	}
}

// RestIterator yields the items of a REST response body. The body is parsed
// once, on construction, and flattened by shape:
//
//   - an object with "errors" yields the API errors;
//   - else an object with "statuses" (search results) yields the tweets;
//   - else an array whose first element has "trends" yields the trends;
//   - else an array yields its elements;
//   - anything else is a single item.
type RestIterator struct {
	items []Item
	pos   int
}

func newRestIterator(body []byte) (*RestIterator, error) {
	var probe json.RawMessage
	if err := json.Unmarshal(body, &probe); err != nil {
		twitterErrorsTotal.WithLabelValues(string(ErrorClassParse)).Inc()
		return nil, fmt.Errorf("parse response body: %w", err)
	}
	return &RestIterator{items: flatten(gjson.ParseBytes(body))}, nil
}

func flatten(doc gjson.Result) []Item {
	switch {
	case doc.IsObject():
		if errs := doc.Get("errors"); errs.Exists() {
			return elements(errs)
		}
		if statuses := doc.Get("statuses"); statuses.Exists() {
			return elements(statuses)
		}
		return []Item{newItem(doc)}
	case doc.IsArray():
		arr := doc.Array()
		if len(arr) > 0 && arr[0].IsObject() {
			if trends := arr[0].Get("trends"); trends.Exists() {
				return elements(trends)
			}
		}
		return wrap(arr)
	default:
		return []Item{newItem(doc)}
	}
}

// elements yields the members of an array field. A null field yields
// nothing; any other value is a single item.
func elements(v gjson.Result) []Item {
	switch {
	case v.IsArray():
		return wrap(v.Array())
	case v.Type == gjson.Null:
		return nil
	default:
		return []Item{newItem(v)}
	}
}

func wrap(values []gjson.Result) []Item {
	items := make([]Item, len(values))
	for i, v := range values {
		items[i] = newItem(v)
	}
	return items
}

// Next implements Iterator.
func (it *RestIterator) Next(_ context.Context) (Item, error) {
	if it.pos >= len(it.items) {
		return Item{}, Done
	}
	item := it.items[it.pos]
	it.pos++
	return item, nil
}

// Len returns the number of items not yet returned.
func (it *RestIterator) Len() int {
	return len(it.items) - it.pos
}

// Reverse reverses the order of the remaining items.
func (it *RestIterator) Reverse() {
	slices.Reverse(it.items[it.pos:])
}

// Close implements Iterator. The body is already fully read.
func (it *RestIterator) Close() error {
	return nil
}

// StreamIterator yields one item per non-empty line of a streaming response.
// Empty lines are keep-alives and are skipped. Next must be called from one
// goroutine at a time; Close may be called from any.
type StreamIterator struct {
	resp   *StreamResponse
	reader *bufio.Reader
	eof    bool
}

func newStreamIterator(resp *StreamResponse) *StreamIterator {
	return &StreamIterator{
		resp:   resp,
		reader: bufio.NewReader(resp.body),
	}
}

// Next implements Iterator. It blocks until a message arrives, the stream
// ends (Done), or the idle timeout expires. Cancelling ctx is observed
// between lines; to interrupt a blocked read, Close the iterator or cancel
// the context the request was made with. A read interrupted by Close ends
// the stream with Done.
func (it *StreamIterator) Next(ctx context.Context) (Item, error) {
	for {
		if it.eof || it.resp.closed.Load() {
			return Item{}, Done
		}
		if err := ctx.Err(); err != nil {
			return Item{}, err
		}

		line, err := it.reader.ReadBytes('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			if it.resp.closed.Load() {
				return Item{}, Done
			}
			return Item{}, fmt.Errorf("read %s stream: %w", it.resp.Resource, err)
		}
		if errors.Is(err, io.EOF) {
			it.eof = true
		}

		line = bytes.TrimRight(line, "\r\n")
		if len(line) == 0 {
			if !it.eof {
				twitterStreamLinesTotal.WithLabelValues("keep_alive").Inc()
			}
			continue
		}

		var probe json.RawMessage
		if err := json.Unmarshal(line, &probe); err != nil {
			twitterStreamLinesTotal.WithLabelValues("malformed").Inc()
			twitterErrorsTotal.WithLabelValues(string(ErrorClassParse)).Inc()
			return Item{}, fmt.Errorf("parse %s message: %w", it.resp.Resource, err)
		}
		twitterStreamLinesTotal.WithLabelValues("message").Inc()
		return newItem(gjson.ParseBytes(line)), nil
	}
}

// Close implements Iterator and closes the stream. Any Next blocked on the
// stream returns Done.
func (it *StreamIterator) Close() error {
	return it.resp.Close()
}
