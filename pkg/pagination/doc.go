// Package pagination walks REST timelines page by page using the since_id and
// max_id cursors of the Twitter API.
//
// A Pager is bound to one REST resource and its base parameters. Each
// iterator it hands out fetches a page, yields the page's items, sleeps, and
// then narrows the next request by the last item id it saw:
//
//   - oldest-first (the default) walks backwards through history by sending
//     max_id = id - 1;
//   - newest-first reverses every page and polls for new items by sending
//     since_id = id.
//
// Iteration ends after the first page that contains no item with an "id".
// In newest-first mode that rarely happens, so the iterator is effectively a
// poller and callers stop it by cancelling the context or by no longer
// calling Next.
//
// Example usage:
//
//	pager, err := pagination.NewPager(twitterClient, "search/tweets", url.Values{"q": {"golang"}})
//	if err != nil {
//		return err
//	}
//	for item, err := range client.All(ctx, pager.Iterator(pagination.DefaultWait, false)) {
//		if err != nil {
//			return err
//		}
//		fmt.Println(item.Get("text").String())
//	}
//
// Pages are fetched sequentially; the pager never issues concurrent requests.
package pagination
