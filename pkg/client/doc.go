// Package client is a Go client for the footage HTTP API.
//
// Blocking search:
//
//	c := client.New("http://localhost:8080", client.WithAPIKey(os.Getenv("FOOTAGE_API_KEY")))
//	results, err := c.Search(ctx, "Michael waits outside the hospital at night", 5)
//
// Streaming search reports each pipeline stage before the results:
//
//	err := c.Stream(ctx, "the Don refuses a favour", 5, func(ev client.Event) error {
//		fmt.Println(ev.Type, ev.Status.ID, ev.Status.Message)
//		return nil
//	})
package client
