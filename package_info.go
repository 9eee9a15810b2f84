// Package analytics is a client for a Segment-compatible analytics ingestion API.
//
// A [Client] accepts identify, group, track, page, screen and alias messages, validates and enriches
// them, and delivers them in batches with retry. Messages are plain maps ([Message]); the client never
// modifies the caller's map.
//
//	client, err := analytics.NewClient(writeKey, analytics.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Track(analytics.Message{
//	    "userId":     "019mr8mf4r",
//	    "event":      "Item Purchased",
//	    "properties": map[string]interface{}{"revenue": 39.95},
//	}, nil)
//
// The outcome of each message is reported to its optional [Callback] once the batch carrying it has been
// delivered or has failed. Capacity problems are also reported there, so an application that needs to
// know about dropped messages should pass a callback.
//
// Unset numeric options in [Config] take their defaults. FlushInterval is the one to watch: zero means
// DefaultFlushInterval (10 seconds) and a negative value turns the idle timer off, the reverse of clients
// where zero disables it.
//
//	analytics.Config{FlushInterval: -1} // flush only on FlushAt, MaxQueueSize, Flush, Drain and Close
//
// Subpackage analyticshttp provides transport options such as proxies and custom CA certificates, and
// analyticsntlm provides an HTTP client for NTLM-authenticated proxies. Package defaultclient wraps a
// single process-wide client.
package analytics
