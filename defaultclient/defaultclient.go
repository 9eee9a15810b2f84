// Package defaultclient holds one process-wide analytics client for applications that do not want to
// pass a *analytics.Client around.
//
// Call Init once at startup and Close before exiting. Libraries should take an *analytics.Client
// instead of using this package.
package defaultclient

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	analytics "github.com/ingestkit/go-analytics-sdk"
)

// ErrNotInitialized is returned when a function is called before Init or after Close.
var ErrNotInitialized = errors.New("the default analytics client has not been initialized")

var (
	lock   sync.RWMutex      //nolint:gochecknoglobals
	client *analytics.Client //nolint:gochecknoglobals
)

// Init creates the default client. If one already exists it is closed first.
func Init(writeKey string, config analytics.Config) error {
	c, err := analytics.NewClient(writeKey, config)
	if err != nil {
		return err
	}
	lock.Lock()
	previous := client
	client = c
	lock.Unlock()
	if previous != nil {
		return previous.Close()
	}
	return nil
}

// Get returns the default client, or nil if Init has not been called.
func Get() *analytics.Client {
	lock.RLock()
	defer lock.RUnlock()
	return client
}

// Close closes the default client and forgets it.
func Close() error {
	lock.Lock()
	c := client
	client = nil
	lock.Unlock()
	if c == nil {
		return ErrNotInitialized
	}
	return c.Close()
}

// Identify sends an identify message through the default client. It returns ErrNotInitialized if
// Init has not been called.
func Identify(message analytics.Message, callback analytics.Callback) error {
	return withClient(func(c *analytics.Client) error { return c.Identify(message, callback) })
}

// Group is analytics.Client.Group on the default client.
func Group(message analytics.Message, callback analytics.Callback) error {
	return withClient(func(c *analytics.Client) error { return c.Group(message, callback) })
}

// Track is analytics.Client.Track on the default client.
func Track(message analytics.Message, callback analytics.Callback) error {
	return withClient(func(c *analytics.Client) error { return c.Track(message, callback) })
}

// Page is analytics.Client.Page on the default client.
func Page(message analytics.Message, callback analytics.Callback) error {
	return withClient(func(c *analytics.Client) error { return c.Page(message, callback) })
}

// Screen is analytics.Client.Screen on the default client.
func Screen(message analytics.Message, callback analytics.Callback) error {
	return withClient(func(c *analytics.Client) error { return c.Screen(message, callback) })
}

// Alias is analytics.Client.Alias on the default client.
func Alias(message analytics.Message, callback analytics.Callback) error {
	return withClient(func(c *analytics.Client) error { return c.Alias(message, callback) })
}

// Flush is analytics.Client.Flush on the default client.
func Flush(ctx context.Context) (*analytics.Batch, error) {
	var batch *analytics.Batch
	err := withClient(func(c *analytics.Client) error {
		var err error
		batch, err = c.Flush(ctx)
		return err
	})
	return batch, err
}

func withClient(fn func(c *analytics.Client) error) error {
	c := Get()
	if c == nil {
		return ErrNotInitialized
	}
	return fn(c)
}
