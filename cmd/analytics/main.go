// Command analytics sends a single analytics message from the command line and waits for it to be
// delivered.
//
//	analytics track --write-key KEY --user-id 019mr8mf4r --event "Item Purchased" \
//	    --properties '{"revenue": 39.95}'
//
// The write key may also come from ANALYTICS_WRITE_KEY, from a file given with --env-file, or from the
// YAML file given with --config. The command exits with a non-zero status if the message is rejected or
// cannot be delivered.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
