package constants_test

import (
	"fmt"

	"github.com/immortalis/archivesync/pkg/constants"
)

// Example_keepalive shows the websocket keepalive schedule.
func Example_keepalive() {
	fmt.Printf("ping every %v, pong expected within %v\n", constants.PingPeriod, constants.PongWait)
	// Output:
	// ping every 54s, pong expected within 1m0s
}

// Example_reconnect shows the reconnect policy defaults.
func Example_reconnect() {
	fmt.Printf("first retry after %v, never more than %v apart\n",
		constants.ReconnectInitialInterval, constants.ReconnectMaxInterval)
	// Output:
	// first retry after 500ms, never more than 30s apart
}
