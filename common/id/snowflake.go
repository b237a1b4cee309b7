package id

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

const defaultNodeID = 1

var (
	node    *snowflake.Node
	nodeErr error
	once    sync.Once
)

// Init initializes the Snowflake node with the given node ID.
// Must be called before the first New; later calls are no-ops.
func Init(nodeID int64) error {
	once.Do(func() {
		node, nodeErr = snowflake.NewNode(nodeID)
	})
	return nodeErr
}

// New generates a new globally unique int64 ID using the Snowflake algorithm.
// IDs are time-ordered and unique across distributed instances.
func New() int64 {
	return current().Generate().Int64()
}

// Readable returns an ID of the form PREFIX-yyyymmdd-XXXXXXXXXXX.
// The date is at's calendar date in at's own location, so callers pick the
// zone their "today" uses. Uniqueness comes from the snowflake suffix,
// which never repeats on a node even for calls in the same millisecond.
func Readable(prefix string, at time.Time) string {
	suffix := strings.ToUpper(current().Generate().Base36())
	return fmt.Sprintf("%s-%s-%s", prefix, at.Format("20060102"), suffix)
}

func current() *snowflake.Node {
	_ = Init(defaultNodeID)
	if node == nil {
		panic(fmt.Sprintf("snowflake node unavailable: %v", nodeErr))
	}
	return node
}
