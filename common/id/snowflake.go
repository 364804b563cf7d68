// Package id generates unique, time-ordered identifiers for sessions and
// turns. Backed by a single Snowflake node; call Init once at startup.
package id

import (
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once
)

// Init initializes the Snowflake node with the given node ID.
func Init(nodeID int64) error {
	var err error
	once.Do(func() {
		node, err = snowflake.NewNode(nodeID)
	})
	return err
}

// New generates a new globally unique int64 ID using the Snowflake algorithm.
// IDs are time-ordered and unique across instances.
func New() int64 {
	return node.Generate().Int64()
}

// NewString generates a new ID rendered in base 36, a compact form suitable
// for filenames such as per-session transcript logs.
func NewString() string {
	return node.Generate().Base36()
}
