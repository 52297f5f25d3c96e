// Package sequence provides the number generators behind human-readable
// order numbers (SALE-..., PO-..., RET-...). The monotonic segment comes from an
// injected Generator rather than package-level state, so a multi-instance
// deployment stays collision-free by giving each instance its own snowflake
// node id.
package sequence

import (
	"crypto/rand"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Generator yields strictly increasing identifiers for order numbering.
// Implementations must be safe for concurrent use.
type Generator interface {
	Next() int64
}

// Snowflake generates ids that are unique across processes sharing distinct
// node ids. Ids are strictly increasing within one node.
type Snowflake struct {
	node *snowflake.Node
}

// NewSnowflake creates a snowflake-backed generator for the given node id
// (0..1023).
func NewSnowflake(nodeID int64) (*Snowflake, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("sequence: invalid snowflake node id %d: %w", nodeID, err)
	}
	return &Snowflake{node: node}, nil
}

func (s *Snowflake) Next() int64 {
	return s.node.Generate().Int64()
}

// Counter is an in-process atomic generator. Suitable for tests and
// single-instance deployments only.
type Counter struct {
	n atomic.Int64
}

func (c *Counter) Next() int64 {
	return c.n.Add(1)
}

const suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Number mints an order number of the form
// PREFIX-{epoch millis}-{sequence}-{4 random chars}. The sequence segment is
// the uniqueness guarantee; the random suffix is a secondary guard only.
func Number(prefix string, gen Generator) string {
	return fmt.Sprintf("%s-%d-%d-%s", prefix, time.Now().UnixMilli(), gen.Next(), randomSuffix(4))
}

func randomSuffix(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	for i := range b {
		b[i] = suffixAlphabet[int(b[i])%len(suffixAlphabet)]
	}
	return string(b)
}
