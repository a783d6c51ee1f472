// Package snowflake generate the document ids, unique across the api
// instances as long as each instance runs on its own node number.
package snowflake

import (
	"crypto/rand"
	"hash/fnv"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// maxNode the node bits of bwmarrin/snowflake
const maxNode = 1023

var node *snowflake.Node

func init() {
	n, err := snowflake.NewNode(nodeNumber(os.Getenv("NODE_ID"), hostname()))
	if err != nil {
		panic("init snowflake error " + err.Error())
	}
	node = n
}

// NewID a new id in base 10
func NewID() string {
	return node.Generate().String()
}

func hostname() string {
	h, _ := os.Hostname()
	return h
}

// nodeNumber NODE_ID first, then the ordinal suffix of a stateful set pod
// (devcamper-api-3), then a hash of the hostname. A random node is the last
// resort.
func nodeNumber(env, host string) int64 {
	if n, ok := parseNode(env); ok {
		return n
	}
	if i := strings.LastIndex(host, "-"); i > 0 {
		if n, ok := parseNode(host[i+1:]); ok {
			return n
		}
	}
	if host != "" {
		h := fnv.New32a()
		_, _ = h.Write([]byte(host))
		return int64(h.Sum32() % maxNode)
	}
	r, err := rand.Int(rand.Reader, big.NewInt(maxNode))
	if err != nil {
		return 0
	}
	return r.Int64()
}

func parseNode(s string) (int64, bool) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 || n > maxNode {
		return 0, false
	}
	return n, true
}
