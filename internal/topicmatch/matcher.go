// Package topicmatch implements the supplemented per-filter local message
// handler feature: registering a callback against a topic filter (with
// MQTT's "+"/"#" wildcards) and dispatching an inbound PUBLISH to every
// filter that matches its topic name, without going through a broker.
//
// Adapted from the teacher's topic/trie.go (subscription trie keyed by
// path segment) and gonzalop-mq/topic.go's matchTopic, which handles
// wildcard matching more completely than the teacher's single-branch
// node.find(): a PUBLISH can match more than one registered filter at once
// (e.g. both "a/+/c" and "a/#"), so every matching leaf's handlers fire,
// not just the first one found.
package topicmatch

import (
	"fmt"
	"strings"
	"sync"

	"github.com/nexmqtt/client/packet"
)

// Handler is invoked for every inbound message whose topic matches the
// filter it was registered against.
type Handler func(*packet.Message)

type node struct {
	children map[string]*node
	handlers []Handler
}

func newNode() *node {
	return &node{children: make(map[string]*node)}
}

// Matcher is a concurrency-safe registry of topic-filter -> Handler. The
// zero value is not usable; use NewMatcher.
type Matcher struct {
	mu   sync.RWMutex
	root *node
}

func NewMatcher() *Matcher {
	return &Matcher{root: newNode()}
}

// Subscribe registers handler against filter. Multiple handlers may be
// registered against the same filter; all are invoked on a match.
func (m *Matcher) Subscribe(filter string, handler Handler) error {
	if filter == "" {
		return fmt.Errorf("topicmatch: empty filter")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.root
	for _, seg := range strings.Split(filter, "/") {
		next, ok := cur.children[seg]
		if !ok {
			next = newNode()
			cur.children[seg] = next
		}
		cur = next
	}
	cur.handlers = append(cur.handlers, handler)
	return nil
}

// Unsubscribe removes every handler registered against filter.
func (m *Matcher) Unsubscribe(filter string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	segs := strings.Split(filter, "/")
	removeEmpty(m.root, segs)
}

// removeEmpty walks down to the filter's leaf, clears its handlers, and
// prunes now-empty branches back up toward the root.
func removeEmpty(n *node, segs []string) bool {
	if len(segs) == 0 {
		n.handlers = nil
		return len(n.children) == 0
	}
	child, ok := n.children[segs[0]]
	if !ok {
		return false
	}
	if removeEmpty(child, segs[1:]) {
		delete(n.children, segs[0])
	}
	return len(n.children) == 0 && len(n.handlers) == 0
}

// Match returns every handler registered against a filter that matches
// topicName, honoring "+" (single level) and "#" (rest of the topic).
func (m *Matcher) Match(topicName string) []Handler {
	m.mu.RLock()
	defer m.mu.RUnlock()
	segs := strings.Split(topicName, "/")
	var out []Handler
	collect(m.root, segs, &out)
	return out
}

func collect(n *node, segs []string, out *[]Handler) {
	if hashNode, ok := n.children["#"]; ok {
		*out = append(*out, hashNode.handlers...)
	}
	if len(segs) == 0 {
		*out = append(*out, n.handlers...)
		return
	}
	if child, ok := n.children[segs[0]]; ok {
		collect(child, segs[1:], out)
	}
	if plus, ok := n.children["+"]; ok {
		collect(plus, segs[1:], out)
	}
}

// Dispatch runs Match(msg.TopicName) and invokes every matching handler.
func (m *Matcher) Dispatch(msg *packet.Message) {
	for _, h := range m.Match(msg.TopicName) {
		h(msg)
	}
}
