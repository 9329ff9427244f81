package flowsync

import "github.com/frankframework/frankflow/floworacle"

// pendingNode holds the attribute changes queued for one node.
type pendingNode struct {
	uid   string
	attrs []floworacle.ChangedAttribute
}

// editQueue is an insertion ordered map of node uid to attribute changes. A later change
// to the same attribute of the same node replaces the earlier value in place.
type editQueue struct {
	nodes      []*pendingNode
	byUID      map[string]*pendingNode
	flowUpdate bool
}

func newEditQueue() *editQueue {
	return &editQueue{
		byUID: make(map[string]*pendingNode),
	}
}

func (q *editQueue) add(uid string, changes []floworacle.ChangedAttribute, flowUpdate bool) {
	pn, ok := q.byUID[uid]
	if !ok {
		pn = &pendingNode{uid: uid}
		q.byUID[uid] = pn
		q.nodes = append(q.nodes, pn)
	}
outer:
	for _, c := range changes {
		for i := range pn.attrs {
			if pn.attrs[i].Name == c.Name {
				pn.attrs[i].Value = c.Value
				continue outer
			}
		}
		pn.attrs = append(pn.attrs, c)
	}
	q.flowUpdate = q.flowUpdate || flowUpdate
}

func (q *editQueue) empty() bool {
	return len(q.nodes) == 0
}

// len returns the number of queued attribute changes.
func (q *editQueue) len() int {
	n := 0
	for _, pn := range q.nodes {
		n += len(pn.attrs)
	}
	return n
}

// drain empties the queue and returns what it held.
func (q *editQueue) drain() ([]*pendingNode, bool) {
	nodes, flowUpdate := q.nodes, q.flowUpdate
	q.nodes = nil
	q.byUID = make(map[string]*pendingNode)
	q.flowUpdate = false
	return nodes, flowUpdate
}
