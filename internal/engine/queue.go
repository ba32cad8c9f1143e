package engine

import (
	"stock_go/internal/domain"
)

// QueueNode is one resting order inside a PriceTimeQueue.
// A node reachable from a committed book is never written again; every
// change produces a fresh node, so readers of an older book version keep a
// stable view without locks.
type QueueNode struct {
	order domain.Order
	next  *QueueNode
}

// Order returns a copy of the order held by the node.
func (n *QueueNode) Order() domain.Order {
	return n.order
}

// Next returns the following node in priority order, or nil at the tail.
func (n *QueueNode) Next() *QueueNode {
	return n.next
}

// PriceTimeQueue is one side of one instrument, sorted best first.
//
//	buy : price desc, seq asc
//	sell: price asc,  seq asc
//
// The queue is a persistent singly linked list: Insert and RemoveFilled
// return a new queue and copy only the nodes ahead of the change point,
// sharing the untouched tail with the receiver.
type PriceTimeQueue struct {
	side domain.Side
	head *QueueNode
	size int
}

// NewPriceTimeQueue returns an empty queue for side.
func NewPriceTimeQueue(side domain.Side) PriceTimeQueue {
	return PriceTimeQueue{side: side}
}

// Side returns the side this queue holds.
func (q PriceTimeQueue) Side() domain.Side {
	return q.side
}

// Len returns the number of resting orders.
func (q PriceTimeQueue) Len() int {
	return q.size
}

// better reports whether a has strictly higher priority than b on this side.
func (q PriceTimeQueue) better(a, b *domain.Order) bool {
	if a.Price != b.Price {
		if q.side == domain.Buy {
			return a.Price > b.Price
		}
		return a.Price < b.Price
	}
	return a.Seq < b.Seq
}

// Insert links o in front of the first node whose priority is not better than o's.
// Cost is O(k) in the number of nodes ahead of the insertion point.
func (q PriceTimeQueue) Insert(o domain.Order) PriceTimeQueue {
	var head, tail *QueueNode
	link := func(n *QueueNode) {
		if tail == nil {
			head = n
		} else {
			tail.next = n
		}
		tail = n
	}

	cur := q.head
	for cur != nil && q.better(&cur.order, &o) {
		link(&QueueNode{order: cur.order})
		cur = cur.next
	}
	link(&QueueNode{order: o, next: cur})

	return PriceTimeQueue{side: q.side, head: head, size: q.size + 1}
}

// PeekBest returns the head node, or false when the queue is empty.
func (q PriceTimeQueue) PeekBest() (*QueueNode, bool) {
	if q.head == nil {
		return nil, false
	}
	return q.head, true
}

// RemoveFilled unlinks n, which must be present and have zero quantity.
// Removing the head is O(1); a deeper node costs a copy of its prefix.
func (q PriceTimeQueue) RemoveFilled(n *QueueNode) (PriceTimeQueue, error) {
	if n == nil {
		return q, domain.NewConsistencyError("remove_filled", "nil node")
	}
	if n.order.Quantity != 0 {
		return q, domain.NewConsistencyError("remove_filled",
			"order %d still has quantity %d", n.order.ID, n.order.Quantity)
	}
	if q.head == n {
		return PriceTimeQueue{side: q.side, head: n.next, size: q.size - 1}, nil
	}

	var head, tail *QueueNode
	for cur := q.head; cur != nil; cur = cur.next {
		if cur == n {
			tail.next = n.next
			return PriceTimeQueue{side: q.side, head: head, size: q.size - 1}, nil
		}
		cp := &QueueNode{order: cur.order}
		if tail == nil {
			head = cp
		} else {
			tail.next = cp
		}
		tail = cp
	}
	return q, domain.NewConsistencyError("remove_filled",
		"order %d not present in %s queue", n.order.ID, q.side)
}

// fillBest takes qty off the head order. A head that reaches zero is marked
// filled and unlinked. The filled-or-reduced order is returned.
func (q PriceTimeQueue) fillBest(qty int64) (PriceTimeQueue, domain.Order, error) {
	head, ok := q.PeekBest()
	if !ok {
		return q, domain.Order{}, domain.NewConsistencyError("fill", "empty %s queue", q.side)
	}
	if qty <= 0 || qty > head.order.Quantity {
		return q, domain.Order{}, domain.NewConsistencyError("fill",
			"fill %d exceeds order %d quantity %d", qty, head.order.ID, head.order.Quantity)
	}

	updated := &QueueNode{order: head.order, next: head.next}
	updated.order.Quantity -= qty
	next := PriceTimeQueue{side: q.side, head: updated, size: q.size}
	if updated.order.Quantity > 0 {
		return next, updated.order, nil
	}

	updated.order.Status = domain.OrderStatusFilled
	next, err := next.RemoveFilled(updated)
	return next, updated.order, err
}

// Orders returns the queue contents in priority order.
func (q PriceTimeQueue) Orders() []domain.Order {
	out := make([]domain.Order, 0, q.size)
	for n := q.head; n != nil; n = n.next {
		out = append(out, n.order)
	}
	return out
}

// Verify walks the queue and checks ordering, status and the cached length.
func (q PriceTimeQueue) Verify() error {
	count := 0
	var prev *QueueNode
	for n := q.head; n != nil; n = n.next {
		if n.order.Side != q.side {
			return domain.NewConsistencyError("verify", "order %d is %s in %s queue", n.order.ID, n.order.Side, q.side)
		}
		if !n.order.IsOpen() {
			return domain.NewConsistencyError("verify", "order %d is not open (status %s, qty %d)",
				n.order.ID, n.order.Status, n.order.Quantity)
		}
		if prev != nil && !q.better(&prev.order, &n.order) {
			return domain.NewConsistencyError("verify", "order %d ranked ahead of better order %d",
				prev.order.ID, n.order.ID)
		}
		prev = n
		count++
	}
	if count != q.size {
		return domain.NewConsistencyError("verify", "%s queue length %d, walked %d", q.side, q.size, count)
	}
	return nil
}
