// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package cache

// lruNode is an element of an lruList. It carries its key so the owner can
// delete the map entry when the node falls off the tail.
type lruNode[K comparable] struct {
	key        K
	prev, next *lruNode[K]
}

// lruList orders keys from most recently used (front) to least (back).
// It is a ring around a sentinel node, so no operation branches on empty.
// Not thread-safe.
type lruList[K comparable] struct {
	root lruNode[K]
	len  int
}

func newLRUList[K comparable]() *lruList[K] {
	l := &lruList[K]{}
	l.root.prev = &l.root
	l.root.next = &l.root
	return l
}

// Len returns the number of keys in the list.
func (l *lruList[K]) Len() int { return l.len }

// PushFront inserts key as the most recently used.
func (l *lruList[K]) PushFront(key K) *lruNode[K] {
	n := &lruNode[K]{key: key}
	l.insertAfter(n, &l.root)
	l.len++
	return n
}

// MoveToFront marks n as the most recently used.
func (l *lruList[K]) MoveToFront(n *lruNode[K]) {
	if n == nil || l.root.next == n {
		return
	}
	l.unlink(n)
	l.insertAfter(n, &l.root)
}

// Remove takes n out of the list.
func (l *lruList[K]) Remove(n *lruNode[K]) {
	if n == nil || n.next == nil {
		return
	}
	l.unlink(n)
	n.prev, n.next = nil, nil
	l.len--
}

// Oldest returns the least recently used key.
func (l *lruList[K]) Oldest() (K, bool) {
	if l.len == 0 {
		var zero K
		return zero, false
	}
	return l.root.prev.key, true
}

// RemoveOldest removes and returns the least recently used key.
func (l *lruList[K]) RemoveOldest() (K, bool) {
	if l.len == 0 {
		var zero K
		return zero, false
	}
	n := l.root.prev
	l.Remove(n)
	return n.key, true
}

// Clear empties the list.
func (l *lruList[K]) Clear() {
	l.root.prev = &l.root
	l.root.next = &l.root
	l.len = 0
}

func (l *lruList[K]) insertAfter(n, at *lruNode[K]) {
	n.prev = at
	n.next = at.next
	at.next.prev = n
	at.next = n
}

func (l *lruList[K]) unlink(n *lruNode[K]) {
	n.prev.next = n.next
	n.next.prev = n.prev
}
