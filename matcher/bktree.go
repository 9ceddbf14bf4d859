package matcher

import "sort"

// Match is one fingerprint returned by a radius query
type Match struct {
	Distance int
	Value    string
}

type bkNode struct {
	value    string
	bits     Bits
	children map[int]*bkNode
}

// BKTree indexes fingerprints under Hamming distance. Each distinct value is
// stored once. The tree is not safe for concurrent writes.
type BKTree struct {
	root *bkNode
	size int
}

// NewBKTree creates an empty tree
func NewBKTree() *BKTree {
	return &BKTree{}
}

// Len returns the number of distinct values in the tree
func (t *BKTree) Len() int { return t.size }

// Add inserts a hex fingerprint. Adding a value already present is a no-op.
func (t *BKTree) Add(value string) error {
	b, err := ParseBits(value)
	if err != nil {
		return err
	}

	node := &bkNode{value: value, bits: b}
	if t.root == nil {
		t.root = node
		t.size++
		return nil
	}

	cur := t.root
	for {
		d := Distance(b, cur.bits)
		if d == 0 && cur.value == value {
			return nil
		}
		next, ok := cur.children[d]
		if !ok {
			if cur.children == nil {
				cur.children = make(map[int]*bkNode)
			}
			cur.children[d] = node
			t.size++
			return nil
		}
		cur = next
	}
}

// Find returns every value within radius of probe, inclusive, sorted by
// distance then value
func (t *BKTree) Find(probe string, radius int) ([]Match, error) {
	b, err := ParseBits(probe)
	if err != nil {
		return nil, err
	}
	if t.root == nil {
		return nil, nil
	}

	var found []Match
	stack := []*bkNode{t.root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		d := Distance(b, node.bits)
		if d <= radius {
			found = append(found, Match{Distance: d, Value: node.value})
		}

		// triangle inequality: only children keyed within [d-radius, d+radius] can match
		for k, child := range node.children {
			if k >= d-radius && k <= d+radius {
				stack = append(stack, child)
			}
		}
	}

	sort.Slice(found, func(i, j int) bool {
		if found[i].Distance != found[j].Distance {
			return found[i].Distance < found[j].Distance
		}
		return found[i].Value < found[j].Value
	})
	return found, nil
}
