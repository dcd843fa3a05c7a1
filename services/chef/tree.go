package chef

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"storyweaver-chef/lib/curation"
)

// books published straight from the community end up in one enormous
// bucket, so it gets split into numbered sub-buckets of at most 20
const communityPublisher = "StoryWeaver Community"
const communityBucketSize = 20

// Tree is the grouping structure for one category: a branch maps grouping
// keys to subtrees, a leaf holds an ordered list of books. A node is always
// one or the other, never both.
type Tree struct {
	branches map[string]*Tree
	books    []Book
	leaf     bool
}

func newBranch() *Tree {
	return &Tree{branches: map[string]*Tree{}}
}

func (t *Tree) branch(key string) *Tree {
	child := t.branches[key]
	if child == nil {
		child = newBranch()
		t.branches[key] = child
	}
	return child
}

func (t *Tree) appendBook(key string, book Book) {
	child := t.branches[key]
	if child == nil {
		child = &Tree{leaf: true}
		t.branches[key] = child
	}
	child.books = append(child.books, book)
}

// Keys returns the grouping keys of a branch in sorted order. Level labels
// sort lexicographically like every other key, so "10" comes before "2".
func (t *Tree) Keys() []string {
	keys := make([]string, 0, len(t.branches))
	for key := range t.branches {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// buildCategoryTree groups one category's books by publisher, then
// language, then reading level. Relative order of books sharing a full key
// path follows the input sequence.
func buildCategoryTree(books []Book) *Tree {
	root := newBranch()

	communityCount := 0
	communityIndex := 1
	for _, book := range books {
		publisher := book.Publisher
		if publisher == communityPublisher {
			communityCount++
			if communityCount > communityBucketSize {
				communityIndex++
				communityCount = 1
			}
			publisher = fmt.Sprintf("%s-%d", publisher, communityIndex)
		}

		root.branch(publisher).branch(book.Language).appendBook(book.Level, book)
	}

	return root
}

// topicTitle renders a grouping key as a topic title, numeric keys are
// reading levels.
func topicTitle(key string) string {
	if n, err := strconv.Atoi(key); err == nil {
		return fmt.Sprintf("Level %d", n)
	}
	return key
}

func underscored(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}

// emit walks the tree depth-first in sorted key order and attaches topic
// nodes under `parent`, calling `emitLeaf` for every leaf list. A topic that
// ends up with no children is dropped instead of attached, which keeps
// fully-skipped branches out of the final channel.
func (t *Tree) emit(ctx context.Context, parent curation.Node, emitLeaf func(ctx context.Context, books []Book, topic curation.Node)) {
	for _, key := range t.Keys() {
		child := t.branches[key]

		topic := curation.NewTopic(
			fmt.Sprintf("%s_%s", parent.ID(), underscored(key)),
			topicTitle(key),
		)

		if child.leaf {
			emitLeaf(ctx, child.books, topic)
		} else {
			child.emit(ctx, topic, emitLeaf)
		}

		if len(topic.Children()) > 0 {
			parent.AddChild(topic)
		}
	}
}
