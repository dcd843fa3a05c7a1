package chef

import (
	"context"
	"fmt"
	"testing"

	"storyweaver-chef/lib/curation"

	"github.com/google/go-cmp/cmp"
)

func levelBook(id, publisher, language, level string) Book {
	return Book{
		SourceId:  id,
		Title:     "Book " + id,
		Publisher: publisher,
		Language:  language,
		Level:     level,
	}
}

// attachAll is a leaf callback that emits every book as a bare topic,
// standing in for the download-backed emitter.
func attachAll(ctx context.Context, books []Book, topic curation.Node) {
	for _, book := range books {
		topic.AddChild(curation.NewTopic(book.SourceId, book.Title))
	}
}

// dropAll emits nothing, every branch above it should disappear.
func dropAll(ctx context.Context, books []Book, topic curation.Node) {}

type snapshot struct {
	Id       string
	Title    string
	Children []snapshot
}

func snapshotNode(n curation.Node) snapshot {
	s := snapshot{Id: n.ID()}
	if topic, ok := n.(*curation.TopicNode); ok {
		s.Title = topic.Title
	}
	for _, child := range n.Children() {
		s.Children = append(s.Children, snapshotNode(child))
	}
	return s
}

func TestGroupingStability(t *testing.T) {
	books := []Book{
		levelBook("1", "P", "English", "2"),
		levelBook("2", "P", "English", "2"),
		levelBook("3", "P", "English", "2"),
	}
	tree := buildCategoryTree(books)

	leaf := tree.branches["P"].branches["English"].branches["2"]
	if leaf == nil || !leaf.leaf {
		t.Fatal("expected a leaf under P/English/2")
	}
	for i, book := range leaf.books {
		if book.SourceId != fmt.Sprint(i+1) {
			t.Fatalf("leaf order not stable: %v", leaf.books)
		}
	}
}

func TestCommunityBucketSplitting(t *testing.T) {
	var books []Book
	for i := 0; i < 45; i++ {
		books = append(books, levelBook(fmt.Sprint(i), communityPublisher, "English", "1"))
	}
	tree := buildCategoryTree(books)

	sizes := map[string]int{}
	for key, bucket := range tree.branches {
		sizes[key] = len(bucket.branches["English"].branches["1"].books)
	}

	want := map[string]int{
		communityPublisher + "-1": 20,
		communityPublisher + "-2": 20,
		communityPublisher + "-3": 5,
	}
	if diff := cmp.Diff(want, sizes); diff != "" {
		t.Fatalf("bucket sizes mismatch (-want +got):\n%s", diff)
	}
}

func TestTopicTitles(t *testing.T) {
	if got := topicTitle("3"); got != "Level 3" {
		t.Fatalf(`topicTitle("3") = %q`, got)
	}
	if got := topicTitle("Beginner"); got != "Beginner" {
		t.Fatalf(`topicTitle("Beginner") = %q`, got)
	}
}

func TestEmitSortsKeysAndDerivesIds(t *testing.T) {
	books := []Book{
		levelBook("1", "Publisher B", "Hindi", "2"),
		levelBook("2", "Publisher A", "English", "10"),
		levelBook("3", "Publisher A", "English", "2"),
	}
	tree := buildCategoryTree(books)

	root := curation.NewTopic("Animal_Stories", "Animal Stories")
	tree.emit(context.Background(), root, attachAll)

	got := snapshotNode(root)

	// keys sort lexicographically at every depth, so level "10" precedes "2"
	want := snapshot{
		Id: "Animal_Stories", Title: "Animal Stories",
		Children: []snapshot{
			{
				Id: "Animal_Stories_Publisher_A", Title: "Publisher A",
				Children: []snapshot{
					{
						Id: "Animal_Stories_Publisher_A_English", Title: "English",
						Children: []snapshot{
							{
								Id: "Animal_Stories_Publisher_A_English_10", Title: "Level 10",
								Children: []snapshot{{Id: "2", Title: "Book 2"}},
							},
							{
								Id: "Animal_Stories_Publisher_A_English_2", Title: "Level 2",
								Children: []snapshot{{Id: "3", Title: "Book 3"}},
							},
						},
					},
				},
			},
			{
				Id: "Animal_Stories_Publisher_B", Title: "Publisher B",
				Children: []snapshot{
					{
						Id: "Animal_Stories_Publisher_B_Hindi", Title: "Hindi",
						Children: []snapshot{
							{
								Id: "Animal_Stories_Publisher_B_Hindi_2", Title: "Level 2",
								Children: []snapshot{{Id: "1", Title: "Book 1"}},
							},
						},
					},
				},
			},
		},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestEmitDropsEmptyBranches(t *testing.T) {
	books := []Book{
		levelBook("1", "P", "English", "2"),
		levelBook("2", "Q", "Hindi", "3"),
	}
	tree := buildCategoryTree(books)

	root := curation.NewTopic("Folktales", "Folktales")
	tree.emit(context.Background(), root, dropAll)

	if len(root.Children()) != 0 {
		t.Fatalf("expected no topics when every leaf emits nothing, got %v", snapshotNode(root))
	}
}

func TestEmitIdempotent(t *testing.T) {
	books := []Book{
		levelBook("1", "P", "English", "2"),
		levelBook("2", "P", "Hindi", "1"),
		levelBook("3", "Q", "English", "Beginner"),
	}

	build := func() snapshot {
		tree := buildCategoryTree(books)
		root := curation.NewTopic("Folktales", "Folktales")
		tree.emit(context.Background(), root, attachAll)
		return snapshotNode(root)
	}

	if diff := cmp.Diff(build(), build()); diff != "" {
		t.Fatalf("two builds over the same input differ:\n%s", diff)
	}
}
