package curation

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestTopicChildren(t *testing.T) {
	topic := NewTopic("Folktales", "Folktales")
	if topic.ID() != "Folktales" {
		t.Fatal("unexpected id", topic.ID())
	}

	child := NewTopic("Folktales_P", "P")
	topic.AddChild(child)
	if len(topic.Children()) != 1 || topic.Children()[0] != Node(child) {
		t.Fatal("child not attached")
	}
}

func TestDocumentIsLeaf(t *testing.T) {
	doc := &DocumentNode{SourceId: "42"}
	doc.AddChild(NewTopic("x", "x"))
	if doc.Children() != nil {
		t.Fatal("documents must not accept children")
	}
}

func TestWriteTree(t *testing.T) {
	channel := &ChannelNode{
		SourceDomain: "storyweaver.org.in",
		SourceId:     "Pratham_Books_StoryWeaver",
		Title:        "Pratham Books' StoryWeaver",
		Language:     "en",
	}
	topic := NewTopic("Folktales", "Folktales")
	topic.AddChild(&DocumentNode{
		SourceId: "42",
		Title:    "Two Dogs",
		License:  CCBY("StoryWeaver"),
		Files:    []DocumentFile{{Path: "files/42.pdf"}},
	})
	channel.AddChild(topic)

	path := filepath.Join(t.TempDir(), "channel.json")
	err := WriteTree(path, channel)
	if err != nil {
		t.Fatal(err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		SourceId string `json:"source_id"`
		Children []struct {
			SourceId string `json:"source_id"`
			Children []struct {
				SourceId string `json:"source_id"`
				License  struct {
					Kind            string `json:"kind"`
					CopyrightHolder string `json:"copyright_holder"`
				} `json:"license"`
			} `json:"children"`
		} `json:"children"`
	}
	err = json.Unmarshal(contents, &decoded)
	if err != nil {
		t.Fatal(err)
	}
	if decoded.SourceId != "Pratham_Books_StoryWeaver" {
		t.Fatal("unexpected channel id", decoded.SourceId)
	}
	if len(decoded.Children) != 1 || decoded.Children[0].SourceId != "Folktales" {
		t.Fatal("unexpected topic layer", decoded.Children)
	}
	doc := decoded.Children[0].Children[0]
	if doc.SourceId != "42" || doc.License.Kind != "CC BY" {
		t.Fatal("unexpected document", doc)
	}
}
