// Package curation models the node tree handed off to the content-curation
// upload framework: a channel at the root, topics below it and document
// leaves at the bottom. The framework itself only cares that ids are unique
// within a channel and stable across runs, so the types here are plain
// recording structures that can stand in for the real ones in tests.
package curation

import (
	"encoding/json"
	"os"

	"github.com/google/uuid"
)

// Node is the capability the tree builder depends on: a stable id and the
// ability to attach children.
type Node interface {
	ID() string
	AddChild(Node)
	Children() []Node
}

type License struct {
	Kind            string `json:"kind"`
	CopyrightHolder string `json:"copyright_holder"`
}

// CCBY is the fixed license designation every emitted document carries.
func CCBY(holder string) License {
	return License{Kind: "CC BY", CopyrightHolder: holder}
}

type ChannelNode struct {
	SourceDomain string `json:"source_domain"`
	SourceId     string `json:"source_id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Language     string `json:"language"`
	Thumbnail    string `json:"thumbnail,omitempty"`
	Nodes        []Node `json:"children"`
}

func (c *ChannelNode) ID() string       { return c.SourceId }
func (c *ChannelNode) AddChild(n Node)  { c.Nodes = append(c.Nodes, n) }
func (c *ChannelNode) Children() []Node { return c.Nodes }

type TopicNode struct {
	SourceId string `json:"source_id"`
	Title    string `json:"title"`
	Nodes    []Node `json:"children"`
}

func NewTopic(sourceId, title string) *TopicNode {
	return &TopicNode{SourceId: sourceId, Title: title}
}

func (t *TopicNode) ID() string       { return t.SourceId }
func (t *TopicNode) AddChild(n Node)  { t.Nodes = append(t.Nodes, n) }
func (t *TopicNode) Children() []Node { return t.Nodes }

type DocumentFile struct {
	Path string `json:"path"`
}

type DocumentNode struct {
	SourceId    string         `json:"source_id"`
	DomainNs    uuid.UUID      `json:"domain_ns"`
	Title       string         `json:"title"`
	Author      string         `json:"author"`
	Provider    string         `json:"provider"`
	Description string         `json:"description"`
	Thumbnail   string         `json:"thumbnail,omitempty"`
	Language    string         `json:"language"`
	License     License        `json:"license"`
	Files       []DocumentFile `json:"files"`
}

func (d *DocumentNode) ID() string { return d.SourceId }

// documents are leaves, attaching below them is a no-op
func (d *DocumentNode) AddChild(Node)    {}
func (d *DocumentNode) Children() []Node { return nil }

// WriteTree serializes the finished channel to disk, the file is what gets
// handed to the upload framework.
func WriteTree(path string, channel *ChannelNode) error {
	out, err := json.MarshalIndent(channel, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, 0644)
}
