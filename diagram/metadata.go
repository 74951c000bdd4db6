package diagram

import (
	"fmt"
	"io"
	"sort"

	"gopkg.in/yaml.v3"
)

// RequiredVersion is the oldest catalog schema the engine understands.
const RequiredVersion = 1

// Metadata is the host-supplied catalog of node types. It is read-only
// to the engine.
type Metadata struct {
	Version      int                 `yaml:"version" json:"version"`
	Nodes        map[string]NodeType `yaml:"nodes" json:"nodes"`
	Descriptions Descriptions        `yaml:"descriptions" json:"descriptions"`
}

type NodeType struct {
	Shape       Shape      `yaml:"shape" json:"shape"`
	Icon        string     `yaml:"icon" json:"icon"`
	DisplayName string     `yaml:"displayName" json:"displayName"`
	BuildTag    string     `yaml:"buildTag" json:"buildTag"`
	Properties  []Property `yaml:"properties" json:"properties"`
	Links       []string   `yaml:"links" json:"links"`
}

type Property struct {
	Name    string `yaml:"name" json:"name"`
	Default string `yaml:"default" json:"default"`
}

type Descriptions struct {
	Link map[string]string `yaml:"link" json:"link"`
}

// LoadMetadata decodes a YAML (or JSON) catalog and validates it.
func LoadMetadata(r io.Reader) (*Metadata, error) {
	var meta Metadata
	if err := yaml.NewDecoder(r).Decode(&meta); err != nil {
		return nil, fmt.Errorf("diagram: decode metadata: %w", err)
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (m *Metadata) Validate() error {
	if m == nil || m.Version < RequiredVersion {
		version := 0
		if m != nil {
			version = m.Version
		}
		return fmt.Errorf("diagram: metadata version %d, need >= %d: %w", version, RequiredVersion, ErrMetadataVersion)
	}
	for _, key := range m.NodeKeys() {
		nt := m.Nodes[key]
		if nt.BuildTag == "" {
			return fmt.Errorf("diagram: node type %q has no build tag: %w", key, ErrUnknownNodeType)
		}
		if _, err := ParseShape(string(nt.Shape)); err != nil {
			return fmt.Errorf("diagram: node type %q: %w", key, err)
		}
	}
	return nil
}

func (m *Metadata) NodeType(key string) (NodeType, error) {
	nt, ok := m.Nodes[key]
	if !ok {
		return NodeType{}, fmt.Errorf("diagram: %q: %w", key, ErrUnknownNodeType)
	}
	return nt, nil
}

// NodeKeys returns the catalog keys in sorted order.
func (m *Metadata) NodeKeys() []string {
	keys := make([]string, 0, len(m.Nodes))
	for k := range m.Nodes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LinkDescription returns the display text for a link caption key.
func (m *Metadata) LinkDescription(caption string) string {
	if desc, ok := m.Descriptions.Link[caption]; ok && desc != "" {
		return desc
	}
	return caption
}
