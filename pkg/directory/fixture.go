package directory

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"sigs.k8s.io/yaml"

	"github.com/openfga/membersync/pkg/crawler"
)

// ErrInvalidFixture is returned for group graph files that cannot be loaded.
var ErrInvalidFixture = errors.New("invalid group fixture")

// Fixture is the file form of a group graph:
//
//	groups:
//	  - id: 0b0f6c4e-...
//	    name: engineering
//	    users: [7c1d...]
//	    groups: [9a3e...]
type Fixture struct {
	Groups []FixtureGroup `json:"groups"`
}

type FixtureGroup struct {
	ID     string   `json:"id"`
	Name   string   `json:"name,omitempty"`
	Users  []string `json:"users,omitempty"`
	Groups []string `json:"groups,omitempty"`
}

// ParseFixture decodes a YAML (or JSON) group graph.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFixture, err)
	}
	return &f, nil
}

// Graph builds an in-memory directory from the fixture. Nested groups that
// are referenced but not declared are left out, so crawling them reports a
// fetch failure like a group deleted upstream would.
func (f *Fixture) Graph() (*Graph, error) {
	g := NewGraph()
	seen := make(map[uuid.UUID]struct{}, len(f.Groups))

	for i, group := range f.Groups {
		groupID, err := uuid.Parse(group.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: group %d: id '%s': %w", ErrInvalidFixture, i, group.ID, err)
		}
		if _, ok := seen[groupID]; ok {
			return nil, fmt.Errorf("%w: group '%s' declared twice", ErrInvalidFixture, groupID)
		}
		seen[groupID] = struct{}{}

		children := make([]crawler.ChildRef, 0, len(group.Users)+len(group.Groups))
		for _, s := range group.Users {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("%w: group '%s': user '%s': %w", ErrInvalidFixture, groupID, s, err)
			}
			children = append(children, crawler.UserRef(id))
		}
		for _, s := range group.Groups {
			id, err := uuid.Parse(s)
			if err != nil {
				return nil, fmt.Errorf("%w: group '%s': nested group '%s': %w", ErrInvalidFixture, groupID, s, err)
			}
			children = append(children, crawler.GroupRef(id))
		}

		g.AddGroup(groupID, children...)
	}

	return g, nil
}

// LoadGraph reads a fixture from r and builds its directory.
func LoadGraph(r io.Reader) (*Graph, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	f, err := ParseFixture(data)
	if err != nil {
		return nil, err
	}
	return f.Graph()
}

// LoadGraphFile is [LoadGraph] for a file path.
func LoadGraphFile(path string) (*Graph, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return LoadGraph(file)
}
