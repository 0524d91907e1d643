package program

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

type Kind string

const (
	KindService  Kind = "service"
	KindChildren Kind = "children"
)

var ErrUnknownProgram = errors.New("unknown program")

// Program is a named check-in context such as a worship service or the daycare room.
type Program struct {
	Key      string `yaml:"key" json:"key"`
	Title    string `yaml:"title" json:"title"`
	Kind     Kind   `yaml:"kind" json:"kind"`
	Location string `yaml:"location" json:"location"`
	MinAge   int    `yaml:"min_age" json:"min_age,omitempty"`
	MaxAge   int    `yaml:"max_age" json:"max_age,omitempty"`
}

func (p Program) IsChildren() bool {
	return p.Kind == KindChildren
}

type Catalog struct {
	programs map[string]Program
	order    []string
}

func NewCatalog(programs []Program) (Catalog, error) {
	c := Catalog{programs: make(map[string]Program, len(programs))}
	for _, p := range programs {
		p.Key = NormalizeKey(p.Key)
		if p.Key == "" {
			return Catalog{}, fmt.Errorf("program key is required")
		}
		if _, dup := c.programs[p.Key]; dup {
			return Catalog{}, fmt.Errorf("duplicate program key %q", p.Key)
		}
		switch p.Kind {
		case KindService, KindChildren:
		case "":
			p.Kind = KindService
		default:
			return Catalog{}, fmt.Errorf("program %q: unknown kind %q", p.Key, p.Kind)
		}
		if strings.TrimSpace(p.Title) == "" {
			p.Title = p.Key
		}
		c.programs[p.Key] = p
		c.order = append(c.order, p.Key)
	}
	return c, nil
}

func DefaultCatalog() Catalog {
	c, _ := NewCatalog([]Program{
		{Key: "sunday-worship", Title: "Sunday Worship", Kind: KindService, Location: "Main Sanctuary"},
		{Key: "daycare", Title: "Daycare", Kind: KindChildren, Location: "Nursery", MaxAge: 4},
		{Key: "youth", Title: "Youth", Kind: KindChildren, Location: "Youth Hall", MinAge: 5, MaxAge: 12},
		{Key: "teen", Title: "Teen", Kind: KindChildren, Location: "Teen Room", MinAge: 13, MaxAge: 18},
	})
	return c
}

func (c Catalog) Get(key string) (Program, error) {
	p, ok := c.programs[NormalizeKey(key)]
	if !ok {
		return Program{}, fmt.Errorf("%w: %q", ErrUnknownProgram, key)
	}
	return p, nil
}

func (c Catalog) List() []Program {
	result := make([]Program, 0, len(c.order))
	for _, key := range c.order {
		result = append(result, c.programs[key])
	}
	return result
}

func (c Catalog) ByKind(kind Kind) []Program {
	var result []Program
	for _, p := range c.List() {
		if p.Kind == kind {
			result = append(result, p)
		}
	}
	return result
}

func (c Catalog) Keys() []string {
	keys := append([]string(nil), c.order...)
	sort.Strings(keys)
	return keys
}

func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}
