package config

import "gopkg.in/yaml.v3"

// List accepts either a single YAML scalar or a sequence, so that
// "temperature: 1000" and "temperature: [1000, 1200]" both decode.
type List[T any] []T

// UnmarshalYAML implements yaml.Unmarshaler.
func (l *List[T]) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.SequenceNode {
		var items []T
		if err := value.Decode(&items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var item T
	if err := value.Decode(&item); err != nil {
		return err
	}
	*l = List[T]{item}
	return nil
}

// at returns element i, broadcasting a single value over every index.
func (l List[T]) at(i int) T {
	if len(l) == 1 {
		return l[0]
	}
	return l[i]
}

// fits reports whether l can be indexed for n items.
func (l List[T]) fits(n int) bool {
	return len(l) == 1 || len(l) == n
}
