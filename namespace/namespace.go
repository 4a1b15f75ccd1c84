package namespace

import "maps"

// Namespace is a named container for tables with opaque string properties.
type Namespace struct {
	Identity   Identity
	Properties map[string]string
}

// Clone returns a deep copy of the Namespace.
func (n *Namespace) Clone() *Namespace {
	return &Namespace{
		Identity:   n.Identity,
		Properties: cloneProperties(n.Properties),
	}
}

func cloneProperties(props map[string]string) map[string]string {
	if props == nil {
		return map[string]string{}
	}
	return maps.Clone(props)
}
