package namespace

// Property is a single key/value pair of a namespace property update.
type Property struct {
	Key   string
	Value string
}

// PropertiesDiff classifies the outcome of a property update.
type PropertiesDiff struct {
	// Removed holds the keys that existed and were removed.
	Removed []string `json:"removed"`
	// Missing holds the keys requested for removal that did not exist.
	Missing []string `json:"missing"`
	// Updated holds the keys that were added or overwritten.
	Updated []string `json:"updated"`
}

// ReconcileProperties applies removals and updates to props in place and
// returns the resulting diff.
//
// A key present in both removals and updates is updated, not removed.
// Duplicate keys collapse to a single diff entry and every slice in the
// returned diff is non-nil. Removed and Missing follow the order of removals,
// Updated follows the order of updates.
func ReconcileProperties(props map[string]string, removals []string, updates []Property) PropertiesDiff {
	diff := PropertiesDiff{
		Removed: []string{},
		Missing: []string{},
		Updated: []string{},
	}

	updateKeys := make(map[string]struct{}, len(updates))
	for _, p := range updates {
		updateKeys[p.Key] = struct{}{}
	}

	seen := make(map[string]struct{}, len(removals))
	for _, key := range removals {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if _, ok := updateKeys[key]; ok {
			continue
		}
		if _, ok := props[key]; ok {
			delete(props, key)
			diff.Removed = append(diff.Removed, key)
		} else {
			diff.Missing = append(diff.Missing, key)
		}
	}

	clear(seen)
	for _, p := range updates {
		props[p.Key] = p.Value
		if _, ok := seen[p.Key]; ok {
			continue
		}
		seen[p.Key] = struct{}{}
		diff.Updated = append(diff.Updated, p.Key)
	}

	return diff
}
