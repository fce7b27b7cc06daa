package opc

import (
	"path"
	"strings"
)

// SkipFunc decides whether the walk should not follow rel from source
type SkipFunc func(source string, rel Relationship) bool

// Reachable returns the parts reachable from roots through internal
// relationships, roots included, in discovery order. The root "" stands for
// the package relationships and is not part of the result.
func (p *Package) Reachable(roots []string, skip SkipFunc) []string {
	seen := make(map[string]bool)
	var order []string
	queue := make([]string, 0, len(roots))

	for _, root := range roots {
		root = normalizeName(root)
		if seen[root] {
			continue
		}
		seen[root] = true
		if root != "" {
			if _, ok := p.parts[root]; !ok {
				continue
			}
			order = append(order, root)
		}
		queue = append(queue, root)
	}

	for len(queue) > 0 {
		source := queue[0]
		queue = queue[1:]
		rels, ok := p.rels[source]
		if !ok {
			continue
		}
		for _, rel := range rels.Relationship {
			if rel.IsExternal() {
				continue
			}
			if skip != nil && skip(source, rel) {
				continue
			}
			target := ResolveTarget(source, rel.Target)
			if seen[target] {
				continue
			}
			seen[target] = true
			if _, ok := p.parts[target]; !ok {
				continue
			}
			order = append(order, target)
			queue = append(queue, target)
		}
	}
	return order
}

// CloneRenamed copies the parts accepted by keep under the names chosen by
// rename, without touching the receiver. Relationship targets and content
// types follow the renamed parts; relationships pointing at parts that were
// not kept are dropped. A nil keep accepts every part.
func (p *Package) CloneRenamed(keep func(name string) bool, rename func(name string) string) (*Package, map[string]string) {
	out := New()
	out.types = &ContentTypes{
		defaults:  make(map[string]string, len(p.types.defaults)),
		overrides: make(map[string]string),
	}
	for ext, ct := range p.types.defaults {
		out.types.defaults[ext] = ct
	}

	mapping := make(map[string]string)
	for _, name := range p.PartNames() {
		if keep != nil && !keep(name) {
			continue
		}
		newName := normalizeName(rename(name))
		mapping[name] = newName
	}

	for oldName, newName := range mapping {
		out.parts[newName] = p.parts[oldName].Clone(newName)
		if ct, ok := p.types.overrides[oldName]; ok {
			out.types.overrides[newName] = ct
		} else if ct := p.types.TypeOf(oldName); ct != "" && out.types.TypeOf(newName) != ct {
			out.types.overrides[newName] = ct
		}
	}

	for source, rels := range p.rels {
		newSource := ""
		if source != "" {
			var ok bool
			newSource, ok = mapping[source]
			if !ok {
				continue
			}
		}
		cloned := &Relationships{Namespace: rels.Namespace, loaded: rels.loaded}
		for _, rel := range rels.Relationship {
			if rel.IsExternal() {
				cloned.Relationship = append(cloned.Relationship, rel)
				continue
			}
			target := ResolveTarget(source, rel.Target)
			newTarget, ok := mapping[target]
			if !ok {
				continue
			}
			rel.Target = RelativeTarget(newSource, newTarget) + targetFragment(rel.Target)
			cloned.Relationship = append(cloned.Relationship, rel)
		}
		out.rels[newSource] = cloned
	}

	return out, mapping
}

// CloneWithPrefix returns a renamed deep copy in which every part except the
// package-level singletons gets prefix prepended to its base name, plus the
// old-to-new name mapping. The receiver is not modified.
func (p *Package) CloneWithPrefix(prefix string) (*Package, map[string]string) {
	main, _ := p.MainDocument()
	return p.CloneRenamed(nil, func(name string) string {
		if name == main || isPackageSingleton(name) {
			return name
		}
		dir, base := path.Split(name)
		return dir + prefix + base
	})
}

// Prune removes every part that is no longer reachable from the package
// relationships and returns the removed names.
func (p *Package) Prune() []string {
	live := make(map[string]bool)
	for _, name := range p.Reachable([]string{""}, nil) {
		live[name] = true
	}
	var removed []string
	for _, name := range p.PartNames() {
		if !live[name] {
			p.RemovePart(name)
			removed = append(removed, name)
		}
	}
	return removed
}

func isPackageSingleton(name string) bool {
	return strings.HasPrefix(name, "docProps/")
}

func targetFragment(target string) string {
	if i := strings.IndexByte(target, '#'); i >= 0 {
		return target[i:]
	}
	return ""
}
