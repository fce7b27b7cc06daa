package opc

import (
	"path"
	"strings"
)

// normalizeName strips the leading slash used by manifests and relationship targets
func normalizeName(name string) string {
	return strings.TrimPrefix(name, "/")
}

// RelsPartName converts a part name to its relationships part name.
// e.g., "ppt/slides/slide1.xml" -> "ppt/slides/_rels/slide1.xml.rels"
// The package itself uses the empty source name.
func RelsPartName(source string) string {
	if source == "" {
		return PackageRelsPartName
	}
	dir, base := path.Split(normalizeName(source))
	return dir + "_rels/" + base + ".rels"
}

// SourceOfRels is the inverse of RelsPartName. ok is false for names that are
// not relationship parts.
func SourceOfRels(relsName string) (source string, ok bool) {
	relsName = normalizeName(relsName)
	if !strings.HasSuffix(relsName, ".rels") {
		return "", false
	}
	dir, base := path.Split(relsName)
	if !strings.HasSuffix(dir, "_rels/") {
		return "", false
	}
	owner := strings.TrimSuffix(dir, "_rels/") + strings.TrimSuffix(base, ".rels")
	if owner == "" {
		return "", true
	}
	if strings.HasSuffix(owner, "/") {
		return "", false
	}
	return owner, true
}

// ResolveTarget turns a relationship target into an absolute part name.
// Targets are relative to the directory of the source part unless they start with "/".
func ResolveTarget(source, target string) string {
	if i := strings.IndexByte(target, '#'); i >= 0 {
		target = target[:i]
	}
	if target == "" {
		return ""
	}
	if strings.HasPrefix(target, "/") {
		return normalizeName(path.Clean(target))
	}
	base := path.Dir(normalizeName(source))
	return normalizeName(path.Clean(path.Join(base, target)))
}

// RelativeTarget expresses the part name target relative to the directory of source.
func RelativeTarget(source, target string) string {
	from := splitDir(path.Dir(normalizeName(source)))
	to := strings.Split(normalizeName(target), "/")

	common := 0
	for common < len(from) && common < len(to)-1 && from[common] == to[common] {
		common++
	}

	var parts []string
	for i := common; i < len(from); i++ {
		parts = append(parts, "..")
	}
	parts = append(parts, to[common:]...)
	return strings.Join(parts, "/")
}

func splitDir(dir string) []string {
	if dir == "." || dir == "" || dir == "/" {
		return nil
	}
	return strings.Split(strings.Trim(dir, "/"), "/")
}
