package deck

import (
	"fmt"
	"path"
	"strings"
)

// nameArena hands out part names that are unique within the composed
// document. Names are grouped in families (directory, alphabetic stem and
// extension) that share one increasing counter:
//
//	ppt/slides/slide1.xml, ppt/slides/slide2.xml, ...
//	ppt/media/image1.png, ppt/media/image2.png, ...
type nameArena struct {
	used map[string]bool
	next map[string]int
}

func newNameArena(existing []string) *nameArena {
	a := &nameArena{
		used: make(map[string]bool, len(existing)),
		next: make(map[string]int),
	}
	for _, name := range existing {
		a.used[name] = true
	}
	return a
}

// allocate returns a fresh name in the family of name
func (a *nameArena) allocate(name string) string {
	dir, base := path.Split(name)
	ext := path.Ext(base)
	stem := strings.TrimRight(strings.TrimSuffix(base, ext), "0123456789")
	family := dir + stem + "\x00" + ext
	for {
		a.next[family]++
		candidate := fmt.Sprintf("%s%s%d%s", dir, stem, a.next[family], ext)
		if !a.used[candidate] {
			a.used[candidate] = true
			return candidate
		}
	}
}

// reserve marks name as taken
func (a *nameArena) reserve(name string) {
	a.used[name] = true
}

// idArena allocates the shared master and layout identifier space
type idArena struct {
	next uint32
}

func (a *idArena) allocate() uint32 {
	id := a.next
	a.next++
	return id
}
