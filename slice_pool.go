package qtag

import "github.com/delaneyj/toolbelt"

var (
	idPathPool = toolbelt.New(func() []uint64 { return make([]uint64, 0, 8) })
	stringPool = toolbelt.New(func() []string { return make([]string, 0, 8) })
)

func getIDPath() []uint64 {
	return idPathPool.Get()[:0]
}

func putIDPath(s []uint64) {
	if s == nil {
		return
	}
	idPathPool.Put(s[:0])
}

func getStringSlice(n int) []string {
	if n <= 0 {
		return nil
	}
	s := stringPool.Get()
	if cap(s) < n {
		return make([]string, n)
	}
	return s[:n]
}

func putStringSlice(s []string) {
	if s == nil {
		return
	}
	for i := range s {
		s[i] = ""
	}
	stringPool.Put(s[:0])
}
