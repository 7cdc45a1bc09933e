package qtag

// Table is the result of compiling a tag set: one packed tag per forest
// node, in pre-order, with its dotted name.
type Table[T Unsigned] struct {
	tags   []Tag[T]
	labels []string
	names  map[Tag[T]]string
	byName map[string]Tag[T]
}

// Compile builds the forest of set, enumerates it and packs every node,
// internal nodes included, with layout.
func Compile[T Unsigned](layout *Layout[T], set *TagStringSet) *Table[T] {
	return CompileForest(layout, BuildForest(set.Strings()))
}

// CompileForest enumerates f and packs every node with layout. Ids or depths
// the layout cannot hold are truncated; use Layout.CanRepresent first when
// that matters.
func CompileForest[T Unsigned](layout *Layout[T], f *Forest) *Table[T] {
	f.Enumerate()
	t := &Table[T]{
		tags:   make([]Tag[T], 0, f.Len()),
		labels: make([]string, 0, f.Len()),
		names:  make(map[Tag[T]]string, f.Len()),
		byName: make(map[string]Tag[T], f.Len()),
	}
	path := getIDPath()
	defer func() { putIDPath(path) }()
	f.Walk(func(idx, _ int) {
		path = f.IDPath(idx, path[:0])
		tag := layout.MakeFromPath(path...)
		name := f.Name(idx)
		t.tags = append(t.tags, tag)
		t.labels = append(t.labels, name)
		if _, dup := t.names[tag]; !dup {
			t.names[tag] = name
		}
		t.byName[name] = tag
	})
	return t
}

// Len returns the number of compiled tags.
func (t *Table[T]) Len() int { return len(t.tags) }

// Tags returns the compiled tags in pre-order.
func (t *Table[T]) Tags() []Tag[T] { return t.tags }

// NameAt returns the dotted name of the i-th compiled tag.
func (t *Table[T]) NameAt(i int) string { return t.labels[i] }

// Name returns the dotted name tag was compiled from. When several names
// packed to the same value the first one is returned.
func (t *Table[T]) Name(tag Tag[T]) (string, bool) {
	name, ok := t.names[tag]
	return name, ok
}

// Lookup returns the tag compiled for name.
func (t *Table[T]) Lookup(name string) (Tag[T], bool) {
	tag, ok := t.byName[name]
	return tag, ok
}
