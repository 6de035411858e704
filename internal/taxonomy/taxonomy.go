package taxonomy

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Node is one taxonomy entry: a machine key and its display label.
type Node struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type area struct {
	Node
	categories []Node
}

type topic struct {
	Node
	areas     []area
	areaByKey map[string]int
}

// Index is the topic → area → category tree. It is immutable after Build and
// safe for concurrent readers.
type Index struct {
	topics     []topic
	topicByKey map[string]int
}

// Empty returns an index without any topic. Facet lookups on it fail, while
// everything that does not depend on the taxonomy keeps working.
func Empty() *Index {
	return &Index{topicByKey: map[string]int{}}
}

// Build assembles an index from a parsed document. Missing labels are derived
// from keys and every level is ordered by label.
func Build(doc Document) *Index {
	idx := Empty()
	for key, c := range doc.Clusters {
		t := topic{
			Node:      Node{Key: key, Label: labelOr(c.Label, key)},
			areaByKey: map[string]int{},
		}
		for akey, s := range c.SubClusters {
			a := area{Node: Node{Key: akey, Label: labelOr(s.Label, akey)}}
			seen := map[string]bool{}
			for _, cat := range s.Categories {
				if cat == "" || seen[cat] {
					continue
				}
				seen[cat] = true
				a.categories = append(a.categories, Node{Key: cat, Label: Humanize(cat)})
			}
			sortNodes(a.categories)
			t.areas = append(t.areas, a)
		}
		sort.SliceStable(t.areas, nodeLess(func(i int) Node { return t.areas[i].Node }))
		for i, a := range t.areas {
			t.areaByKey[a.Key] = i
		}
		idx.topics = append(idx.topics, t)
	}
	sort.SliceStable(idx.topics, nodeLess(func(i int) Node { return idx.topics[i].Node }))
	for i, t := range idx.topics {
		idx.topicByKey[t.Key] = i
	}
	return idx
}

// IsEmpty reports whether the index has no topics.
func (x *Index) IsEmpty() bool {
	return x == nil || len(x.topics) == 0
}

// Topics lists all topics ordered by label.
func (x *Index) Topics() []Node {
	if x == nil {
		return []Node{}
	}
	out := make([]Node, 0, len(x.topics))
	for _, t := range x.topics {
		out = append(out, t.Node)
	}
	return out
}

// Areas lists the areas of a topic. ok is false for an unknown topic.
func (x *Index) Areas(topicKey string) (areas []Node, ok bool) {
	t, ok := x.topic(topicKey)
	if !ok {
		return []Node{}, false
	}
	out := make([]Node, 0, len(t.areas))
	for _, a := range t.areas {
		out = append(out, a.Node)
	}
	return out, true
}

// Categories lists the categories under topic and area. With an empty area it
// returns the de-duplicated union of the categories of every area of the topic.
func (x *Index) Categories(topicKey, areaKey string) (categories []Node, ok bool) {
	t, ok := x.topic(topicKey)
	if !ok {
		return []Node{}, false
	}
	if areaKey != "" {
		i, ok := t.areaByKey[areaKey]
		if !ok {
			return []Node{}, false
		}
		return append([]Node{}, t.areas[i].categories...), true
	}

	seen := map[string]bool{}
	out := []Node{}
	for _, a := range t.areas {
		for _, c := range a.categories {
			if !seen[c.Key] {
				seen[c.Key] = true
				out = append(out, c)
			}
		}
	}
	sortNodes(out)
	return out, true
}

func (x *Index) HasTopic(topicKey string) bool {
	_, ok := x.topic(topicKey)
	return ok
}

func (x *Index) HasArea(topicKey, areaKey string) bool {
	t, ok := x.topic(topicKey)
	if !ok {
		return false
	}
	_, ok = t.areaByKey[areaKey]
	return ok
}

func (x *Index) HasCategory(topicKey, areaKey, categoryKey string) bool {
	cats, ok := x.Categories(topicKey, areaKey)
	if !ok {
		return false
	}
	for _, c := range cats {
		if c.Key == categoryKey {
			return true
		}
	}
	return false
}

// Labels returns every area and category label of the tree, without
// duplicates, in tree order. It is the candidate set for search suggestions.
func (x *Index) Labels() []string {
	if x == nil {
		return []string{}
	}
	seen := map[string]bool{}
	out := []string{}
	add := func(s string) {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, t := range x.topics {
		for _, a := range t.areas {
			add(a.Label)
		}
	}
	for _, t := range x.topics {
		for _, a := range t.areas {
			for _, c := range a.categories {
				add(c.Label)
			}
		}
	}
	return out
}

func (x *Index) topic(key string) (topic, bool) {
	if x == nil || key == "" {
		return topic{}, false
	}
	i, ok := x.topicByKey[key]
	if !ok {
		return topic{}, false
	}
	return x.topics[i], true
}

// Humanize turns a machine key into a display label: underscores become
// spaces and every word starts with an upper-case letter.
func Humanize(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func labelOr(label, key string) string {
	if l := strings.TrimSpace(label); l != "" {
		return l
	}
	return Humanize(key)
}

func sortNodes(nodes []Node) {
	sort.SliceStable(nodes, nodeLess(func(i int) Node { return nodes[i] }))
}

// nodeLess orders nodes by label using English collation, keys breaking ties.
func nodeLess(at func(i int) Node) func(i, j int) bool {
	col := collate.New(language.English, collate.IgnoreCase)
	return func(i, j int) bool {
		a, b := at(i), at(j)
		if c := col.CompareString(a.Label, b.Label); c != 0 {
			return c < 0
		}
		return a.Key < b.Key
	}
}
