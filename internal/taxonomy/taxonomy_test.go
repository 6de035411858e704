package taxonomy

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
)

const sampleJSON = `{
  "clusters": {
    "home_living": {
      "label": "Home & Living",
      "sub_clusters": {
        "kitchen": {"label": "Kitchen", "categories": ["mugs", "cookware", "mugs"]},
        "decor": {"categories": ["wall_art", "mugs"]}
      }
    },
    "outdoors": {
      "sub_clusters": {
        "camping": {"label": "Camping Gear", "categories": ["tents"]}
      }
    }
  }
}`

const sampleYAML = `
clusters:
  outdoors:
    label: Outdoors
    sub_clusters:
      camping:
        label: Camping Gear
        categories: [tents, stoves]
`

func nodeKeys(nodes []Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.Key)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParse_JSONBuildsOrderedTree(t *testing.T) {
	idx, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	topics := idx.Topics()
	if !equal(nodeKeys(topics), []string{"home_living", "outdoors"}) {
		t.Fatalf("unexpected topics %v", topics)
	}
	if topics[1].Label != "Outdoors" {
		t.Fatalf("expected humanized label, got %q", topics[1].Label)
	}

	areas, ok := idx.Areas("home_living")
	if !ok || !equal(nodeKeys(areas), []string{"decor", "kitchen"}) {
		t.Fatalf("unexpected areas %v", areas)
	}
	if areas[0].Label != "Decor" {
		t.Fatalf("expected Decor, got %q", areas[0].Label)
	}

	cats, ok := idx.Categories("home_living", "kitchen")
	if !ok || !equal(nodeKeys(cats), []string{"cookware", "mugs"}) {
		t.Fatalf("unexpected kitchen categories %v", cats)
	}

	union, ok := idx.Categories("home_living", "")
	if !ok || !equal(nodeKeys(union), []string{"cookware", "mugs", "wall_art"}) {
		t.Fatalf("unexpected category union %v", union)
	}
	if union[2].Label != "Wall Art" {
		t.Fatalf("expected Wall Art, got %q", union[2].Label)
	}
}

func TestParse_YAML(t *testing.T) {
	idx, err := Parse([]byte(sampleYAML))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !idx.HasCategory("outdoors", "camping", "stoves") {
		t.Fatalf("expected outdoors/camping/stoves")
	}
}

func TestLookups(t *testing.T) {
	idx, _ := Parse([]byte(sampleJSON))

	if !idx.HasTopic("outdoors") || idx.HasTopic("nope") || idx.HasTopic("") {
		t.Fatalf("HasTopic mismatch")
	}
	if !idx.HasArea("outdoors", "camping") || idx.HasArea("outdoors", "kitchen") {
		t.Fatalf("area must be looked up under its own topic")
	}
	if idx.HasCategory("home_living", "kitchen", "wall_art") {
		t.Fatalf("wall_art is not under kitchen")
	}
	if _, ok := idx.Areas("missing"); ok {
		t.Fatalf("expected unknown topic")
	}

	labels := idx.Labels()
	if !equal(labels, []string{"Decor", "Kitchen", "Camping Gear", "Mugs", "Wall Art", "Cookware", "Tents"}) {
		t.Fatalf("unexpected labels %v", labels)
	}
}

func TestLoadOrEmpty_Degrades(t *testing.T) {
	idx := LoadOrEmpty(filepath.Join(t.TempDir(), "missing.json"), nil)
	if !idx.IsEmpty() || len(idx.Topics()) != 0 || len(idx.Labels()) != 0 {
		t.Fatalf("expected an empty index")
	}

	path := filepath.Join(t.TempDir(), "taxonomy.json")
	if err := os.WriteFile(path, []byte(sampleJSON), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if LoadOrEmpty(path, nil).IsEmpty() {
		t.Fatalf("expected taxonomy to load")
	}
}

func TestHumanize(t *testing.T) {
	cases := map[string]string{
		"wall_art":     "Wall Art",
		"tea":          "Tea",
		"already Nice": "Already Nice",
		"":             "",
	}
	for in, want := range cases {
		if got := Humanize(in); got != want {
			t.Errorf("Humanize(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHandler_Routes(t *testing.T) {
	idx, _ := Parse([]byte(sampleJSON))
	app := fiber.New()
	NewHandler(idx).RegisterPublicRoutes(app)

	res, err := app.Test(httptest.NewRequest("GET", "/api/v1/taxonomy/topics/home_living/categories?area=kitchen", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if res.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", res.StatusCode)
	}
	body, _ := io.ReadAll(res.Body)
	var cats []Node
	if err := json.Unmarshal(body, &cats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !equal(nodeKeys(cats), []string{"cookware", "mugs"}) {
		t.Fatalf("unexpected categories %v", cats)
	}

	res, _ = app.Test(httptest.NewRequest("GET", "/api/v1/taxonomy/topics/unknown/areas", nil))
	if res.StatusCode != 404 {
		t.Fatalf("expected 404 for unknown topic, got %d", res.StatusCode)
	}
}
