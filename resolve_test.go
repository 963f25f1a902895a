package fence

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/RachelAmbler/ultra-code-fence/pkg/hook"
)

const (
	teachingSrc = "display: {lineNumbers: true, zebra: true, style: integrated}"
	minimalSrc  = "display: {lineNumbers: false, zebra: false}"
	chainedSrc  = "meta: {preset: teaching}\nprompt: '> '"
	brokenSrc   = "display: {"
)

// stubParser maps the raw sources above onto documents, standing in for the
// YAML collaborator so these tests stay within the engine package.
func stubParser() Parser {
	return ParserFunc(func(raw string) (Document, error) {
		switch raw {
		case teachingSrc:
			return Document{Display: &Display{
				LineNumbers: Bool(true),
				Zebra:       Bool(true),
				Style:       String("integrated"),
			}}, nil
		case minimalSrc:
			return Document{Display: &Display{
				LineNumbers: Bool(false),
				Zebra:       Bool(false),
			}}, nil
		case chainedSrc:
			return Document{
				Meta:   &Meta{Preset: String("teaching")},
				Prompt: String("> "),
			}, nil
		case brokenSrc:
			return Document{}, errors.New("unexpected end of input")
		default:
			return Document{}, errors.New("unknown source")
		}
	})
}

func testRegistry() Registry {
	return Registry{
		"teaching": teachingSrc,
		"minimal":  minimalSrc,
		"chained":  chainedSrc,
		"broken":   brokenSrc,
	}
}

type eventRecorder struct {
	events []ResolveEvent
}

func (r *eventRecorder) LogResolve(event ResolveEvent) {
	r.events = append(r.events, event)
}

func (r *eventRecorder) actions() []string {
	out := make([]string, len(r.events))
	for i, event := range r.events {
		out[i] = event.Action
	}
	return out
}

func TestResolveFastPathReturnsBlockUnchanged(t *testing.T) {
	block := Document{
		Display:     &Display{Fold: Int(15)},
		Annotations: &Annotations{Entries: []AnnotationEntry{{Lines: []int{1}, Text: "note"}}},
	}

	got := NewResolver(WithParser(stubParser())).Resolve(block, testRegistry(), nil)

	if !reflect.DeepEqual(block, got) {
		t.Fatalf("fast path altered the block:\nwant: %#v\n got: %#v", block, got)
	}
	// Same section pointers prove no merge work happened.
	if got.Display != block.Display || got.Annotations != block.Annotations {
		t.Fatal("fast path should return the block without reallocating sections")
	}
}

func TestResolvePresetBaseFillBlockOverride(t *testing.T) {
	block := Document{
		Meta:    &Meta{Preset: String("teaching")},
		Display: &Display{Fold: Int(15)},
	}

	got := NewResolver(WithParser(stubParser())).Resolve(block, testRegistry(), nil)

	wantDisplay := &Display{
		LineNumbers: Bool(true),
		Zebra:       Bool(true),
		Style:       String("integrated"),
		Fold:        Int(15),
	}
	if !reflect.DeepEqual(wantDisplay, got.Display) {
		t.Errorf("display mismatch:\nwant: %#v\n got: %#v", wantDisplay, got.Display)
	}
	if got.Meta == nil || got.Meta.Preset != nil {
		t.Errorf("preset directive must be stripped from the result, got %#v", got.Meta)
	}
}

func TestResolveBlockPresetWinsOverPage(t *testing.T) {
	block := Document{Meta: &Meta{Preset: String("teaching")}}
	page := Document{Meta: &Meta{Preset: String("minimal")}}

	got := NewResolver(WithParser(stubParser())).Resolve(block, testRegistry(), &page)

	if got.Display == nil || got.Display.LineNumbers == nil || !*got.Display.LineNumbers {
		t.Fatalf("expected teaching preset fields, got %#v", got.Display)
	}
	if got.Display.Style == nil || *got.Display.Style != "integrated" {
		t.Fatalf("expected teaching style, got %#v", got.Display.Style)
	}
}

func TestResolveUnknownPresetDegrades(t *testing.T) {
	recorder := &eventRecorder{}
	block := Document{
		Meta:    &Meta{Preset: String("nonexistent")},
		Display: &Display{LineNumbers: Bool(false)},
	}

	got := NewResolver(
		WithParser(stubParser()),
		WithResolveLogger(recorder),
	).Resolve(block, Registry{}, nil)

	if got.Display == nil || got.Display.LineNumbers == nil || *got.Display.LineNumbers {
		t.Fatalf("block's own value must survive an unknown preset, got %#v", got.Display)
	}
	if got.Meta == nil || got.Meta.Preset != nil {
		t.Fatalf("directive must still be stripped, got %#v", got.Meta)
	}
	if actions := recorder.actions(); !reflect.DeepEqual([]string{EventPresetMissing, EventResolved}, actions) {
		t.Fatalf("unexpected event sequence %v", actions)
	}
}

func TestResolveParseFailureDegrades(t *testing.T) {
	recorder := &eventRecorder{}
	block := Document{
		Meta:    &Meta{Preset: String("broken")},
		Display: &Display{Fold: Int(5)},
	}

	got := NewResolver(
		WithParser(stubParser()),
		WithResolveLogger(recorder),
	).Resolve(block, testRegistry(), nil)

	if got.Display == nil || got.Display.Fold == nil || *got.Display.Fold != 5 {
		t.Fatalf("block's own value must survive a broken preset, got %#v", got.Display)
	}
	if actions := recorder.actions(); !reflect.DeepEqual([]string{EventParseFailed, EventResolved}, actions) {
		t.Fatalf("unexpected event sequence %v", actions)
	}
}

func TestResolveWithoutParserDegrades(t *testing.T) {
	recorder := &eventRecorder{}
	block := Document{Meta: &Meta{Preset: String("teaching")}}

	got := NewResolver(WithResolveLogger(recorder)).Resolve(block, testRegistry(), nil)

	if got.Meta == nil || got.Meta.Preset != nil {
		t.Fatalf("directive must be stripped, got %#v", got.Meta)
	}
	if len(recorder.events) == 0 || recorder.events[0].Action != EventParseFailed {
		t.Fatalf("expected a parse-failed event, got %v", recorder.actions())
	}
	if !errors.Is(recorder.events[0].Err, ErrNoParser) {
		t.Fatalf("expected ErrNoParser, got %v", recorder.events[0].Err)
	}
}

func TestResolveNestedPresetDirectiveDoesNotChain(t *testing.T) {
	// The chained preset names another preset; that reference must be
	// discarded, not resolved.
	block := Document{Meta: &Meta{Preset: String("chained")}}

	got := NewResolver(WithParser(stubParser())).Resolve(block, testRegistry(), nil)

	if got.Prompt == nil || *got.Prompt != "> " {
		t.Fatalf("chained preset's own fields should apply, got %#v", got.Prompt)
	}
	if got.Display != nil {
		t.Fatalf("the nested preset reference must not resolve, got %#v", got.Display)
	}
	if got.Meta == nil || got.Meta.Preset != nil {
		t.Fatalf("no preset directive may survive, got %#v", got.Meta)
	}
}

func TestResolveIdempotent(t *testing.T) {
	resolver := NewResolver(WithParser(stubParser()))
	block := Document{
		Meta:    &Meta{Preset: String("teaching")},
		Display: &Display{Fold: Int(15)},
	}

	once := resolver.Resolve(block, testRegistry(), nil)
	twice := resolver.Resolve(once, testRegistry(), nil)

	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("resolve not idempotent:\nonce:  %#v\ntwice: %#v", once, twice)
	}
}

func TestResolveDefaultsAreWeakestLayer(t *testing.T) {
	defaults := Document{Display: &Display{Zebra: Bool(true), Fold: Int(5), Scroll: Int(40)}}
	block := Document{
		Meta:    &Meta{Preset: String("teaching")},
		Display: &Display{Scroll: Int(10)},
	}

	got := NewResolver(
		WithParser(stubParser()),
		WithDefaults(defaults),
	).Resolve(block, testRegistry(), nil)

	// Fold comes from defaults (no stronger layer sets it), Scroll from the
	// block, everything else from the preset.
	want := &Display{
		LineNumbers: Bool(true),
		Zebra:       Bool(true),
		Style:       String("integrated"),
		Fold:        Int(5),
		Scroll:      Int(10),
	}
	if !reflect.DeepEqual(want, got.Display) {
		t.Errorf("display mismatch:\nwant: %#v\n got: %#v", want, got.Display)
	}
}

func TestResolveDefaultsApplyWithoutPresetOrPage(t *testing.T) {
	defaults := Document{Prompt: String("$ ")}
	block := Document{Display: &Display{Fold: Int(3)}}

	got := NewResolver(WithDefaults(defaults)).Resolve(block, Registry{}, nil)

	if got.Prompt == nil || *got.Prompt != "$ " {
		t.Fatalf("defaults must participate even without preset/page, got %#v", got.Prompt)
	}
	if got.Display == nil || got.Display.Fold == nil || *got.Display.Fold != 3 {
		t.Fatalf("block fields must survive, got %#v", got.Display)
	}
}

type countingCache struct {
	store map[string]Document
	gets  int
	hits  int
	sets  int
}

func newCountingCache() *countingCache {
	return &countingCache{store: map[string]Document{}}
}

func (c *countingCache) Get(key string) (Document, bool) {
	c.gets++
	doc, ok := c.store[key]
	if ok {
		c.hits++
	}
	return doc, ok
}

func (c *countingCache) Set(key string, doc Document) {
	c.sets++
	c.store[key] = doc
}

func TestResolveConsultsParseCache(t *testing.T) {
	parses := 0
	parser := ParserFunc(func(raw string) (Document, error) {
		parses++
		return stubParser().Parse(raw)
	})
	cache := newCountingCache()
	resolver := NewResolver(WithParser(parser), WithParseCache(cache))
	block := Document{Meta: &Meta{Preset: String("teaching")}}

	first := resolver.Resolve(block, testRegistry(), nil)
	second := resolver.Resolve(block, testRegistry(), nil)

	if parses != 1 {
		t.Fatalf("expected a single parse, got %d", parses)
	}
	if cache.sets != 1 || cache.hits != 1 {
		t.Fatalf("expected one set and one hit, got sets=%d hits=%d", cache.sets, cache.hits)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("cached resolution differs:\nfirst:  %#v\nsecond: %#v", first, second)
	}

	// Cached fragments are cloned on the way out: mutating one resolution
	// must not poison the next.
	*first.Display.LineNumbers = false
	third := resolver.Resolve(block, testRegistry(), nil)
	if third.Display.LineNumbers == nil || !*third.Display.LineNumbers {
		t.Fatal("cache leaked a mutation between resolutions")
	}
}

func TestResolveNotifiesHooks(t *testing.T) {
	var actions []string
	hooks := hook.Hooks{
		hook.HookFunc(func(_ context.Context, event hook.Event) error {
			actions = append(actions, event.Action)
			return nil
		}),
	}
	block := Document{Meta: &Meta{Preset: String("teaching")}}

	NewResolver(WithParser(stubParser()), WithHooks(hooks)).Resolve(block, testRegistry(), nil)

	want := []string{hook.ActionPresetApplied, hook.ActionResolved}
	if !reflect.DeepEqual(want, actions) {
		t.Fatalf("unexpected hook sequence %v", actions)
	}
}

func TestResolvePageOnlyMerge(t *testing.T) {
	page := Document{
		Display: &Display{LineNumbers: Bool(true), Fold: Int(20)},
		Prompt:  String("$ "),
	}
	block := Document{Display: &Display{Fold: Int(8)}}

	got := ResolvePreset(block, Registry{}, &page)

	want := Document{
		Display: &Display{LineNumbers: Bool(true), Fold: Int(8)},
		Prompt:  String("$ "),
	}
	if !reflect.DeepEqual(want, got) {
		t.Errorf("page merge mismatch:\nwant: %#v\n got: %#v", want, got)
	}
}

func TestResolveTracedProvenance(t *testing.T) {
	resolver := NewResolver(WithParser(stubParser()), WithDefaults(Document{Prompt: String("$ ")}))
	page := Document{Display: &Display{Zebra: Bool(true)}}
	block := Document{Meta: &Meta{Preset: String("teaching")}}

	_, trace := resolver.ResolveTraced(block, testRegistry(), &page)

	if trace.ID == "" {
		t.Fatal("trace must carry a resolution id")
	}
	if trace.Preset != "teaching" {
		t.Fatalf("trace preset mismatch, got %q", trace.Preset)
	}

	want := []Provenance{
		{Layer: "block", Present: true},
		{Layer: "page", Present: true},
		{Layer: "preset", Name: "teaching", Present: true},
		{Layer: "defaults", Present: true},
	}
	if !reflect.DeepEqual(want, trace.Layers) {
		t.Errorf("provenance mismatch:\nwant: %#v\n got: %#v", want, trace.Layers)
	}
}

func TestResolveTracedMissingLayers(t *testing.T) {
	resolver := NewResolver(WithParser(stubParser()))
	block := Document{Meta: &Meta{Preset: String("nonexistent")}}

	_, trace := resolver.ResolveTraced(block, Registry{}, nil)

	want := []Provenance{
		{Layer: "block", Present: true},
		{Layer: "page", Present: false},
		{Layer: "preset", Name: "nonexistent", Present: false},
		{Layer: "defaults", Present: false},
	}
	if !reflect.DeepEqual(want, trace.Layers) {
		t.Errorf("provenance mismatch:\nwant: %#v\n got: %#v", want, trace.Layers)
	}
}
