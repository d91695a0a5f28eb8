package controller

import (
	"encoding/json"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/matzehuels/bandmap/pkg/band"
	"github.com/matzehuels/bandmap/pkg/errors"
	"github.com/matzehuels/bandmap/pkg/layout"
	"github.com/matzehuels/bandmap/pkg/viewport"
)

func pt(lng, lat float64) *orb.Point { p := orb.Point{lng, lat}; return &p }

func testAtlas() *band.Atlas {
	return band.NewAtlas([]band.Province{
		{
			Name:     "四川",
			Center:   orb.Point{104.065735, 30.659462},
			Bound:    orb.Bound{Min: orb.Point{97.35, 26.05}, Max: orb.Point{108.55, 34.32}},
			Crowding: band.Sparse,
			Valid:    true,
		},
		{
			Name:     "北京",
			Center:   orb.Point{116.405285, 39.904989},
			Bound:    orb.Bound{Min: orb.Point{115.42, 39.44}, Max: orb.Point{117.51, 41.06}},
			Crowding: band.Dense,
			Valid:    true,
		},
		{Name: "坏省", Crowding: band.Sparse, Valid: false},
	})
}

func testBands() []band.Band {
	return []band.Band{
		{ID: "sc1", Name: "声音玩具", Genre: "indie", Province: "四川省", City: "成都"},
		{ID: "sc2", Name: "海朋森", Genre: "post-punk", Province: "四川", City: "成都"},
		{ID: "sc3", Name: "蓝色星球", Genre: "indie", Province: "四川", City: "绵阳"},
		{ID: "bj1", Name: "重塑雕像的权利", Genre: "post-punk", Province: "北京市", City: "北京"},
		{ID: "bj2", Name: "吹万", Genre: "psychedelic", Province: "北京", City: "北京"},
		{ID: "bad", Name: "坏省乐队", Genre: "noise", Province: "坏省", Coordinates: pt(100.5, 35.5)},
		{ID: "mars", Name: "火星乐队", Genre: "noise", Province: "火星", Coordinates: pt(90, 40)},
	}
}

type recorder struct {
	mu    sync.Mutex
	snaps []*Snapshot
}

func (r *recorder) record(s *Snapshot) {
	r.mu.Lock()
	r.snaps = append(r.snaps, s)
	r.mu.Unlock()
}

func (r *recorder) all() []*Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Snapshot(nil), r.snaps...)
}

type fixture struct {
	v     *viewport.Viewport
	c     *Controller
	clock *manualClock
	rec   *recorder
}

// newFixture returns a loaded controller whose initial pass has already run
// and been cleared from the recorder.
func newFixture(t *testing.T, ready bool) *fixture {
	t.Helper()
	v := viewport.New(viewport.Options{})
	if ready {
		v.MarkReady()
	}
	clock := &manualClock{}
	c := New(Options{Surface: v, Clock: clock})
	t.Cleanup(c.Close)

	rec := &recorder{}
	c.OnLayout(rec.record)
	c.Load(testBands(), testAtlas())
	clock.Advance(DefaultSettleDelay)
	if len(rec.all()) != 1 {
		t.Fatalf("initial load produced %d passes, want 1", len(rec.all()))
	}
	rec.snaps = nil
	return &fixture{v: v, c: c, clock: clock, rec: rec}
}

func TestLoadWaitsForSettle(t *testing.T) {
	v := viewport.New(viewport.Options{})
	v.MarkReady()
	clock := &manualClock{}
	c := New(Options{Surface: v, Clock: clock})
	defer c.Close()

	if c.State() != Unloaded {
		t.Fatalf("State() = %v, want unloaded", c.State())
	}
	c.Load(testBands(), testAtlas())
	if c.State() != Idle {
		t.Fatalf("State() = %v, want idle", c.State())
	}

	clock.Advance(DefaultSettleDelay - time.Millisecond)
	if c.Snapshot() != nil {
		t.Fatal("layout ran before the settle delay")
	}
	clock.Advance(time.Millisecond)

	snap := c.Snapshot()
	if snap == nil {
		t.Fatal("no layout after the settle delay")
	}
	if snap.Trigger != TriggerLoad || snap.Len() != len(testBands()) {
		t.Errorf("snapshot trigger=%v len=%d", snap.Trigger, snap.Len())
	}
}

func TestTriggersIgnoredWhileUnloaded(t *testing.T) {
	v := viewport.New(viewport.Options{})
	v.MarkReady()
	clock := &manualClock{}
	c := New(Options{Surface: v, Clock: clock})
	defer c.Close()

	c.Controls().ZoomBy(1)
	clock.Advance(time.Second)
	if c.Snapshot() != nil {
		t.Error("zoom before load produced a layout")
	}
	if err := c.Select("四川"); err == nil {
		t.Error("Select before load should fail")
	}
}

func TestDebounceCollapsesZoomBurst(t *testing.T) {
	f := newFixture(t, true)
	controls := f.c.Controls()

	var last float64
	for i := 0; i < 20; i++ {
		last = controls.SetZoom(1.3 + 0.1*float64(i))
		f.clock.Advance(5 * time.Millisecond)
	}

	f.clock.Advance(DefaultDebounce - 5*time.Millisecond - time.Millisecond)
	if n := len(f.rec.all()); n != 0 {
		t.Fatalf("%d passes before the quiet period ended", n)
	}
	f.clock.Advance(time.Millisecond)

	snaps := f.rec.all()
	if len(snaps) != 1 {
		t.Fatalf("got %d passes, want exactly 1", len(snaps))
	}
	if snaps[0].Trigger != TriggerZoom {
		t.Errorf("Trigger = %v, want zoom", snaps[0].Trigger)
	}
	if snaps[0].Zoom != last {
		t.Errorf("Zoom = %v, want the last event's %v", snaps[0].Zoom, last)
	}

	f.clock.Advance(time.Second)
	if n := len(f.rec.all()); n != 1 {
		t.Errorf("got %d passes after waiting, want 1", n)
	}
}

func TestSelectionTransition(t *testing.T) {
	f := newFixture(t, true)

	// A pending zoom pass must be superseded by the selection.
	f.c.Controls().ZoomBy(0.5)

	if err := f.c.Select("四川省"); err != nil {
		t.Fatal(err)
	}
	if err := f.c.Select("北京"); err != nil {
		t.Fatal(err)
	}
	f.clock.Advance(time.Second)

	snaps := f.rec.all()
	var forB int
	for _, s := range snaps {
		if s.Selected == "" {
			t.Errorf("intermediate pass with no province (trigger %v)", s.Trigger)
		}
		if s.Trigger == TriggerZoom {
			t.Error("superseded zoom pass ran")
		}
		if s.Selected == "北京" {
			forB++
		}
	}
	if forB != 1 {
		t.Errorf("got %d passes for 北京, want exactly 1", forB)
	}

	if f.c.State() != ProvinceFocused || f.c.Selected() != "北京" {
		t.Errorf("state=%v selected=%q", f.c.State(), f.c.Selected())
	}
	ids := f.c.Snapshot().BandIDs()
	if len(ids) != 2 || ids[0] != "bj1" || ids[1] != "bj2" {
		t.Errorf("focused pass laid out %v, want [bj1 bj2]", ids)
	}
}

func TestSelectSameProvinceIsNoop(t *testing.T) {
	f := newFixture(t, true)
	if err := f.c.Select("四川"); err != nil {
		t.Fatal(err)
	}
	if err := f.c.Select("四川省"); err != nil {
		t.Fatal(err)
	}
	if n := len(f.rec.all()); n != 1 {
		t.Errorf("got %d passes, want 1", n)
	}
}

func TestSelectUnknownProvince(t *testing.T) {
	f := newFixture(t, true)
	err := f.c.Select("不存在")
	if !errors.Is(err, errors.ErrCodeProvinceNotFound) {
		t.Errorf("err = %v, want %v", err, errors.ErrCodeProvinceNotFound)
	}
}

func TestToggleAndDeselect(t *testing.T) {
	f := newFixture(t, true)
	home := f.v.Transform()

	if err := f.c.Toggle("四川"); err != nil {
		t.Fatal(err)
	}
	focused := f.v.Transform()
	if focused.Zoom <= home.Zoom {
		t.Errorf("focus zoom %v should exceed home %v", focused.Zoom, home.Zoom)
	}
	if focused.Center != (orb.Point{104.065735, 30.659462}) {
		t.Errorf("focus centre = %v", focused.Center)
	}

	if err := f.c.Toggle("四川省"); err != nil {
		t.Fatal(err)
	}
	if f.c.State() != Idle || f.c.Selected() != "" {
		t.Errorf("state=%v selected=%q, want idle", f.c.State(), f.c.Selected())
	}
	if got := f.v.Transform(); got.Zoom != home.Zoom || got.Center != home.Center {
		t.Errorf("view after deselect = %+v, want %+v", got, home)
	}

	snaps := f.rec.all()
	if len(snaps) != 2 || snaps[1].Trigger != TriggerDeselect {
		t.Errorf("passes = %d, last trigger %v", len(snaps), snaps[len(snaps)-1].Trigger)
	}
}

func TestClickMarker(t *testing.T) {
	f := newFixture(t, true)

	if err := f.c.ClickMarker("sc2"); err != nil {
		t.Fatal(err)
	}
	if f.c.Selected() != "四川" {
		t.Errorf("Selected() = %q, want 四川", f.c.Selected())
	}
	// Clicking another marker of the focused province keeps the focus.
	if err := f.c.ClickMarker("sc3"); err != nil {
		t.Fatal(err)
	}
	if f.c.Selected() != "四川" {
		t.Errorf("Selected() = %q, want 四川", f.c.Selected())
	}

	if err := f.c.ClickMarker("nope"); !errors.Is(err, errors.ErrCodeBandNotFound) {
		t.Errorf("err = %v, want %v", err, errors.ErrCodeBandNotFound)
	}
}

func TestProvinceStyles(t *testing.T) {
	f := newFixture(t, true)

	for name, style := range f.c.Snapshot().Styles {
		if style != normalStyle {
			t.Errorf("%s style = %+v before selection", name, style)
		}
	}

	if err := f.c.Select("四川"); err != nil {
		t.Fatal(err)
	}
	styles := f.c.Snapshot().Styles
	if styles["四川"] != (ProvinceStyle{Emphasis: 1, Interactive: true}) {
		t.Errorf("focused style = %+v", styles["四川"])
	}
	if styles["北京"] != (ProvinceStyle{Emphasis: DimmedEmphasis, Interactive: false}) {
		t.Errorf("other style = %+v", styles["北京"])
	}
}

func TestGracefulDegradation(t *testing.T) {
	f := newFixture(t, true)
	snap := f.c.Snapshot()

	if snap.Len() != len(testBands()) {
		t.Fatalf("Len() = %d, want every band positioned", snap.Len())
	}

	bad, _ := snap.Result("bad")
	if bad.Position != (orb.Point{100.5, 35.5}) || bad.Strategy != layout.StrategyRaw {
		t.Errorf("invalid-geometry band = %+v, want raw coordinate", bad)
	}
	mars, _ := snap.Result("mars")
	if mars.Position != (orb.Point{90, 40}) || mars.Strategy != layout.StrategyRaw {
		t.Errorf("unknown-province band = %+v, want raw coordinate", mars)
	}
	for _, id := range []string{"sc1", "sc2", "sc3", "bj1", "bj2"} {
		if r, _ := snap.Result(id); r.Strategy != layout.StrategyForce {
			t.Errorf("%s strategy = %v, want force", id, r.Strategy)
		}
	}

	reasons := map[string]errors.Code{}
	for _, d := range snap.Degraded {
		reasons[d.Province] = d.Reason
	}
	// Groups are keyed by normalized name: "坏省" becomes "坏".
	broken := band.NormalizeProvince("坏省")
	if reasons[broken] != errors.ErrCodeInvalidGeometry {
		t.Errorf("%s reason = %v, degraded = %+v", broken, reasons[broken], snap.Degraded)
	}
	if reasons["火星"] != errors.ErrCodeProvinceNotFound {
		t.Errorf("火星 reason = %v", reasons["火星"])
	}
	if _, ok := snap.Anchors[broken]; ok {
		t.Error("invalid province should have no anchor")
	}
	if a := snap.Anchors["四川"]; a != (orb.Point{104.065735, 30.659462}) {
		t.Errorf("四川 anchor = %v", a)
	}
}

func TestConverterUnavailableFallsBackToRadial(t *testing.T) {
	f := newFixture(t, false)
	snap := f.c.Snapshot()

	if snap.Zoom != 1.2 {
		t.Errorf("Zoom = %v, want default 1.2", snap.Zoom)
	}
	if r, _ := snap.Result("sc1"); r.Strategy != layout.StrategyRadial {
		t.Errorf("strategy = %v, want radial", r.Strategy)
	}
	found := false
	for _, d := range snap.Degraded {
		if d.Province == "四川" && d.Reason == errors.ErrCodeConverterUnavailable {
			found = true
		}
	}
	if !found {
		t.Errorf("missing converter degradation: %+v", snap.Degraded)
	}
}

func TestControls(t *testing.T) {
	f := newFixture(t, true)
	h := f.c.Controls()

	if got := h.ZoomBy(100); got != viewport.DefaultMaxZoom {
		t.Errorf("ZoomBy(100) = %v, want %v", got, viewport.DefaultMaxZoom)
	}
	if got := h.ZoomPercent(); got != 100 {
		t.Errorf("ZoomPercent() = %v, want 100", got)
	}
	if got := h.SetZoom(0); got != viewport.DefaultMinZoom {
		t.Errorf("SetZoom(0) = %v, want %v", got, viewport.DefaultMinZoom)
	}
	if got := h.ZoomPercent(); got != 0 {
		t.Errorf("ZoomPercent() = %v, want 0", got)
	}
	if got := h.ZoomIn(); math.Abs(got-(viewport.DefaultMinZoom+DefaultZoomStep)) > 1e-12 {
		t.Errorf("ZoomIn() = %v", got)
	}
	if got := h.Zoom(); math.Abs(got-(viewport.DefaultMinZoom+DefaultZoomStep)) > 1e-12 {
		t.Errorf("Zoom() = %v", got)
	}

	if err := f.c.Select("四川"); err != nil {
		t.Fatal(err)
	}
	h.ResetView()
	if f.c.State() != Idle || f.c.Selected() != "" {
		t.Errorf("state=%v selected=%q after reset", f.c.State(), f.c.Selected())
	}
	if got := f.v.Transform(); got.Zoom != viewport.DefaultZoom || got.Center != viewport.DefaultCenter {
		t.Errorf("view after reset = %+v", got)
	}
	if s := f.c.Snapshot(); s.Trigger != TriggerReset || s.Len() != len(testBands()) {
		t.Errorf("reset pass trigger=%v len=%d", s.Trigger, s.Len())
	}

	// The pending zoom passes were superseded by the select and reset.
	before := len(f.rec.all())
	f.clock.Advance(time.Second)
	if after := len(f.rec.all()); after != before {
		t.Errorf("stale zoom pass ran after reset: %d -> %d", before, after)
	}
}

func TestGestureDuringOwnMoveIsKept(t *testing.T) {
	f := newFixture(t, true)

	// The first change after this point is the controller's focus move. A
	// zoom gesture lands while that move is still being delivered.
	var once sync.Once
	unsubscribe := f.v.Subscribe(func(viewport.Transform) {
		once.Do(func() { f.v.ZoomBy(0.25) })
	})
	defer unsubscribe()

	if err := f.c.Select("四川"); err != nil {
		t.Fatal(err)
	}
	if s := f.c.Snapshot(); s.Trigger != TriggerSelect {
		t.Fatalf("Trigger = %v, want select", s.Trigger)
	}

	f.clock.Advance(DefaultDebounce)
	snaps := f.rec.all()
	last := snaps[len(snaps)-1]
	if last.Trigger != TriggerZoom {
		t.Fatalf("last trigger = %v, want the gesture's zoom pass", last.Trigger)
	}
	if want := f.v.Transform().Zoom; last.Zoom != want {
		t.Errorf("Zoom = %v, want %v", last.Zoom, want)
	}
	if zooms := countTrigger(snaps, TriggerZoom); zooms != 1 {
		t.Errorf("got %d zoom passes, want 1", zooms)
	}
}

func countTrigger(snaps []*Snapshot, trigger Trigger) int {
	n := 0
	for _, s := range snaps {
		if s.Trigger == trigger {
			n++
		}
	}
	return n
}

func TestResizeRelaysOutImmediately(t *testing.T) {
	f := newFixture(t, true)
	if err := f.c.Select("四川"); err != nil {
		t.Fatal(err)
	}
	focusBefore := f.v.Transform().Zoom

	f.v.Resize(500, 400)
	snaps := f.rec.all()
	last := snaps[len(snaps)-1]
	if last.Trigger != TriggerResize {
		t.Fatalf("last trigger = %v, want resize", last.Trigger)
	}
	if last.View.Width != 500 {
		t.Errorf("pass used width %v, want 500", last.View.Width)
	}
	// Scale follows the surface width, so shrinking both sides by the same
	// factor keeps the same focus zoom.
	if got := f.v.Transform().Zoom; math.Abs(got-focusBefore) > 1e-9 {
		t.Errorf("refocused zoom = %v, want %v", got, focusBefore)
	}
}

func TestFilter(t *testing.T) {
	f := newFixture(t, true)

	f.c.SetFilter(band.Filter{Genre: "post-punk"})
	snap := f.c.Snapshot()
	if snap.Trigger != TriggerFilter {
		t.Errorf("Trigger = %v, want filter", snap.Trigger)
	}
	ids := snap.BandIDs()
	if len(ids) != 2 {
		t.Fatalf("filtered ids = %v", ids)
	}
	if snap.Counts["四川"] != 1 || snap.Counts["北京"] != 1 {
		t.Errorf("Counts = %v", snap.Counts)
	}

	// Same filter again is not a change.
	f.c.SetFilter(band.Filter{Genre: "post-punk"})
	if n := len(f.rec.all()); n != 1 {
		t.Errorf("got %d passes, want 1", n)
	}
}

func TestStaleSnapshotNotPublished(t *testing.T) {
	f := newFixture(t, true)
	cur := f.c.Snapshot()

	stale := &Snapshot{Generation: cur.Generation - 1}
	if f.c.publish(stale) {
		t.Error("older generation was published")
	}
	if f.c.Snapshot() != cur {
		t.Error("published snapshot changed")
	}

	newer := &Snapshot{Generation: cur.Generation + 10}
	if !f.c.publish(newer) {
		t.Error("newer generation was rejected")
	}
}

func TestSnapshotIterationIsRestartable(t *testing.T) {
	f := newFixture(t, true)
	snap := f.c.Snapshot()

	var first, second []string
	for id := range snap.All() {
		first = append(first, id)
	}
	for id := range snap.All() {
		second = append(second, id)
	}
	if len(first) != snap.Len() || len(first) != len(second) {
		t.Fatalf("iterations differ: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("order differs at %d", i)
		}
	}

	for m := range snap.Markers() {
		if m.Band.ID != m.Result.BandID {
			t.Errorf("marker join mismatch: %s vs %s", m.Band.ID, m.Result.BandID)
		}
	}
}

func TestSnapshotJSON(t *testing.T) {
	f := newFixture(t, true)
	data, err := json.Marshal(f.c.Snapshot())
	if err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		State   string `json:"state"`
		Markers []struct {
			ID       string    `json:"id"`
			Position orb.Point `json:"position"`
		} `json:"markers"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.State != "idle" || len(decoded.Markers) != len(testBands()) {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestFocusView(t *testing.T) {
	v := viewport.New(viewport.Options{})
	sichuan, _ := testAtlas().Lookup("四川")

	center, zoom, ok := FocusView(v, sichuan, nil)
	if !ok || center != sichuan.Center {
		t.Fatalf("FocusView = %v %v %v", center, zoom, ok)
	}
	if zoom < 1 || zoom > viewport.DefaultMaxZoom {
		t.Errorf("zoom = %v out of range", zoom)
	}

	builtin, _ := band.BuiltinAtlas().Lookup("四川")
	if _, zoom, _ := FocusView(v, builtin, nil); zoom != fallbackFocusZoom {
		t.Errorf("degenerate bound zoom = %v, want %v", zoom, fallbackFocusZoom)
	}

	members := []band.Band{{Coordinates: pt(100, 30)}, {Coordinates: pt(102, 32)}}
	center, zoom, ok = FocusView(v, band.Province{}, members)
	if !ok || center != (orb.Point{101, 31}) || zoom != fallbackFocusZoom {
		t.Errorf("member focus = %v %v %v", center, zoom, ok)
	}

	if _, _, ok := FocusView(v, band.Province{}, nil); ok {
		t.Error("nothing known should not produce a view")
	}
}

func TestTinyProvinceFocusClampedToLimits(t *testing.T) {
	v := viewport.New(viewport.Options{})
	macau := band.Province{
		Name:   "澳门",
		Center: orb.Point{113.54909, 22.198951},
		Bound:  orb.Bound{Min: orb.Point{113.52, 22.10}, Max: orb.Point{113.60, 22.22}},
		Valid:  true,
	}
	if _, zoom, _ := FocusView(v, macau, nil); zoom != viewport.DefaultMaxZoom {
		t.Errorf("zoom = %v, want clamped to %v", zoom, viewport.DefaultMaxZoom)
	}
}
