package tracker_test

import (
	"runtime"
	"testing"
	"weak"

	"github.com/delaneyj/signalpath/maybe"
	"github.com/delaneyj/signalpath/notify"
	"github.com/delaneyj/signalpath/notify/notifytest"
	"github.com/delaneyj/signalpath/path"
	"github.com/delaneyj/signalpath/tracker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder[V any] struct {
	changes []tracker.Change[V]
	links   []tracker.LinkChange
	errs    []error
}

func (r *recorder[V]) handlers() tracker.Handlers[V] {
	return tracker.Handlers[V]{
		OnChange: func(c tracker.Change[V]) { r.changes = append(r.changes, c) },
		OnLink:   func(c tracker.LinkChange) { r.links = append(r.links, c) },
		OnError:  func(err error) { r.errs = append(r.errs, err) },
	}
}

func (r *recorder[V]) values() []maybe.Maybe[V] {
	out := make([]maybe.Maybe[V], len(r.changes))
	for i, c := range r.changes {
		out[i] = c.Value
	}
	return out
}

func newTracker[V any](t *testing.T, root *notifytest.Fake, expr string, opts ...tracker.Option) (*tracker.Tracker[notifytest.Fake, V], *recorder[V]) {
	t.Helper()
	p, err := path.GetOrCreate[notifytest.Fake, V](expr)
	require.NoError(t, err)
	r := &recorder[V]{}
	tr, err := tracker.New(root, p, r.handlers(), opts...)
	require.NoError(t, err)
	t.Cleanup(tr.Dispose)
	return tr, r
}

func TestInitialStateMatchesGetters(t *testing.T) {
	f := notifytest.NewFake()
	levels := notifytest.Chain(f, 2)

	tr, r := newTracker[int](t, f, "Next.Next.Value")
	links, err := tr.Links()
	require.NoError(t, err)
	require.Len(t, links, 3)

	assert.Same(t, f, links[0].Source)
	assert.Same(t, levels[0], links[0].Value)
	assert.Same(t, levels[0], links[1].Source)
	assert.Same(t, levels[1], links[1].Value)
	assert.Same(t, levels[1], links[2].Source)
	assert.Equal(t, 2, links[2].Value)
	for _, l := range links {
		assert.True(t, l.Bound)
		assert.True(t, l.Subscribed)
	}

	v, err := tr.Value()
	require.NoError(t, err)
	assert.Equal(t, maybe.Some(2), v)
	assert.Empty(t, r.changes, "construction reports nothing")
}

func TestTerminalChange(t *testing.T) {
	f := notifytest.NewFake()
	level := notifytest.NewLevel("Johan")
	f.SetLevel1(level)

	_, r := newTracker[string](t, f, "Level1.Name")
	level.SetName("Erik")

	require.Len(t, r.changes, 1)
	c := r.changes[0]
	assert.Same(t, level, c.Sender)
	assert.Same(t, level, c.Source)
	assert.Equal(t, "Name", c.Args.PropertyName)
	assert.Equal(t, maybe.Some("Erik"), c.Value)
}

func TestUnrelatedPropertyIsIgnored(t *testing.T) {
	f := notifytest.NewFake()
	level := notifytest.NewLevel("Johan")
	f.SetLevel1(level)

	_, r := newTracker[string](t, f, "Level1.Name")
	level.SetValue(5)
	f.SetName("root")
	level.Notify("Next")

	assert.Empty(t, r.changes)
}

func TestReplaceIntermediateMovesSubscription(t *testing.T) {
	f := notifytest.NewFake()
	old := notifytest.NewLevel("Johan")
	f.SetLevel1(old)

	_, r := newTracker[string](t, f, "Level1.Name")
	require.Equal(t, 1, old.HandlerCount())

	replacement := notifytest.NewLevel("Erik")
	f.SetLevel1(replacement)
	assert.Equal(t, 0, old.HandlerCount())
	assert.Equal(t, 1, replacement.HandlerCount())
	assert.Equal(t, 1, replacement.Subscribes())
	assert.Equal(t, []maybe.Maybe[string]{maybe.Some("Erik")}, r.values())

	old.SetName("Ignored")
	assert.Len(t, r.changes, 1)

	replacement.SetName("Kalle")
	assert.Equal(t, []maybe.Maybe[string]{maybe.Some("Erik"), maybe.Some("Kalle")}, r.values())
}

func TestNullIntermediateEmitsOnce(t *testing.T) {
	f := notifytest.NewFake()
	levels := notifytest.Chain(f, 3)

	tr, r := newTracker[int](t, f, "Next.Next.Next.Value")
	f.SetNext(nil)

	assert.Equal(t, []maybe.Maybe[int]{maybe.None[int]()}, r.values())
	for _, l := range levels {
		assert.Equal(t, 0, l.HandlerCount())
	}

	links, err := tr.Links()
	require.NoError(t, err)
	assert.True(t, links[0].Bound)
	for _, l := range links[1:] {
		assert.False(t, l.Bound)
		assert.False(t, l.Subscribed)
		assert.Nil(t, l.Source)
		assert.Nil(t, l.Value)
	}

	levels[2].SetValue(10)
	assert.Len(t, r.changes, 1)
}

func TestNullToNullIsSilent(t *testing.T) {
	f := notifytest.NewFake()
	_, r := newTracker[string](t, f, "Level1.Name")

	f.Notify("Level1")
	f.SetLevel1(nil)
	assert.Empty(t, r.changes)

	// a new intermediate whose own link is still nil
	f2 := notifytest.NewFake()
	f2.SetNext(notifytest.NewLevel("a"))
	_, r2 := newTracker[int](t, f2, "Next.Next.Value")
	f2.SetNext(notifytest.NewLevel("b"))
	assert.Empty(t, r2.changes)
	assert.Len(t, r2.links, 2, "links 0 and 1 signal, the terminal stays unbound")
}

func TestWildcardForwardsWithoutResubscribing(t *testing.T) {
	f := notifytest.NewFake()
	level := notifytest.NewLevel("Johan")
	f.SetLevel1(level)

	_, r := newTracker[string](t, f, "Level1.Name")
	require.Equal(t, 1, level.Subscribes())

	f.Notify("")
	assert.Equal(t, []maybe.Maybe[string]{maybe.Some("Johan")}, r.values())
	assert.Equal(t, "", r.changes[0].Args.PropertyName)
	assert.Equal(t, 1, level.Subscribes())
	assert.Equal(t, 1, level.HandlerCount())

	f.Notify("Level1")
	assert.Len(t, r.changes, 2)
	assert.Equal(t, 1, level.Subscribes())

	level.Notify("")
	assert.Len(t, r.changes, 3)
}

func TestSetIntermediateFromNil(t *testing.T) {
	f := notifytest.NewFake()
	_, r := newTracker[string](t, f, "Level1.Name")

	f.SetLevel1(notifytest.NewLevel("Johan"))
	require.Len(t, r.changes, 1, "one notification, not one per link")
	assert.Equal(t, maybe.Some("Johan"), r.changes[0].Value)
	assert.Equal(t, "Name", r.changes[0].Args.PropertyName)
}

func TestScenarioNullAndBack(t *testing.T) {
	f := notifytest.NewFake()
	f.SetLevel1(notifytest.NewLevel("Johan"))

	tr, r := newTracker[string](t, f, "Level1.Name")
	v, err := tr.Value()
	require.NoError(t, err)
	assert.Equal(t, maybe.Some("Johan"), v)

	f.Level1().SetName("Erik")
	f.SetLevel1(nil)
	f.SetLevel1(notifytest.NewLevel("Erik"))

	assert.Equal(t, []maybe.Maybe[string]{
		maybe.Some("Erik"),
		maybe.None[string](),
		maybe.Some("Erik"),
	}, r.values())
}

func TestLinkHandlerSeesEveryLink(t *testing.T) {
	f := notifytest.NewFake()
	notifytest.Chain(f, 2)
	_, r := newTracker[int](t, f, "Next.Next.Value")

	f.SetNext(notifytest.NewLevel("x"))
	indexes := make([]int, len(r.links))
	for i, l := range r.links {
		indexes[i] = l.Index
	}
	assert.Equal(t, []int{0, 1, 2}, indexes)
	assert.Equal(t, "Next", r.links[0].Args.PropertyName)
	assert.Equal(t, []maybe.Maybe[int]{maybe.None[int]()}, r.values())
}

func TestSingleSegment(t *testing.T) {
	f := notifytest.NewFake()
	tr, r := newTracker[string](t, f, "Name")
	f.SetName("Johan")
	f.SetValue(1)

	assert.Equal(t, []maybe.Maybe[string]{maybe.Some("Johan")}, r.values())
	assert.Same(t, f, r.changes[0].Source)
	n, err := tr.Len()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNonNotifyingTerminal(t *testing.T) {
	f := notifytest.NewFake()
	f.SetPlain(notifytest.NewPlain("Johan", nil))

	tr, r := newTracker[string](t, f, "Plain.Name")
	links, err := tr.Links()
	require.NoError(t, err)
	assert.True(t, links[1].Bound)
	assert.False(t, links[1].Subscribed)

	f.SetPlain(notifytest.NewPlain("Erik", nil))
	assert.Equal(t, []maybe.Maybe[string]{maybe.Some("Erik")}, r.values())
}

func TestGetterFailureEndsTracking(t *testing.T) {
	f := notifytest.NewFake()
	level := notifytest.NewLevel("Johan")
	f.SetLevel1(level)

	tr, r := newTracker[int](t, f, "Level1.Boom")
	level.SetBoom(true)
	level.Notify("Boom")

	require.Len(t, r.errs, 1)
	var getterErr *path.GetterError
	assert.ErrorAs(t, r.errs[0], &getterErr)
	assert.ErrorIs(t, r.errs[0], notifytest.ErrBoom)
	assert.True(t, tr.IsDisposed())
	assert.Equal(t, 0, level.HandlerCount())
	assert.Equal(t, 0, f.HandlerCount())

	level.Notify("Boom")
	assert.Len(t, r.errs, 1)
	assert.Empty(t, r.changes)
}

func TestGetterFailureOnConstruction(t *testing.T) {
	f := notifytest.NewFake()
	level := notifytest.NewLevel("Johan")
	level.SetBoom(true)
	f.SetLevel1(level)

	p := path.MustParse[notifytest.Fake, int]("Level1.Boom")
	_, err := tracker.New(f, p, tracker.Handlers[int]{})
	assert.ErrorIs(t, err, notifytest.ErrBoom)
	assert.Equal(t, 0, f.HandlerCount())
	assert.Equal(t, 0, level.HandlerCount())
}

func TestDisposeIsIdempotent(t *testing.T) {
	f := notifytest.NewFake()
	levels := notifytest.Chain(f, 2)
	tr, r := newTracker[int](t, f, "Next.Next.Value")

	tr.Dispose()
	tr.Dispose()

	assert.Equal(t, 0, f.HandlerCount())
	for _, l := range levels {
		assert.Equal(t, 0, l.HandlerCount())
	}

	_, err := tr.Value()
	assert.ErrorIs(t, err, tracker.ErrDisposed)
	_, err = tr.Links()
	assert.ErrorIs(t, err, tracker.ErrDisposed)
	_, err = tr.Source()
	assert.ErrorIs(t, err, tracker.ErrDisposed)
	_, err = tr.Path()
	assert.ErrorIs(t, err, tracker.ErrDisposed)
	_, err = tr.Len()
	assert.ErrorIs(t, err, tracker.ErrDisposed)

	levels[1].SetValue(42)
	f.SetNext(nil)
	assert.Empty(t, r.changes)
}

func TestDisposeFromHandler(t *testing.T) {
	f := notifytest.NewFake()
	notifytest.Chain(f, 2)
	p := path.MustParse[notifytest.Fake, int]("Next.Next.Value")

	var tr *tracker.Tracker[notifytest.Fake, int]
	changes := 0
	tr, err := tracker.New(f, p, tracker.Handlers[int]{
		OnLink: func(c tracker.LinkChange) {
			if c.Index == 0 {
				tr.Dispose()
			}
		},
		OnChange: func(tracker.Change[int]) { changes++ },
	})
	require.NoError(t, err)

	f.SetNext(notifytest.NewLevel("x"))
	assert.Equal(t, 0, changes)
	assert.True(t, tr.IsDisposed())
}

func TestReentrantChange(t *testing.T) {
	f := notifytest.NewFake()
	f.SetLevel1(notifytest.NewLevel("Johan"))
	p := path.MustParse[notifytest.Fake, string]("Level1.Name")

	var values []maybe.Maybe[string]
	_, err := tracker.New(f, p, tracker.Handlers[string]{
		OnChange: func(c tracker.Change[string]) {
			values = append(values, c.Value)
			if c.Value.ValueOrDefault() == "Erik" {
				f.SetLevel1(notifytest.NewLevel("Kalle"))
			}
		},
	})
	require.NoError(t, err)

	f.Level1().SetName("Erik")
	assert.Equal(t, []maybe.Maybe[string]{maybe.Some("Erik"), maybe.Some("Kalle")}, values)
}

func TestWeakRoot(t *testing.T) {
	f := notifytest.NewFake()
	f.SetLevel1(notifytest.NewLevel("Johan"))

	tr, r := newTracker[string](t, f, "Level1.Name", tracker.WithWeakRoot())
	src, err := tr.Source()
	require.NoError(t, err)
	assert.Same(t, f, src)

	f.Level1().SetName("Erik")
	f.SetLevel1(nil)
	assert.Equal(t, []maybe.Maybe[string]{maybe.Some("Erik"), maybe.None[string]()}, r.values())

	tr.Dispose()
	assert.Equal(t, 0, f.HandlerCount())
}

// weakTracker tracks a root that nothing outside the tracker references.
func weakTracker(t *testing.T, level *notifytest.Level) (*tracker.Tracker[notifytest.Fake, string], *recorder[string], weak.Pointer[notifytest.Fake]) {
	t.Helper()
	f := notifytest.NewFake()
	f.SetLevel1(level)
	p := path.MustParse[notifytest.Fake, string]("Level1.Name")
	r := &recorder[string]{}
	tr, err := tracker.New(f, p, r.handlers(), tracker.WithWeakRoot())
	require.NoError(t, err)
	return tr, r, weak.Make(f)
}

func TestWeakRootIsCollected(t *testing.T) {
	level := notifytest.NewLevel("Johan")
	tr, r, ref := weakTracker(t, level)
	defer tr.Dispose()

	for i := 0; i < 5; i++ {
		runtime.GC()
	}
	assert.Nil(t, ref.Value())
	src, err := tr.Source()
	require.NoError(t, err)
	assert.Nil(t, src)

	// links past the root still follow the objects they are bound to
	level.SetName("Erik")
	assert.Equal(t, []maybe.Maybe[string]{maybe.Some("Erik")}, r.values())

	tr.Dispose()
	assert.Equal(t, 0, level.HandlerCount())
}

func TestNilRoot(t *testing.T) {
	p := path.MustParse[notifytest.Fake, string]("Name")
	_, err := tracker.New[notifytest.Fake, string](nil, p, tracker.Handlers[string]{})
	assert.ErrorIs(t, err, tracker.ErrNilRoot)
}

func TestInterfaceTerminal(t *testing.T) {
	f := notifytest.NewFake()
	p, err := path.Parse[notifytest.Fake, notify.Notifier]("Notifier")
	require.NoError(t, err)

	var values []maybe.Maybe[notify.Notifier]
	_, err = tracker.New(f, p, tracker.Handlers[notify.Notifier]{
		OnChange: func(c tracker.Change[notify.Notifier]) { values = append(values, c.Value) },
	})
	require.NoError(t, err)

	// Notifier is derived from Next, so only a wildcard reaches it
	f.SetNext(notifytest.NewLevel("x"))
	assert.Empty(t, values)
	f.Notify("")
	require.Len(t, values, 1)
	assert.Same(t, f.Next(), values[0].Value())
}
