package tracker_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/delaneyj/signalpath/notify/notifytest"
	"github.com/delaneyj/signalpath/path"
	"github.com/delaneyj/signalpath/tracker"
)

func deepPath(depth int) string {
	return strings.Repeat("Next.", depth) + "Value"
}

func BenchmarkTerminalChange(b *testing.B) {
	for _, depth := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("depth=%d", depth), func(b *testing.B) {
			f := notifytest.NewFake()
			levels := notifytest.Chain(f, depth)
			p := path.MustParse[notifytest.Fake, int](deepPath(depth))
			tr, err := tracker.New(f, p, tracker.Handlers[int]{})
			if err != nil {
				b.Fatal(err)
			}
			defer tr.Dispose()

			leaf := levels[len(levels)-1]
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				leaf.SetValue(i + 100)
			}
		})
	}
}

func BenchmarkReplaceRoot(b *testing.B) {
	for _, depth := range []int{1, 4, 16} {
		b.Run(fmt.Sprintf("depth=%d", depth), func(b *testing.B) {
			f := notifytest.NewFake()
			notifytest.Chain(f, depth)
			alternate := notifytest.NewFake()
			replacement := notifytest.Chain(alternate, depth)[0]
			original := f.Next()

			p := path.MustParse[notifytest.Fake, int](deepPath(depth))
			tr, err := tracker.New(f, p, tracker.Handlers[int]{})
			if err != nil {
				b.Fatal(err)
			}
			defer tr.Dispose()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if i%2 == 0 {
					f.SetNext(replacement)
				} else {
					f.SetNext(original)
				}
			}
		})
	}
}
