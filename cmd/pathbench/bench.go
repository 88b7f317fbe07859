package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/delaneyj/signalpath/maybe"
	"github.com/delaneyj/signalpath/notify/notifytest"
	"github.com/delaneyj/signalpath/observe"
	"github.com/delaneyj/signalpath/stream"
	"github.com/jamiealquiza/tachymeter"
	"github.com/sirupsen/logrus"
)

type result struct {
	name    string
	depth   int
	iters   int
	metrics *tachymeter.Metrics
}

func parseDepths(s string) ([]int, error) {
	set := mapset.NewSet[int]()
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid depth %q: %w", part, err)
		}
		if d < 1 {
			return nil, fmt.Errorf("depth must be at least 1, got %d", d)
		}
		set.Add(d)
	}
	if set.Cardinality() == 0 {
		return nil, fmt.Errorf("no depths given")
	}
	depths := set.ToSlice()
	sort.Ints(depths)
	return depths, nil
}

func depthExpr(depth int) string {
	return strings.Repeat("Next.", depth) + "Value"
}

func benchmarkDepth(depth, iters int, log logrus.FieldLogger) ([]result, error) {
	expr := depthExpr(depth)
	log = log.WithField("depth", depth)

	root := notifytest.NewFake()
	levels := notifytest.Chain(root, depth)
	alternate := notifytest.Chain(notifytest.NewFake(), depth)[0]

	obs, err := observe.Value[int](root, expr, observe.WithSignalInitial(false), observe.WithLogger(log))
	if err != nil {
		return nil, err
	}

	subscribe := tachymeter.New(&tachymeter.Config{Size: iters})
	for i := 0; i < iters; i++ {
		start := time.Now()
		sub := obs.Subscribe(stream.Funcs[maybe.Maybe[int]]{})
		sub.Dispose()
		subscribe.AddTime(time.Since(start))
	}

	received := 0
	var failure error
	sub := stream.Subscribe(obs, func(maybe.Maybe[int]) { received++ }, func(err error) { failure = err })
	defer sub.Dispose()

	leaf := levels[len(levels)-1]
	terminal := tachymeter.New(&tachymeter.Config{Size: iters})
	for i := 0; i < iters; i++ {
		start := time.Now()
		leaf.SetValue(depth + 1 + i)
		terminal.AddTime(time.Since(start))
	}
	if failure != nil {
		return nil, failure
	}
	if received != iters {
		return nil, fmt.Errorf("expected %d terminal notifications, got %d", iters, received)
	}

	original := root.Next()
	replace := tachymeter.New(&tachymeter.Config{Size: iters})
	for i := 0; i < iters; i++ {
		next := alternate
		if i%2 == 1 {
			next = original
		}
		start := time.Now()
		root.SetNext(next)
		replace.AddTime(time.Since(start))
	}
	if failure != nil {
		return nil, failure
	}
	log.WithField("notifications", received).Debug("depth done")

	return []result{
		{name: "subscribe+dispose", depth: depth, iters: iters, metrics: subscribe.Calc()},
		{name: "terminal change", depth: depth, iters: iters, metrics: terminal.Calc()},
		{name: "replace first link", depth: depth, iters: iters, metrics: replace.Calc()},
	}, nil
}
