package notify_test

import (
	"testing"

	"github.com/delaneyj/signalpath/notify"
	"github.com/stretchr/testify/assert"
)

type counter struct {
	notify.Base
	count int
}

func (c *counter) SetCount(v int) {
	notify.Set(&c.Base, c, &c.count, v, "Count")
}

func TestIsMatch(t *testing.T) {
	assert.True(t, notify.Args("Name").IsMatch("Name"))
	assert.False(t, notify.Args("Value").IsMatch("Name"))
	assert.True(t, notify.Args("").IsMatch("Name"))
	assert.True(t, notify.AllChanged.IsMatch("Anything"))
}

func TestRaiseInOrder(t *testing.T) {
	c := &counter{}
	var calls []string
	c.OnPropertyChanged(func(sender any, e notify.PropertyChangedEventArgs) {
		assert.Same(t, c, sender)
		calls = append(calls, "first:"+e.PropertyName)
	})
	c.OnPropertyChanged(func(sender any, e notify.PropertyChangedEventArgs) {
		calls = append(calls, "second:"+e.PropertyName)
	})

	c.SetCount(1)
	assert.Equal(t, []string{"first:Count", "second:Count"}, calls)

	// same value, no event
	c.SetCount(1)
	assert.Len(t, calls, 2)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	c := &counter{}
	calls := 0
	stop := c.OnPropertyChanged(func(any, notify.PropertyChangedEventArgs) { calls++ })
	other := c.OnPropertyChanged(func(any, notify.PropertyChangedEventArgs) {})
	assert.Equal(t, 2, c.HandlerCount())

	stop()
	stop()
	assert.Equal(t, 1, c.HandlerCount())

	c.SetCount(2)
	assert.Equal(t, 0, calls)

	other()
	assert.Equal(t, 0, c.HandlerCount())
}

func TestUnsubscribeDuringRaise(t *testing.T) {
	c := &counter{}
	calls := 0
	var stop func()
	stop = c.OnPropertyChanged(func(any, notify.PropertyChangedEventArgs) {
		calls++
		stop()
	})
	c.OnPropertyChanged(func(any, notify.PropertyChangedEventArgs) { calls++ })

	c.SetCount(1)
	assert.Equal(t, 2, calls)
	c.SetCount(2)
	assert.Equal(t, 3, calls)
}

func TestNilHandler(t *testing.T) {
	c := &counter{}
	stop := c.OnPropertyChanged(nil)
	stop()
	assert.Equal(t, 0, c.HandlerCount())
}
