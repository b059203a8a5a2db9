// Package datebounds limits date inputs to the range from today through
// one year from now.
package datebounds

import (
	"reflect"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Horizon is the fixed distance between the min and max bound. It is an
// elapsed duration, not a calendar year, so leap years are not tracked.
const Horizon = 365 * 24 * time.Hour

const (
	// DateLayout renders YYYY-MM-DD, the value format of <input type="date">.
	DateLayout = "2006-01-02"
	// DateTimeLayout renders YYYY-MM-DDTHH:MM for <input type="datetime-local">.
	DateTimeLayout = "2006-01-02T15:04"
)

// Attribute names read and written on an Element.
const (
	// AttrMin holds the earliest selectable value.
	AttrMin = "min"
	// AttrMax holds the latest selectable value.
	AttrMax = "max"
	// AttrType selects the value layout, see DateTimeLayout.
	AttrType = "type"
)

// Element is a date input whose named string attributes can be read and written.
type Element interface {
	Attr(name string) (string, bool)
	SetAttr(name, value string)
}

// Emptier is implemented by elements that can wrap nothing, such as an
// adapter around a lookup that matched no node. Empty elements are treated
// as missing.
type Emptier interface {
	Empty() bool
}

// Bounds holds the rendered min and max values.
type Bounds struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// Compute renders now and now+Horizon in loc using layout.
func Compute(now time.Time, loc *time.Location, layout string) Bounds {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	return Bounds{
		Min: now.Format(layout),
		Max: now.Add(Horizon).Format(layout),
	}
}

// Constrainer applies Bounds to elements.
type Constrainer struct {
	now    func() time.Time
	loc    *time.Location
	logger *zap.Logger
}

// Option configures a Constrainer.
type Option func(*Constrainer)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Constrainer) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLocation sets the location dates are rendered in. Defaults to UTC.
func WithLocation(loc *time.Location) Option {
	return func(c *Constrainer) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithLogger sets the logger used for the missing element warning.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Constrainer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a Constrainer.
func New(opts ...Option) *Constrainer {
	c := &Constrainer{now: time.Now, loc: time.UTC}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Location returns the location dates are rendered in.
func (c *Constrainer) Location() *time.Location {
	return c.loc
}

// Bounds computes the current bounds without touching any element.
func (c *Constrainer) Bounds(layout string) Bounds {
	return Compute(c.now(), c.loc, layout)
}

// Apply sets min to today and max to today plus Horizon on el, overwriting
// any previous values. A missing element is logged as a warning and ignored.
func (c *Constrainer) Apply(el Element) {
	if isAbsent(el) {
		c.log().Warn("date input element not found")
		return
	}

	b := c.Bounds(layoutFor(el))
	el.SetAttr(AttrMin, b.Min)
	el.SetAttr(AttrMax, b.Max)
}

func (c *Constrainer) log() *zap.Logger {
	if c.logger != nil {
		return c.logger
	}
	// Resolved per call so zap.ReplaceGlobals after New still takes effect.
	return zap.L()
}

var defaultConstrainer = New()

// Apply constrains el with a UTC constrainer that logs to the global zap logger.
func Apply(el Element) {
	defaultConstrainer.Apply(el)
}

// layoutFor picks minute precision for datetime-local inputs.
func layoutFor(el Element) string {
	if t, ok := el.Attr(AttrType); ok && strings.EqualFold(strings.TrimSpace(t), "datetime-local") {
		return DateTimeLayout
	}
	return DateLayout
}

func isAbsent(el Element) bool {
	if el == nil {
		return true
	}
	v := reflect.ValueOf(el)
	switch v.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Interface, reflect.Func, reflect.Slice:
		if v.IsNil() {
			return true
		}
	}
	if e, ok := el.(Emptier); ok {
		return e.Empty()
	}
	return false
}
