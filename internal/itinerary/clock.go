package itinerary

import (
	"fmt"
	"math"
)

// clock is a time of day in minutes after midnight. It wraps at 24h and never
// rolls over into the next day.
type clock int

const minutesPerDay = 24 * 60

func at(hour, minute int) clock {
	return clock(hour*60 + minute)
}

// advance moves the clock forward by a fractional number of hours. The whole
// hours and the minutes of the fractional part are added separately.
func (c clock) advance(hours float64) clock {
	whole := math.Floor(hours)
	minutes := int(math.Round((hours - whole) * 60))
	next := int(c) + int(whole)*60 + minutes
	return clock(((next % minutesPerDay) + minutesPerDay) % minutesPerDay)
}

func (c clock) before(other clock) bool {
	return c < other
}

// String renders the clock as zero-padded "HH:MM", so lexical order matches time order.
func (c clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}
