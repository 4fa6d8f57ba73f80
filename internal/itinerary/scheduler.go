package itinerary

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sort"

	"github.com/google/uuid"

	"github.com/neexbeast/globetrotter/internal/travel"
)

const (
	suggestionPoolLimit = 20

	// slotsPerDay is the number of fixed activity slots: morning, afternoon, evening.
	slotsPerDay = 3

	defaultSlotHours  = 2.0
	defaultExtraHours = 1.5
	freeTimeHours     = 1.5

	breakfastBase  = 10.0
	lunchBase      = 20.0
	dinnerBase     = 35.0
	hotelNightBase = 80.0
)

// ShuffleFunc reorders n elements through swap, with the semantics of rand.Shuffle.
type ShuffleFunc func(n int, swap func(i, j int))

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithShuffle replaces the source of randomness used to order suggestions.
// The function must be safe for concurrent use if GenerateTrip is called.
func WithShuffle(fn ShuffleFunc) Option {
	return func(s *Scheduler) { s.shuffle = fn }
}

// WithLogger sets the logger used for soft failures.
func WithLogger(log *slog.Logger) Option {
	return func(s *Scheduler) { s.log = log }
}

// Scheduler turns selected activities into day-by-day itineraries.
type Scheduler struct {
	catalog Catalog
	shuffle ShuffleFunc
	log     *slog.Logger
}

// NewScheduler constructs a Scheduler reading suggestions from catalog.
func NewScheduler(catalog Catalog, opts ...Option) *Scheduler {
	s := &Scheduler{
		catalog: catalog,
		shuffle: rand.Shuffle,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Generate builds the schedule for a stay at cityID. It never fails: when the
// suggestion pool cannot be read the days are built without suggestions.
func (s *Scheduler) Generate(ctx context.Context, stay Stay, selected []travel.Activity, cityID uuid.UUID, costIndex int) []DaySchedule {
	return Build(stay, selected, s.suggestionPool(ctx, cityID, selected), costIndex)
}

// suggestionPool returns up to suggestionPoolLimit city activities that were
// not selected, in shuffled order.
func (s *Scheduler) suggestionPool(ctx context.Context, cityID uuid.UUID, selected []travel.Activity) []travel.Activity {
	candidates, err := s.catalog.ActivitiesByCity(ctx, cityID, suggestionPoolLimit)
	if err != nil {
		s.log.Warn("suggestion pool fetch failed", "city_id", cityID, "err", err)
		candidates = nil
	}

	chosen := make(map[uuid.UUID]struct{}, len(selected))
	for _, a := range selected {
		chosen[a.ID] = struct{}{}
	}

	pool := make([]travel.Activity, 0, len(candidates))
	for _, a := range candidates {
		if _, ok := chosen[a.ID]; ok {
			continue
		}
		pool = append(pool, a)
	}

	s.shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	return pool
}

// Build is the deterministic core of Generate. Suggestions are consumed from
// pool in order, at most one per day. The pool slice is not modified.
func Build(stay Stay, selected, pool []travel.Activity, costIndex int) []DaySchedule {
	totalDays := stay.Days()
	if totalDays <= 0 {
		return []DaySchedule{}
	}

	t := newTemplates(Multiplier(costIndex))
	buckets := distribute(selected, totalDays)
	suggestions := pool

	days := make([]DaySchedule, 0, totalDays)
	for i := 0; i < totalDays; i++ {
		assigned := buckets[i]
		items := make([]ScheduleItem, 0, 9)

		if i == 0 {
			items = append(items, t.checkIn)
		}
		items = append(items, t.breakfast)

		now := at(9, 0)
		if len(assigned) > 0 {
			items = append(items, selectedItem(assigned[0], now, defaultSlotHours))
			now = now.advance(hoursOr(assigned[0], defaultSlotHours))
		}

		if now.before(at(12, 0)) && len(suggestions) > 0 {
			items = append(items, suggestedItem(suggestions[0], now))
			suggestions = suggestions[1:]
		}

		items = append(items, t.lunch)
		now = at(14, 30)

		if len(assigned) > 1 {
			items = append(items, selectedItem(assigned[1], now, defaultSlotHours))
			now = now.advance(hoursOr(assigned[1], defaultSlotHours))
		}

		if now.before(at(18, 0)) {
			items = append(items, freeTime(now, "Free Time", "Explore the neighbourhood at your own pace"))
		}

		items = append(items, t.dinner)

		if len(assigned) > 2 {
			items = append(items, selectedItem(assigned[2], at(21, 0), defaultExtraHours))
		} else {
			items = append(items, freeTime(at(21, 0), "Evening Free Time", "Relax or enjoy the local nightlife"))
		}

		if i == totalDays-1 {
			items = append([]ScheduleItem{t.checkOut}, items...)
		}

		sort.SliceStable(items, func(a, b int) bool {
			return items[a].TimeOfDay < items[b].TimeOfDay
		})

		overflow := []travel.Activity{}
		if len(assigned) > slotsPerDay {
			overflow = append(overflow, assigned[slotsPerDay:]...)
		}

		days = append(days, newDaySchedule(stay.Start.AddDays(i), i+1, items, overflow))
	}

	return days
}

// distribute assigns activity i to day i mod days, preserving input order within each day.
func distribute(selected []travel.Activity, days int) [][]travel.Activity {
	buckets := make([][]travel.Activity, days)
	for i, a := range selected {
		buckets[i%days] = append(buckets[i%days], a)
	}
	return buckets
}

func newDaySchedule(date travel.Date, number int, items []ScheduleItem, overflow []travel.Activity) DaySchedule {
	var cost float64
	activities := 0
	for _, it := range items {
		cost += it.Cost
		if it.Kind == KindActivity {
			activities++
		}
	}

	return DaySchedule{
		Date:          date.String(),
		DayNumber:     number,
		DayName:       date.Weekday().String(),
		Items:         items,
		DailyCost:     round2(cost),
		ActivityCount: activities,
		Overflow:      overflow,
	}
}

// templates holds the fixed meal and lodging items, priced for one city.
type templates struct {
	breakfast ScheduleItem
	lunch     ScheduleItem
	dinner    ScheduleItem
	checkIn   ScheduleItem
	checkOut  ScheduleItem
}

func newTemplates(multiplier float64) templates {
	meal := func(c clock, title, desc string, hours, base float64) ScheduleItem {
		return ScheduleItem{
			TimeOfDay:     c.String(),
			Kind:          KindMeal,
			Title:         title,
			Description:   desc,
			DurationHours: hours,
			Cost:          round2(base * multiplier),
			IsMeal:        true,
		}
	}

	return templates{
		breakfast: meal(at(8, 0), "Breakfast", "Start the day at a local café", 1, breakfastBase),
		lunch:     meal(at(13, 0), "Lunch", "Lunch at a nearby restaurant", 1, lunchBase),
		dinner:    meal(at(19, 0), "Dinner", "Dinner featuring local cuisine", 1.5, dinnerBase),
		checkIn: ScheduleItem{
			TimeOfDay:     at(15, 0).String(),
			Kind:          KindAccommodation,
			Title:         "Hotel Check-in",
			Description:   "Check in and drop off your luggage",
			DurationHours: 1,
			Cost:          round2(hotelNightBase * multiplier),
			IsHotel:       true,
		},
		checkOut: ScheduleItem{
			TimeOfDay:     at(11, 0).String(),
			Kind:          KindAccommodation,
			Title:         "Hotel Check-out",
			Description:   "Pack up and check out",
			DurationHours: 0.5,
			Cost:          0,
			IsHotel:       true,
		},
	}
}

func hoursOr(a travel.Activity, fallback float64) float64 {
	if a.DurationHours > 0 {
		return a.DurationHours
	}
	return fallback
}

func activityItem(a travel.Activity, c clock, fallbackHours float64) ScheduleItem {
	id := a.ID
	return ScheduleItem{
		TimeOfDay:     c.String(),
		Kind:          KindActivity,
		Title:         a.Name,
		Description:   a.Description,
		DurationHours: hoursOr(a, fallbackHours),
		Cost:          round2(a.AverageCost),
		ActivityID:    &id,
		Category:      a.Category,
	}
}

func selectedItem(a travel.Activity, c clock, fallbackHours float64) ScheduleItem {
	item := activityItem(a, c, fallbackHours)
	item.IsSelected = true
	return item
}

func suggestedItem(a travel.Activity, c clock) ScheduleItem {
	item := activityItem(a, c, defaultExtraHours)
	item.IsSuggested = true
	return item
}

func freeTime(c clock, title, desc string) ScheduleItem {
	return ScheduleItem{
		TimeOfDay:     c.String(),
		Kind:          KindFreeTime,
		Title:         title,
		Description:   desc,
		DurationHours: freeTimeHours,
	}
}
