package calendar

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidTrigger возвращается для некорректного дня или времени срабатывания.
var ErrInvalidTrigger = errors.New("invalid trigger")

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// Trigger задаёт день недели и минуту, в которую планировщик строит отчёт.
type Trigger struct {
	Weekday time.Weekday
	Hour    int
	Minute  int
}

// DefaultTrigger — пятница, 12:00.
var DefaultTrigger = Trigger{Weekday: time.Friday, Hour: 12, Minute: 0}

// ParseTrigger разбирает день недели ("friday", "fri") и время "HH:MM".
func ParseTrigger(day, clock string) (Trigger, error) {
	day = strings.ToLower(strings.TrimSpace(day))
	weekday, ok := weekdays[day]
	if !ok {
		for name, wd := range weekdays {
			if len(day) >= 3 && strings.HasPrefix(name, day) {
				weekday, ok = wd, true
				break
			}
		}
	}
	if !ok {
		return Trigger{}, fmt.Errorf("%w: unknown weekday %q", ErrInvalidTrigger, day)
	}
	parsed, err := time.Parse("15:04", strings.TrimSpace(clock))
	if err != nil {
		return Trigger{}, fmt.Errorf("%w: time must be HH:MM", ErrInvalidTrigger)
	}
	return Trigger{Weekday: weekday, Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

func (t Trigger) String() string {
	return fmt.Sprintf("%s %02d:%02d", t.Weekday, t.Hour, t.Minute)
}

// Matches сообщает, совпадают ли день недели, час и минута now в опорной зоне с триггером.
// Окна допуска нет: опрос реже раза в минуту может пропустить срабатывание.
func (c *Calendar) Matches(t Trigger, now time.Time) bool {
	local := now.In(c.loc)
	return local.Weekday() == t.Weekday && local.Hour() == t.Hour && local.Minute() == t.Minute
}
