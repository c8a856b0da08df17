package domain

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser — парсер cron-выражений.
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// maxBackoffExp — ограничение экспоненты backoff, чтобы сдвиг
// не переполнил time.Duration. 2^24 минут — это десятилетия,
// на практике "никогда".
const maxBackoffExp = 24

// Schedule — расписание автоматического обновления query.
//
// Хранится в JSONB поле queries.schedule. Поддерживает два режима:
// - По cron-выражению: "0 9 * * *" (каждый день в 9:00)
// - По интервалу: каждые N секунд
//
// Планировщик не хранит "время следующего запуска": оно каждый раз
// вычисляется от времени последнего успешного результата (RetrievedAt).
type Schedule struct {
	// IntervalSec — интервал в секундах между обновлениями.
	// Используется если CronExpr не задан.
	IntervalSec int `json:"interval,omitempty"`

	// CronExpr — cron-выражение.
	// Формат: "минуты часы дни месяцы дни_недели"
	// Примеры:
	//   "0 9 * * *"     — каждый день в 9:00
	//   "*/30 * * * *"  — каждые 30 минут
	// Если задан CronExpr, IntervalSec игнорируется.
	CronExpr string `json:"cron,omitempty"`

	// Timezone — часовой пояс для вычисления времени.
	// По умолчанию: "UTC".
	Timezone string `json:"timezone,omitempty"`

	// Until — время, после которого расписание считается истёкшим.
	// Истёкшие расписания не запускают обновления и вычищаются
	// отдельным maintenance-проходом.
	Until *time.Time `json:"until,omitempty"`
}

// IsCron возвращает true, если расписание использует cron-выражение.
func (s *Schedule) IsCron() bool {
	return s.CronExpr != ""
}

// IsInterval возвращает true, если расписание использует интервал.
func (s *Schedule) IsInterval() bool {
	return s.CronExpr == "" && s.IntervalSec > 0
}

// Expired возвращает true, если расписание истекло к моменту now.
func (s *Schedule) Expired(now time.Time) bool {
	return s.Until != nil && now.After(*s.Until)
}

// NextRunAfter вычисляет время следующего обновления после last.
// Нулевое last означает, что результата ещё не было: обновление
// должно произойти немедленно, возвращается нулевое время.
// Учитывает timezone расписания.
func (s *Schedule) NextRunAfter(last time.Time) (time.Time, error) {
	if last.IsZero() {
		return time.Time{}, nil
	}

	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		// Fallback на UTC если timezone невалидный
		loc = time.UTC
	}
	lastInTz := last.In(loc)

	if s.IsCron() {
		schedule, err := cronParser.Parse(s.CronExpr)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse cron expression %q: %w", s.CronExpr, err)
		}
		return schedule.Next(lastInTz).UTC(), nil
	}

	if s.IsInterval() {
		return lastInTz.Add(time.Duration(s.IntervalSec) * time.Second).UTC(), nil
	}

	// Ни cron, ни interval — schedule некорректный
	return time.Time{}, fmt.Errorf("schedule has neither cron nor interval")
}

// ShouldRefresh решает, пора ли обновлять запрос к моменту now.
//
// last — время последнего успешного результата (nil, если его не было),
// failures — счётчик подряд идущих неудач: каждая неудача отодвигает
// следующий запуск на 2^failures минут (экспоненциальный backoff).
// Некорректные расписания никогда не запускаются.
func (s *Schedule) ShouldRefresh(last *time.Time, failures int, now time.Time) bool {
	if s.Expired(now) {
		return false
	}

	var lastAt time.Time
	if last != nil {
		lastAt = *last
	}

	next, err := s.NextRunAfter(lastAt)
	if err != nil {
		return false
	}

	if failures > 0 {
		exp := failures
		if exp > maxBackoffExp {
			exp = maxBackoffExp
		}
		next = next.Add(time.Duration(1<<exp) * time.Minute)
	}

	return now.After(next) || now.Equal(next)
}

// ValidateCronExpr проверяет валидность cron-выражения.
func ValidateCronExpr(cronExpr string) error {
	_, err := cronParser.Parse(cronExpr)
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}
	return nil
}
