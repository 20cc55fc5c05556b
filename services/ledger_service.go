package services

import (
	"encoding/json"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"chowtrack/models"
	"chowtrack/storage"
)

const defaultCalorieGoal = 2000

// LedgerService owns the dated, per-user ledger: food day-buckets, the
// weight history, daily notes, the profile and reminder settings. Every
// read-modify-write cycle runs under a per-user lock so a timer callback
// and a foreground edit cannot interleave a partial write.
type LedgerService struct {
	store storage.Store
	log   *slog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	// called after a weight log lands the user on their goal weight
	onGoalAchieved func(userID, detail string)
}

func NewLedgerService(store storage.Store, log *slog.Logger) *LedgerService {
	return &LedgerService{
		store: store,
		log:   log,
		locks: make(map[string]*sync.Mutex),
	}
}

// SetGoalAchievedHook registers the goal-channel signal source.
func (s *LedgerService) SetGoalAchievedHook(fn func(userID, detail string)) {
	s.onGoalAchieved = fn
}

func (s *LedgerService) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}

// decodeList reads a JSON array under key into dst. A malformed blob is
// treated as empty and reported as a CorruptDataWarning so the caller can
// keep logging new data even if history is unreadable.
func (s *LedgerService) decodeList(key string, dst any) *CorruptDataWarning {
	raw, ok, err := s.store.Get(key)
	if err != nil || !ok || raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		s.log.Warn("corrupt blob treated as empty", "key", key, "err", err)
		return &CorruptDataWarning{Key: key, Err: err}
	}
	return nil
}

func (s *LedgerService) putJSON(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.store.Put(key, string(raw))
}

// --- Food ---

// AppendFood appends one entry to the (user, date, slot) day-bucket and
// recomputes the day's calorie total from all three buckets. The cached
// total is a hint only; summing the buckets is what keeps it honest across
// partial failures.
func (s *LedgerService) AppendFood(userID string, date time.Time, slot string, entry models.FoodEntry) error {
	if !models.ValidMealSlot(slot) {
		return validationErrorf("unknown meal slot %q", slot)
	}
	if entry.FoodName == "" {
		return validationErrorf("food name is required")
	}
	if entry.Calories < 0 {
		return validationErrorf("calories must be >= 0")
	}
	entry.MealSlot = slot
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	key := storage.MealKey(userID, date, slot)
	var bucket []models.FoodEntry
	warn := s.decodeList(key, &bucket)

	bucket = append(bucket, entry)
	sort.Slice(bucket, func(i, j int) bool { return bucket[i].Timestamp.Before(bucket[j].Timestamp) })
	if err := s.putJSON(key, bucket); err != nil {
		return err
	}

	if err := s.recomputeDailyTotal(userID, date); err != nil {
		return err
	}
	if warn != nil {
		return warn
	}
	return nil
}

// FoodBucket returns the entries for one (user, date, slot).
func (s *LedgerService) FoodBucket(userID string, date time.Time, slot string) ([]models.FoodEntry, error) {
	if !models.ValidMealSlot(slot) {
		return nil, validationErrorf("unknown meal slot %q", slot)
	}
	var bucket []models.FoodEntry
	if warn := s.decodeList(storage.MealKey(userID, date, slot), &bucket); warn != nil {
		return bucket, warn
	}
	return bucket, nil
}

// recomputeDailyTotal sums the three slot buckets and rewrites the cached
// day total. Never incremented in place: independent per-meal increments
// drift from the true sum after partial failures.
func (s *LedgerService) recomputeDailyTotal(userID string, date time.Time) error {
	total := 0
	for _, slot := range models.MealSlots {
		var bucket []models.FoodEntry
		s.decodeList(storage.MealKey(userID, date, slot), &bucket)
		for _, e := range bucket {
			total += e.Calories
		}
	}
	return s.store.Put(storage.DayKey(userID, storage.KindDailyTotal, date), strconv.Itoa(total))
}

// DailyTotals returns the calorie summary for one day. Eaten is recomputed
// from the buckets, goal comes from the profile.
func (s *LedgerService) DailyTotals(userID string, date time.Time) (models.DailyTotals, error) {
	eaten := 0
	var firstWarn error
	for _, slot := range models.MealSlots {
		var bucket []models.FoodEntry
		if warn := s.decodeList(storage.MealKey(userID, date, slot), &bucket); warn != nil && firstWarn == nil {
			firstWarn = warn
		}
		for _, e := range bucket {
			eaten += e.Calories
		}
	}

	goal := defaultCalorieGoal
	if p, ok, _ := s.Profile(userID); ok && p.CalorieGoal > 0 {
		goal = p.CalorieGoal
	}

	left := goal - eaten
	if left < 0 {
		left = 0
	}
	pct := 0
	if goal > 0 {
		pct = eaten * 100 / goal
		if pct > 100 {
			pct = 100
		}
		if pct < 0 {
			pct = 0
		}
	}
	return models.DailyTotals{Eaten: eaten, Goal: goal, Left: left, ProgressPct: pct}, firstWarn
}

// RollingAverage averages the recorded day totals over the `days` days
// ending at anchor. Days with no record are skipped, not counted as zero.
// Returns 0 when no day in the window has a record.
func (s *LedgerService) RollingAverage(userID string, days int, anchor time.Time) (float64, error) {
	if days <= 0 {
		return 0, validationErrorf("days must be > 0")
	}
	total, valid := 0, 0
	day := anchor
	for i := 0; i < days; i++ {
		key := storage.DayKey(userID, storage.KindDailyTotal, day)
		if raw, ok, err := s.store.Get(key); err == nil && ok {
			if n, err := strconv.Atoi(raw); err == nil {
				total += n
				valid++
			}
		}
		day = day.AddDate(0, 0, -1)
	}
	if valid == 0 {
		return 0, nil
	}
	return float64(total) / float64(valid), nil
}

// --- Weight ---

// noonOf pins a weight entry to local noon of its calendar day, keeping
// day-equality checks clear of timezone edges.
func noonOf(date time.Time) time.Time {
	d := date.Local()
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, d.Location())
}

func sameDay(a, b time.Time) bool {
	al, bl := a.Local(), b.Local()
	return al.Year() == bl.Year() && al.Month() == bl.Month() && al.Day() == bl.Day()
}

// LogWeight records a weight for the given calendar day, replacing any entry
// already on that day. Profile.WeightKg is updated only when the new entry is
// the latest in history, so backdating never overrides the displayed current
// weight.
func (s *LedgerService) LogWeight(userID string, date time.Time, weight float64) error {
	if weight <= 0 {
		return validationErrorf("weight must be > 0")
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	entry := models.WeightEntry{Timestamp: noonOf(date), Weight: weight}

	key := storage.UserKey(userID, storage.KindWeightLog)
	var history []models.WeightEntry
	warn := s.decodeList(key, &history)

	merged := history[:0:0]
	for _, e := range history {
		if !sameDay(e.Timestamp, entry.Timestamp) {
			merged = append(merged, e)
		}
	}
	merged = append(merged, entry)
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp.Before(merged[j].Timestamp) })

	if err := s.putJSON(key, merged); err != nil {
		return err
	}

	latest := merged[len(merged)-1]
	if !entry.Timestamp.Before(latest.Timestamp) {
		s.updateCurrentWeight(userID, weight)
	}

	if warn != nil {
		return warn
	}
	return nil
}

// updateCurrentWeight rewrites Profile.WeightKg and fires the goal-achieved
// signal when the new weight lands on the goal.
func (s *LedgerService) updateCurrentWeight(userID string, weight float64) {
	p, ok, err := s.Profile(userID)
	if err != nil || !ok {
		return
	}
	wasOnGoal := p.WeightGoalKg > 0 && math.Abs(p.WeightKg-p.WeightGoalKg) <= 0.1
	p.WeightKg = weight
	if err := s.putJSON(storage.UserKey(userID, storage.KindProfile), p); err != nil {
		s.log.Error("persisting current weight", "user", userID, "err", err)
		return
	}
	nowOnGoal := p.WeightGoalKg > 0 && math.Abs(weight-p.WeightGoalKg) <= 0.1
	if nowOnGoal && !wasOnGoal && s.onGoalAchieved != nil {
		s.onGoalAchieved(userID, "Congratulations! You've reached your goal weight.")
	}
}

// WeightHistory returns the full history sorted ascending by timestamp.
// An empty history is a valid, non-error result.
func (s *LedgerService) WeightHistory(userID string) ([]models.WeightEntry, error) {
	var history []models.WeightEntry
	if warn := s.decodeList(storage.UserKey(userID, storage.KindWeightLog), &history); warn != nil {
		return history, warn
	}
	sort.Slice(history, func(i, j int) bool { return history[i].Timestamp.Before(history[j].Timestamp) })
	return history, nil
}

// --- Notes ---

func (s *LedgerService) SetNote(userID string, date time.Time, text string) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.putJSON(storage.DayKey(userID, storage.KindDailyNotes, date), models.Note{Text: text})
}

func (s *LedgerService) GetNote(userID string, date time.Time) (string, error) {
	var note models.Note
	key := storage.DayKey(userID, storage.KindDailyNotes, date)
	raw, ok, err := s.store.Get(key)
	if err != nil || !ok {
		return "", err
	}
	if err := json.Unmarshal([]byte(raw), &note); err != nil {
		s.log.Warn("corrupt blob treated as empty", "key", key, "err", err)
		return "", &CorruptDataWarning{Key: key, Err: err}
	}
	return note.Text, nil
}

// --- Profile ---

func (s *LedgerService) Profile(userID string) (models.Profile, bool, error) {
	var p models.Profile
	key := storage.UserKey(userID, storage.KindProfile)
	raw, ok, err := s.store.Get(key)
	if err != nil || !ok {
		return p, false, err
	}
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		s.log.Warn("corrupt blob treated as empty", "key", key, "err", err)
		return models.Profile{}, false, &CorruptDataWarning{Key: key, Err: err}
	}
	return p, true, nil
}

// SaveProfile persists the profile. The starting weight is written once, on
// the first save that carries a weight, and never overwritten afterwards.
func (s *LedgerService) SaveProfile(userID string, p models.Profile) error {
	if p.Age <= 0 || p.HeightCm <= 0 || p.WeightKg <= 0 || p.WeightGoalKg <= 0 {
		return validationErrorf("age, height, weight and weight goal must be positive")
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if existing, ok, _ := s.Profile(userID); ok && existing.StartingWeightKg > 0 {
		p.StartingWeightKg = existing.StartingWeightKg
	} else if p.StartingWeightKg == 0 {
		p.StartingWeightKg = p.WeightKg
	}
	return s.putJSON(storage.UserKey(userID, storage.KindProfile), p)
}

// --- Reminder settings ---

func (s *LedgerService) ReminderSettings(userID string) (models.ReminderSettings, error) {
	settings := models.DefaultReminderSettings()
	key := storage.UserKey(userID, storage.KindReminders)
	raw, ok, err := s.store.Get(key)
	if err != nil || !ok {
		return settings, err
	}
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		s.log.Warn("corrupt blob treated as empty", "key", key, "err", err)
		return models.DefaultReminderSettings(), &CorruptDataWarning{Key: key, Err: err}
	}
	if settings.WaterIntervalHours <= 0 {
		settings.WaterIntervalHours = 2
	}
	return settings, nil
}

func (s *LedgerService) SaveReminderSettings(userID string, settings models.ReminderSettings) error {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()
	return s.putJSON(storage.UserKey(userID, storage.KindReminders), settings)
}
