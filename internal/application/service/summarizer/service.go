// Package summarizer is the recursive summarization pipeline: interactions
// roll up into daily summaries, dailies into weeklies, weeklies into
// monthlies, and monthlies into annuals. A period is either missing or
// completed; failed attempts leave no partial state behind.
package summarizer

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/pgvector/pgvector-go"
	"github.com/tiktoken-go/tokenizer"

	"github.com/mnemora-ai/mnemora/internal/config"
	apperrors "github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/logger"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

const (
	lockKeyPrefix = "mnemora:summary:lock:"
	minUnitTokens = 64
)

type summaryService struct {
	repo            interfaces.SummaryRepository
	interactionRepo interfaces.InteractionRepository
	calendarRepo    interfaces.CalendarRepository
	textGen         interfaces.TextGenerator
	embedder        interfaces.Embedder
	locker          interfaces.PeriodLocker
	cfg             *config.SummarizerConfig
	codec           tokenizer.Codec
}

// NewSummaryService creates the summarization service.
func NewSummaryService(
	repo interfaces.SummaryRepository,
	interactionRepo interfaces.InteractionRepository,
	calendarRepo interfaces.CalendarRepository,
	textGen interfaces.TextGenerator,
	embedder interfaces.Embedder,
	locker interfaces.PeriodLocker,
	cfg *config.SummarizerConfig,
) (interfaces.SummaryService, error) {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer: %w", err)
	}
	return &summaryService{
		repo:            repo,
		interactionRepo: interactionRepo,
		calendarRepo:    calendarRepo,
		textGen:         textGen,
		embedder:        embedder,
		locker:          locker,
		cfg:             cfg,
		codec:           codec,
	}, nil
}

type sourceRef struct {
	kind types.SummarySourceKind
	id   string
}

// Generate produces the summary for one period. A completed period is a
// no-op returning the existing record; force rebuilds content, embedding,
// and the source set in place. Without force, an ineligible period fails
// with Conflict.
func (s *summaryService) Generate(ctx context.Context, tier types.SummaryTier, periodKey string,
	asOf time.Time, force bool,
) (*types.Summary, error) {
	log := logger.GetLogger(ctx)
	period, err := types.ParsePeriodKey(tier, periodKey)
	if err != nil {
		return nil, apperrors.NewInvalidArgument("%v", err)
	}

	// 1. Fast path: a completed period needs no work unless forced.
	existing, err := s.repo.GetByPeriod(ctx, tier, period.Key)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	if existing != nil && !force {
		return existing, nil
	}

	// 2. One generation attempt per period across processes. The unique
	// index on (tier, period_key) remains the final arbiter.
	lockKey := lockKeyPrefix + string(tier) + ":" + period.Key
	acquired, err := s.locker.Acquire(ctx, lockKey, s.cfg.LockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		return nil, apperrors.NewConflict("generation for %s period %s is already in progress", tier, period.Key)
	}
	defer func() {
		if err := s.locker.Release(ctx, lockKey); err != nil {
			log.Warnf("[Summary] Failed to release lock %s, TTL will expire it: %v", lockKey, err)
		}
	}()

	// Re-read under the lock; another process may have completed the period.
	existing, err = s.repo.GetByPeriod(ctx, tier, period.Key)
	if err != nil && !apperrors.IsNotFound(err) {
		return nil, err
	}
	if existing != nil && !force {
		return existing, nil
	}

	// 3. Eligibility. Force skips the check but still needs source material.
	if !force {
		eligible, reason, err := s.checkEligibility(ctx, period, asOf, existing != nil)
		if err != nil {
			return nil, err
		}
		if !eligible {
			return nil, apperrors.NewConflict("%s period %s is not eligible: %s", tier, period.Key, reason)
		}
	}

	// 4. Collect the source units for the period.
	units, refs, err := s.collectUnits(ctx, period)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, apperrors.NewConflict("%s period %s has no source material", tier, period.Key)
	}

	// 5. Call the collaborators. A failure here leaves the period missing;
	// the next pass retries it.
	draft, err := s.textGen.Summarize(ctx, &types.SummarizeRequest{
		Tier:        tier,
		PeriodKey:   period.Key,
		System:      prompts.System,
		Instruction: renderInstruction(tier, period.Key, s.clipUnits(units)),
	})
	if err != nil {
		return nil, apperrors.WrapCollaborator(err, "summary generation failed for %s period %s", tier, period.Key)
	}
	embedding, err := s.embedder.Embed(ctx, draft.Content)
	if err != nil {
		return nil, apperrors.WrapCollaborator(err, "summary embedding failed for %s period %s", tier, period.Key)
	}

	vec := pgvector.NewVector(embedding)
	now := time.Now().UTC()
	summary := &types.Summary{
		ID:          uuid.New().String(),
		Tier:        tier,
		PeriodKey:   period.Key,
		Content:     draft.Content,
		KeyTopics:   types.StringList(draft.KeyTopics),
		Embedding:   &vec,
		SourceCount: len(refs),
		Status:      types.SummaryStatusCompleted,
		GeneratedAt: now,
		CreatedAt:   now,
	}

	// 6. Persist. Forced regeneration reuses the row; the source set is
	// rebuilt from scratch, never merged with the old one.
	if existing != nil {
		summary.ID = existing.ID
		summary.CreatedAt = existing.CreatedAt
		if err := s.repo.Replace(ctx, summary, buildSourceLinks(summary.ID, refs)); err != nil {
			return nil, err
		}
		log.Infof("[Summary] Rebuilt %s summary for period %s from %d sources", tier, period.Key, len(refs))
		return summary, nil
	}
	if err := s.repo.Create(ctx, summary, buildSourceLinks(summary.ID, refs)); err != nil {
		if apperrors.IsConflict(err) {
			// Lost the race to another process; its record is authoritative.
			return s.repo.GetByPeriod(ctx, tier, period.Key)
		}
		return nil, err
	}
	log.Infof("[Summary] Generated %s summary for period %s from %d sources", tier, period.Key, len(refs))
	return summary, nil
}

// ListPending returns every eligible-but-ungenerated period of the tier,
// oldest first.
func (s *summaryService) ListPending(ctx context.Context, tier types.SummaryTier, asOf time.Time,
	limit int,
) ([]types.Period, error) {
	var (
		periods []types.Period
		err     error
	)
	switch tier {
	case types.SummaryTierDaily:
		periods, err = s.pendingDaily(ctx, asOf)
	case types.SummaryTierWeekly:
		periods, err = s.pendingWeekly(ctx)
	case types.SummaryTierMonthly:
		periods, err = s.pendingMonthly(ctx)
	case types.SummaryTierAnnual:
		periods, err = s.pendingAnnual(ctx)
	default:
		return nil, apperrors.NewInvalidArgument("invalid summary tier %q", tier)
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(periods, func(i, j int) bool { return periods[i].StartDate.Before(periods[j].StartDate) })
	if limit > 0 && len(periods) > limit {
		periods = periods[:limit]
	}
	return periods, nil
}

// RunPass generates every pending period of a tier. Periods are attempted
// independently under a shared worker pool; one failure never blocks the
// rest of the pass.
func (s *summaryService) RunPass(ctx context.Context, tier types.SummaryTier, asOf time.Time) (*types.PassStats, error) {
	log := logger.GetLogger(ctx)
	pending, err := s.ListPending(ctx, tier, asOf, s.cfg.PassLimit)
	if err != nil {
		return nil, err
	}

	stats := &types.PassStats{Tier: tier, Pending: len(pending)}
	if len(pending) == 0 {
		return stats, nil
	}

	pool, err := ants.NewPool(s.cfg.PassConcurrency)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to create summarization pool")
	}
	defer pool.Release()

	var (
		wg                         sync.WaitGroup
		generated, skipped, failed atomic.Int64
	)
	for _, period := range pending {
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			genCtx, cancel := context.WithTimeout(ctx, s.cfg.GenerateTimeout)
			defer cancel()
			if _, err := s.Generate(genCtx, tier, period.Key, asOf, false); err != nil {
				if apperrors.IsConflict(err) {
					skipped.Add(1)
					return
				}
				failed.Add(1)
				log.Warnf("[Summary] Generation failed for %s period %s: %v", tier, period.Key, err)
				return
			}
			generated.Add(1)
		})
		if submitErr != nil {
			wg.Done()
			failed.Add(1)
			log.Warnf("[Summary] Failed to schedule %s period %s: %v", tier, period.Key, submitErr)
		}
	}
	wg.Wait()

	stats.Generated = int(generated.Load())
	stats.Skipped = int(skipped.Load())
	stats.Failed = int(failed.Load())
	log.Infof("[Summary] %s pass complete: %d pending, %d generated, %d skipped, %d failed",
		tier, stats.Pending, stats.Generated, stats.Skipped, stats.Failed)
	return stats, nil
}

func (s *summaryService) GetByPeriod(ctx context.Context, tier types.SummaryTier, periodKey string) (*types.Summary, error) {
	period, err := types.ParsePeriodKey(tier, periodKey)
	if err != nil {
		return nil, apperrors.NewInvalidArgument("%v", err)
	}
	return s.repo.GetByPeriod(ctx, tier, period.Key)
}

// checkEligibility dispatches to the tier predicate. NotFound from the
// calendar index propagates: a period outside the horizon cannot be judged.
func (s *summaryService) checkEligibility(ctx context.Context, period types.Period, asOf time.Time,
	hasSummary bool,
) (bool, string, error) {
	switch period.Tier {
	case types.SummaryTierDaily:
		day, err := s.calendarRepo.GetDay(ctx, period.StartDate)
		if err != nil {
			return false, "", err
		}
		count, err := s.interactionRepo.CountByDay(ctx, day.Date)
		if err != nil {
			return false, "", err
		}
		if !dailyEligible(day.Date, asOf, count, hasSummary) {
			if count == 0 {
				return false, "day has no interactions", nil
			}
			return false, "day is not yet closed", nil
		}
		return true, "", nil

	case types.SummaryTierWeekly:
		if _, err := s.calendarRepo.GetWeek(ctx, period.Key); err != nil {
			return false, "", err
		}
		completed, _, err := s.completedDailiesOfWeek(ctx, period.Key)
		if err != nil {
			return false, "", err
		}
		if !weeklyEligible(len(completed), s.cfg.WeeklyMinDaily, hasSummary) {
			return false, fmt.Sprintf("only %d of the required %d daily summaries are completed",
				len(completed), s.cfg.WeeklyMinDaily), nil
		}
		return true, "", nil

	case types.SummaryTierMonthly:
		if _, err := s.calendarRepo.GetMonth(ctx, period.Key); err != nil {
			return false, "", err
		}
		weekIDs, err := s.calendarRepo.ListWeekIDsByMonth(ctx, period.Key)
		if err != nil {
			return false, "", err
		}
		completed, err := s.repo.ListByPeriodKeys(ctx, types.SummaryTierWeekly, weekIDs)
		if err != nil {
			return false, "", err
		}
		if !fractionEligible(len(completed), len(weekIDs), s.cfg.MonthlyMinFraction, hasSummary) {
			return false, fmt.Sprintf("only %d of %d weekly summaries are completed",
				len(completed), len(weekIDs)), nil
		}
		return true, "", nil

	case types.SummaryTierAnnual:
		monthIDs, err := s.calendarRepo.ListMonthIDsByYear(ctx, period.StartDate.Year())
		if err != nil {
			return false, "", err
		}
		if len(monthIDs) == 0 {
			return false, "", apperrors.NewNotFound("calendar year %d is not materialized", period.StartDate.Year())
		}
		completed, err := s.repo.ListByPeriodKeys(ctx, types.SummaryTierMonthly, monthIDs)
		if err != nil {
			return false, "", err
		}
		if !fractionEligible(len(completed), len(monthIDs), s.cfg.AnnualMinFraction, hasSummary) {
			return false, fmt.Sprintf("only %d of %d monthly summaries are completed",
				len(completed), len(monthIDs)), nil
		}
		return true, "", nil
	}
	return false, "", apperrors.NewInvalidArgument("invalid summary tier %q", period.Tier)
}

// collectUnits gathers the ordered source texts and provenance refs of one
// period: interactions for dailies, child summaries for everything above.
func (s *summaryService) collectUnits(ctx context.Context, period types.Period) ([]string, []sourceRef, error) {
	switch period.Tier {
	case types.SummaryTierDaily:
		interactions, err := s.interactionRepo.ListByDay(ctx, period.StartDate)
		if err != nil {
			return nil, nil, err
		}
		units := make([]string, 0, len(interactions))
		refs := make([]sourceRef, 0, len(interactions))
		for _, it := range interactions {
			units = append(units, interactionUnit(it))
			refs = append(refs, sourceRef{kind: types.SourceKindInteraction, id: it.ID})
		}
		return units, refs, nil

	case types.SummaryTierWeekly:
		days, err := s.calendarRepo.ListDaysByWeek(ctx, period.Key)
		if err != nil {
			return nil, nil, err
		}
		dayKeys := make([]string, 0, len(days))
		for _, day := range days {
			dayKeys = append(dayKeys, types.FormatDate(day.Date))
		}
		return s.summaryUnits(ctx, types.SummaryTierDaily, dayKeys)

	case types.SummaryTierMonthly:
		weekIDs, err := s.calendarRepo.ListWeekIDsByMonth(ctx, period.Key)
		if err != nil {
			return nil, nil, err
		}
		return s.summaryUnits(ctx, types.SummaryTierWeekly, weekIDs)

	case types.SummaryTierAnnual:
		monthIDs, err := s.calendarRepo.ListMonthIDsByYear(ctx, period.StartDate.Year())
		if err != nil {
			return nil, nil, err
		}
		return s.summaryUnits(ctx, types.SummaryTierMonthly, monthIDs)
	}
	return nil, nil, apperrors.NewInvalidArgument("invalid summary tier %q", period.Tier)
}

func (s *summaryService) summaryUnits(ctx context.Context, childTier types.SummaryTier,
	keys []string,
) ([]string, []sourceRef, error) {
	children, err := s.repo.ListByPeriodKeys(ctx, childTier, keys)
	if err != nil {
		return nil, nil, err
	}
	units := make([]string, 0, len(children))
	refs := make([]sourceRef, 0, len(children))
	for _, child := range children {
		units = append(units, fmt.Sprintf("%s: %s", child.PeriodKey, child.Content))
		refs = append(refs, sourceRef{kind: types.SourceKindSummary, id: child.ID})
	}
	return units, refs, nil
}

func (s *summaryService) pendingDaily(ctx context.Context, asOf time.Time) ([]types.Period, error) {
	latestClosed := types.TruncateToDay(asOf).AddDate(0, 0, -1)
	dates, err := s.interactionRepo.ListDatesWithInteractions(ctx, time.Time{}, latestClosed)
	if err != nil {
		return nil, err
	}
	done, err := s.periodKeySet(ctx, types.SummaryTierDaily)
	if err != nil {
		return nil, err
	}

	var periods []types.Period
	for _, date := range dates {
		if done[types.FormatDate(date)] {
			continue
		}
		periods = append(periods, types.PeriodFor(types.SummaryTierDaily, date))
	}
	return periods, nil
}

func (s *summaryService) pendingWeekly(ctx context.Context) ([]types.Period, error) {
	dailyKeys, err := s.repo.ListPeriodKeys(ctx, types.SummaryTierDaily)
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for _, key := range dailyKeys {
		date, err := types.ParseDate(key)
		if err != nil {
			continue
		}
		counts[types.WeekKeyFor(date)]++
	}
	done, err := s.periodKeySet(ctx, types.SummaryTierWeekly)
	if err != nil {
		return nil, err
	}

	var periods []types.Period
	for weekKey, completed := range counts {
		if !weeklyEligible(completed, s.cfg.WeeklyMinDaily, done[weekKey]) {
			continue
		}
		period, err := types.ParsePeriodKey(types.SummaryTierWeekly, weekKey)
		if err != nil {
			continue
		}
		periods = append(periods, period)
	}
	return periods, nil
}

func (s *summaryService) pendingMonthly(ctx context.Context) ([]types.Period, error) {
	weeklyKeys, err := s.repo.ListPeriodKeys(ctx, types.SummaryTierWeekly)
	if err != nil {
		return nil, err
	}
	if len(weeklyKeys) == 0 {
		return nil, nil
	}
	weeklySet := make(map[string]bool, len(weeklyKeys))
	for _, key := range weeklyKeys {
		weeklySet[key] = true
	}

	// Candidate months are exactly those touched by a completed weekly.
	monthIDs, err := s.calendarRepo.ListMonthIDsByWeeks(ctx, weeklyKeys)
	if err != nil {
		return nil, err
	}
	done, err := s.periodKeySet(ctx, types.SummaryTierMonthly)
	if err != nil {
		return nil, err
	}

	var periods []types.Period
	for _, monthID := range monthIDs {
		weekIDs, err := s.calendarRepo.ListWeekIDsByMonth(ctx, monthID)
		if err != nil {
			return nil, err
		}
		completed := 0
		for _, weekID := range weekIDs {
			if weeklySet[weekID] {
				completed++
			}
		}
		if !fractionEligible(completed, len(weekIDs), s.cfg.MonthlyMinFraction, done[monthID]) {
			continue
		}
		period, err := types.ParsePeriodKey(types.SummaryTierMonthly, monthID)
		if err != nil {
			continue
		}
		periods = append(periods, period)
	}
	return periods, nil
}

func (s *summaryService) pendingAnnual(ctx context.Context) ([]types.Period, error) {
	monthlyKeys, err := s.repo.ListPeriodKeys(ctx, types.SummaryTierMonthly)
	if err != nil {
		return nil, err
	}
	if len(monthlyKeys) == 0 {
		return nil, nil
	}
	monthlySet := make(map[string]bool, len(monthlyKeys))
	years := make(map[int]bool)
	for _, key := range monthlyKeys {
		monthlySet[key] = true
		var year, month int
		if _, err := fmt.Sscanf(key, "%d-%d", &year, &month); err == nil {
			years[year] = true
		}
	}
	done, err := s.periodKeySet(ctx, types.SummaryTierAnnual)
	if err != nil {
		return nil, err
	}

	var periods []types.Period
	for year := range years {
		yearKey := fmt.Sprintf("%d", year)
		monthIDs, err := s.calendarRepo.ListMonthIDsByYear(ctx, year)
		if err != nil {
			return nil, err
		}
		completed := 0
		for _, monthID := range monthIDs {
			if monthlySet[monthID] {
				completed++
			}
		}
		if !fractionEligible(completed, len(monthIDs), s.cfg.AnnualMinFraction, done[yearKey]) {
			continue
		}
		period, err := types.ParsePeriodKey(types.SummaryTierAnnual, yearKey)
		if err != nil {
			continue
		}
		periods = append(periods, period)
	}
	return periods, nil
}

func (s *summaryService) periodKeySet(ctx context.Context, tier types.SummaryTier) (map[string]bool, error) {
	keys, err := s.repo.ListPeriodKeys(ctx, tier)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(keys))
	for _, key := range keys {
		set[key] = true
	}
	return set, nil
}

func (s *summaryService) completedDailiesOfWeek(ctx context.Context, weekID string) ([]*types.Summary, []string, error) {
	days, err := s.calendarRepo.ListDaysByWeek(ctx, weekID)
	if err != nil {
		return nil, nil, err
	}
	dayKeys := make([]string, 0, len(days))
	for _, day := range days {
		dayKeys = append(dayKeys, types.FormatDate(day.Date))
	}
	completed, err := s.repo.ListByPeriodKeys(ctx, types.SummaryTierDaily, dayKeys)
	if err != nil {
		return nil, nil, err
	}
	return completed, dayKeys, nil
}

// clipUnits joins the units under the context token budget. Every unit gets
// an equal token share; oversized units are cut at the token boundary.
func (s *summaryService) clipUnits(units []string) string {
	if len(units) == 0 {
		return ""
	}
	budget := s.cfg.MaxContextTokens / len(units)
	if budget < minUnitTokens {
		budget = minUnitTokens
	}
	clipped := make([]string, len(units))
	for i, unit := range units {
		clipped[i] = s.clipText(unit, budget)
	}
	return strings.Join(clipped, "\n\n")
}

func (s *summaryService) clipText(text string, budget int) string {
	ids, _, err := s.codec.Encode(text)
	if err != nil || len(ids) <= budget {
		return text
	}
	truncated, err := s.codec.Decode(ids[:budget])
	if err != nil {
		return text
	}
	return truncated + " [truncated]"
}

func interactionUnit(it *types.Interaction) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", it.OccurredAt.UTC().Format("15:04"))
	if it.Intent != "" {
		fmt.Fprintf(&b, " (%s)", it.Intent)
	}
	fmt.Fprintf(&b, " User: %s\nAssistant: %s", it.InputText, it.OutputText)
	return b.String()
}

func buildSourceLinks(summaryID string, refs []sourceRef) []*types.SummarySource {
	links := make([]*types.SummarySource, 0, len(refs))
	for _, ref := range refs {
		links = append(links, &types.SummarySource{
			SummaryID:  summaryID,
			SourceKind: ref.kind,
			SourceID:   ref.id,
		})
	}
	return links
}
