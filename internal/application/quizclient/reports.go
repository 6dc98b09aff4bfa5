package quizclient

import (
	"context"
	"net/url"
	"sync"

	"master-o-quizz/internal/domain/quiz"
	"master-o-quizz/internal/infrastructure/apiclient"

	"golang.org/x/sync/errgroup"
)

const (
	msgUserPerformanceFailed = "Failed to fetch user performance"
	msgSkillGapFailed        = "Failed to fetch skill gap report"
	msgTimeReportFailed      = "Failed to fetch time-based report"
)

// ReportState 報表頁狀態。
type ReportState struct {
	UserPerformance []quiz.UserPerformance
	SkillGaps       []quiz.SkillGap
	TimeReport      []quiz.TimeReport
	FilterType      quiz.FilterType
	Loading         bool
	Error           *apiclient.Error
}

// ReportService 讀取三種管理報表。
type ReportService struct {
	api API

	mu         sync.Mutex
	perf       []quiz.UserPerformance
	gaps       []quiz.SkillGap
	timeReport []quiz.TimeReport
	filter     quiz.FilterType
	inflight   int
	err        *apiclient.Error
}

func NewReportService(api API) *ReportService {
	return &ReportService{api: api, filter: quiz.FilterMonth}
}

// SetFilterType 設定時間報表粒度，不合法的值會被拒絕。
func (s *ReportService) SetFilterType(f string) error {
	ft, err := quiz.ParseFilterType(f)
	if err != nil {
		return apiclient.Validation(err.Error())
	}
	s.mu.Lock()
	s.filter = ft
	s.mu.Unlock()
	return nil
}

// FetchUserPerformance 使用者作答表現。
func (s *ReportService) FetchUserPerformance(ctx context.Context) ([]quiz.UserPerformance, error) {
	var out []quiz.UserPerformance
	err := s.fetch(ctx, PathUserPerformance, nil, &out, msgUserPerformanceFailed, func() { s.perf = out })
	return out, err
}

// FetchSkillGap 各技能答對率。
func (s *ReportService) FetchSkillGap(ctx context.Context) ([]quiz.SkillGap, error) {
	var out []quiz.SkillGap
	err := s.fetch(ctx, PathSkillGap, nil, &out, msgSkillGapFailed, func() { s.gaps = out })
	return out, err
}

// FetchTimeReport 依目前粒度的時間報表。
func (s *ReportService) FetchTimeReport(ctx context.Context) ([]quiz.TimeReport, error) {
	s.mu.Lock()
	q := url.Values{"filterType": {string(s.filter)}}
	s.mu.Unlock()
	var out []quiz.TimeReport
	err := s.fetch(ctx, PathTimeReport, q, &out, msgTimeReportFailed, func() { s.timeReport = out })
	return out, err
}

// FetchAll 同時載入三種報表，任一失敗即回傳該錯誤。
func (s *ReportService) FetchAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := s.FetchUserPerformance(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.FetchSkillGap(ctx)
		return err
	})
	g.Go(func() error {
		_, err := s.FetchTimeReport(ctx)
		return err
	})
	return g.Wait()
}

// State 目前狀態快照。
func (s *ReportService) State() ReportState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ReportState{
		UserPerformance: append([]quiz.UserPerformance(nil), s.perf...),
		SkillGaps:       append([]quiz.SkillGap(nil), s.gaps...),
		TimeReport:      append([]quiz.TimeReport(nil), s.timeReport...),
		FilterType:      s.filter,
		Loading:         s.inflight > 0,
		Error:           s.err,
	}
}

// fetch apply 在鎖內執行，只在成功時呼叫。
func (s *ReportService) fetch(ctx context.Context, path string, q url.Values, out any, fallback string, apply func()) error {
	s.mu.Lock()
	s.inflight++
	s.err = nil
	s.mu.Unlock()

	err := s.api.Get(ctx, path, q, out)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.err = apiclient.Normalize(err, fallback)
		return s.err
	}
	apply()
	return nil
}
