package quizclient

import (
	"context"
	"sync"

	"master-o-quizz/internal/domain/quiz"
	"master-o-quizz/internal/infrastructure/apiclient"
)

// SkillState 技能頁狀態；Skills 為 nil 代表尚未載入。
type SkillState struct {
	Skills  []quiz.Skill
	Loading bool
	Error   *apiclient.Error
}

// SkillService 建立與列出技能。
type SkillService struct {
	api API

	mu       sync.Mutex
	skills   []quiz.Skill
	inflight int
	err      *apiclient.Error
}

func NewSkillService(api API) *SkillService {
	return &SkillService{api: api}
}

// Create 建立技能並加入已載入的清單。
func (s *SkillService) Create(ctx context.Context, name string) (quiz.Skill, error) {
	in := quiz.CreateSkillInput{Name: name}
	if err := in.Validate(); err != nil {
		return quiz.Skill{}, apiclient.Normalize(err, "")
	}
	s.begin()
	var skill quiz.Skill
	err := s.api.Post(ctx, PathCreateSkill, in, &skill)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.err = apiclient.Normalize(err, "")
		return quiz.Skill{}, s.err
	}
	s.skills = append(s.skills, skill)
	return skill, nil
}

// FetchAll 重新載入所有技能。
func (s *SkillService) FetchAll(ctx context.Context) ([]quiz.Skill, error) {
	s.begin()
	var skills []quiz.Skill
	err := s.api.Get(ctx, PathSkills, nil, &skills)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.err = apiclient.Normalize(err, "")
		return nil, s.err
	}
	if skills == nil {
		skills = []quiz.Skill{}
	}
	s.skills = skills
	return append([]quiz.Skill(nil), skills...), nil
}

// State 目前狀態快照。
func (s *SkillService) State() SkillState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := SkillState{Loading: s.inflight > 0, Error: s.err}
	if s.skills != nil {
		st.Skills = append([]quiz.Skill{}, s.skills...)
	}
	return st
}

func (s *SkillService) begin() {
	s.mu.Lock()
	s.inflight++
	s.err = nil
	s.mu.Unlock()
}
