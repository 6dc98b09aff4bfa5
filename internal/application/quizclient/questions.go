package quizclient

import (
	"context"
	"net/url"
	"strconv"
	"sync"

	"master-o-quizz/internal/domain/quiz"
	"master-o-quizz/internal/infrastructure/apiclient"
)

// 題目相關的預設值與錯誤訊息。
const (
	DefaultPage  = 1
	DefaultLimit = 1

	msgCreateFailed   = "Request failed"
	msgFetchFailed    = "Failed to fetch questions"
	msgCheckFailed    = "Failed to check answer"
	msgSomethingWrong = "Something went wrong"
	msgLoginFirst     = "Please Login First"
)

// AnswerOutcome 最近一次作答結果。
type AnswerOutcome struct {
	QuestionID quiz.ID
	Correct    bool
	Message    string
}

// QuestionState 題目頁狀態。
type QuestionState struct {
	Questions   []quiz.Question
	TotalPages  int
	CurrentPage int
	Loading     bool
	LastAnswer  *AnswerOutcome
	Error       *apiclient.Error
}

// QuestionService 建立、分頁查詢與作答。
type QuestionService struct {
	api     API
	session SessionReader

	mu          sync.Mutex
	questions   []quiz.Question
	totalPages  int
	currentPage int
	inflight    int
	lastAnswer  *AnswerOutcome
	err         *apiclient.Error
}

func NewQuestionService(api API, s SessionReader) *QuestionService {
	return &QuestionService{api: api, session: s, totalPages: 1, currentPage: 1}
}

// Create 本機檢查通過後建立題目。
func (s *QuestionService) Create(ctx context.Context, in quiz.CreateQuestionInput) (quiz.Question, error) {
	if err := in.Validate(); err != nil {
		return quiz.Question{}, apiclient.Normalize(err, "")
	}
	s.begin()
	var q quiz.Question
	err := s.api.Post(ctx, PathCreateQuestion, in, &q)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.err = apiclient.Normalize(err, msgCreateFailed)
		return quiz.Question{}, s.err
	}
	return q, nil
}

// Fetch 取得指定頁；page、limit 小於 1 時使用預設值。
func (s *QuestionService) Fetch(ctx context.Context, page, limit int) (quiz.QuestionPage, error) {
	if page < 1 {
		page = DefaultPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	s.begin()
	var out quiz.QuestionPage
	err := s.api.Get(ctx, PathQuestions, q, &out)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.err = apiclient.Normalize(err, msgFetchFailed)
		return quiz.QuestionPage{}, s.err
	}
	if out.Questions == nil {
		out.Questions = []quiz.Question{}
	}
	if out.TotalPages < 1 {
		out.TotalPages = 1
	}
	if out.CurrentPage < 1 {
		out.CurrentPage = 1
	}
	s.questions = out.Questions
	s.totalPages = out.TotalPages
	s.currentPage = out.CurrentPage
	return out, nil
}

// CheckAnswer 以目前登入者送出作答；未登入時不送出請求。
func (s *QuestionService) CheckAnswer(ctx context.Context, questionID quiz.ID, selected int) (quiz.AnswerResult, error) {
	user := s.session.View().User
	if user == nil {
		return quiz.AnswerResult{}, apiclient.Validation(msgLoginFirst)
	}
	in := quiz.AnswerInput{UserID: user.ID, QuestionID: questionID, SelectedOptionIndex: selected}

	s.begin()
	var res quiz.AnswerResult
	err := s.api.Post(ctx, PathCheckAnswer, in, &res)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if err != nil {
		s.err = apiclient.Normalize(err, msgCheckFailed)
		msg := s.err.Message
		if msg == "" {
			msg = msgSomethingWrong
		}
		s.lastAnswer = &AnswerOutcome{QuestionID: questionID, Message: msg}
		return quiz.AnswerResult{}, s.err
	}
	s.lastAnswer = &AnswerOutcome{QuestionID: questionID, Correct: res.IsCorrect}
	return res, nil
}

// State 目前狀態快照。
func (s *QuestionService) State() QuestionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := QuestionState{
		Questions:   append([]quiz.Question{}, s.questions...),
		TotalPages:  s.totalPages,
		CurrentPage: s.currentPage,
		Loading:     s.inflight > 0,
		Error:       s.err,
	}
	if s.lastAnswer != nil {
		a := *s.lastAnswer
		st.LastAnswer = &a
	}
	return st
}

func (s *QuestionService) begin() {
	s.mu.Lock()
	s.inflight++
	s.err = nil
	s.mu.Unlock()
}
