package quiz

import (
	"errors"
	"testing"
	"time"
)

func TestCreateQuestionInput_Validate(t *testing.T) {
	valid := CreateQuestionInput{
		SkillIDs:           []ID{"s-1"},
		QuestionText:       "2 + 2 = ?",
		Options:            []string{"3", "4"},
		CorrectOptionIndex: 1,
	}
	tests := []struct {
		name    string
		mutate  func(in *CreateQuestionInput)
		wantMsg string
	}{
		{"Valid", func(in *CreateQuestionInput) {}, ""},
		{"NoSkill", func(in *CreateQuestionInput) { in.SkillIDs = nil }, "Please add at least one skill and enter a question"},
		{"BlankText", func(in *CreateQuestionInput) { in.QuestionText = "  " }, "Please add at least one skill and enter a question"},
		{"OneOption", func(in *CreateQuestionInput) { in.Options = []string{"4"}; in.CorrectOptionIndex = 0 }, "At least 2 options required"},
		{"SevenOptions", func(in *CreateQuestionInput) { in.Options = []string{"1", "2", "3", "4", "5", "6", "7"} }, "Maximum 6 options allowed"},
		{"EmptyOption", func(in *CreateQuestionInput) { in.Options = []string{"3", ""} }, "All options must have text"},
		{"IndexOutOfRange", func(in *CreateQuestionInput) { in.CorrectOptionIndex = 2 }, "Select a valid correct answer"},
		{"NegativeIndex", func(in *CreateQuestionInput) { in.CorrectOptionIndex = -1 }, "Select a valid correct answer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			in.Options = append([]string(nil), valid.Options...)
			tt.mutate(&in)
			err := in.Validate()
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Message != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, ve.Message)
			}
		})
	}
}

func TestParseFilterType(t *testing.T) {
	if f, err := ParseFilterType(""); err != nil || f != FilterMonth {
		t.Errorf("expected default month, got %s %v", f, err)
	}
	if f, err := ParseFilterType("week"); err != nil || f != FilterWeek {
		t.Errorf("expected week, got %s %v", f, err)
	}
	if _, err := ParseFilterType("year"); err == nil {
		t.Error("expected error for year")
	}
}

func TestFilterType_Period(t *testing.T) {
	ts := time.Date(2025, 2, 12, 10, 0, 0, 0, time.UTC)
	if got := FilterMonth.Period(ts); got != "2025-02" {
		t.Errorf("month period = %s", got)
	}
	if got := FilterWeek.Period(ts); got != "2025-W07" {
		t.Errorf("week period = %s", got)
	}
}

func TestQuestion_CheckAndSkill(t *testing.T) {
	q := Question{CorrectOptionIndex: 2, SkillIDs: []ID{"a", "b"}}
	if !q.Check(2) || q.Check(1) {
		t.Error("Check mismatch")
	}
	if !q.HasSkill("b") || q.HasSkill("c") {
		t.Error("HasSkill mismatch")
	}
}
