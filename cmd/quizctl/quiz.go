package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"master-o-quizz/internal/domain/quiz"
)

func (c *cli) table() *tabwriter.Writer {
	return tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
}

func (c *cli) skillsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "skills",
		Short: "List or create skills",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all skills",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			skills, err := c.app.Skills.FetchAll(cmd.Context())
			if err != nil {
				return err
			}
			w := c.table()
			fmt.Fprintln(w, "ID\tNAME")
			for _, s := range skills {
				fmt.Fprintf(w, "%s\t%s\n", s.ID, s.Name)
			}
			return w.Flush()
		},
	}, &cobra.Command{
		Use:   "create NAME",
		Short: "Create a skill",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			s, err := c.app.Skills.Create(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.out, "Created skill %s (%s)\n", s.Name, s.ID)
			return err
		},
	})
	return cmd
}

func (c *cli) questionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "questions",
		Short: "Browse, create and answer questions",
	}

	var page, limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List a page of questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := c.app.Questions.Fetch(cmd.Context(), page, limit)
			if err != nil {
				return err
			}
			for _, q := range out.Questions {
				fmt.Fprintf(c.out, "[%s] %s\n", q.ID, q.QuestionText)
				for i, opt := range q.Options {
					fmt.Fprintf(c.out, "  %d) %s\n", i, opt)
				}
			}
			_, err = fmt.Fprintf(c.out, "page %d/%d\n", out.CurrentPage, out.TotalPages)
			return err
		},
	}
	list.Flags().IntVar(&page, "page", 1, "Page number")
	list.Flags().IntVar(&limit, "limit", 1, "Questions per page")

	var text string
	var options, skills []string
	var correct int
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a multiple-choice question",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}
			ids := make([]quiz.ID, 0, len(skills))
			for _, s := range skills {
				ids = append(ids, quiz.ID(strings.TrimSpace(s)))
			}
			q, err := c.app.Questions.Create(cmd.Context(), quiz.CreateQuestionInput{
				SkillIDs:           ids,
				QuestionText:       text,
				Options:            options,
				CorrectOptionIndex: correct,
			})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(c.out, "Created question %s\n", q.ID)
			return err
		},
	}
	create.Flags().StringVar(&text, "text", "", "Question text")
	create.Flags().StringArrayVar(&options, "option", nil, "Answer option (repeat 2-6 times)")
	create.Flags().StringSliceVar(&skills, "skill", nil, "Skill ID (repeatable)")
	create.Flags().IntVar(&correct, "correct", 0, "Index of the correct option")

	answer := &cobra.Command{
		Use:   "answer QUESTION_ID OPTION_INDEX",
		Short: "Answer a question as the current user",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid option index %q", args[1])
			}
			res, err := c.app.Questions.CheckAnswer(cmd.Context(), quiz.ID(args[0]), idx)
			if err != nil {
				return err
			}
			verdict := "Wrong answer"
			if res.IsCorrect {
				verdict = "Correct!"
			}
			_, err = fmt.Fprintln(c.out, verdict)
			return err
		},
	}

	cmd.AddCommand(list, create, answer)
	return cmd
}
