package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (c *cli) reportsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reports",
		Short: "Admin reports",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// 子命令的 PersistentPreRunE 會取代 root 的，需自行呼叫。
			if err := cmd.Root().PersistentPreRunE(cmd, args); err != nil {
				return err
			}
			if err := c.requireLogin(); err != nil {
				_ = c.close()
				return err
			}
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "user-performance",
		Short: "Accuracy per user",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := c.app.Reports.FetchUserPerformance(cmd.Context())
			if err != nil {
				return err
			}
			w := c.table()
			fmt.Fprintln(w, "USER\tATTEMPTS\tQUESTIONS\tCORRECT\tSCORE\tLAST ATTEMPT")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2f\t%s\n", r.FullName, r.TotalAttempts, r.TotalQuestions, r.TotalCorrect, r.AverageScore, r.LastAttempt)
			}
			return w.Flush()
		},
	}, &cobra.Command{
		Use:   "skill-gap",
		Short: "Accuracy per skill",
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := c.app.Reports.FetchSkillGap(cmd.Context())
			if err != nil {
				return err
			}
			w := c.table()
			fmt.Fprintln(w, "SKILL\tATTEMPTS\tCORRECT\tACCURACY")
			for _, r := range rows {
				acc := "-"
				if r.Accuracy != nil {
					acc = fmt.Sprintf("%.2f", *r.Accuracy)
				}
				fmt.Fprintf(w, "%s\t%d\t%d\t%s\n", r.Name, r.TotalAttempts, r.CorrectAnswers, acc)
			}
			return w.Flush()
		},
	})

	var filter string
	timeCmd := &cobra.Command{
		Use:   "time",
		Short: "Attempts per user per week or month",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.Reports.SetFilterType(filter); err != nil {
				return err
			}
			rows, err := c.app.Reports.FetchTimeReport(cmd.Context())
			if err != nil {
				return err
			}
			w := c.table()
			fmt.Fprintln(w, "USER\tPERIOD\tATTEMPTS\tAVG SCORE")
			for _, r := range rows {
				fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\n", r.UserID, r.Period, r.Attempts, r.AvgScore)
			}
			return w.Flush()
		},
	}
	timeCmd.Flags().StringVar(&filter, "filter", "month", "Bucket size: week or month")
	cmd.AddCommand(timeCmd)
	return cmd
}
