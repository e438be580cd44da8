package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"jobscout-engine/internal/domain"
)

var (
	scorePosting string
	scoreProfile domain.Profile
	noLearning   bool

	outcomeValue string
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score one stored posting against a candidate profile",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		m, err := a.engine.ScoreByID(cmd.Context(), scorePosting, scoreProfile, a.cfg.Scoring.UseLearning && !noLearning)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	},
}

var outcomeCmd = &cobra.Command{
	Use:   "outcome",
	Short: "Record what a candidate did with a scored posting",
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.engine.ReportOutcome(cmd.Context(), scorePosting, scoreProfile.CandidateID, domain.Outcome(outcomeValue)); err != nil {
			return err
		}
		fmt.Printf("%s/%s: %s\n", scorePosting, scoreProfile.CandidateID, outcomeValue)
		return nil
	},
}

func init() {
	f := scoreCmd.Flags()
	f.StringVar(&scorePosting, "posting", "", "posting id")
	f.StringVar(&scoreProfile.CandidateID, "candidate", "", "candidate id")
	f.StringVar(&scoreProfile.Education, "education", "", "candidate education (10th, 12th, Graduate, PostGraduate or free text)")
	f.IntVar(&scoreProfile.Age, "age", 0, "candidate age")
	f.StringVar(&scoreProfile.Region, "region", "", "candidate state or region")
	f.StringSliceVar(&scoreProfile.PreferredCategories, "prefer", nil, "preferred categories")
	f.StringSliceVar(&scoreProfile.Keywords, "keyword", nil, "title keywords of interest")
	f.BoolVar(&noLearning, "no-learning", false, "skip the learned-pattern adjustment even when scoring.use_learning is on")
	_ = scoreCmd.MarkFlagRequired("posting")
	_ = scoreCmd.MarkFlagRequired("candidate")

	o := outcomeCmd.Flags()
	o.StringVar(&scorePosting, "posting", "", "posting id")
	o.StringVar(&scoreProfile.CandidateID, "candidate", "", "candidate id")
	o.StringVar(&outcomeValue, "outcome", "", "applied, ignored or saved")
	_ = outcomeCmd.MarkFlagRequired("posting")
	_ = outcomeCmd.MarkFlagRequired("candidate")
	_ = outcomeCmd.MarkFlagRequired("outcome")

	rootCmd.AddCommand(scoreCmd, outcomeCmd)
}
