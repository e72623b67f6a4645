package cmd

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/flowsmith/socratic/internal/enrich"
)

var askDomain string

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Run an interactive questioning session in the terminal",
	Long: `Starts a requirement-elicitation session and walks through it
interactively: socratic asks a question, you answer, and the next question
adapts to your demonstrated expertise. Enter an empty answer to stop.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		eng, _, database, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		if !eng.Enabled() {
			return errors.New("questioning is disabled in the configuration")
		}

		ctx := cmd.Context()
		sess, err := eng.StartSession(ctx, askDomain)
		if err != nil {
			return err
		}
		defer eng.EndSession(ctx, sess.ID)

		q, err := eng.NextQuestion(ctx, sess.ID)
		if err != nil {
			return err
		}

		for q != nil {
			printQuestion(q)

			prompt := promptui.Prompt{Label: "Your answer"}
			answer, err := prompt.Run()
			if err != nil || answer == "" {
				break
			}

			res, err := eng.SubmitAnswer(ctx, sess.ID, answer)
			if err != nil {
				return err
			}
			if res.Expertise != nil && verbose {
				fmt.Printf("  [expertise: %s, confidence %.1f, level %d]\n",
					res.Expertise.Tier, res.Expertise.Confidence, res.Sophistication)
			}
			q = res.Question
		}

		fmt.Println("Session complete.")
		return nil
	},
}

func printQuestion(q *enrich.EnrichedQuestion) {
	fmt.Printf("\n%s\n", q.Text)
	for _, src := range q.Sources {
		fmt.Printf("  reference: [%s] %s\n", src.Provider, src.Ref)
	}
}

func init() {
	askCmd.Flags().StringVar(&askDomain, "domain", "", "workflow domain for the session (e.g. chatbot)")
	rootCmd.AddCommand(askCmd)
}
