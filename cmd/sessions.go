package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent scrape sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sessions, err := st.GetSessions(ctx, sessionsLimit)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			fmt.Println("no sessions recorded")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tSTARTED\tFINISHED\tNICHES\tSCRAPED\tNEW\tDUPES\tERRORS")
		for _, s := range sessions {
			finished := "-"
			if s.FinishedAt != nil {
				finished = s.FinishedAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%d\t%d\t%d\n",
				s.ID,
				s.StartedAt.Format("2006-01-02 15:04"),
				finished,
				strings.Join(s.NichesSearched, ","),
				s.TotalScraped, s.NewLeads, s.Duplicates, s.Errors,
			)
		}
		return w.Flush()
	},
}

func init() {
	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "number of sessions to show")
	rootCmd.AddCommand(sessionsCmd)
}
