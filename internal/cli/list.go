package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func init() {
	strongest := &cobra.Command{
		Use:   "strongest",
		Short: "List the strongest memories",
		Run:   runStrongest,
	}
	strongest.Flags().IntP("limit", "l", 10, "Max results")
	RootCmd.AddCommand(strongest)

	recent := &cobra.Command{
		Use:   "recent",
		Short: "List recently accessed memories",
		Run:   runRecent,
	}
	recent.Flags().DurationP("within", "w", 24*time.Hour, "Access window")
	recent.Flags().IntP("limit", "l", 10, "Max results")
	RootCmd.AddCommand(recent)
}

func runStrongest(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	r, err := openReverie()
	if err != nil {
		exitErr("open", err)
	}
	defer r.Close()

	entries := r.Strongest(limit)
	b, _ := json.MarshalIndent(entries, "", "  ")
	fmt.Println(string(b))
}

func runRecent(cmd *cobra.Command, args []string) {
	within, _ := cmd.Flags().GetDuration("within")
	limit, _ := cmd.Flags().GetInt("limit")

	r, err := openReverie()
	if err != nil {
		exitErr("open", err)
	}
	defer r.Close()

	entries := r.Recent(within, limit)
	b, _ := json.MarshalIndent(entries, "", "  ")
	fmt.Println(string(b))
}
