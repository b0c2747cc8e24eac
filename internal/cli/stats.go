package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show memory statistics",
		Run:   runStats,
	}

	RootCmd.AddCommand(cmd)
}

func runStats(cmd *cobra.Command, args []string) {
	r, err := openReverie()
	if err != nil {
		exitErr("open", err)
	}
	defer r.Close()

	b, _ := json.MarshalIndent(r.Statistics(), "", "  ")
	fmt.Println(string(b))
}
