package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Retrieve a memory by id",
		Long:  "Retrieve a memory by id. Counts as an access and refreshes its strength.",
		Args:  cobra.ExactArgs(1),
		Run:   runGet,
	}

	RootCmd.AddCommand(cmd)
}

func runGet(cmd *cobra.Command, args []string) {
	r, err := openReverie()
	if err != nil {
		exitErr("open", err)
	}
	defer r.Close()

	entry := r.Recall(args[0])
	if entry == nil {
		exitErr("get", fmt.Errorf("no memory with id %s", args[0]))
	}

	b, _ := json.MarshalIndent(entry, "", "  ")
	fmt.Println(string(b))
}
