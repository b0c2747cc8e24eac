package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "rm [id]",
		Short: "Delete a memory by id",
		Args:  cobra.ExactArgs(1),
		Run:   runRm,
	}

	RootCmd.AddCommand(cmd)
}

func runRm(cmd *cobra.Command, args []string) {
	r, err := openReverie()
	if err != nil {
		exitErr("open", err)
	}
	defer r.Close()

	if !r.Forget(args[0]) {
		exitErr("rm", fmt.Errorf("no memory with id %s", args[0]))
	}
	fmt.Println("deleted", args[0])
}
