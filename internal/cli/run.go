package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func init() {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the cognitive cycle loop",
		Long:  "Run the cycle loop until interrupted. Lines on stdin become intrusive thoughts.",
		Run:   runRun,
	}

	cmd.Flags().Int("intensity", 5, "Intensity for stdin thoughts, 1-10")

	RootCmd.AddCommand(cmd)
}

func runRun(cmd *cobra.Command, args []string) {
	intensity, _ := cmd.Flags().GetInt("intensity")

	r, err := openReverie()
	if err != nil {
		exitErr("open", err)
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.Run(ctx)
	})

	g.Go(func() error {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if line := scanner.Text(); line != "" {
				r.AddThought(line, intensity, 3)
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
		}
		return scanner.Err()
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		exitErr("run", err)
	}
	fmt.Println("stopped")
}
