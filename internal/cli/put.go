package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reverie-ai/reverie/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "put [content]",
		Short: "Store a memory",
		Long:  "Store a memory. Content can be a positional arg or piped via stdin.",
		Run:   runPut,
	}

	cmd.Flags().String("type", "episodic", "Type: episodic, semantic, procedural, emotional, working")
	cmd.Flags().Float64P("importance", "i", 0.5, "Importance in [0,1]")
	cmd.Flags().Float64("valence", 0, "Emotional valence in [-1,1]")
	cmd.Flags().StringP("source", "s", "", "Origin of the memory")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags")

	RootCmd.AddCommand(cmd)
}

func runPut(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	importance, _ := cmd.Flags().GetFloat64("importance")
	valence, _ := cmd.Flags().GetFloat64("valence")
	source, _ := cmd.Flags().GetString("source")
	tagsStr, _ := cmd.Flags().GetString("tags")

	var content string
	if len(args) > 0 {
		content = strings.Join(args, " ")
	} else {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) == 0 {
			b, err := io.ReadAll(os.Stdin)
			if err != nil {
				exitErr("read stdin", err)
			}
			content = string(b)
		}
	}
	content = strings.TrimSpace(content)
	if content == "" {
		exitErr("put", fmt.Errorf("content is required (positional arg or stdin)"))
	}

	opts := []memory.EntryOption{
		memory.WithImportance(importance),
		memory.WithValence(valence),
	}
	if source != "" {
		opts = append(opts, memory.WithSource(source))
	}
	if tagsStr != "" {
		var tags []string
		for _, t := range strings.Split(tagsStr, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
		opts = append(opts, memory.WithTags(tags...))
	}

	r, err := openReverie()
	if err != nil {
		exitErr("open", err)
	}
	defer r.Close()

	id := r.Remember(content, memory.Type(typ), opts...)
	fmt.Println(id)
}
