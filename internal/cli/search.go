package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/reverie-ai/reverie/memory"
)

func init() {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search memories by content",
		Long:  "Search memory content with optional type, tag and strength filters.",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearch,
	}

	cmd.Flags().String("type", "", "Filter by type")
	cmd.Flags().StringP("tags", "t", "", "Comma-separated tags, all required")
	cmd.Flags().StringP("source", "s", "", "Filter by source")
	cmd.Flags().Float64("min-strength", 0, "Minimum current strength")
	cmd.Flags().IntP("limit", "l", 20, "Max results")

	RootCmd.AddCommand(cmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	typ, _ := cmd.Flags().GetString("type")
	tagsStr, _ := cmd.Flags().GetString("tags")
	source, _ := cmd.Flags().GetString("source")
	minStrength, _ := cmd.Flags().GetFloat64("min-strength")
	limit, _ := cmd.Flags().GetInt("limit")

	var tags []string
	if tagsStr != "" {
		for _, t := range strings.Split(tagsStr, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}

	r, err := openReverie()
	if err != nil {
		exitErr("open", err)
	}
	defer r.Close()

	results := r.Search(memory.Query{
		Text:        strings.Join(args, " "),
		Type:        memory.Type(typ),
		Tags:        tags,
		Source:      source,
		MinStrength: minStrength,
		Limit:       limit,
	})
	if len(results) == 0 {
		fmt.Println("[]")
		return
	}

	b, _ := json.MarshalIndent(results, "", "  ")
	fmt.Println(string(b))
}
