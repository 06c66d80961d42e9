package internal

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/goplus/llrecipe/internal/store"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list name",
	Short: "List published packages of a library",
	Long: `List prints every published reference of name in the package store, newest
version last, with the package IDs and options of each variant.`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(nil, nil)
	if err != nil {
		return err
	}
	return listPackages(cmd.OutOrStdout(), store.New(cfg.StoreDir), args[0])
}

func listPackages(w io.Writer, st *store.Store, name string) error {
	refs, err := st.Refs(name)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return fmt.Errorf("no published packages of %q", name)
	}
	for _, r := range refs {
		fmt.Fprintln(w, r)
		ids, err := st.IDs(r)
		if err != nil {
			return err
		}
		for _, id := range ids {
			info, err := st.Info(r, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  %s %s\n", id, formatOptions(info.Options))
		}
	}
	return nil
}

func formatOptions(opts map[string]string) string {
	parts := make([]string, 0, len(opts))
	for k, v := range opts {
		parts = append(parts, k+"="+v)
	}
	slices.Sort(parts)
	return strings.Join(parts, " ")
}
