package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/msalhab/tarajim/internal/cli"
	"github.com/msalhab/tarajim/internal/store"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Inspect extracted author records",
}

var recordsListCmd = &cobra.Command{
	Use:   "list [book-id]",
	Short: "List books, or the records of one book",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}

		if len(args) == 0 {
			books, err := store.ListBooks(h.BooksPath())
			if err != nil {
				return err
			}
			return cli.Output(map[string]any{"books": books})
		}

		st, err := store.New(h, args[0])
		if err != nil {
			return err
		}
		idx, err := st.LoadIndex()
		if err != nil {
			return err
		}
		return cli.Output(idx)
	},
}

var recordsShowCmd = &cobra.Command{
	Use:   "show <book-id> <author-index>",
	Short: "Show one author record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		authorIndex, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("author index must be a number: %q", args[1])
		}

		h, err := getHome()
		if err != nil {
			return err
		}
		st, err := store.New(h, args[0])
		if err != nil {
			return err
		}
		idx, err := st.LoadIndex()
		if err != nil {
			return err
		}

		for _, e := range idx.Entries {
			if e.AuthorIndex == authorIndex {
				rec, err := st.ReadRecord(e.File)
				if err != nil {
					return err
				}
				return cli.Output(rec)
			}
		}
		return fmt.Errorf("no record for entry %d in book %q", authorIndex, args[0])
	},
}

var recordsSearchCmd = &cobra.Command{
	Use:   "search <book-id> <query>",
	Short: "Search records by author name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		st, err := store.New(h, args[0])
		if err != nil {
			return err
		}
		idx, err := st.LoadIndex()
		if err != nil {
			return err
		}

		hits := idx.Search(args[1])
		return cli.Output(map[string]any{
			"query":   args[1],
			"count":   len(hits),
			"entries": hits,
		})
	},
}

var recordsExportCmd = &cobra.Command{
	Use:   "export <book-id>",
	Short: "Export all of a book's records as one JSON array",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		st, err := store.New(h, args[0])
		if err != nil {
			return err
		}
		data, err := st.ExportAll()
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

func init() {
	recordsCmd.AddCommand(recordsListCmd)
	recordsCmd.AddCommand(recordsShowCmd)
	recordsCmd.AddCommand(recordsSearchCmd)
	recordsCmd.AddCommand(recordsExportCmd)
}
