package main

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"todo-tracker/exchange"
)

// todo export
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the task list and trash to a JSON file",
	Long: `Write the task list and trash to a versioned JSON file named
todos-YYYYMMDD-HHMMSS.json in the export directory.`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

var (
	exportOut    string
	exportStdout bool
)

// todo import
var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace the task list with the contents of an export file",
	Long: `Replace the task list with the contents of an export file.

Both export files and bare JSON arrays of tasks are accepted. Export files
also replace the trash. Use "-" to read from standard input.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var importYes bool

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "directory to write the file to (default from config)")
	exportCmd.Flags().BoolVar(&exportStdout, "stdout", false, "write to standard output instead of a file")
	importCmd.Flags().BoolVarP(&importYes, "yes", "y", false, "replace a non-empty list without asking")

	rootCmd.AddCommand(exportCmd, importCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	payload := s.svc.Export()
	if exportStdout {
		return exchange.Encode(cmd.OutOrStdout(), payload)
	}

	dir := s.cfg.Export.Dir
	if cmd.Flags().Changed("out") {
		dir = exportOut
	}
	path, err := exchange.WriteFile(dir, payload, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %s and %s to %s\n",
		plural(len(payload.Todos), "task"), plural(len(payload.Trash), "trashed task"), path)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	res, err := readImport(cmd, args[0])
	if err != nil {
		return err
	}
	if res.Kind != exchange.Recognized {
		return errors.New("unrecognized import file: expected an export file or an array of tasks")
	}

	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if current := len(s.svc.Tasks()); current > 0 && !importYes {
		return fmt.Errorf("import replaces %s; pass --yes to confirm", plural(current, "task"))
	}

	s.svc.Import(res)

	out := cmd.OutOrStdout()
	if res.Empty() {
		fmt.Fprintln(out, "Warning: the import file contained no tasks; the list is now empty")
	}
	if res.Skipped > 0 {
		fmt.Fprintf(out, "Skipped %d entries without an id or title\n", res.Skipped)
	}
	msg := fmt.Sprintf("Imported %s", plural(len(res.Todos), "task"))
	if res.Shape == exchange.ShapePayload {
		msg += fmt.Sprintf(" and %s", plural(len(res.Trash), "trashed task"))
	}
	fmt.Fprintln(out, msg)
	return nil
}

func readImport(cmd *cobra.Command, path string) (exchange.Result, error) {
	if path != "-" {
		return exchange.ReadFile(path)
	}
	data, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return exchange.Result{}, fmt.Errorf("read stdin: %w", err)
	}
	return exchange.Parse(data)
}
