package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tgienger/taskflow/internal/legacy"
	"github.com/tgienger/taskflow/internal/store"
)

var importCmd = &cobra.Command{
	Use:   "import [project] [file]",
	Short: "Import a legacy task export into a local project",
	Long: `Import tasks from a YAML or JSON export into a project of the local mirror.

Unknown statuses are placed in Backlog. Tasks whose id already exists are overwritten;
with --replace the project's tasks are replaced entirely. Use "-" to read stdin.`,
	Args: cobra.ExactArgs(2),
	RunE: runImport,
}

func init() {
	importCmd.Flags().Bool("replace", false, "Replace the project's tasks instead of merging")
	importCmd.Flags().Bool("dry-run", false, "Report what would be imported without writing")
}

func readInput(name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(name)
}

func runImport(cmd *cobra.Command, args []string) error {
	replace, _ := cmd.Flags().GetBool("replace")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	data, err := readInput(args[1])
	if err != nil {
		return err
	}
	records, err := legacy.Parse(data)
	if err != nil {
		return err
	}

	s, err := openCommandSession()
	if err != nil {
		return err
	}
	defer s.Close()
	if s.local == nil {
		return errors.New("import writes to the local mirror; run it with --mode local")
	}

	ctx := cmd.Context()
	pid, err := s.project(ctx, args[0])
	if err != nil {
		return err
	}
	res := legacy.Convert(records, pid, time.Now())
	for _, line := range res.Skipped {
		fmt.Fprintln(os.Stderr, "warning:", line)
	}

	tasks := res.Tasks
	if !replace {
		existing, err := store.ListAll(ctx, s.local, pid)
		if err != nil {
			return err
		}
		tasks = legacy.Merge(existing, res.Tasks)
	}

	if dryRun {
		fmt.Printf("Would import %d task(s); the project would hold %d\n", len(res.Tasks), len(tasks))
		return nil
	}
	if err := s.local.Replace(ctx, pid, tasks); err != nil {
		return err
	}
	fmt.Printf("Imported %d task(s); the project now holds %d\n", len(res.Tasks), len(tasks))
	return nil
}
