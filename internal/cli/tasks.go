package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tgienger/taskflow/internal/models"
	"github.com/tgienger/taskflow/internal/store"
)

const dueLayout = "2006-01-02"

var tasksCmd = &cobra.Command{
	Use:     "tasks",
	Aliases: []string{"task"},
	Short:   "Manage the tasks of a project",
	Long: `Manage the tasks of a project.

Projects may be named by id, route or name.`,
}

var tasksListCmd = &cobra.Command{
	Use:   "list [project]",
	Short: "List tasks",
	Long: `List one project's tasks, or with --all the tasks of every project you own.

Filtering, sorting and paging apply across the whole listing.`,
	Args: cobra.RangeArgs(0, 1),
	RunE: runTasksList,
}

var tasksAddCmd = &cobra.Command{
	Use:   "add [project] [title]",
	Short: "Create a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runTasksAdd,
}

var tasksMoveCmd = &cobra.Command{
	Use:   "move [project] [task-id] [status]",
	Short: "Change a task's status",
	Args:  cobra.ExactArgs(3),
	RunE:  runTasksMove,
}

var tasksEditCmd = &cobra.Command{
	Use:   "edit [project] [task-id]",
	Short: "Edit task fields",
	Args:  cobra.ExactArgs(2),
	RunE:  runTasksEdit,
}

var tasksRmCmd = &cobra.Command{
	Use:   "rm [project] [task-id]",
	Short: "Delete a task",
	Args:  cobra.ExactArgs(2),
	RunE:  runTasksRm,
}

var tasksCommentCmd = &cobra.Command{
	Use:   "comment [project] [task-id] [text]",
	Short: "Comment on a task",
	Args:  cobra.ExactArgs(3),
	RunE:  runTasksComment,
}

func init() {
	tasksCmd.AddCommand(tasksListCmd)
	tasksCmd.AddCommand(tasksAddCmd)
	tasksCmd.AddCommand(tasksMoveCmd)
	tasksCmd.AddCommand(tasksEditCmd)
	tasksCmd.AddCommand(tasksRmCmd)
	tasksCmd.AddCommand(tasksCommentCmd)

	tasksListCmd.Flags().StringP("query", "q", "", "Match title or description")
	tasksListCmd.Flags().StringP("status", "s", "", "Only this status")
	tasksListCmd.Flags().StringP("priority", "p", "", "Only this priority")
	tasksListCmd.Flags().String("sort", store.DefaultSort, "Sort as field:asc|desc")
	tasksListCmd.Flags().Int("page", 1, "Page number")
	tasksListCmd.Flags().Int("limit", store.DefaultLimit, "Tasks per page")
	tasksListCmd.Flags().BoolP("all", "a", false, "List tasks across all projects")

	for _, c := range []*cobra.Command{tasksAddCmd, tasksEditCmd} {
		c.Flags().StringP("description", "d", "", "Description")
		c.Flags().StringP("priority", "p", "", "Low, Medium or High")
		c.Flags().String("due", "", "Due date (YYYY-MM-DD)")
		c.Flags().String("assignee", "", "Assignee name")
	}
	tasksAddCmd.Flags().StringP("status", "s", "", "Initial status")
	tasksEditCmd.Flags().StringP("title", "t", "", "Title")
	tasksEditCmd.Flags().String("docs", "", "Documentation")

	tasksCommentCmd.Flags().String("author", "", "Comment author (default from config)")
}

func parseDue(s string) (*time.Time, error) {
	d, err := time.ParseInLocation(dueLayout, strings.TrimSpace(s), time.Local)
	if err != nil {
		return nil, fmt.Errorf("%w: due date must be YYYY-MM-DD", store.ErrValidation)
	}
	return &d, nil
}

func assignee(name string) *models.Assignee {
	return &models.Assignee{Name: name, Initials: models.Initials(name)}
}

// printTasks renders a page of tasks. withProject adds the owning project
// as the first column.
func printTasks(out io.Writer, page *store.Page, withProject bool) error {
	header := []string{"ID", "Title", "Status", "Priority", "Due", "Assignee"}
	if withProject {
		header = append([]string{"Project"}, header...)
	}
	table := newTable(out, header...)
	for _, t := range page.Items {
		due := "-"
		if t.DueDate != nil {
			due = t.DueDate.Local().Format(dueLayout)
		}
		who := "-"
		if t.AssignedTo != nil {
			who = t.AssignedTo.Name
		}
		row := []string{t.ID, t.Title, string(t.Status), string(t.Priority), due, who}
		if withProject {
			row = append([]string{t.ProjectID}, row...)
		}
		table.Append(row)
	}
	table.Render()
	pages := 1
	if page.Limit > 0 && page.Total > page.Limit {
		pages = (page.Total + page.Limit - 1) / page.Limit
	}
	_, err := fmt.Fprintf(out, "\n%d task(s), page %d of %d\n", page.Total, page.Page, pages)
	return err
}

func runTasksList(cmd *cobra.Command, args []string) error {
	var f store.Filter
	f.Query, _ = cmd.Flags().GetString("query")
	f.Status, _ = cmd.Flags().GetString("status")
	f.Priority, _ = cmd.Flags().GetString("priority")
	f.Sort, _ = cmd.Flags().GetString("sort")
	f.Page, _ = cmd.Flags().GetInt("page")
	f.Limit, _ = cmd.Flags().GetInt("limit")
	all, _ := cmd.Flags().GetBool("all")
	if all == (len(args) == 1) {
		return errors.New("pass a project or --all")
	}

	s, err := openCommandSession()
	if err != nil {
		return err
	}
	defer s.Close()

	var page *store.Page
	if all {
		page, err = s.listOwned(cmd.Context(), f)
	} else {
		var pid string
		if pid, err = s.project(cmd.Context(), args[0]); err == nil {
			page, err = s.tasks.List(cmd.Context(), pid, f)
		}
	}
	if err != nil {
		return err
	}
	if page.Total == 0 {
		fmt.Println("No tasks found.")
		return nil
	}
	return printTasks(os.Stdout, page, all)
}

func runTasksAdd(cmd *cobra.Command, args []string) error {
	in := store.NewTask{Title: args[1]}
	in.Description, _ = cmd.Flags().GetString("description")
	in.Priority, _ = cmd.Flags().GetString("priority")
	in.Status, _ = cmd.Flags().GetString("status")
	if due, _ := cmd.Flags().GetString("due"); due != "" {
		d, err := parseDue(due)
		if err != nil {
			return err
		}
		in.DueDate = d
	}
	if name, _ := cmd.Flags().GetString("assignee"); name != "" {
		in.AssignedTo = assignee(name)
	}

	s, err := openCommandSession()
	if err != nil {
		return err
	}
	defer s.Close()

	pid, err := s.project(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	t, err := s.tasks.Create(cmd.Context(), pid, in)
	if err != nil {
		return err
	}
	fmt.Printf("Created task %s in %s\n", t.ID, t.Status)
	return nil
}

func runTasksMove(cmd *cobra.Command, args []string) error {
	s, err := openCommandSession()
	if err != nil {
		return err
	}
	defer s.Close()

	pid, err := s.project(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	t, err := s.tasks.PatchStatus(cmd.Context(), pid, args[1], args[2])
	if err != nil {
		return err
	}
	fmt.Printf("Moved %s to %s\n", t.ID, t.Status)
	return nil
}

// editFields collects the flags the user actually passed. An empty --due or
// --assignee clears the field.
func editFields(cmd *cobra.Command) (store.Fields, error) {
	var f store.Fields
	flags := cmd.Flags()
	str := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}
	f.Title = str("title")
	f.Description = str("description")
	f.Documentation = str("docs")
	f.Priority = str("priority")
	if due := str("due"); due != nil {
		if *due == "" {
			f.ClearDueDate = true
		} else {
			d, err := parseDue(*due)
			if err != nil {
				return f, err
			}
			f.DueDate = d
		}
	}
	if name := str("assignee"); name != nil {
		if *name == "" {
			f.ClearAssignee = true
		} else {
			f.AssignedTo = assignee(*name)
		}
	}
	return f, nil
}

func runTasksEdit(cmd *cobra.Command, args []string) error {
	f, err := editFields(cmd)
	if err != nil {
		return err
	}
	if f.Empty() {
		return errors.New("nothing to change; pass at least one field flag")
	}

	s, err := openCommandSession()
	if err != nil {
		return err
	}
	defer s.Close()

	pid, err := s.project(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	t, err := s.tasks.PatchFields(cmd.Context(), pid, args[1], f)
	if err != nil {
		return err
	}
	fmt.Printf("Updated %s\n", t.ID)
	return nil
}

func runTasksRm(cmd *cobra.Command, args []string) error {
	s, err := openCommandSession()
	if err != nil {
		return err
	}
	defer s.Close()

	pid, err := s.project(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(cmd.Context(), pid, args[1]); err != nil {
		return err
	}
	fmt.Printf("Deleted %s\n", args[1])
	return nil
}

func runTasksComment(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	author, _ := cmd.Flags().GetString("author")
	if author == "" {
		author = cfg.AuthorName()
	}

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	pid, err := s.project(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	c, err := s.tasks.AppendComment(cmd.Context(), pid, args[1], author, args[2])
	if err != nil {
		return err
	}
	fmt.Printf("Commented on %s as %s\n", args[1], c.Author)
	return nil
}
