package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project"},
	Short:   "Manage projects",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE:  runProjectsList,
}

var projectsAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsAdd,
}

var projectsRmCmd = &cobra.Command{
	Use:   "rm [project]",
	Short: "Delete a project and its tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsRm,
}

var projectsRenameCmd = &cobra.Command{
	Use:   "rename [project] [name]",
	Short: "Rename a local project",
	Args:  cobra.ExactArgs(2),
	RunE:  runProjectsRename,
}

func init() {
	projectsCmd.AddCommand(projectsListCmd)
	projectsCmd.AddCommand(projectsAddCmd)
	projectsCmd.AddCommand(projectsRenameCmd)
	projectsCmd.AddCommand(projectsRmCmd)

	projectsAddCmd.Flags().StringP("description", "d", "", "Project description")
	projectsRenameCmd.Flags().StringP("description", "d", "", "New description (default keeps the current one)")
}

func runProjectsList(cmd *cobra.Command, args []string) error {
	s, err := openCommandSession()
	if err != nil {
		return err
	}
	defer s.Close()

	projects, err := s.projects.ListProjects(cmd.Context())
	if err != nil {
		return err
	}
	if len(projects) == 0 {
		fmt.Println("No projects yet. Create one with 'taskflow projects add <name>'.")
		return nil
	}

	table := newTable(os.Stdout, "ID", "Name", "Route", "Updated")
	for _, p := range projects {
		table.Append([]string{p.ID, p.Name, p.Route, p.UpdatedAt.Local().Format("2006-01-02 15:04")})
	}
	table.Render()
	return nil
}

func runProjectsAdd(cmd *cobra.Command, args []string) error {
	description, _ := cmd.Flags().GetString("description")

	s, err := openCommandSession()
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.projects.CreateProject(cmd.Context(), args[0], description)
	if err != nil {
		return err
	}
	fmt.Printf("Created project %s (%s)\n", p.Name, p.ID)
	return nil
}

func runProjectsRm(cmd *cobra.Command, args []string) error {
	s, err := openCommandSession()
	if err != nil {
		return err
	}
	defer s.Close()

	id, err := s.project(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := s.projects.DeleteProject(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Printf("Deleted project %s\n", args[0])
	return nil
}

func runProjectsRename(cmd *cobra.Command, args []string) error {
	s, err := openCommandSession()
	if err != nil {
		return err
	}
	defer s.Close()
	if s.local == nil {
		return errors.New("the record service does not support renaming projects")
	}

	ctx := cmd.Context()
	p, err := s.db.ResolveProject(ctx, args[0])
	if err != nil {
		return err
	}
	description := p.Description
	if cmd.Flags().Changed("description") {
		description, _ = cmd.Flags().GetString("description")
	}
	if err := s.db.UpdateProject(ctx, p.ID, args[1], description); err != nil {
		return err
	}
	fmt.Printf("Renamed %s to %s\n", p.ID, args[1])
	return nil
}
