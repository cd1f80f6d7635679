package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"consultai/internal/engagement"
)

var (
	taskTitle       string
	taskDescription string
	taskPhase       string
	taskListPhase   string
)

// taskCmd groups task tracking
var taskCmd = &cobra.Command{
	Use:   "task",
	Short: "Track delivery tasks per phase",
}

var taskAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a task in the todo state",
	RunE:  addTask,
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks, optionally filtered by phase",
	RunE:  listTasks,
}

var taskStatusCmd = &cobra.Command{
	Use:   "status [task-id] [todo|in_progress|completed]",
	Short: "Move a task between statuses",
	Args:  cobra.ExactArgs(2),
	RunE:  updateTaskStatus,
}

func init() {
	taskAddCmd.Flags().StringVar(&taskTitle, "title", "", "task title (required)")
	taskAddCmd.Flags().StringVar(&taskDescription, "description", "", "what needs doing")
	taskAddCmd.Flags().StringVar(&taskPhase, "phase", "", "phase the task belongs to (required)")

	taskListCmd.Flags().StringVar(&taskListPhase, "phase", "", "only tasks for this phase")

	taskCmd.AddCommand(taskAddCmd)
	taskCmd.AddCommand(taskListCmd)
	taskCmd.AddCommand(taskStatusCmd)
}

func addTask(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	task, err := svc.CreateTask(cmd.Context(), owner(), engagement.CreateTaskInput{
		Title:       taskTitle,
		Description: taskDescription,
		Phase:       taskPhase,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Created task %s: %s (%s, %s)\n", task.ID, task.Title, task.Phase, task.Status)
	return nil
}

func listTasks(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	tasks, err := svc.ListTasks(cmd.Context(), owner(), taskListPhase)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Println("No tasks.")
		return nil
	}
	for _, task := range tasks {
		fmt.Printf("%s  %-12s  %-16s  %s\n", task.ID, task.Status, task.Phase, task.Title)
	}
	return nil
}

func updateTaskStatus(cmd *cobra.Command, args []string) error {
	svc, st, _, err := openService()
	if err != nil {
		return err
	}
	defer st.Close()

	task, err := svc.UpdateTaskStatus(cmd.Context(), owner(), args[0], args[1])
	if err != nil {
		return err
	}

	fmt.Printf("Task %s is now %s\n", task.ID, task.Status)
	return nil
}
