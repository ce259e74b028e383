package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/satchel-app/satchel/internal/envelope"
	"github.com/satchel-app/satchel/internal/ui"
)

var taskCmd = &cobra.Command{
	Use:     "task",
	GroupID: "data",
	Short:   "Manage tasks",
}

var taskAddCmd = &cobra.Command{
	Use:   "add <title>",
	Short: "Add a task",
	Long: `Add a task to the record.

The --due flag accepts natural language:
  satchel task add "water plants" --due tomorrow
  satchel task add "file taxes" --due "next friday at 5pm"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := strings.Join(args, " ")
		priority, _ := cmd.Flags().GetInt("priority")
		notes, _ := cmd.Flags().GetString("notes")
		dueStr, _ := cmd.Flags().GetString("due")

		if priority < 0 || priority > 4 {
			return fmt.Errorf("priority must be 0-4, got %d", priority)
		}

		var due *time.Time
		if dueStr != "" {
			parsed, err := parseNaturalTime(dueStr)
			if err != nil {
				return err
			}
			due = &parsed
		}

		var task envelope.Task
		err := updateRecord(func(p *envelope.Payload) error {
			now := time.Now().UTC()
			task = envelope.Task{
				ID:        envelope.NewTaskID(),
				Title:     title,
				Notes:     notes,
				Priority:  priority,
				DueAt:     due,
				CreatedAt: now,
				UpdatedAt: now,
			}
			p.Tasks = append(p.Tasks, task)
			return nil
		})
		if err != nil {
			return err
		}

		fmt.Printf("%s Added %s: %s\n", ui.RenderPass("✓"), task.ID, task.Title)
		if due != nil {
			fmt.Printf("  due %s\n", due.Local().Format("Mon Jan 2 15:04"))
		}
		return nil
	},
}

var taskListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		showAll, _ := cmd.Flags().GetBool("all")

		a, err := newApp(nil)
		if err != nil {
			return err
		}
		defer a.Close()

		payload, err := a.loadPayload(context.Background())
		if err != nil {
			return err
		}

		var shown int
		for _, task := range payload.Tasks {
			if task.Done && !showAll {
				continue
			}
			shown++

			marker := ui.RenderFaint("○")
			if task.Done {
				marker = ui.RenderPass("✓")
			}
			line := fmt.Sprintf("%s [P%d] %s  %s", marker, task.Priority, task.Title, ui.RenderFaint(task.ID))
			if task.DueAt != nil {
				due := task.DueAt.Local().Format("Jan 2 15:04")
				if !task.Done && task.DueAt.Before(time.Now()) {
					due = ui.RenderFail("overdue " + due)
				}
				line += "  " + due
			}
			fmt.Println(line)
		}

		if shown == 0 {
			fmt.Println("No tasks. Add one with: satchel task add <title>")
		}
		return nil
	},
}

var taskDoneCmd = &cobra.Command{
	Use:   "done <id>",
	Short: "Mark a task as done",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var title string
		err := updateRecord(func(p *envelope.Payload) error {
			idx, err := findTask(p.Tasks, args[0])
			if err != nil {
				return err
			}
			p.Tasks[idx].Done = true
			p.Tasks[idx].UpdatedAt = time.Now().UTC()
			title = p.Tasks[idx].Title
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s Done: %s\n", ui.RenderPass("✓"), title)
		return nil
	},
}

var taskRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var title string
		err := updateRecord(func(p *envelope.Payload) error {
			idx, err := findTask(p.Tasks, args[0])
			if err != nil {
				return err
			}
			title = p.Tasks[idx].Title
			p.Tasks = append(p.Tasks[:idx], p.Tasks[idx+1:]...)
			return nil
		})
		if err != nil {
			return err
		}
		fmt.Printf("%s Removed: %s\n", ui.RenderPass("✓"), title)
		return nil
	},
}

// findTask matches a task by exact ID or unique prefix.
func findTask(tasks []envelope.Task, id string) (int, error) {
	match := -1
	for i := range tasks {
		if tasks[i].ID == id {
			return i, nil
		}
		if strings.HasPrefix(tasks[i].ID, id) {
			if match >= 0 {
				return -1, fmt.Errorf("task ID %q is ambiguous", id)
			}
			match = i
		}
	}
	if match < 0 {
		return -1, fmt.Errorf("no task with ID %q", id)
	}
	return match, nil
}

// parseNaturalTime turns phrases like "tomorrow" or "next friday at 5pm"
// into a concrete time.
func parseNaturalTime(s string) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(s, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("could not parse %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand date %q", s)
	}
	return r.Time.UTC(), nil
}

func init() {
	taskAddCmd.Flags().IntP("priority", "p", 2, "priority 0-4 (0 = most urgent)")
	taskAddCmd.Flags().String("notes", "", "free-form notes")
	taskAddCmd.Flags().String("due", "", "due date in natural language")

	taskListCmd.Flags().BoolP("all", "a", false, "include completed tasks")

	taskCmd.AddCommand(taskAddCmd, taskListCmd, taskDoneCmd, taskRemoveCmd)
	rootCmd.AddCommand(taskCmd)
}
