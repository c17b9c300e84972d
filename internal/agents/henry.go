package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/agency-hub/backend/internal/models"
	"github.com/agency-hub/backend/internal/relay"
	"github.com/google/uuid"
)

func (s *Service) buildHenry(ctx context.Context, p Persona) (*relay.Prompt, *relay.Registry, error) {
	clients, err := s.deps.Clients.List(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list clients: %w", err)
	}
	tasks, err := s.deps.Tasks.ListOpen(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list tasks: %w", err)
	}
	leads, err := s.deps.Leads.ListActive(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list leads: %w", err)
	}

	taskLines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		taskLines = append(taskLines, fmt.Sprintf("[%s] %s (id %s, client %s, due %s)",
			t.Status, t.Title, t.ID, deref(t.ClientName, "none"), formatDate(t.DueDate)))
	}

	prompt := relay.NewPrompt(p.Persona).
		State("Today", s.now().Format("Monday, 2006-01-02")).
		Facts("Clients", "No clients yet.", clientLines(clients)...).
		Facts("Open tasks", "No open tasks.", taskLines...).
		Facts("Active leads", "No active leads.", leadLines(leads)...).
		Instructions(p.Instructions...)

	tools := relay.NewRegistry(
		s.createTaskTool(clients),
		s.updateTaskStatusTool(),
		createLeadTool(s.deps.Leads),
		sendNotificationTool(s.deps.Notifier),
	)
	return prompt, tools, nil
}

type createTaskArgs struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Client      string `json:"client"`
	DueDate     string `json:"due_date"`
}

func (s *Service) createTaskTool(clients []models.Client) relay.Tool {
	return relay.NewTool("create_task", "Create a task for the team.",
		relay.Schema{
			Properties: map[string]relay.Property{
				"title":       {Type: relay.TypeString},
				"description": {Type: relay.TypeString},
				"client":      {Type: relay.TypeString, Description: "Client slug"},
				"due_date":    {Type: relay.TypeString, Description: "YYYY-MM-DD"},
			},
			Required: []string{"title"},
		},
		func(ctx context.Context, a createTaskArgs) (string, error) {
			title := strings.TrimSpace(a.Title)
			if title == "" {
				return "", fmt.Errorf("task title is empty")
			}
			due, err := parseDate(a.DueDate)
			if err != nil {
				return "", err
			}
			client := resolveClient(clients, a.Client)
			t := &models.Task{
				ClientID:    clientIDOf(client),
				Title:       title,
				Description: strings.TrimSpace(a.Description),
				DueDate:     due,
			}
			if err := s.deps.Tasks.Create(ctx, t); err != nil {
				return "", err
			}
			if client == nil {
				return fmt.Sprintf("Task %q created (id %s).", t.Title, t.ID), nil
			}
			return fmt.Sprintf("Task %q created for %s (id %s).", t.Title, client.Name, t.ID), nil
		})
}

type updateTaskStatusArgs struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
}

func (s *Service) updateTaskStatusTool() relay.Tool {
	return relay.NewTool("update_task_status", "Change the status of a task.",
		relay.Schema{
			Properties: map[string]relay.Property{
				"task_id": {Type: relay.TypeString},
				"status":  {Type: relay.TypeString, Enum: models.AllTaskStatuses},
			},
			Required: []string{"task_id", "status"},
		},
		func(ctx context.Context, a updateTaskStatusArgs) (string, error) {
			id, err := uuid.Parse(strings.TrimSpace(a.TaskID))
			if err != nil {
				return "", fmt.Errorf("invalid task id %q", a.TaskID)
			}
			if err := s.deps.Tasks.UpdateStatus(ctx, id, a.Status); err != nil {
				return "", fmt.Errorf("update task %s: %w", id, err)
			}
			return fmt.Sprintf("Task %s is now %s.", id, a.Status), nil
		})
}

func leadLines(leads []models.Lead) []string {
	lines := make([]string, 0, len(leads))
	for _, l := range leads {
		lines = append(lines, fmt.Sprintf("[%s] %s, %s (id %s, source %s)",
			l.Status, l.Name, deref(l.Company, "no company"), l.ID, deref(l.Source, "unknown")))
	}
	return lines
}
