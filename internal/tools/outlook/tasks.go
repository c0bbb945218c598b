package outlook

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/mcp-office/internal/generator/email"
	"github.com/sammcj/mcp-office/internal/generator/records"
	"github.com/sammcj/mcp-office/internal/tools"
	"github.com/sirupsen/logrus"
)

var (
	priorityEnum = mcp.Enum("low", "normal", "high")
	statusEnum   = mcp.Enum(records.StatusNotStarted, records.StatusInProgress, records.StatusWaiting, records.StatusDeferred, records.StatusCompleted)
)

func (h *handlers) taskTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("create_task",
			"Add a task to a task list",
			tools.Edits,
			collection("Task list"),
			mcp.WithString("title", mcp.Required()),
			mcp.WithString("description"),
			mcp.WithString("due", mcp.Description("Due date or date-time")),
			mcp.WithString("reminder", mcp.Description("Reminder date-time")),
			mcp.WithString("priority", priorityEnum, mcp.DefaultString("normal")),
			mcp.WithString("status", statusEnum, mcp.DefaultString(records.StatusNotStarted)),
			tools.StringArray("categories", "Categories"),
			mcp.WithString("owner"),
			mcp.WithString("timezone"),
			tools.OutputPath(),
		), h.createTask),

		tools.NewFunc(tools.Define("update_task",
			"Change fields of a task. Only the given fields are updated",
			tools.Edits,
			collection("Task list"),
			mcp.WithString("taskId", mcp.Required(), mcp.Description("Task id or a unique prefix of it")),
			mcp.WithString("title"),
			mcp.WithString("description"),
			mcp.WithString("due"),
			mcp.WithString("reminder"),
			mcp.WithString("priority", priorityEnum),
			mcp.WithString("status", statusEnum),
			mcp.WithNumber("percentComplete", mcp.Min(0), mcp.Max(100)),
			tools.StringArray("categories", "Replacement categories"),
			mcp.WithString("owner"),
			mcp.WithString("timezone"),
			tools.OutputPath(),
		), h.updateTask).WithHelp(&tools.ExtendedHelp{
			Troubleshooting: []tools.TroubleshootingTip{
				{Problem: "no record with id", Solution: "Run list_tasks with includeCompleted to see the ids in the file"},
			},
		}),

		tools.NewFunc(tools.Define("complete_task",
			"Mark a task as completed",
			tools.Edits,
			collection("Task list"),
			mcp.WithString("taskId", mcp.Required(), mcp.Description("Task id or a unique prefix of it")),
			tools.OutputPath(),
		), h.completeTask),

		tools.NewFunc(tools.Define("list_tasks",
			"List tasks ordered by due date, optionally filtered",
			tools.Reads,
			tools.Filename("Task list (.json)"),
			mcp.WithString("status", statusEnum),
			mcp.WithString("priority", priorityEnum),
			mcp.WithString("category"),
			mcp.WithString("dueBefore"),
			mcp.WithBoolean("overdueOnly"),
			mcp.WithBoolean("includeCompleted", mcp.DefaultBool(false)),
			mcp.WithString("timezone"),
		), h.listTasks),
	}
}

func (h *handlers) organiserTools() []tools.Tool {
	return []tools.Tool{
		tools.NewFunc(tools.Define("create_mail_rule",
			"Add a mail rule (conditions and actions) to a rules file, optionally testing it against a message",
			tools.Edits,
			collection("Rules file"),
			mcp.WithString("name", mcp.Required()),
			mcp.WithBoolean("enabled", mcp.DefaultBool(true)),
			tools.StringArray("from", "Sender addresses or fragments"),
			tools.StringArray("sentTo", "Recipient addresses or fragments"),
			tools.StringArray("subjectContains", "Subject fragments"),
			tools.StringArray("bodyContains", "Body fragments"),
			mcp.WithBoolean("hasAttachment"),
			mcp.WithString("importance", mcp.Enum("low", "normal", "high")),
			mcp.WithString("moveToFolder"),
			mcp.WithString("copyToFolder"),
			tools.StringArray("categorize", "Categories to assign"),
			tools.StringArray("forwardTo", "Addresses to forward to"),
			mcp.WithBoolean("markAsRead"),
			mcp.WithBoolean("flag"),
			mcp.WithBoolean("delete"),
			mcp.WithBoolean("stopProcessingMoreRules"),
			mcp.WithString("testEmail", mcp.Description("A .eml file to check the rule against")),
			tools.OutputPath(),
		), h.createRule).WithHelp(&tools.ExtendedHelp{
			WhenToUse:    "Recording filing rules that a mail client or script applies later",
			WhenNotToUse: "Moving existing messages; rules are stored, not executed against a mailbox",
			Examples: []tools.ToolExample{
				{
					Description: "File invoices into a folder",
					Arguments: map[string]any{
						"filename": "rules.json", "name": "Invoices", "subjectContains": []any{"invoice"},
						"hasAttachment": true, "moveToFolder": "Finance/Invoices",
					},
					ExpectedResult: "Rule id plus a sentence describing it",
				},
			},
		}),

		tools.NewFunc(tools.Define("create_note",
			"Add a sticky note to a notes file",
			tools.Edits,
			collection("Notes file"),
			mcp.WithString("title", mcp.Description("Defaults to the first line of the body")),
			mcp.WithString("body"),
			mcp.WithString("color", mcp.Enum(records.NoteColors...), mcp.DefaultString("yellow")),
			tools.StringArray("categories", "Categories"),
			tools.OutputPath(),
		), h.createNote),
	}
}

func (h *handlers) createTask(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	loc, err := location(args)
	if err != nil {
		return nil, err
	}
	due, err := timePtr(args, "due", loc)
	if err != nil {
		return nil, err
	}
	reminder, err := timePtr(args, "reminder", loc)
	if err != nil {
		return nil, err
	}
	task, path, err := h.Records.AddTask(ctx, args.String("filename"), args.String("outputPath"), records.Task{
		Title:       args.String("title"),
		Description: args.String("description"),
		Due:         due,
		Reminder:    reminder,
		Priority:    args.String("priority"),
		Status:      args.String("status"),
		Categories:  args.Strings("categories"),
		Owner:       args.String("owner"),
	})
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Created task %s %q (%s priority)", task.ID, task.Title, task.Priority)
	if task.Due != nil {
		msg += ", due " + formatTime(task.Due.In(loc))
	}
	return tools.Text("%s in %s", msg, path), nil
}

func optional(args tools.Args, key string) *string {
	if !args.Has(key) {
		return nil
	}
	s := args.String(key)
	return &s
}

func (h *handlers) updateTask(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	loc, err := location(args)
	if err != nil {
		return nil, err
	}
	patch := records.TaskPatch{
		Title:       optional(args, "title"),
		Description: optional(args, "description"),
		Priority:    optional(args, "priority"),
		Status:      optional(args, "status"),
		Owner:       optional(args, "owner"),
	}
	if patch.Due, err = timePtr(args, "due", loc); err != nil {
		return nil, err
	}
	if patch.Reminder, err = timePtr(args, "reminder", loc); err != nil {
		return nil, err
	}
	if args.Has("percentComplete") {
		pc := args.Int("percentComplete", 0)
		patch.PercentComplete = &pc
	}
	if args.Has("categories") {
		patch.Categories = args.Strings("categories")
		if patch.Categories == nil {
			patch.Categories = []string{}
		}
	}
	task, path, err := h.Records.UpdateTask(ctx, args.String("filename"), args.String("outputPath"), args.String("taskId"), patch)
	if err != nil {
		return nil, err
	}
	return tools.Text("Updated task %s %q: %s, %d%% complete (%s)", task.ID, task.Title, task.Status, task.PercentComplete, path), nil
}

func (h *handlers) completeTask(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	task, path, err := h.Records.CompleteTask(ctx, args.String("filename"), args.String("outputPath"), args.String("taskId"))
	if err != nil {
		return nil, err
	}
	return tools.Text("Completed task %s %q (%s)", task.ID, task.Title, path), nil
}

func (h *handlers) listTasks(_ context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	loc, err := location(args)
	if err != nil {
		return nil, err
	}
	dueBefore, _, err := timeArg(args, "dueBefore", loc)
	if err != nil {
		return nil, err
	}
	list, err := h.Records.ListTasks(args.String("filename"), records.TaskFilter{
		Status:           args.String("status"),
		Priority:         args.String("priority"),
		Category:         args.String("category"),
		DueBefore:        dueBefore,
		OverdueOnly:      args.Bool("overdueOnly", false),
		IncludeCompleted: args.Bool("includeCompleted", false),
	})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No matching tasks"), nil
	}
	now := time.Now()
	var b strings.Builder
	fmt.Fprintf(&b, "%d task(s)\n", len(list))
	for _, t := range list {
		fmt.Fprintf(&b, "\n[%s] %s (%s, %s", t.ID, t.Title, t.Status, t.Priority)
		if t.PercentComplete > 0 && t.PercentComplete < 100 {
			fmt.Fprintf(&b, ", %d%%", t.PercentComplete)
		}
		b.WriteString(")")
		if t.Due != nil {
			fmt.Fprintf(&b, " due %s", formatTime(t.Due.In(loc)))
			if t.Overdue(now) {
				b.WriteString(" OVERDUE")
			}
		}
		b.WriteString("\n")
		if t.Owner != "" {
			fmt.Fprintf(&b, "   Owner: %s\n", t.Owner)
		}
		if len(t.Categories) > 0 {
			fmt.Fprintf(&b, "   Categories: %s\n", strings.Join(t.Categories, ", "))
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handlers) createRule(ctx context.Context, logger *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	rule := records.Rule{
		Name:    args.String("name"),
		Enabled: args.Bool("enabled", true),
		Conditions: records.RuleConditions{
			From:            args.Strings("from"),
			To:              args.Strings("sentTo"),
			SubjectContains: args.Strings("subjectContains"),
			BodyContains:    args.Strings("bodyContains"),
			HasAttachment:   args.Bool("hasAttachment", false),
			Importance:      args.String("importance"),
		},
		Actions: records.RuleActions{
			MoveToFolder: args.String("moveToFolder"),
			CopyToFolder: args.String("copyToFolder"),
			Categorize:   args.Strings("categorize"),
			ForwardTo:    args.Strings("forwardTo"),
			MarkAsRead:   args.Bool("markAsRead", false),
			Flag:         args.Bool("flag", false),
			Delete:       args.Bool("delete", false),
			StopRules:    args.Bool("stopProcessingMoreRules", false),
		},
	}

	// the test message is read before saving so a bad path leaves the rules untouched
	var sample *email.Parsed
	if args.String("testEmail") != "" {
		data, _, err := h.read(args, "testEmail")
		if err != nil {
			return nil, err
		}
		if sample, err = email.Parse(data); err != nil {
			return nil, err
		}
	}

	rule, path, err := h.Records.AddRule(ctx, args.String("filename"), args.String("outputPath"), rule)
	if err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"rule": rule.Name, "path": path}).Info("Saved mail rule")

	msg := fmt.Sprintf("Saved rule %s %q in %s\n%s", rule.ID, rule.Name, path, rule.Describe())
	if !rule.Enabled {
		msg += "\n(disabled)"
	}
	if sample != nil {
		verdict := "does not match"
		if rule.Matches(sample) {
			verdict = "matches"
		}
		msg += fmt.Sprintf("\nTest: the rule %s %s (%q)", verdict, args.String("testEmail"), sample.Subject)
	}
	return mcp.NewToolResultText(msg), nil
}

func (h *handlers) createNote(ctx context.Context, _ *logrus.Logger, args tools.Args) (*mcp.CallToolResult, error) {
	note, path, err := h.Records.AddNote(ctx, args.String("filename"), args.String("outputPath"), records.Note{
		Title:      args.String("title"),
		Body:       args.String("body"),
		Color:      args.String("color"),
		Categories: args.Strings("categories"),
	})
	if err != nil {
		return nil, err
	}
	return tools.Text("Created %s note %s %q in %s", note.Color, note.ID, note.Title, path), nil
}
