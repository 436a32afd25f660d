package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"todo-chatbot/backend/internal/models"
)

// チャットコマンドの正規表現。入力は小文字化してからマッチします。
var (
	reCreateTask   = regexp.MustCompile(`(?i)(?:create|add|new) task (.+)`)
	reCreateLoose  = regexp.MustCompile(`(?i)create (.+)`)
	reListTasks    = regexp.MustCompile(`list tasks|show tasks|what are my tasks|my tasks`)
	reCompleteTask = regexp.MustCompile(`(?:complete|finish|done) task (\d+)|mark task (\d+) as complete`)
	reDeleteTask   = regexp.MustCompile(`(?:delete|remove|cancel) task (\d+)`)
	reSearchTasks  = regexp.MustCompile(`(?i)(?:search|find|look for) (.+)`)
	reHelp         = regexp.MustCompile(`^(?:help|what can you do|commands|options)$`)
)

// 自然言語からのタスク抽出パターン。
var (
	reNamedTask   = regexp.MustCompile(`(?i)(?:create|make|add|new)\s+(?:a\s+)?(?:task|taks)\s+(?:named|called|titled)\s+(.+)`)
	reHaveToDo    = regexp.MustCompile(`(?i)i\s+have\s+(.+?)\s+to\s+do\b`)
	reNeedTo      = regexp.MustCompile(`(?i)i\s+(?:need|have|want)\s+to\s+(.+?)(?:\s+(?:tomorrow|today|tonight|later|now|yesterday)|\s*$|[.!?])`)
	reHaveGeneral = regexp.MustCompile(`(?i)i\s+have\s+(?:a\s+|an\s+|the\s+)?(.+?)(?:\s+(?:tomorrow|today|tonight|later|now|yesterday)|\s*$|[.!?])`)
	reDoVerb      = regexp.MustCompile(`(?i)(?:do|complete|finish|start|begin)\s+(.+?)(?:\s+(?:tomorrow|today|tonight|later|now|yesterday)|\s*$|[.!?])`)

	reNumericDate = regexp.MustCompile(`(\d{1,2})[/-](\d{1,2})[/-](\d{2,4})`)
	reISODate     = regexp.MustCompile(`(\d{4})[/-](\d{1,2})[/-](\d{1,2})`)
	reClockTime   = regexp.MustCompile(`(\d{1,2}):(\d{2})\s*(am|pm)?`)
	reHourTime    = regexp.MustCompile(`(\d{1,2})\s*(am|pm)`)
)

var helpText = strings.TrimSpace(`
Available commands:
- create task <title> : Create a new task
- list tasks : Show all your tasks
- complete task <number> : Mark a task as completed
- delete task <number> : Delete a task
- search <query> : Search for tasks
- help : Show this help message
`)

// ChatService はチャットコマンドと自然言語からのタスク作成を扱います。
// 正規表現ベースの抽出で、外部のLLM APIには依存しません。
type ChatService struct {
	taskService *TaskService
}

// NewChatService は新しいChatServiceを作成します。
func NewChatService(taskService *TaskService) *ChatService {
	return &ChatService{taskService: taskService}
}

// HandleChat はチャットメッセージをコマンドとして解釈し応答を返します。
func (s *ChatService) HandleChat(message string, userID int, userRole string) *models.ChatResponse {
	message = strings.TrimSpace(message)
	lower := strings.ToLower(message)

	var response string
	suggestions := []string{"list tasks", "create task <title>", "help"}

	switch {
	case reHelp.MatchString(lower):
		response = helpText

	case reListTasks.MatchString(lower):
		response = s.listTasks(userID, userRole)

	case reCompleteTask.MatchString(lower):
		response = s.completeTask(firstNumber(reCompleteTask.FindStringSubmatch(lower)), userID, userRole)

	case reDeleteTask.MatchString(lower):
		response = s.deleteTask(firstNumber(reDeleteTask.FindStringSubmatch(lower)), userID, userRole)

	case reSearchTasks.MatchString(lower):
		response = s.searchTasks(reSearchTasks.FindStringSubmatch(message)[1], userID)

	case reCreateTask.MatchString(lower):
		response = s.createTask(reCreateTask.FindStringSubmatch(message)[1], userID)

	case reCreateLoose.MatchString(lower):
		response = s.createTask(reCreateLoose.FindStringSubmatch(message)[1], userID)

	case containsAny(lower, "hello", "hi", "hey", "greetings"):
		response = "Hello! I'm your Todo Chatbot assistant. How can I help you today?"

	case containsAny(lower, "thank", "thanks"):
		response = "You're welcome! Is there anything else I can help you with?"

	case containsAny(lower, "bye", "goodbye", "see you"):
		response = "Goodbye! Feel free to come back when you need to manage your tasks."

	default:
		response = fmt.Sprintf("I'm not sure how to handle '%s'. Try asking for 'help' to see available commands.", message)
	}

	return &models.ChatResponse{
		Response:    response,
		Suggestions: suggestions,
		Timestamp:   time.Now(),
	}
}

func (s *ChatService) listTasks(userID int, userRole string) string {
	tasks, err := s.taskService.GetTasks(userID, userRole, "")
	if err != nil {
		return "Failed to load your tasks. Please try again."
	}
	if len(tasks) == 0 {
		return "You have no tasks. Create a task to get started!"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %d task(s):\n", len(tasks))
	for i, task := range tasks {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, task.Title, task.Status)
	}
	return strings.TrimRight(b.String(), "\n")
}

// completeTask はチャットの番号(一覧での表示順)をタスクに対応づけます。
func (s *ChatService) completeTask(number, userID int, userRole string) string {
	task, msg := s.taskByNumber(number, userID, userRole)
	if task == nil {
		return msg
	}
	if _, err := s.taskService.CompleteTask(task.ID, userID, userRole); err != nil {
		return fmt.Sprintf("Error completing task: %v", err)
	}
	return fmt.Sprintf("Task '%s' marked as completed!", task.Title)
}

func (s *ChatService) deleteTask(number, userID int, userRole string) string {
	task, msg := s.taskByNumber(number, userID, userRole)
	if task == nil {
		return msg
	}
	if err := s.taskService.DeleteTask(task.ID, userID, userRole); err != nil {
		return fmt.Sprintf("Error deleting task: %v", err)
	}
	return fmt.Sprintf("Task '%s' deleted successfully!", task.Title)
}

func (s *ChatService) taskByNumber(number, userID int, userRole string) (*models.Task, string) {
	tasks, err := s.taskService.GetTasks(userID, userRole, "")
	if err != nil {
		return nil, "Failed to load your tasks. Please try again."
	}
	if number < 1 || number > len(tasks) {
		return nil, fmt.Sprintf("Invalid task number. Please specify a number between 1 and %d.", len(tasks))
	}
	return tasks[number-1], ""
}

func (s *ChatService) searchTasks(query string, userID int) string {
	tasks, err := s.taskService.SearchTasks(userID, query)
	if err != nil {
		return "Search failed. Please try again."
	}
	if len(tasks) == 0 {
		return fmt.Sprintf("No tasks found matching '%s'.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d task(s) matching '%s':\n", len(tasks), query)
	for i, task := range tasks {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, task.Title, task.Status)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *ChatService) createTask(title string, userID int) string {
	task := &models.Task{Title: strings.TrimSpace(title)}
	created, err := s.taskService.CreateTask(task, userID)
	if err != nil {
		return fmt.Sprintf("Error creating task: %v", err)
	}
	return fmt.Sprintf("Task '%s' created successfully with ID: %d", created.Title, created.ID)
}

// HandleNaturalLanguage は自由文からタスクを抽出して作成します。
func (s *ChatService) HandleNaturalLanguage(message string, userID int) (*models.NaturalLanguageResponse, error) {
	message = strings.TrimSpace(message)
	if len(message) < 3 {
		return &models.NaturalLanguageResponse{
			Success:   false,
			Message:   "Please tell me more about the task you want to create.",
			Timestamp: time.Now(),
		}, nil
	}

	details := ExtractTaskDetails(message)
	needs := detectMissingInfo(message)

	task := &models.Task{
		Title:       details.Title,
		Description: details.Description,
		Priority:    details.Priority,
		DueDate:     details.DueDate,
	}

	created, err := s.taskService.CreateTask(task, userID)
	if err != nil {
		return nil, err
	}

	responseMessage := fmt.Sprintf("Task '%s' has been created", created.Title)
	var followUps []string
	if needs.Description {
		followUps = append(followUps, "Would you like to add a detailed description?")
	}
	if needs.DueDate {
		followUps = append(followUps, "Would you like to set a due date?")
	}
	if needs.Reminder {
		followUps = append(followUps, "Would you like to set a reminder?")
	}
	if len(followUps) > 0 {
		responseMessage += ". You can enhance this task by: " + strings.Join(followUps, " ")
	}

	return &models.NaturalLanguageResponse{
		Success:             true,
		Message:             responseMessage,
		TaskID:              created.ID,
		NeedsAdditionalInfo: needs,
		Timestamp:           time.Now(),
	}, nil
}

// TaskDetails は自由文から抽出したタスク情報です。
type TaskDetails struct {
	Title       string
	Description string
	Priority    string
	DueDate     *time.Time
}

// ExtractTaskDetails は自由文からタイトル・優先度・期日を抽出します。
func ExtractTaskDetails(text string) *TaskDetails {
	title := extractTitle(text)

	details := &TaskDetails{
		Title:       title,
		Description: fmt.Sprintf("Automatically created from: %s", text),
		Priority:    extractPriority(text),
		DueDate:     ExtractDueDate(text, time.Now()),
	}
	return details
}

func extractTitle(text string) string {
	patterns := []*regexp.Regexp{reNamedTask, reHaveToDo, reNeedTo, reHaveGeneral, reDoVerb}
	for _, pattern := range patterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			title := strings.TrimSpace(m[1])
			if title != "" {
				return title
			}
		}
	}

	// パターンに合わない場合は日付・時刻表現を取り除いて残りをタイトルにします。
	cleaned := reNumericDate.ReplaceAllString(text, "")
	cleaned = reClockTime.ReplaceAllString(cleaned, "")
	for _, word := range []string{"today", "tomorrow", "tonight", "yesterday"} {
		cleaned = regexp.MustCompile(`(?i)\b` + word + `\b`).ReplaceAllString(cleaned, "")
	}
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if len(cleaned) > 3 {
		return cleaned
	}
	return text
}

func extractPriority(text string) string {
	lower := strings.ToLower(text)
	switch {
	case containsAny(lower, "urgent", "asap", "immediately", "right away"):
		return models.TaskPriorityUrgent
	case containsAny(lower, "important", "high priority", "critical"):
		return models.TaskPriorityHigh
	case containsAny(lower, "low priority", "whenever", "no rush", "someday"):
		return models.TaskPriorityLow
	default:
		return models.TaskPriorityMedium
	}
}

// ExtractDueDate は相対表現(today/tomorrow等)と日付・時刻表記から期日を求めます。
// 見つからない場合はnilを返します。
func ExtractDueDate(text string, now time.Time) *time.Time {
	lower := strings.ToLower(text)

	var date time.Time
	var hasDate bool

	switch {
	case strings.Contains(lower, "tomorrow"):
		date, hasDate = now.AddDate(0, 0, 1), true
	case strings.Contains(lower, "tonight"):
		date, hasDate = now, true
	case strings.Contains(lower, "today"):
		date, hasDate = now, true
	case strings.Contains(lower, "yesterday"):
		date, hasDate = now.AddDate(0, 0, -1), true
	}

	if m := reISODate.FindStringSubmatch(lower); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		date, hasDate = time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location()), true
	} else if m := reNumericDate.FindStringSubmatch(lower); m != nil {
		// MM/DD/YYYY。2桁年は2000年代として扱います。
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		date, hasDate = time.Date(year, time.Month(month), day, 0, 0, 0, 0, now.Location()), true
	}

	if !hasDate {
		return nil
	}

	hour, minute := 23, 59 // 時刻指定がない場合はその日の終わり
	if strings.Contains(lower, "tonight") {
		hour, minute = 19, 0
	}

	if m := reClockTime.FindStringSubmatch(lower); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute, _ = strconv.Atoi(m[2])
		hour = to24Hour(hour, m[3])
	} else if m := reHourTime.FindStringSubmatch(lower); m != nil {
		hour, _ = strconv.Atoi(m[1])
		minute = 0
		hour = to24Hour(hour, m[2])
	}

	due := time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, now.Location())
	return &due
}

func to24Hour(hour int, meridiem string) int {
	switch meridiem {
	case "pm":
		if hour != 12 {
			hour += 12
		}
	case "am":
		if hour == 12 {
			hour = 0
		}
	}
	return hour
}

func detectMissingInfo(text string) models.NeedsInfo {
	lower := strings.ToLower(text)

	dateMentioned := containsAny(lower,
		"today", "tomorrow", "tonight", "yesterday",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		"week", "month", "year", "morning", "afternoon", "evening", "night", "next",
	) || reNumericDate.MatchString(lower) || reClockTime.MatchString(lower)

	return models.NeedsInfo{
		Description: len(strings.Fields(text)) <= 6,
		DueDate:     !dateMentioned,
		Reminder:    containsAny(lower, "remind", "remember", "don't forget", "alert", "notification"),
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

func firstNumber(matches []string) int {
	for _, m := range matches[1:] {
		if m != "" {
			if n, err := strconv.Atoi(m); err == nil {
				return n
			}
		}
	}
	return 0
}
