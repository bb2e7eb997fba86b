// Package events classifies verified GitHub webhook deliveries by
// (event type, action) and drives board provisioning accordingly.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/wekan-tools/github-wekan-sync/internal/boards"
	"github.com/wekan-tools/github-wekan-sync/internal/models"
)

// maxPushCards caps how many commits of one push become cards.
const maxPushCards = 5

// Response is the JSON body and HTTP status a handled event maps to.
type Response struct {
	Status int
	Body   map[string]any
}

// Router dispatches webhook events to event-type-specific handlers.
// With a nil creator the router runs in standalone mode: handlers
// report what would be provisioned without contacting Wekan.
type Router struct {
	creator *boards.Creator
}

// NewRouter returns a router backed by the given board creator.
func NewRouter(creator *boards.Creator) *Router {
	return &Router{creator: creator}
}

// Standalone reports whether the router runs without a Wekan
// connection.
func (r *Router) Standalone() bool {
	return r.creator == nil
}

// Handle processes one delivery. Payload decoding or validation
// failures yield a 400; handler-internal failures yield structured
// 500 responses rather than escaping as faults.
func (r *Router) Handle(ctx context.Context, eventType string, payload []byte) Response {
	zap.L().Info("Received GitHub webhook event", zap.String("event", eventType))

	switch eventType {
	case "issues":
		var event models.IssueEvent
		if err := decode(payload, &event, event.Validate); err != nil {
			return invalidPayload(err)
		}
		return r.handleIssue(ctx, event)
	case "pull_request":
		var event models.PullRequestEvent
		if err := decode(payload, &event, event.Validate); err != nil {
			return invalidPayload(err)
		}
		return r.handlePullRequest(ctx, event)
	case "push":
		var event models.PushEvent
		if err := decode(payload, &event, event.Validate); err != nil {
			return invalidPayload(err)
		}
		return r.handlePush(ctx, event)
	case "repository":
		var event models.RepositoryEvent
		if err := decode(payload, &event, event.Validate); err != nil {
			return invalidPayload(err)
		}
		return r.handleRepository(ctx, event)
	case "ping":
		var event models.PingEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return invalidPayload(err)
		}
		return r.handlePing(event)
	default:
		zap.L().Info("Unhandled event type", zap.String("event", eventType))
		return Response{Status: http.StatusOK, Body: map[string]any{
			"status": "Event not handled",
			"event":  eventType,
		}}
	}
}

func decode(payload []byte, dst any, validate func() error) error {
	if err := json.Unmarshal(payload, dst); err != nil {
		return err
	}
	return validate()
}

func invalidPayload(err error) Response {
	zap.L().Warn("Invalid webhook payload", zap.Error(err))
	return Response{Status: http.StatusBadRequest, Body: map[string]any{"error": "Invalid JSON payload"}}
}

// getOrCreateBoard always creates a fresh board from the basic kanban
// template. Known limitation: redelivered board-creating events
// therefore produce duplicate boards; a lookup-by-title step before
// create would be the fix.
func (r *Router) getOrCreateBoard(ctx context.Context, boardName string) (*boards.Result, error) {
	return r.creator.CreateFromTemplate(ctx, "kanban_basic", boardName)
}

func (r *Router) handleIssue(ctx context.Context, event models.IssueEvent) Response {
	action := event.Action
	issue := event.Issue
	zap.L().Info("Processing issue event", zap.String("action", action), zap.Int("issue", issue.Number))

	switch action {
	case "opened", "reopened", "edited":
		boardName := fmt.Sprintf("GitHub Issues - %s", event.Repository.Name)
		cardTitle := issueCardTitle(issue)

		listName := "Backlog"
		if action == "opened" {
			listName = "To Do"
		}

		if r.Standalone() {
			return Response{Status: http.StatusOK, Body: map[string]any{
				"status":     "success",
				"action":     action,
				"board_name": boardName,
				"card_title": cardTitle,
				"message":    fmt.Sprintf("Issue #%d would be synchronized to WeKan", issue.Number),
				"mode":       "standalone",
			}}
		}

		board, err := r.getOrCreateBoard(ctx, boardName)
		if err != nil {
			zap.L().Error("Failed to create board", zap.String("board", boardName), zap.Error(err))
			return Response{Status: http.StatusInternalServerError, Body: map[string]any{"error": "Failed to create/get board"}}
		}

		card, err := r.creator.AddCardToBoard(ctx, board.BoardID, listName, cardTitle, issueCardDescription(issue))
		if err != nil {
			zap.L().Error("Failed to create card", zap.String("card", cardTitle), zap.Error(err))
			return Response{Status: http.StatusInternalServerError, Body: map[string]any{"error": "Failed to create card"}}
		}

		return Response{Status: http.StatusOK, Body: map[string]any{
			"status":   "success",
			"action":   action,
			"board_id": board.BoardID,
			"card_id":  card.CardID,
			"message":  fmt.Sprintf("Issue #%d synchronized to WeKan", issue.Number),
		}}

	case "closed":
		// Stub: the full close-to-Done movement would use
		// Creator.MoveCard once card ids are tracked per issue.
		zap.L().Info("Issue closed - would move card to Done list", zap.Int("issue", issue.Number))
		return Response{Status: http.StatusOK, Body: map[string]any{
			"status":  "success",
			"action":  action,
			"message": fmt.Sprintf("Issue #%d closed", issue.Number),
		}}

	default:
		return Response{Status: http.StatusOK, Body: map[string]any{"status": "Issue event processed", "action": action}}
	}
}

func (r *Router) handlePullRequest(ctx context.Context, event models.PullRequestEvent) Response {
	action := event.Action
	pr := event.PullRequest
	zap.L().Info("Processing PR event", zap.String("action", action), zap.Int("pr", pr.Number))

	switch action {
	case "opened", "reopened", "edited":
		boardName := fmt.Sprintf("GitHub PRs - %s", event.Repository.Name)
		cardTitle := pullRequestCardTitle(pr)

		if r.Standalone() {
			return Response{Status: http.StatusOK, Body: map[string]any{
				"status":     "success",
				"action":     action,
				"board_name": boardName,
				"card_title": cardTitle,
				"message":    fmt.Sprintf("PR #%d would be synchronized to WeKan", pr.Number),
				"mode":       "standalone",
			}}
		}

		board, err := r.getOrCreateBoard(ctx, boardName)
		if err != nil {
			zap.L().Error("Failed to create board", zap.String("board", boardName), zap.Error(err))
			return Response{Status: http.StatusInternalServerError, Body: map[string]any{"error": "Failed to create/get board"}}
		}

		card, err := r.creator.AddCardToBoard(ctx, board.BoardID, "To Do", cardTitle, pullRequestCardDescription(pr))
		if err != nil {
			zap.L().Error("Failed to create card", zap.String("card", cardTitle), zap.Error(err))
			return Response{Status: http.StatusInternalServerError, Body: map[string]any{"error": "Failed to create card"}}
		}

		return Response{Status: http.StatusOK, Body: map[string]any{
			"status":   "success",
			"action":   action,
			"board_id": board.BoardID,
			"card_id":  card.CardID,
			"message":  fmt.Sprintf("PR #%d synchronized to WeKan", pr.Number),
		}}

	default:
		return Response{Status: http.StatusOK, Body: map[string]any{"status": "PR event processed", "action": action}}
	}
}

func (r *Router) handlePush(ctx context.Context, event models.PushEvent) Response {
	zap.L().Info("Processing push event", zap.Int("commits", len(event.Commits)), zap.String("ref", event.Ref))

	if event.Ref != "refs/heads/main" && event.Ref != "refs/heads/master" {
		return Response{Status: http.StatusOK, Body: map[string]any{"status": "Push event processed", "ref": event.Ref}}
	}

	boardName := fmt.Sprintf("GitHub Commits - %s", event.Repository.Name)
	commits := event.Commits
	if len(commits) > maxPushCards {
		commits = commits[:maxPushCards]
	}

	if r.Standalone() {
		return Response{Status: http.StatusOK, Body: map[string]any{
			"status":        "success",
			"board_name":    boardName,
			"cards_created": len(commits),
			"message":       fmt.Sprintf("Processed %d commits, would create %d cards", len(event.Commits), len(commits)),
			"mode":          "standalone",
		}}
	}

	board, err := r.getOrCreateBoard(ctx, boardName)
	if err != nil {
		zap.L().Error("Failed to create board", zap.String("board", boardName), zap.Error(err))
		return Response{Status: http.StatusInternalServerError, Body: map[string]any{"error": "Failed to create/get board"}}
	}

	cardsCreated := 0
	for _, commit := range commits {
		_, err := r.creator.AddCardToBoard(ctx, board.BoardID, "Done", commitCardTitle(commit), commitCardDescription(commit))
		if err != nil {
			zap.L().Warn("Failed to create commit card", zap.String("sha", commit.ID), zap.Error(err))
			continue
		}
		cardsCreated++
	}

	return Response{Status: http.StatusOK, Body: map[string]any{
		"status":        "success",
		"board_id":      board.BoardID,
		"cards_created": cardsCreated,
		"message":       fmt.Sprintf("Processed %d commits, created %d cards", len(event.Commits), cardsCreated),
	}}
}

func (r *Router) handleRepository(ctx context.Context, event models.RepositoryEvent) Response {
	action := event.Action
	repo := event.Repository
	zap.L().Info("Processing repository event", zap.String("action", action), zap.String("repository", repo.Name))

	if action != "created" {
		return Response{Status: http.StatusOK, Body: map[string]any{"status": "Repository event processed", "action": action}}
	}

	boardName := fmt.Sprintf("Project - %s", repo.Name)

	if r.Standalone() {
		return Response{Status: http.StatusOK, Body: map[string]any{
			"status":     "success",
			"action":     action,
			"board_name": boardName,
			"message":    fmt.Sprintf("Would create board for repository %s", repo.Name),
			"mode":       "standalone",
		}}
	}

	board, err := r.getOrCreateBoard(ctx, boardName)
	if err != nil {
		zap.L().Error("Failed to create board", zap.String("board", boardName), zap.Error(err))
		return Response{Status: http.StatusInternalServerError, Body: map[string]any{"error": "Failed to create/get board"}}
	}

	if _, err := r.creator.AddCardToBoard(ctx, board.BoardID, "To Do", "Repository Setup", repositorySetupCardDescription(repo)); err != nil {
		zap.L().Warn("Failed to create setup card", zap.String("board", board.BoardID), zap.Error(err))
	}

	return Response{Status: http.StatusOK, Body: map[string]any{
		"status":   "success",
		"action":   action,
		"board_id": board.BoardID,
		"message":  fmt.Sprintf("Created board for repository %s", repo.Name),
	}}
}

func (r *Router) handlePing(event models.PingEvent) Response {
	zap.L().Info("Received ping event from GitHub")
	zen := event.Zen
	if zen == "" {
		zen = "No zen provided"
	}
	return Response{Status: http.StatusOK, Body: map[string]any{
		"status":  "success",
		"message": "Webhook receiver is working!",
		"zen":     zen,
	}}
}
