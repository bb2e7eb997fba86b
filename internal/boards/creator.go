// Package boards orchestrates board, list and card provisioning in
// Wekan from templates or ad-hoc requests.
package boards

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/wekan-tools/github-wekan-sync/internal/oplog"
	"github.com/wekan-tools/github-wekan-sync/internal/templates"
	"github.com/wekan-tools/github-wekan-sync/internal/wekan"
)

// ListResult is one created list.
type ListResult struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// CardResult is one created card.
type CardResult struct {
	Title  string `json:"title"`
	ID     string `json:"id"`
	ListID string `json:"list_id"`
}

// Result describes a completed board creation.
type Result struct {
	BoardID  string       `json:"board_id"`
	BoardURL string       `json:"board_url"`
	Lists    []ListResult `json:"lists"`
	Cards    []CardResult `json:"cards"`
}

// AddedCard describes a card added to an existing board.
type AddedCard struct {
	BoardID     string `json:"board_id"`
	CardID      string `json:"card_id"`
	CardURL     string `json:"card_url"`
	ListName    string `json:"list_name"`
	ListID      string `json:"list_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Creator provisions boards through the API client. It keeps no state
// between operations; Wekan is the source of truth.
type Creator struct {
	client    *wekan.Client
	templates *templates.Manager
	log       *oplog.Log
}

// NewCreator returns a board creator using the given client and
// template manager.
func NewCreator(client *wekan.Client, tm *templates.Manager, log *oplog.Log) *Creator {
	return &Creator{client: client, templates: tm, log: log}
}

// CreateFromTemplate creates a board from the named template, then its
// lists in template order, then the template's seed cards. A failed
// list or card creation is logged and skipped rather than aborting the
// operation: Wekan has no transactional multi-resource create, and
// best effort preserves whatever was already provisioned.
func (c *Creator) CreateFromTemplate(ctx context.Context, templateName, overrideTitle string) (*Result, error) {
	c.log.Appendf("Creating board from template: %s", templateName)

	tpl, err := c.templates.Get(templateName)
	if err != nil {
		return nil, err
	}
	title := overrideTitle
	if title == "" {
		title = tpl.Title
	}
	return c.provision(ctx, title, tpl)
}

// CreateCustom validates an ad-hoc template and provisions a board
// from it.
func (c *Creator) CreateCustom(ctx context.Context, tpl templates.Template) (*Result, error) {
	if err := templates.Validate(tpl); err != nil {
		c.log.Appendf("ERROR: Invalid board configuration: %v", err)
		return nil, fmt.Errorf("invalid board configuration: %w", err)
	}
	c.log.Append("Creating board from custom configuration")
	return c.provision(ctx, tpl.Title, tpl)
}

func (c *Creator) provision(ctx context.Context, title string, tpl templates.Template) (*Result, error) {
	board, err := c.client.CreateBoard(ctx, title)
	if err != nil {
		c.log.Appendf("ERROR: Failed to create board: %v", err)
		return nil, err
	}
	c.log.Appendf("Board created successfully: %s", board.ID)

	var lists []ListResult
	for _, item := range tpl.Lists {
		list, err := c.client.CreateList(ctx, board.ID, item.Title)
		if err != nil {
			c.log.Appendf("WARNING: Failed to create list '%s': %v", item.Title, err)
			zap.L().Warn("Skipping failed list creation", zap.String("list", item.Title), zap.Error(err))
			continue
		}
		lists = append(lists, ListResult{Name: item.Title, ID: list.ID})
		c.log.Appendf("List created: %s (%s)", item.Title, list.ID)
	}

	var cards []CardResult
	if len(tpl.Cards) > 0 {
		// The swimlane id is required by card creation; fetched once
		// and reused for the rest of this operation.
		swimlaneID, err := c.client.DefaultSwimlane(ctx, board.ID)
		if err != nil {
			c.log.Appendf("WARNING: Cannot create cards: %v", err)
			zap.L().Warn("Skipping seed cards, no swimlane available", zap.String("boardID", board.ID), zap.Error(err))
		} else {
			for listTitle, seeds := range tpl.Cards {
				listID := ""
				for _, l := range lists {
					if l.Name == listTitle {
						listID = l.ID
						break
					}
				}
				if listID == "" {
					c.log.Appendf("WARNING: Cannot create cards for list '%s': List not found", listTitle)
					continue
				}
				for _, seed := range seeds {
					card, err := c.client.CreateCard(ctx, board.ID, listID, swimlaneID, seed.Title, seed.Description)
					if err != nil {
						c.log.Appendf("WARNING: Failed to create card '%s': %v", seed.Title, err)
						zap.L().Warn("Skipping failed card creation", zap.String("card", seed.Title), zap.Error(err))
						continue
					}
					cards = append(cards, CardResult{Title: seed.Title, ID: card.ID, ListID: listID})
					c.log.Appendf("Card created: %s (%s)", seed.Title, card.ID)
				}
			}
		}
	}

	return &Result{
		BoardID:  board.ID,
		BoardURL: c.client.BoardURL(board.ID),
		Lists:    lists,
		Cards:    cards,
	}, nil
}

// AddCardToBoard creates a card in the named list of an existing
// board. The list is resolved by exact title match; a missing list is
// a wekan.ErrNotFound, not a retryable condition. Calling this twice
// with the same arguments creates two distinct cards: there is no
// dedup.
func (c *Creator) AddCardToBoard(ctx context.Context, boardID, listName, title, description string) (*AddedCard, error) {
	c.log.Appendf("Adding card '%s' to list '%s' in board %s", title, listName, boardID)

	list, err := c.client.GetListByName(ctx, boardID, listName)
	if err != nil {
		return nil, err
	}

	swimlaneID, err := c.client.DefaultSwimlane(ctx, boardID)
	if err != nil {
		return nil, err
	}

	card, err := c.client.CreateCard(ctx, boardID, list.ID, swimlaneID, title, description)
	if err != nil {
		return nil, err
	}
	c.log.Appendf("Card created successfully: %s", card.ID)

	return &AddedCard{
		BoardID:     boardID,
		CardID:      card.ID,
		CardURL:     c.client.CardURL(boardID, card.ID),
		ListName:    listName,
		ListID:      list.ID,
		Title:       title,
		Description: description,
	}, nil
}

// MoveCard moves a card to the named destination list. The upstream
// update re-assigns the authoring user to the mover; that quirk lives
// in the API client.
func (c *Creator) MoveCard(ctx context.Context, boardID, cardID, listName string) error {
	dest, err := c.client.GetListByName(ctx, boardID, listName)
	if err != nil {
		return err
	}
	return c.client.MoveCard(ctx, boardID, cardID, dest.ID)
}

// AddComment adds a comment to a card.
func (c *Creator) AddComment(ctx context.Context, boardID, cardID, text string) error {
	return c.client.AddComment(ctx, boardID, cardID, text)
}
