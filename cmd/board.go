package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/wekan-tools/github-wekan-sync/internal/boards"
	"github.com/wekan-tools/github-wekan-sync/internal/config"
	"github.com/wekan-tools/github-wekan-sync/internal/oplog"
	"github.com/wekan-tools/github-wekan-sync/internal/templates"
	"github.com/wekan-tools/github-wekan-sync/internal/wekan"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Manage Wekan boards directly",
}

var (
	createTemplate string
	createTitle    string
	createConfig   string

	cardBoardID     string
	cardListName    string
	cardTitle       string
	cardDescription string

	moveCardID   string
	commentText  string
	templatesDir string
)

var boardCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a board from a template or a custom configuration file",
	RunE:  runBoardCreate,
}

var boardAddCardCmd = &cobra.Command{
	Use:   "add-card",
	Short: "Add a card to an existing board by list name",
	RunE:  runBoardAddCard,
}

var boardMoveCardCmd = &cobra.Command{
	Use:   "move-card",
	Short: "Move a card to another list by name",
	RunE:  runBoardMoveCard,
}

var boardCommentCmd = &cobra.Command{
	Use:   "comment",
	Short: "Add a comment to a card",
	RunE:  runBoardComment,
}

func init() {
	boardCreateCmd.Flags().StringVar(&createTemplate, "template", "", "template name (kanban_basic, scrum, devops, ...)")
	boardCreateCmd.Flags().StringVar(&createTitle, "title", "", "board title override")
	boardCreateCmd.Flags().StringVar(&createConfig, "config", "", "path to a custom board configuration JSON file")

	boardAddCardCmd.Flags().StringVar(&cardBoardID, "board-id", "", "board id")
	boardAddCardCmd.Flags().StringVar(&cardListName, "list-name", "", "destination list name")
	boardAddCardCmd.Flags().StringVar(&cardTitle, "card-title", "", "card title")
	boardAddCardCmd.Flags().StringVar(&cardDescription, "card-description", "", "card description")
	boardAddCardCmd.MarkFlagRequired("board-id")
	boardAddCardCmd.MarkFlagRequired("list-name")
	boardAddCardCmd.MarkFlagRequired("card-title")

	boardMoveCardCmd.Flags().StringVar(&cardBoardID, "board-id", "", "board id")
	boardMoveCardCmd.Flags().StringVar(&moveCardID, "card-id", "", "card id")
	boardMoveCardCmd.Flags().StringVar(&cardListName, "list-name", "", "destination list name")
	boardMoveCardCmd.MarkFlagRequired("board-id")
	boardMoveCardCmd.MarkFlagRequired("card-id")
	boardMoveCardCmd.MarkFlagRequired("list-name")

	boardCommentCmd.Flags().StringVar(&cardBoardID, "board-id", "", "board id")
	boardCommentCmd.Flags().StringVar(&moveCardID, "card-id", "", "card id")
	boardCommentCmd.Flags().StringVar(&commentText, "text", "", "comment text")
	boardCommentCmd.MarkFlagRequired("board-id")
	boardCommentCmd.MarkFlagRequired("card-id")
	boardCommentCmd.MarkFlagRequired("text")

	boardCmd.PersistentFlags().StringVar(&templatesDir, "templates-dir", "", "directory containing template JSON files")

	boardCmd.AddCommand(boardCreateCmd, boardAddCardCmd, boardMoveCardCmd, boardCommentCmd)
	rootCmd.AddCommand(boardCmd)
}

// output is the structured JSON envelope every board command prints.
type output struct {
	Success       bool                `json:"success"`
	ExecutionTime string              `json:"execution_time"`
	OperationsLog []string            `json:"operations_log"`
	BoardID       string              `json:"board_id,omitempty"`
	BoardURL      string              `json:"board_url,omitempty"`
	Lists         []boards.ListResult `json:"lists,omitempty"`
	Cards         []boards.CardResult `json:"cards,omitempty"`
}

func printOutput(out output) {
	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
}

// newCreator wires an authenticated board creator plus the operation
// log all its components trace into.
func newCreator(cmd *cobra.Command) (*boards.Creator, *oplog.Log, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.ValidateWekan(); err != nil {
		return nil, nil, err
	}

	log := oplog.New()
	auth, err := wekan.NewAuthManager(cmd.Context(), cfg.Wekan.URL, cfg.Wekan.Username, cfg.Wekan.Password, log)
	if err != nil {
		return nil, log, err
	}
	client := wekan.NewClient(cfg.Wekan.URL, auth, log)

	dir := templatesDir
	if dir == "" {
		dir = cfg.Server.TemplatesDir
	}
	tm := templates.New(dir, log)

	return boards.NewCreator(client, tm, log), log, nil
}

func runBoardCreate(cmd *cobra.Command, args []string) error {
	start := time.Now()
	creator, log, err := newCreator(cmd)
	if err != nil {
		printFailure(start, log, err)
		return err
	}

	var result *boards.Result
	switch {
	case createConfig != "":
		data, err := os.ReadFile(createConfig)
		if err != nil {
			printFailure(start, log, err)
			return err
		}
		var tpl templates.Template
		if err := json.Unmarshal(data, &tpl); err != nil {
			printFailure(start, log, err)
			return err
		}
		result, err = creator.CreateCustom(cmd.Context(), tpl)
		if err != nil {
			printFailure(start, log, err)
			return err
		}
	case createTemplate != "":
		result, err = creator.CreateFromTemplate(cmd.Context(), createTemplate, createTitle)
		if err != nil {
			printFailure(start, log, err)
			return err
		}
	default:
		err := fmt.Errorf("no action specified: use --template or --config")
		printFailure(start, log, err)
		return err
	}

	printOutput(output{
		Success:       true,
		ExecutionTime: executionTime(start),
		OperationsLog: log.Entries(),
		BoardID:       result.BoardID,
		BoardURL:      result.BoardURL,
		Lists:         result.Lists,
		Cards:         result.Cards,
	})
	return nil
}

func runBoardAddCard(cmd *cobra.Command, args []string) error {
	start := time.Now()
	creator, log, err := newCreator(cmd)
	if err != nil {
		printFailure(start, log, err)
		return err
	}

	card, err := creator.AddCardToBoard(cmd.Context(), cardBoardID, cardListName, cardTitle, cardDescription)
	if err != nil {
		printFailure(start, log, err)
		return err
	}

	printOutput(output{
		Success:       true,
		ExecutionTime: executionTime(start),
		OperationsLog: log.Entries(),
		BoardID:       card.BoardID,
		Cards:         []boards.CardResult{{Title: card.Title, ID: card.CardID, ListID: card.ListID}},
	})
	return nil
}

func runBoardMoveCard(cmd *cobra.Command, args []string) error {
	start := time.Now()
	creator, log, err := newCreator(cmd)
	if err != nil {
		printFailure(start, log, err)
		return err
	}

	if err := creator.MoveCard(cmd.Context(), cardBoardID, moveCardID, cardListName); err != nil {
		printFailure(start, log, err)
		return err
	}

	printOutput(output{Success: true, ExecutionTime: executionTime(start), OperationsLog: log.Entries()})
	return nil
}

func runBoardComment(cmd *cobra.Command, args []string) error {
	start := time.Now()
	creator, log, err := newCreator(cmd)
	if err != nil {
		printFailure(start, log, err)
		return err
	}

	if err := creator.AddComment(cmd.Context(), cardBoardID, moveCardID, commentText); err != nil {
		printFailure(start, log, err)
		return err
	}

	printOutput(output{Success: true, ExecutionTime: executionTime(start), OperationsLog: log.Entries()})
	return nil
}

func printFailure(start time.Time, log *oplog.Log, err error) {
	printOutput(output{
		Success:       false,
		ExecutionTime: executionTime(start),
		OperationsLog: append(log.Entries(), fmt.Sprintf("ERROR: %v", err)),
	})
}

func executionTime(start time.Time) string {
	return fmt.Sprintf("%.2fs", time.Since(start).Seconds())
}
