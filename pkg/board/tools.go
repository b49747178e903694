package board

import (
	"context"
	"fmt"

	"planbuilder/pkg/tools"
)

// Service is the board API the tools call.
type Service interface {
	CreateBoard(ctx context.Context, name string) (Ref, error)
	CreateCard(ctx context.Context, card Card) (string, error)
}

// CreateBoardTool implements create_board_on_trello.
type CreateBoardTool struct {
	service Service
}

// NewCreateBoardTool creates the board creation tool.
func NewCreateBoardTool(service Service) *CreateBoardTool {
	return &CreateBoardTool{service: service}
}

// Name returns the tool name.
func (t *CreateBoardTool) Name() string {
	return tools.ToolCreateBoard
}

// Definition returns the tool definition for LLM.
func (t *CreateBoardTool) Definition() tools.ToolDefinition {
	return tools.ToolDefinition{
		Name:        tools.ToolCreateBoard,
		Description: "It creates a new Trello board.",
		InputSchema: tools.InputSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"board_name": {Type: "string", Description: "The name of the board to create"},
			},
			Required: []string{"board_name"},
		},
		Returns: "The Trello board ID as a string.",
	}
}

// Exec creates the board. ExecResult.Data holds the Ref.
func (t *CreateBoardTool) Exec(ctx context.Context, args map[string]any) (*tools.ExecResult, error) {
	name, err := tools.StringArg(args, "board_name")
	if err != nil {
		return nil, err //nolint:wrapcheck // argument errors are self-describing
	}

	ref, err := t.service.CreateBoard(ctx, name)
	if err != nil {
		return nil, err //nolint:wrapcheck // service names the failure
	}
	return &tools.ExecResult{
		Content: fmt.Sprintf("Board ID: %s", ref.ListID),
		Data:    ref,
	}, nil
}

// AddCardTool implements add_card_to_trello.
type AddCardTool struct {
	service Service
}

// NewAddCardTool creates the card creation tool.
func NewAddCardTool(service Service) *AddCardTool {
	return &AddCardTool{service: service}
}

// Name returns the tool name.
func (t *AddCardTool) Name() string {
	return tools.ToolAddCard
}

// Definition returns the tool definition for LLM.
func (t *AddCardTool) Definition() tools.ToolDefinition {
	str := func(desc string) tools.Property { return tools.Property{Type: "string", Description: desc} }
	return tools.ToolDefinition{
		Name:        tools.ToolAddCard,
		Description: "It adds a new card to a Trello board.",
		InputSchema: tools.InputSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				"card_name":        str("The name of the card to create"),
				"card_description": str("The description of the card to create"),
				"start_date":       str("The start date of the card to create"),
				"end_date":         str("The end date of the card to create"),
				"id_list":          str("The ID of the board where the card will be created"),
			},
			Required: []string{"card_name", "card_description", "start_date", "end_date", "id_list"},
		},
		Returns: "The Trello card ID as a string.",
	}
}

// Exec creates the card. ExecResult.Data holds the card ID.
func (t *AddCardTool) Exec(ctx context.Context, args map[string]any) (*tools.ExecResult, error) {
	name, err := tools.StringArg(args, "card_name")
	if err != nil {
		return nil, err //nolint:wrapcheck // argument errors are self-describing
	}
	listID, err := tools.StringArg(args, "id_list")
	if err != nil {
		return nil, err //nolint:wrapcheck // argument errors are self-describing
	}

	id, err := t.service.CreateCard(ctx, Card{
		Name:        name,
		Description: tools.OptionalStringArg(args, "card_description"),
		ListID:      listID,
		Start:       tools.OptionalStringArg(args, "start_date"),
		Due:         tools.OptionalStringArg(args, "end_date"),
	})
	if err != nil {
		return nil, err //nolint:wrapcheck // service names the failure
	}
	return &tools.ExecResult{Content: id, Data: id}, nil
}
