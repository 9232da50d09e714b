package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/blackwell-systems/questwatch/internal/analytics"
	"github.com/blackwell-systems/questwatch/internal/quest"
)

var (
	summarySchema = json.RawMessage(`{"type":"object","properties":{` +
		`"quest_ids":{"type":"array","items":{"type":"string"},"description":"Quest IDs to summarize (default: every known quest)"},` +
		`"window":{"type":"string","enum":["all","30d","7d"],"description":"Trailing time window (default all)"}},` +
		`"additionalProperties":false}`)
	detailSchema = json.RawMessage(`{"type":"object","properties":{` +
		`"quest_id":{"type":"string","description":"Quest to analyze"},` +
		`"window":{"type":"string","enum":["all","30d","7d"],"description":"Trailing time window (default all)"}},` +
		`"required":["quest_id"],"additionalProperties":false}`)
	noArgsSchema = json.RawMessage(`{"type":"object","properties":{},"additionalProperties":false}`)
)

type summaryArgs struct {
	QuestIDs []string `json:"quest_ids"`
	Window   string   `json:"window"`
}

type detailArgs struct {
	QuestID string `json:"quest_id"`
	Window  string `json:"window"`
}

// SummaryResult is the quest_summary tool output.
type SummaryResult struct {
	Window string                   `json:"window"`
	Quests []analytics.QuestSummary `json:"quests"`
}

// QuestListResult is the quest_list tool output.
type QuestListResult struct {
	QuestIDs []string `json:"quest_ids"`
}

func addTools(s *Server) {
	s.registerTool(toolDef{
		Name:        "quest_summary",
		Description: "Play count, clear rate, average clear time and rating for one or more quests.",
		InputSchema: summarySchema,
		Handler:     s.handleSummary,
	})
	s.registerTool(toolDef{
		Name:        "quest_detail",
		Description: "Full analytics for one quest: funnel, reviews, drop-off by mode, hardest puzzle spots, and feedback.",
		InputSchema: detailSchema,
		Handler:     s.handleDetail,
	})
	if s.quests != nil {
		s.registerTool(toolDef{
			Name:        "quest_list",
			Description: "IDs of every quest with recorded data.",
			InputSchema: noArgsSchema,
			Handler:     s.handleList,
		})
	}
}

func (s *Server) window(raw string) (quest.Window, error) {
	if raw == "" {
		return s.defaultWindow, nil
	}
	return quest.ParseWindow(raw)
}

func (s *Server) handleSummary(ctx context.Context, raw json.RawMessage) (any, error) {
	var args summaryArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	w, err := s.window(args.Window)
	if err != nil {
		return nil, err
	}

	ids := args.QuestIDs
	if len(ids) == 0 && s.quests != nil {
		if ids, err = s.quests.ListQuestIDs(ctx); err != nil {
			return nil, fmt.Errorf("listing quests: %w", err)
		}
	}
	if len(ids) == 0 {
		return SummaryResult{Window: w.String(), Quests: []analytics.QuestSummary{}}, nil
	}

	rows, err := s.analytics.Summarize(ctx, ids, w)
	if errors.Is(err, analytics.ErrNoQuestIDs) {
		return SummaryResult{Window: w.String(), Quests: []analytics.QuestSummary{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return SummaryResult{Window: w.String(), Quests: rows}, nil
}

func (s *Server) handleDetail(ctx context.Context, raw json.RawMessage) (any, error) {
	var args detailArgs
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if args.QuestID == "" {
		return nil, errors.New("quest_id is required")
	}
	w, err := s.window(args.Window)
	if err != nil {
		return nil, err
	}
	return s.analytics.Detail(ctx, args.QuestID, w)
}

func (s *Server) handleList(ctx context.Context, _ json.RawMessage) (any, error) {
	ids, err := s.quests.ListQuestIDs(ctx)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []string{}
	}
	return QuestListResult{QuestIDs: ids}, nil
}
