// Package mcp exposes the qualification core as an MCP tool server, so that
// assistants can drive a qualification call and record appointment outcomes.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/velora/leadflow"
	"github.com/velora/leadflow/internal/outcome"
	"github.com/velora/leadflow/pkg/domain"
)

// Server wraps the leadflow Engine and exposes it as an MCP Server.
type Server struct {
	engine    *leadflow.Engine
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance.
func NewServer(engine *leadflow.Engine) *Server {
	s := &Server{
		engine:    engine,
		mcpServer: server.NewMCPServer("leadflow-mcp", leadflow.Version),
	}
	s.registerTools()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	startTool := mcp.NewTool("start_execution",
		mcp.WithDescription("Start a qualification script traversal for a lead. Returns the first question."),
		mcp.WithString("script_id", mcp.Required(), mcp.Description("The script to run")),
		mcp.WithString("lead_id", mcp.Required(), mcp.Description("The lead being qualified")),
		mcp.WithString("user_id", mcp.Description("The caller running the script")),
		mcp.WithOutputSchema[domain.ExecutionState](),
	)
	s.mcpServer.AddTool(startTool, mcp.NewStructuredToolHandler(s.handleStart))

	answerTool := mcp.NewTool("answer_node",
		mcp.WithDescription("Submit the lead's answer to one question and advance the traversal."),
		mcp.WithString("execution_id", mcp.Required(), mcp.Description("The running traversal")),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("The question being answered")),
		mcp.WithString("answer", mcp.Required(), mcp.Description("The raw answer (e.g. 'oui', an option value, a 0-5 rating)")),
		mcp.WithOutputSchema[domain.ExecutionState](),
	)
	s.mcpServer.AddTool(answerTool, mcp.NewStructuredToolHandler(s.handleAnswer))

	getTool := mcp.NewTool("get_execution",
		mcp.WithDescription("Fetch the current state of a traversal, history included."),
		mcp.WithString("execution_id", mcp.Required(), mcp.Description("The traversal to inspect")),
		mcp.WithOutputSchema[domain.ExecutionState](),
	)
	s.mcpServer.AddTool(getTool, mcp.NewStructuredToolHandler(s.handleGet))

	qualifyTool := mcp.NewTool("qualify_rdv",
		mcp.WithDescription("Record the outcome of a scheduled appointment for a lead in RDV_PLANIFIE."),
		mcp.WithString("lead_id", mcp.Required(), mcp.Description("The lead")),
		mcp.WithBoolean("honored", mcp.Required(), mcp.Description("Whether the appointment was kept")),
		mcp.WithString("absence_reason", mcp.Description("Required when honored is false")),
		mcp.WithString("intent", mcp.Description("Required when honored is true: poursuivre, reporter or abandon")),
		mcp.WithString("actor", mcp.Description("Who records the outcome")),
		mcp.WithOutputSchema[domain.Lead](),
	)
	s.mcpServer.AddTool(qualifyTool, mcp.NewStructuredToolHandler(s.handleQualify))

	followUpTool := mcp.NewTool("handle_follow_up",
		mcp.WithDescription("Record a follow-up attempt for a lead in RDV_NON_HONORE."),
		mcp.WithString("lead_id", mcp.Required(), mcp.Description("The lead")),
		mcp.WithString("action", mcp.Required(), mcp.Description("'relance' or 'call'")),
		mcp.WithString("call_result", mcp.Description("Required for 'call': rdv_refixe, interesse, hors_ligne, pas_interesse or numero_invalide")),
		mcp.WithString("new_date", mcp.Description("RFC3339 date, required for rdv_refixe")),
		mcp.WithString("actor", mcp.Description("Who records the outcome")),
		mcp.WithOutputSchema[domain.Lead](),
	)
	s.mcpServer.AddTool(followUpTool, mcp.NewStructuredToolHandler(s.handleFollowUp))
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.ExecutionState, error) {
	scriptID, _ := args["script_id"].(string)
	leadID, _ := args["lead_id"].(string)
	userID, _ := args["user_id"].(string)

	state, err := s.engine.StartExecution(ctx, scriptID, leadID, userID)
	if err != nil {
		return domain.ExecutionState{}, fmt.Errorf("start failed: %w", err)
	}
	return *state, nil
}

func (s *Server) handleAnswer(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.ExecutionState, error) {
	executionID, _ := args["execution_id"].(string)
	nodeID, _ := args["node_id"].(string)
	answer, _ := args["answer"].(string)

	state, err := s.engine.AnswerNode(ctx, executionID, nodeID, answer)
	if err != nil {
		return domain.ExecutionState{}, fmt.Errorf("answer failed: %w", err)
	}
	return *state, nil
}

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.ExecutionState, error) {
	executionID, _ := args["execution_id"].(string)

	state, err := s.engine.Execution(ctx, executionID)
	if err != nil {
		return domain.ExecutionState{}, fmt.Errorf("fetch failed: %w", err)
	}
	return *state, nil
}

func (s *Server) handleQualify(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Lead, error) {
	honored, _ := args["honored"].(bool)
	leadID, _ := args["lead_id"].(string)
	absenceReason, _ := args["absence_reason"].(string)
	intent, _ := args["intent"].(string)
	actor, _ := args["actor"].(string)

	lead, err := s.engine.QualifyRdv(ctx, outcome.QualifyRdvCommand{
		LeadID:        leadID,
		Actor:         actor,
		Honored:       honored,
		AbsenceReason: absenceReason,
		Intent:        intent,
	})
	if err != nil {
		return domain.Lead{}, fmt.Errorf("qualify failed: %w", err)
	}
	return *lead, nil
}

func (s *Server) handleFollowUp(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (domain.Lead, error) {
	leadID, _ := args["lead_id"].(string)
	action, _ := args["action"].(string)
	callResult, _ := args["call_result"].(string)
	actor, _ := args["actor"].(string)

	var newDate *time.Time
	if raw, ok := args["new_date"].(string); ok && raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return domain.Lead{}, fmt.Errorf("invalid new_date: %w", err)
		}
		newDate = &parsed
	}

	lead, err := s.engine.HandleNonHonore(ctx, outcome.FollowUpCommand{
		LeadID:     leadID,
		Actor:      actor,
		Action:     action,
		CallResult: callResult,
		NewDate:    newDate,
	})
	if err != nil {
		return domain.Lead{}, fmt.Errorf("follow-up failed: %w", err)
	}
	return *lead, nil
}
